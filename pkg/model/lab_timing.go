package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type LabTimingKind int

const (
	AnyTime LabTimingKind = iota
	Morning
	Afternoon
	ExactStart
)

// LabTiming restricts when a group's lab blocks may start.
type LabTiming struct {
	Kind  LabTimingKind
	Start int // minutes since midnight, only for ExactStart
}

// ParseLabTiming accepts "Morning", "Afternoon", a single time ("11:00 AM")
// or a range whose start is taken ("11:00 AM - 1:00 PM").
func ParseLabTiming(value string) (LabTiming, error) {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "":
		return LabTiming{Kind: AnyTime}, nil
	case "morning":
		return LabTiming{Kind: Morning}, nil
	case "afternoon":
		return LabTiming{Kind: Afternoon}, nil
	}

	slot, err := ParseTimeslot(trimmed)
	if err != nil {
		return LabTiming{}, fmt.Errorf("invalid lab timing preference %q: expected \"Morning\", \"Afternoon\" or a start time such as \"11:00 AM\"", value)
	}
	return LabTiming{Kind: ExactStart, Start: slot.Start}, nil
}

func (timing LabTiming) String() string {
	switch timing.Kind {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case ExactStart:
		return formatClock(timing.Start)
	default:
		return ""
	}
}

func (timing *LabTiming) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("lab timing preference must be a string: %w", err)
	}
	parsed, err := ParseLabTiming(value)
	if err != nil {
		return err
	}
	*timing = parsed
	return nil
}

func (timing LabTiming) MarshalJSON() ([]byte, error) {
	return json.Marshal(timing.String())
}

// AllowsStart reports whether a lab block may start in slot.
func (timing LabTiming) AllowsStart(slot Slot) bool {
	switch timing.Kind {
	case Morning:
		return slot.Start < AfternoonStart
	case Afternoon:
		return slot.Start >= AfternoonStart
	case ExactStart:
		return slot.Start == timing.Start
	default:
		return true
	}
}

// AllowsHour reports whether any lab hour, including the second hour of a
// block, may be placed in slot.
func (timing LabTiming) AllowsHour(slot Slot) bool {
	if timing.Kind == Afternoon {
		return slot.Start >= AfternoonStart
	}
	return true
}
