package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AfternoonStart is the first minute of the afternoon (12:00 PM).
const AfternoonStart = 12 * 60

// DefaultSlotMinutes is the length given to labels that only name a start time.
const DefaultSlotMinutes = 60

var ErrMalformedTimeslot = errors.New("malformed timeslot")

var clockLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// Slot is a parsed timeslot in minutes since midnight.
type Slot struct {
	Label string
	Start int
	End   int
}

// Morning reports whether the slot starts before noon. A slot starting at
// 12:00 PM is an afternoon slot.
func (s Slot) Morning() bool {
	return s.Start < AfternoonStart
}

// Timeslots is the ordered slot sequence of a request. Gaps[i] is the idle
// time between Slots[i] and Slots[i+1].
type Timeslots struct {
	Slots []Slot
	Gaps  []int
}

func (ts Timeslots) Len() int {
	return len(ts.Slots)
}

// Contiguous reports whether slot i is immediately followed by slot i+1.
func (ts Timeslots) Contiguous(i int) bool {
	return i >= 0 && i < len(ts.Gaps) && ts.Gaps[i] == 0
}

func parseClock(value string) (int, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, layout := range clockLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Hour()*60 + parsed.Minute(), nil
		}
	}
	return 0, fmt.Errorf("%w: cannot read time %q", ErrMalformedTimeslot, value)
}

// formatClock renders minutes since midnight as "03:04 PM".
func formatClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("03:04 PM")
}

// ParseTimeslot reads "<start> - <end>" in 12-hour notation. A label holding
// a single time gets a DefaultSlotMinutes length.
func ParseTimeslot(label string) (Slot, error) {
	slot := Slot{Label: label}
	parts := strings.Split(strings.ReplaceAll(label, "–", "-"), "-")

	switch len(parts) {
	case 1:
		start, err := parseClock(parts[0])
		if err != nil {
			return slot, err
		}
		slot.Start, slot.End = start, start+DefaultSlotMinutes
	case 2:
		start, err := parseClock(parts[0])
		if err != nil {
			return slot, err
		}
		end, err := parseClock(parts[1])
		if err != nil {
			return slot, err
		}
		slot.Start, slot.End = start, end
	default:
		return slot, fmt.Errorf("%w: %q", ErrMalformedTimeslot, label)
	}
	return slot, nil
}

// NormalizeTimeslots parses every label and derives the gap sequence.
// Unless strict is set, a malformed label degrades to a (0,0) slot and is
// reported in the returned warnings instead of failing the request.
func NormalizeTimeslots(labels []string, strict bool) (Timeslots, []string, error) {
	timeslots := Timeslots{Slots: make([]Slot, len(labels))}
	warnings := []string{}

	for i, label := range labels {
		slot, err := ParseTimeslot(label)
		if err != nil {
			if strict {
				return Timeslots{}, warnings, err
			}
			warnings = append(warnings, fmt.Sprintf("timeslot %d %q could not be parsed and was treated as 00:00-00:00", i, label))
			slot = Slot{Label: label}
		}
		timeslots.Slots[i] = slot
	}

	if len(labels) > 1 {
		timeslots.Gaps = make([]int, len(labels)-1)
		for i := range timeslots.Gaps {
			timeslots.Gaps[i] = timeslots.Slots[i+1].Start - timeslots.Slots[i].End
		}
	}
	return timeslots, warnings, nil
}
