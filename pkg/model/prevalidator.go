package model

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// precheck is a solver-free feasibility check. It returns an empty string
// when the request passes and the failure message otherwise.
type precheck func(c *catalog, options Options) string

// prechecks run in order; cheaper and more specific checks come first so the
// reported cause is as precise as possible.
var prechecks = []precheck{
	groupHourBudget,
	labPlacementExists,
	labJointAvailability,
	courseOverlap,
	roomBudget,
}

func prevalidate(c *catalog, options Options) error {
	for _, check := range prechecks {
		if message := check(c, options); message != "" {
			return &InfeasibleError{Stage: StagePrecheck, Message: message}
		}
	}
	return nil
}

func groupHourBudget(c *catalog, _ Options) string {
	for _, group := range c.groups {
		required := c.requiredHours(group)
		available := c.availableCells(group.Availability)
		if required > available {
			return fmt.Sprintf("Student group %s requires %d hours per week but only has %d available slots (shortfall of %d).",
				group.Id, required, available, required-available)
		}
	}
	return ""
}

func labPlacementExists(c *catalog, options Options) string {
	for _, group := range c.groups {
		for _, course := range c.enrolled[group.Id] {
			if course.LabHours < 2 {
				continue
			}
			if len(c.validLabStarts(group, course, options.EarlyLabStart)) == 0 {
				return fmt.Sprintf("Lab course %s for student group %s needs 2 consecutive slots, but no pair of back-to-back timeslots satisfies its timing constraints%s.",
					course.Id, group.Id, describeLabTiming(c, group, course))
			}
		}
	}
	return ""
}

func describeLabTiming(c *catalog, group StudentGroup, course Course) string {
	parts := []string{}
	if timing := c.labTiming(group, course.Id); timing.Kind != AnyTime {
		parts = append(parts, fmt.Sprintf("preference %q", timing.String()))
	}
	if c.settings.Disallow830Labs {
		parts = append(parts, "early lab slots disallowed")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func labJointAvailability(c *catalog, options Options) string {
	for _, group := range c.groups {
		for _, course := range c.enrolled[group.Id] {
			if course.LabHours < 2 {
				continue
			}
			candidates := c.eligible(group.Id, course.Id)
			if len(candidates) == 0 {
				return fmt.Sprintf("Lab course %s for student group %s has no assigned instructor: no eligible instructor is known.", course.Id, group.Id)
			}

			starts := c.validLabStarts(group, course, options.EarlyLabStart)
			found := lo.SomeBy(candidates, func(instructorId string) bool {
				instructor := c.instructorById[instructorId]
				for _, day := range c.days {
					for _, t := range starts {
						if group.Availability.Available(day, t) && group.Availability.Available(day, t+1) &&
							instructor.Availability.Available(day, t) && instructor.Availability.Available(day, t+1) {
							return true
						}
					}
				}
				return false
			})
			if !found {
				return fmt.Sprintf("Lab course %s for student group %s cannot be placed: no assigned instructor (%s) is available together with the group for 2 consecutive slots on any day.",
					course.Id, group.Id, strings.Join(candidates, ", "))
			}
		}
	}
	return ""
}

func courseOverlap(c *catalog, _ Options) string {
	for _, group := range c.groups {
		for _, course := range c.enrolled[group.Id] {
			required := course.Hours()
			if required == 0 {
				continue
			}
			candidates := c.eligible(group.Id, course.Id)
			overlap := 0
			for _, day := range c.days {
				for slot := range c.slots() {
					if !group.Availability.Available(day, slot) {
						continue
					}
					if lo.SomeBy(candidates, func(instructorId string) bool {
						return c.instructorById[instructorId].Availability.Available(day, slot)
					}) {
						overlap++
					}
				}
			}
			if overlap < required {
				if len(candidates) == 0 {
					return fmt.Sprintf("Course %s for student group %s needs %d hours but has no eligible instructor.", course.Id, group.Id, required)
				}
				return fmt.Sprintf("Course %s for student group %s needs %d hours but only %d slots have both the group and an eligible instructor (%s) available.",
					course.Id, group.Id, required, overlap, strings.Join(candidates, ", "))
			}
		}
	}
	return ""
}

func roomBudget(c *catalog, _ Options) string {
	required := lo.SumBy(c.groups, c.requiredHours)
	available := lo.SumBy(c.rooms, func(room Room) int { return c.availableCells(room.Availability) })
	if required > available {
		return fmt.Sprintf("Total required hours (%d) exceed total room availability (%d room-slots across %d rooms).",
			required, available, len(c.rooms))
	}
	return ""
}
