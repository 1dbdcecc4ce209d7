package model

import (
	"fmt"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// diagnose collects evidence for a failed solve. Hints describe resources
// under pressure; they do not prove which constraint made the model infeasible.
func diagnose(c *catalog, tasks taskSet, options Options) []string {
	hints := []string{}
	hints = append(hints, tightGroups(c, options)...)
	hints = append(hints, loadedInstructors(c, options)...)
	if hint := labBlockSupply(c, tasks, options); hint != "" {
		hints = append(hints, hint)
	}
	return hints
}

func tightGroups(c *catalog, options Options) []string {
	hints := []string{}
	for _, group := range c.groups {
		required, available := c.requiredHours(group), c.availableCells(group.Availability)
		if required == 0 || available == 0 {
			continue
		}
		if ratio := float64(required) / float64(available); ratio >= options.TightFitRatio {
			hints = append(hints, fmt.Sprintf("student group %s needs %d of its %d available slots (%.0f%%)",
				group.Id, required, available, ratio*100))
		}
	}
	return hints
}

// loadedInstructors estimates each instructor's load from the courses only
// they can teach: pinned courses and courses with a single qualified instructor.
func loadedInstructors(c *catalog, options Options) []string {
	load := make(map[string]int)
	for _, group := range c.groups {
		for _, course := range c.enrolled[group.Id] {
			if candidates := c.eligible(group.Id, course.Id); len(candidates) == 1 {
				load[candidates[0]] += course.Hours()
			}
		}
	}

	hints := []string{}
	for _, instructor := range c.instructors {
		probable, available := load[instructor.Id], c.availableCells(instructor.Availability)
		if probable == 0 {
			continue
		}
		if probable > available {
			hints = append(hints, fmt.Sprintf("instructor %s is overloaded: %d probable hours but only %d available slots",
				instructor.Id, probable, available))
		} else if float64(probable) > options.LoadWarningRatio*float64(available) {
			hints = append(hints, fmt.Sprintf("instructor %s is near capacity: %d probable hours of %d available slots",
				instructor.Id, probable, available))
		}
	}
	return hints
}

type labPlacement struct {
	room  Room
	day   int
	start int
}

// labBlockSupply matches every two-hour lab block to a distinct (room, day,
// start) placement. A matching smaller than the number of blocks means the
// lab rooms cannot host all blocks, whatever the instructors do.
func labBlockSupply(c *catalog, tasks taskSet, options Options) string {
	if len(tasks.pairs) == 0 {
		return ""
	}

	placements := []labPlacement{}
	for _, room := range c.rooms {
		if !isLabRoom(room.Type) {
			continue
		}
		for day := range c.days {
			for t := range c.slots() - 1 {
				if c.timeslots.Contiguous(t) {
					placements = append(placements, labPlacement{room: room, day: day, start: t})
				}
			}
		}
	}
	if len(placements) == 0 {
		return fmt.Sprintf("no lab room offers two back-to-back slots for the %d two-hour lab blocks", len(tasks.pairs))
	}

	starts := make(map[groupCourse][]int)
	for _, pair := range tasks.pairs {
		key := groupCourse{pair.First.Group, pair.First.Course}
		if _, ok := starts[key]; !ok {
			starts[key] = c.validLabStarts(c.group(key.group), c.courseById[key.course], options.EarlyLabStart)
		}
	}

	neighbours := func(pairAny any, placementAny any) (bool, error) {
		pair := tasks.pairs[pairAny.(int)]
		placement := placements[placementAny.(int)]
		group, course := c.group(pair.First.Group), c.courseById[pair.First.Course]
		day, room := c.days[placement.day], placement.room

		if pinned := group.LabRoomPreferences[course.Id]; pinned != "" && pinned != room.Id {
			return false, nil
		}
		return labRoomMatches(course.LabType, room.Type) &&
			room.Capacity >= group.Size &&
			hasEquipment(room, course.Equipment) &&
			lo.Contains(starts[groupCourse{group.Id, course.Id}], placement.start) &&
			room.Availability.Available(day, placement.start) && room.Availability.Available(day, placement.start+1) &&
			group.Availability.Available(day, placement.start) && group.Availability.Available(day, placement.start+1), nil
	}

	pairsAny := lo.Map(tasks.pairs, func(_ LabPair, i int) any { return i })
	placementsAny := lo.Map(placements, func(_ labPlacement, i int) any { return i })

	graph, err := bipartitegraph.NewBipartiteGraph(pairsAny, placementsAny, neighbours)
	if err != nil {
		return ""
	}
	if matched := len(graph.LargestMatching()); matched < len(tasks.pairs) {
		return fmt.Sprintf("only %d of %d two-hour lab blocks can be given a distinct lab room and time", matched, len(tasks.pairs))
	}
	return ""
}
