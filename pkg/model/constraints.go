package model

import (
	"github.com/samber/lo"
	"github.com/timely/timetabling/pkg/sat"
)

type constraintState struct {
	catalog *catalog
	tasks   taskSet
	index   *indexer
	options Options
}

// constraintFamily emits one family of hard constraints. Families only read
// the state, so they can run concurrently.
type constraintFamily func(state constraintState) []sat.Constraint

var hardConstraints = []constraintFamily{
	availabilityConstraints,
	exactlyOneConstraints,
	doubleBookingConstraints,
	capacityConstraints,
	equipmentConstraints,
	roomTypeConstraints,
	labRoomPinConstraints,
	sameDayLectureConstraints,
	labContiguityConstraints,
	breakConstraints,
	labTimingConstraints,
}

func literals(vars []sat.Var) []sat.Lit {
	return lo.Map(vars, func(v sat.Var, _ int) sat.Lit { return v.Lit() })
}

// forbidWhere zeroes every decision variable whose placement matches predicate.
func forbidWhere(state constraintState, predicate func(key VarKey) bool) []sat.Constraint {
	constraints := []sat.Constraint{}
	state.index.each(func(key VarKey, v sat.Var) {
		if predicate(key) {
			constraints = append(constraints, sat.Forbid(v))
		}
	})
	return constraints
}

func availabilityConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	return forbidWhere(state, func(key VarKey) bool {
		day := c.days[key.Day]
		return !c.instructorById[key.Instructor].Availability.Available(day, key.Slot) ||
			!c.roomById[key.Room].Availability.Available(day, key.Slot) ||
			!c.group(key.Task.Group).Availability.Available(day, key.Slot)
	})
}

// exactlyOneConstraints places every task once. A task without variables
// gets an empty exactly-one, which makes the model infeasible rather than
// letting the task silently drop out of the schedule.
func exactlyOneConstraints(state constraintState) []sat.Constraint {
	return lo.Map(state.tasks.tasks, func(task TaskID, _ int) sat.Constraint {
		return sat.ExactlyOne(literals(state.index.byTask.get(task))...)
	})
}

func doubleBookingConstraints(state constraintState) []sat.Constraint {
	constraints := []sat.Constraint{}
	atMostOne := func(_ resourceCell, vars []sat.Var) {
		if len(vars) > 1 {
			constraints = append(constraints, sat.AtMostOne(literals(vars)...))
		}
	}
	state.index.byInstructorCell.each(atMostOne)
	state.index.byRoomCell.each(atMostOne)
	state.index.byGroupCell.each(atMostOne)
	return constraints
}

func capacityConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	return forbidWhere(state, func(key VarKey) bool {
		return c.roomById[key.Room].Capacity < c.group(key.Task.Group).Size
	})
}

func equipmentConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	return forbidWhere(state, func(key VarKey) bool {
		return !hasEquipment(c.roomById[key.Room], c.courseById[key.Task.Course].Equipment)
	})
}

func roomTypeConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	return forbidWhere(state, func(key VarKey) bool {
		room := c.roomById[key.Room]
		if key.Task.Kind == Lab {
			return !labRoomMatches(c.courseById[key.Task.Course].LabType, room.Type)
		}
		return isLabRoom(room.Type)
	})
}

func labRoomPinConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	return forbidWhere(state, func(key VarKey) bool {
		if key.Task.Kind != Lab {
			return false
		}
		pinned := c.group(key.Task.Group).LabRoomPreferences[key.Task.Course]
		return pinned != "" && key.Room != pinned
	})
}

// sameDayLectureConstraints allows at most one lecture hour of a course per
// group and day.
func sameDayLectureConstraints(state constraintState) []sat.Constraint {
	constraints := []sat.Constraint{}
	state.index.lecturesByDay.each(func(key courseDay, vars []sat.Var) {
		if state.catalog.courseById[key.course].LectureHours > 1 {
			constraints = append(constraints, sat.AtMostOne(literals(vars)...))
		}
	})
	return constraints
}

// labContiguityConstraints ties the second hour of a lab block to the slot
// right after its first hour, with the same instructor and room.
func labContiguityConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	slots := c.slots()
	constraints := []sat.Constraint{}

	for _, pair := range state.tasks.pairs {
		for _, instructor := range c.eligible(pair.First.Group, pair.First.Course) {
			for _, room := range c.rooms {
				for day := range c.days {
					key := func(task TaskID, slot int) VarKey {
						return VarKey{Task: task, Instructor: instructor, Room: room.Id, Day: day, Slot: slot}
					}
					for t := range slots {
						first, ok := state.index.Var(key(pair.First, t))
						if !ok {
							continue
						}
						if t == slots-1 || !c.timeslots.Contiguous(t) {
							constraints = append(constraints, sat.Forbid(first))
							continue
						}
						second, ok := state.index.Var(key(pair.Second, t+1))
						if !ok {
							constraints = append(constraints, sat.Forbid(first))
							continue
						}
						constraints = append(constraints, sat.Equivalent(second.Lit(), first.Lit()))
					}
					if second, ok := state.index.Var(key(pair.Second, 0)); ok {
						constraints = append(constraints, sat.Forbid(second))
					}
				}
			}
		}
	}
	return constraints
}

// breakConstraints keeps instructors from teaching two classes in slots less
// than BreakMinutes apart. The first hour of a lab block is subtracted so the
// block itself stays legal.
func breakConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	constraints := []sat.Constraint{}

	for _, instructor := range c.instructors {
		for day := range c.days {
			for t := range c.slots() - 1 {
				if c.timeslots.Gaps[t] >= state.options.BreakMinutes {
					continue
				}
				current := state.index.byInstructorCell.get(resourceCell{instructor.Id, day, t})
				next := state.index.byInstructorCell.get(resourceCell{instructor.Id, day, t + 1})
				if len(current)+len(next) < 2 {
					continue
				}

				terms := make([]sat.Term, 0, len(current)+len(next))
				for _, v := range append(append([]sat.Var{}, current...), next...) {
					terms = append(terms, sat.Term{Lit: v.Lit(), Weight: 1})
				}
				for _, v := range current {
					if key, ok := state.index.Key(v); ok && state.tasks.first[key.Task] {
						terms = append(terms, sat.Term{Lit: v.Lit(), Weight: -1})
					}
				}
				constraints = append(constraints, sat.Linear(terms, sat.AtMost, 1))
			}
		}
	}
	return constraints
}

func labTimingConstraints(state constraintState) []sat.Constraint {
	c := state.catalog
	return forbidWhere(state, func(key VarKey) bool {
		if key.Task.Kind != Lab {
			return false
		}
		timing := c.labTiming(c.group(key.Task.Group), key.Task.Course)
		slot := c.timeslots.Slots[key.Slot]
		if !timing.AllowsHour(slot) {
			return true
		}
		return state.tasks.startsBlock(key.Task) && !timing.AllowsStart(slot)
	})
}

// labPerDayConstraints lets a group attend labs of at most one course per
// day. It needs an auxiliary "course active that day" indicator, so it runs
// after the concurrent families against the model itself.
func labPerDayConstraints(state constraintState, model *sat.Model) []sat.Constraint {
	c := state.catalog
	constraints := []sat.Constraint{}

	for _, group := range c.groups {
		labCourses := lo.Filter(c.enrolled[group.Id], func(course Course, _ int) bool { return course.LabHours > 0 })
		if len(labCourses) < 2 {
			continue
		}
		for day := range c.days {
			active := []sat.Lit{}
			for _, course := range labCourses {
				vars := state.index.labsByDay.get(courseDay{group.Id, course.Id, day})
				if len(vars) == 0 {
					continue
				}
				indicator := model.NewBoolVar()
				constraints = append(constraints, sat.MaxEquality(indicator, literals(vars))...)
				active = append(active, indicator.Lit())
			}
			if len(active) > 1 {
				constraints = append(constraints, sat.AtMostOne(active...))
			}
		}
	}
	return constraints
}
