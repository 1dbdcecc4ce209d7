package model

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// verify re-checks a schedule against every hard rule independently of the
// model that produced it.
func verify(c *catalog, tasks taskSet, assignments []Assignment, options Options) error {
	known := lo.Keyify(tasks.tasks)
	slots := c.slots()

	placed := make(map[TaskID]Assignment)
	instructorAssistance := make(map[resourceCell]TaskID)
	roomAssistance := make(map[resourceCell]bool)
	groupAssistance := make(map[resourceCell]bool)
	lectureTaught := make(map[courseDay]bool)
	labCourse := make(map[resourceDay]string)

	for _, assignment := range assignments {
		task := assignment.Task
		if _, ok := known[task]; !ok {
			return fmt.Errorf("task %v is not required by the request", task)
		} else if _, ok := placed[task]; ok {
			return fmt.Errorf("task %v is placed more than once", task)
		}
		if assignment.Day < 0 || assignment.Day >= len(c.days) || assignment.Slot < 0 || assignment.Slot >= slots {
			return fmt.Errorf("task %v is placed outside the week (day %d, slot %d)", task, assignment.Day, assignment.Slot)
		}
		room, ok := c.roomById[assignment.Room]
		if !ok {
			return fmt.Errorf("task %v is placed in unknown room %q", task, assignment.Room)
		}

		group, course := c.group(task.Group), c.courseById[task.Course]
		instructor := c.instructorById[assignment.Instructor]
		day, slot := c.days[assignment.Day], c.timeslots.Slots[assignment.Slot]
		timing := c.labTiming(group, task.Course)

		instructorCell := resourceCell{assignment.Instructor, assignment.Day, assignment.Slot}
		roomCell := resourceCell{room.Id, assignment.Day, assignment.Slot}
		groupCell := resourceCell{group.Id, assignment.Day, assignment.Slot}
		courseCell := courseDay{group.Id, course.Id, assignment.Day}
		groupDay := resourceDay{group.Id, assignment.Day}
		_, instructorBusy := instructorAssistance[instructorCell]

		// Check that:
		// - Instructor is eligible for the course and group
		// - Instructor, room and group are available in the day and slot
		// - Instructor, room and group are not already busy in the day and slot
		// - Room holds the group and carries the required equipment
		// - Room type matches the session type, and pinned lab rooms are honored
		// - A lecture of a multi-lecture course is given at most once a day
		// - A lab hour respects the timing preference
		// - A group attends labs of at most one course a day
		switch {
		case !slices.Contains(c.eligible(group.Id, course.Id), assignment.Instructor):
			return fmt.Errorf("task %v is taught by ineligible instructor %q", task, assignment.Instructor)
		case !instructor.Availability.Available(day, assignment.Slot),
			!room.Availability.Available(day, assignment.Slot),
			!group.Availability.Available(day, assignment.Slot):
			return fmt.Errorf("task %v is placed at an unavailable time (%s %s)", task, day, slot.Label)
		case instructorBusy:
			return fmt.Errorf("instructor %s is double-booked on %s %s", assignment.Instructor, day, slot.Label)
		case roomAssistance[roomCell]:
			return fmt.Errorf("room %s is double-booked on %s %s", room.Id, day, slot.Label)
		case groupAssistance[groupCell]:
			return fmt.Errorf("group %s is double-booked on %s %s", group.Id, day, slot.Label)
		case room.Capacity < group.Size:
			return fmt.Errorf("task %v does not fit in room %s", task, room.Id)
		case !hasEquipment(room, course.Equipment):
			return fmt.Errorf("room %s lacks equipment for task %v", room.Id, task)
		case task.Kind == Lab && !labRoomMatches(course.LabType, room.Type),
			task.Kind == Lecture && isLabRoom(room.Type):
			return fmt.Errorf("task %v is placed in room %s of the wrong type %q", task, room.Id, room.Type)
		case task.Kind == Lab && group.LabRoomPreferences[course.Id] != "" && group.LabRoomPreferences[course.Id] != room.Id:
			return fmt.Errorf("task %v is not placed in its pinned lab room", task)
		case task.Kind == Lecture && course.LectureHours > 1 && lectureTaught[courseCell]:
			return fmt.Errorf("course %s is lectured to group %s twice on %s", course.Id, group.Id, day)
		case task.Kind == Lab && (!timing.AllowsHour(slot) || tasks.startsBlock(task) && !timing.AllowsStart(slot)):
			return fmt.Errorf("task %v violates its lab timing preference %q", task, timing.String())
		case task.Kind == Lab && labCourse[groupDay] != "" && labCourse[groupDay] != course.Id:
			return fmt.Errorf("group %s attends labs of two courses on %s", group.Id, day)
		}

		placed[task] = assignment
		instructorAssistance[instructorCell] = task
		roomAssistance[roomCell] = true
		groupAssistance[groupCell] = true
		if task.Kind == Lecture {
			lectureTaught[courseCell] = true
		} else {
			labCourse[groupDay] = course.Id
		}
	}

	// Check whether every required task is placed
	if len(placed) != len(tasks.tasks) {
		return fmt.Errorf("%d of %d tasks are placed", len(placed), len(tasks.tasks))
	}

	//** Lab contiguity
	for _, pair := range tasks.pairs {
		first, second := placed[pair.First], placed[pair.Second]
		if second.Day != first.Day || second.Slot != first.Slot+1 || !c.timeslots.Contiguous(first.Slot) {
			return fmt.Errorf("lab block %v is not placed in back-to-back slots", pair.First)
		} else if second.Instructor != first.Instructor || second.Room != first.Room {
			return fmt.Errorf("lab block %v changes instructor or room between its hours", pair.First)
		}
	}

	//** Instructor breaks
	for _, assignment := range assignments {
		if assignment.Slot+1 >= slots || c.timeslots.Gaps[assignment.Slot] >= options.BreakMinutes {
			continue
		}
		next, ok := instructorAssistance[resourceCell{assignment.Instructor, assignment.Day, assignment.Slot + 1}]
		if !ok {
			continue
		}
		continuation := tasks.first[assignment.Task] && next == TaskID{
			Group:  assignment.Task.Group,
			Course: assignment.Task.Course,
			Kind:   Lab,
			Index:  assignment.Task.Index + 1,
		}
		if !continuation {
			return fmt.Errorf("instructor %s has no break between %v and %v", assignment.Instructor, assignment.Task, next)
		}
	}

	return nil
}
