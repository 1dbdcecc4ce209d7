package model

import (
	"cmp"
	"slices"

	"github.com/timely/timetabling/pkg/sat"
)

// Assignment is one placed session hour.
type Assignment struct {
	Task       TaskID
	Instructor string
	Room       string
	Day        int
	Slot       int
}

// Record is the client-facing form of an assignment.
type Record struct {
	Day        string `json:"day" csv:"day"`
	Timeslot   string `json:"timeslot" csv:"timeslot"`
	CourseId   string `json:"courseId" csv:"course_id"`
	Course     string `json:"course" csv:"course"`
	Instructor string `json:"instructor" csv:"instructor"`
	Room       string `json:"room" csv:"room"`
	Group      string `json:"group" csv:"group"`
	Type       string `json:"type" csv:"type"`
}

// extract collects the placements whose decision variable is true, ordered
// by day, slot, group and course.
func extract(solution sat.Solution, index *indexer) []Assignment {
	assignments := []Assignment{}
	index.each(func(key VarKey, v sat.Var) {
		if solution.Value(v) {
			assignments = append(assignments, Assignment{
				Task:       key.Task,
				Instructor: key.Instructor,
				Room:       key.Room,
				Day:        key.Day,
				Slot:       key.Slot,
			})
		}
	})
	sortAssignments(assignments)
	return assignments
}

func sortAssignments(assignments []Assignment) {
	slices.SortFunc(assignments, func(a, b Assignment) int {
		return cmp.Or(
			cmp.Compare(a.Day, b.Day),
			cmp.Compare(a.Slot, b.Slot),
			cmp.Compare(a.Task.Group, b.Task.Group),
			cmp.Compare(a.Task.Course, b.Task.Course),
			cmp.Compare(a.Task.Kind, b.Task.Kind),
			cmp.Compare(a.Task.Index, b.Task.Index),
		)
	})
}

func records(c *catalog, assignments []Assignment) []Record {
	result := make([]Record, 0, len(assignments))
	for _, assignment := range assignments {
		course := c.courseById[assignment.Task.Course]
		instructor := c.instructorById[assignment.Instructor]
		result = append(result, Record{
			Day:        c.days[assignment.Day],
			Timeslot:   c.timeslots.Slots[assignment.Slot].Label,
			CourseId:   course.Id,
			Course:     cmp.Or(course.Name, course.Id),
			Instructor: cmp.Or(instructor.Name, instructor.Id),
			Room:       assignment.Room,
			Group:      assignment.Task.Group,
			Type:       assignment.Task.Kind.String(),
		})
	}
	return result
}
