package model

import "fmt"

type TaskKind int

const (
	Lecture TaskKind = iota
	Lab
)

func (kind TaskKind) String() string {
	if kind == Lab {
		return "lab"
	}
	return "lecture"
}

// TaskID identifies one required session hour.
type TaskID struct {
	Group  string
	Course string
	Kind   TaskKind
	Index  int
}

func (id TaskID) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", id.Group, id.Course, id.Kind, id.Index)
}

// LabPair links the two hours of a lab block: hours 2i and 2i+1.
type LabPair struct {
	First  TaskID
	Second TaskID
}

type taskSet struct {
	tasks  []TaskID
	pairs  []LabPair
	first  map[TaskID]bool // paired first hours
	second map[TaskID]bool // paired second hours
}

func (ts taskSet) labs() []TaskID {
	labs := []TaskID{}
	for _, task := range ts.tasks {
		if task.Kind == Lab {
			labs = append(labs, task)
		}
	}
	return labs
}

// startsBlock reports whether a lab task opens a block: a paired first hour
// or a trailing unpaired hour.
func (ts taskSet) startsBlock(task TaskID) bool {
	return task.Kind == Lab && !ts.second[task]
}

func generateTasks(c *catalog) taskSet {
	set := taskSet{
		tasks:  []TaskID{},
		pairs:  []LabPair{},
		first:  make(map[TaskID]bool),
		second: make(map[TaskID]bool),
	}

	for _, group := range c.groups {
		for _, course := range c.enrolled[group.Id] {
			for i := range course.LectureHours {
				set.tasks = append(set.tasks, TaskID{Group: group.Id, Course: course.Id, Kind: Lecture, Index: i})
			}
			for i := range course.LabHours {
				task := TaskID{Group: group.Id, Course: course.Id, Kind: Lab, Index: i}
				set.tasks = append(set.tasks, task)
				if i%2 == 1 {
					first := TaskID{Group: group.Id, Course: course.Id, Kind: Lab, Index: i - 1}
					set.pairs = append(set.pairs, LabPair{First: first, Second: task})
					set.first[first] = true
					set.second[task] = true
				}
			}
		}
	}
	return set
}
