package model

import "github.com/timely/timetabling/pkg/sat"

// VarKey identifies a decision variable: task placed with instructor in
// room at (day, slot). Day and Slot are indexes into the request's lists.
type VarKey struct {
	Task       TaskID
	Instructor string
	Room       string
	Day        int
	Slot       int
}

type resourceCell struct {
	id   string
	day  int
	slot int
}

type resourceDay struct {
	id  string
	day int
}

type courseDay struct {
	group  string
	course string
	day    int
}

// grouping keeps variables bucketed by key, remembering insertion order so
// constraint emission is deterministic.
type grouping[K comparable] struct {
	keys []K
	vars map[K][]sat.Var
}

func newGrouping[K comparable]() *grouping[K] {
	return &grouping[K]{vars: make(map[K][]sat.Var)}
}

func (g *grouping[K]) add(key K, v sat.Var) {
	if _, ok := g.vars[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.vars[key] = append(g.vars[key], v)
}

func (g *grouping[K]) get(key K) []sat.Var {
	return g.vars[key]
}

func (g *grouping[K]) each(fn func(key K, vars []sat.Var)) {
	for _, key := range g.keys {
		fn(key, g.vars[key])
	}
}

// indexer owns the decision variables of a build and every lookup the
// constraint families need, so no family rescans the full variable space.
type indexer struct {
	keys []VarKey // keys[i] belongs to variable first+i
	vars map[VarKey]sat.Var

	first sat.Var

	byTask           *grouping[TaskID]
	byInstructorCell *grouping[resourceCell]
	byRoomCell       *grouping[resourceCell]
	byGroupCell      *grouping[resourceCell]
	byInstructorDay  *grouping[resourceDay]
	lecturesByDay    *grouping[courseDay]
	labsByDay        *grouping[courseDay]
}

func newIndexer() *indexer {
	return &indexer{
		vars:             make(map[VarKey]sat.Var),
		byTask:           newGrouping[TaskID](),
		byInstructorCell: newGrouping[resourceCell](),
		byRoomCell:       newGrouping[resourceCell](),
		byGroupCell:      newGrouping[resourceCell](),
		byInstructorDay:  newGrouping[resourceDay](),
		lecturesByDay:    newGrouping[courseDay](),
		labsByDay:        newGrouping[courseDay](),
	}
}

// allocate creates one variable per (task, eligible instructor, room, day,
// slot). Lab tasks come first and are hinted to the engine.
func (index *indexer) allocate(model *sat.Model, c *catalog, tasks taskSet) {
	ordered := append(tasks.labs(), lectures(tasks.tasks)...)
	for _, task := range ordered {
		for _, instructor := range c.eligible(task.Group, task.Course) {
			for _, room := range c.rooms {
				for day := range c.days {
					for slot := range c.slots() {
						key := VarKey{Task: task, Instructor: instructor, Room: room.Id, Day: day, Slot: slot}
						v := model.NewBoolVar()
						if index.first == 0 {
							index.first = v
						}
						index.register(key, v)
						if task.Kind == Lab {
							model.AddDecisionHint(v)
						}
					}
				}
			}
		}
	}
}

func lectures(tasks []TaskID) []TaskID {
	result := []TaskID{}
	for _, task := range tasks {
		if task.Kind == Lecture {
			result = append(result, task)
		}
	}
	return result
}

func (index *indexer) register(key VarKey, v sat.Var) {
	index.keys = append(index.keys, key)
	index.vars[key] = v

	index.byTask.add(key.Task, v)
	index.byInstructorCell.add(resourceCell{key.Instructor, key.Day, key.Slot}, v)
	index.byRoomCell.add(resourceCell{key.Room, key.Day, key.Slot}, v)
	index.byGroupCell.add(resourceCell{key.Task.Group, key.Day, key.Slot}, v)
	index.byInstructorDay.add(resourceDay{key.Instructor, key.Day}, v)

	day := courseDay{key.Task.Group, key.Task.Course, key.Day}
	if key.Task.Kind == Lecture {
		index.lecturesByDay.add(day, v)
	} else {
		index.labsByDay.add(day, v)
	}
}

func (index *indexer) Var(key VarKey) (sat.Var, bool) {
	v, ok := index.vars[key]
	return v, ok
}

// Key returns the placement a decision variable stands for; auxiliary
// variables have no key.
func (index *indexer) Key(v sat.Var) (VarKey, bool) {
	i := int(v - index.first)
	if index.first == 0 || i < 0 || i >= len(index.keys) {
		return VarKey{}, false
	}
	return index.keys[i], true
}

func (index *indexer) each(fn func(key VarKey, v sat.Var)) {
	for i, key := range index.keys {
		fn(key, index.first+sat.Var(i))
	}
}

func (index *indexer) size() int {
	return len(index.keys)
}
