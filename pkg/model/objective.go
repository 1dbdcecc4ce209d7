package model

import (
	"github.com/samber/lo"
	"github.com/timely/timetabling/pkg/sat"
)

// objectiveTerm adds one weighted soft penalty to the model. It reports
// false when its governing setting or preference is absent.
type objectiveTerm struct {
	name  string
	apply func(state constraintState, model *sat.Model) bool
}

var softConstraints = []objectiveTerm{
	{"early lab avoidance", earlyLabPenalty},
	{"student gaps", studentGapPenalty},
	{"fair workload", workloadPenalty},
	{"preferred morning courses", morningPenalty},
	{"preferred room", preferredRoomPenalty},
}

// composeObjective adds every enabled penalty and returns their names. When
// none is enabled the model stays a pure feasibility problem.
func composeObjective(state constraintState, model *sat.Model) []string {
	enabled := []string{}
	for _, term := range softConstraints {
		if term.apply(state, model) {
			enabled = append(enabled, term.name)
		}
	}
	return enabled
}

// penalize adds weight for every decision variable whose placement matches predicate.
func penalize(state constraintState, model *sat.Model, weight int, predicate func(key VarKey) bool) bool {
	if weight <= 0 {
		return false
	}
	terms := []sat.Term{}
	state.index.each(func(key VarKey, v sat.Var) {
		if predicate(key) {
			terms = append(terms, sat.Term{Lit: v.Lit(), Weight: weight})
		}
	})
	model.Minimize(terms...)
	return true
}

func earlyLabPenalty(state constraintState, model *sat.Model) bool {
	c := state.catalog
	if !c.settings.Disallow830Labs {
		return false
	}
	return penalize(state, model, state.options.EarlyLabWeight, func(key VarKey) bool {
		return key.Task.Kind == Lab && c.timeslots.Slots[key.Slot].Start == state.options.EarlyLabStart
	})
}

// studentGapPenalty charges, per group and day, the idle slots between the
// first and last occupied slot: (max - min + 1) - occupied. The span is
// order-encoded: before[t] holds iff min <= t and after[t] iff max >= t, so an
// idle slot inside the span is one with before, after and not occupied.
func studentGapPenalty(state constraintState, model *sat.Model) bool {
	c := state.catalog
	weight := int(c.settings.GapPriority * state.options.GapPriorityScale)
	if weight <= 0 {
		return false
	}

	slots := c.slots()
	if slots < 3 {
		return true
	}
	for _, group := range c.groups {
		for day := range c.days {
			cells := make([][]sat.Var, slots)
			for t := range slots {
				cells[t] = state.index.byGroupCell.get(resourceCell{group.Id, day, t})
			}
			if lo.EveryBy(cells, func(vars []sat.Var) bool { return len(vars) == 0 }) {
				continue
			}

			occupied := model.NewBoolVars(slots)
			before := model.NewBoolVars(slots)
			after := model.NewBoolVars(slots)
			for t := range slots {
				model.Add(sat.MaxEquality(occupied[t], literals(cells[t]))...)
				model.Add(sat.Clause(before[t].Lit(), occupied[t].Not()))
				model.Add(sat.Clause(after[t].Lit(), occupied[t].Not()))
				if t > 0 {
					model.Add(sat.Clause(before[t].Lit(), before[t-1].Not()))
				}
				if t < slots-1 {
					model.Add(sat.Clause(after[t].Lit(), after[t+1].Not()))
				}
			}
			for t := 1; t < slots-1; t++ {
				idle := model.NewBoolVar()
				model.Add(sat.Clause(before[t].Not(), after[t].Not(), occupied[t].Lit(), idle.Lit()))
				model.Minimize(sat.Term{Lit: idle.Lit(), Weight: weight})
			}
		}
	}
	return true
}

// workloadPenalty charges the spread between the busiest and the least busy
// instructor.
func workloadPenalty(state constraintState, model *sat.Model) bool {
	c := state.catalog
	weight := state.options.WorkloadWeight
	if !c.settings.FairWorkload || weight <= 0 || len(c.instructors) == 0 {
		return false
	}

	total := len(state.tasks.tasks)
	highest, lowest := model.NewIntVar(0, total), model.NewIntVar(0, total)
	for _, instructor := range c.instructors {
		load := []sat.Term{}
		for day := range c.days {
			for _, v := range state.index.byInstructorDay.get(resourceDay{instructor.Id, day}) {
				load = append(load, sat.Term{Lit: v.Lit(), Weight: 1})
			}
		}
		// highest >= load
		model.Add(sat.Linear(append(highest.Terms(1), negate(load)...), sat.AtLeast, 0))
		// lowest <= load
		model.Add(sat.Linear(append(lowest.Terms(-1), load...), sat.AtLeast, 0))
	}
	model.Minimize(highest.Terms(weight)...)
	model.Minimize(lowest.Terms(-weight)...)
	return true
}

func negate(terms []sat.Term) []sat.Term {
	return lo.Map(terms, func(term sat.Term, _ int) sat.Term {
		return sat.Term{Lit: term.Lit, Weight: -term.Weight}
	})
}

func morningPenalty(state constraintState, model *sat.Model) bool {
	c := state.catalog
	preferred := lo.Keyify(c.settings.PreferredMorningCourses)
	if len(preferred) == 0 {
		return false
	}
	return penalize(state, model, state.options.MorningWeight, func(key VarKey) bool {
		_, listed := preferred[key.Task.Course]
		return listed && !c.timeslots.Slots[key.Slot].Morning()
	})
}

func preferredRoomPenalty(state constraintState, model *sat.Model) bool {
	c := state.catalog
	if !lo.SomeBy(c.groups, func(group StudentGroup) bool { return c.hasRoom(group.PreferredRoomId) }) {
		return false
	}
	return penalize(state, model, state.options.PreferredRoomWeight, func(key VarKey) bool {
		preferred := c.group(key.Task.Group).PreferredRoomId
		return c.hasRoom(preferred) && key.Room != preferred
	})
}
