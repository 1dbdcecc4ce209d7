package sat

import (
	"fmt"
	"sync"
)

// Var is a boolean decision variable. Variables are numbered from 1.
type Var int

// Lit is a literal: a positive value stands for the variable itself and a
// negative value for its negation.
type Lit int

func (v Var) Lit() Lit { return Lit(v) }

func (v Var) Not() Lit { return Lit(-v) }

func (l Lit) Var() Var {
	if l < 0 {
		return Var(-l)
	}
	return Var(l)
}

func (l Lit) Not() Lit { return -l }

func (l Lit) Positive() bool { return l > 0 }

type Term struct {
	Lit    Lit
	Weight int
}

type Operator int

const (
	AtLeast Operator = iota
	AtMost
	Equal
)

func (op Operator) String() string {
	switch op {
	case AtLeast:
		return ">="
	case AtMost:
		return "<="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Operator(%d)", int(op))
	}
}

// Constraint is a linear pseudo-boolean assertion: Σ weight·lit (op) bound.
type Constraint struct {
	Terms []Term
	Op    Operator
	Bound int
}

// Model holds the variables, constraints and objective of a single solve.
// Variable allocation is safe for concurrent use; constraints are usually
// produced by pure functions and appended with Add.
type Model struct {
	mu          sync.Mutex
	variables   int
	constraints []Constraint
	objective   []Term
	hints       []Var
}

func NewModel() *Model {
	return &Model{}
}

func (m *Model) NewBoolVar() Var {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variables++
	return Var(m.variables)
}

func (m *Model) NewBoolVars(n int) []Var {
	vars := make([]Var, n)
	for i := range vars {
		vars[i] = m.NewBoolVar()
	}
	return vars
}

// IntVar is an order-encoded integer: its value is Min plus the number of
// true bits, and bits[k] implies bits[k-1].
type IntVar struct {
	Min  int
	bits []Var
}

func (m *Model) NewIntVar(min, max int) IntVar {
	if max < min {
		panic(fmt.Sprintf("invalid integer domain [%d, %d]", min, max))
	}
	intVar := IntVar{Min: min, bits: m.NewBoolVars(max - min)}
	for k := 1; k < len(intVar.bits); k++ {
		m.Add(Clause(intVar.bits[k-1].Lit(), intVar.bits[k].Not()))
	}
	return intVar
}

func (v IntVar) Max() int { return v.Min + len(v.bits) }

// Terms returns the variable part of weight·v; the constant weight·Min is left out.
func (v IntVar) Terms(weight int) []Term {
	terms := make([]Term, len(v.bits))
	for i, bit := range v.bits {
		terms[i] = Term{Lit: bit.Lit(), Weight: weight}
	}
	return terms
}

func (v IntVar) Value(solution Solution) int {
	value := v.Min
	for _, bit := range v.bits {
		if solution.Value(bit) {
			value++
		}
	}
	return value
}

func (m *Model) Add(constraints ...Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = append(m.constraints, constraints...)
}

// Minimize adds terms to the objective.
func (m *Model) Minimize(terms ...Term) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, term := range terms {
		if term.Weight != 0 {
			m.objective = append(m.objective, term)
		}
	}
}

// AddDecisionHint asks the engine to branch on vars before the rest, in the given order.
func (m *Model) AddDecisionHint(vars ...Var) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints = append(m.hints, vars...)
}

func (m *Model) Variables() int { return m.variables }

func (m *Model) Constraints() []Constraint { return m.constraints }

func (m *Model) Objective() []Term { return m.objective }

func (m *Model) Hints() []Var { return m.hints }

func (m *Model) HasObjective() bool { return len(m.objective) > 0 }

// Evaluate computes the objective value under the given assignment.
func (m *Model) Evaluate(value func(Var) bool) int {
	total := 0
	for _, term := range m.objective {
		if value(term.Lit.Var()) == term.Lit.Positive() {
			total += term.Weight
		}
	}
	return total
}

// Satisfied reports whether every constraint holds under the given assignment.
func (m *Model) Satisfied(value func(Var) bool) bool {
	for _, constraint := range m.constraints {
		sum := 0
		for _, term := range constraint.Terms {
			if value(term.Lit.Var()) == term.Lit.Positive() {
				sum += term.Weight
			}
		}
		switch constraint.Op {
		case AtLeast:
			if sum < constraint.Bound {
				return false
			}
		case AtMost:
			if sum > constraint.Bound {
				return false
			}
		case Equal:
			if sum != constraint.Bound {
				return false
			}
		}
	}
	return true
}

//** Constraint constructors

func Linear(terms []Term, op Operator, bound int) Constraint {
	return Constraint{Terms: terms, Op: op, Bound: bound}
}

func unitTerms(lits []Lit) []Term {
	terms := make([]Term, len(lits))
	for i, lit := range lits {
		terms[i] = Term{Lit: lit, Weight: 1}
	}
	return terms
}

// Fix forces lit to be true.
func Fix(lit Lit) Constraint {
	return Linear([]Term{{Lit: lit, Weight: 1}}, AtLeast, 1)
}

// Forbid forces v to be false.
func Forbid(v Var) Constraint {
	return Fix(v.Not())
}

// Clause requires at least one of lits to be true.
func Clause(lits ...Lit) Constraint {
	return Linear(unitTerms(lits), AtLeast, 1)
}

func AtMostOne(lits ...Lit) Constraint {
	return Linear(unitTerms(lits), AtMost, 1)
}

func ExactlyOne(lits ...Lit) Constraint {
	return Linear(unitTerms(lits), Equal, 1)
}

// Equivalent forces a and b to take the same value.
func Equivalent(a, b Lit) Constraint {
	return Linear([]Term{{Lit: a, Weight: 1}, {Lit: b, Weight: -1}}, Equal, 0)
}

// MaxEquality forces target to be the maximum (logical or) of lits.
func MaxEquality(target Var, lits []Lit) []Constraint {
	constraints := make([]Constraint, 0, len(lits)+1)
	for _, lit := range lits {
		constraints = append(constraints, Clause(target.Lit(), lit.Not()))
	}
	terms := append(unitTerms(lits), Term{Lit: target.Lit(), Weight: -1})
	return append(constraints, Linear(terms, AtLeast, 0))
}
