package sat

import (
	"context"
	"fmt"
	"strings"
)

type Status int

const (
	Unknown Status = iota
	Optimal
	Feasible
	Infeasible
)

var statusNames = map[Status]string{
	Unknown:    "UNKNOWN",
	Optimal:    "OPTIMAL",
	Feasible:   "FEASIBLE",
	Infeasible: "INFEASIBLE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Solution is the outcome of a solve. values is indexed by Var (index 0 is unused).
type Solution struct {
	Status    Status
	Objective int
	values    []bool
	done      <-chan struct{}
}

var settled = func() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}()

func NewSolution(status Status, values []bool, objective int) Solution {
	return Solution{Status: status, Objective: objective, values: values}
}

// Done is closed once the engine has stopped working on the model. A solve
// cut short by its deadline may return before the engine does.
func (s Solution) Done() <-chan struct{} {
	if s.done == nil {
		return settled
	}
	return s.done
}

func (s Solution) Found() bool {
	return s.Status == Optimal || s.Status == Feasible
}

func (s Solution) Value(v Var) bool {
	if int(v) <= 0 || int(v) >= len(s.values) {
		return false
	}
	return s.values[v]
}

func (s Solution) LitValue(l Lit) bool {
	return s.Value(l.Var()) == l.Positive()
}

// Solver solves a model within the deadline carried by ctx. Exhausting the
// deadline is not an error: the solution reports Feasible when an assignment
// was found and Unknown otherwise.
type Solver interface {
	Solve(ctx context.Context, model *Model) (Solution, error)
}

var engines = map[string]func(path string) Solver{
	"gophersat": func(string) Solver { return NewGophersatSolver() },
	"external":  func(path string) Solver { return NewExternalSolver(path) },
}

// NewSolver returns the engine registered under name. path is only used by
// engines backed by an executable.
func NewSolver(name, path string) (Solver, error) {
	constructor, ok := engines[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown solver engine %q", name)
	}
	if strings.EqualFold(name, "external") && path == "" {
		return nil, fmt.Errorf("solver engine %q requires an executable path", name)
	}
	return constructor(path), nil
}
