package sat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/crillab/gophersat/solver"
	"github.com/samber/lo"
)

type gophersatSolver struct{}

// NewGophersatSolver returns an in-process pseudo-boolean engine. Every call
// to Solve builds fresh engine state, so the solver may be shared between
// goroutines.
func NewGophersatSolver() Solver {
	return &gophersatSolver{}
}

// Solve minimizes the model with gophersat's own optimizer, which tightens
// the cost bound on a single engine and reports every improving model.
// The engine cannot be interrupted: when ctx ends first, the best model so
// far is returned and Solution.Done is closed once the search really stops.
func (engine *gophersatSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	problem, err := compile(model)
	if errors.Is(err, errTriviallyUnsat) {
		return NewSolution(Infeasible, nil, 0), nil
	} else if err != nil {
		return Solution{}, err
	}

	if len(problem.constraints) == 0 {
		values := problem.values(nil)
		return NewSolution(Optimal, values, model.Evaluate(valueOf(values))), nil
	}
	if ctx.Err() != nil {
		return NewSolution(Unknown, nil, 0), nil
	}

	pb := solver.ParsePBConstrs(lo.Map(problem.constraints, func(part normalized, _ int) solver.PBConstr {
		return toPBConstr(part)
	}))
	if len(problem.cost.lits) > 0 {
		pb.SetCostFunc(toLits(problem.cost.lits), slices.Clone(problem.cost.weights))
	}

	results := make(chan solver.Result)
	done := make(chan struct{})
	var failure error
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				failure = fmt.Errorf("gophersat failed: %v", r)
			}
		}()
		solver.New(pb).Optimal(results, nil)
	}()

	var best []bool
	for {
		select {
		case result, ok := <-results:
			if !ok {
				<-done
				if failure != nil {
					return Solution{}, failure
				}
				if best == nil {
					return NewSolution(Infeasible, nil, 0), nil
				}
				return engine.finish(model, problem, best, Optimal), nil
			}
			if result.Status == solver.Sat {
				best = result.Model
			}
		case <-ctx.Done():
			// Drain the remaining models so the engine can run to completion
			go func() {
				for range results {
				}
			}()
			solution := NewSolution(Unknown, nil, 0)
			if best != nil {
				solution = engine.finish(model, problem, best, Feasible)
			}
			solution.done = done
			return solution, nil
		}
	}
}

func (engine *gophersatSolver) finish(model *Model, problem *compiled, engineModel []bool, status Status) Solution {
	values := problem.values(engineModel)
	return NewSolution(status, values, model.Evaluate(valueOf(values)))
}

func toPBConstr(part normalized) solver.PBConstr {
	return solver.PBConstr{
		Lits:    lo.Map(part.lits, func(lit Lit, _ int) int { return int(lit) }),
		Weights: slices.Clone(part.weights),
		AtLeast: part.bound,
	}
}

func toLits(lits []Lit) []solver.Lit {
	return lo.Map(lits, func(lit Lit, _ int) solver.Lit { return solver.IntToLit(int32(lit)) })
}

func valueOf(values []bool) func(Var) bool {
	return func(v Var) bool {
		return int(v) < len(values) && values[v]
	}
}
