package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timely/timetabling/pkg/sat"
	"go.uber.org/zap"
)

const noSolutionMessage = "No solution found for the given constraints."

type Timetabler interface {
	Build(ctx context.Context, request Request) (Result, error)
	Verify(assignments []Assignment, request Request) error
}

// Result is the outcome of a build. Trail is filled on every path, including
// failed ones. Stage is the last stage the build entered; Status is only
// meaningful once it reached StageSolve.
type Result struct {
	Stage       Stage
	Status      sat.Status
	Assignments []Assignment
	Schedule    []Record
	Trail       []string

	Variables   int
	Constraints int
	Objective   int

	// Done is closed once the solver engine has stopped working on this
	// build. It is nil when no engine ran.
	Done <-chan struct{}
}

type timetabler struct {
	solver  sat.Solver
	options Options
	logger  *zap.Logger
}

func NewTimetabler(solver sat.Solver, options Options, logger *zap.Logger) Timetabler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &timetabler{
		solver:  solver,
		options: options,
		logger:  logger,
	}
}

func (timetabler *timetabler) Build(ctx context.Context, request Request) (result Result, err error) {
	trail := newTrail()
	defer func() {
		if r := recover(); r != nil {
			timetabler.logger.Error("timetable build panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		result.Trail = trail.Messages()
	}()

	//** Normalize timeslots
	timeslots, warnings, err := NormalizeTimeslots(request.Timeslots, timetabler.options.StrictTimeslots)
	if err != nil {
		return result, fmt.Errorf("cannot normalize timeslots: %w", err)
	}
	for _, warning := range warnings {
		trail.Warnf("%s", warning)
	}

	//** Index the request and reject infeasible ones early
	result.Stage = StagePrecheck
	catalog := newCatalog(request, timeslots, trail)
	if err := prevalidate(catalog, timetabler.options); err != nil {
		return result, err
	}
	result.Stage = StageSolve

	//** Generate tasks
	tasks := generateTasks(catalog)
	if len(tasks.tasks) == 0 {
		trail.Infof("no sessions to schedule")
		result.Status = sat.Optimal
		result.Assignments, result.Schedule = []Assignment{}, []Record{}
		return result, nil
	}

	//** Build model
	start := time.Now()
	model := sat.NewModel()
	index := newIndexer()
	index.allocate(model, catalog, tasks)

	state := constraintState{
		catalog: catalog,
		tasks:   tasks,
		index:   index,
		options: timetabler.options,
	}
	if err := buildModel(model, hardConstraints, state); err != nil {
		return result, err
	}
	model.Add(labPerDayConstraints(state, model)...)
	if terms := composeObjective(state, model); len(terms) > 0 {
		trail.Infof("objective terms: %s", strings.Join(terms, ", "))
	}

	result.Variables, result.Constraints = model.Variables(), len(model.Constraints())
	timetabler.logger.Debug("model built",
		zap.Int("tasks", len(tasks.tasks)),
		zap.Int("decisionVariables", index.size()),
		zap.Int("variables", result.Variables),
		zap.Int("constraints", result.Constraints),
		zap.Duration("elapsed", time.Since(start)),
	)

	//** Solve model
	start = time.Now()
	solution, err := timetabler.solver.Solve(ctx, model)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	result.Status, result.Done = solution.Status, solution.Done()
	timetabler.logger.Debug("model solved",
		zap.Stringer("status", solution.Status),
		zap.Int("objective", solution.Objective),
		zap.Duration("elapsed", time.Since(start)),
	)

	if !solution.Found() {
		message := noSolutionMessage
		if solution.Status == sat.Unknown {
			message += " The solver time limit was reached before any schedule was found."
		}
		return result, &InfeasibleError{
			Stage:   StageSolve,
			Status:  solution.Status,
			Message: message,
			Hints:   diagnose(catalog, tasks, timetabler.options),
		}
	}
	if solution.Status == sat.Feasible {
		trail.Infof("the time limit was reached; the schedule is feasible but may not be optimal")
	}
	result.Objective = solution.Objective

	//** Extract and verify the schedule
	assignments := extract(solution, index)
	if err := verify(catalog, tasks, assignments, timetabler.options); err != nil {
		return result, fmt.Errorf("%w: solver returned an invalid schedule: %w", ErrInternal, err)
	}
	result.Assignments = assignments
	result.Schedule = records(catalog, assignments)
	return result, nil
}

func (timetabler *timetabler) Verify(assignments []Assignment, request Request) error {
	timeslots, _, err := NormalizeTimeslots(request.Timeslots, timetabler.options.StrictTimeslots)
	if err != nil {
		return err
	}
	catalog := newCatalog(request, timeslots, newTrail())
	return verify(catalog, generateTasks(catalog), assignments, timetabler.options)
}
