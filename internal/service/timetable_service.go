package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timely/timetabling/internal/config"
	appErrors "github.com/timely/timetabling/pkg/errors"
	"github.com/timely/timetabling/pkg/model"
)

const (
	statusPrecheck = "PRECHECK_FAILED"
	statusInvalid  = "INVALID"
	statusError    = "ERROR"
)

type solveObserver interface {
	ObserveSolve(status string, duration time.Duration, variables int)
}

// TimetableService validates requests and runs timetable builds within a
// time budget, with a bounded number of builds in flight.
type TimetableService struct {
	timetabler model.Timetabler
	validator  *validator.Validate
	metrics    solveObserver
	logger     *zap.Logger
	budget     time.Duration
	slots      chan struct{}
}

// NewTimetableService constructs the service.
func NewTimetableService(timetabler model.Timetabler, validate *validator.Validate, metrics solveObserver, cfg config.SolverConfig, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxConcurrent := max(cfg.MaxConcurrent, 1)
	return &TimetableService{
		timetabler: timetabler,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		budget:     cfg.TimeBudget,
		slots:      make(chan struct{}, maxConcurrent),
	}
}

// Generate builds the timetable of request. Failures are returned as
// *appErrors.Error carrying the hints and the build trail.
func (s *TimetableService) Generate(ctx context.Context, request model.Request) (model.Result, error) {
	if err := s.validator.Struct(request); err != nil {
		return model.Result{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable request: "+err.Error())
	}

	//** Wait for a free solver slot
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return model.Result{}, appErrors.Clone(appErrors.ErrSolverBusy, "")
	}
	var engineDone <-chan struct{}
	defer func() { s.release(engineDone) }()

	if s.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.budget)
		defer cancel()
	}

	start := time.Now()
	result, err := s.timetabler.Build(ctx, request)
	duration := time.Since(start)
	engineDone = result.Done

	for _, message := range result.Trail {
		s.logger.Debug("timetable trail", zap.String("message", message))
	}

	if err != nil {
		appErr, status := s.classify(err, result)
		s.observe(status, duration, result.Variables)
		return result, appErr
	}

	s.observe(result.Status.String(), duration, result.Variables)
	s.logger.Info("timetable generated",
		zap.Stringer("status", result.Status),
		zap.Int("sessions", len(result.Schedule)),
		zap.Int("variables", result.Variables),
		zap.Int("constraints", result.Constraints),
		zap.Int("objective", result.Objective),
		zap.Duration("elapsed", duration),
	)
	return result, nil
}

// classify maps a build error to its application error and metrics label.
func (s *TimetableService) classify(err error, result model.Result) (*appErrors.Error, string) {
	var infeasible *model.InfeasibleError
	switch {
	case errors.As(err, &infeasible):
		details := appErrors.Details{Hints: infeasible.Hints, Diagnostics: result.Trail}
		s.logger.Info("timetable infeasible",
			zap.String("stage", string(infeasible.Stage)),
			zap.String("message", infeasible.Message),
			zap.Strings("hints", infeasible.Hints),
		)
		if infeasible.Stage == model.StagePrecheck {
			return appErrors.WithDetails(appErrors.ErrInfeasible, infeasible.Message, err, details), statusPrecheck
		}
		return appErrors.WithDetails(appErrors.ErrNoSolution, infeasible.Message, err, details), infeasible.Status.String()
	case errors.Is(err, model.ErrMalformedTimeslot):
		details := appErrors.Details{Diagnostics: result.Trail}
		return appErrors.WithDetails(appErrors.ErrValidation, err.Error(), err, details), statusInvalid
	default:
		s.logger.Error("timetable generation failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message), statusError
	}
}

// release frees the solver slot once the engine has stopped. A build cut
// short by its budget returns before the engine does, and the slot stays
// taken until then.
func (s *TimetableService) release(engineDone <-chan struct{}) {
	if engineDone == nil {
		<-s.slots
		return
	}
	select {
	case <-engineDone:
		<-s.slots
	default:
		s.logger.Warn("solver still running after the time budget; holding its slot")
		go func() {
			<-engineDone
			<-s.slots
		}()
	}
}

func (s *TimetableService) observe(status string, duration time.Duration, variables int) {
	if s.metrics != nil {
		s.metrics.ObserveSolve(status, duration, variables)
	}
}
