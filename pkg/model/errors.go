package model

import (
	"errors"
	"strings"

	"github.com/timely/timetabling/pkg/sat"
)

type Stage string

const (
	StagePrecheck Stage = "precheck"
	StageSolve    Stage = "solve"
)

var (
	ErrInfeasible = errors.New("timetable is infeasible")
	ErrInternal   = errors.New("internal timetabling fault")
)

// InfeasibleError is a recoverable failure caused by the request itself:
// either a pre-check rejected it or the solver found no schedule.
type InfeasibleError struct {
	Stage   Stage
	Status  sat.Status // solver status, only for StageSolve
	Message string
	Hints   []string
}

func (err *InfeasibleError) Error() string {
	if len(err.Hints) == 0 {
		return err.Message
	}
	return err.Message + " Possible causes: " + strings.Join(err.Hints, "; ")
}

func (err *InfeasibleError) Unwrap() error {
	return ErrInfeasible
}
