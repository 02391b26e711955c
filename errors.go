package taskpacker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInfeasible is returned when the solver proves no assignment satisfies the model.
	ErrInfeasible = errors.New("no solution found by the schedule optimizer")

	// ErrTimeoutNoSolution is returned when the time budget ends before any feasible assignment.
	ErrTimeoutNoSolution = errors.New("time limit reached without a feasible schedule")

	ErrCycle              = errors.New("cycle detected")
	ErrIncompleteSchedule = errors.New("schedule is incomplete")
	ErrScheduleViolation  = errors.New("schedule violates a constraint")
)

// IsNoSolution reports whether err means a solve attempt produced no schedule.
func IsNoSolution(err error) bool {
	return errors.Is(err, ErrInfeasible) ||
		errors.Is(err, ErrTimeoutNoSolution)
}

// CycleError carries one witness path of a precedence cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycle.Error()
	}

	return fmt.Sprintf(
		"%s: %s",

		ErrCycle,
		strings.Join(e.Path, " -> "),
	)
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// SchedulingFailure reports a process the series scheduler could not place
// after exhausting its trials.
type SchedulingFailure struct {
	Err error

	ProcessIndex int
	Trials       int
	LowerBound   int64
	UpperBound   int64
}

func (e *SchedulingFailure) Error() string {
	return fmt.Sprintf(
		"process %d not scheduled after %d trials (bounds [%d, %d]): %v",

		e.ProcessIndex,
		e.Trials,
		e.LowerBound,
		e.UpperBound,
		e.Err,
	)
}

func (e *SchedulingFailure) Unwrap() error { return e.Err }
