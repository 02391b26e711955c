package taskpacker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
)

const (
	DefaultEstimatedProcessDuration = 5000
	DefaultSeriesTimeLimit          = 20 * time.Second
	DefaultSeriesTrials             = 2
)

type ParamsSeries struct {
	Solver Solver
	Logger *log.Logger // nil means no progress lines

	// Processes are copied, the caller's tasks are never written.
	Processes [][]*Task
	// ScheduledTasks are committed tasks, for example maintenance breaks. Copied too.
	ScheduledTasks []*Task

	EstimatedProcessDuration int64 // zero defaults to 5000

	TimeLimit     time.Duration // zero defaults to 20s
	TimeLimitStep time.Duration // added to the time limit on every retry
	Trials        int           // zero defaults to 2

	GrowHorizonOnRetry bool // double the upper bound on every retry
	Verbose            bool
}

func (param *ParamsSeries) IsValid() error {
	if len(param.Processes) == 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSeries",
			Issue: goerrors.ErrNilInput{
				InputName: "Processes",
			},
		}
	}

	for ix, process := range param.Processes {
		if len(process) == 0 || slices.Contains(process, nil) {
			return goerrors.ErrValidation{
				Caller: "IsValid - ParamsSeries",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "Processes - process",
					InputValue: ix,
				},
			}
		}
	}

	if param.EstimatedProcessDuration < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSeries",
			Issue: goerrors.ErrNegativeInput{
				InputName: "EstimatedProcessDuration",
			},
		}
	}

	if param.TimeLimit < 0 || param.TimeLimitStep < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSeries",
			Issue: goerrors.ErrNegativeInput{
				InputName: "TimeLimit",
			},
		}
	}

	if param.Trials < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSeries",
			Issue: goerrors.ErrNegativeInput{
				InputName: "Trials",
			},
		}
	}

	return nil
}

func (param *ParamsSeries) logf(format string, args ...any) {
	if param.Logger != nil {
		param.Logger.Printf(format, args...)
	}
}

// SeriesBounds are the bounds in force after a process was committed.
type SeriesBounds struct {
	ProcessIndex int

	LowerBound int64
	UpperBound int64
}

type SeriesResult struct {
	// Processes holds the scheduled copies, same order as the input.
	// Copies of failed processes stay unscheduled.
	Processes      [][]*Task
	ScheduledTasks []*Task
	Failures       []*SchedulingFailure
	BoundsHistory  []SeriesBounds

	LowerBound      int64
	UpperBound      int64
	ProcessDuration int64
}

// Err joins the failures of the processes that could not be scheduled.
func (r *SeriesResult) Err() error {
	errs := make([]error, len(r.Failures))

	for ix, failure := range r.Failures {
		errs[ix] = failure
	}

	return errors.Join(errs...)
}

// Tasks returns every scheduled task of the run.
func (r *SeriesResult) Tasks() []*Task {
	result := slices.Clone(r.ScheduledTasks)

	for _, process := range r.Processes {
		for _, task := range process {
			if task.IsScheduled() {
				result = append(result, task)
			}
		}
	}

	return result
}

// copySeries copies committed tasks and processes in one pass so Follows edges
// across processes point to the copies.
func copySeries(scheduled []*Task, processes [][]*Task) ([]*Task, [][]*Task) {
	flat := slices.Clone(scheduled)

	for _, process := range processes {
		flat = append(flat, process...)
	}

	copies := CopyTasks(flat)

	resultProcesses := make([][]*Task, len(processes))
	offset := len(scheduled)

	for ix, process := range processes {
		resultProcesses[ix] = copies[offset : offset+len(process) : offset+len(process)]
		offset = offset + len(process)
	}

	return copies[:len(scheduled):len(scheduled)],
		resultProcesses
}

// ScheduleProcessesSeries commits processes one at a time against a growing set of
// considered tasks, keeping each solve inside a moving horizon.
// A failing seed solve aborts the run, later failures are retried then reported
// in the result while the remaining processes are still attempted.
func ScheduleProcessesSeries(ctx context.Context, params *ParamsSeries) (*SeriesResult, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsSeries",
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	estimate := ternary(
		params.EstimatedProcessDuration == 0,
		DefaultEstimatedProcessDuration,
		params.EstimatedProcessDuration,
	)
	timeLimit := ternary(params.TimeLimit == 0, DefaultSeriesTimeLimit, params.TimeLimit)
	trials := ternary(params.Trials == 0, DefaultSeriesTrials, params.Trials)

	scheduled, processes := copySeries(params.ScheduledTasks, params.Processes)

	result := SeriesResult{
		Processes:       processes,
		ScheduledTasks:  scheduled,
		LowerBound:      0,
		UpperBound:      estimate,
		ProcessDuration: estimate,
	}

	var lowerBound *int64

	considered := slices.Clone(scheduled)

	if _, errSeed := SolveAndApply(
		ctx,
		&ParamsSolve{
			Solver:     params.Solver,
			Logger:     params.Logger,
			Tasks:      append(slices.Clone(processes[0]), considered...),
			UpperBound: result.UpperBound,
			TimeLimit:  timeLimit,
			Optimize:   true,
			Verbose:    params.Verbose,
		},
	); errSeed != nil {
		return nil,
			fmt.Errorf("seed solve: %w", errSeed)
	}

	params.logf(
		"series: seed solved, %d committed tasks",
		len(considered),
	)

	for ixProcess, process := range processes {
		if errCtx := ctx.Err(); errCtx != nil {
			return &result,
				errCtx
		}

		considered = append(considered, process...)

		var committed *Schedule
		var errLast error
		var attempts int
		var upperAttempted int64

		for trial := range trials {
			attempts++

			upperBound := ternary(
				params.GrowHorizonOnRetry,
				result.UpperBound<<trial,
				result.UpperBound,
			)
			upperAttempted = upperBound

			schedule, errSolve := SolveAndApply(
				ctx,
				&ParamsSolve{
					Solver:     params.Solver,
					Logger:     params.Logger,
					Tasks:      considered,
					LowerBound: lowerBound,
					UpperBound: upperBound,
					TimeLimit:  timeLimit + params.TimeLimitStep*time.Duration(trial),
					Optimize:   true,
					Verbose:    params.Verbose,
				},
			)
			if errSolve == nil {
				committed, errLast = schedule, nil

				break
			}

			errLast = errSolve

			params.logf(
				"series: process %d trial %d: %v",
				ixProcess,
				trial+1,
				errSolve,
			)

			if !IsNoSolution(errSolve) {
				break
			}
		}

		if errLast != nil {
			result.Failures = append(
				result.Failures,
				&SchedulingFailure{
					Err:          errLast,
					ProcessIndex: ixProcess,
					Trials:       attempts,
					LowerBound:   result.LowerBound,
					UpperBound:   upperAttempted,
				},
			)

			considered = considered[:len(considered)-len(process)]

			continue
		}

		lower, latest := processSpan(process)
		lower = max(lower, result.LowerBound)

		lowerBound = Ptr(lower)

		result.LowerBound = lower
		result.ProcessDuration = min(result.ProcessDuration, latest-lower)
		result.UpperBound = latest + estimate

		result.BoundsHistory = append(
			result.BoundsHistory,
			SeriesBounds{
				ProcessIndex: ixProcess,
				LowerBound:   result.LowerBound,
				UpperBound:   result.UpperBound,
			},
		)

		for _, task := range committed.Tasks {
			if !task.IsComplete() {
				return &result,
					fmt.Errorf(
						"process %d, task %q: %w",
						ixProcess,
						task.Name,
						ErrIncompleteSchedule,
					)
			}
		}

		params.logf(
			"series: process %d scheduled, bounds [%d, %d]",
			ixProcess,
			result.LowerBound,
			result.UpperBound,
		)
	}

	return &result,
		nil
}

// processSpan returns the earliest start and latest end of scheduled tasks.
func processSpan(tasks []*Task) (int64, int64) {
	var lower, latest int64

	for ix, task := range tasks {
		interval, _ := task.Interval()

		if ix == 0 || interval.TimeStart < lower {
			lower = interval.TimeStart
		}

		latest = max(latest, interval.TimeEnd)
	}

	return lower,
		latest
}
