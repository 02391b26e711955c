// Package runner executes a loaded plan with the configured solver settings.
// The CLI and the HTTP server share it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TudorHulban/taskpacker"
	"github.com/TudorHulban/taskpacker/internal/config"
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/TudorHulban/taskpacker/internal/store"
)

const (
	ModeSolve  = store.KindSolve
	ModeSeries = store.KindSeries
)

// Params overrides the configured settings for one run.
// Zero values keep the configuration.
type Params struct {
	Plan     *loader.Plan
	Settings *config.Config
	Logger   *log.Logger

	Mode         string
	WindowPolicy string
	Optimize     *bool
	LowerBound   *int64

	UpperBound int64
	TimeLimit  time.Duration
	Verbose    bool
}

func (param *Params) IsValid() error {
	if param.Plan == nil {
		return errors.New("runner: plan is required")
	}

	if param.Settings == nil {
		return errors.New("runner: settings are required")
	}

	if param.Mode != "" && param.Mode != ModeSolve && param.Mode != ModeSeries {
		return fmt.Errorf("runner: unknown mode %q", param.Mode)
	}

	if param.Mode == ModeSeries && len(param.Plan.WorkUnits) > 0 {
		return errors.New("runner: work units are solved in solve mode only")
	}

	return nil
}

type Result struct {
	Mode   string
	Status string

	// Tasks holds every task of the run, committed ones included.
	Tasks     []*taskpacker.Task
	Resources []*taskpacker.Resource
	Failures  []*taskpacker.SchedulingFailure
	Bounds    []taskpacker.SeriesBounds

	Objective  int64
	Makespan   int64
	LowerBound int64
	UpperBound int64
}

func Run(ctx context.Context, params *Params) (*Result, error) {
	if errValidation := params.IsValid(); errValidation != nil {
		return nil, errValidation
	}

	if params.Mode == ModeSeries {
		return runSeries(ctx, params)
	}

	return runSolve(ctx, params)
}

func runSolve(ctx context.Context, params *Params) (*Result, error) {
	policy, errPolicy := taskpacker.ParseWindowPolicy(
		ternary(len(params.WindowPolicy) == 0, params.Settings.Solver.WindowPolicy, params.WindowPolicy),
	)
	if errPolicy != nil {
		return nil, fmt.Errorf("runner: %w", errPolicy)
	}

	optimize := params.Settings.Solver.Optimize
	if params.Optimize != nil {
		optimize = *params.Optimize
	}

	paramsSolve := taskpacker.ParamsSolve{
		Logger: params.Logger,
		Tasks: append(
			append([]*taskpacker.Task{}, params.Plan.Tasks...),
			params.Plan.ProcessTasks()...,
		),
		LowerBound:   params.LowerBound,
		UpperBound:   ternary(params.UpperBound == 0, params.Settings.Solver.UpperBound, params.UpperBound),
		TimeLimit:    ternary(params.TimeLimit == 0, params.Settings.Solver.TimeLimit, params.TimeLimit),
		WindowPolicy: policy,
		Optimize:     optimize,
		Verbose:      params.Verbose,
	}

	var schedule *taskpacker.Schedule

	var errSolve error

	if len(params.Plan.WorkUnits) > 0 {
		schedule, errSolve = taskpacker.SolveWorkUnits(
			ctx,
			&taskpacker.ParamsSolveWorkUnits{
				ParamsSolve: paramsSolve,
				WorkUnits:   params.Plan.WorkUnits,
			},
		)
	} else {
		schedule, errSolve = taskpacker.Solve(ctx, &paramsSolve)
	}

	if errSolve != nil {
		return nil, fmt.Errorf("runner: solve: %w", errSolve)
	}

	schedule.Apply()

	result := Result{
		Mode:      ModeSolve,
		Status:    schedule.Status.String(),
		Tasks:     params.Plan.AllTasks(),
		Resources: params.Plan.Resources,
		Objective: schedule.Objective,

		UpperBound: paramsSolve.UpperBound,
	}

	if params.LowerBound != nil {
		result.LowerBound = *params.LowerBound
	}

	result.Makespan = makespan(result.Tasks)

	return &result, nil
}

func runSeries(ctx context.Context, params *Params) (*Result, error) {
	series, errSeries := taskpacker.ScheduleProcessesSeries(
		ctx,
		&taskpacker.ParamsSeries{
			Logger:         params.Logger,
			Processes:      params.Plan.Processes,
			ScheduledTasks: params.Plan.Tasks,

			EstimatedProcessDuration: params.Settings.Series.EstimatedProcessDuration,

			TimeLimit:     ternary(params.TimeLimit == 0, params.Settings.Solver.TimeLimit, params.TimeLimit),
			TimeLimitStep: params.Settings.Series.TimeLimitStep,
			Trials:        params.Settings.Series.Trials,

			GrowHorizonOnRetry: params.Settings.Series.GrowHorizonOnRetry,
			Verbose:            params.Verbose,
		},
	)
	if errSeries != nil {
		return nil, fmt.Errorf("runner: series: %w", errSeries)
	}

	result := Result{
		Mode:      ModeSeries,
		Status:    ternary(len(series.Failures) == 0, "complete", "partial"),
		Tasks:     series.Tasks(),
		Resources: params.Plan.Resources,
		Failures:  series.Failures,
		Bounds:    series.BoundsHistory,

		LowerBound: series.LowerBound,
		UpperBound: series.UpperBound,
	}

	result.Makespan = makespan(result.Tasks)
	result.Objective = taskpacker.ScheduleObjective(result.Tasks)

	return &result, nil
}

// Save persists the run.
func (r *Result) Save(ctx context.Context, s *store.Store, name string) (*store.Run, error) {
	return s.SaveRun(
		ctx,
		&store.ParamsSaveRun{
			Name:   name,
			Kind:   r.Mode,
			Status: r.Status,

			Tasks:    r.Tasks,
			Failures: r.Failures,

			Objective:  r.Objective,
			LowerBound: r.LowerBound,
			UpperBound: r.UpperBound,
		},
	)
}

func makespan(tasks []*taskpacker.Task) int64 {
	var result int64

	for _, task := range tasks {
		if end, isScheduled := task.ScheduledEnd(); isScheduled {
			result = max(result, end)
		}
	}

	return result
}

func ternary[T any](condition bool, value1, value2 T) T {
	if condition {
		return value1
	}

	return value2
}
