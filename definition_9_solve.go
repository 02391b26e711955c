package taskpacker

import (
	"context"
	"fmt"
	"log"
	"maps"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
)

// WindowPolicy decides what happens to committed tasks lying entirely outside
// the solve window.
type WindowPolicy uint8

const (
	WindowDrop WindowPolicy = iota // leave them out of the model
	WindowKeep
)

func (policy WindowPolicy) String() string {
	return ternary(policy == WindowKeep, "keep", "drop")
}

func ParseWindowPolicy(policy string) (WindowPolicy, error) {
	switch policy {
	case "", "drop":
		return WindowDrop,
			nil

	case "keep":
		return WindowKeep,
			nil
	}

	return 0,
		goerrors.ErrInvalidInput{
			InputName:  "WindowPolicy",
			InputValue: policy,
		}
}

type ParamsSolve struct {
	Solver Solver      // nil means SearchSolver
	Logger *log.Logger // solver progress, only when Verbose

	Tasks []*Task

	LowerBound *int64
	UpperBound int64

	TimeLimit    time.Duration
	Seed         int64
	WindowPolicy WindowPolicy

	Optimize   bool
	Randomized bool
	Verbose    bool
}

func (param *ParamsSolve) IsValid() error {
	if param.UpperBound < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSolve",
			Issue: goerrors.ErrNegativeInput{
				InputName: "UpperBound",
			},
		}
	}

	if param.LowerBound != nil && *param.LowerBound > param.UpperBound {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSolve",
			Issue: goerrors.ErrInvalidInput{
				InputName:  "LowerBound",
				InputValue: *param.LowerBound,
				Issue: fmt.Errorf(
					"lower bound above upper bound %d",
					param.UpperBound,
				),
			},
		}
	}

	if param.TimeLimit < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSolve",
			Issue: goerrors.ErrNegativeInput{
				InputName: "TimeLimit",
			},
		}
	}

	return nil
}

func (param *ParamsSolve) solver() Solver {
	if param.Solver == nil {
		return NewSearchSolver()
	}

	return param.Solver
}

func (param *ParamsSolve) paramsSolver() *ParamsSolver {
	return &ParamsSolver{
		Logger:     param.Logger,
		TimeLimit:  param.TimeLimit,
		Seed:       param.Seed,
		Verbose:    param.Verbose,
		Randomized: param.Randomized,
	}
}

// Assignment is where and when a task runs: its start and one slot per finite capacity resource.
type Assignment struct {
	Slots map[string]int
	Start int64
}

// Schedule is the immutable outcome of a solve.
// Nothing is written into the tasks until Apply.
type Schedule struct {
	assignments map[*Task]Assignment

	Tasks     []*Task // in model order
	Objective int64
	Status    SolveStatus
}

func (s *Schedule) Assignment(task *Task) (Assignment, bool) {
	assignment, exists := s.assignments[task]

	return assignment,
		exists
}

// Apply commits the schedule into its tasks.
func (s *Schedule) Apply() {
	for _, task := range s.Tasks {
		assignment := s.assignments[task]

		task.ScheduledStart = Ptr(assignment.Start)
		task.ScheduledResources = maps.Clone(assignment.Slots)
	}
}

// Makespan is the latest end among the scheduled tasks.
func (s *Schedule) Makespan() int64 {
	var result int64

	for task, assignment := range s.assignments {
		result = max(result, assignment.Start+task.Duration)
	}

	return result
}

func (s *Schedule) String() string {
	return fmt.Sprintf(
		"Schedule{tasks: %d, status: %s, objective: %d, makespan: %d}",

		len(s.Tasks),
		s.Status,
		s.Objective,
		s.Makespan(),
	)
}

func (c *CompiledModel) decode(solution *Solution) (*Schedule, error) {
	if len(solution.Starts) != len(c.Model.Intervals) || len(solution.Slots) != len(c.Model.Slots) {
		return nil,
			fmt.Errorf(
				"solver returned %d starts and %d slots for %d intervals and %d slots",
				len(solution.Starts),
				len(solution.Slots),
				len(c.Model.Intervals),
				len(c.Model.Slots),
			)
	}

	result := Schedule{
		assignments: make(map[*Task]Assignment, len(c.Tasks)),
		Tasks:       c.Tasks,
		Objective:   solution.Objective,
		Status:      solution.Status,
	}

	for ix, task := range c.Tasks {
		slots := make(map[string]int, len(c.slotsOf[ix]))

		for _, ref := range c.slotsOf[ix] {
			slots[ref.resource.Name] = solution.Slots[ref.slotVar]
		}

		result.assignments[task] = Assignment{
			Start: solution.Starts[ix],
			Slots: slots,
		}
	}

	return &result,
		nil
}

// inWindow drops committed tasks that no unscheduled task can reach:
// those ending at or before lower, and those starting at or after
// upper plus the longest unscheduled duration, since an unscheduled task
// starting at upper still runs that long.
func inWindow(tasks []*Task, workUnits []*WorkUnit, lowerBound *int64, upperBound int64, policy WindowPolicy) []*Task {
	if policy == WindowKeep {
		return tasks
	}

	reach := upperBound + longestUnscheduled(tasks, workUnits)

	result := make([]*Task, 0, len(tasks))

	for _, task := range tasks {
		interval, isScheduled := task.Interval()
		if !isScheduled {
			result = append(result, task)

			continue
		}

		if interval.TimeStart >= reach {
			continue
		}

		if lowerBound != nil && interval.TimeEnd <= *lowerBound {
			continue
		}

		result = append(result, task)
	}

	return result
}

func longestUnscheduled(tasks []*Task, workUnits []*WorkUnit) int64 {
	var result int64

	for _, group := range [][]*Task{tasks, tasksOf(workUnits)} {
		for _, task := range group {
			if !task.IsScheduled() {
				result = max(result, task.Duration)
			}
		}
	}

	return result
}

// Solve builds the model for the tasks and runs the solver once.
// On failure no task is touched and the error satisfies IsNoSolution.
func Solve(ctx context.Context, params *ParamsSolve) (*Schedule, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsSolve",
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	if len(params.Tasks) == 0 {
		return nil,
			goerrors.ErrValidation{
				Caller: "Solve",
				Issue: goerrors.ErrNilInput{
					InputName: "Tasks",
				},
			}
	}

	tasks := inWindow(
		params.Tasks,
		nil,
		params.LowerBound,
		params.UpperBound,
		params.WindowPolicy,
	)

	if len(tasks) == 0 {
		return &Schedule{
				assignments: map[*Task]Assignment{},
				Status:      StatusOptimal,
			},
			nil
	}

	return solve(
		ctx,
		params,
		&ParamsBuildModel{
			Tasks:      tasks,
			LowerBound: params.LowerBound,
			UpperBound: params.UpperBound,
			Optimize:   params.Optimize,
		},
	)
}

func solve(ctx context.Context, params *ParamsSolve, paramsBuild *ParamsBuildModel) (*Schedule, error) {
	compiled, errBuild := BuildModel(paramsBuild)
	if errBuild != nil {
		return nil,
			errBuild
	}

	solution, errSolve := params.solver().Solve(ctx, compiled.Model, params.paramsSolver())
	if errSolve != nil {
		return nil,
			errSolve
	}

	switch solution.Status {
	case StatusOptimal, StatusFeasible:
		return compiled.decode(solution)

	case StatusTimeout:
		return nil,
			ErrTimeoutNoSolution
	}

	return nil,
		ErrInfeasible
}

// SolveAndApply solves and commits the result into the tasks.
func SolveAndApply(ctx context.Context, params *ParamsSolve) (*Schedule, error) {
	schedule, errSolve := Solve(ctx, params)
	if errSolve != nil {
		return nil,
			errSolve
	}

	schedule.Apply()

	return schedule,
		nil
}

// ParamsSolveWorkUnits schedules whole work units.
// Tasks of the embedded ParamsSolve are extra tasks solved alongside, usually committed ones.
type ParamsSolveWorkUnits struct {
	ParamsSolve

	WorkUnits []*WorkUnit
}

func SolveWorkUnits(ctx context.Context, params *ParamsSolveWorkUnits) (*Schedule, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsSolveWorkUnits",
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	if len(params.WorkUnits) == 0 {
		return nil,
			goerrors.ErrValidation{
				Caller: "SolveWorkUnits",
				Issue: goerrors.ErrNilInput{
					InputName: "WorkUnits",
				},
			}
	}

	return solve(
		ctx,
		&params.ParamsSolve,
		&ParamsBuildModel{
			Tasks: inWindow(
				params.Tasks,
				params.WorkUnits,
				params.LowerBound,
				params.UpperBound,
				params.WindowPolicy,
			),
			WorkUnits:  params.WorkUnits,
			LowerBound: params.LowerBound,
			UpperBound: params.UpperBound,
			Optimize:   params.Optimize,
		},
	)
}
