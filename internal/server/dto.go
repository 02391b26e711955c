package server

import (
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/TudorHulban/taskpacker/internal/runner"
	"github.com/TudorHulban/taskpacker/internal/store"
)

type ScheduleRequest struct {
	Name     string          `json:"name,omitempty"`
	Mode     string          `json:"mode,omitempty" enum:"solve,series" doc:"solve places every task at once, series places processes one after the other"`
	Document loader.Document `json:"document"`

	WindowPolicy string `json:"window_policy,omitempty" enum:"drop,keep"`
	Optimize     *bool  `json:"optimize,omitempty"`
	LowerBound   *int64 `json:"lower_bound,omitempty"`
	UpperBound   int64  `json:"upper_bound,omitempty" minimum:"0"`
	TimeLimitMs  int64  `json:"time_limit_ms,omitempty" minimum:"0"`

	Persist bool `json:"persist,omitempty" doc:"store the committed schedule, the response then carries its id"`
}

type ScheduleResponse struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Mode   string `json:"mode"`
	Status string `json:"status"`

	Objective int64 `json:"objective"`
	Makespan  int64 `json:"makespan"`

	Tasks    []loader.ScheduledTask `json:"tasks"`
	Failures []string               `json:"failures,omitempty"`
}

func scheduleResponse(result *runner.Result) ScheduleResponse {
	response := ScheduleResponse{
		Mode:      result.Mode,
		Status:    result.Status,
		Objective: result.Objective,
		Makespan:  result.Makespan,
		Tasks:     loader.ScheduledTasks(result.Tasks),
	}

	for _, failure := range result.Failures {
		response.Failures = append(response.Failures, failure.Error())
	}

	return response
}

func runResponse(run *store.Run) (ScheduleResponse, error) {
	tasks, err := run.ScheduledTasks()
	if err != nil {
		return ScheduleResponse{}, err
	}

	response := ScheduleResponse{
		ID:        run.ID,
		Name:      run.Name,
		Mode:      run.Kind,
		Status:    run.Status,
		Objective: run.Objective,
		Makespan:  run.Makespan,
		Tasks:     tasks,
	}

	if len(run.Errors) > 0 {
		response.Failures = []string{run.Errors}
	}

	return response, nil
}
