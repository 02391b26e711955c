package taskpacker

import (
	"fmt"
	"maps"
	"slices"

	goerrors "github.com/TudorHulban/go-errors"
)

// Task is one step of a process, occupying all of its resources for Duration.
// A task with ScheduledStart set is committed and never moved by a solve.
type Task struct {
	Name      string
	Resources []*Resource
	Follows   []*Task
	Color     string

	MaxWait        *int64 // upper bound on start delay after each predecessor ends
	DueTime        *int64
	ScheduledStart *int64

	// resource name | slot in [1, capacity]
	ScheduledResources map[string]int

	Duration int64
	Priority int64
}

type ParamsNewTask struct {
	Name      string
	Resources []*Resource
	Follows   []*Task
	Color     string

	MaxWait            *int64
	DueTime            *int64
	ScheduledStart     *int64
	ScheduledResources map[string]int

	Duration int64
	Priority int64 // zero defaults to 1.
}

func (param *ParamsNewTask) IsValid() error {
	if len(param.Name) == 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewTask",
			Issue: goerrors.ErrNilInput{
				InputName: "Name",
			},
		}
	}

	if len(param.Resources) == 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewTask",
			Issue: goerrors.ErrNilInput{
				InputName: "Resources",
			},
		}
	}

	if slices.Contains(param.Resources, nil) {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewTask",
			Issue: goerrors.ErrNilInput{
				InputName: "Resources - element",
			},
		}
	}

	if param.Duration <= 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewTask",
			Issue: goerrors.ErrInvalidInput{
				InputName:  "Duration",
				InputValue: param.Duration,
			},
		}
	}

	if param.Priority < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewTask",
			Issue: goerrors.ErrNegativeInput{
				InputName: "Priority",
			},
		}
	}

	if param.MaxWait != nil && *param.MaxWait < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewTask",
			Issue: goerrors.ErrNegativeInput{
				InputName: "MaxWait",
			},
		}
	}

	for resourceName, slot := range param.ScheduledResources {
		if !slices.ContainsFunc(
			param.Resources,
			func(res *Resource) bool {
				return res.Name == resourceName
			},
		) {
			return goerrors.ErrValidation{
				Caller: "IsValid - ParamsNewTask",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "ScheduledResources",
					InputValue: resourceName,
				},
			}
		}

		if slot < 1 {
			return goerrors.ErrValidation{
				Caller: "IsValid - ParamsNewTask",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "ScheduledResources - slot",
					InputValue: slot,
				},
			}
		}
	}

	return nil
}

func NewTask(params *ParamsNewTask) (*Task, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsNewTask",
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	return &Task{
			Name:      params.Name,
			Resources: params.Resources,
			Follows:   params.Follows,
			Color:     ternary(len(params.Color) == 0, "blue", params.Color),

			MaxWait:            params.MaxWait,
			DueTime:            params.DueTime,
			ScheduledStart:     params.ScheduledStart,
			ScheduledResources: params.ScheduledResources,

			Duration: params.Duration,
			Priority: ternary(params.Priority == 0, 1, params.Priority),
		},
		nil
}

// GetPriority returns the weight used by the lateness penalty, at least 1.
func (t *Task) GetPriority() int64 {
	return ternary(t.Priority <= 0, 1, t.Priority)
}

func (t *Task) IsScheduled() bool {
	return t.ScheduledStart != nil
}

// IsComplete reports whether the task carries a start time and a slot
// for every resource with finite capacity.
func (t *Task) IsComplete() bool {
	if t.ScheduledStart == nil {
		return false
	}

	for _, res := range t.Resources {
		if res.IsUnbounded() {
			continue
		}

		slot, exists := t.ScheduledResources[res.Name]
		if !exists || slot < 1 || slot > res.Capacity {
			return false
		}
	}

	return true
}

func (t *Task) ScheduledEnd() (int64, bool) {
	if t.ScheduledStart == nil {
		return 0, false
	}

	return *t.ScheduledStart + t.Duration,
		true
}

func (t *Task) Interval() (TimeInterval, bool) {
	if t.ScheduledStart == nil {
		return TimeInterval{}, false
	}

	return TimeInterval{
			TimeStart: *t.ScheduledStart,
			TimeEnd:   *t.ScheduledStart + t.Duration,
		},
		true
}

func (t *Task) Uses(res *Resource) bool {
	return slices.Contains(t.Resources, res)
}

// Lateness returns priority * max(0, end - due), zero for unscheduled tasks
// or tasks without due time.
func (t *Task) Lateness() int64 {
	end, isScheduled := t.ScheduledEnd()
	if !isScheduled || t.DueTime == nil {
		return 0
	}

	return t.GetPriority() * max(0, end-*t.DueTime)
}

// Copy returns an independent task sharing resources and predecessors,
// so a speculative solve can be committed without touching the original.
func (t *Task) Copy() *Task {
	result := *t

	result.Resources = slices.Clone(t.Resources)
	result.Follows = slices.Clone(t.Follows)
	result.MaxWait = copyPtr(t.MaxWait)
	result.DueTime = copyPtr(t.DueTime)
	result.ScheduledStart = copyPtr(t.ScheduledStart)

	if t.ScheduledResources != nil {
		result.ScheduledResources = maps.Clone(t.ScheduledResources)
	}

	return &result
}

func (t *Task) String() string {
	if interval, isScheduled := t.Interval(); isScheduled {
		return fmt.Sprintf(
			"Task(%s, %d, %s)",

			t.Name,
			t.Duration,
			interval,
		)
	}

	return fmt.Sprintf(
		"Task(%s, %d)",

		t.Name,
		t.Duration,
	)
}

// CopyTasks copies every task and remaps Follows pointers that target tasks
// inside the same list, keeping references to outside tasks as they are.
func CopyTasks(tasks []*Task) []*Task {
	copies := make(map[*Task]*Task, len(tasks))
	result := make([]*Task, len(tasks))

	for ix, task := range tasks {
		result[ix] = task.Copy()
		copies[task] = result[ix]
	}

	for _, task := range result {
		for ix, predecessor := range task.Follows {
			if predecessorCopy, exists := copies[predecessor]; exists {
				task.Follows[ix] = predecessorCopy
			}
		}
	}

	return result
}
