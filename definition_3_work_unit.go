package taskpacker

import (
	"fmt"
	"slices"

	goerrors "github.com/TudorHulban/go-errors"
)

type RelationKind uint8

const (
	RelationAtLeast RelationKind = iota + 1 // start(To) >= start(From) + Offset
	RelationAtMost                          // start(To) <= start(From) + Offset
	RelationEquals                          // start(To) == start(From) + Offset
)

func (kind RelationKind) String() string {
	switch kind {
	case RelationAtLeast:
		return "at_least"

	case RelationAtMost:
		return "at_most"

	case RelationEquals:
		return "equals"
	}

	return fmt.Sprintf("RelationKind(%d)", kind)
}

// ParseRelationKind is the inverse of RelationKind.String.
func ParseRelationKind(kind string) (RelationKind, error) {
	switch kind {
	case "at_least":
		return RelationAtLeast, nil

	case "at_most":
		return RelationAtMost, nil

	case "equals":
		return RelationEquals, nil
	}

	return 0,
		goerrors.ErrInvalidInput{
			Caller:     "ParseRelationKind",
			InputName:  "kind",
			InputValue: kind,
		}
}

// Relation constrains the start times of two tasks of the same work unit,
// referenced by name.
type Relation struct {
	From string
	To   string

	Kind   RelationKind
	Offset int64
}

// GapRelations expresses gaps measured from the end of task from to the start of task to.
// A nil bound is not constrained.
func GapRelations(from *Task, to string, minGap, maxGap *int64) []Relation {
	result := make([]Relation, 0, 2)

	if minGap != nil {
		result = append(
			result,
			Relation{
				From:   from.Name,
				To:     to,
				Kind:   RelationAtLeast,
				Offset: from.Duration + *minGap,
			},
		)
	}

	if maxGap != nil {
		result = append(
			result,
			Relation{
				From:   from.Name,
				To:     to,
				Kind:   RelationAtMost,
				Offset: from.Duration + *maxGap,
			},
		)
	}

	return result
}

// WorkUnit is an ordered chain of tasks executed one after the other.
// DueTime and Priority apply to the finish of the last task.
type WorkUnit struct {
	Name      string
	Tasks     []*Task
	Relations []Relation
	Parents   []*WorkUnit

	DueTime        *int64
	ScheduledStart *int64 // pins the start of the first task

	Priority int64
}

type ParamsNewWorkUnit struct {
	Name      string
	Tasks     []*Task
	Relations []Relation
	Parents   []*WorkUnit

	DueTime        *int64
	ScheduledStart *int64

	Priority int64
}

func (param *ParamsNewWorkUnit) IsValid() error {
	if len(param.Name) == 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewWorkUnit",
			Issue: goerrors.ErrNilInput{
				InputName: "Name",
			},
		}
	}

	if len(param.Tasks) == 0 || slices.Contains(param.Tasks, nil) {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewWorkUnit",
			Issue: goerrors.ErrNilInput{
				InputName: "Tasks",
			},
		}
	}

	if param.Priority < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewWorkUnit",
			Issue: goerrors.ErrNegativeInput{
				InputName: "Priority",
			},
		}
	}

	for _, relation := range param.Relations {
		if relation.Kind < RelationAtLeast || relation.Kind > RelationEquals {
			return goerrors.ErrValidation{
				Caller: "IsValid - ParamsNewWorkUnit",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "Relations - kind",
					InputValue: relation.Kind,
				},
			}
		}

		for _, name := range []string{relation.From, relation.To} {
			if _, errGet := taskByName(param.Tasks, name); errGet != nil {
				return goerrors.ErrValidation{
					Caller: "IsValid - ParamsNewWorkUnit",
					Issue:  errGet,
				}
			}
		}
	}

	return nil
}

func NewWorkUnit(params *ParamsNewWorkUnit) (*WorkUnit, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsNewWorkUnit",
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	return &WorkUnit{
			Name:      params.Name,
			Tasks:     params.Tasks,
			Relations: params.Relations,
			Parents:   params.Parents,

			DueTime:        params.DueTime,
			ScheduledStart: params.ScheduledStart,

			Priority: ternary(params.Priority == 0, 1, params.Priority),
		},
		nil
}

func (wu *WorkUnit) First() *Task {
	return wu.Tasks[0]
}

func (wu *WorkUnit) Last() *Task {
	return wu.Tasks[len(wu.Tasks)-1]
}

func (wu *WorkUnit) GetPriority() int64 {
	return ternary(wu.Priority <= 0, 1, wu.Priority)
}

// TaskByName returns the single task of the unit with the given name.
func (wu *WorkUnit) TaskByName(name string) (*Task, error) {
	return taskByName(wu.Tasks, name)
}

// Clone copies the unit and its tasks. Parents keep pointing to the original units.
func (wu *WorkUnit) Clone() *WorkUnit {
	result := *wu

	result.Tasks = CopyTasks(wu.Tasks)
	result.Relations = slices.Clone(wu.Relations)
	result.Parents = slices.Clone(wu.Parents)
	result.DueTime = copyPtr(wu.DueTime)
	result.ScheduledStart = copyPtr(wu.ScheduledStart)

	return &result
}

func taskByName(tasks []*Task, name string) (*Task, error) {
	var result *Task

	var found int

	for _, task := range tasks {
		if task.Name == name {
			result = task
			found++
		}
	}

	if found != 1 {
		return nil,
			fmt.Errorf(
				"found %d entries for task name %q",
				found,
				name,
			)
	}

	return result,
		nil
}
