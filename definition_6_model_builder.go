package taskpacker

import (
	"fmt"
	"slices"

	goerrors "github.com/TudorHulban/go-errors"
)

type ParamsBuildModel struct {
	Tasks     []*Task
	WorkUnits []*WorkUnit // their tasks are added to Tasks

	LowerBound *int64 // nil means 0
	UpperBound int64

	Optimize bool
}

func (param *ParamsBuildModel) IsValid() error {
	if len(param.Tasks) == 0 && len(param.WorkUnits) == 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsBuildModel",
			Issue: goerrors.ErrNilInput{
				InputName: "Tasks",
			},
		}
	}

	if param.UpperBound < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsBuildModel",
			Issue: goerrors.ErrNegativeInput{
				InputName: "UpperBound",
			},
		}
	}

	for _, wu := range param.WorkUnits {
		if wu == nil || len(wu.Tasks) == 0 {
			return goerrors.ErrValidation{
				Caller: "IsValid - ParamsBuildModel",
				Issue: goerrors.ErrNilInput{
					InputName: "WorkUnits - tasks",
				},
			}
		}
	}

	return nil
}

type slotRef struct {
	resource *Resource
	slotVar  int
}

// CompiledModel is a solver Model together with the mapping back to the tasks it was built from.
type CompiledModel struct {
	Model *Model
	Tasks []*Task

	intervalOf map[*Task]int
	slotsOf    [][]slotRef // per interval
	resources  []*Resource
}

// BuildModel translates tasks and work units into solver variables and constraints.
// Infeasibility is not detected here, only malformed input.
func BuildModel(params *ParamsBuildModel) (*CompiledModel, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsBuildModel",
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	tasks := uniqueTasks(
		append(
			slices.Clone(params.Tasks),
			tasksOf(params.WorkUnits)...,
		),
	)

	if errValidation := validateForModel(tasks); errValidation != nil {
		return nil,
			errValidation
	}

	graph := newPrecedenceGraph(tasks)
	graph.addWorkUnits(params.WorkUnits)

	if errCycle := graph.validateAcyclic(); errCycle != nil {
		return nil,
			errCycle
	}

	result := CompiledModel{
		Model:      &Model{},
		Tasks:      tasks,
		intervalOf: make(map[*Task]int, len(tasks)),
		slotsOf:    make([][]slotRef, 0, len(tasks)),
	}

	var lowerBound int64

	if params.LowerBound != nil {
		lowerBound = *params.LowerBound
	}

	for _, task := range tasks {
		if errAdd := result.addTask(task, lowerBound, params.UpperBound); errAdd != nil {
			return nil,
				errAdd
		}
	}

	result.addResourceConstraints()

	if errFollows := result.addFollows(); errFollows != nil {
		return nil,
			errFollows
	}

	if errUnits := result.addWorkUnits(params.WorkUnits); errUnits != nil {
		return nil,
			errUnits
	}

	result.addObjective(params.Optimize, params.WorkUnits)

	return &result,
		nil
}

func uniqueTasks(tasks []*Task) []*Task {
	seen := make(map[*Task]bool, len(tasks))
	result := make([]*Task, 0, len(tasks))

	for _, task := range tasks {
		if seen[task] {
			continue
		}

		seen[task] = true
		result = append(result, task)
	}

	return result
}

func validateForModel(tasks []*Task) error {
	resourcesByName := make(map[string]*Resource)

	for _, task := range tasks {
		if task == nil {
			return goerrors.ErrValidation{
				Caller: "BuildModel",
				Issue: goerrors.ErrNilInput{
					InputName: "Tasks - element",
				},
			}
		}

		if task.Duration <= 0 || len(task.Resources) == 0 {
			return goerrors.ErrValidation{
				Caller: "BuildModel",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "Task",
					InputValue: task.Name,
				},
			}
		}

		for _, res := range task.Resources {
			if res == nil {
				return goerrors.ErrValidation{
					Caller: "BuildModel",
					Issue: goerrors.ErrNilInput{
						InputName: fmt.Sprintf("Task %q - resource", task.Name),
					},
				}
			}

			if existing, exists := resourcesByName[res.Name]; exists && existing != res {
				return goerrors.ErrValidation{
					Caller: "BuildModel",
					Issue: goerrors.ErrInvalidInput{
						InputName:  "Resource - duplicate name",
						InputValue: res.Name,
					},
				}
			}

			if res.Capacity < 1 && !res.IsUnbounded() {
				return goerrors.ErrValidation{
					Caller: "BuildModel",
					Issue: goerrors.ErrInvalidInput{
						InputName:  "Resource - capacity",
						InputValue: res.Capacity,
					},
				}
			}

			resourcesByName[res.Name] = res
		}
	}

	return nil
}

func (c *CompiledModel) addTask(task *Task, lowerBound, upperBound int64) error {
	var ix int

	if task.ScheduledStart != nil {
		ix = c.Model.AddInterval(task.Name, *task.ScheduledStart, *task.ScheduledStart, task.Duration)
	} else {
		ix = c.Model.AddInterval(task.Name, lowerBound, upperBound, task.Duration)
	}

	c.intervalOf[task] = ix

	refs := make([]slotRef, 0, len(task.Resources))

	for _, res := range task.Resources {
		if !slices.Contains(c.resources, res) {
			c.resources = append(c.resources, res)
		}

		if res.IsUnbounded() {
			continue
		}

		if slices.ContainsFunc(
			refs,
			func(ref slotRef) bool {
				return ref.resource == res
			},
		) {
			continue
		}

		minSlot, maxSlot := 1, res.Capacity

		if slot, isAssigned := task.ScheduledResources[res.Name]; isAssigned && task.ScheduledStart != nil {
			if slot < 1 || slot > res.Capacity {
				return goerrors.ErrValidation{
					Caller: "BuildModel",
					Issue: goerrors.ErrInvalidInput{
						InputName:  fmt.Sprintf("Task %q - slot of %s", task.Name, res.Name),
						InputValue: slot,
					},
				}
			}

			minSlot, maxSlot = slot, slot
		}

		refs = append(
			refs,
			slotRef{
				resource: res,
				slotVar:  c.Model.AddSlot(ix, res.Name, minSlot, maxSlot),
			},
		)
	}

	c.slotsOf = append(c.slotsOf, refs)

	return nil
}

func (c *CompiledModel) slotVarOf(interval int, res *Resource) int {
	for _, ref := range c.slotsOf[interval] {
		if ref.resource == res {
			return ref.slotVar
		}
	}

	return -1
}

// addResourceConstraints emits one NoOverlap per unary resource and
// pairwise slot exclusions for resources with several slots.
func (c *CompiledModel) addResourceConstraints() {
	for _, res := range c.resources {
		if res.IsUnbounded() {
			continue
		}

		var users []int

		for ix, task := range c.Tasks {
			if task.Uses(res) {
				users = append(users, ix)
			}
		}

		if len(users) < 2 {
			continue
		}

		if res.IsUnary() {
			c.Model.NoOverlaps = append(
				c.Model.NoOverlaps,
				NoOverlap{
					Resource:  res.Name,
					Intervals: users,
				},
			)

			continue
		}

		for i := 0; i < len(users); i++ {
			for j := i + 1; j < len(users); j++ {
				c.Model.SlotExclusions = append(
					c.Model.SlotExclusions,
					SlotExclusion{
						Resource:  res.Name,
						IntervalA: users[i],
						IntervalB: users[j],
						SlotA:     c.slotVarOf(users[i], res),
						SlotB:     c.slotVarOf(users[j], res),
					},
				)
			}
		}
	}
}

// addFollows adds precedence and max wait constraints.
// Predecessors left out of the model must be scheduled and act as constant bounds.
func (c *CompiledModel) addFollows() error {
	for ix, task := range c.Tasks {
		for _, predecessor := range task.Follows {
			if predecessor == nil {
				return goerrors.ErrValidation{
					Caller: "BuildModel",
					Issue: goerrors.ErrNilInput{
						InputName: fmt.Sprintf("Task %q - follows element", task.Name),
					},
				}
			}

			if ixPredecessor, isModeled := c.intervalOf[predecessor]; isModeled {
				c.Model.AddPrecedence(ixPredecessor, ix)

				if task.MaxWait != nil {
					c.Model.AddMaxDelay(ixPredecessor, ix, predecessor.Duration+*task.MaxWait)
				}

				continue
			}

			end, isScheduled := predecessor.ScheduledEnd()
			if !isScheduled {
				return fmt.Errorf(
					"predecessor %q of task %q is neither part of the solve nor scheduled",
					predecessor.Name,
					task.Name,
				)
			}

			c.Model.RestrictMin(ix, end)

			if task.MaxWait != nil {
				c.Model.RestrictMax(ix, end+*task.MaxWait)
			}
		}
	}

	return nil
}

func (c *CompiledModel) addWorkUnits(workUnits []*WorkUnit) error {
	for _, wu := range workUnits {
		for ix := 1; ix < len(wu.Tasks); ix++ {
			c.Model.AddPrecedence(
				c.intervalOf[wu.Tasks[ix-1]],
				c.intervalOf[wu.Tasks[ix]],
			)
		}

		for _, relation := range wu.Relations {
			from, errFrom := wu.TaskByName(relation.From)
			if errFrom != nil {
				return fmt.Errorf("work unit %q: %w", wu.Name, errFrom)
			}

			to, errTo := wu.TaskByName(relation.To)
			if errTo != nil {
				return fmt.Errorf("work unit %q: %w", wu.Name, errTo)
			}

			ixFrom, ixTo := c.intervalOf[from], c.intervalOf[to]

			switch relation.Kind {
			case RelationAtLeast:
				c.Model.AddDifference(ixFrom, ixTo, relation.Offset)

			case RelationAtMost:
				c.Model.AddMaxDelay(ixFrom, ixTo, relation.Offset)

			case RelationEquals:
				c.Model.AddEquals(ixFrom, ixTo, relation.Offset)

			default:
				return fmt.Errorf(
					"work unit %q: unknown relation kind %s",
					wu.Name,
					relation.Kind,
				)
			}
		}

		first := c.intervalOf[wu.First()]

		for _, parent := range wu.Parents {
			if parent == nil || len(parent.Tasks) == 0 {
				return fmt.Errorf("work unit %q: empty parent", wu.Name)
			}

			if ixParent, isModeled := c.intervalOf[parent.Last()]; isModeled {
				c.Model.AddPrecedence(ixParent, first)

				continue
			}

			end, isScheduled := parent.Last().ScheduledEnd()
			if !isScheduled {
				return fmt.Errorf(
					"parent %q of work unit %q is neither part of the solve nor scheduled",
					parent.Name,
					wu.Name,
				)
			}

			c.Model.RestrictMin(first, end)
		}

		if wu.ScheduledStart != nil {
			c.Model.Fix(first, *wu.ScheduledStart)
		}
	}

	return nil
}
