package taskpacker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTasks(t *testing.T) {
	bob := newTestResource(t, "bob", 1)

	t.Run(
		"1. chain is accepted",
		func(t *testing.T) {
			a := newTestTask(t, &ParamsNewTask{Name: "a", Resources: []*Resource{bob}, Duration: 1})
			b := newTestTask(t, &ParamsNewTask{Name: "b", Resources: []*Resource{bob}, Duration: 1, Follows: []*Task{a}})
			c := newTestTask(t, &ParamsNewTask{Name: "c", Resources: []*Resource{bob}, Duration: 1, Follows: []*Task{a, b}})

			require.NoError(t, ValidateTasks([]*Task{c, b, a}))
		},
	)

	t.Run(
		"2. cycle is rejected with a witness",
		func(t *testing.T) {
			a := newTestTask(t, &ParamsNewTask{Name: "a", Resources: []*Resource{bob}, Duration: 1})
			b := newTestTask(t, &ParamsNewTask{Name: "b", Resources: []*Resource{bob}, Duration: 1, Follows: []*Task{a}})
			c := newTestTask(t, &ParamsNewTask{Name: "c", Resources: []*Resource{bob}, Duration: 1, Follows: []*Task{b}})
			a.Follows = []*Task{c}

			errValidate := ValidateTasks([]*Task{a, b, c})
			require.ErrorIs(t, errValidate, ErrCycle)

			var errCycle *CycleError
			require.True(t, errors.As(errValidate, &errCycle))
			require.GreaterOrEqual(t, len(errCycle.Path), 3)
		},
	)

	t.Run(
		"3. self loop",
		func(t *testing.T) {
			a := newTestTask(t, &ParamsNewTask{Name: "a", Resources: []*Resource{bob}, Duration: 1})
			a.Follows = []*Task{a}

			require.ErrorIs(t, ValidateTasks([]*Task{a}), ErrCycle)
		},
	)
}

func TestValidateWorkUnits(t *testing.T) {
	bob := newTestResource(t, "bob", 1)

	newUnit := func(name string) *WorkUnit {
		wu, errCr := NewWorkUnit(
			&ParamsNewWorkUnit{
				Name: name,
				Tasks: []*Task{
					newTestTask(t, &ParamsNewTask{Name: name + "_1", Resources: []*Resource{bob}, Duration: 1}),
					newTestTask(t, &ParamsNewTask{Name: name + "_2", Resources: []*Resource{bob}, Duration: 1}),
				},
			},
		)
		require.NoError(t, errCr)

		return wu
	}

	first := newUnit("first")
	second := newUnit("second")
	second.Parents = []*WorkUnit{first}

	require.NoError(t, ValidateWorkUnits([]*WorkUnit{first, second}))

	first.Parents = []*WorkUnit{second}

	require.ErrorIs(t, ValidateWorkUnits([]*WorkUnit{first, second}), ErrCycle)
}
