package taskpacker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildModel(t *testing.T) {
	bob := newTestResource(t, "bob", 1)
	alice := newTestResource(t, "alice", 2)
	tools := newTestResource(t, "tools", CapacityUnbounded)

	t.Run(
		"1. variables and resource constraints",
		func(t *testing.T) {
			clean := newTestTask(t, &ParamsNewTask{Name: "clean", Resources: []*Resource{bob}, Duration: 20})
			visit := newTestTask(t, &ParamsNewTask{Name: "visit", Resources: []*Resource{alice}, Duration: 60})
			cook := newTestTask(t, &ParamsNewTask{Name: "cook", Resources: []*Resource{alice, tools}, Duration: 30})
			dice := newTestTask(
				t,
				&ParamsNewTask{
					Name:      "dice",
					Resources: []*Resource{bob},
					Duration:  40,
					Follows:   []*Task{cook, clean},
					MaxWait:   Ptr(int64(10)),
				},
			)
			feed := newTestTask(
				t,
				&ParamsNewTask{
					Name:      "feed",
					Resources: []*Resource{alice, bob},
					Duration:  50,
					Follows:   []*Task{dice},
				},
			)

			compiled, errBuild := BuildModel(
				&ParamsBuildModel{
					Tasks:      []*Task{clean, visit, cook, dice, feed},
					UpperBound: 500,
					Optimize:   true,
				},
			)
			require.NoError(t, errBuild)

			model := compiled.Model
			require.Len(t, model.Intervals, 5)
			require.Len(t, model.Slots, 6, "no slot for the unbounded resource")

			require.Len(t, model.NoOverlaps, 1)
			require.Equal(t, "bob", model.NoOverlaps[0].Resource)
			require.ElementsMatch(t, []int{0, 3, 4}, model.NoOverlaps[0].Intervals)

			require.Len(t, model.SlotExclusions, 3, "pairs among visit, cook, feed")

			// 3 precedences, 2 max waits
			require.Len(t, model.Differences, 5)

			for _, interval := range model.Intervals {
				require.Equal(t, int64(0), interval.Min)
				require.Equal(t, int64(500), interval.Max)
			}

			require.NotNil(t, model.Objective)
			require.Len(t, model.Objective.Finish, 5)
			require.Empty(t, model.Objective.Lateness)
		},
	)

	t.Run(
		"2. committed task has singleton domains",
		func(t *testing.T) {
			committed := newTestTask(
				t,
				&ParamsNewTask{
					Name:               "committed",
					Resources:          []*Resource{alice},
					Duration:           10,
					ScheduledStart:     Ptr(int64(7)),
					ScheduledResources: map[string]int{"alice": 2},
				},
			)
			free := newTestTask(t, &ParamsNewTask{Name: "free", Resources: []*Resource{alice}, Duration: 10})

			compiled, errBuild := BuildModel(
				&ParamsBuildModel{
					Tasks:      []*Task{committed, free},
					LowerBound: Ptr(int64(5)),
					UpperBound: 50,
				},
			)
			require.NoError(t, errBuild)

			require.Equal(t, IntervalVar{Name: "committed", Min: 7, Max: 7, Duration: 10}, compiled.Model.Intervals[0])
			require.Equal(t, IntervalVar{Name: "free", Min: 5, Max: 50, Duration: 10}, compiled.Model.Intervals[1])

			require.Equal(t, 2, compiled.Model.Slots[0].Min)
			require.Equal(t, 2, compiled.Model.Slots[0].Max)
			require.Equal(t, 1, compiled.Model.Slots[1].Min)
			require.Equal(t, 2, compiled.Model.Slots[1].Max)
		},
	)

	t.Run(
		"3. hard due time when not optimizing",
		func(t *testing.T) {
			task := newTestTask(
				t,
				&ParamsNewTask{
					Name:      "due",
					Resources: []*Resource{bob},
					Duration:  30,
					DueTime:   Ptr(int64(100)),
				},
			)

			compiled, errBuild := BuildModel(
				&ParamsBuildModel{
					Tasks:      []*Task{task},
					UpperBound: 500,
				},
			)
			require.NoError(t, errBuild)
			require.Nil(t, compiled.Model.Objective)
			require.Equal(t, int64(69), compiled.Model.Intervals[0].Max, "finish strictly before due")
		},
	)

	t.Run(
		"4. scheduled predecessor outside the model becomes a bound",
		func(t *testing.T) {
			before := newTestTask(
				t,
				&ParamsNewTask{
					Name:           "before",
					Resources:      []*Resource{bob},
					Duration:       30,
					ScheduledStart: Ptr(int64(0)),
				},
			)
			after := newTestTask(
				t,
				&ParamsNewTask{
					Name:      "after",
					Resources: []*Resource{bob},
					Duration:  10,
					Follows:   []*Task{before},
					MaxWait:   Ptr(int64(5)),
				},
			)

			compiled, errBuild := BuildModel(
				&ParamsBuildModel{
					Tasks:      []*Task{after},
					UpperBound: 500,
				},
			)
			require.NoError(t, errBuild)
			require.Equal(t, int64(30), compiled.Model.Intervals[0].Min)
			require.Equal(t, int64(35), compiled.Model.Intervals[0].Max)
		},
	)

	t.Run(
		"5. unscheduled predecessor outside the model",
		func(t *testing.T) {
			before := newTestTask(t, &ParamsNewTask{Name: "before", Resources: []*Resource{bob}, Duration: 30})
			after := newTestTask(
				t,
				&ParamsNewTask{
					Name:      "after",
					Resources: []*Resource{bob},
					Duration:  10,
					Follows:   []*Task{before},
				},
			)

			_, errBuild := BuildModel(
				&ParamsBuildModel{
					Tasks:      []*Task{after},
					UpperBound: 500,
				},
			)
			require.Error(t, errBuild)
		},
	)

	t.Run(
		"6. invalid input",
		func(t *testing.T) {
			_, errNil := BuildModel(nil)
			require.Error(t, errNil)

			_, errEmpty := BuildModel(&ParamsBuildModel{UpperBound: 10})
			require.Error(t, errEmpty)

			twin := &Resource{Name: "bob", Capacity: 1}

			_, errTwin := BuildModel(
				&ParamsBuildModel{
					Tasks: []*Task{
						newTestTask(t, &ParamsNewTask{Name: "a", Resources: []*Resource{bob}, Duration: 1}),
						newTestTask(t, &ParamsNewTask{Name: "b", Resources: []*Resource{twin}, Duration: 1}),
					},
					UpperBound: 10,
				},
			)
			require.Error(t, errTwin, "two resources named bob")

			_, errSlot := BuildModel(
				&ParamsBuildModel{
					Tasks: []*Task{
						newTestTask(
							t,
							&ParamsNewTask{
								Name:               "a",
								Resources:          []*Resource{alice},
								Duration:           1,
								ScheduledStart:     Ptr(int64(0)),
								ScheduledResources: map[string]int{"alice": 3},
							},
						),
					},
					UpperBound: 10,
				},
			)
			require.Error(t, errSlot, "slot above capacity")
		},
	)

	t.Run(
		"7. work units",
		func(t *testing.T) {
			a1 := newTestTask(t, &ParamsNewTask{Name: "a1", Resources: []*Resource{bob}, Duration: 10})
			a2 := newTestTask(t, &ParamsNewTask{Name: "a2", Resources: []*Resource{alice}, Duration: 10})
			b1 := newTestTask(t, &ParamsNewTask{Name: "b1", Resources: []*Resource{bob}, Duration: 5})

			parent, errParent := NewWorkUnit(
				&ParamsNewWorkUnit{
					Name:      "parent",
					Tasks:     []*Task{a1, a2},
					Relations: GapRelations(a1, "a2", Ptr(int64(5)), Ptr(int64(10))),
					DueTime:   Ptr(int64(60)),
					Priority:  2,
				},
			)
			require.NoError(t, errParent)

			child, errChild := NewWorkUnit(
				&ParamsNewWorkUnit{
					Name:           "child",
					Tasks:          []*Task{b1},
					Parents:        []*WorkUnit{parent},
					ScheduledStart: Ptr(int64(40)),
				},
			)
			require.NoError(t, errChild)

			compiled, errBuild := BuildModel(
				&ParamsBuildModel{
					WorkUnits:  []*WorkUnit{parent, child},
					UpperBound: 100,
					Optimize:   true,
				},
			)
			require.NoError(t, errBuild)

			// chain, at least, at most, parent
			require.Len(t, compiled.Model.Differences, 4)
			require.Equal(t, int64(40), compiled.Model.Intervals[2].Min)
			require.Equal(t, int64(40), compiled.Model.Intervals[2].Max)

			require.Equal(t,
				[]LatenessTerm{{Interval: 1, DueTime: 60, Weight: 2}},
				compiled.Model.Objective.Lateness,
			)
		},
	)
}
