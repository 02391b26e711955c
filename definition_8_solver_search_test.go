package taskpacker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchSolver(t *testing.T) {
	solver := NewSearchSolver()

	t.Run(
		"1. malformed models",
		func(t *testing.T) {
			_, errNil := solver.Solve(context.Background(), nil, nil)
			require.Error(t, errNil)

			model := Model{}
			model.AddInterval("a", 0, 10, 5)
			model.AddDifference(0, 3, 1)

			_, errIndex := solver.Solve(context.Background(), &model, nil)
			require.Error(t, errIndex)

			_, errLimit := solver.Solve(
				context.Background(),
				&Model{},
				&ParamsSolver{
					TimeLimit: -1,
				},
			)
			require.Error(t, errLimit)
		},
	)

	t.Run(
		"2. unary resource, feasibility only",
		func(t *testing.T) {
			model := Model{}
			a := model.AddInterval("a", 0, 100, 20)
			b := model.AddInterval("b", 0, 100, 40)
			model.AddSlot(a, "bob", 1, 1)
			model.AddSlot(b, "bob", 1, 1)
			model.NoOverlaps = append(
				model.NoOverlaps,
				NoOverlap{
					Resource:  "bob",
					Intervals: []int{a, b},
				},
			)

			solution, errSolve := solver.Solve(context.Background(), &model, nil)
			require.NoError(t, errSolve)
			require.Equal(t, StatusOptimal, solution.Status)
			require.Equal(t, []int64{0, 20}, solution.Starts)
			require.Equal(t, []int{1, 1}, solution.Slots)
		},
	)

	t.Run(
		"3. positive cycle of differences",
		func(t *testing.T) {
			model := Model{}
			a := model.AddInterval("a", 0, 1000, 10)
			b := model.AddInterval("b", 0, 1000, 10)
			model.AddPrecedence(a, b)
			model.AddPrecedence(b, a)

			solution, errSolve := solver.Solve(context.Background(), &model, nil)
			require.NoError(t, errSolve)
			require.Equal(t, StatusInfeasible, solution.Status)
			require.False(t, solution.Status.HasSolution())
		},
	)

	t.Run(
		"4. exhausted context reports timeout",
		func(t *testing.T) {
			model := Model{}
			model.AddInterval("a", 0, 10, 5)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			solution, errSolve := solver.Solve(ctx, &model, nil)
			require.NoError(t, errSolve)
			require.Equal(t, StatusTimeout, solution.Status)
		},
	)

	t.Run(
		"5. equal offsets",
		func(t *testing.T) {
			model := Model{}
			a := model.AddInterval("a", 3, 10, 5)
			b := model.AddInterval("b", 0, 20, 5)
			model.AddEquals(a, b, 7)

			solution, errSolve := solver.Solve(context.Background(), &model, nil)
			require.NoError(t, errSolve)
			require.Equal(t, []int64{3, 10}, solution.Starts)
		},
	)

	t.Run(
		"6. randomized search is reproducible with the same seed",
		func(t *testing.T) {
			build := func() *Model {
				model := Model{}

				for range 4 {
					ix := model.AddInterval("t", 0, 100, 10)
					model.AddSlot(ix, "alice", 1, 2)
				}

				for i := 0; i < 4; i++ {
					for j := i + 1; j < 4; j++ {
						model.SlotExclusions = append(
							model.SlotExclusions,
							SlotExclusion{
								Resource:  "alice",
								IntervalA: i,
								IntervalB: j,
								SlotA:     i,
								SlotB:     j,
							},
						)
					}
				}

				return &model
			}

			params := ParamsSolver{
				Randomized: true,
				Seed:       42,
			}

			first, errFirst := solver.Solve(context.Background(), build(), &params)
			require.NoError(t, errFirst)

			second, errSecond := solver.Solve(context.Background(), build(), &params)
			require.NoError(t, errSecond)

			require.Equal(t, first.Starts, second.Starts)
			require.Equal(t, first.Slots, second.Slots)
		},
	)

	t.Run(
		"7. maximum delay pushes the predecessor past a fixed interval",
		func(t *testing.T) {
			model := Model{}
			a := model.AddInterval("a", 0, 100, 2)
			b := model.AddInterval("b", 0, 100, 4)
			blocker := model.AddInterval("blocker", 0, 100, 3)
			model.Fix(blocker, 4)

			model.AddPrecedence(a, b)
			model.AddMaxDelay(a, b, 2+1)

			model.NoOverlaps = append(
				model.NoOverlaps,
				NoOverlap{
					Resource:  "bob",
					Intervals: []int{a, b, blocker},
				},
			)

			model.Objective = &Objective{
				Finish: []int{a, b},
			}

			solution, errSolve := solver.Solve(context.Background(), &model, nil)
			require.NoError(t, errSolve)
			require.Equal(t, StatusOptimal, solution.Status)
			require.Equal(t, []int64{7, 9, 4}, solution.Starts)
		},
	)
}
