package runner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/TudorHulban/taskpacker"
	"github.com/TudorHulban/taskpacker/internal/config"
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/TudorHulban/taskpacker/internal/store"
	"github.com/stretchr/testify/require"
)

const laundry = `
resources:
  - name: washer
  - name: dryer
processes:
  - name: P
    repeat: 3
    tasks:
      - name: wash
        resources: [washer]
        duration: 10
      - name: dry
        resources: [dryer]
        duration: 20
        follows: [wash]
        max_wait: 5
`

const bench = `
resources:
  - name: bob
tasks:
  - name: short
    resources: [bob]
    duration: 20
  - name: long
    resources: [bob]
    duration: 40
`

func settings() *config.Config {
	cfg := config.Default()
	cfg.Solver.TimeLimit = 5 * time.Second

	return cfg
}

func parse(t *testing.T, doc string) *loader.Plan {
	t.Helper()

	plan, err := loader.Parse([]byte(doc))
	require.NoError(t, err)

	return plan
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run(
		"1. solve mode",
		func(t *testing.T) {
			result, errRun := Run(
				ctx,
				&Params{
					Plan:     parse(t, bench),
					Settings: settings(),
				},
			)
			require.NoError(t, errRun)
			require.Equal(t, ModeSolve, result.Mode)
			require.Equal(t, taskpacker.StatusOptimal.String(), result.Status)
			require.Equal(t, int64(60), result.Makespan)
			require.NoError(t, taskpacker.VerifySchedule(result.Tasks))
		},
	)

	t.Run(
		"2. series mode",
		func(t *testing.T) {
			plan := parse(t, laundry)

			result, errRun := Run(
				ctx,
				&Params{
					Plan:     plan,
					Settings: settings(),
					Mode:     ModeSeries,
				},
			)
			require.NoError(t, errRun)
			require.Equal(t, "complete", result.Status)
			require.Len(t, result.Tasks, 6)
			require.Len(t, result.Bounds, 3)
			require.Equal(t, int64(70), result.Makespan)
			require.Equal(t, int64(10+30+25+50+45+70), result.Objective, "sum of task ends, nothing is late")
			require.NoError(t, taskpacker.VerifySchedule(result.Tasks))

			// the plan keeps its unscheduled tasks
			require.False(t, plan.Processes[0][0].IsScheduled())
		},
	)

	t.Run(
		"3. invalid params",
		func(t *testing.T) {
			_, errMode := Run(ctx, &Params{Plan: parse(t, bench), Settings: settings(), Mode: "batch"})
			require.Error(t, errMode)

			_, errPlan := Run(ctx, &Params{Settings: settings()})
			require.Error(t, errPlan)

			_, errPolicy := Run(ctx, &Params{Plan: parse(t, bench), Settings: settings(), WindowPolicy: "clamp"})
			require.Error(t, errPolicy)
		},
	)

	t.Run(
		"4. infeasible horizon",
		func(t *testing.T) {
			_, errRun := Run(
				ctx,
				&Params{
					Plan:       parse(t, bench),
					Settings:   settings(),
					UpperBound: 50,
				},
			)
			require.ErrorIs(t, errRun, taskpacker.ErrInfeasible)
		},
	)
}

func TestResultSave(t *testing.T) {
	ctx := context.Background()

	s, errOpen := store.Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, errOpen)

	defer s.Close()

	result, errRun := Run(ctx, &Params{Plan: parse(t, bench), Settings: settings()})
	require.NoError(t, errRun)

	saved, errSave := result.Save(ctx, s, "bench")
	require.NoError(t, errSave)

	run, errGet := s.GetRun(ctx, saved.ID)
	require.NoError(t, errGet)
	require.Equal(t, store.KindSolve, run.Kind)
	require.Equal(t, int64(60), run.Makespan)
	require.Len(t, run.Entries, 2)
}
