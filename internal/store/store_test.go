package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/TudorHulban/taskpacker"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func scheduledTasks(t *testing.T) []*taskpacker.Task {
	t.Helper()

	press, errPress := taskpacker.NewResource(&taskpacker.ParamsNewResource{Name: "press", Capacity: 2})
	require.NoError(t, errPress)

	stamp, errStamp := taskpacker.NewTask(
		&taskpacker.ParamsNewTask{
			Name:               "stamp",
			Resources:          []*taskpacker.Resource{press},
			Duration:           12,
			ScheduledStart:     taskpacker.Ptr(int64(8)),
			ScheduledResources: map[string]int{"press": 2},
		},
	)
	require.NoError(t, errStamp)

	cut, errCut := taskpacker.NewTask(
		&taskpacker.ParamsNewTask{
			Name:               "cut",
			Resources:          []*taskpacker.Resource{press},
			Duration:           5,
			ScheduledStart:     taskpacker.Ptr(int64(0)),
			ScheduledResources: map[string]int{"press": 1},
		},
	)
	require.NoError(t, errCut)

	return []*taskpacker.Task{stamp, cut}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	t.Run(
		"1. save and get",
		func(t *testing.T) {
			saved, errSave := s.SaveRun(
				ctx,
				&ParamsSaveRun{
					Name:      "morning",
					Kind:      KindSolve,
					Status:    taskpacker.StatusOptimal.String(),
					Tasks:     scheduledTasks(t),
					Objective: 20,
				},
			)
			require.NoError(t, errSave)
			require.Len(t, saved.ID, 36)
			require.Equal(t, int64(20), saved.Makespan)

			run, errGet := s.GetRun(ctx, saved.ID)
			require.NoError(t, errGet)
			require.Equal(t, "morning", run.Name)
			require.Len(t, run.Entries, 2)
			require.Equal(t, "cut", run.Entries[0].Task)

			rows, errRows := run.ScheduledTasks()
			require.NoError(t, errRows)
			require.Equal(t, map[string]int{"press": 2}, rows[1].Resources)
			require.Equal(t, int64(20), rows[1].End)
		},
	)

	t.Run(
		"2. missing run",
		func(t *testing.T) {
			_, errGet := s.GetRun(ctx, "absent")
			require.ErrorIs(t, errGet, ErrNotFound)
		},
	)

	t.Run(
		"3. failures are summarized",
		func(t *testing.T) {
			saved, errSave := s.SaveRun(
				ctx,
				&ParamsSaveRun{
					Kind: KindSeries,
					Failures: []*taskpacker.SchedulingFailure{
						{Err: taskpacker.ErrInfeasible, ProcessIndex: 1, Trials: 2},
					},
				},
			)
			require.NoError(t, errSave)
			require.Equal(t, 1, saved.Failures)
			require.Contains(t, saved.Errors, taskpacker.ErrInfeasible.Error())
		},
	)

	t.Run(
		"4. list",
		func(t *testing.T) {
			runs, errList := s.ListRuns(ctx, 0)
			require.NoError(t, errList)
			require.Len(t, runs, 2)

			limited, errLimited := s.ListRuns(ctx, 1)
			require.NoError(t, errLimited)
			require.Len(t, limited, 1)
		},
	)

	t.Run(
		"5. unknown kind",
		func(t *testing.T) {
			_, errSave := s.SaveRun(ctx, &ParamsSaveRun{Kind: "batch"})
			require.Error(t, errSave)
		},
	)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "")
	require.Error(t, err)
}
