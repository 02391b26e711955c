package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TudorHulban/taskpacker"
	"github.com/stretchr/testify/require"
)

const laundry = `
resources:
  - name: washer
  - name: dryer
    full_name: Tumble dryer
    capacity: 2
  - name: operator
    capacity: inf
tasks:
  - name: maintenance
    resources: [washer]
    duration: 15
    scheduled_start: 0
    scheduled_resources: {washer: 1}
processes:
  - name: batch
    repeat: 2
    color: green
    tasks:
      - name: wash
        resources: [washer, operator]
        duration: 10
        follows: [maintenance]
      - name: dry
        resources: [dryer]
        duration: 20
        follows: [wash]
        max_wait: 5
work_units:
  - name: order1
    due_time: 100
    tasks:
      - name: cut
        resources: [operator]
        duration: 5
      - name: pack
        resources: [operator]
        duration: 5
    relations:
      - {from: cut, to: pack, kind: at_least, offset: 10}
    gaps:
      - {from: cut, to: pack, max: 20}
  - name: order2
    parents: [order1]
    tasks:
      - name: ship
        resources: [operator]
        duration: 1
`

func TestParse(t *testing.T) {
	plan, errParse := Parse([]byte(laundry))
	require.NoError(t, errParse)

	require.Len(t, plan.Resources, 3)
	require.Equal(t, "Tumble dryer", plan.Resources[1].FullName)
	require.Equal(t, 2, plan.Resources[1].Capacity)
	require.True(t, plan.Resources[2].IsUnbounded())

	require.Len(t, plan.Tasks, 1)
	maintenance := plan.Tasks[0]
	require.True(t, maintenance.IsComplete())

	require.Len(t, plan.Processes, 2)
	require.Equal(t, "batch1_wash", plan.Processes[0][0].Name)
	require.Equal(t, "batch2_dry", plan.Processes[1][1].Name)
	require.Equal(t, []*taskpacker.Task{plan.Processes[0][0]}, plan.Processes[0][1].Follows)
	require.Equal(t, []*taskpacker.Task{maintenance}, plan.Processes[1][0].Follows)
	require.Equal(t, int64(5), *plan.Processes[1][1].MaxWait)
	require.Equal(t, "green", plan.Processes[1][1].Color)
	require.Equal(t, "blue", maintenance.Color)

	require.Len(t, plan.WorkUnits, 2)
	order1 := plan.WorkUnits[0]
	require.Len(t, order1.Relations, 2)
	require.Equal(t, taskpacker.RelationAtMost, order1.Relations[1].Kind)
	require.Equal(t, int64(25), order1.Relations[1].Offset)
	require.Equal(t, []*taskpacker.WorkUnit{order1}, plan.WorkUnits[1].Parents)

	require.Len(t, plan.AllTasks(), 8)
	require.Len(t, plan.ProcessTasks(), 4)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "1. unknown resource",
			doc:  "resources: [{name: a}]\ntasks: [{name: t, resources: [b], duration: 1}]\n",
		},
		{
			name: "2. unknown predecessor",
			doc:  "resources: [{name: a}]\ntasks: [{name: t, resources: [a], duration: 1, follows: [x]}]\n",
		},
		{
			name: "3. duplicate resource",
			doc:  "resources: [{name: a}, {name: a}]\n",
		},
		{
			name: "4. bad relation kind",
			doc: "resources: [{name: a}]\nwork_units:\n  - name: u\n    tasks: [{name: t, resources: [a], duration: 1}]\n" +
				"    relations: [{from: t, to: t, kind: sometimes}]\n",
		},
		{
			name: "5. parent declared later",
			doc: "resources: [{name: a}]\nwork_units:\n  - name: u1\n    parents: [u2]\n    tasks: [{name: t, resources: [a], duration: 1}]\n" +
				"  - name: u2\n    tasks: [{name: t, resources: [a], duration: 1}]\n",
		},
		{
			name: "6. zero duration",
			doc:  "resources: [{name: a}]\ntasks: [{name: t, resources: [a], duration: 0}]\n",
		},
		{
			name: "7. bad capacity",
			doc:  "resources: [{name: a, capacity: lots}]\n",
		},
		{
			name: "8. empty process",
			doc:  "resources: [{name: a}]\nprocesses: [{name: p}]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errParse := Parse([]byte(tt.doc))
			require.Error(t, errParse)
		})
	}
}

func TestExportRoundTrip(t *testing.T) {
	plan, errParse := Parse([]byte(laundry))
	require.NoError(t, errParse)

	tasks := append(plan.Tasks, plan.ProcessTasks()...)

	_, errSolve := taskpacker.SolveAndApply(
		context.Background(),
		&taskpacker.ParamsSolve{
			Tasks:      tasks,
			UpperBound: 200,
			Optimize:   true,
			TimeLimit:  5 * time.Second,
		},
	)
	require.NoError(t, errSolve)
	require.NoError(t, taskpacker.VerifySchedule(tasks))

	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, WriteFile(path, tasks))

	data, errRead := os.ReadFile(path)
	require.NoError(t, errRead)
	require.Contains(t, string(data), "capacity: inf")

	reloaded, errLoad := Load(path)
	require.NoError(t, errLoad)
	require.Len(t, reloaded.Tasks, len(tasks))
	require.NoError(t, taskpacker.VerifySchedule(reloaded.Tasks))

	for ix, task := range reloaded.Tasks {
		require.Equal(t, tasks[ix].Name, task.Name)
		require.Equal(t, *tasks[ix].ScheduledStart, *task.ScheduledStart)
		require.Len(t, task.Follows, len(tasks[ix].Follows))
	}

	rows := ScheduledTasks(reloaded.Tasks)
	require.Len(t, rows, len(tasks))
	require.Equal(t, "maintenance", rows[0].Name)

	for ix := 1; ix < len(rows); ix++ {
		require.LessOrEqual(t, rows[ix-1].Start, rows[ix].Start)
	}
}
