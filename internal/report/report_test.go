package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/TudorHulban/taskpacker"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) ([]*taskpacker.Task, []*taskpacker.Resource) {
	t.Helper()

	oven, errOven := taskpacker.NewResource(&taskpacker.ParamsNewResource{Name: "oven", Capacity: 2})
	require.NoError(t, errOven)

	baker, errBaker := taskpacker.NewResource(&taskpacker.ParamsNewResource{Name: "baker", Capacity: taskpacker.CapacityUnbounded})
	require.NoError(t, errBaker)

	bread, errBread := taskpacker.NewTask(
		&taskpacker.ParamsNewTask{
			Name:               "bread",
			Resources:          []*taskpacker.Resource{oven, baker},
			Duration:           30,
			DueTime:            taskpacker.Ptr(int64(20)),
			ScheduledStart:     taskpacker.Ptr(int64(0)),
			ScheduledResources: map[string]int{"oven": 1},
		},
	)
	require.NoError(t, errBread)

	cake, errCake := taskpacker.NewTask(
		&taskpacker.ParamsNewTask{
			Name:               "cake",
			Resources:          []*taskpacker.Resource{oven},
			Duration:           10,
			ScheduledStart:     taskpacker.Ptr(int64(40)),
			ScheduledResources: map[string]int{"oven": 2},
		},
	)
	require.NoError(t, errCake)

	return []*taskpacker.Task{cake, bread},
		[]*taskpacker.Resource{oven, baker}
}

func TestSchedule(t *testing.T) {
	tasks, _ := fixture(t)

	var buf bytes.Buffer

	Schedule(&buf, tasks)

	out := buf.String()
	require.Contains(t, out, "bread")
	require.Contains(t, out, "baker oven#1")
	require.Contains(t, out, "oven#2")
	require.Less(t, bytes.Index(buf.Bytes(), []byte("bread")), bytes.Index(buf.Bytes(), []byte("cake")))
}

func TestOccupancy(t *testing.T) {
	tasks, resources := fixture(t)

	var buf bytes.Buffer

	Occupancy(&buf, tasks, resources)

	out := buf.String()
	require.Contains(t, out, "60.0%")
	require.Contains(t, out, "[30-50)")
	require.Contains(t, out, "[0-40)")
}

func TestFailures(t *testing.T) {
	var empty bytes.Buffer

	Failures(&empty, nil)
	require.Zero(t, empty.Len())

	var buf bytes.Buffer

	Failures(
		&buf,
		[]*taskpacker.SchedulingFailure{
			{
				Err:          errors.Join(taskpacker.ErrInfeasible),
				ProcessIndex: 3,
				Trials:       2,
				LowerBound:   10,
				UpperBound:   90,
			},
		},
	)
	require.Contains(t, buf.String(), taskpacker.ErrInfeasible.Error())
}
