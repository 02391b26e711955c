package loader

import (
	"cmp"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/TudorHulban/taskpacker"
	"gopkg.in/yaml.v3"
)

// ScheduledTask is one row of a committed schedule.
type ScheduledTask struct {
	Name      string         `yaml:"name" json:"name"`
	Resources map[string]int `yaml:"resources" json:"resources" doc:"Resource name to slot, 0 for unbounded resources."`
	Color     string         `yaml:"color,omitempty" json:"color,omitempty"`

	Start    int64 `yaml:"start" json:"start"`
	End      int64 `yaml:"end" json:"end"`
	Duration int64 `yaml:"duration" json:"duration"`
	Lateness int64 `yaml:"lateness,omitempty" json:"lateness,omitempty"`
}

// ScheduledTasks lists the scheduled tasks ordered by start, then name.
// Unscheduled tasks are skipped.
func ScheduledTasks(tasks []*taskpacker.Task) []ScheduledTask {
	result := make([]ScheduledTask, 0, len(tasks))

	for _, task := range tasks {
		interval, isScheduled := task.Interval()
		if !isScheduled {
			continue
		}

		slots := make(map[string]int, len(task.Resources))

		for _, res := range task.Resources {
			slots[res.Name] = task.ScheduledResources[res.Name]
		}

		result = append(
			result,
			ScheduledTask{
				Name:      task.Name,
				Resources: slots,
				Color:     task.Color,

				Start:    interval.TimeStart,
				End:      interval.TimeEnd,
				Duration: task.Duration,
				Lateness: task.Lateness(),
			},
		)
	}

	slices.SortStableFunc(
		result,
		func(a, b ScheduledTask) int {
			return cmp.Or(
				cmp.Compare(a.Start, b.Start),
				cmp.Compare(a.Name, b.Name),
			)
		},
	)

	return result
}

// ExportDocument turns tasks into a document of standalone tasks that loads
// back into the same tasks, committed ones included.
// Task names must be unique for predecessors to resolve.
func ExportDocument(tasks []*taskpacker.Task) *Document {
	var result Document

	seen := make(map[*taskpacker.Resource]bool)

	for _, task := range tasks {
		for _, res := range task.Resources {
			if seen[res] {
				continue
			}

			seen[res] = true

			result.Resources = append(
				result.Resources,
				ResourceDoc{
					Name:     res.Name,
					FullName: res.FullName,
					Capacity: Capacity(res.Capacity),
				},
			)
		}

		result.Tasks = append(result.Tasks, taskDoc(task))
	}

	return &result
}

func taskDoc(task *taskpacker.Task) TaskDoc {
	result := TaskDoc{
		Name:     task.Name,
		Duration: task.Duration,

		MaxWait:  copyValue(task.MaxWait),
		DueTime:  copyValue(task.DueTime),
		Priority: task.Priority,
		Color:    task.Color,

		ScheduledStart:     copyValue(task.ScheduledStart),
		ScheduledResources: maps.Clone(task.ScheduledResources),
	}

	for _, res := range task.Resources {
		result.Resources = append(result.Resources, res.Name)
	}

	for _, predecessor := range task.Follows {
		result.Follows = append(result.Follows, predecessor.Name)
	}

	return result
}

func Export(tasks []*taskpacker.Task) ([]byte, error) {
	data, err := yaml.Marshal(ExportDocument(tasks))
	if err != nil {
		return nil, fmt.Errorf("loader: export: %w", err)
	}

	return data, nil
}

func WriteFile(path string, tasks []*taskpacker.Task) error {
	data, err := Export(tasks)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("loader: write %s: %w", path, err)
	}

	return nil
}
