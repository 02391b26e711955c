package taskpacker

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Occupancy is one busy interval of a resource slot.
type Occupancy struct {
	Task     *Task
	Interval TimeInterval
	Slot     int // zero for unbounded resources
}

// OccupancyOf returns the busy intervals of the resource per slot, sorted by start.
// Unscheduled tasks are ignored.
func OccupancyOf(tasks []*Task, res *Resource) map[int][]Occupancy {
	result := make(map[int][]Occupancy)

	for _, task := range tasks {
		if !task.Uses(res) {
			continue
		}

		interval, isScheduled := task.Interval()
		if !isScheduled {
			continue
		}

		slot := task.ScheduledResources[res.Name]
		if res.IsUnbounded() {
			slot = 0
		}

		result[slot] = append(
			result[slot],
			Occupancy{
				Task:     task,
				Interval: interval,
				Slot:     slot,
			},
		)
	}

	for _, busy := range result {
		slices.SortFunc(
			busy,
			func(a, b Occupancy) int {
				if a.Interval.TimeStart < b.Interval.TimeStart {
					return -1
				}

				if a.Interval.TimeStart > b.Interval.TimeStart {
					return 1
				}

				return 0
			},
		)
	}

	return result
}

// FreeIntervals returns:
//   - (nil, true)   = fully available, nothing busy overlaps the search interval
//   - (free, false) = partially available
//   - (nil, false)  = fully booked
func FreeIntervals(busy []TimeInterval, search TimeInterval) ([]TimeInterval, bool) {
	sorted := slices.Clone(busy)

	slices.SortFunc(
		sorted,
		func(a, b TimeInterval) int {
			if a.TimeStart < b.TimeStart {
				return -1
			}

			if a.TimeStart > b.TimeStart {
				return 1
			}

			return 0
		},
	)

	var result []TimeInterval

	currentStart := search.TimeStart
	hasOverlap := false

	for _, interval := range sorted {
		if interval.TimeEnd <= currentStart {
			continue
		}

		if interval.TimeStart >= search.TimeEnd {
			break
		}

		hasOverlap = true

		if interval.TimeStart > currentStart {
			result = append(
				result,
				TimeInterval{
					TimeStart: currentStart,
					TimeEnd:   interval.TimeStart,
				},
			)
		}

		currentStart = max(currentStart, interval.TimeEnd)
	}

	if !hasOverlap {
		return nil,
			true
	}

	if currentStart < search.TimeEnd {
		result = append(
			result,
			TimeInterval{
				TimeStart: currentStart,
				TimeEnd:   search.TimeEnd,
			},
		)
	}

	return result,
		false
}

// OccupancyString renders the per slot schedule of a resource.
func OccupancyString(tasks []*Task, res *Resource) string {
	occupancy := OccupancyOf(tasks, res)

	if len(occupancy) == 0 {
		return fmt.Sprintf("%s schedule: (empty)", res.Name)
	}

	slots := make([]int, 0, len(occupancy))
	for slot := range occupancy {
		slots = append(slots, slot)
	}

	slices.Sort(slots)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s schedule:\n", res.Name))

	for _, slot := range slots {
		for _, busy := range occupancy[slot] {
			sb.WriteString(
				fmt.Sprintf(
					"- slot %d %s → %s\n",

					slot,
					busy.Interval,
					busy.Task.Name,
				),
			)
		}
	}

	return sb.String()
}

// VerifySchedule checks scheduled tasks against their own constraints:
// completeness, slot range, resource exclusion, precedence and max wait.
// All violations are joined in the returned error.
func VerifySchedule(tasks []*Task) error {
	var errs []error

	violation := func(format string, args ...any) {
		errs = append(
			errs,
			fmt.Errorf(
				"%s: %w",
				fmt.Sprintf(format, args...),
				ErrScheduleViolation,
			),
		)
	}

	resources := make([]*Resource, 0)
	complete := make([]*Task, 0, len(tasks))

	for _, task := range tasks {
		if !task.IsComplete() {
			errs = append(
				errs,
				fmt.Errorf(
					"task %q: %w",
					task.Name,
					ErrIncompleteSchedule,
				),
			)

			continue
		}

		complete = append(complete, task)

		for _, res := range task.Resources {
			if !slices.Contains(resources, res) {
				resources = append(resources, res)
			}
		}

		for _, predecessor := range task.Follows {
			predecessorEnd, isScheduled := predecessor.ScheduledEnd()
			if !isScheduled {
				violation("task %q follows unscheduled %q", task.Name, predecessor.Name)

				continue
			}

			if *task.ScheduledStart < predecessorEnd {
				violation(
					"task %q starts at %d before %q ends at %d",
					task.Name,
					*task.ScheduledStart,
					predecessor.Name,
					predecessorEnd,
				)
			}

			if task.MaxWait != nil && *task.ScheduledStart > predecessorEnd+*task.MaxWait {
				violation(
					"task %q starts at %d, more than %d after %q ends at %d",
					task.Name,
					*task.ScheduledStart,
					*task.MaxWait,
					predecessor.Name,
					predecessorEnd,
				)
			}
		}
	}

	for _, res := range resources {
		if res.IsUnbounded() {
			continue
		}

		for slot, busy := range OccupancyOf(complete, res) {
			latest := busy[0]

			for _, current := range busy[1:] {
				if latest.Interval.Overlaps(current.Interval) {
					violation(
						"resource %s slot %d: %q %s overlaps %q %s",
						res.Name,
						slot,
						latest.Task.Name,
						latest.Interval,
						current.Task.Name,
						current.Interval,
					)
				}

				if current.Interval.TimeEnd > latest.Interval.TimeEnd {
					latest = current
				}
			}
		}
	}

	return errors.Join(errs...)
}
