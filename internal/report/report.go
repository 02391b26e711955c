// Package report renders schedules as text tables.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/TudorHulban/taskpacker"
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Schedule writes one row per scheduled task, ordered by start.
func Schedule(w io.Writer, tasks []*taskpacker.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Task", "Start", "End", "Duration", "Resources", "Lateness", "Color"})

	var makespan, lateness int64

	for _, row := range loader.ScheduledTasks(tasks) {
		tw.AppendRow(
			table.Row{
				row.Name,
				row.Start,
				row.End,
				row.Duration,
				slotsString(row.Resources),
				row.Lateness,
				row.Color,
			},
		)

		makespan = max(makespan, row.End)
		lateness += row.Lateness
	}

	tw.AppendFooter(table.Row{"", "", makespan, "", "", lateness, ""})
	tw.Render()
}

// Occupancy writes one row per resource slot with its busy time and the
// free gaps up to the makespan.
func Occupancy(w io.Writer, tasks []*taskpacker.Task, resources []*taskpacker.Resource) {
	var makespan int64

	for _, task := range tasks {
		if end, isScheduled := task.ScheduledEnd(); isScheduled {
			makespan = max(makespan, end)
		}
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Resource", "Slot", "Tasks", "Busy", "Utilization", "Free"})

	horizon := taskpacker.TimeInterval{TimeStart: 0, TimeEnd: makespan}

	for _, res := range resources {
		occupancy := taskpacker.OccupancyOf(tasks, res)

		slots := make([]int, 0, len(occupancy))
		for slot := range occupancy {
			slots = append(slots, slot)
		}

		slices.Sort(slots)

		for _, slot := range slots {
			busy := make([]taskpacker.TimeInterval, len(occupancy[slot]))
			names := make([]string, len(occupancy[slot]))

			var busyTime int64

			for ix, entry := range occupancy[slot] {
				busy[ix] = entry.Interval
				names[ix] = entry.Task.Name
				busyTime += entry.Interval.Duration()
			}

			tw.AppendRow(
				table.Row{
					res.Name,
					slot,
					strings.Join(names, ", "),
					busyTime,
					utilization(busyTime, makespan),
					freeString(busy, horizon),
				},
			)
		}
	}

	tw.Render()
}

// Failures lists the processes the series scheduler could not place.
func Failures(w io.Writer, failures []*taskpacker.SchedulingFailure) {
	if len(failures) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Process", "Trials", "Lower bound", "Upper bound", "Error"})

	for _, failure := range failures {
		tw.AppendRow(
			table.Row{
				failure.ProcessIndex,
				failure.Trials,
				failure.LowerBound,
				failure.UpperBound,
				failure.Err,
			},
		)
	}

	tw.Render()
}

// Bounds shows how the series window moved after every placed process.
func Bounds(w io.Writer, history []taskpacker.SeriesBounds) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Process", "Lower bound", "Upper bound"})

	for _, bounds := range history {
		tw.AppendRow(table.Row{bounds.ProcessIndex, bounds.LowerBound, bounds.UpperBound})
	}

	tw.Render()
}

func slotsString(slots map[string]int) string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}

	slices.Sort(names)

	parts := make([]string, len(names))

	for ix, name := range names {
		if slots[name] == 0 {
			parts[ix] = name

			continue
		}

		parts[ix] = fmt.Sprintf("%s#%d", name, slots[name])
	}

	return strings.Join(parts, " ")
}

func utilization(busy, makespan int64) string {
	if makespan == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", 100*float64(busy)/float64(makespan))
}

func freeString(busy []taskpacker.TimeInterval, horizon taskpacker.TimeInterval) string {
	free, isFree := taskpacker.FreeIntervals(busy, horizon)
	if isFree {
		return horizon.String()
	}

	if len(free) == 0 {
		return "-"
	}

	parts := make([]string, len(free))

	for ix, interval := range free {
		parts[ix] = interval.String()
	}

	return strings.Join(parts, " ")
}
