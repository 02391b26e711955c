package taskpacker

import "fmt"

// IntervalVar is a task occupying [start, start+Duration) with start in [Min, Max].
type IntervalVar struct {
	Name string

	Min      int64
	Max      int64
	Duration int64
}

func (v *IntervalVar) IsFixed() bool {
	return v.Min == v.Max
}

// SlotVar picks one of the interchangeable channels of a resource for an interval.
type SlotVar struct {
	Resource string

	Interval int
	Min      int
	Max      int
}

func (v *SlotVar) IsFixed() bool {
	return v.Min == v.Max
}

// Difference requires start(To) >= start(From) + Offset.
type Difference struct {
	From   int
	To     int
	Offset int64
}

// NoOverlap forbids any two of its intervals from running at the same time.
type NoOverlap struct {
	Resource  string
	Intervals []int
}

// SlotExclusion requires intervals A and B to be disjoint in time
// or to use different slots.
type SlotExclusion struct {
	Resource string

	IntervalA int
	IntervalB int
	SlotA     int
	SlotB     int
}

type LatenessTerm struct {
	Interval int
	DueTime  int64
	Weight   int64
}

// Objective is Σ LatenessFactor * Weight * max(0, end - DueTime) + Σ end over Finish.
type Objective struct {
	Lateness []LatenessTerm
	Finish   []int

	LatenessFactor int64
}

// Evaluate computes the objective for the given start times.
func (o *Objective) Evaluate(intervals []IntervalVar, starts []int64) int64 {
	var result int64

	for _, term := range o.Lateness {
		end := starts[term.Interval] + intervals[term.Interval].Duration

		result = result + o.LatenessFactor*term.Weight*max(0, end-term.DueTime)
	}

	for _, ix := range o.Finish {
		result = result + starts[ix] + intervals[ix].Duration
	}

	return result
}

// Model is the contract handed to a Solver: integer start and slot variables,
// difference constraints, resource constraints and an optional objective to minimize.
type Model struct {
	Intervals      []IntervalVar
	Slots          []SlotVar
	Differences    []Difference
	NoOverlaps     []NoOverlap
	SlotExclusions []SlotExclusion

	Objective *Objective
}

func (m *Model) AddInterval(name string, minStart, maxStart, duration int64) int {
	m.Intervals = append(
		m.Intervals,
		IntervalVar{
			Name:     name,
			Min:      minStart,
			Max:      maxStart,
			Duration: duration,
		},
	)

	return len(m.Intervals) - 1
}

func (m *Model) AddSlot(interval int, resource string, minSlot, maxSlot int) int {
	m.Slots = append(
		m.Slots,
		SlotVar{
			Resource: resource,
			Interval: interval,
			Min:      minSlot,
			Max:      maxSlot,
		},
	)

	return len(m.Slots) - 1
}

// AddDifference adds start(to) >= start(from) + offset.
func (m *Model) AddDifference(from, to int, offset int64) {
	m.Differences = append(
		m.Differences,
		Difference{
			From:   from,
			To:     to,
			Offset: offset,
		},
	)
}

// AddPrecedence adds end(before) <= start(after).
func (m *Model) AddPrecedence(before, after int) {
	m.AddDifference(before, after, m.Intervals[before].Duration)
}

// AddMaxDelay adds start(to) <= start(from) + delay.
func (m *Model) AddMaxDelay(from, to int, delay int64) {
	m.AddDifference(to, from, -delay)
}

// AddEquals adds start(to) == start(from) + offset.
func (m *Model) AddEquals(from, to int, offset int64) {
	m.AddDifference(from, to, offset)
	m.AddMaxDelay(from, to, offset)
}

// RestrictMin narrows the start domain, it never widens it.
func (m *Model) RestrictMin(interval int, value int64) {
	m.Intervals[interval].Min = max(m.Intervals[interval].Min, value)
}

func (m *Model) RestrictMax(interval int, value int64) {
	m.Intervals[interval].Max = min(m.Intervals[interval].Max, value)
}

// Fix forces start(interval) == value. A value outside the current domain
// leaves an empty domain, reported as infeasible by the solver.
func (m *Model) Fix(interval int, value int64) {
	m.RestrictMin(interval, value)
	m.RestrictMax(interval, value)
}

func (m *Model) String() string {
	return fmt.Sprintf(
		"Model{intervals: %d, slots: %d, differences: %d, no overlaps: %d, slot exclusions: %d, optimize: %t}",

		len(m.Intervals),
		len(m.Slots),
		len(m.Differences),
		len(m.NoOverlaps),
		len(m.SlotExclusions),
		m.Objective != nil,
	)
}

type SolveStatus uint8

const (
	StatusUnknown SolveStatus = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusTimeout
)

func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"

	case StatusFeasible:
		return "feasible"

	case StatusInfeasible:
		return "infeasible"

	case StatusTimeout:
		return "timeout"
	}

	return "unknown"
}

// HasSolution reports whether Starts and Slots carry a usable assignment.
func (s SolveStatus) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

type Solution struct {
	Starts []int64 // per interval
	Slots  []int   // per slot variable

	Objective int64
	Status    SolveStatus
}
