package taskpacker

import (
	"context"
	"math"
	"math/rand"
	"slices"
)

// SearchSolver is a set-times branch and bound search.
// It repeatedly takes the unfixed interval with the smallest earliest start and either
// fixes it at its earliest conflict-free start or postpones it.
// Bounds are kept consistent with the difference constraints after every decision.
// Postponed intervals are only revisited when the model bounds a delay between
// intervals, otherwise a node with only postponed intervals left is a dead end.
type SearchSolver struct{}

func NewSearchSolver() *SearchSolver {
	return &SearchSolver{}
}

var _ Solver = &SearchSolver{}

type searchState struct {
	lo []int64
	hi []int64

	slotLo []int
	slotHi []int

	fixed     []bool
	postponed []bool
}

func (st *searchState) clone() *searchState {
	return &searchState{
		lo:        slices.Clone(st.lo),
		hi:        slices.Clone(st.hi),
		slotLo:    slices.Clone(st.slotLo),
		slotHi:    slices.Clone(st.slotHi),
		fixed:     slices.Clone(st.fixed),
		postponed: slices.Clone(st.postponed),
	}
}

type search struct {
	model  *Model
	params *ParamsSolver
	random *rand.Rand

	slotsOf      [][]int // interval | slot variables
	unariesOf    [][]int // interval | NoOverlap constraints
	exclusionsOf [][]int // slot variable | SlotExclusion constraints
	resourceOf   map[string][]int

	best *Solution

	// a negative offset bounds how long an interval may wait after another one
	hasMaxDelay bool

	nodes       int
	isTimedOut  bool
	isSatisfied bool
}

func (s *SearchSolver) Solve(ctx context.Context, model *Model, params *ParamsSolver) (*Solution, error) {
	if params == nil {
		params = &ParamsSolver{}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	if errModel := validateModel(model); errModel != nil {
		return nil,
			errModel
	}

	if params.TimeLimit > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit)
		defer cancel()
	}

	engine := newSearch(model, params)

	params.logf(
		"search: %s",
		model,
	)

	engine.explore(ctx, engine.initialState())

	result := engine.solution()

	params.logf(
		"search: status %s, objective %d, nodes %d",
		result.Status,
		result.Objective,
		engine.nodes,
	)

	return result,
		nil
}

func newSearch(model *Model, params *ParamsSolver) *search {
	result := search{
		model:        model,
		params:       params,
		slotsOf:      make([][]int, len(model.Intervals)),
		unariesOf:    make([][]int, len(model.Intervals)),
		exclusionsOf: make([][]int, len(model.Slots)),
		resourceOf:   make(map[string][]int),
	}

	if params.Randomized {
		result.random = rand.New(rand.NewSource(params.Seed))
	}

	for ix, slot := range model.Slots {
		result.slotsOf[slot.Interval] = append(result.slotsOf[slot.Interval], ix)
		result.resourceOf[slot.Resource] = append(result.resourceOf[slot.Resource], ix)
	}

	for ix, unary := range model.NoOverlaps {
		for _, interval := range unary.Intervals {
			result.unariesOf[interval] = append(result.unariesOf[interval], ix)
		}
	}

	for ix, exclusion := range model.SlotExclusions {
		result.exclusionsOf[exclusion.SlotA] = append(result.exclusionsOf[exclusion.SlotA], ix)
		result.exclusionsOf[exclusion.SlotB] = append(result.exclusionsOf[exclusion.SlotB], ix)
	}

	result.hasMaxDelay = slices.ContainsFunc(
		model.Differences,
		func(difference Difference) bool {
			return difference.Offset < 0
		},
	)

	return &result
}

func (s *search) initialState() *searchState {
	result := searchState{
		lo:        make([]int64, len(s.model.Intervals)),
		hi:        make([]int64, len(s.model.Intervals)),
		slotLo:    make([]int, len(s.model.Slots)),
		slotHi:    make([]int, len(s.model.Slots)),
		fixed:     make([]bool, len(s.model.Intervals)),
		postponed: make([]bool, len(s.model.Intervals)),
	}

	for ix, interval := range s.model.Intervals {
		result.lo[ix] = interval.Min
		result.hi[ix] = interval.Max
	}

	for ix, slot := range s.model.Slots {
		result.slotLo[ix] = slot.Min
		result.slotHi[ix] = slot.Max
	}

	return &result
}

func (s *search) solution() *Solution {
	if s.best != nil {
		s.best.Status = ternary(s.isTimedOut, StatusFeasible, StatusOptimal)

		return s.best
	}

	return &Solution{
		Status: ternary(s.isTimedOut, StatusTimeout, StatusInfeasible),
	}
}

func (s *search) isFinished() bool {
	return s.isTimedOut || s.isSatisfied
}

func (s *search) explore(ctx context.Context, st *searchState) {
	if s.isFinished() {
		return
	}

	s.nodes++

	if ctx.Err() != nil {
		s.isTimedOut = true

		return
	}

	if !s.propagate(st) {
		return
	}

	if s.model.Objective != nil && s.best != nil &&
		s.model.Objective.Evaluate(s.model.Intervals, st.lo) >= s.best.Objective {
		return
	}

	interval := s.selectInterval(st)
	if interval < 0 && s.hasMaxDelay && slices.Contains(st.fixed, false) {
		// a postponed interval may have to start later to stay within the
		// maximum delay of a successor fixed after it
		clear(st.postponed)

		interval = s.selectInterval(st)
	}

	if interval < 0 {
		if !slices.Contains(st.fixed, false) {
			s.record(st)
		}

		// remaining intervals are all postponed, delaying them further cannot help
		return
	}

	start, canStart := s.earliestStart(st, interval)
	if !canStart {
		return
	}

	for _, slots := range s.slotCombinations(st, interval, start) {
		child := st.clone()
		child.lo[interval] = start
		child.hi[interval] = start
		child.fixed[interval] = true

		for ix, slotVar := range s.slotsOf[interval] {
			child.slotLo[slotVar] = slots[ix]
			child.slotHi[slotVar] = slots[ix]
		}

		clear(child.postponed)

		s.explore(ctx, child)

		if s.isFinished() {
			return
		}
	}

	if start >= st.hi[interval] {
		return
	}

	child := st.clone()
	child.lo[interval] = start + 1
	child.postponed[interval] = true

	s.explore(ctx, child)
}

// propagate narrows bounds until every difference constraint holds on them.
// A positive cycle keeps changing bounds, so rounds are capped like Bellman-Ford.
func (s *search) propagate(st *searchState) bool {
	for round := 0; round <= len(st.lo); round++ {
		var isChanged bool

		for _, difference := range s.model.Differences {
			if value := st.lo[difference.From] + difference.Offset; value > st.lo[difference.To] {
				st.lo[difference.To] = value
				isChanged = true
			}

			if value := st.hi[difference.To] - difference.Offset; value < st.hi[difference.From] {
				st.hi[difference.From] = value
				isChanged = true
			}
		}

		for ix := range st.lo {
			if st.lo[ix] > st.hi[ix] {
				return false
			}
		}

		for ix := range st.slotLo {
			if st.slotLo[ix] > st.slotHi[ix] {
				return false
			}
		}

		if !isChanged {
			return true
		}
	}

	return false
}

func (s *search) selectInterval(st *searchState) int {
	result := -1
	var ties int

	for ix := range st.lo {
		if st.fixed[ix] || st.postponed[ix] {
			continue
		}

		if result < 0 ||
			st.lo[ix] < st.lo[result] ||
			(st.lo[ix] == st.lo[result] && st.hi[ix] < st.hi[result]) {
			result = ix
			ties = 1

			continue
		}

		if s.random != nil && st.lo[ix] == st.lo[result] && st.hi[ix] == st.hi[result] {
			ties++

			if s.random.Intn(ties) == 0 {
				result = ix
			}
		}
	}

	return result
}

func overlaps(startA, durationA, startB, durationB int64) bool {
	return max(startA, startB) < min(startA+durationA, startB+durationB)
}

// earliestStart finds the first start at or after the lower bound that does not
// collide with an already fixed interval.
func (s *search) earliestStart(st *searchState, interval int) (int64, bool) {
	start := st.lo[interval]

	for start <= st.hi[interval] {
		next, isBlocked := s.blockedUntil(st, interval, start)
		if !isBlocked {
			return start,
				true
		}

		start = next
	}

	return 0,
		false
}

func (s *search) blockedUntil(st *searchState, interval int, start int64) (int64, bool) {
	duration := s.model.Intervals[interval].Duration

	for _, ixUnary := range s.unariesOf[interval] {
		for _, other := range s.model.NoOverlaps[ixUnary].Intervals {
			if other == interval || !st.fixed[other] {
				continue
			}

			if overlaps(start, duration, st.lo[other], s.model.Intervals[other].Duration) {
				return st.lo[other] + s.model.Intervals[other].Duration,
					true
			}
		}
	}

	for _, slotVar := range s.slotsOf[interval] {
		free, freedAt := s.freeSlots(st, slotVar, start)
		if len(free) == 0 {
			return freedAt,
				true
		}
	}

	return 0,
		false
}

// freeSlots lists the slot values still usable by the slot variable when its interval
// starts at start. When none is usable it also returns the earliest end among the
// fixed intervals holding them.
func (s *search) freeSlots(st *searchState, slotVar int, start int64) ([]int, int64) {
	interval := s.model.Slots[slotVar].Interval
	duration := s.model.Intervals[interval].Duration

	used := make(map[int]bool)
	freedAt := int64(math.MaxInt64)

	for _, ixExclusion := range s.exclusionsOf[slotVar] {
		exclusion := s.model.SlotExclusions[ixExclusion]

		other, otherSlot := exclusion.IntervalB, exclusion.SlotB
		if exclusion.SlotB == slotVar {
			other, otherSlot = exclusion.IntervalA, exclusion.SlotA
		}

		if !st.fixed[other] {
			continue
		}

		if !overlaps(start, duration, st.lo[other], s.model.Intervals[other].Duration) {
			continue
		}

		used[st.slotLo[otherSlot]] = true
		freedAt = min(freedAt, st.lo[other]+s.model.Intervals[other].Duration)
	}

	var result []int

	for value := st.slotLo[slotVar]; value <= st.slotHi[slotVar]; value++ {
		if !used[value] {
			result = append(result, value)
		}
	}

	return result,
		freedAt
}

// candidateSlots drops interchangeable values: of the slots no other decided
// interval holds, only the first is worth trying.
func (s *search) candidateSlots(st *searchState, slotVar int, start int64) []int {
	free, _ := s.freeSlots(st, slotVar, start)

	held := make(map[int]bool)

	for _, other := range s.resourceOf[s.model.Slots[slotVar].Resource] {
		if other != slotVar && st.slotLo[other] == st.slotHi[other] {
			held[st.slotLo[other]] = true
		}
	}

	result := make([]int, 0, len(free))
	var hasUntouched bool

	for _, value := range free {
		if held[value] {
			result = append(result, value)

			continue
		}

		if !hasUntouched {
			hasUntouched = true
			result = append(result, value)
		}
	}

	if s.random != nil {
		s.random.Shuffle(
			len(result),
			func(i, j int) {
				result[i], result[j] = result[j], result[i]
			},
		)
	}

	return result
}

// slotCombinations lists one value per slot variable of the interval, backtracking
// over the candidates of each.
func (s *search) slotCombinations(st *searchState, interval int, start int64) [][]int {
	slotVars := s.slotsOf[interval]

	candidates := make([][]int, len(slotVars))

	for ix, slotVar := range slotVars {
		candidates[ix] = s.candidateSlots(st, slotVar, start)

		if len(candidates[ix]) == 0 {
			return nil
		}
	}

	results := make([][]int, 0)
	current := make([]int, 0, len(slotVars))

	var backtrack func(int)

	backtrack = func(position int) {
		if position == len(slotVars) {
			results = append(results, slices.Clone(current))

			return
		}

		for _, value := range candidates[position] {
			current = append(current, value)
			backtrack(position + 1)

			current = current[:len(current)-1]
		}
	}

	backtrack(0)

	return results
}

func (s *search) record(st *searchState) {
	var objective int64

	if s.model.Objective != nil {
		objective = s.model.Objective.Evaluate(s.model.Intervals, st.lo)
	}

	if s.best != nil && objective >= s.best.Objective {
		return
	}

	s.best = &Solution{
		Starts:    slices.Clone(st.lo),
		Slots:     slices.Clone(st.slotLo),
		Objective: objective,
	}

	s.params.logf(
		"search: solution with objective %d after %d nodes",
		objective,
		s.nodes,
	)

	if s.model.Objective == nil {
		s.isSatisfied = true
	}
}
