package taskpacker

import (
	"slices"
)

// precedenceGraph holds every "must end before" edge between tasks,
// coming from Follows, work unit chains and work unit parents.
type precedenceGraph struct {
	tasks    []*Task
	index    map[*Task]int
	outgoing [][]int
}

func newPrecedenceGraph(tasks []*Task) *precedenceGraph {
	result := precedenceGraph{
		tasks:    tasks,
		index:    make(map[*Task]int, len(tasks)),
		outgoing: make([][]int, len(tasks)),
	}

	for ix, task := range tasks {
		result.index[task] = ix
	}

	for ix, task := range tasks {
		for _, predecessor := range task.Follows {
			result.addEdge(predecessor, tasks[ix])
		}
	}

	return &result
}

// addEdge ignores tasks outside the graph, they cannot close a cycle.
func (g *precedenceGraph) addEdge(from, to *Task) {
	ixFrom, fromExists := g.index[from]
	ixTo, toExists := g.index[to]

	if !fromExists || !toExists {
		return
	}

	if !slices.Contains(g.outgoing[ixFrom], ixTo) {
		g.outgoing[ixFrom] = append(g.outgoing[ixFrom], ixTo)
	}
}

func (g *precedenceGraph) addWorkUnits(workUnits []*WorkUnit) {
	for _, wu := range workUnits {
		for ix := 1; ix < len(wu.Tasks); ix++ {
			g.addEdge(wu.Tasks[ix-1], wu.Tasks[ix])
		}

		for _, parent := range wu.Parents {
			g.addEdge(parent.Last(), wu.First())
		}
	}
}

// validateAcyclic uses Kahn's algorithm and, on failure,
// extracts one cycle with a depth first search for the error message.
func (g *precedenceGraph) validateAcyclic() error {
	indegree := make([]int, len(g.tasks))

	for _, targets := range g.outgoing {
		for _, target := range targets {
			indegree[target]++
		}
	}

	ready := make([]int, 0, len(g.tasks))

	for ix, degree := range indegree {
		if degree == 0 {
			ready = append(ready, ix)
		}
	}

	var visited int

	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		visited++

		for _, target := range g.outgoing[current] {
			indegree[target]--

			if indegree[target] == 0 {
				ready = append(ready, target)
			}
		}
	}

	if visited == len(g.tasks) {
		return nil
	}

	return &CycleError{
		Path: g.findCycle(),
	}
}

func (g *precedenceGraph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.tasks))
	parent := make([]int, len(g.tasks))

	var cycle []int

	var dfs func(int) bool

	dfs = func(u int) bool {
		color[u] = gray

		for _, v := range g.outgoing[u] {
			if color[v] == white {
				parent[v] = u

				if dfs(v) {
					return true
				}

				continue
			}

			if color[v] == gray {
				cycle = append(cycle, v)

				for current := u; current != v; current = parent[current] {
					cycle = append(cycle, current)
				}

				cycle = append(cycle, v)

				return true
			}
		}

		color[u] = black

		return false
	}

	for ix := range g.tasks {
		if color[ix] == white && dfs(ix) {
			break
		}
	}

	slices.Reverse(cycle)

	result := make([]string, len(cycle))

	for ix, taskIndex := range cycle {
		result[ix] = g.tasks[taskIndex].Name
	}

	return result
}

// ValidateTasks rejects cyclic Follows relations.
func ValidateTasks(tasks []*Task) error {
	return newPrecedenceGraph(tasks).validateAcyclic()
}

// ValidateWorkUnits rejects cycles built from Follows, unit chains and unit parents.
func ValidateWorkUnits(workUnits []*WorkUnit) error {
	graph := newPrecedenceGraph(tasksOf(workUnits))
	graph.addWorkUnits(workUnits)

	return graph.validateAcyclic()
}

func tasksOf(workUnits []*WorkUnit) []*Task {
	var result []*Task

	for _, wu := range workUnits {
		result = append(result, wu.Tasks...)
	}

	return result
}
