// Package graph builds and validates the dependency DAG over a task.Task
// set: an edge runs from the Task that writes a table to every Task that
// reads it, so the Scheduler can only start a Task once everything upstream
// has finished.
package graph

import (
	"fmt"
	"sort"

	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
)

// Graph is the resolved dependency structure over a fixed set of tasks.
// Edges point downstream: Children[id] is everything that reads from id.
type Graph struct {
	Tasks    map[task.ID]*task.Task
	Children map[task.ID][]task.ID
	Parents  map[task.ID][]task.ID
}

// CycleError reports one or more cycles found while building the graph:
// one cycle per back edge the depth-first scan meets, not just the first.
// A cycle that closes only through an already-finished node (one sharing
// edges with a cycle found earlier) is not listed separately.
type CycleError struct {
	Cycles [][]task.ID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency graph has %d cycle(s), e.g. %s", len(e.Cycles), formatCycle(e.Cycles[0]))
}

func formatCycle(cycle []task.ID) string {
	s := ""
	for i, id := range cycle {
		if i > 0 {
			s += " -> "
		}
		s += id.String()
	}
	return s + " -> " + cycle[0].String()
}

// Build constructs the Graph for tasks. A read of an ID that isn't itself
// a Task in the set (reference data outside the suite) is simply not
// represented as an edge — there's no Task to wait on.
func Build(tasks map[task.ID]*task.Task) (*Graph, error) {
	g := &Graph{
		Tasks:    tasks,
		Children: map[task.ID][]task.ID{},
		Parents:  map[task.ID][]task.ID{},
	}

	for id, t := range tasks {
		for readID := range t.Reads {
			if readID == id {
				continue // self-read is not a dependency edge
			}
			if _, ok := tasks[readID]; !ok {
				continue
			}
			g.Parents[id] = append(g.Parents[id], readID)
			g.Children[readID] = append(g.Children[readID], id)
		}
	}

	for id := range g.Parents {
		sortIDs(g.Parents[id])
	}
	for id := range g.Children {
		sortIDs(g.Children[id])
	}

	if cycles := findCycles(tasks, g.Children); len(cycles) > 0 {
		return nil, &CycleError{Cycles: cycles}
	}

	return g, nil
}

func sortIDs(ids []task.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

// findCycles runs a three-color DFS from every node, collecting each
// distinct back-edge cycle it finds rather than stopping at the first.
func findCycles(tasks map[task.ID]*task.Task, children map[task.ID][]task.ID) [][]task.ID {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[task.ID]int{}
	var stack []task.ID
	var cycles [][]task.ID

	ids := util.MapKeys(tasks)
	sortIDs(ids)

	var visit func(id task.ID)
	visit = func(id task.ID) {
		color[id] = gray
		stack = append(stack, id)

		for _, child := range children[id] {
			switch color[child] {
			case white:
				visit(child)
			case gray:
				cycles = append(cycles, extractCycle(stack, child))
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

func extractCycle(stack []task.ID, repeat task.ID) []task.ID {
	for i, id := range stack {
		if id == repeat {
			out := make([]task.ID, len(stack)-i)
			copy(out, stack[i:])
			return out
		}
	}
	return []task.ID{repeat}
}

// Upstream returns the transitive closure of everything target depends on
// (directly or indirectly), for --dependencies expansion. target itself is
// not included.
func (g *Graph) Upstream(target task.ID) map[task.ID]bool {
	out := map[task.ID]bool{}
	var visit func(id task.ID)
	visit = func(id task.ID) {
		for _, parent := range g.Parents[id] {
			if !out[parent] {
				out[parent] = true
				visit(parent)
			}
		}
	}
	visit(target)
	return out
}

// ExecutionSet resolves the CLI's -t/--target, -e/--exclusion, and
// --dependencies semantics into the final set of task IDs to run. When
// targets is empty, every task in the graph is included before exclusions
// are applied. When includeDeps is true, every target's transitive
// upstream closure is added before exclusions are applied, so an
// exclusion always wins over a dependency pull-in.
func (g *Graph) ExecutionSet(targets []task.ID, exclusions []task.ID, includeDeps bool) map[task.ID]bool {
	set := map[task.ID]bool{}
	if len(targets) == 0 {
		for id := range g.Tasks {
			set[id] = true
		}
	} else {
		for _, t := range targets {
			set[t] = true
			if includeDeps {
				for up := range g.Upstream(t) {
					set[up] = true
				}
			}
		}
	}
	for _, ex := range exclusions {
		delete(set, ex)
	}
	return set
}
