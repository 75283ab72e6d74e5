// Package depsort implements the Dependency Sorter: it builds a directed
// graph of foreign-key edges between tables, breaks cycles by repeatedly
// removing the minimum-scored edge in any remaining cycle, and emits a
// topological order in which no table precedes one of its foreign-key
// parents.
package depsort

import (
	"sort"

	"github.com/mzafarm/datasmith/internal/core"
)

// Edge is a directed foreign-key edge from a parent table to a child table,
// carrying the cycle-breaking score of the child-side column that owns it.
type Edge struct {
	Parent string
	Child  string
	Score  int
}

// infiniteScore represents a FK column that is neither nullable nor has a
// default — it can never be safely deferred, so it is never chosen for
// removal while any lower-scored edge remains in its cycle.
const infiniteScore = int(^uint(0) >> 1)

// scoreEdge scores a foreign-key edge by the nullability/default of the
// child-side column per spec.md §4.2's table.
func scoreEdge(col *core.ColumnMetadata) int {
	nullable := col.Nullable
	hasDefault := col.Default != nil
	switch {
	case nullable && hasDefault:
		return 0
	case nullable && !hasDefault:
		return 1
	case !nullable && hasDefault:
		return 2
	default:
		return infiniteScore
	}
}

// BuildEdges constructs the FK edge set restricted to tables present in the
// given metadata set — an edge exists for every FK column whose parent
// table is also in the input set.
func BuildEdges(tables []*core.TableMetadata) []Edge {
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t.Name] = true
	}

	var edges []Edge
	for _, t := range tables {
		for _, c := range t.Columns {
			if !c.HasForeignKey() {
				continue
			}
			if !present[c.ForeignKey.Table] {
				continue
			}
			edges = append(edges, Edge{
				Parent: c.ForeignKey.Table,
				Child:  t.Name,
				Score:  scoreEdge(c),
			})
		}
	}
	return edges
}

// Sort returns a topological ordering of the given tables' names such that
// for every edge surviving cycle-breaking, the parent precedes the child.
// Cycles are broken deterministically: repeatedly find any cycle and
// remove its minimum-scored edge (ties broken by edge order), until the
// graph is acyclic.
func Sort(tables []*core.TableMetadata) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	edges := BuildEdges(tables)

	for {
		cycle := findCycleEdges(names, edges)
		if cycle == nil {
			break
		}
		worst := cycle[0]
		for _, idx := range cycle[1:] {
			if edges[idx].Score < edges[worst].Score {
				worst = idx
			}
		}
		edges = append(edges[:worst], edges[worst+1:]...)
	}

	return topoOrder(names, edges)
}

// findCycleEdges returns the indices (into edges) of one cycle's edges, or
// nil if the graph is acyclic. Uses a DFS with a recursion-stack marker.
func findCycleEdges(names []string, edges []Edge) []int {
	adj := make(map[string][]int) // node -> indices into edges
	for i, e := range edges {
		adj[e.Parent] = append(adj[e.Parent], i)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(names))
	for _, n := range names {
		color[n] = white
	}

	var path []int // edge indices on the current DFS path
	var result []int

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		for _, idx := range adj[node] {
			child := edges[idx].Child
			path = append(path, idx)
			switch color[child] {
			case white:
				if visit(child) {
					return true
				}
			case gray:
				// Found the back edge closing a cycle; collect the path
				// segment from child's first occurrence to here.
				start := 0
				for i, pIdx := range path {
					if edges[pIdx].Parent == child {
						start = i
						break
					}
				}
				result = append([]int(nil), path[start:]...)
				return true
			}
			path = path[:len(path)-1]
		}
		color[node] = black
		return false
	}

	sortedNames := append([]string(nil), names...)
	sort.Strings(sortedNames)
	for _, n := range sortedNames {
		if color[n] == white {
			path = nil
			if visit(n) {
				return result
			}
		}
	}
	return nil
}

// topoOrder computes a topological order of names given the (now acyclic)
// edge set via Kahn's algorithm, breaking ties alphabetically for
// determinism.
func topoOrder(names []string, edges []Edge) []string {
	indegree := make(map[string]int, len(names))
	children := make(map[string][]string)
	for _, n := range names {
		indegree[n] = 0
	}
	for _, e := range edges {
		indegree[e.Child]++
		children[e.Parent] = append(children[e.Parent], e.Child)
	}

	var ready []string
	for _, n := range names {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var freed []string
		for _, c := range children[n] {
			indegree[c]--
			if indegree[c] == 0 {
				freed = append(freed, c)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
		sort.Strings(ready)
	}

	return order
}
