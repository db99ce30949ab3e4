// Package initsort implements the global-initialization sorter (C5): a
// topological sort of top-level SF-IR definitions that rejects cycles
// passing through values, while permitting recursion through functions
// (spec.md §4.5).
//
// Grounded on ssf::analysis::sort_global_variables (the direct + "$indirect"
// node-per-definition graph construction, verified node-for-node against
// that file's own Rust unit tests: sort_constant, sort_sorted_constants,
// sort_constants_not_sorted[_with_function/_with_recursive_functions],
// fail_to_sort_recursively_defined_constant(s),
// fail_to_sort_constant_recursive_through_function) and on ailang's
// link.TopoSortFromRoot for the cycle-path-building idiom (a recursion-stack
// slice trimmed back to the repeated node, adapted here to the direct-vs-
// indirect node shape the Rust original actually walks).
package initsort

import (
	"sort"

	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
)

const indirectSuffix = "$indirect"

// Sort returns defs' names in global-initialization order: every name a
// definition's body forces eagerly precedes that definition; a definition
// only needs another's *address* (captured into a closure, never forced to
// a value) is never ordered relative to it, since function values are
// statically addressable before they are ever called (spec.md §4.5).
//
// A definition with no Args is value-shaped: every free variable it
// references is forced immediately, so it depends directly on both the
// referent's value-ready node and the referent's own indirect node (the
// referent must itself be fully settled, including whatever it only
// captures). A definition with Args is function-shaped: its own free
// variables are never forced at init time (they are read only once the
// function is later called), so they edge only into this definition's
// indirect node, never into the definition's direct node — which is why
// two mutually recursive functions sort without a cycle while two mutually
// recursive plain values do not.
func Sort(defs []sfir.Definition) ([]string, error) {
	g := newGraph()
	for _, d := range defs {
		g.addNode(d.Name)
		g.addNode(d.Name + indirectSuffix)
	}

	names := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		names[d.Name] = struct{}{}
	}

	for _, d := range defs {
		free := sortedKeys(sfir.FreeVariables(d.Body))
		if len(d.Args) == 0 {
			for _, n := range free {
				if _, ok := names[n]; !ok {
					continue
				}
				g.addEdge(n, d.Name)
				g.addEdge(n+indirectSuffix, d.Name)
			}
			continue
		}

		bound := map[string]struct{}{d.Name: {}}
		for _, a := range d.Args {
			bound[a.Name] = struct{}{}
		}
		for _, n := range free {
			if _, isBound := bound[n]; isBound {
				continue
			}
			if _, ok := names[n]; !ok {
				continue
			}
			g.addEdge(n, d.Name+indirectSuffix)
		}
	}

	order, err := g.toposort()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(defs))
	for _, n := range order {
		if _, ok := names[n]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// sortedKeys returns m's keys in lexical order, so edge insertion (and thus
// the exact topological order among otherwise-unconstrained nodes) never
// depends on Go's randomized map iteration.
func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// graph is an adjacency-list directed graph over insertion-ordered nodes, so
// toposort's DFS visits nodes in the same order sort_global_variables'
// petgraph-backed DFS does (node discovery order determines the result
// among otherwise-unordered nodes).
type graph struct {
	order   []string
	index   map[string]int
	succs   map[string][]string
}

func newGraph() *graph {
	return &graph{index: map[string]int{}, succs: map[string][]string{}}
}

func (g *graph) addNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.order)
	g.order = append(g.order, name)
}

func (g *graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.succs[from] = append(g.succs[from], to)
}

// toposort performs a DFS-based topological sort: visit successors before a
// node is finished and appended to a postorder list, then reverse that list.
// A node reached while still on the recursion stack is a cycle.
func (g *graph) toposort() ([]string, error) {
	visited := make(map[string]bool, len(g.order))
	onStack := make(map[string]bool, len(g.order))
	var stack []string
	var postorder []string

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if onStack[name] {
			return diag.CircularInitialization(cyclePath(stack, name))
		}

		onStack[name] = true
		stack = append(stack, name)

		for _, succ := range g.succs[name] {
			if err := visit(succ); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		onStack[name] = false
		visited[name] = true
		postorder = append(postorder, name)
		return nil
	}

	for _, name := range g.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	for i, j := 0, len(postorder)-1; i < j; i, j = i+1, j-1 {
		postorder[i], postorder[j] = postorder[j], postorder[i]
	}
	return postorder, nil
}

// cyclePath trims stack back to the first occurrence of name and appends
// name again to close the loop, matching the cycle-path slice
// link.TopoSortFromRoot builds from its own in-path recursion stack.
func cyclePath(stack []string, name string) []string {
	start := 0
	for i, n := range stack {
		if n == name {
			start = i
			break
		}
	}
	path := append([]string(nil), stack[start:]...)
	return append(path, name)
}
