package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/duet/internal/ir"
)

// CycleWarning represents a potential non-terminating loop in a set of class
// declarations.
//
// Handler and echo loops are warnings, not errors, because a validator or
// handler registered at runtime may still make them terminate. Inheritance
// cycles are errors: no method resolution order exists for them.
type CycleWarning struct {
	Class   string   `json:"class"`
	Path    []string `json:"path"`    // e.g. ["tick", "tock", "tick"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "error"
}

// nonConvergent lists builtin validator kinds whose output never equals a
// value they were fed, so a shared property using one is echoed between the
// realms forever.
var nonConvergent = map[string]bool{
	"add":     true,
	"counter": true,
	"append":  true,
}

// AnalyzeCycles performs static loop analysis on class declarations.
//
// Three checks run:
//  1. Inheritance: Tarjan SCC over the bases graph; every cycle is an error.
//  2. Handlers: per class, an event graph with an edge from a handler's event
//     to every event its action produces (forward emits its target, record
//     and count change their target property). Cycles are warnings.
//  3. Echo: a shared property whose validator is non-convergent is a warning.
//
// Handlers are analyzed per class body; loops that span a class and its
// bases are not reported. Output is sorted by class and path.
func AnalyzeCycles(decls []ir.ClassDecl) []CycleWarning {
	warnings := []CycleWarning{}

	bases := make(dependencyGraph)
	for _, d := range decls {
		bases.node(d.Name)
		for _, b := range d.Bases {
			bases.edge(d.Name, b)
		}
	}
	for _, scc := range tarjanSCC(bases) {
		if len(scc) > 1 || bases.hasSelfLoop(scc[0]) {
			path := reconstructCyclePath(scc, bases)
			warnings = append(warnings, CycleWarning{
				Class:   path[0],
				Path:    path,
				Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(path, " -> ")),
				Level:   "error",
			})
		}
	}

	for _, d := range decls {
		events := buildEventGraph(d)
		for _, scc := range tarjanSCC(events) {
			if len(scc) > 1 || events.hasSelfLoop(scc[0]) {
				path := reconstructCyclePath(scc, events)
				if len(scc) == 1 {
					path = []string{scc[0], scc[0]}
				}
				warnings = append(warnings, CycleWarning{
					Class:   d.Name,
					Path:    path,
					Message: fmt.Sprintf("handlers of %s may loop: %s", d.Name, strings.Join(path, " -> ")),
					Level:   "warning",
				})
			}
		}

		for _, p := range d.Properties {
			if p.Scope != ir.ScopeShared || !nonConvergent[p.Validator.Kind] {
				continue
			}
			if by, ok := p.Validator.Args["by"].(ir.IRInt); ok && by == 0 {
				continue
			}
			warnings = append(warnings, CycleWarning{
				Class: d.Name,
				Path:  []string{p.Name, p.Name},
				Message: fmt.Sprintf("shared property %s.%s uses validator %q, which never settles: every write is echoed between the realms",
					d.Name, p.Name, p.Validator.Kind),
				Level: "warning",
			})
		}
	}

	slices.SortStableFunc(warnings, func(a, b CycleWarning) int {
		if c := strings.Compare(a.Class, b.Class); c != 0 {
			return c
		}
		return slices.Compare(a.Path, b.Path)
	})
	return warnings
}

// dependencyGraph maps node -> nodes it could trigger.
type dependencyGraph map[string][]string

func (g dependencyGraph) node(n string) {
	if g[n] == nil {
		g[n] = []string{}
	}
}

func (g dependencyGraph) edge(from, to string) {
	g.node(from)
	g.node(to)
	if !slices.Contains(g[from], to) {
		g[from] = append(g[from], to)
	}
}

// hasSelfLoop checks if a node has an edge to itself.
func (g dependencyGraph) hasSelfLoop(n string) bool {
	return slices.Contains(g[n], n)
}

// buildEventGraph links each handled event to the events its action raises.
func buildEventGraph(d ir.ClassDecl) dependencyGraph {
	graph := make(dependencyGraph)
	for _, h := range d.Handlers {
		graph.node(h.Event)
		target, ok := h.Action.Args["target"].(ir.IRString)
		if !ok {
			continue
		}
		switch h.Action.Kind {
		case "forward":
			graph.edge(h.Event, string(target))
		case "record", "count":
			graph.edge(h.Event, ir.ChangedEvent(string(target)))
		}
	}
	return graph
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order so the result is deterministic.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: start at the first (smallest) node, follow edges to other SCC
// members, continue until we return to the start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
