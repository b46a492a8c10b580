// Package graph models the local dependency graph of a scanned workspace
// and computes deterministic build orders over it.
//
// The graph is built fresh per invocation and never persisted. Node order
// follows scan discovery order so that tie-breaking during the topological
// sort is stable across runs.
package graph

import (
	"github.com/kodrdriv/kodrdriv/types"
)

// Graph is a directed dependency graph over package names.
// An edge A→B means A declares B as a local dependency, so B must build
// before A. The graph is immutable after Build and safe for concurrent reads.
type Graph struct {
	// order holds node names in insertion (discovery) order.
	order []string
	// nodes stores all nodes keyed by package name.
	nodes map[string]*node
}

// node is a single vertex. It is un-exported to enforce interaction with the
// graph via package-name APIs rather than direct struct manipulation.
type node struct {
	name string
	// deps are local packages this node depends on, in insertion order.
	deps []string
	// dependents are local packages that depend on this node, in insertion order.
	dependents []string
	record     types.PackageRecord
}

// Build constructs the dependency graph from scanned package records.
// It is a pure function of its input: no I/O, no side effects, and the
// same record ordering always yields the same graph.
//
// Dependency names that do not match a scanned package are external and
// are dropped, not errors.
func Build(records []types.PackageRecord) *Graph {
	g := &Graph{nodes: make(map[string]*node, len(records))}

	for _, record := range records {
		if _, ok := g.nodes[record.Name]; ok {
			continue
		}
		g.nodes[record.Name] = &node{name: record.Name, record: record}
		g.order = append(g.order, record.Name)
	}

	for _, name := range g.order {
		n := g.nodes[name]
		for _, dep := range n.record.Dependencies {
			target, ok := g.nodes[dep]
			if !ok || dep == name {
				continue
			}
			n.deps = append(n.deps, dep)
			target.dependents = append(target.dependents, name)
		}
	}

	return g
}

// Len returns the number of packages in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Names returns the package names in discovery order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Contains reports whether name is a known package.
func (g *Graph) Contains(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Record returns the package record for name.
func (g *Graph) Record(name string) (types.PackageRecord, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return types.PackageRecord{}, false
	}
	return n.record, true
}

// Dependencies returns the local packages name depends on, in insertion order.
func (g *Graph) Dependencies(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, len(n.deps))
	copy(out, n.deps)
	return out
}

// Dependents returns the local packages that depend on name, in insertion order.
func (g *Graph) Dependents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, len(n.dependents))
	copy(out, n.dependents)
	return out
}

// transitiveClosure walks the graph from the seed set following next and
// returns every reached name, seeds included.
func (g *Graph) transitiveClosure(seeds []string, next func(*node) []string) map[string]struct{} {
	reached := make(map[string]struct{}, len(seeds))
	stack := append([]string(nil), seeds...)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := reached[name]; ok {
			continue
		}
		n, ok := g.nodes[name]
		if !ok {
			continue
		}
		reached[name] = struct{}{}
		stack = append(stack, next(n)...)
	}
	return reached
}
