package graph

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle. No partial order is ever produced
// alongside it.
type CycleError struct {
	// Chain is the cycle membership, first node repeated at the end.
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("Circular dependency detected: %s", strings.Join(e.Chain, " -> "))
}

// TopoSort returns a build order in which every local dependency of a
// package appears strictly before the package itself.
//
// Kahn's algorithm over FIFO ready queues keeps ties in discovery order, so
// the result is reproducible for the same scan. A cycle fails with a
// *CycleError identifying the offending chain.
func (g *Graph) TopoSort() ([]string, error) {
	remaining := make(map[string]int, len(g.order))
	var ready []string
	for _, name := range g.order {
		remaining[name] = len(g.nodes[name].deps)
		if remaining[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, dependent := range g.nodes[name].dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.order) {
		return nil, &CycleError{Chain: g.findCycle(remaining)}
	}
	return order, nil
}

// findCycle locates one concrete cycle among the nodes Kahn's algorithm
// could not resolve. remaining holds the unresolved in-degree per node;
// every node of any cycle still has remaining > 0.
func (g *Graph) findCycle(remaining map[string]int) []string {
	inCycle := func(name string) bool { return remaining[name] > 0 }

	// Depth-first walk restricted to unresolved nodes. Three states per the
	// classic coloring scheme: unvisited, on the current stack, finished.
	onStack := make(map[string]bool)
	finished := make(map[string]bool)
	var chain []string

	var visit func(name string) []string
	visit = func(name string) []string {
		onStack[name] = true
		chain = append(chain, name)

		for _, dep := range g.nodes[name].deps {
			if !inCycle(dep) || finished[dep] {
				continue
			}
			if onStack[dep] {
				// Close the loop: slice the chain from the first occurrence
				// of dep and repeat it at the end.
				for i, member := range chain {
					if member == dep {
						return append(append([]string(nil), chain[i:]...), dep)
					}
				}
			}
			if found := visit(dep); found != nil {
				return found
			}
		}

		onStack[name] = false
		finished[name] = true
		chain = chain[:len(chain)-1]
		return nil
	}

	for _, name := range g.order {
		if inCycle(name) && !finished[name] {
			if found := visit(name); found != nil {
				return found
			}
		}
	}
	return nil
}
