package graph

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kodrdriv/kodrdriv/types"
)

// ErrPackageNotFound indicates a scope flag referencing an unknown package.
var ErrPackageNotFound = errors.New("package not found")

// Scope narrows a build order to a relevant window.
type Scope struct {
	// StartFrom restricts the order to the named package, its transitive
	// dependents, and the transitive dependencies of that set.
	StartFrom string
	// StopAt keeps only the strict prefix of the order before the named
	// package.
	StopAt string
}

// Narrowed is the result of applying a Scope to a full build order.
type Narrowed struct {
	// Order is the filtered build order.
	Order []string
	// StoppedBefore is how many packages StopAt cut, zero when unset.
	StoppedBefore int
}

// ExcludeRecords drops every record whose name matches an exclusion
// pattern, before the graph is built, so an excluded package can appear
// neither as a node nor as an edge. Path-based exclusion already happened
// at scan time; this pass re-validates by name.
func ExcludeRecords(records []types.PackageRecord, patterns []string) []types.PackageRecord {
	if len(patterns) == 0 {
		return records
	}
	kept := make([]types.PackageRecord, 0, len(records))
	for _, record := range records {
		if matchesName(patterns, record.Name) {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

func matchesName(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Apply narrows order per the scope. StartFrom and StopAt combine by
// intersection: the related set restricts membership first, then the StopAt
// prefix cut is applied to what remains.
//
// An unknown StartFrom or StopAt package fails before anything runs.
func (g *Graph) Apply(order []string, scope Scope) (*Narrowed, error) {
	narrowed := &Narrowed{Order: order}

	if scope.StartFrom != "" {
		if !g.Contains(scope.StartFrom) {
			return nil, fmt.Errorf("start-from %q: %w", scope.StartFrom, ErrPackageNotFound)
		}
		related := g.relatedSet(scope.StartFrom)
		kept := make([]string, 0, len(related))
		for _, name := range narrowed.Order {
			if _, ok := related[name]; ok {
				kept = append(kept, name)
			}
		}
		narrowed.Order = kept
	}

	if scope.StopAt != "" {
		if !g.Contains(scope.StopAt) {
			return nil, fmt.Errorf("stop-at %q: %w", scope.StopAt, ErrPackageNotFound)
		}
		before := len(narrowed.Order)
		for i, name := range narrowed.Order {
			if name == scope.StopAt {
				narrowed.Order = narrowed.Order[:i]
				break
			}
		}
		narrowed.StoppedBefore = before - len(narrowed.Order)
	}

	return narrowed, nil
}

// relatedSet computes {start} ∪ transitive dependents of start ∪ transitive
// dependencies of that whole set. Dependents carry the change forward;
// their dependencies are needed to build them.
func (g *Graph) relatedSet(start string) map[string]struct{} {
	dependents := g.transitiveClosure([]string{start}, func(n *node) []string {
		return n.dependents
	})

	seeds := make([]string, 0, len(dependents))
	for name := range dependents {
		seeds = append(seeds, name)
	}
	return g.transitiveClosure(seeds, func(n *node) []string {
		return n.deps
	})
}
