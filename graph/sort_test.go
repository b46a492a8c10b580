package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kodrdriv/kodrdriv/types"
)

func mustSort(t *testing.T, g *Graph) []string {
	t.Helper()
	order, err := g.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort failed: %v", err)
	}
	return order
}

// indexOf fails the test when name is missing from order.
func indexOf(t *testing.T, order []string, name string) int {
	t.Helper()
	for i, member := range order {
		if member == name {
			return i
		}
	}
	t.Fatalf("%s not in order %v", name, order)
	return -1
}

func TestTopoSort_DependencyFirst(t *testing.T) {
	g := Build([]types.PackageRecord{
		record("b", "a"),
		record("a"),
	})

	order := mustSort(t, g)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestTopoSort_EveryEdgeRespected(t *testing.T) {
	records := []types.PackageRecord{
		record("app", "ui", "core"),
		record("ui", "core", "util"),
		record("core", "util"),
		record("util"),
		record("tools", "util"),
	}
	g := Build(records)
	order := mustSort(t, g)

	if len(order) != len(records) {
		t.Fatalf("order has %d entries, want %d", len(order), len(records))
	}
	for _, rec := range records {
		for _, dep := range rec.Dependencies {
			if !g.Contains(dep) {
				continue
			}
			if indexOf(t, order, dep) >= indexOf(t, order, rec.Name) {
				t.Errorf("dependency %s of %s does not precede it in %v", dep, rec.Name, order)
			}
		}
	}
}

func TestTopoSort_Deterministic(t *testing.T) {
	records := []types.PackageRecord{
		record("d"), record("c"), record("b"), record("a"),
	}
	first := mustSort(t, Build(records))
	for i := 0; i < 10; i++ {
		if got := mustSort(t, Build(records)); !reflect.DeepEqual(got, first) {
			t.Fatalf("order varied across runs: %v vs %v", got, first)
		}
	}
	// Independent packages keep discovery order.
	if want := []string{"d", "c", "b", "a"}; !reflect.DeepEqual(first, want) {
		t.Errorf("tie-break order = %v, want %v", first, want)
	}
}

func TestTopoSort_DirectCycle(t *testing.T) {
	g := Build([]types.PackageRecord{
		record("a", "b"),
		record("b", "a"),
	})

	_, err := g.TopoSort()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "Circular dependency detected") {
		t.Errorf("error = %q, want circular dependency message", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error is %T, want *CycleError", err)
	}
	if len(cycleErr.Chain) < 3 {
		t.Errorf("chain = %v, want at least a -> b -> a", cycleErr.Chain)
	}
	if cycleErr.Chain[0] != cycleErr.Chain[len(cycleErr.Chain)-1] {
		t.Errorf("chain %v does not close on itself", cycleErr.Chain)
	}
}

func TestTopoSort_TransitiveCycle(t *testing.T) {
	g := Build([]types.PackageRecord{
		record("a", "b"),
		record("b", "c"),
		record("c", "a"),
		record("standalone"),
	})

	order, err := g.TopoSort()
	if err == nil {
		t.Fatalf("expected cycle error, got order %v", order)
	}
	if order != nil {
		t.Errorf("partial order %v emitted alongside cycle error", order)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error is %T, want *CycleError", err)
	}
	for _, member := range []string{"a", "b", "c"} {
		found := false
		for _, name := range cycleErr.Chain {
			if name == member {
				found = true
			}
		}
		if !found {
			t.Errorf("chain %v missing cycle member %s", cycleErr.Chain, member)
		}
	}
}

func TestTopoSort_EmptyGraph(t *testing.T) {
	order := mustSort(t, Build(nil))
	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
}
