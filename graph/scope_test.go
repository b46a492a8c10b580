package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kodrdriv/kodrdriv/types"
)

func TestApply_StopAtKeepsStrictPrefix(t *testing.T) {
	g := Build([]types.PackageRecord{
		record("core"),
		record("plugin", "core"),
	})
	order := mustSort(t, g)

	narrowed, err := g.Apply(order, Scope{StopAt: "plugin"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if want := []string{"core"}; !reflect.DeepEqual(narrowed.Order, want) {
		t.Errorf("order = %v, want %v", narrowed.Order, want)
	}
	if narrowed.StoppedBefore != 1 {
		t.Errorf("StoppedBefore = %d, want 1", narrowed.StoppedBefore)
	}
	if got := len(order) - len(narrowed.Order); got != narrowed.StoppedBefore {
		t.Errorf("excluded count %d does not match order shrinkage %d", narrowed.StoppedBefore, got)
	}
}

func TestApply_StartFromRelatedSet(t *testing.T) {
	// a -> b -> c chain, d independent.
	g := Build([]types.PackageRecord{
		record("a", "b"),
		record("b", "c"),
		record("c"),
		record("d"),
	})
	order := mustSort(t, g)

	narrowed, err := g.Apply(order, Scope{StartFrom: "b"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := map[string]bool{"a": true, "b": true, "c": true}
	if len(narrowed.Order) != len(want) {
		t.Fatalf("order = %v, want members %v", narrowed.Order, want)
	}
	for _, name := range narrowed.Order {
		if !want[name] {
			t.Errorf("unexpected member %s in %v", name, narrowed.Order)
		}
	}

	// Relative order from the full sort is preserved.
	if indexOf(t, narrowed.Order, "c") > indexOf(t, narrowed.Order, "b") {
		t.Errorf("c should precede b in %v", narrowed.Order)
	}
	if indexOf(t, narrowed.Order, "b") > indexOf(t, narrowed.Order, "a") {
		t.Errorf("b should precede a in %v", narrowed.Order)
	}
}

func TestApply_StartFromUnknown(t *testing.T) {
	g := Build([]types.PackageRecord{record("a")})
	_, err := g.Apply([]string{"a"}, Scope{StartFrom: "ghost"})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("err = %v, want ErrPackageNotFound", err)
	}
}

func TestApply_StopAtUnknown(t *testing.T) {
	g := Build([]types.PackageRecord{record("a")})
	_, err := g.Apply([]string{"a"}, Scope{StopAt: "ghost"})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("err = %v, want ErrPackageNotFound", err)
	}
}

func TestApply_CombinedIntersection(t *testing.T) {
	// chain e -> a -> b -> c, with d independent.
	g := Build([]types.PackageRecord{
		record("e", "a"),
		record("a", "b"),
		record("b", "c"),
		record("c"),
		record("d"),
	})
	order := mustSort(t, g)

	narrowed, err := g.Apply(order, Scope{StartFrom: "b", StopAt: "a"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// Related set of b is {e, a, b, c}; the prefix before a keeps {c, b}.
	want := []string{"c", "b"}
	if !reflect.DeepEqual(narrowed.Order, want) {
		t.Errorf("order = %v, want %v", narrowed.Order, want)
	}
}

func TestExcludeRecords(t *testing.T) {
	records := []types.PackageRecord{
		record("@acme/core"),
		record("@acme/test-fixtures"),
		record("app", "@acme/core", "@acme/test-fixtures"),
	}

	kept := ExcludeRecords(records, []string{"**/test-*", "@*/test-*"})
	g := Build(kept)

	if g.Contains("@acme/test-fixtures") {
		t.Error("excluded package still present as node")
	}
	if got := g.Dependencies("app"); !reflect.DeepEqual(got, []string{"@acme/core"}) {
		t.Errorf("Dependencies(app) = %v, want excluded dep dropped", got)
	}
}

func TestExcludeRecords_NoPatterns(t *testing.T) {
	records := []types.PackageRecord{record("a")}
	if got := ExcludeRecords(records, nil); !reflect.DeepEqual(got, records) {
		t.Errorf("ExcludeRecords without patterns changed the input: %v", got)
	}
}
