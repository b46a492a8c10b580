package checkpoint

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kodrdriv/kodrdriv/log"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := log.NewLogger(log.Context{Workspace: "test"}).WithOutput(io.Discard)
	return NewStore(t.TempDir(), logger)
}

func TestStore_LoadAbsent(t *testing.T) {
	store := testStore(t)
	if ctx, ok := store.Load(); ok || ctx != nil {
		t.Fatalf("Load on absent file = %+v, %v; want nil, false", ctx, ok)
	}
}

func TestStore_SaveLoadClear(t *testing.T) {
	store := testStore(t)

	saved := &Context{
		RemainingPackages: []string{"b", "c"},
		Command:           "npm run build",
		CleanNodeModules:  true,
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, ok := store.Load()
	if !ok {
		t.Fatal("Load missed a saved checkpoint")
	}
	if !reflect.DeepEqual(loaded.RemainingPackages, []string{"b", "c"}) {
		t.Errorf("RemainingPackages = %v", loaded.RemainingPackages)
	}
	if loaded.Command != "npm run build" || !loaded.CleanNodeModules {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() {
		t.Error("CreatedAt not set on save")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := store.Load(); ok {
		t.Error("Load found a cleared checkpoint")
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Clear on absent file failed: %v", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load(); ok {
		t.Error("Load accepted a corrupt checkpoint")
	}
}

func TestStore_LoadSchemaMismatch(t *testing.T) {
	store := testStore(t)
	body := `{"schema_version": 99, "remaining_packages": ["a"]}`
	if err := os.WriteFile(store.Path(), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load(); ok {
		t.Error("Load accepted a checkpoint with a foreign schema version")
	}
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	store := testStore(t)
	if err := store.Save(&Context{RemainingPackages: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != FileName {
			t.Errorf("unexpected file after save: %s", e.Name())
		}
	}
}
