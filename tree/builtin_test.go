package tree

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kodrdriv/kodrdriv/graph"
	"github.com/kodrdriv/kodrdriv/types"
)

func TestParseBuiltIn(t *testing.T) {
	for _, name := range []string{"", "commit", "publish", "link", "unlink", "branches"} {
		got, err := ParseBuiltIn(name)
		if err != nil {
			t.Errorf("ParseBuiltIn(%q) failed: %v", name, err)
		}
		if string(got) != name {
			t.Errorf("ParseBuiltIn(%q) = %q", name, got)
		}
	}
	if _, err := ParseBuiltIn("deploy"); err == nil {
		t.Error("ParseBuiltIn accepted an unknown built-in")
	}
}

func stepFor(t *testing.T, fake *fakeRunner, record types.PackageRecord, deps ...types.PackageRecord) StepContext {
	t.Helper()
	g := graph.Build(append([]types.PackageRecord{record}, deps...))
	return StepContext{
		Index:  1,
		Total:  1,
		Record: record,
		Graph:  g,
		Runner: fake,
		Logger: testLogger().Sugar(),
	}
}

func TestCommitOperation_NothingToCommit(t *testing.T) {
	fake := &fakeRunner{}
	step := stepFor(t, fake, types.NewPackageRecord("a", "1.0.0", t.TempDir()))

	message, err := commitOperation{}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "nothing to commit" {
		t.Errorf("message = %q", message)
	}
	// Clean status means no add or commit runs.
	if len(fake.calls) != 1 || fake.calls[0].Command != "git status --porcelain" {
		t.Errorf("calls = %v", fake.calls)
	}
}

func TestCommitOperation_CommitsChanges(t *testing.T) {
	fake := &fakeRunner{statusOutput: " M index.js\n"}
	step := stepFor(t, fake, types.NewPackageRecord("a", "1.0.0", t.TempDir()))

	message, err := commitOperation{}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "committed" {
		t.Errorf("message = %q", message)
	}
	var commands []string
	for _, c := range fake.calls {
		commands = append(commands, c.Command)
	}
	want := []string{
		"git status --porcelain",
		"git add -A",
		`git commit -m "chore: workspace commit a"`,
	}
	if !reflect.DeepEqual(commands, want) {
		t.Errorf("commands = %v, want %v", commands, want)
	}
}

func TestCommitOperation_StatusFailure(t *testing.T) {
	fake := &fakeRunner{failPackage: "pkg"}
	dir := filepath.Join(t.TempDir(), "pkg")
	step := stepFor(t, fake, types.NewPackageRecord("pkg", "", dir))

	_, err := commitOperation{}.Execute(context.Background(), step)
	if err == nil || !strings.Contains(err.Error(), "failed to check git status") {
		t.Errorf("err = %v", err)
	}
}

func TestPublishOperation(t *testing.T) {
	fake := &fakeRunner{}
	step := stepFor(t, fake, types.NewPackageRecord("@acme/ui", "2.1.0", t.TempDir()))

	message, err := publishOperation{}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "published @acme/ui@2.1.0" {
		t.Errorf("message = %q", message)
	}
	if fake.calls[0].Command != "npm publish" {
		t.Errorf("ran %q", fake.calls[0].Command)
	}
}

func TestLinkOperation_TargetsArgument(t *testing.T) {
	fake := &fakeRunner{}
	step := stepFor(t, fake, types.NewPackageRecord("app", "", t.TempDir()))
	step.PackageArgument = "@acme/ui"

	message, err := linkOperation{}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "linked" {
		t.Errorf("message = %q", message)
	}
	if fake.calls[0].Command != "npm link @acme/ui" {
		t.Errorf("ran %q", fake.calls[0].Command)
	}
}

func TestLinkOperation_CleanNodeModules(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "node_modules", "leftover")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	fake := &fakeRunner{}
	step := stepFor(t, fake, types.NewPackageRecord("app", "", dir))
	step.CleanNodeModules = true

	if _, err := (linkOperation{}).Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "node_modules")); !os.IsNotExist(err) {
		t.Error("node_modules survived --clean-node-modules")
	}
}

func TestLinkStatus(t *testing.T) {
	appDir := t.TempDir()
	depDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(appDir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(depDir, filepath.Join(appDir, "node_modules", "core")); err != nil {
		t.Fatal(err)
	}

	app := types.NewPackageRecord("app", "", appDir, map[string]string{"core": "*", "other": "*"})
	core := types.NewPackageRecord("core", "", depDir)
	other := types.NewPackageRecord("other", "", t.TempDir())

	fake := &fakeRunner{}
	step := stepFor(t, fake, app, core, other)
	step.PackageArgument = "status"

	message, err := linkOperation{}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "linked: core" {
		t.Errorf("message = %q", message)
	}
	if len(fake.calls) != 0 {
		t.Error("status query ran commands")
	}
}

func TestUnlinkOperation_DryRun(t *testing.T) {
	fake := &fakeRunner{}
	step := stepFor(t, fake, types.NewPackageRecord("app", "", t.TempDir()))
	step.DryRun = true

	message, err := unlinkOperation{}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "Would run: npm unlink" {
		t.Errorf("message = %q", message)
	}
	if len(fake.calls) != 0 {
		t.Error("dry run executed commands")
	}
}

func TestCommandOperation_FirstLineMessage(t *testing.T) {
	fake := &fakeRunner{stdout: "\nBuild complete\nmore detail\n"}
	step := stepFor(t, fake, types.NewPackageRecord("app", "", t.TempDir()))

	message, err := commandOperation{command: "npm run build"}.Execute(context.Background(), step)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if message != "Build complete" {
		t.Errorf("message = %q", message)
	}
}
