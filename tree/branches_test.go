package tree

import (
	"context"
	"strings"
	"testing"
)

func TestBranchesReport(t *testing.T) {
	root := writeWorkspace(t, map[string][]string{
		"core": nil,
		"app":  {"core"},
	})
	fake := &fakeRunner{stdout: "main\n"}

	summary, err := newSession(fake).Execute(context.Background(), Request{
		Roots:   []string{root},
		BuiltIn: BuiltInBranches,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Message != "Branch report for 2 packages" {
		t.Errorf("Message = %q", summary.Message)
	}
	if len(summary.Branches) != 2 {
		t.Fatalf("Branches has %d rows, want 2", len(summary.Branches))
	}

	byName := map[string]BranchRow{}
	for _, row := range summary.Branches {
		byName[row.Package] = row
	}
	core := byName["core"]
	if core.Branch != "main" || core.Status != "clean" {
		t.Errorf("core row = %+v", core)
	}
	if core.Consumers != 1 {
		t.Errorf("core.Consumers = %d, want 1", core.Consumers)
	}
	if byName["app"].Consumers != 0 {
		t.Errorf("app.Consumers = %d, want 0", byName["app"].Consumers)
	}
	if core.Linked != "no" {
		t.Errorf("core.Linked = %q", core.Linked)
	}
}

func TestBranchesReport_GitFailureDegrades(t *testing.T) {
	root := writeWorkspace(t, map[string][]string{"broken": nil})
	fake := &fakeRunner{failPackage: "broken"}

	summary, err := newSession(fake).Execute(context.Background(), Request{
		Roots:   []string{root},
		BuiltIn: BuiltInBranches,
	})
	if err != nil {
		t.Fatalf("report aborted on a git failure: %v", err)
	}
	row := summary.Branches[0]
	if row.Branch != "error" || row.Status != "error" {
		t.Errorf("row = %+v, want error cells", row)
	}
}

func TestBranchesReport_DryRun(t *testing.T) {
	root := writeWorkspace(t, map[string][]string{"core": nil})
	fake := &fakeRunner{}
	session := newSession(fake)
	session.DryRun = true

	summary, err := session.Execute(context.Background(), Request{
		Roots:   []string{root},
		BuiltIn: BuiltInBranches,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("dry run executed %d commands", len(fake.calls))
	}
	if summary.Branches[0].Status != "dry-run" {
		t.Errorf("Status = %q", summary.Branches[0].Status)
	}
}

func TestRenderBranchTable(t *testing.T) {
	rows := []BranchRow{
		{Package: "core", Branch: "main", Version: "1.0.0", Status: "clean", Linked: "no", Consumers: 2},
		{Package: "@acme/very-long-name", Branch: "feature/x", Version: "-", Status: "modified", Linked: "yes", Consumers: 0},
	}
	table := renderBranchTable(rows)

	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want header + separator + 2 rows:\n%s", len(lines), table)
	}
	if !strings.HasPrefix(lines[0], "Package") || !strings.Contains(lines[0], " | Branch") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Trim(lines[1], "-+") != "" && !strings.Contains(lines[1], "-+-") {
		t.Errorf("separator = %q", lines[1])
	}
	// All lines share the fixed width.
	for i := 1; i < len(lines); i++ {
		if len(lines[i]) != len(lines[0]) {
			t.Errorf("line %d width %d, want %d:\n%s", i, len(lines[i]), len(lines[0]), table)
		}
	}
	if !strings.Contains(table, "@acme/very-long-name") {
		t.Errorf("table missing row:\n%s", table)
	}
}
