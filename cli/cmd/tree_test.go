package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kodrdriv/kodrdriv/graph"
	"github.com/kodrdriv/kodrdriv/tree"
	"github.com/kodrdriv/kodrdriv/workspace"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"step failure", &tree.StepError{Package: "a", Err: errors.New("boom")}, exitStepFailure},
		{"cycle", &graph.CycleError{Chain: []string{"a", "b", "a"}}, exitWorkspaceError},
		{"bad manifest", &workspace.ManifestError{Path: "x", Kind: workspace.ErrInvalidManifest}, exitWorkspaceError},
		{"empty workspace", fmt.Errorf("%w under .", tree.ErrNoPackages), exitWorkspaceError},
		{"unknown package", fmt.Errorf("%w: ghost", graph.ErrPackageNotFound), exitConfigError},
		{"bad package argument", fmt.Errorf("%w: got %q", tree.ErrBadPackageArgument, "x"), exitConfigError},
		{"conflicting commands", tree.ErrConflictingCommands, exitConfigError},
		{"anything else", errors.New("surprise"), exitStepFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCodeFor(tc.err); got != tc.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
