// Package tree orchestrates ordered per-package execution over a scanned
// workspace: scan, graph, sort, scope, then one step per package with
// resumable checkpoints.
package tree

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for fail-fast input validation.
var (
	// ErrNoPackages indicates an empty workspace when work was explicitly
	// requested.
	ErrNoPackages = errors.New("No package.json files found")

	// ErrBadPackageArgument indicates a link/unlink package argument that
	// is neither a scoped package name nor the literal "status".
	ErrBadPackageArgument = errors.New("package argument must be a scoped package name or \"status\"")

	// ErrConflictingCommands indicates both --cmd and a built-in were given.
	ErrConflictingCommands = errors.New("--cmd and --built-in-command are mutually exclusive")
)

// StepError reports the package a batch halted on, with the exact command
// to resume from it.
type StepError struct {
	// Package is the package whose step failed.
	Package string
	// Resume is the literal recovery command, empty for non-resumable runs.
	Resume string
	// Err is the underlying step failure.
	Err error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s failed: %v", e.Package, e.Err)
	if e.Resume != "" {
		fmt.Fprintf(&b, "\nTo resume from this package, run: %s", e.Resume)
	}
	return b.String()
}

// Unwrap returns the underlying step failure.
func (e *StepError) Unwrap() error {
	return e.Err
}
