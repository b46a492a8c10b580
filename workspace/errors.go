// Package workspace discovers package.json manifests beneath one or more
// workspace roots and turns them into immutable package records.
//
// This file defines sentinel errors and the manifest error wrapper for
// classifying scan failures. These enable callers to use errors.Is/errors.As
// for typed assertions rather than string matching.
package workspace

import (
	"errors"
	"fmt"
)

// Sentinel errors for workspace integrity failures.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrInvalidManifest indicates a package.json that could not be parsed.
	// A broken manifest aborts the whole scan; it cannot be skipped because
	// an unparsable workspace cannot produce a trustworthy build order.
	ErrInvalidManifest = errors.New("invalid package.json")

	// ErrMissingName indicates a manifest whose name field is absent,
	// empty, or not a string.
	ErrMissingName = errors.New("name must be a string")
)

// ManifestError wraps a scan failure with the offending manifest path.
// It preserves the underlying error in the chain for errors.Is/As.
type ManifestError struct {
	// Path is the package.json file that failed.
	Path string
	// Kind is the sentinel classifying the failure.
	Kind error
	// Err is the underlying error, if any.
	Err error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

// Unwrap returns the underlying error for chain traversal.
func (e *ManifestError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *ManifestError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}
