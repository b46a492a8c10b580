// Package checkpoint persists a resumable execution context so a failed
// multi-package batch can be continued from the point of failure.
//
// The context lives in a single JSON dotfile in the invocation working
// directory. An unreadable, corrupt, or schema-mismatched file is treated
// as absent with a warning, never a crash: the checkpoint is recovery
// state, not a source of truth.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kodrdriv/kodrdriv/log"
)

// FileName is the well-known checkpoint location, relative to the
// invocation working directory.
const FileName = ".kodrdriv-context"

// SchemaVersion guards the checkpoint layout. Load treats any other value
// as "no checkpoint" so older binaries never misread newer state.
const SchemaVersion = 1

// Context is the persisted execution record.
type Context struct {
	SchemaVersion int `json:"schema_version"`
	// RemainingPackages is the ordered tail of the build order that has
	// not completed yet, the failed package first.
	RemainingPackages []string `json:"remaining_packages"`
	// Command is the user shell command, when the run used --cmd.
	Command string `json:"command,omitempty"`
	// BuiltIn is the built-in operation name, when the run used one.
	BuiltIn string `json:"built_in,omitempty"`
	// PackageArgument carries the link/unlink target, if any.
	PackageArgument string `json:"package_argument,omitempty"`
	// CleanNodeModules records the --clean-node-modules flag.
	CleanNodeModules bool      `json:"clean_node_modules,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store reads and writes the checkpoint file for one invocation directory.
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *log.Logger) *Store {
	return &Store{path: filepath.Join(dir, FileName), logger: logger}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint. ok is false when the file is absent, corrupt,
// or carries a different schema version; corruption is logged as a warning
// and the caller starts fresh.
func (s *Store) Load() (*Context, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, starting fresh", map[string]any{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return nil, false
	}

	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		s.logger.Warn("checkpoint corrupt, starting fresh", map[string]any{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil, false
	}
	if ctx.SchemaVersion != SchemaVersion {
		s.logger.Warn("checkpoint schema mismatch, starting fresh", map[string]any{
			"path":  s.path,
			"found": ctx.SchemaVersion,
			"want":  SchemaVersion,
		})
		return nil, false
	}
	return &ctx, true
}

// Save writes the checkpoint atomically (write-then-rename) so a crash
// mid-write never leaves a truncated file behind.
func (s *Store) Save(ctx *Context) error {
	ctx.SchemaVersion = SchemaVersion
	if ctx.CreatedAt.IsZero() {
		ctx.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cannot write checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove checkpoint: %w", err)
	}
	return nil
}
