package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kodrdriv/kodrdriv/graph"
	"github.com/kodrdriv/kodrdriv/log"
	"github.com/kodrdriv/kodrdriv/runner"
	"github.com/kodrdriv/kodrdriv/types"
)

// BuiltIn is one of the closed set of built-in operations.
type BuiltIn string

// Built-in operation kinds. BuiltInNone means a user shell command (or a
// plain build-order listing when no command was given either).
const (
	BuiltInNone     BuiltIn = ""
	BuiltInCommit   BuiltIn = "commit"
	BuiltInPublish  BuiltIn = "publish"
	BuiltInLink     BuiltIn = "link"
	BuiltInUnlink   BuiltIn = "unlink"
	BuiltInBranches BuiltIn = "branches"
)

// ParseBuiltIn validates a built-in command name.
func ParseBuiltIn(s string) (BuiltIn, error) {
	switch BuiltIn(s) {
	case BuiltInNone, BuiltInCommit, BuiltInPublish, BuiltInLink, BuiltInUnlink, BuiltInBranches:
		return BuiltIn(s), nil
	default:
		return BuiltInNone, fmt.Errorf("unsupported built-in command %q (must be commit, publish, link, unlink, or branches)", s)
	}
}

// StepContext carries everything one per-package step may need.
type StepContext struct {
	// Index and Total position the step within the batch (1-based).
	Index int
	Total int
	// Record is the package the step runs for.
	Record types.PackageRecord
	// Graph gives read access to local dependency relationships.
	Graph *graph.Graph
	// Runner executes shell commands in the package directory.
	Runner runner.Runner
	// Logger is the per-step sugared logger.
	Logger *log.SugaredLogger
	// DryRun suppresses every process launch and mutation.
	DryRun bool
	// PackageArgument is the link/unlink target, if any.
	PackageArgument string
	// CleanNodeModules removes node_modules before link/unlink.
	CleanNodeModules bool
}

// Operation is one per-package step kind. Implementations are the closed
// set of built-ins plus the user shell command.
type Operation interface {
	// Name identifies the operation in logs and resume commands.
	Name() string
	// Mutating reports whether the operation changes package or remote
	// state, which makes the batch checkpointable.
	Mutating() bool
	// Execute runs the step and returns a one-line success message.
	Execute(ctx context.Context, step StepContext) (string, error)
}

// resolveOperation maps a validated request to its operation.
// The branches built-in never reaches here; it renders a report instead of
// running per-package steps.
func resolveOperation(req Request) Operation {
	switch req.BuiltIn {
	case BuiltInCommit:
		return commitOperation{}
	case BuiltInPublish:
		return publishOperation{}
	case BuiltInLink:
		return linkOperation{}
	case BuiltInUnlink:
		return unlinkOperation{}
	default:
		if req.Command != "" {
			return commandOperation{command: req.Command}
		}
		return nil
	}
}

// commandOperation runs the user-supplied shell command.
type commandOperation struct {
	command string
}

func (o commandOperation) Name() string   { return "cmd" }
func (o commandOperation) Mutating() bool { return true }

func (o commandOperation) Execute(ctx context.Context, step StepContext) (string, error) {
	if step.DryRun {
		step.Logger.Infof("Would execute: %s in %s", o.command, step.Record.Dir)
		return fmt.Sprintf("Would execute: %s", o.command), nil
	}
	result, err := step.Runner.Run(ctx, step.Record.Dir, o.command)
	if err != nil {
		return "", err
	}
	return firstLine(result.Stdout, "done"), nil
}

// commitOperation stages and commits any pending changes in the package.
type commitOperation struct{}

func (o commitOperation) Name() string   { return "commit" }
func (o commitOperation) Mutating() bool { return true }

func (o commitOperation) Execute(ctx context.Context, step StepContext) (string, error) {
	if step.DryRun {
		step.Logger.Infof("Would run: git commit in %s", step.Record.Dir)
		return "Would run: git commit", nil
	}
	status, err := step.Runner.Run(ctx, step.Record.Dir, "git status --porcelain")
	if err != nil {
		return "", fmt.Errorf("failed to check git status: %w", err)
	}
	if strings.TrimSpace(status.Stdout) == "" {
		return "nothing to commit", nil
	}
	if _, err := step.Runner.Run(ctx, step.Record.Dir, "git add -A"); err != nil {
		return "", err
	}
	commit := fmt.Sprintf("git commit -m %q", "chore: workspace commit "+step.Record.Name)
	if _, err := step.Runner.Run(ctx, step.Record.Dir, commit); err != nil {
		return "", err
	}
	return "committed", nil
}

// publishOperation publishes the package to the npm registry.
type publishOperation struct{}

func (o publishOperation) Name() string   { return "publish" }
func (o publishOperation) Mutating() bool { return true }

func (o publishOperation) Execute(ctx context.Context, step StepContext) (string, error) {
	if step.DryRun {
		step.Logger.Infof("Would run: npm publish in %s", step.Record.Dir)
		return "Would run: npm publish", nil
	}
	if _, err := step.Runner.Run(ctx, step.Record.Dir, "npm publish"); err != nil {
		return "", err
	}
	if step.Record.Version != "" {
		return fmt.Sprintf("published %s@%s", step.Record.Name, step.Record.Version), nil
	}
	return fmt.Sprintf("published %s", step.Record.Name), nil
}

// linkOperation wires a package into the npm link registry, or reports
// link status when the package argument is the literal "status".
type linkOperation struct{}

func (o linkOperation) Name() string   { return "link" }
func (o linkOperation) Mutating() bool { return true }

func (o linkOperation) Execute(ctx context.Context, step StepContext) (string, error) {
	if step.PackageArgument == "status" {
		return linkStatus(step), nil
	}
	command := "npm link"
	if step.PackageArgument != "" {
		command = "npm link " + step.PackageArgument
	}
	if step.DryRun {
		step.Logger.Infof("Would run: %s in %s", command, step.Record.Dir)
		return "Would run: " + command, nil
	}
	if err := cleanNodeModules(step); err != nil {
		return "", err
	}
	if _, err := step.Runner.Run(ctx, step.Record.Dir, command); err != nil {
		return "", err
	}
	return "linked", nil
}

// unlinkOperation removes npm links, with the same "status" delegation.
type unlinkOperation struct{}

func (o unlinkOperation) Name() string   { return "unlink" }
func (o unlinkOperation) Mutating() bool { return true }

func (o unlinkOperation) Execute(ctx context.Context, step StepContext) (string, error) {
	if step.PackageArgument == "status" {
		return linkStatus(step), nil
	}
	command := "npm unlink"
	if step.PackageArgument != "" {
		command = "npm unlink " + step.PackageArgument
	}
	if step.DryRun {
		step.Logger.Infof("Would run: %s in %s", command, step.Record.Dir)
		return "Would run: " + command, nil
	}
	if err := cleanNodeModules(step); err != nil {
		return "", err
	}
	if _, err := step.Runner.Run(ctx, step.Record.Dir, command); err != nil {
		return "", err
	}
	return "unlinked", nil
}

// cleanNodeModules removes the package's node_modules when requested.
func cleanNodeModules(step StepContext) error {
	if !step.CleanNodeModules {
		return nil
	}
	dir := filepath.Join(step.Record.Dir, "node_modules")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cannot remove %s: %w", dir, err)
	}
	return nil
}

// linkStatus reports which local dependencies of the package are currently
// npm-linked (present as symlinks under node_modules).
func linkStatus(step StepContext) string {
	var linked []string
	for _, dep := range step.Graph.Dependencies(step.Record.Name) {
		if isSymlinked(step.Record.Dir, dep) {
			linked = append(linked, dep)
		}
	}
	if len(linked) == 0 {
		return "no linked packages"
	}
	return "linked: " + strings.Join(linked, ", ")
}

// isSymlinked reports whether node_modules/<dep> is a symlink.
func isSymlinked(dir, dep string) bool {
	info, err := os.Lstat(filepath.Join(dir, "node_modules", filepath.FromSlash(dep)))
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// firstLine returns the first non-empty line of s, or fallback.
func firstLine(s, fallback string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
