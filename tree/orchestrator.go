package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kodrdriv/kodrdriv/checkpoint"
	"github.com/kodrdriv/kodrdriv/graph"
	"github.com/kodrdriv/kodrdriv/log"
	"github.com/kodrdriv/kodrdriv/metrics"
	"github.com/kodrdriv/kodrdriv/runner"
	"github.com/kodrdriv/kodrdriv/types"
	"github.com/kodrdriv/kodrdriv/workspace"
)

// Session owns the collaborators for one tree invocation. It is
// caller-owned and carries no process-global state, so concurrent sessions
// (as in tests) do not interfere.
type Session struct {
	// Logger is required.
	Logger *log.Logger
	// Runner executes shell commands. Required unless every run is dry.
	Runner runner.Runner
	// Collector records run counters. Nil disables metrics.
	Collector *metrics.Collector
	// Checkpoints persists resumable state. Nil disables checkpointing.
	Checkpoints *checkpoint.Store
	// Cache is the optional workspace scan cache.
	Cache *workspace.Cache
	// DryRun logs every step instead of executing it and never writes
	// checkpoints.
	DryRun bool
}

// Request is one validated tree invocation.
type Request struct {
	// Roots are the workspace directories to scan.
	Roots []string
	// Excludes are glob patterns removing packages from the graph.
	Excludes []string
	// StartFrom and StopAt narrow the build order.
	StartFrom string
	StopAt    string
	// Command is the user shell command to run per package.
	Command string
	// BuiltIn selects a built-in operation instead of Command.
	BuiltIn BuiltIn
	// PackageArgument is the link/unlink target, or the literal "status".
	PackageArgument string
	// CleanNodeModules removes node_modules before link/unlink steps.
	CleanNodeModules bool
	// Continue resumes from a persisted checkpoint when one exists.
	Continue bool
}

// Summary is the outcome of a tree invocation.
type Summary struct {
	Outcome types.OutcomeStatus `json:"outcome"`
	// Message is the human-readable one-line result.
	Message string `json:"message"`
	// Order is the final narrowed build order.
	Order []string `json:"order,omitempty"`
	// Stopped is how many packages --stop-at excluded.
	Stopped int `json:"stopped,omitempty"`
	// Results holds one entry per executed step, in order.
	Results []types.StepResult `json:"results,omitempty"`
	// Branches holds the branches report rows, for that built-in only.
	Branches []BranchRow `json:"branches,omitempty"`
	// Report is the rendered branches table, for that built-in only.
	Report string `json:"-"`
	// Duration is the wall-clock time of the invocation.
	Duration time.Duration `json:"duration"`
	// Metrics is the final counter snapshot.
	Metrics metrics.Snapshot `json:"metrics"`
}

// Execute runs the full pipeline: scan, graph, sort, scope, then one step
// per package in order, halting on first failure with a resumable
// checkpoint left in place.
func (s *Session) Execute(ctx context.Context, req Request) (*Summary, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		return nil, err
	}

	req = s.adoptCheckpoint(req)

	records, err := workspace.Scan(workspace.ScanOptions{
		Roots:     req.Roots,
		Excludes:  req.Excludes,
		Cache:     s.Cache,
		Collector: s.Collector,
		Logger:    s.Logger,
	})
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		if req.Command != "" || req.BuiltIn != BuiltInNone {
			return nil, fmt.Errorf("%w under %s", ErrNoPackages, strings.Join(req.Roots, ", "))
		}
		return &Summary{
			Outcome:  types.OutcomeSuccess,
			Message:  "No package.json files found",
			Duration: time.Since(start),
			Metrics:  s.Collector.Snapshot(),
		}, nil
	}

	records = graph.ExcludeRecords(records, req.Excludes)
	g := graph.Build(records)

	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("build order computed", map[string]any{"order": order})

	narrowed, err := g.Apply(order, graph.Scope{StartFrom: req.StartFrom, StopAt: req.StopAt})
	if err != nil {
		return nil, err
	}
	if narrowed.StoppedBefore > 0 {
		s.Logger.Sugar().Infof("stop-at %s: excluding %s", req.StopAt, pluralPackages(narrowed.StoppedBefore))
	}

	if req.BuiltIn == BuiltInBranches {
		return s.branchesReport(ctx, g, narrowed, start)
	}

	op := resolveOperation(req)
	if op == nil {
		// No command and no built-in: report the computed order.
		return &Summary{
			Outcome:  types.OutcomeSuccess,
			Message:  fmt.Sprintf("Build order: %s", strings.Join(narrowed.Order, " -> ")),
			Order:    narrowed.Order,
			Stopped:  narrowed.StoppedBefore,
			Duration: time.Since(start),
			Metrics:  s.Collector.Snapshot(),
		}, nil
	}

	return s.executeSteps(ctx, req, g, narrowed, op, start)
}

// executeSteps runs op once per package, strictly in order, checkpointing
// the remaining tail before each mutating step.
func (s *Session) executeSteps(ctx context.Context, req Request, g *graph.Graph, narrowed *graph.Narrowed, op Operation, start time.Time) (*Summary, error) {
	sugar := s.Logger.Sugar()
	pending := s.resumeOrder(req, narrowed.Order)
	checkpointing := op.Mutating() && s.Checkpoints != nil && !s.DryRun

	var results []types.StepResult
	total := len(pending)
	for i, name := range pending {
		record, ok := g.Record(name)
		if !ok {
			sugar.Warnf("checkpointed package %s no longer in workspace, skipping", name)
			s.Collector.AddStepsSkipped(1)
			continue
		}

		if checkpointing {
			if err := s.Checkpoints.Save(&checkpoint.Context{
				RemainingPackages: pending[i:],
				Command:           req.Command,
				BuiltIn:           string(req.BuiltIn),
				PackageArgument:   req.PackageArgument,
				CleanNodeModules:  req.CleanNodeModules,
			}); err != nil {
				return nil, err
			}
		}

		step := StepContext{
			Index:            i + 1,
			Total:            total,
			Record:           record,
			Graph:            g,
			Runner:           s.Runner,
			Logger:           sugar,
			DryRun:           s.DryRun,
			PackageArgument:  req.PackageArgument,
			CleanNodeModules: req.CleanNodeModules,
		}

		message, err := op.Execute(ctx, step)
		if err != nil {
			s.Collector.IncStepFailed()
			s.Collector.AddStepsSkipped(int64(total - i - 1))
			result := types.StepResult{Package: name, Err: err}
			if cmdErr, ok := asCommandError(err); ok {
				result.Stdout = cmdErr.Stdout
				result.Stderr = cmdErr.Stderr
			}
			results = append(results, result)

			resume := resumeCommand(req)
			stepErr := &StepError{Package: name, Resume: resume, Err: err}
			sugar.Errorf("[%d/%d] %s: %v", i+1, total, name, err)
			if resume != "" {
				sugar.Errorf("To resume from this package, run: %s", resume)
			}
			return nil, stepErr
		}

		s.Collector.IncStepSucceeded()
		results = append(results, types.StepResult{Package: name, Message: message})
		sugar.Infof("[%d/%d] %s: %s", i+1, total, name, message)
	}

	if checkpointing {
		if err := s.Checkpoints.Clear(); err != nil {
			sugar.Warnf("cannot clear checkpoint: %v", err)
		}
	}

	message := fmt.Sprintf("Processed %s", pluralPackages(len(results)))
	if s.DryRun {
		message = fmt.Sprintf("Dry run: would process %s", pluralPackages(len(results)))
	}
	return &Summary{
		Outcome:  types.OutcomeSuccess,
		Message:  message,
		Order:    narrowed.Order,
		Stopped:  narrowed.StoppedBefore,
		Results:  results,
		Duration: time.Since(start),
		Metrics:  s.Collector.Snapshot(),
	}, nil
}

// adoptCheckpoint fills in operation details from a persisted checkpoint
// when --continue was passed without an explicit command. A missing or
// unusable checkpoint degrades to a fresh full run with a warning.
func (s *Session) adoptCheckpoint(req Request) Request {
	if !req.Continue || s.Checkpoints == nil {
		return req
	}
	saved, ok := s.Checkpoints.Load()
	if !ok {
		s.Logger.Warn("no usable checkpoint, starting fresh", map[string]any{
			"path": s.Checkpoints.Path(),
		})
		req.Continue = false
		return req
	}
	if req.Command == "" && req.BuiltIn == BuiltInNone {
		req.Command = saved.Command
		req.BuiltIn = BuiltIn(saved.BuiltIn)
		req.PackageArgument = saved.PackageArgument
		req.CleanNodeModules = saved.CleanNodeModules
	}
	return req
}

// resumeOrder restricts the narrowed order to the checkpointed remaining
// tail, preserving build order.
func (s *Session) resumeOrder(req Request, order []string) []string {
	if !req.Continue || s.Checkpoints == nil {
		return order
	}
	saved, ok := s.Checkpoints.Load()
	if !ok {
		return order
	}
	remaining := make(map[string]struct{}, len(saved.RemainingPackages))
	for _, name := range saved.RemainingPackages {
		remaining[name] = struct{}{}
	}
	kept := make([]string, 0, len(order))
	for _, name := range order {
		if _, ok := remaining[name]; ok {
			kept = append(kept, name)
		}
	}
	s.Logger.Info("resuming from checkpoint", map[string]any{
		"remaining": kept,
	})
	return kept
}

// validate rejects bad input before any package is touched.
func validate(req Request) error {
	if req.Command != "" && req.BuiltIn != BuiltInNone {
		return ErrConflictingCommands
	}
	if req.BuiltIn == BuiltInLink || req.BuiltIn == BuiltInUnlink {
		arg := req.PackageArgument
		if arg != "" && arg != "status" && !strings.HasPrefix(arg, "@") {
			return fmt.Errorf("%w: got %q", ErrBadPackageArgument, arg)
		}
	}
	return nil
}

// resumeCommand builds the literal command a user can run to resume after
// a failure.
func resumeCommand(req Request) string {
	var b strings.Builder
	b.WriteString("kodrdriv tree --continue")
	if req.Command != "" {
		fmt.Fprintf(&b, " --cmd %q", req.Command)
	}
	if req.BuiltIn != BuiltInNone {
		fmt.Fprintf(&b, " --built-in-command %s", req.BuiltIn)
	}
	if req.PackageArgument != "" {
		fmt.Fprintf(&b, " --package-argument %s", req.PackageArgument)
	}
	if req.CleanNodeModules {
		b.WriteString(" --clean-node-modules")
	}
	return b.String()
}

func asCommandError(err error) (*runner.CommandError, bool) {
	var cmdErr *runner.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}

func pluralPackages(n int) string {
	if n == 1 {
		return "1 package"
	}
	return fmt.Sprintf("%d packages", n)
}
