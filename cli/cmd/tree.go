package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kodrdriv/kodrdriv/checkpoint"
	"github.com/kodrdriv/kodrdriv/cli/config"
	"github.com/kodrdriv/kodrdriv/cli/render"
	"github.com/kodrdriv/kodrdriv/cli/tui"
	"github.com/kodrdriv/kodrdriv/graph"
	"github.com/kodrdriv/kodrdriv/log"
	"github.com/kodrdriv/kodrdriv/metrics"
	"github.com/kodrdriv/kodrdriv/runner"
	"github.com/kodrdriv/kodrdriv/tree"
	"github.com/kodrdriv/kodrdriv/workspace"
)

// Exit codes.
const (
	exitSuccess        = 0
	exitStepFailure    = 1
	exitConfigError    = 2
	exitWorkspaceError = 3
)

// TreeCommand returns the tree command, the only command that executes work.
func TreeCommand() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "Execute a command per workspace package in dependency order",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "cmd",
				Usage: "Shell command to run once per package",
			},
			&cli.StringSliceFlag{
				Name:    "directories",
				Aliases: []string{"d"},
				Usage:   "Workspace root directories to scan (default: current directory)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Glob patterns excluding packages by name or path",
			},
			&cli.StringFlag{
				Name:  "start-from",
				Usage: "Restrict the order to this package, its dependents, and their dependencies",
			},
			&cli.StringFlag{
				Name:  "stop-at",
				Usage: "Keep only the order prefix before this package",
			},
			&cli.BoolFlag{
				Name:  "continue",
				Usage: "Resume from the last checkpoint",
			},
			&cli.StringFlag{
				Name:  "built-in-command",
				Usage: "Built-in operation: commit, publish, link, unlink, branches",
			},
			&cli.StringFlag{
				Name:  "package-argument",
				Usage: "Scoped package name for link/unlink, or \"status\"",
			},
			&cli.BoolFlag{
				Name:  "clean-node-modules",
				Usage: "Remove node_modules before link/unlink steps",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log every step instead of executing it",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Bypass the workspace scan cache",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to kodrdriv.yaml (default: ./kodrdriv.yaml when present)",
			},
		}, OutputFlags()...),
		Action: treeAction,
	}
}

func treeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	renderer, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	req, err := buildRequest(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	if err := workspace.ValidateExcludes(req.Excludes); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	session, flushCache := buildSession(c, cfg, req)

	// Cancel the batch on interrupt; the checkpoint from the last mutating
	// step stays on disk for --continue.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	summary, err := session.Execute(ctx, req)
	flushCache()
	if err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}

	return renderSummary(c, renderer, summary)
}

// loadConfig reads the explicit --config path or the default kodrdriv.yaml.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// buildRequest merges flags over config-file defaults.
func buildRequest(c *cli.Context, cfg *config.Config) (tree.Request, error) {
	builtIn, err := tree.ParseBuiltIn(c.String("built-in-command"))
	if err != nil {
		return tree.Request{}, err
	}

	roots := c.StringSlice("directories")
	if len(roots) == 0 {
		roots = cfg.Directories
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	excludes := c.StringSlice("exclude")
	if len(excludes) == 0 {
		excludes = cfg.Exclude
	}

	command := c.String("cmd")

	return tree.Request{
		Roots:            roots,
		Excludes:         excludes,
		StartFrom:        c.String("start-from"),
		StopAt:           c.String("stop-at"),
		Command:          command,
		BuiltIn:          builtIn,
		PackageArgument:  c.String("package-argument"),
		CleanNodeModules: c.Bool("clean-node-modules"),
		Continue:         c.Bool("continue"),
	}, nil
}

// buildSession assembles the caller-owned session. The returned function
// flushes the scan cache, a no-op when caching is off.
func buildSession(c *cli.Context, cfg *config.Config, req tree.Request) (*tree.Session, func()) {
	commandLabel := req.Command
	if req.BuiltIn != tree.BuiltInNone {
		commandLabel = string(req.BuiltIn)
	}
	logger := log.NewLogger(log.Context{
		Workspace: req.Roots[0],
		Command:   commandLabel,
	})

	dryRun := c.Bool("dry-run")

	var cache *workspace.Cache
	if cfg.CacheEnabled() && !c.Bool("no-cache") {
		cache = workspace.LoadCache(workspace.CacheFileName, logger)
	}

	session := &tree.Session{
		Logger:      logger,
		Runner:      &runner.ExecRunner{Shell: cfg.Shell},
		Collector:   metrics.NewCollector(commandLabel, req.Roots[0]),
		Checkpoints: checkpoint.NewStore(".", logger),
		Cache:       cache,
		DryRun:      dryRun,
	}

	flush := func() {
		if cache == nil || dryRun {
			return
		}
		if err := cache.Flush(); err != nil {
			logger.Sugar().Warnf("cannot write scan cache: %v", err)
		}
	}
	return session, flush
}

// renderSummary prints the outcome through the shared renderer, or hands
// the branches rows to the TUI when requested.
func renderSummary(c *cli.Context, renderer *render.Renderer, summary *tree.Summary) error {
	if c.Bool("tui") {
		if len(summary.Branches) == 0 {
			return cli.Exit("--tui is only supported for the branches report", exitConfigError)
		}
		return tui.Run(summary.Branches)
	}

	if summary.Report != "" {
		renderer.Println(summary.Report)
	}
	renderer.Statusln(true, summary.Message)

	if f := renderer.Format(); f == render.FormatJSON || f == render.FormatYAML {
		return renderer.Render(summary)
	}
	return nil
}

// exitCodeFor maps the error taxonomy onto process exit codes.
func exitCodeFor(err error) int {
	var cycleErr *graph.CycleError
	var manifestErr *workspace.ManifestError
	var stepErr *tree.StepError

	switch {
	case errors.As(err, &stepErr):
		return exitStepFailure
	case errors.As(err, &cycleErr), errors.As(err, &manifestErr), errors.Is(err, tree.ErrNoPackages):
		return exitWorkspaceError
	case errors.Is(err, graph.ErrPackageNotFound),
		errors.Is(err, tree.ErrBadPackageArgument),
		errors.Is(err, tree.ErrConflictingCommands):
		return exitConfigError
	default:
		return exitStepFailure
	}
}
