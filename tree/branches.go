package tree

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kodrdriv/kodrdriv/graph"
	"github.com/kodrdriv/kodrdriv/types"
)

// BranchRow is one package's line in the branches report.
type BranchRow struct {
	Package   string `json:"package"`
	Branch    string `json:"branch"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	Linked    string `json:"linked"`
	Consumers int    `json:"consumers"`
}

// branchesReport renders the read-only per-package git overview. It never
// mutates any package and ignores --cmd. An individual git failure
// degrades that package's cells to "error" with a warning; the report
// always completes.
func (s *Session) branchesReport(ctx context.Context, g *graph.Graph, narrowed *graph.Narrowed, start time.Time) (*Summary, error) {
	sugar := s.Logger.Sugar()

	rows := make([]BranchRow, 0, len(narrowed.Order))
	for _, name := range narrowed.Order {
		record, ok := g.Record(name)
		if !ok {
			continue
		}
		rows = append(rows, s.collectBranchRow(ctx, g, record))
	}

	message := fmt.Sprintf("Branch report for %s", pluralPackages(len(rows)))
	if s.DryRun {
		message = fmt.Sprintf("Dry run: would report branches for %s", pluralPackages(len(rows)))
	}
	sugar.Infof("%s", message)

	return &Summary{
		Outcome:  types.OutcomeSuccess,
		Message:  message,
		Order:    narrowed.Order,
		Stopped:  narrowed.StoppedBefore,
		Branches: rows,
		Report:   renderBranchTable(rows),
		Duration: time.Since(start),
		Metrics:  s.Collector.Snapshot(),
	}, nil
}

// collectBranchRow gathers one package's git state. Failures degrade to
// "error" cells rather than aborting the report.
func (s *Session) collectBranchRow(ctx context.Context, g *graph.Graph, record types.PackageRecord) BranchRow {
	sugar := s.Logger.Sugar()
	row := BranchRow{
		Package:   record.Name,
		Version:   record.Version,
		Consumers: len(g.Dependents(record.Name)),
	}
	if row.Version == "" {
		row.Version = "-"
	}

	if s.DryRun {
		sugar.Infof("Would run: git status in %s", record.Dir)
		row.Branch = "-"
		row.Status = "dry-run"
		row.Linked = "-"
		return row
	}

	if branch, err := s.Runner.Run(ctx, record.Dir, "git rev-parse --abbrev-ref HEAD"); err != nil {
		sugar.Warnf("cannot read branch for %s: %v", record.Name, err)
		row.Branch = "error"
	} else {
		row.Branch = firstLine(branch.Stdout, "-")
	}

	if status, err := s.Runner.Run(ctx, record.Dir, "git status --porcelain"); err != nil {
		sugar.Warnf("cannot read git status for %s: %v", record.Name, err)
		row.Status = "error"
	} else if strings.TrimSpace(status.Stdout) == "" {
		row.Status = "clean"
	} else {
		row.Status = "modified"
	}

	row.Linked = "no"
	for _, dep := range g.Dependencies(record.Name) {
		if isSymlinked(record.Dir, dep) {
			row.Linked = "yes"
			break
		}
	}
	return row
}

// renderBranchTable renders the fixed-width report table.
func renderBranchTable(rows []BranchRow) string {
	headers := []string{"Package", "Branch", "Version", "Status", "Linked", "Consumers"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := []string{
			row.Package,
			row.Branch,
			row.Version,
			row.Status,
			row.Linked,
			fmt.Sprintf("%d", row.Consumers),
		}
		for i, cell := range line {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
		cells = append(cells, line)
	}

	var b strings.Builder
	writeRow := func(line []string) {
		for i, cell := range line {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteString("\n")
	for _, line := range cells {
		writeRow(line)
	}
	return b.String()
}
