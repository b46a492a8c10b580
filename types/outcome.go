package types

// OutcomeStatus classifies how a tree run ended.
type OutcomeStatus string

// Outcome values, in order of severity.
const (
	// OutcomeSuccess means every package in the final order completed.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeStepFailure means a per-package step failed and the batch halted.
	OutcomeStepFailure OutcomeStatus = "step_failure"
	// OutcomeConfigError means invalid input was rejected before any package ran.
	OutcomeConfigError OutcomeStatus = "config_error"
	// OutcomeWorkspaceError means the workspace itself is broken
	// (unparsable manifest, dependency cycle).
	OutcomeWorkspaceError OutcomeStatus = "workspace_error"
)

// StepResult is the recorded result of one per-package step.
type StepResult struct {
	// Package is the package name the step ran for.
	Package string `json:"package"`
	// Message is the one-line success message, e.g. command output summary.
	Message string `json:"message,omitempty"`
	// Stdout and Stderr hold captured output, when the step ran a process.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
	// Err is the failure, nil on success.
	Err error `json:"-"`
}
