// Package metrics provides per-run counters for the tree orchestrator.
//
// The Collector accumulates counts during a single invocation. It is a leaf
// package with no internal dependencies. All increment methods are
// nil-receiver safe so callers never need to guard against an absent
// collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Workspace scan
	PackagesDiscovered int64
	ScanCacheHits      int64
	ScanCacheMisses    int64

	// Step execution
	StepsSucceeded int64
	StepsFailed    int64
	StepsSkipped   int64

	// Dimensions (informational, set at construction)
	Command   string
	Workspace string
}

// Collector accumulates counters during a single invocation.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	packagesDiscovered int64
	scanCacheHits      int64
	scanCacheMisses    int64

	stepsSucceeded int64
	stepsFailed    int64
	stepsSkipped   int64

	command   string
	workspace string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(command, workspace string) *Collector {
	return &Collector{
		command:   command,
		workspace: workspace,
	}
}

// IncPackagesDiscovered records one scanned package record.
func (c *Collector) IncPackagesDiscovered() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.packagesDiscovered++
	c.mu.Unlock()
}

// IncScanCacheHit records a manifest served from the scan cache.
func (c *Collector) IncScanCacheHit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scanCacheHits++
	c.mu.Unlock()
}

// IncScanCacheMiss records a manifest parsed from disk.
func (c *Collector) IncScanCacheMiss() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scanCacheMisses++
	c.mu.Unlock()
}

// IncStepSucceeded records a completed per-package step.
func (c *Collector) IncStepSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stepsSucceeded++
	c.mu.Unlock()
}

// IncStepFailed records a failed per-package step.
func (c *Collector) IncStepFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stepsFailed++
	c.mu.Unlock()
}

// AddStepsSkipped records packages that never ran because the batch halted
// or the scope excluded them from the final order.
func (c *Collector) AddStepsSkipped(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stepsSkipped += n
	c.mu.Unlock()
}

// Snapshot returns an immutable view of the counters.
// Safe to call on a nil Collector; returns a zero Snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		PackagesDiscovered: c.packagesDiscovered,
		ScanCacheHits:      c.scanCacheHits,
		ScanCacheMisses:    c.scanCacheMisses,
		StepsSucceeded:     c.stepsSucceeded,
		StepsFailed:        c.stepsFailed,
		StepsSkipped:       c.stepsSkipped,
		Command:            c.command,
		Workspace:          c.workspace,
	}
}
