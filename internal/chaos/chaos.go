package chaos

import (
	"sync"
)

// leakBlockSize is how much the leak buffer grows per chat-style request
// while the leak is active (1 MiB, matching a realistic slow leak).
const leakBlockSize = 1 << 20

// State is a snapshot of the simulation parameters. Handlers read a copy,
// so a concurrent admin mutation never tears a single request's view.
type State struct {
	LatencyMin       float64 `json:"latency_min"`
	LatencyMax       float64 `json:"latency_max"`
	ErrorRate        float64 `json:"error_rate"`
	MemoryLeakActive bool    `json:"memory_leak_active"`
	CPUStressActive  bool    `json:"cpu_stress_active"`
	LeakedBytes      int     `json:"leaked_bytes"`
}

// Baseline returns the healthy default state: 0.5-2.0s latency, no errors,
// no chaos flags.
func Baseline() State {
	return State{
		LatencyMin: 0.5,
		LatencyMax: 2.0,
	}
}

// Controller holds the single mutable simulation state. Mutations are
// idempotent and order-independent; in-flight requests that snapshotted
// earlier keep their old view, which is accepted chaos behavior.
type Controller struct {
	mu       sync.RWMutex
	state    State
	baseline State
	leaked   [][]byte
}

func NewController() *Controller {
	return NewControllerWith(Baseline())
}

// NewControllerWith starts from (and resets to) a custom baseline, used when
// the thinking-latency bounds are overridden through the environment.
func NewControllerWith(baseline State) *Controller {
	return &Controller{state: baseline, baseline: baseline}
}

// Snapshot returns the current state by value.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LatencySpike raises the simulated latency window to 3-8 seconds.
func (c *Controller) LatencySpike() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LatencyMin = 3.0
	c.state.LatencyMax = 8.0
}

// MemoryLeak makes every subsequent chat-style request grow the leak buffer.
func (c *Controller) MemoryLeak() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.MemoryLeakActive = true
}

// CPUStress switches the analyze path from cooperative sleeping to a
// synchronous busy loop.
func (c *Controller) CPUStress() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CPUStressActive = true
}

// SetErrorRate sets the probability of injected 503 responses.
func (c *Controller) SetErrorRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	c.state.ErrorRate = rate
}

// Grow appends one block to the leak buffer. The buffer only shrinks on Reset.
func (c *Controller) Grow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaked = append(c.leaked, make([]byte, leakBlockSize))
	c.state.LeakedBytes += leakBlockSize
}

// Reset restores the baseline and frees the leaked memory.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.baseline
	c.leaked = nil
}
