package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TaskStats aggregates results for a single task type (chat, analyze, health).
type TaskStats struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	Latency *SafeHistogram
}

func newTaskStats() *TaskStats {
	return &TaskStats{Latency: NewSafeHistogram()}
}

// Stats holds real-time aggregated metrics across all virtual users.
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	// All-task latency histogram (microseconds)
	Latency *SafeHistogram

	// Agent turn latency, measured by the long-poll turn probe. Failed
	// turns land here too, with the time they consumed before giving up.
	TurnLatency *SafeHistogram

	// Turns that ended in timeout or transport failure
	TurnFailures uint64

	mu       sync.Mutex
	tasks    map[string]*TaskStats
	failures map[string]uint64
}

func NewStats() *Stats {
	return &Stats{
		Latency:     NewSafeHistogram(),
		TurnLatency: NewSafeHistogram(),
		tasks:       make(map[string]*TaskStats),
		failures:    make(map[string]uint64),
	}
}

// AddRequest records one completed task request. reason is empty on success
// and a classification label on failure.
func (s *Stats) AddRequest(task string, success bool, latency time.Duration, reason string) {
	atomic.AddUint64(&s.Requests, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
	s.Latency.Record(latency)

	s.mu.Lock()
	ts, ok := s.tasks[task]
	if !ok {
		ts = newTaskStats()
		s.tasks[task] = ts
	}
	if !success && reason != "" {
		s.failures[reason]++
	}
	s.mu.Unlock()

	atomic.AddUint64(&ts.Requests, 1)
	if success {
		atomic.AddUint64(&ts.Success, 1)
	} else {
		atomic.AddUint64(&ts.Fail, 1)
	}
	ts.Latency.Record(latency)
}

// AddTurn records one completed agent conversational turn.
func (s *Stats) AddTurn(latency time.Duration) {
	s.TurnLatency.Record(latency)
}

// AddTurnFailure records a turn that never saw an agent reply. The elapsed
// wall time up to the timeout or failure still enters the distribution.
func (s *Stats) AddTurnFailure(latency time.Duration) {
	atomic.AddUint64(&s.TurnFailures, 1)
	s.TurnLatency.Record(latency)
}

func (s *Stats) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

// TaskNames returns the recorded task names in sorted order.
func (s *Stats) TaskNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Task returns the per-task aggregate, or nil if never recorded.
func (s *Stats) Task(name string) *TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[name]
}

// Failures returns a copy of the failure classification counts.
func (s *Stats) Failures() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}
