package storage

import (
	"sync/atomic"
	"time"

	"surgesim/internal/loadgen"
	"surgesim/internal/stats"
)

type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Config    loadgen.Config `json:"config"`
	Summary   RunSummary     `json:"summary"`
}

type TaskSummary struct {
	Requests uint64  `json:"requests"`
	Success  uint64  `json:"success"`
	Fail     uint64  `json:"fail"`
	P50Ms    float64 `json:"p50_ms"`
	P99Ms    float64 `json:"p99_ms"`
	MaxMs    float64 `json:"max_ms"`
}

type RunSummary struct {
	TotalRequests uint64                 `json:"total_requests"`
	Success       uint64                 `json:"success"`
	Fail          uint64                 `json:"fail"`
	ErrorRate     float64                `json:"error_rate"`
	P50LatencyMs  float64                `json:"p50_latency_ms"`
	P99LatencyMs  float64                `json:"p99_latency_ms"`
	Tasks         map[string]TaskSummary `json:"tasks"`
	Failures      map[string]uint64      `json:"failures"`
	Turns         int64                  `json:"turns"`
	TurnFailures  uint64                 `json:"turn_failures"`
	TurnP50Ms     float64                `json:"turn_p50_ms"`
	TurnP99Ms     float64                `json:"turn_p99_ms"`
}

// Summarize flattens live run stats into the persisted form.
func Summarize(st *stats.Stats) RunSummary {
	sum := RunSummary{
		TotalRequests: atomic.LoadUint64(&st.Requests),
		Success:       atomic.LoadUint64(&st.Success),
		Fail:          atomic.LoadUint64(&st.Fail),
		ErrorRate:     st.ErrorRate(),
		P50LatencyMs:  st.Latency.QuantileMs(50),
		P99LatencyMs:  st.Latency.QuantileMs(99),
		Tasks:         make(map[string]TaskSummary),
		Failures:      st.Failures(),
		Turns:         st.TurnLatency.TotalCount(),
		TurnFailures:  atomic.LoadUint64(&st.TurnFailures),
		TurnP50Ms:     st.TurnLatency.QuantileMs(50),
		TurnP99Ms:     st.TurnLatency.QuantileMs(99),
	}
	for _, name := range st.TaskNames() {
		ts := st.Task(name)
		sum.Tasks[name] = TaskSummary{
			Requests: atomic.LoadUint64(&ts.Requests),
			Success:  atomic.LoadUint64(&ts.Success),
			Fail:     atomic.LoadUint64(&ts.Fail),
			P50Ms:    ts.Latency.QuantileMs(50),
			P99Ms:    ts.Latency.QuantileMs(99),
			MaxMs:    ts.Latency.MaxMs(),
		}
	}
	return sum
}
