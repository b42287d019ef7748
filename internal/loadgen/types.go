package loadgen

import (
	"time"
)

type Config struct {
	Target     string
	TimeoutSec int

	// Stage plan; DefaultStages when empty.
	Stages []Stage

	// Probe settings for the conversational turn sampler.
	AgentID      string
	PollTimeout  time.Duration
	PollWaitData time.Duration
}

// TaskResult is one completed virtual-user request.
type TaskResult struct {
	TimeStamp time.Time
	Task      string
	Latency   time.Duration
	Status    int
	Success   bool
	Reason    string
	UserID    string
}

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Users    int64
	Elapsed  time.Duration
	Done     bool

	// Current stage, zero-valued after the plan ends
	Stage      Stage
	StageIndex int

	// Pre-calculated percentiles for the UI (cheap copy)
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64

	TurnP50Ms    float64
	TurnP99Ms    float64
	Turns        int64
	TurnFailures uint64
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot
