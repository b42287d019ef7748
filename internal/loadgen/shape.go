package loadgen

import (
	"fmt"
	"time"
)

// Stage is one step of the ramp plan. EndsAt is the cumulative elapsed
// second at which the stage finishes; stages must be strictly increasing.
type Stage struct {
	EndsAt    int `json:"ends_at"`
	Users     int `json:"users"`
	SpawnRate int `json:"spawn_rate"`
}

// DefaultStages is the built-in ramp: warm up, climb, peak, cool down.
func DefaultStages() []Stage {
	return []Stage{
		{EndsAt: 30, Users: 10, SpawnRate: 5},
		{EndsAt: 60, Users: 50, SpawnRate: 10},
		{EndsAt: 90, Users: 100, SpawnRate: 20},
		{EndsAt: 120, Users: 10, SpawnRate: 5},
	}
}

// ValidateStages rejects plans whose thresholds are not strictly increasing
// or whose targets are not positive.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("stage plan is empty")
	}
	prev := 0
	for i, st := range stages {
		if st.EndsAt <= prev {
			return fmt.Errorf("stage %d: ends_at %d must be greater than %d", i, st.EndsAt, prev)
		}
		if st.Users <= 0 {
			return fmt.Errorf("stage %d: users must be positive", i)
		}
		if st.SpawnRate <= 0 {
			return fmt.Errorf("stage %d: spawn_rate must be positive", i)
		}
		prev = st.EndsAt
	}
	return nil
}

// Tick returns the stage active at the given elapsed time along with its
// index. ok is false once elapsed reaches or passes the final threshold,
// which signals the run to stop.
func Tick(stages []Stage, elapsed time.Duration) (Stage, int, bool) {
	sec := elapsed.Seconds()
	for i, st := range stages {
		if sec < float64(st.EndsAt) {
			return st, i, true
		}
	}
	return Stage{}, -1, false
}

// TotalDuration is the final cumulative threshold of the plan.
func TotalDuration(stages []Stage) time.Duration {
	if len(stages) == 0 {
		return 0
	}
	return time.Duration(stages[len(stages)-1].EndsAt) * time.Second
}
