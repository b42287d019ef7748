package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sim configures the mock inference server.
type Sim struct {
	Port       int
	MinLatency float64       // baseline thinking-latency lower bound, seconds
	MaxLatency float64       // baseline thinking-latency upper bound, seconds
	TokenDelay time.Duration // pause between streamed tokens
	TokenCount int           // max tokens per streamed response
}

// Harness configures the load generator side.
type Harness struct {
	Target       string
	AgentID      string
	PollTimeout  time.Duration // overall turn deadline
	PollWaitData time.Duration // per-poll wait_for_data window
	TimeoutSec   int           // per-request HTTP timeout
}

// Init wires viper defaults and the SURGESIM_* environment namespace.
// Every knob maps to exactly one behavior: latency bounds shape the stream
// thinking delay, token knobs shape streaming cadence, poll knobs bound the
// turn-latency measurement.
func Init() {
	viper.SetEnvPrefix("surgesim")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", 8000)
	viper.SetDefault("min_latency", 0.5)
	viper.SetDefault("max_latency", 2.0)
	viper.SetDefault("token_delay", "50ms")
	viper.SetDefault("token_count", 20)
	viper.SetDefault("poll_timeout", "60s")
	viper.SetDefault("poll_wait_for_data", "10s")
	viper.SetDefault("agent_id", "")
	viper.SetDefault("timeout", 30)
}

// LoadSim reads the server config.
func LoadSim() Sim {
	return Sim{
		Port:       viper.GetInt("port"),
		MinLatency: viper.GetFloat64("min_latency"),
		MaxLatency: viper.GetFloat64("max_latency"),
		TokenDelay: viper.GetDuration("token_delay"),
		TokenCount: viper.GetInt("token_count"),
	}
}

// LoadHarness reads the load-generator config.
func LoadHarness(target string) Harness {
	return Harness{
		Target:       target,
		AgentID:      viper.GetString("agent_id"),
		PollTimeout:  viper.GetDuration("poll_timeout"),
		PollWaitData: viper.GetDuration("poll_wait_for_data"),
		TimeoutSec:   viper.GetInt("timeout"),
	}
}
