package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"surgesim/internal/loadgen"
	"surgesim/internal/poller"
	"surgesim/internal/stats"
	"surgesim/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Start runs a headless load test: stage-driven user pool plus the turn
// latency probe, with a live progress line and a final summary.
func Start(cfg loadgen.Config, logger *zap.Logger) error {
	printHeader(cfg)

	updates := make(loadgen.StatsUpdateChan, 100)
	r := loadgen.NewRunner(cfg, logger, updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe := poller.New(poller.Config{
		Target:       cfg.Target,
		AgentID:      cfg.AgentID,
		PollTimeout:  cfg.PollTimeout,
		PollWaitData: cfg.PollWaitData,
	}, nil, r.Stats, logger)
	go probe.Run(ctx)

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	total := loadgen.TotalDuration(r.Cfg.Stages)

	for {
		select {
		case err := <-runErr:
			if err != nil && err != context.Canceled {
				return err
			}
		case s := <-updates:
			printProgress(s, total)
			if s.Done {
				cancel()
				Report(r.Cfg, r.Stats, s.Elapsed, logger)
				return nil
			}
		}
	}
}

// Report prints the final summary and persists the run to history.
func Report(cfg loadgen.Config, st *stats.Stats, elapsed time.Duration, logger *zap.Logger) {
	printSummary(st, elapsed)
	saveRun(cfg, st, logger)
}

// Verify checks the target is reachable before a run starts.
func Verify(target string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(target + "/health")
	if err != nil {
		return fmt.Errorf("target %s unreachable: %w", target, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("target %s health check returned %d", target, resp.StatusCode)
	}
	return nil
}

func printHeader(cfg loadgen.Config) {
	stages := cfg.Stages
	if len(stages) == 0 {
		stages = loadgen.DefaultStages()
	}
	fmt.Printf("\n🚀 STARTING SURGESIM LOAD TEST\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Target     : %s\n", cfg.Target)
	fmt.Printf("Duration   : %s\n", loadgen.TotalDuration(stages))
	for i, st := range stages {
		fmt.Printf("Stage %d    : until %3ds -> %3d users (spawn %d/s)\n", i+1, st.EndsAt, st.Users, st.SpawnRate)
	}
	fmt.Printf("Timeout    : %ds\n", cfg.TimeoutSec)
	fmt.Printf("======================================================================\n\n")
}

func printProgress(s loadgen.StatsSnapshot, total time.Duration) {
	pct := 1.0
	if total > 0 {
		pct = s.Elapsed.Seconds() / total.Seconds()
	}
	if pct > 1.0 {
		pct = 1.0
	}

	rps := 0.0
	if s.Elapsed.Seconds() > 0 {
		rps = float64(s.Requests) / s.Elapsed.Seconds()
	}

	fmt.Printf("\r%s %3.0f%% | %s/%s | Stage %d | Users: %3d | RPS: %.1f | OK: %d | Err: %d | P99: %.0fms",
		progressBar(pct, 20), pct*100,
		s.Elapsed.Round(time.Second), total,
		s.StageIndex+1,
		s.Users,
		rps,
		s.Success,
		s.Fail,
		s.P99Ms,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(st *stats.Stats, totalTime time.Duration) {
	sum := storage.Summarize(st)
	rps := float64(sum.TotalRequests) / totalTime.Seconds()

	fmt.Printf("\n\n📊 LOAD TEST RESULTS\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Total Duration : %s\n", totalTime.Round(time.Second))
	fmt.Printf("Requests Sent  : %d\n", sum.TotalRequests)
	fmt.Printf("Success        : %d\n", sum.Success)
	fmt.Printf("Failures       : %d (%.1f%%)\n", sum.Fail, sum.ErrorRate)
	fmt.Printf("Actual RPS     : %.2f\n", rps)

	fmt.Printf("\n⏱️  RESPONSE TIMES (ms)\n")
	fmt.Printf("   P50 : %.2f\n", sum.P50LatencyMs)
	fmt.Printf("   P99 : %.2f\n", sum.P99LatencyMs)
	fmt.Printf("   Max : %.2f\n", st.Latency.MaxMs())

	if len(sum.Tasks) > 0 {
		fmt.Printf("\n📋 PER-TASK BREAKDOWN\n")
		for _, name := range st.TaskNames() {
			ts := sum.Tasks[name]
			fmt.Printf("   %-8s reqs: %6d | fail: %5d | p50: %8.2fms | p99: %8.2fms\n",
				name, ts.Requests, ts.Fail, ts.P50Ms, ts.P99Ms)
		}
	}

	if sum.Turns > 0 {
		fmt.Printf("\n💬 AGENT TURN LATENCY\n")
		fmt.Printf("   Turns  : %d\n", sum.Turns)
		fmt.Printf("   Failed : %d\n", sum.TurnFailures)
		fmt.Printf("   P50    : %.2fms\n", sum.TurnP50Ms)
		fmt.Printf("   P99    : %.2fms\n", sum.TurnP99Ms)
	}

	if len(sum.Failures) > 0 {
		fmt.Printf("\n❌ FAILURE SUMMARY\n")
		for reason, count := range sum.Failures {
			fmt.Printf("   %d x %s\n", count, reason)
		}
	}
	fmt.Printf("======================================================================\n")
}

func saveRun(cfg loadgen.Config, st *stats.Stats, logger *zap.Logger) {
	store, err := storage.NewStore()
	if err != nil {
		logger.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	item := storage.HistoryItem{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Config:    cfg,
		Summary:   storage.Summarize(st),
	}
	if err := store.Save(item); err != nil {
		logger.Warn("failed to save run", zap.Error(err))
		return
	}
	fmt.Printf("💾 Run saved to history (%s)\n", item.ID)
}
