package tui

import (
	"context"
	"time"

	"surgesim/internal/loadgen"
	"surgesim/internal/poller"
	"surgesim/internal/stats"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Start runs the load test behind a live dashboard and returns the final
// stats so the caller can print and persist the report.
func Start(cfg loadgen.Config, logger *zap.Logger) (*stats.Stats, time.Duration, error) {
	updates := make(loadgen.StatsUpdateChan, 100)
	r := loadgen.NewRunner(cfg, logger, updates)

	// Reject a bad stage plan before the terminal is taken over.
	if err := loadgen.ValidateStages(r.Cfg.Stages); err != nil {
		return r.Stats, 0, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe := poller.New(poller.Config{
		Target:       cfg.Target,
		AgentID:      cfg.AgentID,
		PollTimeout:  cfg.PollTimeout,
		PollWaitData: cfg.PollWaitData,
	}, nil, r.Stats, logger)
	go probe.Run(ctx)

	m := NewModel(cfg.Target, r.Cfg.Stages, updates)
	p := tea.NewProgram(m, tea.WithAltScreen())

	start := time.Now()
	runErr := make(chan error, 1)
	go func() {
		err := r.Run(ctx)
		runErr <- err
		if err != nil && err != context.Canceled {
			p.Quit()
		}
	}()

	if _, err := p.Run(); err != nil {
		return r.Stats, time.Since(start), err
	}
	cancel()

	select {
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			return r.Stats, time.Since(start), err
		}
	default:
	}
	return r.Stats, time.Since(start), nil
}
