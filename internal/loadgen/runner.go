package loadgen

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"surgesim/internal/stats"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Runner struct {
	Cfg    Config
	Stats  *stats.Stats
	Client *http.Client
	Logger *zap.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup

	active int64

	// Event Channel
	Updates StatsUpdateChan

	// Stage visible to the tick loop
	stageMu    sync.Mutex
	stage      Stage
	stageIndex int
	started    time.Time
}

func NewRunner(cfg Config, logger *zap.Logger, updates StatsUpdateChan) *Runner {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	client := &http.Client{
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		Transport: t,
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}
	if len(cfg.Stages) == 0 {
		cfg.Stages = DefaultStages()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		Cfg:     cfg,
		Stats:   stats.NewStats(),
		Client:  client,
		Logger:  logger,
		Updates: updates,
	}
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate(false)
			}
		}
	}()
}

func (r *Runner) sendUpdate(done bool) {
	r.stageMu.Lock()
	st, idx, started := r.stage, r.stageIndex, r.started
	r.stageMu.Unlock()

	s := StatsSnapshot{
		Requests:     atomic.LoadUint64(&r.Stats.Requests),
		Success:      atomic.LoadUint64(&r.Stats.Success),
		Fail:         atomic.LoadUint64(&r.Stats.Fail),
		Users:        atomic.LoadInt64(&r.active),
		Elapsed:      time.Since(started),
		Done:         done,
		Stage:        st,
		StageIndex:   idx,
		P50Ms:        r.Stats.Latency.QuantileMs(50),
		P90Ms:        r.Stats.Latency.QuantileMs(90),
		P99Ms:        r.Stats.Latency.QuantileMs(99),
		MaxMs:        r.Stats.Latency.MaxMs(),
		TurnP50Ms:    r.Stats.TurnLatency.QuantileMs(50),
		TurnP99Ms:    r.Stats.TurnLatency.QuantileMs(99),
		Turns:        r.Stats.TurnLatency.TotalCount(),
		TurnFailures: atomic.LoadUint64(&r.Stats.TurnFailures),
	}

	if done {
		// The final snapshot must land
		r.Updates <- s
		return
	}

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run drives the stage plan to completion or until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := ValidateStages(r.Cfg.Stages); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	r.stageMu.Lock()
	r.started = start
	r.stageMu.Unlock()

	r.StartTickLoop(runCtx, 200*time.Millisecond)

	limiter := rate.NewLimiter(rate.Limit(r.Cfg.Stages[0].SpawnRate), 1)
	lastIdx := -1

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		st, idx, ok := Tick(r.Cfg.Stages, time.Since(start))
		if !ok {
			break
		}

		r.stageMu.Lock()
		r.stage, r.stageIndex = st, idx
		r.stageMu.Unlock()

		if idx != lastIdx {
			limiter.SetLimit(rate.Limit(st.SpawnRate))
			limiter.SetBurst(st.SpawnRate)
			r.Logger.Info("entering stage",
				zap.Int("stage", idx),
				zap.Int("users", st.Users),
				zap.Int("spawn_rate", st.SpawnRate))
			lastIdx = idx
		}

		r.adjustPopulation(runCtx, st, limiter)

		select {
		case <-runCtx.Done():
			r.stopAll()
			r.wg.Wait()
			r.sendUpdate(true)
			return runCtx.Err()
		case <-ticker.C:
		}
	}

	r.stopAll()
	r.wg.Wait()
	r.sendUpdate(true)
	return nil
}

// adjustPopulation grows or shrinks the user pool toward the stage target,
// paced by the stage spawn rate in both directions.
func (r *Runner) adjustPopulation(ctx context.Context, st Stage, limiter *rate.Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.cancels) < st.Users && limiter.Allow() {
		r.spawnLocked(ctx)
	}

	stopped := 0
	for len(r.cancels) > st.Users && stopped < st.SpawnRate {
		last := len(r.cancels) - 1
		r.cancels[last]()
		r.cancels = r.cancels[:last]
		stopped++
	}
}

func (r *Runner) spawnLocked(ctx context.Context) {
	userCtx, cancel := context.WithCancel(ctx)
	r.cancels = append(r.cancels, cancel)

	u := NewVirtualUser(r.Cfg, r.Client, r.Stats, r.Logger)
	r.wg.Add(1)
	atomic.AddInt64(&r.active, 1)
	go func() {
		defer r.wg.Done()
		defer atomic.AddInt64(&r.active, -1)
		u.Run(userCtx)
	}()
}

func (r *Runner) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

func (r *Runner) ActiveUsers() int64 {
	return atomic.LoadInt64(&r.active)
}
