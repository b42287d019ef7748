package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"surgesim/internal/stats"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TaskChat    = "chat"
	TaskAnalyze = "analyze"
	TaskHealth  = "health"

	analyzeSLA       = 2 * time.Second
	healthBound      = 1 * time.Second
	criticalSlowness = 4 * time.Second
	minThink         = 1 * time.Second
	maxThink         = 5 * time.Second
)

// taskTable encodes the chat:analyze:health = 3:1:1 weighting.
var taskTable = []string{
	TaskChat, TaskChat, TaskChat,
	TaskAnalyze,
	TaskHealth,
}

var chatQueries = []string{
	"Why is the sky blue?",
	"Summarize my last order",
	"What plans do you offer?",
	"How do I reset my password?",
}

// VirtualUser is one closed-loop client: pick a task, run it, think, repeat.
type VirtualUser struct {
	ID     string
	cfg    Config
	client *http.Client
	stats  *stats.Stats
	logger *zap.Logger
	rng    *rand.Rand
}

func NewVirtualUser(cfg Config, client *http.Client, st *stats.Stats, logger *zap.Logger) *VirtualUser {
	return &VirtualUser{
		ID:     uuid.New().String(),
		cfg:    cfg,
		client: client,
		stats:  st,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(rand.Int31()))),
	}
}

// Run loops until the context is cancelled.
func (u *VirtualUser) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := u.executeTask(ctx, taskTable[u.rng.Intn(len(taskTable))])
		u.stats.AddRequest(res.Task, res.Success, res.Latency, res.Reason)

		think := minThink + time.Duration(u.rng.Int63n(int64(maxThink-minThink)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(think):
		}
	}
}

func (u *VirtualUser) executeTask(ctx context.Context, task string) TaskResult {
	switch task {
	case TaskAnalyze:
		return u.doAnalyze(ctx)
	case TaskHealth:
		return u.doHealth(ctx)
	default:
		return u.doChat(ctx)
	}
}

func (u *VirtualUser) doChat(ctx context.Context) TaskResult {
	q := chatQueries[u.rng.Intn(len(chatQueries))]
	body, _ := json.Marshal(map[string]string{"query": q, "user_id": u.ID})

	start := time.Now()
	status, err := u.post(ctx, "/api/v1/agent/chat", body)
	latency := time.Since(start)

	res := TaskResult{TimeStamp: start, Task: TaskChat, Latency: latency, Status: status, UserID: u.ID}
	switch {
	case err != nil:
		res.Reason = "request error"
	case status == http.StatusServiceUnavailable:
		res.Reason = "503: Upstream Service Unavailable"
	case status == http.StatusGatewayTimeout:
		res.Reason = "504: Gateway Timeout"
	case status != http.StatusOK:
		res.Reason = fmt.Sprintf("unexpected status %d", status)
	default:
		res.Success = true
	}

	if latency > criticalSlowness {
		u.logger.Warn("[CRITICAL SLOWNESS] chat response exceeded 4s",
			zap.Duration("latency", latency),
			zap.String("user", u.ID))
	}
	return res
}

// doAnalyze fails the task whenever the response misses the 2s deadline,
// even when the server answered 200.
func (u *VirtualUser) doAnalyze(ctx context.Context) TaskResult {
	body, _ := json.Marshal(map[string]string{"user_id": u.ID})

	start := time.Now()
	status, err := u.post(ctx, "/api/v1/agent/analyze", body)
	latency := time.Since(start)

	res := TaskResult{TimeStamp: start, Task: TaskAnalyze, Latency: latency, Status: status, UserID: u.ID}
	switch {
	case err != nil:
		res.Reason = "request error"
	case latency > analyzeSLA:
		res.Reason = fmt.Sprintf("SLA breach: analysis took %.2fs (limit 2.00s)", latency.Seconds())
	case status != http.StatusOK:
		res.Reason = fmt.Sprintf("unexpected status %d", status)
	default:
		res.Success = true
	}
	return res
}

func (u *VirtualUser) doHealth(ctx context.Context) TaskResult {
	start := time.Now()
	status, err := u.get(ctx, "/health")
	latency := time.Since(start)

	res := TaskResult{TimeStamp: start, Task: TaskHealth, Latency: latency, Status: status, UserID: u.ID}
	switch {
	case err != nil:
		res.Reason = "request error"
	case status != http.StatusOK:
		res.Reason = fmt.Sprintf("health check returned %d", status)
	case latency > healthBound:
		res.Reason = fmt.Sprintf("health check took %.2fs (limit 1.00s)", latency.Seconds())
	default:
		res.Success = true
	}
	return res
}

func (u *VirtualUser) post(ctx context.Context, path string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.Target+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return u.do(req)
}

func (u *VirtualUser) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.Target+path, nil)
	if err != nil {
		return 0, err
	}
	return u.do(req)
}

func (u *VirtualUser) do(req *http.Request) (int, error) {
	resp, err := u.client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}
