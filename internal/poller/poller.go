// Package poller samples end-to-end conversational turn latency against the
// agent session API: send a customer message, then long-poll the event feed
// until the agent's reply shows up.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"surgesim/internal/stats"

	"go.uber.org/zap"
)

var quickMessages = []string{
	"Hello",
	"What are your office hours?",
	"Thank you",
}

var complexMessages = []string{
	"I need to schedule an appointment with a cardiologist next week",
	"Can you explain my recent lab results in detail?",
	"I want a referral to a specialist for my chronic back pain",
}

type Config struct {
	Target       string
	AgentID      string
	PollTimeout  time.Duration
	PollWaitData time.Duration
}

type event struct {
	ID      string `json:"id"`
	Offset  int    `json:"offset"`
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Poller runs one probe conversation and records each turn's latency.
type Poller struct {
	cfg    Config
	client *http.Client
	stats  *stats.Stats
	logger *zap.Logger
	rng    *rand.Rand

	sessionID  string
	lastOffset int
}

func New(cfg Config, client *http.Client, st *stats.Stats, logger *zap.Logger) *Poller {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60 * time.Second
	}
	if cfg.PollWaitData <= 0 {
		cfg.PollWaitData = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.PollWaitData + 15*time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		stats:  st,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run keeps probing until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := p.ensureSession(ctx); err != nil {
			p.logger.Warn("session setup failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}

		if _, err := p.RunTurn(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("turn failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}
	}
}

func (p *Poller) ensureSession(ctx context.Context) error {
	if p.sessionID != "" {
		return nil
	}

	agentID := p.cfg.AgentID
	if agentID == "" {
		id, err := p.discoverAgent(ctx)
		if err != nil {
			return fmt.Errorf("discover agent: %w", err)
		}
		agentID = id
	}

	body, _ := json.Marshal(map[string]string{"agent_id": agentID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Target+"/sessions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("create session: status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return err
	}
	p.sessionID = created.ID
	p.lastOffset = 0
	return nil
}

func (p *Poller) discoverAgent(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Target+"/agents", nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("list agents: status %d", resp.StatusCode)
	}

	var agents []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return "", err
	}
	if len(agents) == 0 {
		return "", fmt.Errorf("no agents available")
	}
	return agents[0].ID, nil
}

// RunTurn sends one customer message and waits for the agent's reply. Every
// turn ends up in the stats: a reply records a completed turn, a timeout or
// transport failure records a failed one with the wall time it consumed.
// Context cancellation is the only exit that records nothing.
func (p *Poller) RunTurn(ctx context.Context) (time.Duration, error) {
	msg := p.pickMessage()
	start := time.Now()

	if err := p.sendMessage(ctx, msg); err != nil {
		p.sessionID = ""
		return p.failTurn(start), fmt.Errorf("send message: %w", err)
	}

	deadline := start.Add(p.cfg.PollTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		default:
		}

		events, err := p.pollEvents(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return time.Since(start), ctx.Err()
			}
			return p.failTurn(start), fmt.Errorf("poll events: %w", err)
		}

		replied := false
		for _, ev := range events {
			if ev.Offset >= p.lastOffset {
				p.lastOffset = ev.Offset + 1
			}
			if ev.Source == "ai_agent" && ev.Kind == "message" {
				replied = true
			}
		}
		if replied {
			elapsed := time.Since(start)
			p.stats.AddTurn(elapsed)
			return elapsed, nil
		}
	}
	return p.failTurn(start), fmt.Errorf("no agent reply within %s", p.cfg.PollTimeout)
}

func (p *Poller) failTurn(start time.Time) time.Duration {
	elapsed := time.Since(start)
	p.stats.AddTurnFailure(elapsed)
	return elapsed
}

func (p *Poller) pickMessage() string {
	// Quick messages dominate 3:1, mirroring short vs long user intents.
	if p.rng.Intn(4) < 3 {
		return quickMessages[p.rng.Intn(len(quickMessages))]
	}
	return complexMessages[p.rng.Intn(len(complexMessages))]
}

func (p *Poller) sendMessage(ctx context.Context, msg string) error {
	body, _ := json.Marshal(map[string]string{
		"source":  "customer",
		"kind":    "message",
		"message": msg,
	})
	u := fmt.Sprintf("%s/sessions/%s/events", p.cfg.Target, p.sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (p *Poller) pollEvents(ctx context.Context) ([]event, error) {
	q := url.Values{}
	q.Set("min_offset", strconv.Itoa(p.lastOffset))
	q.Set("wait_for_data", strconv.Itoa(int(p.cfg.PollWaitData.Seconds())))
	u := fmt.Sprintf("%s/sessions/%s/events?%s", p.cfg.Target, p.sessionID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var events []event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, err
	}
	return events, nil
}
