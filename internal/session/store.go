// Package session implements the session-oriented conversation backend:
// per-session event logs with monotonically increasing offsets, long-poll
// reads, and a synthetic agent that answers customer messages.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SourceCustomer = "customer"
	SourceAgent    = "ai_agent"
	KindMessage    = "message"
)

// Event is one entry in a session's log. Offsets start at 0 and never
// repeat or decrease within a session.
type Event struct {
	ID        string    `json:"id"`
	Offset    int       `json:"offset"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type session struct {
	id      string
	agentID string

	mu     sync.Mutex
	events []Event
	// Closed and replaced whenever an event is appended; pollers wait on it.
	changed chan struct{}
}

// ReplyFunc produces the synthetic agent reply for a customer message:
// the reply text, how long the agent "thinks" before answering, and
// whether the reply is dropped entirely (injected unavailability).
type ReplyFunc func(message string) (text string, delay time.Duration, drop bool)

// Store owns all sessions in the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   *zap.Logger
	reply    ReplyFunc
}

func NewStore(logger *zap.Logger, reply ReplyFunc) *Store {
	return &Store{
		sessions: make(map[string]*session),
		logger:   logger,
		reply:    reply,
	}
}

// Create opens a new session bound to an agent and returns its id.
func (s *Store) Create(agentID string) string {
	sess := &session{
		id:      uuid.New().String(),
		agentID: agentID,
		changed: make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("session created",
		zap.String("session_id", sess.id),
		zap.String("agent_id", agentID))
	return sess.id
}

func (s *Store) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return sess, nil
}

// Append adds an event to the session log and wakes any pollers. A customer
// message additionally schedules the synthetic agent reply.
func (s *Store) Append(sessionID, source, kind, message string) (Event, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return Event{}, err
	}

	ev := sess.append(source, kind, message)

	if source == SourceCustomer && kind == KindMessage && s.reply != nil {
		go s.respond(sess, message)
	}
	return ev, nil
}

func (sess *session) append(source, kind, message string) Event {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ev := Event{
		ID:        uuid.New().String(),
		Offset:    len(sess.events),
		Source:    source,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
	sess.events = append(sess.events, ev)

	close(sess.changed)
	sess.changed = make(chan struct{})
	return ev
}

// respond simulates the agent side of a conversational turn.
func (s *Store) respond(sess *session, message string) {
	text, delay, drop := s.reply(message)
	time.Sleep(delay)
	if drop {
		s.logger.Warn("agent reply dropped",
			zap.String("session_id", sess.id))
		return
	}
	sess.append(SourceAgent, KindMessage, text)
}

// Poll returns the events at or after minOffset. When none exist yet it
// blocks for up to wait (the long-poll window) and returns an empty slice
// on expiry; an empty result is not an error.
func (s *Store) Poll(ctx context.Context, sessionID string, minOffset int, wait time.Duration) ([]Event, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		sess.mu.Lock()
		var out []Event
		if minOffset < len(sess.events) {
			if minOffset < 0 {
				minOffset = 0
			}
			out = append(out, sess.events[minOffset:]...)
		}
		changed := sess.changed
		sess.mu.Unlock()

		if len(out) > 0 {
			return out, nil
		}

		select {
		case <-changed:
			// New data, loop and collect it.
		case <-deadline.C:
			return []Event{}, nil
		case <-ctx.Done():
			return []Event{}, ctx.Err()
		}
	}
}
