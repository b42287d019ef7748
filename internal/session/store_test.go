package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func immediateReply(text string) ReplyFunc {
	return func(string) (string, time.Duration, bool) {
		return text, 0, false
	}
}

func TestAppendOffsetsMonotonic(t *testing.T) {
	s := NewStore(zap.NewNop(), nil)
	id := s.Create("agent-1")

	for i := 0; i < 5; i++ {
		ev, err := s.Append(id, SourceCustomer, "status", "msg")
		require.NoError(t, err)
		assert.Equal(t, i, ev.Offset)
	}
}

func TestAppendUnknownSession(t *testing.T) {
	s := NewStore(zap.NewNop(), nil)
	_, err := s.Append("nope", SourceCustomer, KindMessage, "hi")
	assert.Error(t, err)
}

func TestPollReturnsExistingEvents(t *testing.T) {
	s := NewStore(zap.NewNop(), nil)
	id := s.Create("agent-1")
	s.Append(id, SourceCustomer, "status", "a")
	s.Append(id, SourceCustomer, "status", "b")

	events, err := s.Poll(context.Background(), id, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 0, events[0].Offset)
	assert.Equal(t, 1, events[1].Offset)

	// Resume past the end
	events, err = s.Poll(context.Background(), id, 2, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPollEmptyOnExpiryIsNotError(t *testing.T) {
	s := NewStore(zap.NewNop(), nil)
	id := s.Create("agent-1")

	start := time.Now()
	events, err := s.Poll(context.Background(), id, 0, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestPollWokenByAppend(t *testing.T) {
	s := NewStore(zap.NewNop(), nil)
	id := s.Create("agent-1")

	done := make(chan []Event, 1)
	go func() {
		events, _ := s.Poll(context.Background(), id, 0, 5*time.Second)
		done <- events
	}()

	time.Sleep(50 * time.Millisecond)
	s.Append(id, SourceCustomer, "status", "wake up")

	select {
	case events := <-done:
		require.Len(t, events, 1)
		assert.Equal(t, "wake up", events[0].Message)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not wake on append")
	}
}

func TestCustomerMessageTriggersAgentReply(t *testing.T) {
	s := NewStore(zap.NewNop(), immediateReply("hello back"))
	id := s.Create("agent-1")

	_, err := s.Append(id, SourceCustomer, KindMessage, "hello")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		events, err := s.Poll(context.Background(), id, 1, 100*time.Millisecond)
		require.NoError(t, err)
		if len(events) > 0 {
			assert.Equal(t, SourceAgent, events[0].Source)
			assert.Equal(t, KindMessage, events[0].Kind)
			assert.Equal(t, "hello back", events[0].Message)
			return
		}
		select {
		case <-deadline:
			t.Fatal("agent reply never arrived")
		default:
		}
	}
}

func TestDroppedReplyNeverArrives(t *testing.T) {
	dropAll := func(string) (string, time.Duration, bool) { return "", 0, true }
	s := NewStore(zap.NewNop(), dropAll)
	id := s.Create("agent-1")

	s.Append(id, SourceCustomer, KindMessage, "hello")

	events, err := s.Poll(context.Background(), id, 1, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNonMessageEventDoesNotTriggerReply(t *testing.T) {
	s := NewStore(zap.NewNop(), immediateReply("should not happen"))
	id := s.Create("agent-1")

	s.Append(id, SourceCustomer, "typing", "...")

	events, err := s.Poll(context.Background(), id, 1, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPollCancelledContext(t *testing.T) {
	s := NewStore(zap.NewNop(), nil)
	id := s.Create("agent-1")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := s.Poll(ctx, id, 0, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
