package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequestAggregates(t *testing.T) {
	s := NewStats()

	s.AddRequest("chat", true, 100*time.Millisecond, "")
	s.AddRequest("chat", false, 200*time.Millisecond, "503: Upstream Service Unavailable")
	s.AddRequest("health", true, 5*time.Millisecond, "")

	assert.Equal(t, uint64(3), s.Requests)
	assert.Equal(t, uint64(2), s.Success)
	assert.Equal(t, uint64(1), s.Fail)

	chat := s.Task("chat")
	require.NotNil(t, chat)
	assert.Equal(t, uint64(2), chat.Requests)
	assert.Equal(t, uint64(1), chat.Fail)

	assert.Nil(t, s.Task("analyze"))
	assert.Equal(t, []string{"chat", "health"}, s.TaskNames())
}

func TestErrorRate(t *testing.T) {
	s := NewStats()
	assert.Equal(t, 0.0, s.ErrorRate())

	s.AddRequest("chat", true, time.Millisecond, "")
	s.AddRequest("chat", false, time.Millisecond, "x")
	assert.InDelta(t, 50.0, s.ErrorRate(), 0.001)
}

func TestFailureClassification(t *testing.T) {
	s := NewStats()
	s.AddRequest("chat", false, time.Millisecond, "503: Upstream Service Unavailable")
	s.AddRequest("chat", false, time.Millisecond, "503: Upstream Service Unavailable")
	s.AddRequest("analyze", false, time.Millisecond, "SLA breach")

	f := s.Failures()
	assert.Equal(t, uint64(2), f["503: Upstream Service Unavailable"])
	assert.Equal(t, uint64(1), f["SLA breach"])
}

func TestTurnLatencySeparateFromTasks(t *testing.T) {
	s := NewStats()
	s.AddTurn(1 * time.Second)
	s.AddTurn(2 * time.Second)

	assert.Equal(t, int64(2), s.TurnLatency.TotalCount())
	assert.Equal(t, uint64(0), s.Requests)
}

func TestHistogramQuantiles(t *testing.T) {
	h := NewSafeHistogram()
	for i := 1; i <= 100; i++ {
		require.NoError(t, h.Record(time.Duration(i)*time.Millisecond))
	}

	assert.Equal(t, int64(100), h.TotalCount())
	assert.InDelta(t, 50.0, h.QuantileMs(50), 1.0)
	assert.InDelta(t, 99.0, h.QuantileMs(99), 1.5)
	assert.InDelta(t, 100.0, h.MaxMs(), 1.0)
	assert.InDelta(t, 50.5, h.MeanMs(), 1.0)
}
