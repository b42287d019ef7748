package mockai

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type chatRequest struct {
	Query    string `json:"query"`
	UserID   string `json:"user_id"`
	MockMode bool   `json:"mock_mode"`
}

// handleChat is the I/O-bound load-test target: a chaos-drawn sleep, a
// probabilistic 503, a leak-buffer growth when the leak is active, and an
// echo response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	snap := s.chaos.Snapshot()
	delay := uniformLatency(snap)

	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return
	}

	if rand.Float64() < snap.ErrorRate {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "Service Unavailable - Overwhelmed"})
		return
	}

	if snap.MemoryLeakActive {
		s.chaos.Grow()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response_text":          "Simulated AI response to: " + req.Query,
		"processing_time":        fmt.Sprintf("%.2fs", delay.Seconds()),
		"server_memory_usage_mb": heapAllocMB(),
	})
}

// handleAnalyze runs for twice the minimum latency either cooperatively
// (sleep) or, under CPU stress, as a synchronous busy loop holding the
// single compute slot. Holding the slot is what makes concurrent analyze
// requests serialize, the same head-of-line blocking a blocking call causes
// on a single-threaded scheduler.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	snap := s.chaos.Snapshot()
	target := time.Duration(snap.LatencyMin * 2 * float64(time.Second))

	if snap.CPUStressActive {
		s.compute.Lock()
		busyLoop(target)
		s.compute.Unlock()

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "Heavy Analysis Complete",
			"mode":   "CPU_BOUND",
		})
		return
	}

	select {
	case <-time.After(target):
	case <-r.Context().Done():
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "Analysis Complete",
		"mode":   "IO_BOUND",
	})
}

// busyLoop burns CPU with pointless arithmetic until the deadline.
func busyLoop(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
		_ = math.Sqrt(float64(rand.Intn(10000)+1)) * rand.Float64()
	}
}

// --- chaos control panel ---

func (s *Server) handleLatencySpike(w http.ResponseWriter, r *http.Request) {
	s.chaos.LatencySpike()
	s.logger.Warn("chaos: latency spike activated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "LATENCY SPIKE ACTIVATED"})
}

func (s *Server) handleMemoryLeak(w http.ResponseWriter, r *http.Request) {
	s.chaos.MemoryLeak()
	s.logger.Warn("chaos: memory leak activated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "MEMORY LEAK ACTIVATED"})
}

func (s *Server) handleCPUSpike(w http.ResponseWriter, r *http.Request) {
	s.chaos.CPUStress()
	s.logger.Warn("chaos: cpu stress activated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "CPU STRESS ACTIVATED"})
}

func (s *Server) handleErrorRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s.chaos.SetErrorRate(body.Rate)
	s.logger.Warn("chaos: error injection configured", zap.Float64("rate", body.Rate))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ERROR INJECTION ACTIVATED"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.chaos.Reset()
	s.logger.Info("chaos: system normalized")
	writeJSON(w, http.StatusOK, map[string]string{"status": "SYSTEM NORMALIZED"})
}
