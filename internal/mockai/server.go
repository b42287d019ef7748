// Package mockai implements the synthetic inference service: a Gemini-style
// generative API plus chaos-aware agent endpoints, driven entirely by
// synthesized output so load tests never pay for real inference.
package mockai

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"surgesim/internal/chaos"
	"surgesim/internal/config"
	"surgesim/internal/session"
)

// filler is the canned completion used whenever no structured output or
// function call is requested.
const filler = "I understand your request. Here is my response based on the information provided."

// streamText is the word pool for streamed responses.
const streamText = "I understand your request. Let me help you with that. " +
	"Based on the information provided, here is my response. " +
	"Please let me know if you need any clarification."

type Server struct {
	cfg      config.Sim
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
	chaos    *chaos.Controller
	sessions *session.Store
	metrics  *Metrics
	agentID  string

	// compute serializes CPU-stress busy loops, reproducing the original
	// runtime's single-threaded head-of-line blocking.
	compute sync.Mutex

	startTime time.Time
}

func NewServer(cfg config.Sim, logger *zap.Logger, ctrl *chaos.Controller) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    mux.NewRouter(),
		chaos:     ctrl,
		metrics:   NewMetrics(),
		agentID:   "agent-serene",
		startTime: time.Now(),
	}
	s.sessions = session.NewStore(logger, s.agentReply)

	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	// Gemini-style model operations. The {model} segment stops at the colon.
	models := "/v1beta/models/{model:[^:]+}"
	s.router.HandleFunc(models+":generateContent", s.handleGenerate).Methods("POST")
	s.router.HandleFunc(models+":streamGenerateContent", s.handleStreamGenerate).Methods("POST")
	s.router.HandleFunc(models+":embedContent", s.handleEmbed).Methods("POST")
	s.router.HandleFunc(models+":predict", s.handleEmbed).Methods("POST")
	s.router.HandleFunc(models+":batchEmbedContents", s.handleBatchEmbed).Methods("POST")
	s.router.HandleFunc(models+":countTokens", s.handleCountTokens).Methods("POST")

	// Load-test target endpoints.
	s.router.HandleFunc("/api/v1/agent/chat", s.handleChat).Methods("POST")
	s.router.HandleFunc("/api/v1/agent/analyze", s.handleAnalyze).Methods("POST")

	// Session-oriented conversation surface.
	s.router.HandleFunc("/agents", s.handleListAgents).Methods("GET")
	s.router.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	s.router.HandleFunc("/sessions/{id}/events", s.handleAppendEvent).Methods("POST")
	s.router.HandleFunc("/sessions/{id}/events", s.handlePollEvents).Methods("GET")

	// Chaos control panel.
	s.router.HandleFunc("/admin/chaos/latency_spike", s.handleLatencySpike).Methods("POST")
	s.router.HandleFunc("/admin/chaos/memory_leak", s.handleMemoryLeak).Methods("POST")
	s.router.HandleFunc("/admin/chaos/cpu_spike", s.handleCPUSpike).Methods("POST")
	s.router.HandleFunc("/admin/chaos/error_rate", s.handleErrorRate).Methods("POST")
	s.router.HandleFunc("/admin/reset", s.handleReset).Methods("POST")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP.
func (s *Server) ListenAndServe() error {
	s.logger.Info("mock inference server listening",
		zap.Int("port", s.cfg.Port),
		zap.Int("token_count", s.cfg.TokenCount),
		zap.Duration("token_delay", s.cfg.TokenDelay))
	return s.server.ListenAndServe()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the middleware wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.Observe(r.Method, r.URL.Path, rec.status, elapsed)
		s.metrics.SetChaos(s.chaos.Snapshot())

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"config": s.chaos.Snapshot(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	snap := s.chaos.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "surgesim mock inference server",
		"version": "1.0.0",
		"uptime":  time.Since(s.startTime).Seconds(),
		"config": map[string]interface{}{
			"min_latency": snap.LatencyMin,
			"max_latency": snap.LatencyMax,
			"token_delay": s.cfg.TokenDelay.Seconds(),
			"token_count": s.cfg.TokenCount,
		},
	})
}

// agentReply synthesizes the agent side of a conversational turn: thinking
// delay drawn from the current chaos window, reply dropped with the injected
// error probability.
func (s *Server) agentReply(message string) (string, time.Duration, bool) {
	snap := s.chaos.Snapshot()
	delay := uniformLatency(snap)
	drop := rand.Float64() < snap.ErrorRate
	return "Simulated AI response to: " + message, delay, drop
}

// uniformLatency draws a thinking delay uniformly from the chaos window.
func uniformLatency(snap chaos.State) time.Duration {
	span := snap.LatencyMax - snap.LatencyMin
	sec := snap.LatencyMin
	if span > 0 {
		sec += rand.Float64() * span
	}
	return time.Duration(sec * float64(time.Second))
}

func heapAllocMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
