package mockai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// handleStreamGenerate emits an SSE stream imitating token-by-token
// generation: one thinking delay drawn from the current chaos window, then
// up to TokenCount word chunks separated by TokenDelay. Exactly the last
// emitted chunk carries finishReason STOP, and the stream always ends with
// the [DONE] terminator.
func (s *Server) handleStreamGenerate(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	snap := s.chaos.Snapshot()
	select {
	case <-time.After(uniformLatency(snap)):
	case <-r.Context().Done():
		return
	}

	words := strings.Fields(streamText)
	n := len(words)
	if s.cfg.TokenCount < n {
		n = s.cfg.TokenCount
	}

	for i := 0; i < n; i++ {
		chunk := streamChunk(words[i]+" ", i, i == n-1)
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		select {
		case <-time.After(s.cfg.TokenDelay):
		case <-r.Context().Done():
			return
		}
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func streamChunk(text string, index int, last bool) generateResponse {
	finish := ""
	if last {
		finish = "STOP"
	}
	return generateResponse{
		Candidates: []candidate{{
			Content: content{
				Parts: []part{{Text: text}},
				Role:  "model",
			},
			FinishReason: finish,
			Index:        0,
		}},
		UsageMetadata: usageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: index + 1,
			TotalTokenCount:      10 + index + 1,
		},
	}
}
