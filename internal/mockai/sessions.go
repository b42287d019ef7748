package mockai

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// maxWaitForData caps the server-side long-poll window regardless of what
// the client asks for.
const maxWaitForData = 30 * time.Second

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]string{
		{"id": s.agentID, "name": "surgesim mock agent"},
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID string `json:"agent_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.AgentID == "" {
		body.AgentID = s.agentID
	}

	id := s.sessions.Create(body.AgentID)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "agent_id": body.AgentID})
}

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind    string `json:"kind"`
		Source  string `json:"source"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ev, err := s.sessions.Append(mux.Vars(r)["id"], body.Source, body.Kind, body.Message)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handlePollEvents is the long-poll read side: min_offset selects where to
// resume, wait_for_data bounds how long the request is held open when no
// events are ready. An empty list is a normal response, not a failure.
func (s *Server) handlePollEvents(w http.ResponseWriter, r *http.Request) {
	minOffset, _ := strconv.Atoi(r.URL.Query().Get("min_offset"))

	wait := time.Duration(0)
	if raw := r.URL.Query().Get("wait_for_data"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if wait > maxWaitForData {
		wait = maxWaitForData
	}

	events, err := s.sessions.Poll(r.Context(), mux.Vars(r)["id"], minOffset, wait)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, events)
}
