package mockai

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"surgesim/internal/schema"
)

// Wire types for the generateContent surface. Only the fields the simulator
// inspects are modeled; everything else passes through the decoder untouched.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig"`
	Tools            []tool            `json:"tools"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

type functionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type generationConfig struct {
	ResponseMimeType string       `json:"responseMimeType"`
	ResponseSchema   *schema.Node `json:"responseSchema"`
}

type tool struct {
	FunctionDeclarations []functionDecl `json:"functionDeclarations"`
}

type functionDecl struct {
	Name       string       `json:"name"`
	Parameters *schema.Node `json:"parameters"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
	Index        int     `json:"index"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type generateResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

func textResponse(text string, usage usageMetadata) generateResponse {
	return generateResponse{
		Candidates: []candidate{{
			Content: content{
				Parts: []part{{Text: text}},
				Role:  "model",
			},
			FinishReason: "STOP",
			Index:        0,
		}},
		UsageMetadata: usage,
	}
}

// handleGenerate answers non-streaming synthesis requests. Declared tools
// force a function-call response (callers assert a non-empty call); a JSON
// response mime type forces structured output; anything else gets the
// filler sentence.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if snap := s.chaos.Snapshot(); snap.MemoryLeakActive {
		s.chaos.Grow()
	}

	if fn, ok := firstFunction(req.Tools); ok {
		args := schema.FunctionArgs(fn.Name, fn.Parameters)
		s.logger.Debug("synthesizing function call", zap.String("function", fn.Name))

		writeJSON(w, http.StatusOK, generateResponse{
			Candidates: []candidate{{
				Content: content{
					Parts: []part{{FunctionCall: &functionCall{Name: fn.Name, Args: args}}},
					Role:  "model",
				},
				FinishReason: "STOP",
				Index:        0,
			}},
			UsageMetadata: usageMetadata{PromptTokenCount: 50, CandidatesTokenCount: 20, TotalTokenCount: 70},
		})
		return
	}

	if req.GenerationConfig != nil && strings.Contains(req.GenerationConfig.ResponseMimeType, "application/json") {
		title := ""
		node := req.GenerationConfig.ResponseSchema
		if node != nil {
			title = node.Title
		}
		doc := schema.ResolveDocument(title, promptText(req.Contents), node)

		body, err := json.Marshal(doc)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "synthesis failed"})
			return
		}
		s.logger.Debug("synthesizing structured output", zap.String("schema_title", title))

		writeJSON(w, http.StatusOK, textResponse(string(body),
			usageMetadata{PromptTokenCount: 50, CandidatesTokenCount: 20, TotalTokenCount: 70}))
		return
	}

	writeJSON(w, http.StatusOK, textResponse(filler,
		usageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 15, TotalTokenCount: 25}))
}

// firstFunction returns the first declared function across all tools.
func firstFunction(tools []tool) (functionDecl, bool) {
	for _, t := range tools {
		if len(t.FunctionDeclarations) > 0 {
			return t.FunctionDeclarations[0], true
		}
	}
	return functionDecl{}, false
}

// promptText concatenates every text part of the request, the input for the
// legacy keyword heuristic.
func promptText(contents []content) string {
	var sb strings.Builder
	for _, c := range contents {
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
