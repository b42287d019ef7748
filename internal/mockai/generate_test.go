package mockai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"surgesim/internal/chaos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genBody(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestGenerateFillerText(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	req := genBody(t, `{"contents":[{"parts":[{"text":"Tell me a story"}]}]}`)

	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/gemini-pro:generateContent", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp generateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, filler, resp.Candidates[0].Content.Parts[0].Text)
	assert.Equal(t, "STOP", resp.Candidates[0].FinishReason)
	assert.Equal(t, 25, resp.UsageMetadata.TotalTokenCount)
}

func TestGenerateFunctionCall(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	req := genBody(t, `{
		"contents":[{"parts":[{"text":"call the tool"}]}],
		"tools":[{"functionDeclarations":[{
			"name":"log_data",
			"parameters":{"type":"object","properties":{"is_continuous":{"type":"boolean"}}}
		}]}]
	}`)

	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/gemini-pro:generateContent", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp generateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Candidates, 1)

	fc := resp.Candidates[0].Content.Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "log_data", fc.Name)
	require.NotEmpty(t, fc.Args, "a declared tool must always produce call arguments")
	assert.Equal(t, 70, resp.UsageMetadata.TotalTokenCount)
}

func TestGenerateStructuredOutputByTitle(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	req := genBody(t, `{
		"contents":[{"parts":[{"text":"classify"}]}],
		"generationConfig":{
			"responseMimeType":"application/json",
			"responseSchema":{"type":"object","title":"CustomerDependentActionSchema"}
		}
	}`)

	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/gemini-pro:generateContent", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp generateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &doc))
	assert.Equal(t, false, doc["is_customer_dependent"])
}

func TestGenerateStructuredOutputSynthesized(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	req := genBody(t, `{
		"contents":[{"parts":[{"text":"produce a report"}]}],
		"generationConfig":{
			"responseMimeType":"application/json",
			"responseSchema":{"type":"object","properties":{"verdict":{"type":"string","enum":["pass","fail"]}}}
		}
	}`)

	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/gemini-pro:generateContent", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp generateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &doc))
	assert.Equal(t, "pass", doc["verdict"])
}

func TestGenerateBadBody(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	req := httptest.NewRequest("POST", "/v1beta/models/gemini-pro:generateContent", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamGenerate(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(
		srv.URL+"/v1beta/models/gemini-pro:streamGenerateContent",
		"application/json",
		bytes.NewBufferString(`{"contents":[{"parts":[{"text":"go"}]}]}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var chunks []generateResponse
	sawDone := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			sawDone = true
			break
		}
		var chunk generateResponse
		require.NoError(t, json.Unmarshal([]byte(payload), &chunk))
		chunks = append(chunks, chunk)
	}
	require.NoError(t, scanner.Err())

	require.True(t, sawDone, "stream must terminate with [DONE]")

	words := len(strings.Fields(streamText))
	want := s.cfg.TokenCount
	if words < want {
		want = words
	}
	require.Len(t, chunks, want)

	// Exactly the final chunk carries the STOP finish reason.
	for i, chunk := range chunks {
		require.Len(t, chunk.Candidates, 1)
		if i == len(chunks)-1 {
			assert.Equal(t, "STOP", chunk.Candidates[0].FinishReason)
		} else {
			assert.Empty(t, chunk.Candidates[0].FinishReason)
		}
		assert.Equal(t, i+1, chunk.UsageMetadata.CandidatesTokenCount)
	}
}

func TestStreamThinkingDelayBeforeFirstChunk(t *testing.T) {
	base := chaos.Baseline()
	base.LatencyMin = 0.2
	base.LatencyMax = 0.2
	s := newTestServer(t, base)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	start := time.Now()
	resp, err := http.Post(
		srv.URL+"/v1beta/models/gemini-pro:streamGenerateContent",
		"application/json",
		bytes.NewBufferString(`{"contents":[{"parts":[{"text":"go"}]}]}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}

	// The whole 200ms thinking window must elapse before any token flows.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestStreamGenerateTruncatedByTokenCount(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	s.cfg.TokenCount = 3

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(
		srv.URL+"/v1beta/models/gemini-pro:streamGenerateContent",
		"application/json",
		bytes.NewBufferString(`{"contents":[{"parts":[{"text":"go"}]}]}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	count := 0
	lastFinish := ""
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") || line == "data: [DONE]" {
			continue
		}
		var chunk generateResponse
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk))
		count++
		lastFinish = chunk.Candidates[0].FinishReason
	}

	assert.Equal(t, 3, count)
	assert.Equal(t, "STOP", lastFinish, "truncated streams still close with STOP")
}
