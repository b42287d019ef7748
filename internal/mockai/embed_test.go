package mockai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockVectorDistinctPerIndex(t *testing.T) {
	a := mockVector(0, 8)
	b := mockVector(1, 8)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 0.9, a[0])
	assert.Equal(t, 0.9, b[1])
	assert.Equal(t, 0.1, a[1])
}

func TestBatchEmbed(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/gemini-embedding:batchEmbedContents",
		map[string]interface{}{"requests": []map[string]string{{"a": "1"}, {"b": "2"}, {"c": "3"}}})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Embeddings []struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	require.Len(t, resp.Embeddings, 3, "one vector per batched request")
	for i, e := range resp.Embeddings {
		assert.Len(t, e.Values, batchEmbedDim)
		assert.Equal(t, 0.9, e.Values[i])
	}
	assert.NotEqual(t, resp.Embeddings[0].Values, resp.Embeddings[1].Values)
}

func TestBatchEmbedMalformedFallback(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	req := httptest.NewRequest("POST", "/v1beta/models/gemini-embedding:batchEmbedContents", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Embeddings []struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Embeddings, 1)
	assert.Len(t, resp.Embeddings[0].Values, singleEmbedDim)
}

func TestEmbedSingle(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/gemini-embedding:embedContent",
		map[string]interface{}{"content": map[string]string{"text": "hello"}})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Embedding struct {
			Values []float64 `json:"values"`
		} `json:"embedding"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Embedding.Values, singleEmbedDim)
}

func TestEmbedPredictInstances(t *testing.T) {
	s := newTestServer(t, fastBaseline())
	w := doJSON(t, s.Handler(), "POST", "/v1beta/models/text-embedding:predict",
		map[string]interface{}{"instances": []map[string]string{{"content": "a"}, {"content": "b"}}})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Predictions []struct {
			Embeddings struct {
				Values []float64 `json:"values"`
			} `json:"embeddings"`
		} `json:"predictions"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Predictions, 2)
	for _, p := range resp.Predictions {
		assert.Len(t, p.Embeddings.Values, singleEmbedDim)
	}
}
