package mockai

import (
	"encoding/json"
	"net/http"
)

// Embedding dimensions follow the models being imitated: the batch surface
// serves 3072-dim vectors, the single/predict surfaces 768-dim.
const (
	batchEmbedDim  = 3072
	singleEmbedDim = 768
)

// mockVector builds a dense vector that is never constant and differs from
// every other vector in its batch: one coordinate, picked by index modulo
// dimension, is raised above the base fill. Constant or duplicate vectors
// break downstream normalization and vector-store indexing.
func mockVector(index, dim int) []float64 {
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = 0.1
	}
	vec[index%dim] = 0.9
	return vec
}

// handleBatchEmbed serves :batchEmbedContents. A malformed body degrades to
// exactly one fallback vector instead of an error.
func (s *Server) handleBatchEmbed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []json.RawMessage `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"embeddings": []map[string]interface{}{{"values": mockVector(0, singleEmbedDim)}},
		})
		return
	}

	embeddings := make([]map[string]interface{}, 0, len(body.Requests))
	for i := range body.Requests {
		embeddings = append(embeddings, map[string]interface{}{"values": mockVector(i, batchEmbedDim)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"embeddings": embeddings})
}

// handleEmbed serves both :embedContent and the Vertex-style :predict
// surface; the response shape follows the caller's convention.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"embedding": map[string]interface{}{"values": mockVector(0, singleEmbedDim)},
		})
		return
	}

	if raw, ok := body["instances"]; ok {
		var instances []json.RawMessage
		_ = json.Unmarshal(raw, &instances)

		predictions := make([]map[string]interface{}, 0, len(instances))
		for i := range instances {
			predictions = append(predictions, map[string]interface{}{
				"embeddings": map[string]interface{}{"values": mockVector(i, singleEmbedDim)},
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": predictions})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"embedding": map[string]interface{}{"values": mockVector(0, singleEmbedDim)},
	})
}

// handleCountTokens always reports the same estimate; the simulator is not
// content-sensitive.
func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"totalTokens": 50})
}
