package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

const orderedSchema = `{
	"type": "object",
	"title": "ReportSchema",
	"properties": {
		"zeta": {"type": "string"},
		"alpha": {"type": "integer"},
		"mid": {
			"type": "object",
			"properties": {
				"flag": {"type": "boolean"},
				"score": {"type": "number"}
			}
		},
		"items_field": {
			"type": "array",
			"items": {"type": "string", "enum": ["first", "second"]}
		}
	}
}`

func TestUnmarshalPreservesPropertyOrder(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(orderedSchema), &n))

	assert.Equal(t, KindObject, n.Kind)
	assert.Equal(t, "ReportSchema", n.Title)

	names := make([]string, 0, len(n.Properties))
	for _, p := range n.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid", "items_field"}, names)
}

func TestUnmarshalLowercaseTypes(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"type":"string","enum":["a","b"]}`), &n))
	assert.Equal(t, KindString, n.Kind)
	assert.Equal(t, []string{"a", "b"}, n.Enum)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var n Node
	raw := `{"type":"object","description":"x","required":["a"],"properties":{"a":{"type":"string","nullable":true}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	require.Len(t, n.Properties, 1)
	assert.Equal(t, KindString, n.Properties[0].Node.Kind)
}

func TestSynthesizeDeterministic(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(orderedSchema), &n))

	a := Synthesize(&n)
	b := Synthesize(&n)
	assert.Equal(t, a, b)
}

func TestSynthesizeStructure(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(orderedSchema), &n))

	doc, ok := Synthesize(&n).(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, "mock_string", doc["zeta"])
	assert.Equal(t, 1, doc["alpha"])

	mid, ok := doc["mid"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, mid["flag"])
	assert.Equal(t, 1.0, mid["score"])

	arr, ok := doc["items_field"].([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 1)
	assert.Equal(t, "first", arr[0])
}

func TestSynthesizeNilNode(t *testing.T) {
	assert.Equal(t, map[string]interface{}{}, Synthesize(nil))
}

// The synthesized document must validate against the schema it was
// generated from.
func TestSynthesizedDocumentValidates(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(orderedSchema), &n))

	doc := Synthesize(&n)
	docJSON, err := json.Marshal(doc)
	require.NoError(t, err)

	validator := `{
		"type": "object",
		"properties": {
			"zeta": {"type": "string"},
			"alpha": {"type": "integer"},
			"mid": {
				"type": "object",
				"properties": {
					"flag": {"type": "boolean"},
					"score": {"type": "number"}
				},
				"required": ["flag", "score"]
			},
			"items_field": {
				"type": "array",
				"items": {"type": "string", "enum": ["first", "second"]},
				"minItems": 1
			}
		},
		"required": ["zeta", "alpha", "mid", "items_field"]
	}`

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(validator),
		gojsonschema.NewBytesLoader(docJSON),
	)
	require.NoError(t, err)
	assert.True(t, result.Valid(), "validation errors: %v", result.Errors())
}
