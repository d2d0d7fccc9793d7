package analyst

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := CompileSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer":     map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
		},
		"required":             []any{"answer"},
		"additionalProperties": false,
	})
	require.NoError(t, err)
	return s
}

func TestCompileSchema_NilMap(t *testing.T) {
	_, err := CompileSchema(nil)
	require.Error(t, err)
}

func TestCompileSchema_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"$id":  "https://example.com/foo",
		"type": "object",
	}
	s, err := CompileSchema(in)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/foo", in["$id"], "caller's map is untouched")
	_, stripped := s.Definition()["$id"]
	assert.False(t, stripped, "compiled copy drops $id")
}

func TestSchema_Validate_OK(t *testing.T) {
	s := objectSchema(t)
	v, err := s.Validate(json.RawMessage(`{"answer": "yes", "confidence": 0.9}`))
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "yes", m["answer"])
}

func TestSchema_Validate_ReportsIssues(t *testing.T) {
	s := objectSchema(t)
	tests := []struct {
		name string
		raw  string
	}{
		{"missing required field", `{"confidence": 0.9}`},
		{"wrong type", `{"answer": 7}`},
		{"extra field", `{"answer": "yes", "mood": "great"}`},
		{"not an object", `"just a string"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(json.RawMessage(tt.raw))
			var sve *SchemaValidationError
			require.ErrorAs(t, err, &sve)
			require.NotEmpty(t, sve.Issues)
			assert.Contains(t, err.Error(), "response validation failed")
			assert.Equal(t, ErrorMeta{KindValidation, false}, Classify(err, err.Error()))
		})
	}
}

func TestSchema_Validate_MalformedJSON(t *testing.T) {
	s := objectSchema(t)
	_, err := s.Validate(json.RawMessage(`{"answer": `))
	var sve *SchemaValidationError
	require.ErrorAs(t, err, &sve)
	assert.Contains(t, sve.Issues[0], "not valid JSON")
}

func TestSchemaFor_ReflectsStruct(t *testing.T) {
	type Verdict struct {
		Summary  string `json:"summary"`
		Approved bool   `json:"approved"`
	}
	s, err := SchemaFor[Verdict]()
	require.NoError(t, err)

	_, err = s.Validate(json.RawMessage(`{"summary": "fine", "approved": true}`))
	require.NoError(t, err)

	// Reflected schemas forbid unknown fields.
	_, err = s.Validate(json.RawMessage(`{"summary": "fine", "approved": true, "extra": 1}`))
	var sve *SchemaValidationError
	require.ErrorAs(t, err, &sve)
}

func TestSchema_Definition_TopLevelCopy(t *testing.T) {
	s := objectSchema(t)
	def := s.Definition()
	def["type"] = "tampered"
	assert.Equal(t, "object", s.Definition()["type"])
}

func TestSummarizeIssues(t *testing.T) {
	assert.Equal(t, "a; b", summarizeIssues([]string{"a", "b"}, 100))
	assert.Equal(t, "", summarizeIssues(nil, 100))

	long := summarizeIssues([]string{strings.Repeat("x", 50)}, 10)
	assert.True(t, strings.HasSuffix(long, "... (truncated)"))
	assert.Equal(t, "xxxxxxxxxx... (truncated)", long)

	// maxLen 0 disables truncation.
	assert.Equal(t, strings.Repeat("x", 50), summarizeIssues([]string{strings.Repeat("x", 50)}, 0))
}

func TestStripSchemaIDs_Nested(t *testing.T) {
	m := map[string]any{
		"$id": "root",
		"properties": map[string]any{
			"child": map[string]any{"id": "nested", "type": "string"},
		},
		"allOf": []any{
			map[string]any{"$id": "in-list"},
		},
	}
	stripSchemaIDs(m)
	assert.NotContains(t, m, "$id")
	child := m["properties"].(map[string]any)["child"].(map[string]any)
	assert.NotContains(t, child, "id")
	first := m["allOf"].([]any)[0].(map[string]any)
	assert.NotContains(t, first, "$id")
}
