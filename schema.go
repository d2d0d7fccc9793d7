package analyst

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	invopop "github.com/invopop/jsonschema"
	tekuri "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Schema is a compiled response schema: the raw map handed to the upstream
// provider as a response hint, plus a validator for what comes back.
type Schema struct {
	raw      map[string]any
	compiled *tekuri.Schema
}

// SchemaValidationError carries the issues found when upstream output does
// not conform to the expected schema. The message matches the classifier's
// validation pattern, so these failures are never retried at transport level.
type SchemaValidationError struct {
	Issues []string
}

func (e *SchemaValidationError) Error() string {
	return "response validation failed: " + strings.Join(e.Issues, "; ")
}

// CompileSchema compiles a raw JSON Schema map. The input map is deep-copied
// and not mutated; id/$id keys are stripped so resolution never depends on them.
func CompileSchema(schemaMap map[string]any) (*Schema, error) {
	if schemaMap == nil {
		return nil, errors.New("schema map must not be nil")
	}
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var schemaCopy map[string]any
	if err := json.Unmarshal(data, &schemaCopy); err != nil {
		return nil, fmt.Errorf("copy schema: %w", err)
	}
	stripSchemaIDs(schemaCopy)
	data, err = json.Marshal(schemaCopy)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	doc, err := tekuri.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	c := tekuri.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{raw: schemaCopy, compiled: compiled}, nil
}

// SchemaFor reflects a JSON Schema from a Go result struct and compiles it.
// Objects get additionalProperties: false, so upstream output cannot smuggle
// extra fields past validation.
func SchemaFor[T any]() (*Schema, error) {
	r := &invopop.Reflector{DoNotReference: true}
	reflected := r.Reflect(new(T))
	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("encode reflected schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, fmt.Errorf("decode reflected schema: %w", err)
	}
	return CompileSchema(schemaMap)
}

// Definition returns a shallow copy of the raw schema map (top-level keys
// only). Nested maps are shared; callers must not mutate them.
func (s *Schema) Definition() map[string]any {
	return maps.Clone(s.raw)
}

// Validate decodes raw JSON and checks it against the schema. On success the
// decoded value is returned; on mismatch the error is a *SchemaValidationError
// listing one issue per leaf failure.
func (s *Schema) Validate(raw json.RawMessage) (any, error) {
	v, err := tekuri.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &SchemaValidationError{Issues: []string{"response is not valid JSON: " + err.Error()}}
	}
	if err := s.compiled.Validate(v); err != nil {
		var ve *tekuri.ValidationError
		if errors.As(err, &ve) {
			return nil, &SchemaValidationError{Issues: validationIssues(ve)}
		}
		return nil, &SchemaValidationError{Issues: []string{err.Error()}}
	}
	return v, nil
}

var issuePrinter = message.NewPrinter(language.English)

// validationIssues flattens the cause tree into one line per leaf failure.
func validationIssues(ve *tekuri.ValidationError) []string {
	var out []string
	var walk func(*tekuri.ValidationError)
	walk = func(e *tekuri.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			out = append(out, fmt.Sprintf("%s: %s", loc, e.ErrorKind.LocalizedString(issuePrinter)))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}

// summarizeIssues renders a compact issue list bounded to maxLen bytes for
// repair feedback prompts.
func summarizeIssues(issues []string, maxLen int) string {
	s := strings.Join(issues, "; ")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen] + "... (truncated)"
	}
	return s
}

// walkSchema recursively visits every map node in the schema tree (including
// $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					walkSchema(m, visit)
				}
			}
		}
	}
}

// stripSchemaIDs removes id and $id from the schema so resolution does not
// depend on them.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "id")
		delete(n, "$id")
	})
}
