package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
)

// BuildEnvelopeSchema returns a JSON-Schema (draft 2020-12 subset) for the
// {data, confidence} object expected back for fields. Only the data subtree is
// typed; the confidence tree is checked by the confidence package.
func BuildEnvelopeSchema(fields []Field) map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"data", "confidence"},
		"properties": map[string]any{
			"data":       objectSchema(fields),
			"confidence": map[string]any{"type": "object"},
		},
	}
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = valueSchema(f)
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func valueSchema(f Field) map[string]any {
	switch f.Type {
	case constants.FieldNumber:
		return map[string]any{"type": []string{"number", "null"}}
	case constants.FieldBoolean:
		return map[string]any{"type": []string{"boolean", "null"}}
	case constants.FieldDate:
		return map[string]any{"type": []string{"string", "null"}, "pattern": `^\d{4}-\d{2}-\d{2}$`}
	case constants.FieldArray:
		return map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": []string{"string", "number", "boolean", "null"}},
		}
	case constants.FieldArrayObject:
		return map[string]any{
			"type":  []string{"array", "null"},
			"items": objectSchema(f.ObjectSchema),
		}
	default:
		return map[string]any{"type": []string{"string", "null"}}
	}
}

// CheckEnvelope validates doc against the envelope schema for fields and
// returns one warning per mismatch. It never fails the extraction.
func CheckEnvelope(fields []Field, doc jsonvalue.Value) []string {
	compiled, err := compileEnvelope(fields)
	if err != nil {
		return []string{fmt.Sprintf("schema check skipped: %v", err)}
	}
	if err := compiled.Validate(doc.Interface()); err != nil {
		violations := Violations(err)
		out := make([]string, len(violations))
		for i, v := range violations {
			out[i] = "schema mismatch at " + v
		}
		return out
	}
	return []string{}
}

func compileEnvelope(fields []Field) (*jsonschema.Schema, error) {
	b, err := json.Marshal(BuildEnvelopeSchema(fields))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("envelope.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile("envelope.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}
