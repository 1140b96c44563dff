package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
)

// Field is one requested output field. ObjectSchema is set only for array_object.
type Field struct {
	Name         string              `json:"name" yaml:"name"`
	Description  string              `json:"description" yaml:"description"`
	Type         constants.FieldType `json:"type" yaml:"type"`
	ObjectSchema []Field             `json:"objectSchema,omitempty" yaml:"objectSchema,omitempty"`
}

// Limits on client-supplied field text, in runes.
const (
	MaxNameLength        = 64
	MaxDescriptionLength = 500
)

// NormalizeName lowercases and snake_cases a field name ("Invoice Number" -> "invoice_number").
func NormalizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// Normalize returns a copy of fields with canonical names and types, or a
// BadRequest describing every problem found.
func Normalize(fields []Field) ([]Field, error) {
	v := common.NewValidator()
	if len(fields) == 0 {
		v.Add("fields", "must contain at least one field")
	}
	out := normalizeLevel(v, "fields", fields, false)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeLevel(v *common.Validator, path string, fields []Field, nested bool) []Field {
	out := make([]Field, 0, len(fields))
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		at := fmt.Sprintf("%s[%d]", path, i)

		name := NormalizeName(f.Name)
		v.Field(at+".name", name, common.Required, common.MaxLength(MaxNameLength))
		if name != "" {
			if prev, dup := seen[name]; dup {
				v.Add(at+".name", fmt.Sprintf("duplicates %s[%d] (%q)", path, prev, name))
			}
			seen[name] = i
		}

		ft, ok := constants.CanonicalizeFieldType(string(f.Type))
		if !ok {
			v.Field(at+".type", string(f.Type), common.OneOf(constants.FieldTypesAsStrings()...))
		}

		desc := strings.TrimSpace(f.Description)
		v.Field(at+".description", desc, common.MaxLength(MaxDescriptionLength))

		nf := Field{Name: name, Description: desc, Type: ft}
		switch {
		case !ok:
		case ft == constants.FieldArrayObject && nested:
			v.Add(at+".type", "array_object cannot be nested inside objectSchema")
		case ft == constants.FieldArrayObject && len(f.ObjectSchema) == 0:
			v.Add(at+".objectSchema", "is required for array_object fields")
		case ft == constants.FieldArrayObject:
			nf.ObjectSchema = normalizeLevel(v, at+".objectSchema", f.ObjectSchema, true)
		case len(f.ObjectSchema) > 0:
			v.Add(at+".objectSchema", "is only allowed for array_object fields")
		}
		out = append(out, nf)
	}
	return out
}

const fieldListSchema = `{
  "$defs": {
    "field": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "type": {"type": "string"},
        "objectSchema": {"type": "array", "items": {"$ref": "#/$defs/field"}}
      }
    }
  },
  "type": "array",
  "items": {"$ref": "#/$defs/field"}
}`

var fieldList = jsonschema.MustCompileString("fields.json", fieldListSchema)

// ParseFields decodes a JSON array of fields as sent by clients and normalizes it.
func ParseFields(data []byte) ([]Field, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, common.BadRequest("Custom fields are required for custom extraction", nil)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, common.BadRequest("Invalid custom fields JSON", err)
	}
	if err := fieldList.Validate(doc); err != nil {
		return nil, common.BadRequest("Invalid custom fields: "+strings.Join(Violations(err), "; "), common.ErrValidation)
	}
	var fields []Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, common.BadRequest("Invalid custom fields JSON", err)
	}
	return Normalize(fields)
}

// Violations flattens a jsonschema validation error into "<location>: <message>" lines.
func Violations(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
