package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

// PromptOptions tunes the fixed-mode templates.
type PromptOptions struct {
	// ReportConfidence asks general/verbatim answers to start with a CONFIDENCE line.
	ReportConfidence bool
}

const confidenceLineInstruction = `Begin your response with a single line of the form "CONFIDENCE: <0-100>" ` +
	`stating how confident you are that the output is complete and accurate, then continue on the next line.`

var verbatimTemplate = []string{
	"Please extract and organize all text content from this document.",
	"Provide a clean, well-structured output that maintains the original formatting and hierarchy.",
	"If there are tables, lists, or structured data, preserve that structure in your response.",
	"Focus on accuracy and readability.",
}

var generalTemplate = []string{
	"Please analyze this document and provide:",
	"1. A brief summary of the content",
	"2. Key topics or themes identified",
	"3. Document type/category",
	"4. Any important data points or insights",
	"5. The extracted text content",
	"",
	"Format your response in a clear, organized manner with proper headings and structure.",
}

// BuildPrompt composes the instruction for mode. For custom mode fields are
// validated first; malformed input yields a BadRequest. Output is a pure
// function of its arguments.
func BuildPrompt(mode constants.Mode, fields []schema.Field, opts PromptOptions) (string, error) {
	switch mode {
	case constants.ModeGeneral:
		return fixedPrompt(generalTemplate, opts), nil
	case constants.ModeVerbatim:
		return fixedPrompt(verbatimTemplate, opts), nil
	case constants.ModeCustom:
		normalized, err := schema.Normalize(fields)
		if err != nil {
			return "", err
		}
		return customPrompt(normalized), nil
	default:
		return "", common.BadRequestf("unsupported extraction mode %q", string(mode))
	}
}

func fixedPrompt(lines []string, opts PromptOptions) string {
	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	if opts.ReportConfidence {
		b.WriteString("\n\n")
		b.WriteString(confidenceLineInstruction)
	}
	return b.String()
}

// TypeHint is the instruction suffix for a top-level field of type t.
func TypeHint(t constants.FieldType) string {
	switch t {
	case constants.FieldArray:
		return "(return as array of strings)"
	case constants.FieldNumber:
		return "(return as number)"
	case constants.FieldBoolean:
		return "(return as true/false)"
	case constants.FieldDate:
		return "(return in YYYY-MM-DD format)"
	case constants.FieldArrayObject:
		return "(return as array of objects with the following structure)"
	default:
		return "(return as text)"
	}
}

func nestedHint(t constants.FieldType) string {
	switch t {
	case constants.FieldArray:
		return "(array of strings)"
	case constants.FieldNumber:
		return "(number)"
	case constants.FieldBoolean:
		return "(true/false)"
	case constants.FieldDate:
		return "(YYYY-MM-DD format)"
	default:
		return "(text)"
	}
}

func describe(f schema.Field) string {
	if f.Description != "" {
		return f.Description
	}
	return strings.ReplaceAll(f.Name, "_", " ")
}

func customPrompt(fields []schema.Field) string {
	var b strings.Builder
	b.WriteString("Please extract specific data from this document and return it as a valid JSON object.\n\n")
	b.WriteString("Extract the following fields:\n")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(`"` + f.Name + `": ` + describe(f) + " " + TypeHint(f.Type) + "\n")
		for _, sub := range f.ObjectSchema {
			b.WriteString(`    - "` + sub.Name + `": ` + describe(sub) + " " + nestedHint(sub.Type) + "\n")
		}
	}

	b.WriteString(`
Return a JSON object with exactly two top-level keys, "data" and "confidence".
"data" holds the extracted fields. "confidence" mirrors the structure of "data" and holds an integer score from 0 to 100 for every value:
- 90-100: the value is stated explicitly and unambiguously in the document
- 70-89: the value is clearly present but required minor interpretation
- 50-69: the value was inferred from surrounding context
- 30-49: the value is a weak guess
- 0-29: the value is absent or highly uncertain
For arrays of objects, "confidence" holds an array with one object of scores per element. For other arrays, give a single score for the whole array.

Requirements:
1. If a field cannot be found, use null as its value and 0 as its confidence
2. For array fields, return an empty array [] if no data is found
3. For boolean fields, return true/false based on the content
4. For date fields, use YYYY-MM-DD format
5. For number fields, return numeric literals, not strings
6. For array_object fields, return an array of objects with the specified structure
7. Ensure the JSON is properly formatted and parseable
8. Do not include any explanatory text outside the JSON object

Example format:
`)
	b.WriteString(exampleEnvelope(fields))
	return b.String()
}

func exampleEnvelope(fields []schema.Field) string {
	env := jsonvalue.NewObject(
		jsonvalue.Member{Key: "data", Value: exampleObject(fields, exampleValue)},
		jsonvalue.Member{Key: "confidence", Value: exampleObject(fields, exampleScore)},
	)
	raw, err := env.MarshalJSON()
	if err != nil {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func exampleObject(fields []schema.Field, leaf func(constants.FieldType) jsonvalue.Value) jsonvalue.Value {
	members := make([]jsonvalue.Member, 0, len(fields))
	for _, f := range fields {
		var v jsonvalue.Value
		if f.Type == constants.FieldArrayObject {
			v = jsonvalue.NewArray(exampleObject(f.ObjectSchema, leaf))
		} else {
			v = leaf(f.Type)
		}
		members = append(members, jsonvalue.Member{Key: f.Name, Value: v})
	}
	return jsonvalue.NewObject(members...)
}

func exampleValue(t constants.FieldType) jsonvalue.Value {
	switch t {
	case constants.FieldArray:
		return jsonvalue.NewArray(jsonvalue.NewString("example_value"))
	case constants.FieldNumber:
		return jsonvalue.NewNumber(0)
	case constants.FieldBoolean:
		return jsonvalue.NewBool(true)
	case constants.FieldDate:
		return jsonvalue.NewString("YYYY-MM-DD")
	default:
		return jsonvalue.NewString("example_value")
	}
}

func exampleScore(constants.FieldType) jsonvalue.Value {
	return jsonvalue.NewNumber(90)
}
