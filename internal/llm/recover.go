package llm

import (
	"strings"

	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
)

// RecoverJSON parses a JSON value out of model text. It tries the whole
// (trimmed) text first, then the span from the first '{' to the last '}'.
// ok is false when neither parses.
func RecoverJSON(text string) (jsonvalue.Value, bool) {
	trimmed := strings.TrimSpace(text)
	if v, err := jsonvalue.ParseString(trimmed); err == nil {
		return v, true
	}
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return jsonvalue.Value{}, false
	}
	v, err := jsonvalue.ParseString(trimmed[start : end+1])
	if err != nil {
		return jsonvalue.Value{}, false
	}
	return v, true
}
