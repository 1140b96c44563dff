package llm

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/doc-extractor/internal/common"
)

// UnrecognizedResponseShapeError carries the full response body when no
// known shape yields text.
type UnrecognizedResponseShapeError struct {
	Body string
}

func (e *UnrecognizedResponseShapeError) Error() string {
	return "could not extract text from response: unexpected structure: " + e.Body
}

// ShapeMatcher pulls text out of one known response layout.
type ShapeMatcher struct {
	Name  string
	Match func(raw string) (string, bool)
}

// PathMatcher matches when path resolves to a JSON string.
func PathMatcher(name, path string) ShapeMatcher {
	return ShapeMatcher{
		Name: name,
		Match: func(raw string) (string, bool) {
			r := gjson.Get(raw, path)
			if r.Type != gjson.String {
				return "", false
			}
			return r.Str, true
		},
	}
}

// ResponseShapes are tried in order; the first match wins.
var ResponseShapes = []ShapeMatcher{
	PathMatcher("candidate_parts", "candidates.0.content.parts.0.text"),
	PathMatcher("candidate_text", "candidates.0.text"),
	PathMatcher("top_level_text", "text"),
}

// ExtractText returns the model's text using ResponseShapes.
func ExtractText(ctx context.Context, logger *slog.Logger, resp *Response) (string, error) {
	return ExtractTextWith(ctx, logger, resp, ResponseShapes)
}

func ExtractTextWith(ctx context.Context, logger *slog.Logger, resp *Response, shapes []ShapeMatcher) (string, error) {
	logger = common.LoggerFromContext(ctx, logger)
	raw := "null"
	if resp != nil {
		raw = resp.Body.String()
	}
	for _, shape := range shapes {
		if text, ok := shape.Match(raw); ok {
			logger.Debug("llm.response.shape", "shape", shape.Name, "text_len", len(text))
			return text, nil
		}
	}
	logger.Error("llm.response.unrecognized_shape", "raw", raw)
	return "", &UnrecognizedResponseShapeError{Body: raw}
}
