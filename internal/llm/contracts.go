package llm

import (
	"context"

	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
)

// InlineData is an attached document, sent base64 encoded on the wire.
type InlineData struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Part is either text or inline data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerateConfig carries the generation knobs the extractor uses.
type GenerateConfig struct {
	ThinkingBudget int32   `json:"thinkingBudget"`
	Temperature    float32 `json:"temperature"`
}

// Params is one generate-content request.
type Params struct {
	Model    string         `json:"model"`
	Contents []Content      `json:"contents"`
	Config   GenerateConfig `json:"config"`
}

// UserParams builds the single-turn request used for every extraction:
// the prompt followed by the document.
func UserParams(model, prompt string, doc []byte, mimeType string, cfg GenerateConfig) Params {
	return Params{
		Model: model,
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{Text: prompt},
				{InlineData: &InlineData{Data: doc, MIMEType: mimeType}},
			},
		}},
		Config: cfg,
	}
}

// Response is the raw model response as JSON. Its shape is not trusted.
type Response struct {
	Body jsonvalue.Value
}

// Generator is the outbound model RPC. Implementations must not retry; the
// Invoker owns retries.
type Generator interface {
	GenerateContent(ctx context.Context, params Params) (*Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, params Params) (*Response, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, params Params) (*Response, error) {
	return f(ctx, params)
}
