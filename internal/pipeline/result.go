package pipeline

import (
	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
	"github.com/joseph-ayodele/doc-extractor/internal/llm"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

// Request is one extraction. The Processor takes ownership of Document and
// releases it before Process returns.
type Request struct {
	Mode     constants.Mode
	Fields   []schema.Field // custom mode only
	Document ingest.Document
}

// Result is returned to the caller as JSON. Warnings is never nil.
type Result struct {
	Success        bool             `json:"success"`
	Content        string           `json:"content"`
	Data           *jsonvalue.Value `json:"data,omitempty"`
	Confidence     *jsonvalue.Value `json:"confidence,omitempty"`
	Warnings       []string         `json:"warnings"`
	JSONParseError string           `json:"jsonParseError,omitempty"`

	FileName  string         `json:"fileName"`
	FileSize  int64          `json:"fileSize"`
	MimeType  string         `json:"mimeType"`
	Mode      constants.Mode `json:"mode"`
	Model     string         `json:"model"`
	RequestID string         `json:"requestId"`
	Usage     *llm.Usage     `json:"usage,omitempty"`
}

func (r *Result) warn(msgs ...string) {
	r.Warnings = append(r.Warnings, msgs...)
}

const (
	msgJSONParseFailed  = "Failed to parse JSON from AI response"
	msgNoConfidenceTree = "response did not include a confidence tree"
	msgNoEnvelope       = `response did not use the {"data", "confidence"} envelope; the parsed value is returned as data`
	msgNoConfidenceLine = "response did not start with a CONFIDENCE line"
)
