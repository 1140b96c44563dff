package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
	"github.com/joseph-ayodele/doc-extractor/internal/llm"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

// countingDoc records how often the pipeline releases it.
type countingDoc struct {
	*ingest.MemoryDocument
	releases atomic.Int32
}

func (d *countingDoc) Release() error {
	d.releases.Add(1)
	return d.MemoryDocument.Release()
}

func newDoc(mime string) *countingDoc {
	return &countingDoc{MemoryDocument: &ingest.MemoryDocument{
		FileName: "invoice.pdf",
		Type:     mime,
		Data:     []byte("%PDF-1.7 fake"),
	}}
}

func textResponse(text string) *llm.Response {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 4, "totalTokenCount": 14},
	})
	return &llm.Response{Body: jsonvalue.MustParse(string(b))}
}

type stubModel struct {
	calls atomic.Int32
	last  llm.Params
	reply func(n int32) (*llm.Response, error)
}

func (s *stubModel) GenerateContent(ctx context.Context, p llm.Params) (*llm.Response, error) {
	n := s.calls.Add(1)
	s.last = p
	return s.reply(n)
}

func replyText(text string) *stubModel {
	return &stubModel{reply: func(int32) (*llm.Response, error) { return textResponse(text), nil }}
}

func newProcessor(model llm.Generator, reportConfidence bool) *Processor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := &llm.Invoker{MaxAttempts: 3, Logger: logger}
	return NewProcessor(logger, model, inv, Options{
		ExtractionModel:  "extract-model",
		AnalysisModel:    "analysis-model",
		ReportConfidence: reportConfidence,
	})
}

var totalField = []schema.Field{{Name: "total", Type: constants.FieldNumber}}

func TestProcess_CustomEndToEnd(t *testing.T) {
	model := replyText(`Here you go: {"data":{"total":42},"confidence":{"total":95}}`)
	doc := newDoc("application/pdf")

	res, err := newProcessor(model, true).Process(context.Background(), Request{
		Mode: constants.ModeCustom, Fields: totalField, Document: doc,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	require.JSONEq(t, `{"total":42}`, res.Data.String())
	require.NotNil(t, res.Confidence)
	require.JSONEq(t, `{"total":95}`, res.Confidence.String())
	require.NotNil(t, res.Warnings)
	require.Empty(t, res.Warnings)
	require.Empty(t, res.JSONParseError)

	require.Equal(t, "extract-model", res.Model)
	require.Equal(t, "invoice.pdf", res.FileName)
	require.Equal(t, "application/pdf", res.MimeType)
	require.NotEmpty(t, res.RequestID)
	require.NotNil(t, res.Usage)
	require.EqualValues(t, 14, res.Usage.TotalTokenCount)
	require.EqualValues(t, 1, doc.releases.Load())

	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.Contains(t, string(out), `"warnings":[]`)
	require.Contains(t, string(out), `"data":{"total":42}`)
}

func TestProcess_OutboundRequest(t *testing.T) {
	model := replyText("CONFIDENCE: 80\nsummary")
	p := newProcessor(model, true)
	p.Options.Generate = llm.GenerateConfig{ThinkingBudget: 0, Temperature: 0.1}

	_, err := p.Process(context.Background(), Request{Mode: constants.ModeGeneral, Document: newDoc("image/png")})
	require.NoError(t, err)

	require.Equal(t, "analysis-model", model.last.Model)
	require.Len(t, model.last.Contents, 1)
	require.Equal(t, "user", model.last.Contents[0].Role)
	parts := model.last.Contents[0].Parts
	require.Len(t, parts, 2)
	require.Contains(t, parts[0].Text, "Please analyze this document")
	require.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	require.Equal(t, []byte("%PDF-1.7 fake"), parts[1].InlineData.Data)
	require.InDelta(t, 0.1, model.last.Config.Temperature, 1e-6)
}

func TestProcess_LegacyModeNames(t *testing.T) {
	model := replyText("CONFIDENCE: 80\ntext")
	res, err := newProcessor(model, true).Process(context.Background(), Request{Mode: "extract", Document: newDoc("text/plain")})
	require.NoError(t, err)
	require.Equal(t, constants.ModeVerbatim, res.Mode)
	require.Equal(t, "extract-model", model.last.Model)
}

func TestProcess_UpstreamExhausted(t *testing.T) {
	model := &stubModel{reply: func(int32) (*llm.Response, error) { return nil, errors.New("quota exceeded") }}
	doc := newDoc("application/pdf")

	_, err := newProcessor(model, false).Process(context.Background(), Request{Mode: constants.ModeVerbatim, Document: doc})
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, common.HTTPStatus(err))
	require.Contains(t, err.Error(), "all 3 attempts failed: quota exceeded")

	var exhausted *llm.ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	require.EqualValues(t, 3, model.calls.Load())
	require.EqualValues(t, 1, doc.releases.Load())
}

func TestProcess_UnrecognizedShape(t *testing.T) {
	model := &stubModel{reply: func(int32) (*llm.Response, error) {
		return &llm.Response{Body: jsonvalue.MustParse(`{"promptFeedback":{"blockReason":"SAFETY"}}`)}, nil
	}}
	doc := newDoc("application/pdf")

	_, err := newProcessor(model, false).Process(context.Background(), Request{Mode: constants.ModeGeneral, Document: doc})
	require.Equal(t, http.StatusBadGateway, common.HTTPStatus(err))
	var shapeErr *llm.UnrecognizedResponseShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Contains(t, shapeErr.Body, "SAFETY")
	require.EqualValues(t, 1, doc.releases.Load())
}

func TestProcess_ParseFailureDegrades(t *testing.T) {
	doc := newDoc("application/pdf")
	res, err := newProcessor(replyText("Sorry, I cannot read this document."), false).Process(context.Background(),
		Request{Mode: constants.ModeCustom, Fields: totalField, Document: doc})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Nil(t, res.Data)
	require.Equal(t, "Failed to parse JSON from AI response", res.JSONParseError)
	require.Contains(t, res.Warnings, "Failed to parse JSON from AI response")
	require.Equal(t, "Sorry, I cannot read this document.", res.Content)
	require.EqualValues(t, 1, doc.releases.Load())
}

func TestProcess_ConfidenceViolationsAreWarnings(t *testing.T) {
	fields := []schema.Field{
		{Name: "total", Type: constants.FieldNumber},
		{Name: "vendor", Type: constants.FieldText},
	}
	model := replyText(`{"data":{"total":42,"vendor":"Acme"},"confidence":{"total":150}}`)
	res, err := newProcessor(model, false).Process(context.Background(),
		Request{Mode: constants.ModeCustom, Fields: fields, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.JSONEq(t, `{"total":42,"vendor":"Acme"}`, res.Data.String())
	require.Len(t, res.Warnings, 2)
	require.Contains(t, res.Warnings[0], "`total`")
	require.Equal(t, "missing confidence for field `vendor`", res.Warnings[1])
}

func TestProcess_SchemaMismatchIsWarning(t *testing.T) {
	model := replyText(`{"data":{"total":"42"},"confidence":{"total":90}}`)
	res, err := newProcessor(model, false).Process(context.Background(),
		Request{Mode: constants.ModeCustom, Fields: totalField, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "schema mismatch at /data/total")
}

func TestProcess_NoEnvelope(t *testing.T) {
	res, err := newProcessor(replyText(`{"total":42}`), false).Process(context.Background(),
		Request{Mode: constants.ModeCustom, Fields: totalField, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.JSONEq(t, `{"total":42}`, res.Data.String())
	require.Nil(t, res.Confidence)
	require.Equal(t, []string{msgNoEnvelope}, res.Warnings)

	res, err = newProcessor(replyText(`{"data":{"total":42}}`), false).Process(context.Background(),
		Request{Mode: constants.ModeCustom, Fields: totalField, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.JSONEq(t, `{"total":42}`, res.Data.String())
	require.Equal(t, []string{msgNoConfidenceTree}, res.Warnings)
}

func TestProcess_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  func(doc *countingDoc) Request
	}{
		{"bad mime", func(doc *countingDoc) Request {
			doc.Type = "application/zip"
			return Request{Mode: constants.ModeGeneral, Document: doc}
		}},
		{"bad mode", func(doc *countingDoc) Request {
			return Request{Mode: "summarise", Document: doc}
		}},
		{"custom without fields", func(doc *countingDoc) Request {
			return Request{Mode: constants.ModeCustom, Document: doc}
		}},
		{"malformed field", func(doc *countingDoc) Request {
			return Request{Mode: constants.ModeCustom, Fields: []schema.Field{{Name: "rows", Type: constants.FieldArrayObject}}, Document: doc}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := replyText("unused")
			doc := newDoc("application/pdf")
			_, err := newProcessor(model, false).Process(context.Background(), tt.req(doc))
			require.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
			require.Zero(t, model.calls.Load())
			require.EqualValues(t, 1, doc.releases.Load())
		})
	}

	_, err := newProcessor(replyText("unused"), false).Process(context.Background(), Request{Mode: constants.ModeGeneral})
	require.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
	require.Contains(t, err.Error(), "No file uploaded")
}

func TestProcess_ConfidenceLine(t *testing.T) {
	res, err := newProcessor(replyText("CONFIDENCE: 85\n# Summary\nQuarterly report."), true).Process(context.Background(),
		Request{Mode: constants.ModeGeneral, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.Equal(t, "# Summary\nQuarterly report.", res.Content)
	require.NotNil(t, res.Confidence)
	require.Equal(t, "85", res.Confidence.String())
	require.Empty(t, res.Warnings)

	res, err = newProcessor(replyText("# Summary"), true).Process(context.Background(),
		Request{Mode: constants.ModeVerbatim, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.Equal(t, "# Summary", res.Content)
	require.Nil(t, res.Confidence)
	require.Equal(t, []string{msgNoConfidenceLine}, res.Warnings)

	res, err = newProcessor(replyText("CONFIDENCE: 120\nbody"), true).Process(context.Background(),
		Request{Mode: constants.ModeVerbatim, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.Equal(t, "body", res.Content)
	require.Nil(t, res.Confidence)
	require.Len(t, res.Warnings, 1)

	res, err = newProcessor(replyText("CONFIDENCE: 85\nbody"), false).Process(context.Background(),
		Request{Mode: constants.ModeVerbatim, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.Equal(t, "CONFIDENCE: 85\nbody", res.Content, "left alone when reporting is off")
	require.Empty(t, res.Warnings)
}

func TestProcess_RequestIDFromContext(t *testing.T) {
	ctx := common.WithRequestID(context.Background(), "req-123")
	res, err := newProcessor(replyText("CONFIDENCE: 90\nok"), true).Process(ctx,
		Request{Mode: constants.ModeGeneral, Document: newDoc("application/pdf")})
	require.NoError(t, err)
	require.Equal(t, "req-123", res.RequestID)
}

func TestSplitConfidenceLine(t *testing.T) {
	tests := []struct {
		in    string
		rest  string
		score float64
		found bool
	}{
		{"CONFIDENCE: 85\nbody", "body", 85, true},
		{"confidence:92%\r\nbody", "body", 92, true},
		{"**CONFIDENCE: 70**\nbody", "body", 70, true},
		{"  CONFIDENCE: 66.5", "", 66.5, true},
		{"Confidence is high\nbody", "Confidence is high\nbody", 0, false},
		{"body\nCONFIDENCE: 80", "body\nCONFIDENCE: 80", 0, false},
	}
	for _, tt := range tests {
		rest, score, found := SplitConfidenceLine(tt.in)
		require.Equal(t, tt.found, found, tt.in)
		require.Equal(t, tt.rest, rest, tt.in)
		require.Equal(t, tt.score, score, tt.in)
	}
}
