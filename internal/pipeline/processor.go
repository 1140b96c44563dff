package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/confidence"
	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
	"github.com/joseph-ayodele/doc-extractor/internal/llm"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

// Options are the per-deployment knobs of the Processor.
type Options struct {
	ExtractionModel  string // verbatim and custom
	AnalysisModel    string // general
	Generate         llm.GenerateConfig
	ReportConfidence bool
}

// OptionsFromConfig maps the process configuration onto Options.
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		ExtractionModel: cfg.LLM.ExtractionModel,
		AnalysisModel:   cfg.LLM.AnalysisModel,
		Generate: llm.GenerateConfig{
			ThinkingBudget: cfg.LLM.ThinkingBudget,
			Temperature:    cfg.LLM.Temperature,
		},
		ReportConfidence: cfg.Extraction.ConfidenceReporting,
	}
}

// Processor runs the extraction state machine:
// received -> prompted -> invoking -> normalizing -> parsing -> validating -> done | failed.
type Processor struct {
	Logger  *slog.Logger
	Client  llm.Generator
	Invoker *llm.Invoker
	Options Options
}

func NewProcessor(logger *slog.Logger, client llm.Generator, invoker *llm.Invoker, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if invoker == nil {
		invoker = llm.NewInvoker(logger)
	}
	return &Processor{Logger: logger, Client: client, Invoker: invoker, Options: opts}
}

// ModelFor picks the model used for mode.
func (p *Processor) ModelFor(mode constants.Mode) string {
	if mode == constants.ModeGeneral {
		return p.Options.AnalysisModel
	}
	return p.Options.ExtractionModel
}

// run tracks one pass through the state machine.
type run struct {
	logger *slog.Logger
	state  constants.ExtractState
	start  time.Time
}

func (r *run) to(next constants.ExtractState) {
	r.logger.Info("extract.state", "from", string(r.state), "to", string(next))
	r.state = next
}

func (r *run) fail(err error) error {
	r.logger.Error("extract.failed",
		"state", string(r.state),
		"error", err,
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)
	r.to(constants.StateFailed)
	return err
}

// Process runs one extraction. Caller errors are BadRequest, model failures
// are Upstream; unparsable or inconsistent model output is reported through
// Result.Warnings instead. req.Document is released on every path.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	requestID := common.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = common.WithRequestID(ctx, requestID)
	}
	logger := common.LoggerFromContext(ctx, p.Logger).With("request_id", requestID)
	ctx = common.WithLogger(ctx, logger)

	r := &run{logger: logger, state: constants.StateReceived, start: time.Now()}
	logger.Info("extract.state", "to", string(constants.StateReceived), "mode", string(req.Mode))

	doc := req.Document
	if doc == nil {
		return nil, r.fail(common.BadRequest("No file uploaded. Please select a document to process.", nil))
	}
	defer func() {
		if err := doc.Release(); err != nil {
			logger.Warn("extract.release_failed", "file", doc.Name(), "error", err)
		}
	}()

	mode, ok := constants.ParseMode(string(req.Mode))
	if !ok {
		return nil, r.fail(common.BadRequestf("unsupported extraction mode %q", string(req.Mode)))
	}
	if !constants.IsSupportedMime(doc.MIMEType()) {
		return nil, r.fail(common.BadRequest("Invalid file type. Only images, PDFs, and text files are allowed.", nil))
	}

	var fields []schema.Field
	if mode == constants.ModeCustom {
		normalized, err := schema.Normalize(req.Fields)
		if err != nil {
			return nil, r.fail(err)
		}
		fields = normalized
	}
	prompt, err := llm.BuildPrompt(mode, fields, llm.PromptOptions{ReportConfidence: p.Options.ReportConfidence})
	if err != nil {
		return nil, r.fail(err)
	}
	r.to(constants.StatePrompted)

	data, err := doc.Bytes()
	if err != nil {
		return nil, r.fail(common.Internal("Failed to read uploaded document", err))
	}
	model := p.ModelFor(mode)
	params := llm.UserParams(model, prompt, data, doc.MIMEType(), p.Options.Generate)

	r.to(constants.StateInvoking)
	resp, err := p.Invoker.Invoke(ctx, p.Client, params)
	if err != nil {
		return nil, r.fail(common.Upstream("Failed to process document with Gemini AI. Please try again.", err))
	}

	r.to(constants.StateNormalizing)
	text, err := llm.ExtractText(ctx, logger, resp)
	if err != nil {
		return nil, r.fail(common.Upstream("Unexpected response from Gemini AI", err))
	}

	result := &Result{
		Success:   true,
		Content:   text,
		Warnings:  []string{},
		FileName:  doc.Name(),
		FileSize:  doc.Size(),
		MimeType:  doc.MIMEType(),
		Mode:      mode,
		Model:     model,
		RequestID: requestID,
	}
	if usage, ok := llm.UsageFrom(resp); ok {
		result.Usage = &usage
	}

	if mode == constants.ModeCustom {
		p.parse(r, result, fields, text)
	} else if p.Options.ReportConfidence {
		p.splitConfidence(result)
	}

	r.to(constants.StateDone)
	logger.Info("extract.done",
		"mode", string(mode),
		"model", model,
		"content_len", len(result.Content),
		"warnings", len(result.Warnings),
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)
	return result, nil
}

// parse recovers JSON from custom-mode text and validates it. Nothing here fails the request.
func (p *Processor) parse(r *run, result *Result, fields []schema.Field, text string) {
	r.to(constants.StateParsing)
	v, ok := llm.RecoverJSON(text)
	if !ok {
		result.JSONParseError = msgJSONParseFailed
		result.warn(msgJSONParseFailed)
		r.logger.Warn("extract.parse.failed", "raw", text)
		return
	}

	dataTree, hasData := v.Field("data")
	confTree, hasConf := v.Field("confidence")
	switch {
	case hasData && hasConf:
		r.to(constants.StateValidating)
		result.Data = &dataTree
		result.Confidence = &confTree
		result.warn(confidence.Validate(dataTree, confTree)...)
		result.warn(schema.CheckEnvelope(fields, v)...)
	case hasData:
		result.Data = &dataTree
		result.warn(msgNoConfidenceTree)
	default:
		result.Data = &v
		result.warn(msgNoEnvelope)
	}
	if len(result.Warnings) > 0 {
		r.logger.Warn("extract.validation.warnings",
			"count", len(result.Warnings),
			"warnings", result.Warnings,
		)
	}
}

func (p *Processor) splitConfidence(result *Result) {
	rest, score, found := SplitConfidenceLine(result.Content)
	if !found {
		result.warn(msgNoConfidenceLine)
		return
	}
	result.Content = rest
	if score < confidence.MinScore || score > confidence.MaxScore {
		result.warn("reported CONFIDENCE is out of range [0,100]")
		return
	}
	c := jsonvalue.NewNumber(score)
	result.Confidence = &c
}
