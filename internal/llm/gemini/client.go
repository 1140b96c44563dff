package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
	"github.com/joseph-ayodele/doc-extractor/internal/llm"
)

var _ llm.Generator = (*Client)(nil)

// Client implements llm.Generator on top of the genai SDK. It performs a
// single call per GenerateContent; retries belong to llm.Invoker.
type Client struct {
	cfg    Config
	genai  *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI, APIKey: cfg.APIKey}
	if cfg.ProjectID != "" {
		cc = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.ProjectID,
			Location: cfg.Location,
		}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	logger.Info("llm.gemini.client_ready",
		"backend", BackendName(gc.ClientConfig().Backend),
		"project", cfg.ProjectID,
		"location", cfg.Location,
		"default_model", cfg.Model,
	)
	return &Client{cfg: cfg, genai: gc, logger: logger}, nil
}

// Backend reports "vertexai" or "gemini-api".
func (c *Client) Backend() string {
	return BackendName(c.genai.ClientConfig().Backend)
}

func BackendName(b genai.Backend) string {
	if b == genai.BackendVertexAI {
		return "vertexai"
	}
	return "gemini-api"
}

func (c *Client) GenerateContent(ctx context.Context, params llm.Params) (*llm.Response, error) {
	model := params.Model
	if model == "" {
		model = c.cfg.Model
	}
	contents, config := toGenAI(params)

	start := time.Now()
	c.logger.Debug("llm.gemini.request",
		"request_id", common.RequestIDFromContext(ctx),
		"model", model,
		"parts", len(contents[0].Parts),
	)
	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	out, err := fromGenAI(resp)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("llm.gemini.response",
		"request_id", common.RequestIDFromContext(ctx),
		"model", model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func toGenAI(params llm.Params) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(params.Contents))
	for _, c := range params.Contents {
		content := &genai.Content{Role: c.Role}
		for _, p := range c.Parts {
			switch {
			case p.InlineData != nil:
				content.Parts = append(content.Parts, genai.NewPartFromBytes(p.InlineData.Data, p.InlineData.MIMEType))
			default:
				content.Parts = append(content.Parts, genai.NewPartFromText(p.Text))
			}
		}
		contents = append(contents, content)
	}
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{Role: "user"})
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(params.Config.Temperature),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(params.Config.ThinkingBudget),
		},
	}
	return contents, config
}

// fromGenAI keeps the response as JSON so shape detection stays in llm.
func fromGenAI(resp *genai.GenerateContentResponse) (*llm.Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty response from genai")
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode genai response: %w", err)
	}
	body, err := jsonvalue.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode genai response: %w", err)
	}
	return &llm.Response{Body: body}, nil
}
