package gemini

import (
	"os"

	"github.com/joseph-ayodele/doc-extractor/internal/common"
)

// Config for the Gemini client. Setting ProjectID selects Vertex AI;
// otherwise APIKey is used against the Gemini API.
type Config struct {
	ProjectID string
	Location  string // Vertex region, default "global"
	APIKey    string // if empty, falls back to env GEMINI_API_KEY then GOOGLE_API_KEY
	Model     string // used when a request names no model
}

// ConfigFromApp maps the process configuration onto a client Config.
func ConfigFromApp(cfg common.LLMConfig) Config {
	return Config{
		ProjectID: cfg.ProjectID,
		Location:  cfg.Location,
		APIKey:    cfg.APIKey,
		Model:     cfg.ExtractionModel,
	}
}

func (c Config) withDefaults() Config {
	if c.APIKey == "" {
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.APIKey = v
		} else if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
			c.APIKey = v
		}
	}
	if c.Location == "" {
		c.Location = "global"
	}
	if c.Model == "" {
		c.Model = "gemini-2.5-flash"
	}
	return c
}
