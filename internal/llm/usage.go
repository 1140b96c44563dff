package llm

import (
	"log/slog"

	"github.com/tidwall/gjson"
)

// Usage is the token accounting reported alongside a response.
type Usage struct {
	CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	PromptTokenCount     int64 `json:"promptTokenCount"`
	ThoughtsTokenCount   int64 `json:"thoughtsTokenCount"`
	TotalTokenCount      int64 `json:"totalTokenCount"`
}

var usageCounters = []string{
	"candidatesTokenCount",
	"promptTokenCount",
	"thoughtsTokenCount",
	"totalTokenCount",
}

// UsageFrom reads usageMetadata from resp. ok is false when the response has none.
func UsageFrom(resp *Response) (Usage, bool) {
	if resp == nil {
		return Usage{}, false
	}
	meta := gjson.Get(resp.Body.String(), "usageMetadata")
	if !meta.IsObject() {
		return Usage{}, false
	}
	return Usage{
		CandidatesTokenCount: meta.Get("candidatesTokenCount").Int(),
		PromptTokenCount:     meta.Get("promptTokenCount").Int(),
		ThoughtsTokenCount:   meta.Get("thoughtsTokenCount").Int(),
		TotalTokenCount:      meta.Get("totalTokenCount").Int(),
	}, true
}

// LogUsage logs each counter, or "-" when the response does not carry it.
func LogUsage(logger *slog.Logger, resp *Response) {
	if resp == nil {
		return
	}
	meta := gjson.Get(resp.Body.String(), "usageMetadata")
	args := make([]any, 0, len(usageCounters)*2)
	for _, key := range usageCounters {
		v := meta.Get(key)
		if v.Exists() {
			args = append(args, key, v.Int())
		} else {
			args = append(args, key, "-")
		}
	}
	logger.Info("llm.usage", args...)
}
