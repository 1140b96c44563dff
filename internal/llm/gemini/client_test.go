package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/doc-extractor/internal/llm"
)

func TestToGenAI(t *testing.T) {
	params := llm.UserParams("gemini-2.5-flash", "extract this", []byte("%PDF-1.7"), "application/pdf",
		llm.GenerateConfig{ThinkingBudget: 0, Temperature: 0.2})

	contents, config := toGenAI(params)
	require.Len(t, contents, 1)
	require.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	require.Equal(t, "extract this", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	require.Equal(t, []byte("%PDF-1.7"), contents[0].Parts[1].InlineData.Data)
	require.Equal(t, "application/pdf", contents[0].Parts[1].InlineData.MIMEType)

	require.NotNil(t, config.ThinkingConfig)
	require.NotNil(t, config.ThinkingConfig.ThinkingBudget)
	require.Equal(t, int32(0), *config.ThinkingConfig.ThinkingBudget)
	require.InDelta(t, 0.2, *config.Temperature, 1e-6)
}

func TestFromGenAI_MatchesCandidateShape(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: `{"data":{}}`}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: 7,
			TotalTokenCount:      107,
		},
	}
	out, err := fromGenAI(resp)
	require.NoError(t, err)

	text, err := llm.ExtractText(context.Background(), nil, out)
	require.NoError(t, err)
	require.Equal(t, `{"data":{}}`, text)

	usage, ok := llm.UsageFrom(out)
	require.True(t, ok)
	require.EqualValues(t, 100, usage.PromptTokenCount)
	require.EqualValues(t, 107, usage.TotalTokenCount)

	_, err = fromGenAI(nil)
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "fallback-key")
	cfg := Config{}.withDefaults()
	require.Equal(t, "fallback-key", cfg.APIKey)
	require.Equal(t, "global", cfg.Location)
	require.Equal(t, "gemini-2.5-flash", cfg.Model)

	require.Equal(t, "vertexai", BackendName(genai.BackendVertexAI))
	require.Equal(t, "gemini-api", BackendName(genai.BackendGeminiAPI))
}
