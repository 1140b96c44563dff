package llm

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
)

func TestExtractText_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"candidate parts", `{"candidates":[{"content":{"parts":[{"text":"from parts"}]}}]}`, "from parts"},
		{"candidate text", `{"candidates":[{"text":"from candidate"}]}`, "from candidate"},
		{"top-level text", `{"text":"from top"}`, "from top"},
		{"parts win over text", `{"candidates":[{"content":{"parts":[{"text":"a"}]},"text":"b"}],"text":"c"}`, "a"},
		{"empty parts fall through", `{"candidates":[{"content":{"parts":[]},"text":"b"}]}`, "b"},
		{"empty string is text", `{"text":""}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Body: jsonvalue.MustParse(tt.body)}
			got, err := ExtractText(context.Background(), quietLogger(), resp)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText_Unrecognized(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	for _, body := range []string{`{}`, `{"candidates":[]}`, `{"text":42}`, `[]`} {
		_, err := ExtractText(context.Background(), logger, &Response{Body: jsonvalue.MustParse(body)})
		var shapeErr *UnrecognizedResponseShapeError
		require.ErrorAs(t, err, &shapeErr, body)
		require.JSONEq(t, body, shapeErr.Body)
	}
	require.Contains(t, logs.String(), "llm.response.unrecognized_shape")

	_, err := ExtractText(context.Background(), logger, nil)
	require.Error(t, err)
}

func TestExtractTextWith_CustomShape(t *testing.T) {
	shapes := append([]ShapeMatcher{PathMatcher("output", "output.0.content")}, ResponseShapes...)
	got, err := ExtractTextWith(context.Background(), quietLogger(),
		&Response{Body: jsonvalue.MustParse(`{"output":[{"content":"new shape"}]}`)}, shapes)
	require.NoError(t, err)
	require.Equal(t, "new shape", got)
}

func TestRecoverJSON(t *testing.T) {
	v, ok := RecoverJSON(`{"a":1}`)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, v.String())

	v, ok = RecoverJSON(`noise {"a":1} trailing text`)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, v.String())

	v, ok = RecoverJSON("```json\n{\"data\":{\"x\":[1,2]}}\n```")
	require.True(t, ok)
	require.JSONEq(t, `{"data":{"x":[1,2]}}`, v.String())

	_, ok = RecoverJSON(`no json here`)
	require.False(t, ok)

	_, ok = RecoverJSON(`first {"a":1} and {"b":2}`)
	require.False(t, ok, "greedy span covers both objects and is not valid JSON")

	_, ok = RecoverJSON(`} backwards {`)
	require.False(t, ok)
}

func TestUsageFrom(t *testing.T) {
	resp := &Response{Body: jsonvalue.MustParse(`{"text":"x","usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":5,"totalTokenCount":17}}`)}
	usage, ok := UsageFrom(resp)
	require.True(t, ok)
	require.Equal(t, Usage{PromptTokenCount: 12, CandidatesTokenCount: 5, TotalTokenCount: 17}, usage)

	_, ok = UsageFrom(&Response{Body: jsonvalue.MustParse(`{"text":"x"}`)})
	require.False(t, ok)

	var logs bytes.Buffer
	LogUsage(slog.New(slog.NewJSONHandler(&logs, nil)), resp)
	require.Contains(t, logs.String(), `"promptTokenCount":12`)
	require.Contains(t, logs.String(), `"thoughtsTokenCount":"-"`)
}
