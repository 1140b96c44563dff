package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"bad request", BadRequest("No file uploaded", nil), http.StatusBadRequest},
		{"too large", TooLarge("File too large. Maximum size is 10MB."), http.StatusBadRequest},
		{"upstream", Upstream("model failed", errors.New("boom")), http.StatusBadGateway},
		{"wrapped upstream", fmt.Errorf("extract: %w", Upstream("model failed", nil)), http.StatusBadGateway},
		{"grpc status", status.Error(codes.InvalidArgument, "bad"), http.StatusBadRequest},
		{"plain", errors.New("disk full"), http.StatusInternalServerError},
		{"internal", Internal("stage failed", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAppError_UnwrapAndStatus(t *testing.T) {
	cause := errors.New("all 3 attempts failed: quota")
	err := Upstream("Failed to process document", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "UPSTREAM_ERROR")
	require.Contains(t, err.Error(), "quota")

	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.Unavailable, st.Code())
	require.Equal(t, "Failed to process document", PublicMessage(err))
	require.Equal(t, "Failed to process document", PublicMessage(errors.New("x")))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("mode", "summarise", OneOf("general", "verbatim", "custom")).
		Field("description", "ok", MaxLength(10))

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 2)

	err := ValidateAndReturnError(v)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	require.Contains(t, err.Error(), "name is required")
	require.Contains(t, err.Error(), `mode must be one of general, verbatim, custom (got "summarise")`)
}
