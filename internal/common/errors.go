package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
	Status  codes.Code
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// GRPCStatus lets status.FromError classify an AppError.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(e.Status, e.Message)
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream model error")
	ErrTooLarge     = errors.New("file too large")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
)

// Error codes carried in AppError.Code
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeUpstream   = "UPSTREAM_ERROR"
	CodeTooLarge   = "FILE_TOO_LARGE"
	CodeInternal   = "INTERNAL"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Status:  codes.Unknown,
	}
}

// BadRequest is a caller error; it is never retried.
func BadRequest(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrInvalidInput
	}
	return &AppError{Code: CodeBadRequest, Message: message, Cause: cause, Status: codes.InvalidArgument}
}

func BadRequestf(format string, args ...interface{}) *AppError {
	return BadRequest(fmt.Sprintf(format, args...), nil)
}

// Upstream marks a failure of the remote model (retries exhausted or unreadable response).
func Upstream(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrUpstream
	}
	return &AppError{Code: CodeUpstream, Message: message, Cause: cause, Status: codes.Unavailable}
}

func TooLarge(message string) *AppError {
	return &AppError{Code: CodeTooLarge, Message: message, Cause: ErrTooLarge, Status: codes.ResourceExhausted}
}

func Internal(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrInternal
	}
	return &AppError{Code: CodeInternal, Message: message, Cause: cause, Status: codes.Internal}
}

// CodeOf returns the gRPC classification of err; unclassified errors are Internal.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}

// HTTPStatus maps an error onto the response status of the HTTP API.
// Oversized uploads are reported as 400, like any other rejected upload.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.ResourceExhausted:
		return http.StatusBadRequest
	case codes.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the short error text surfaced to callers.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Failed to process document"
}
