package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorTextBadInput        = "TRM_BAD_INPUT"
	ErrorTextUnauthorized    = "TRM_UNAUTHORIZED"
	ErrorTextForbidden       = "TRM_FORBIDDEN"
	ErrorTextNotFound        = "TRM_NOT_FOUND"
	ErrorTextConflict        = "TRM_CONFLICT"
	ErrorTextRateLimited     = "TRM_RATE_LIMITED"
	ErrorTextExternalFailure = "TRM_EXTERNAL_FAILURE"
	ErrorTextInvalidResponse = "TRM_INVALID_RESPONSE"
	ErrorTextCanceled        = "TRM_CANCELED"
	ErrorTextInternal        = "TRM_INTERNAL_ERROR"
)

const (
	DefaultAPIErrorMessage = "API Error"
	DefaultAPIErrorCode    = "unknown_error"
	DefaultAPIErrorType    = "api_error"
)

// APIError is the terminal error returned for a failed API call. It is
// returned immediately for client errors and after the last attempt for
// server errors.
type APIError struct {
	Message    string
	Code       string
	Type       string
	StatusCode int
	Response   any

	envelope *goerrors.Error
}

func NewAPIError(message, code, errType string, statusCode int, response any) *APIError {
	if response == nil {
		response = map[string]any{}
	}
	err := &APIError{
		Message:    message,
		Code:       code,
		Type:       errType,
		StatusCode: statusCode,
		Response:   response,
	}
	err.envelope = err.toEnvelope()
	return err
}

// APIErrorFromBody builds an APIError from a decoded error response of the
// form {"error": {"message", "code", "type"}}. Missing fields get defaults.
func APIErrorFromBody(statusCode int, body any) *APIError {
	message, code, errType := DefaultAPIErrorMessage, DefaultAPIErrorCode, DefaultAPIErrorType
	if root, ok := body.(map[string]any); ok {
		if nested, ok := root["error"].(map[string]any); ok {
			message = stringField(nested, "message", message)
			code = stringField(nested, "code", code)
			errType = stringField(nested, "type", errType)
		}
	}
	return NewAPIError(message, code, errType, statusCode, body)
}

// MaxRetriesError is returned when no attempt recorded an error.
func MaxRetriesError() *APIError {
	return NewAPIError("Max retries exceeded", "max_retries", "request_error", 0, map[string]any{})
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("trm: %s (status=%d code=%s type=%s)", e.Message, e.StatusCode, e.Code, e.Type)
	}
	return fmt.Sprintf("trm: %s (code=%s type=%s)", e.Message, e.Code, e.Type)
}

// IsClientError reports whether the status is in the 400-499 range.
func (e *APIError) IsClientError() bool {
	return e != nil && e.StatusCode >= 400 && e.StatusCode < 500
}

// Unwrap exposes the go-errors envelope so callers can use goerrors.As and
// category helpers on API failures.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.envelope == nil {
		return e.toEnvelope()
	}
	return e.envelope
}

func (e *APIError) toEnvelope() *goerrors.Error {
	category := CategoryForStatus(e.StatusCode)
	code := e.StatusCode
	if code == 0 {
		code = http.StatusBadGateway
	}
	return goerrors.New(e.Message, category).
		WithCode(code).
		WithTextCode(TextCodeForCategory(category)).
		WithMetadata(map[string]any{
			"api_code":    e.Code,
			"api_type":    e.Type,
			"status_code": e.StatusCode,
		})
}

func CategoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusUnprocessableEntity:
		return goerrors.CategoryValidation
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

func TextCodeForCategory(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorTextBadInput
	case goerrors.CategoryAuth:
		return ErrorTextUnauthorized
	case goerrors.CategoryAuthz:
		return ErrorTextForbidden
	case goerrors.CategoryNotFound:
		return ErrorTextNotFound
	case goerrors.CategoryConflict:
		return ErrorTextConflict
	case goerrors.CategoryRateLimit:
		return ErrorTextRateLimited
	case goerrors.CategoryExternal:
		return ErrorTextExternalFailure
	default:
		return ErrorTextInternal
	}
}

func HTTPStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func coreError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(HTTPStatusForCategory(category)).
		WithTextCode(TextCodeForCategory(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func coreWrapError(source error, category goerrors.Category, message string) error {
	if source == nil {
		return coreError(message, category, nil)
	}
	return goerrors.Wrap(source, category, message).
		WithCode(HTTPStatusForCategory(category)).
		WithTextCode(TextCodeForCategory(category))
}

func stringField(values map[string]any, key, fallback string) string {
	raw, ok := values[key]
	if !ok || raw == nil {
		return fallback
	}
	if value, ok := raw.(string); ok {
		return value
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}
