package core

import (
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestAPIErrorFromBody_ExtractsNestedError(t *testing.T) {
	body := map[string]any{
		"error": map[string]any{
			"message": "Job not found",
			"code":    "not_found",
			"type":    "invalid_request_error",
		},
	}
	err := APIErrorFromBody(http.StatusNotFound, body)
	if err.Message != "Job not found" || err.Code != "not_found" || err.Type != "invalid_request_error" {
		t.Fatalf("unexpected api error fields: %#v", err)
	}
	if err.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", err.StatusCode)
	}
	if !err.IsClientError() {
		t.Fatalf("expected client error")
	}
	response, ok := err.Response.(map[string]any)
	if !ok || response["error"] == nil {
		t.Fatalf("expected raw response body to be kept, got %#v", err.Response)
	}
}

func TestAPIErrorFromBody_DefaultsForUnexpectedShapes(t *testing.T) {
	cases := []struct {
		name string
		body any
	}{
		{name: "nil", body: nil},
		{name: "empty object", body: map[string]any{}},
		{name: "error not object", body: map[string]any{"error": "boom"}},
		{name: "array", body: []any{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := APIErrorFromBody(http.StatusBadRequest, tc.body)
			if err.Message != DefaultAPIErrorMessage || err.Code != DefaultAPIErrorCode || err.Type != DefaultAPIErrorType {
				t.Fatalf("expected defaults, got %#v", err)
			}
			if err.Response == nil {
				t.Fatalf("expected non-nil response")
			}
		})
	}
}

func TestMaxRetriesError(t *testing.T) {
	err := MaxRetriesError()
	if err.Message != "Max retries exceeded" || err.Code != "max_retries" || err.Type != "request_error" {
		t.Fatalf("unexpected max retries error: %#v", err)
	}
	if err.StatusCode != 0 {
		t.Fatalf("expected status 0, got %d", err.StatusCode)
	}
	if err.IsClientError() {
		t.Fatalf("status 0 is not a client error")
	}
	if !strings.Contains(err.Error(), "Max retries exceeded") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAPIError_UnwrapsToEnvelope(t *testing.T) {
	cases := []struct {
		status   int
		category goerrors.Category
		textCode string
		code     int
	}{
		{status: http.StatusBadRequest, category: goerrors.CategoryBadInput, textCode: ErrorTextBadInput, code: 400},
		{status: http.StatusUnauthorized, category: goerrors.CategoryAuth, textCode: ErrorTextUnauthorized, code: 401},
		{status: http.StatusForbidden, category: goerrors.CategoryAuthz, textCode: ErrorTextForbidden, code: 403},
		{status: http.StatusNotFound, category: goerrors.CategoryNotFound, textCode: ErrorTextNotFound, code: 404},
		{status: http.StatusConflict, category: goerrors.CategoryConflict, textCode: ErrorTextConflict, code: 409},
		{status: http.StatusUnprocessableEntity, category: goerrors.CategoryValidation, textCode: ErrorTextBadInput, code: 422},
		{status: http.StatusTooManyRequests, category: goerrors.CategoryRateLimit, textCode: ErrorTextRateLimited, code: 429},
		{status: http.StatusServiceUnavailable, category: goerrors.CategoryExternal, textCode: ErrorTextExternalFailure, code: 503},
		{status: 0, category: goerrors.CategoryExternal, textCode: ErrorTextExternalFailure, code: 502},
	}
	for _, tc := range cases {
		apiErr := NewAPIError("failed", "code", "type", tc.status, nil)
		var envelope *goerrors.Error
		if !goerrors.As(apiErr, &envelope) {
			t.Fatalf("status %d: expected envelope", tc.status)
		}
		if envelope.Category != tc.category {
			t.Fatalf("status %d: expected category %q, got %q", tc.status, tc.category, envelope.Category)
		}
		if envelope.TextCode != tc.textCode {
			t.Fatalf("status %d: expected text code %q, got %q", tc.status, tc.textCode, envelope.TextCode)
		}
		if envelope.Code != tc.code {
			t.Fatalf("status %d: expected code %d, got %d", tc.status, tc.code, envelope.Code)
		}
		if envelope.Metadata["api_code"] != "code" {
			t.Fatalf("status %d: expected api_code metadata, got %#v", tc.status, envelope.Metadata)
		}
	}
}

func TestAPIError_LiteralStillUnwraps(t *testing.T) {
	apiErr := &APIError{Message: "boom", StatusCode: http.StatusInternalServerError}
	var envelope *goerrors.Error
	if !goerrors.As(apiErr, &envelope) {
		t.Fatalf("expected envelope for literal api error")
	}
	if envelope.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", envelope.Category)
	}
}
