package transport

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trm/core"
)

const (
	HeaderAPIKey      = "X-API-Key"
	HeaderContentType = "Content-Type"
	HeaderUserAgent   = "User-Agent"
	HeaderAccept      = "Accept"

	contentTypeJSON = "application/json"
)

const (
	outcomeSuccess        = "success"
	outcomeClientError    = "client_error"
	outcomeRetriesSpent   = "exhausted"
	outcomeCanceled       = "canceled"
	outcomeEncodingFailed = "encode_failed"
)

// Request describes one logical API call. Body is JSON encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Body   any
	Query  map[string]string
}

// RequestExecutor sends API requests with retry and exponential backoff.
// Client errors (4xx) are returned on the first attempt; every other failure
// is retried until MaxRetries attempts have been made.
type RequestExecutor struct {
	adapter  *RESTAdapter
	config   core.Config
	sleeper  core.Sleeper
	observer core.Observer
}

func NewRequestExecutor(runtime *core.Runtime) (*RequestExecutor, error) {
	if runtime == nil {
		return nil, transportError(
			"transport: runtime is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	deps := runtime.Dependencies()
	cfg := runtime.Config()

	sleeper := deps.Sleeper
	if sleeper == nil {
		sleeper = core.ContextSleep
	}
	return &RequestExecutor{
		adapter:  NewRESTAdapter(deps.HTTPClient),
		config:   cfg,
		sleeper:  sleeper,
		observer: core.NewObserver(runtime.NamedLogger("trm.transport"), deps.MetricsRecorder),
	}, nil
}

func (e *RequestExecutor) Config() core.Config {
	if e == nil {
		return core.Config{}
	}
	return e.config
}

func (e *RequestExecutor) Execute(ctx context.Context, req Request) (any, error) {
	if e == nil || e.adapter == nil {
		return nil, transportError(
			"transport: request executor is not initialized",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := JoinURL(e.config.BaseURL, req.Path)
	fields := map[string]any{
		"method":   method,
		"endpoint": req.Path,
	}
	startedAt := time.Now()

	payload, err := encodeBody(req.Body)
	if err != nil {
		fields["outcome"] = outcomeEncodingFailed
		e.observer.Observe(ctx, startedAt, "request", err, fields)
		return nil, err
	}

	// At least one attempt is always made, so every exit from the loop sets
	// lastErr and the MaxRetriesError fallback below never fires here.
	maxAttempts := e.config.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, e.canceled(ctx, startedAt, ctxErr, attempt, fields)
		}
		e.observer.Count(ctx, "trm.request.attempts", 1, map[string]string{"method": method})
		e.observer.Log(ctx, "debug", "trm request attempt", map[string]any{
			"method":   method,
			"endpoint": req.Path,
			"attempt":  attempt + 1,
		})

		result, retryable, err := e.attempt(ctx, method, target, req.Query, payload)
		if err == nil {
			fields["outcome"] = outcomeSuccess
			fields["attempts"] = attempt + 1
			e.observer.Observe(ctx, startedAt, "request", nil, fields)
			return result, nil
		}
		if !retryable {
			fields["outcome"] = outcomeClientError
			fields["attempts"] = attempt + 1
			e.observer.Observe(ctx, startedAt, "request", err, fields)
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, e.canceled(ctx, startedAt, ctxErr, attempt+1, fields)
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			delay := Backoff(e.config.RetryDelay(), attempt)
			e.observer.Log(ctx, "warn", "trm request retrying", map[string]any{
				"method":   method,
				"endpoint": req.Path,
				"attempt":  attempt + 1,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
			if sleepErr := e.sleeper(ctx, delay); sleepErr != nil {
				return nil, e.canceled(ctx, startedAt, sleepErr, attempt+1, fields)
			}
		}
	}

	if lastErr == nil {
		lastErr = core.MaxRetriesError()
	}
	fields["outcome"] = outcomeRetriesSpent
	fields["attempts"] = maxAttempts
	e.observer.Observe(ctx, startedAt, "request", lastErr, fields)
	return nil, lastErr
}

func (e *RequestExecutor) attempt(
	ctx context.Context,
	method string,
	target string,
	query map[string]string,
	payload []byte,
) (any, bool, error) {
	res, err := e.adapter.Do(ctx, RawRequest{
		Method:  method,
		URL:     target,
		Headers: e.headers(),
		Query:   query,
		Body:    payload,
		Timeout: e.config.Timeout(),

		MaxResponseBodyBytes: e.config.MaxResponseBytes,
	})
	if err != nil {
		return nil, true, err
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		decoded, err := decodeSuccessBody(res.Body)
		if err != nil {
			return nil, true, invalidResponseError(err, map[string]any{
				"method":      method,
				"status_code": res.StatusCode,
			})
		}
		return decoded, false, nil
	}

	apiErr := core.APIErrorFromBody(res.StatusCode, decodeErrorBody(res.Body))
	return nil, !apiErr.IsClientError(), apiErr
}

func (e *RequestExecutor) headers() map[string]string {
	userAgent := strings.TrimSpace(e.config.UserAgent)
	if userAgent == "" {
		userAgent = core.DefaultUserAgent
	}
	return map[string]string{
		HeaderAPIKey:      e.config.APIKey,
		HeaderContentType: contentTypeJSON,
		HeaderAccept:      contentTypeJSON,
		HeaderUserAgent:   userAgent,
	}
}

func (e *RequestExecutor) canceled(
	ctx context.Context,
	startedAt time.Time,
	cause error,
	attempts int,
	fields map[string]any,
) error {
	err := goerrors.Wrap(cause, goerrors.CategoryOperation, "transport: request canceled").
		WithCode(499).
		WithTextCode(core.ErrorTextCanceled).
		WithMetadata(map[string]any{"attempts": attempts})
	fields["outcome"] = outcomeCanceled
	fields["attempts"] = attempts
	e.observer.Observe(context.WithoutCancel(ctx), startedAt, "request", err, fields)
	return err
}

// JoinURL joins base and path with exactly one slash between them.
func JoinURL(base string, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	return base + "/" + path
}

// Backoff returns base * 2^attempt for a zero-based attempt index.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}
	scaled := float64(base) * math.Pow(2, float64(attempt))
	if scaled >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode request body",
			http.StatusBadRequest,
			nil,
		)
	}
	return payload, nil
}

func decodeSuccessBody(body []byte) (any, error) {
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// decodeErrorBody returns the decoded JSON body, an empty object for an empty
// body, or the raw text when the body is not JSON.
func decodeErrorBody(body []byte) any {
	if len(body) == 0 {
		return map[string]any{}
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}
	return decoded
}

// IsRetryable reports whether err would be retried by the executor.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.IsClientError()
	}
	var envelope *goerrors.Error
	if goerrors.As(err, &envelope) {
		return envelope.Category == goerrors.CategoryExternal
	}
	return false
}
