package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trm/core"
	"github.com/google/uuid"
)

const (
	MessageMissingHeaders   = "Missing required headers"
	MessageInvalidSignature = "Invalid signature"
	MessageInvalidJSON      = "Invalid JSON payload"
	MessageInvalidBody      = "Invalid request body"
	MessageNoHandler        = "No handler for event"
)

const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

const DefaultMaxBodyBytes = int64(1 << 20)

// Event is a verified delivery handed to a HandlerFunc.
type Event struct {
	ID        string
	Name      string
	Payload   any
	Signature string
	Timestamp string
	Body      []byte
}

// Result is the outcome of one dispatch. It serialises to one of
// {"success":true,"result":...}, {"success":true,"message":...} or
// {"error":...}.
type Result struct {
	Success bool
	Result  any
	Message string
	Error   string
	Outcome string
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Error != "":
		return json.Marshal(map[string]any{"error": r.Error})
	case r.Message != "":
		return json.Marshal(map[string]any{"success": r.Success, "message": r.Message})
	default:
		return json.Marshal(map[string]any{"success": r.Success, "result": r.Result})
	}
}

// Delivery is the record of one dispatch handed to a DeliveryRecorder.
type Delivery struct {
	ID         string
	Event      string
	Outcome    string
	Error      string
	Payload    []byte
	ReceivedAt time.Time
}

type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, delivery Delivery) error
}

type Dispatcher struct {
	verifier     *Verifier
	registry     *HandlerRegistry
	recorder     DeliveryRecorder
	observer     core.Observer
	maxBodyBytes int64
	now          func() time.Time
	newID        func() string
}

type DispatcherOption func(*Dispatcher)

func WithDeliveryRecorder(recorder DeliveryRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

func WithLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = core.NewObserver(logger, d.observer.Metrics)
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = core.NewObserver(d.observer.Logger, recorder)
	}
}

func WithRegistry(registry *HandlerRegistry) DispatcherOption {
	return func(d *Dispatcher) {
		if registry != nil {
			d.registry = registry
		}
	}
}

func WithMaxBodyBytes(limit int64) DispatcherOption {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.maxBodyBytes = limit
		}
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(secret string, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		verifier:     NewVerifier(secret),
		registry:     NewHandlerRegistry(),
		observer:     core.NewObserver(nil, nil),
		maxBodyBytes: DefaultMaxBodyBytes,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(dispatcher)
	}
	return dispatcher
}

// On registers handler for event and returns the dispatcher for chaining.
func (d *Dispatcher) On(event string, handler HandlerFunc) *Dispatcher {
	if d == nil {
		return nil
	}
	d.registry.Register(event, handler)
	return d
}

func (d *Dispatcher) Registry() *HandlerRegistry {
	if d == nil {
		return nil
	}
	return d.registry
}

// HandleRequest reads the body and headers of r and dispatches them.
func (d *Dispatcher) HandleRequest(r *http.Request) Result {
	if r == nil {
		return Result{Error: MessageInvalidBody, Outcome: OutcomeRejected}
	}
	ctx := r.Context()
	headers := flattenRequestHeaders(r.Header)
	body, err := d.readBody(r)
	if err != nil {
		result := Result{Error: MessageInvalidBody, Outcome: OutcomeRejected}
		d.finish(ctx, d.now(), headerValue(headers, HeaderEvent), nil, result, err)
		return result
	}
	return d.Dispatch(ctx, headers, body)
}

// Dispatch verifies and routes one delivery. Header names are matched
// case-insensitively and empty values count as missing.
func (d *Dispatcher) Dispatch(ctx context.Context, headers map[string]string, body []byte) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if d == nil {
		return Result{Error: "webhooks: dispatcher is nil", Outcome: OutcomeFailed}
	}
	startedAt := d.now()

	signature := headerValue(headers, HeaderSignature)
	timestamp := headerValue(headers, HeaderTimestamp)
	eventName := headerValue(headers, HeaderEvent)
	if signature == "" || timestamp == "" || eventName == "" {
		result := Result{Error: MessageMissingHeaders, Outcome: OutcomeRejected}
		d.finish(ctx, startedAt, eventName, body, result, webhookError(
			"webhooks: required headers missing",
			goerrors.CategoryBadInput,
			map[string]any{
				"has_signature": signature != "",
				"has_timestamp": timestamp != "",
				"has_event":     eventName != "",
			},
		))
		return result
	}

	if err := d.verifier.Verify(body, signature, timestamp); err != nil {
		result := Result{Error: MessageInvalidSignature, Outcome: OutcomeRejected}
		d.finish(ctx, startedAt, eventName, body, result, err)
		return result
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		result := Result{Error: MessageInvalidJSON, Outcome: OutcomeRejected}
		d.finish(ctx, startedAt, eventName, body, result, webhookWrapError(
			err,
			goerrors.CategoryBadInput,
			"webhooks: decode payload",
			map[string]any{"event": eventName},
		))
		return result
	}

	handler, ok := d.registry.Lookup(eventName)
	if !ok {
		result := Result{Success: true, Message: MessageNoHandler, Outcome: OutcomeIgnored}
		d.finish(ctx, startedAt, eventName, body, result, nil)
		return result
	}

	event := Event{
		ID:        d.newID(),
		Name:      eventName,
		Payload:   payload,
		Signature: signature,
		Timestamp: timestamp,
		Body:      body,
	}
	value, err := invokeHandler(ctx, handler, event)
	if err != nil {
		result := Result{Error: err.Error(), Outcome: OutcomeFailed}
		d.finishWithID(ctx, event.ID, startedAt, eventName, body, result, err)
		return result
	}
	result := Result{Success: true, Result: value, Outcome: OutcomeProcessed}
	d.finishWithID(ctx, event.ID, startedAt, eventName, body, result, nil)
	return result
}

func invokeHandler(ctx context.Context, handler HandlerFunc, event Event) (value any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			value = nil
			if recoveredErr, ok := recovered.(error); ok {
				err = recoveredErr
				return
			}
			err = fmt.Errorf("%v", recovered)
		}
	}()
	value, err = handler(ctx, event)
	if err == nil {
		return value, nil
	}
	if strings.TrimSpace(err.Error()) == "" {
		return nil, errors.New("webhook handler failed")
	}
	return nil, err
}

func (d *Dispatcher) finish(
	ctx context.Context,
	startedAt time.Time,
	eventName string,
	body []byte,
	result Result,
	cause error,
) {
	d.finishWithID(ctx, d.newID(), startedAt, eventName, body, result, cause)
}

func (d *Dispatcher) finishWithID(
	ctx context.Context,
	deliveryID string,
	startedAt time.Time,
	eventName string,
	body []byte,
	result Result,
	cause error,
) {
	fields := map[string]any{
		"delivery_id": deliveryID,
		"event":       eventName,
		"outcome":     result.Outcome,
	}
	d.observer.Observe(ctx, startedAt, "webhook_dispatch", cause, fields)

	if d.recorder == nil {
		return
	}
	delivery := Delivery{
		ID:         deliveryID,
		Event:      eventName,
		Outcome:    result.Outcome,
		Error:      result.Error,
		ReceivedAt: startedAt.UTC(),
	}
	// Rejected payloads are not stored since most were never authenticated.
	if result.Outcome != OutcomeRejected {
		delivery.Payload = append([]byte(nil), body...)
	}
	if err := d.recorder.RecordDelivery(ctx, delivery); err != nil {
		d.observer.Log(ctx, "warn", "webhook delivery record failed", map[string]any{
			"delivery_id": deliveryID,
			"event":       eventName,
			"error":       err.Error(),
		})
	}
}

func (d *Dispatcher) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte{}, nil
	}
	defer r.Body.Close()
	limit := d.maxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, webhookWrapError(err, goerrors.CategoryBadInput, "webhooks: read request body", nil)
	}
	if int64(len(body)) > limit {
		return nil, webhookError(
			fmt.Sprintf("webhooks: request body exceeds limit of %d bytes", limit),
			goerrors.CategoryBadInput,
			map[string]any{"limit_b": limit},
		)
	}
	return body, nil
}

func flattenRequestHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		flat[key] = values[0]
	}
	return flat
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
