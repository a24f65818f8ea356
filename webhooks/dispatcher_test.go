package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testSecret    = "whsec_test"
	testTimestamp = "1700000000"
)

type memoryRecorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (r *memoryRecorder) RecordDelivery(_ context.Context, delivery Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, delivery)
	return r.err
}

func (r *memoryRecorder) snapshot() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

func signedHeaders(event string, body []byte) map[string]string {
	return map[string]string{
		HeaderSignature: SignatureHeader(testSecret, testTimestamp, body),
		HeaderTimestamp: testTimestamp,
		HeaderEvent:     event,
	}
}

func TestDispatch_RoutesVerifiedEvent(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	var received Event
	dispatcher := NewDispatcher(testSecret).On("referral.created", func(_ context.Context, event Event) (any, error) {
		received = event
		return map[string]any{"handled": true}, nil
	})

	result := dispatcher.Dispatch(context.Background(), signedHeaders("referral.created", body), body)
	if !result.Success || result.Outcome != OutcomeProcessed {
		t.Fatalf("expected processed result, got %#v", result)
	}
	if result.Result.(map[string]any)["handled"] != true {
		t.Fatalf("expected handler result, got %#v", result.Result)
	}
	if received.Name != "referral.created" || received.Timestamp != testTimestamp {
		t.Fatalf("unexpected event %#v", received)
	}
	if received.Payload.(map[string]any)["id"] != "evt_1" {
		t.Fatalf("expected decoded payload, got %#v", received.Payload)
	}
	if received.ID == "" {
		t.Fatalf("expected delivery id on event")
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if string(encoded) != `{"result":{"handled":true},"success":true}` {
		t.Fatalf("unexpected result json %s", encoded)
	}
}

func TestDispatch_HeaderLookupIsCaseInsensitive(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	dispatcher := NewDispatcher(testSecret).On("job.updated", func(context.Context, Event) (any, error) {
		return "ok", nil
	})
	headers := map[string]string{
		"x-trm-signature": SignatureHeader(testSecret, testTimestamp, body),
		"X-Trm-Timestamp": testTimestamp,
		"x-TRM-event":     "job.updated",
	}
	if result := dispatcher.Dispatch(context.Background(), headers, body); !result.Success {
		t.Fatalf("expected success, got %#v", result)
	}
}

func TestDispatch_MissingHeaders(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	dispatcher := NewDispatcher(testSecret)

	for _, missing := range []string{HeaderSignature, HeaderTimestamp, HeaderEvent} {
		headers := signedHeaders("job.created", body)
		headers[missing] = ""
		result := dispatcher.Dispatch(context.Background(), headers, body)
		if result.Error != MessageMissingHeaders || result.Outcome != OutcomeRejected {
			t.Fatalf("missing %s: expected missing headers result, got %#v", missing, result)
		}
	}
	if result := dispatcher.Dispatch(context.Background(), nil, body); result.Error != MessageMissingHeaders {
		t.Fatalf("expected missing headers for nil map, got %#v", result)
	}
}

func TestDispatch_InvalidSignatureCheckedBeforeJSON(t *testing.T) {
	body := []byte(`not json`)
	called := false
	dispatcher := NewDispatcher(testSecret).On("job.created", func(context.Context, Event) (any, error) {
		called = true
		return nil, nil
	})
	headers := signedHeaders("job.created", body)
	headers[HeaderSignature] = "v1=deadbeef"

	result := dispatcher.Dispatch(context.Background(), headers, body)
	if result.Error != MessageInvalidSignature {
		t.Fatalf("expected invalid signature, got %#v", result)
	}
	if called {
		t.Fatalf("handler must not run for invalid signatures")
	}
}

func TestDispatch_InvalidJSON(t *testing.T) {
	body := []byte(`{"id":`)
	dispatcher := NewDispatcher(testSecret)
	result := dispatcher.Dispatch(context.Background(), signedHeaders("job.created", body), body)
	if result.Error != MessageInvalidJSON {
		t.Fatalf("expected invalid json, got %#v", result)
	}
}

func TestDispatch_NoHandler(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	result := NewDispatcher(testSecret).Dispatch(context.Background(), signedHeaders("company.created", body), body)
	if !result.Success || result.Message != MessageNoHandler || result.Outcome != OutcomeIgnored {
		t.Fatalf("expected ignored result, got %#v", result)
	}
	encoded, _ := json.Marshal(result)
	if string(encoded) != `{"message":"No handler for event","success":true}` {
		t.Fatalf("unexpected json %s", encoded)
	}
}

func TestDispatch_HandlerErrorAndPanicBecomeResults(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	dispatcher := NewDispatcher(testSecret).
		On("job.created", func(context.Context, Event) (any, error) {
			return nil, errors.New("downstream unavailable")
		}).
		On("job.deleted", func(context.Context, Event) (any, error) {
			panic("handler exploded")
		})

	failed := dispatcher.Dispatch(context.Background(), signedHeaders("job.created", body), body)
	if failed.Error != "downstream unavailable" || failed.Outcome != OutcomeFailed {
		t.Fatalf("expected handler error result, got %#v", failed)
	}
	panicked := dispatcher.Dispatch(context.Background(), signedHeaders("job.deleted", body), body)
	if panicked.Error != "handler exploded" || panicked.Outcome != OutcomeFailed {
		t.Fatalf("expected recovered panic result, got %#v", panicked)
	}
	encoded, _ := json.Marshal(failed)
	if string(encoded) != `{"error":"downstream unavailable"}` {
		t.Fatalf("unexpected json %s", encoded)
	}
}

func TestDispatch_RecordsDeliveries(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	recorder := &memoryRecorder{err: errors.New("store down")}
	fixed := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	dispatcher := NewDispatcher(testSecret,
		WithDeliveryRecorder(recorder),
		WithClock(func() time.Time { return fixed }),
	).On("job.created", func(context.Context, Event) (any, error) {
		return "ok", nil
	})

	processed := dispatcher.Dispatch(context.Background(), signedHeaders("job.created", body), body)
	if !processed.Success {
		t.Fatalf("recorder failures must not change the result, got %#v", processed)
	}
	dispatcher.Dispatch(context.Background(), map[string]string{}, body)

	deliveries := recorder.snapshot()
	if len(deliveries) != 2 {
		t.Fatalf("expected two deliveries, got %d", len(deliveries))
	}
	if deliveries[0].Outcome != OutcomeProcessed || deliveries[0].Event != "job.created" {
		t.Fatalf("unexpected first delivery %#v", deliveries[0])
	}
	if !deliveries[0].ReceivedAt.Equal(fixed) || string(deliveries[0].Payload) != string(body) {
		t.Fatalf("unexpected delivery details %#v", deliveries[0])
	}
	if deliveries[1].Outcome != OutcomeRejected || deliveries[1].Error != MessageMissingHeaders {
		t.Fatalf("unexpected second delivery %#v", deliveries[1])
	}
	if len(deliveries[1].Payload) != 0 {
		t.Fatalf("expected rejected delivery without payload, got %q", deliveries[1].Payload)
	}
}

func TestDispatch_RejectedDeliveriesDropPayload(t *testing.T) {
	body := []byte(`{"id":"evt_forged"}`)
	recorder := &memoryRecorder{}
	dispatcher := NewDispatcher(testSecret, WithDeliveryRecorder(recorder)).On("job.created", func(context.Context, Event) (any, error) {
		return "ok", nil
	})

	headers := signedHeaders("job.created", []byte(`{"id":"evt_other"}`))
	result := dispatcher.Dispatch(context.Background(), headers, body)
	if result.Success || result.Error != MessageInvalidSignature {
		t.Fatalf("expected invalid signature, got %#v", result)
	}

	deliveries := recorder.snapshot()
	if len(deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliveries))
	}
	if deliveries[0].Outcome != OutcomeRejected || deliveries[0].Error != MessageInvalidSignature {
		t.Fatalf("unexpected delivery %#v", deliveries[0])
	}
	if deliveries[0].Payload != nil {
		t.Fatalf("expected no payload for unauthenticated body, got %q", deliveries[0].Payload)
	}
}

func TestHandleRequest_ReadsRequest(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	dispatcher := NewDispatcher(testSecret).On("job.created", func(_ context.Context, event Event) (any, error) {
		return event.Name, nil
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/trm", strings.NewReader(string(body)))
	for key, value := range signedHeaders("job.created", body) {
		req.Header.Set(key, value)
	}
	result := dispatcher.HandleRequest(req)
	if !result.Success || result.Result != "job.created" {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestHandleRequest_BodyLimit(t *testing.T) {
	body := []byte(`{"id":"evt_123456789"}`)
	dispatcher := NewDispatcher(testSecret, WithMaxBodyBytes(8))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/trm", strings.NewReader(string(body)))
	for key, value := range signedHeaders("job.created", body) {
		req.Header.Set(key, value)
	}
	if result := dispatcher.HandleRequest(req); result.Error != MessageInvalidBody {
		t.Fatalf("expected invalid body result, got %#v", result)
	}
}

func TestDispatch_ConcurrentRegistrationAndDispatch(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	dispatcher := NewDispatcher(testSecret)
	var wg sync.WaitGroup
	for index := 0; index < 16; index++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			dispatcher.On("job.created", func(context.Context, Event) (any, error) { return "ok", nil })
		}()
		go func() {
			defer wg.Done()
			result := dispatcher.Dispatch(context.Background(), signedHeaders("job.created", body), body)
			if result.Error != "" {
				t.Errorf("unexpected error result %#v", result)
			}
		}()
	}
	wg.Wait()
}
