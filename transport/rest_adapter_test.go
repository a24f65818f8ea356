package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRESTAdapter_DoAppliesRequestLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderAPIKey) != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":"`+strings.Repeat("x", 32)+`"}`)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	req := RawRequest{
		Method:  http.MethodGet,
		URL:     server.URL,
		Headers: map[string]string{HeaderAPIKey: "key"},
	}

	res, err := adapter.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("expected default limit to allow the body: %v", err)
	}
	if res.StatusCode != http.StatusOK || len(res.Body) == 0 {
		t.Fatalf("unexpected response %d %q", res.StatusCode, res.Body)
	}

	req.MaxResponseBodyBytes = 8
	if _, err := adapter.Do(context.Background(), req); err == nil || !strings.Contains(err.Error(), "exceeds limit of 8 bytes") {
		t.Fatalf("expected per-request limit error, got %v", err)
	}
}

func TestRESTAdapter_RequiresClient(t *testing.T) {
	var adapter *RESTAdapter
	if _, err := adapter.Do(context.Background(), RawRequest{URL: "https://api.example"}); err == nil {
		t.Fatalf("expected error for nil adapter")
	}
}
