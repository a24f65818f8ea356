package webhooks

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves a Dispatcher over net/http and writes the Result as
// JSON.
type HTTPHandler struct {
	Dispatcher *Dispatcher
}

func NewHTTPHandler(dispatcher *Dispatcher) *HTTPHandler {
	return &HTTPHandler{Dispatcher: dispatcher}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeResult(w, http.StatusMethodNotAllowed, Result{Error: "Method not allowed", Outcome: OutcomeRejected})
		return
	}
	if h == nil || h.Dispatcher == nil {
		writeResult(w, http.StatusInternalServerError, Result{Error: "webhooks: dispatcher is nil", Outcome: OutcomeFailed})
		return
	}
	result := h.Dispatcher.HandleRequest(r)
	writeResult(w, StatusCode(result), result)
}

// StatusCode maps a Result to the HTTP status the handler responds with.
func StatusCode(result Result) int {
	switch result.Outcome {
	case OutcomeProcessed, OutcomeIgnored:
		return http.StatusOK
	case OutcomeRejected:
		if result.Error == MessageInvalidSignature {
			return http.StatusUnauthorized
		}
		return http.StatusBadRequest
	case OutcomeFailed:
		return http.StatusInternalServerError
	}
	if result.Error != "" {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func writeResult(w http.ResponseWriter, status int, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

var _ http.Handler = (*HTTPHandler)(nil)
