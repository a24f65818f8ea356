package webhooks

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// HandlerFunc handles one verified event. The returned value is reported
// back as the dispatch result.
type HandlerFunc func(ctx context.Context, event Event) (any, error)

// HandlerRegistry maps event names to a single handler. Registering the same
// event again replaces the previous handler.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: map[string]HandlerFunc{}}
}

// Register stores handler for event. A nil handler removes the entry.
func (r *HandlerRegistry) Register(event string, handler HandlerFunc) {
	if r == nil {
		return
	}
	event = strings.TrimSpace(event)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = map[string]HandlerFunc{}
	}
	if handler == nil {
		delete(r.handlers, event)
		return
	}
	r.handlers[event] = handler
}

func (r *HandlerRegistry) Lookup(event string) (HandlerFunc, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[strings.TrimSpace(event)]
	return handler, ok
}

func (r *HandlerRegistry) Events() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make([]string, 0, len(r.handlers))
	for event := range r.handlers {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}
