package trm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trm/core"
	"github.com/goliatone/go-trm/transport"
	"github.com/goliatone/go-trm/webhooks"
)

type Config = core.Config

type WebhookConfig = core.WebhookConfig

type Option = core.Option

type APIError = core.APIError

// Query holds query string parameters passed through to the API unchanged.
type Query = map[string]string

type (
	WebhookEvent       = webhooks.Event
	WebhookResult      = webhooks.Result
	WebhookHandlerFunc = webhooks.HandlerFunc
	WebhookDispatcher  = webhooks.Dispatcher
	WebhookHTTPHandler = webhooks.HTTPHandler
	DispatcherOption   = webhooks.DispatcherOption
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithHTTPClient      = core.WithHTTPClient
	WithSleeper         = core.WithSleeper
	WithBaseURL         = core.WithBaseURL
	WithTimeout         = core.WithTimeout
	WithMaxRetries      = core.WithMaxRetries
	WithRetryDelay      = core.WithRetryDelay
	WithUserAgent       = core.WithUserAgent
	WithWebhookSecret   = core.WithWebhookSecret
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// Client is the entry point to the TRM API. All resource methods return the
// decoded JSON response body.
type Client struct {
	runtime  *core.Runtime
	executor *transport.RequestExecutor
}

func New(cfg Config, opts ...Option) (*Client, error) {
	return NewContext(context.Background(), cfg, opts...)
}

func NewContext(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	runtime, err := core.NewRuntimeContext(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	executor, err := transport.NewRequestExecutor(runtime)
	if err != nil {
		return nil, err
	}
	return &Client{runtime: runtime, executor: executor}, nil
}

// NewClient builds a client for apiKey with default settings.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	return New(Config{APIKey: apiKey}, opts...)
}

func (c *Client) Config() Config {
	if c == nil || c.runtime == nil {
		return Config{}
	}
	return c.runtime.Config()
}

// Do sends an arbitrary request through the retrying executor.
func (c *Client) Do(ctx context.Context, method string, path string, body any, query Query) (any, error) {
	if c == nil || c.executor == nil {
		return nil, clientError("trm: client is not initialized", goerrors.CategoryInternal, nil)
	}
	return c.executor.Execute(ctx, transport.Request{
		Method: method,
		Path:   path,
		Body:   body,
		Query:  query,
	})
}

// NewWebhookDispatcher returns a dispatcher keyed with the configured webhook
// secret that logs and reports metrics through the client's collaborators.
func (c *Client) NewWebhookDispatcher(opts ...DispatcherOption) *WebhookDispatcher {
	if c == nil || c.runtime == nil {
		return webhooks.NewDispatcher("", opts...)
	}
	deps := c.runtime.Dependencies()
	base := []DispatcherOption{
		webhooks.WithLogger(c.runtime.NamedLogger("trm.webhooks")),
		webhooks.WithMetricsRecorder(deps.MetricsRecorder),
	}
	return webhooks.NewDispatcher(c.runtime.Config().Webhook.Secret, append(base, opts...)...)
}

// NewWebhookHandler returns an http.Handler that verifies and dispatches
// deliveries signed with secret. Register handlers with On on the returned
// handler's Dispatcher.
func NewWebhookHandler(secret string, opts ...DispatcherOption) *WebhookHTTPHandler {
	return webhooks.NewHTTPHandler(webhooks.NewDispatcher(secret, opts...))
}

func (c *Client) get(ctx context.Context, path string, query Query) (any, error) {
	return c.Do(ctx, http.MethodGet, path, nil, query)
}

func (c *Client) send(ctx context.Context, method string, path string, body any) (any, error) {
	return c.Do(ctx, method, path, body, nil)
}

// resourcePath fills each {} in template with the next path-escaped id.
func resourcePath(template string, ids ...string) (string, error) {
	parts := strings.Split(template, "{}")
	if len(parts)-1 != len(ids) {
		return "", clientError("trm: path template arity mismatch", goerrors.CategoryInternal, map[string]any{
			"template": template,
		})
	}
	var builder strings.Builder
	builder.WriteString(parts[0])
	for index, id := range ids {
		if strings.TrimSpace(id) == "" {
			return "", clientError("trm: resource id is required", goerrors.CategoryBadInput, map[string]any{
				"template": template,
				"position": index,
			})
		}
		builder.WriteString(url.PathEscape(id))
		builder.WriteString(parts[index+1])
	}
	return builder.String(), nil
}

func clientError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(core.HTTPStatusForCategory(category)).
		WithTextCode(core.TextCodeForCategory(category))
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}
