package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

// ConfigLayer holds only the settings a source explicitly set, keyed like
// the config file. The webhook secret nests under "webhook". A key that is
// present with a zero value still overrides lower layers.
type ConfigLayer map[string]any

// ConfigProvider returns the layer loaded from external sources. Keys that
// no source set must be absent so defaults survive.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (ConfigLayer, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded ConfigLayer, runtime ConfigLayer) (Config, error)
}

type runtimeBuilder struct {
	runtimeLayer    ConfigLayer
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	httpClient      HTTPDoer
	sleeper         Sleeper
}

type Option func(*runtimeBuilder)

func WithLogger(logger Logger) Option {
	return func(b *runtimeBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *runtimeBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *runtimeBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *runtimeBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *runtimeBuilder) {
		b.optionsResolver = resolver
	}
}

func WithHTTPClient(client HTTPDoer) Option {
	return func(b *runtimeBuilder) {
		b.httpClient = client
	}
}

func WithSleeper(sleeper Sleeper) Option {
	return func(b *runtimeBuilder) {
		b.sleeper = sleeper
	}
}

func WithBaseURL(baseURL string) Option {
	return func(b *runtimeBuilder) {
		b.set(keyBaseURL, strings.TrimSpace(baseURL))
	}
}

// WithTimeout rounds up to whole seconds. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(b *runtimeBuilder) {
		if timeout > 0 {
			b.set(keyTimeoutSeconds, int((timeout+time.Second-1)/time.Second))
		}
	}
}

// WithMaxRetries sets the total attempt budget. Zero is rejected when the
// runtime is built.
func WithMaxRetries(maxRetries int) Option {
	return func(b *runtimeBuilder) {
		b.set(keyMaxRetries, maxRetries)
	}
}

// WithRetryDelay sets the base backoff delay. Zero disables waiting between
// attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(b *runtimeBuilder) {
		b.set(keyRetryDelaySeconds, delay.Seconds())
	}
}

func WithUserAgent(userAgent string) Option {
	return func(b *runtimeBuilder) {
		b.set(keyUserAgent, strings.TrimSpace(userAgent))
	}
}

func WithWebhookSecret(secret string) Option {
	return func(b *runtimeBuilder) {
		b.set(keyWebhook, map[string]any{keySecret: secret})
	}
}

func (b *runtimeBuilder) set(key string, value any) {
	if b.runtimeLayer == nil {
		b.runtimeLayer = ConfigLayer{}
	}
	b.runtimeLayer[key] = value
}

// defaultRuntimeBuilder seeds the runtime layer from the non-zero fields of
// the Config passed to NewRuntime. Options record zero values explicitly.
func defaultRuntimeBuilder(runtime Config) runtimeBuilder {
	loggerProvider, logger := glog.Resolve("trm", nil, nil)
	return runtimeBuilder{
		runtimeLayer:    configToLayerMap(runtime, false),
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		sleeper:         ContextSleep,
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// CfgxConfigProvider decodes raw values from a loader on top of the
// defaults. Validation is deferred until all layers are merged.
type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (ConfigLayer, error) {
	if p == nil {
		return ConfigLayer{}, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	typed, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
	if err != nil {
		return nil, err
	}
	return layerFromKeys(typed, raw), nil
}

// layerFromKeys keeps the typed value of every key present in raw.
func layerFromKeys(typed Config, raw map[string]any) ConfigLayer {
	full := configToLayerMap(typed, true)
	layer := ConfigLayer{}
	for key, value := range full {
		if key == keyWebhook {
			continue
		}
		if _, ok := raw[key]; ok {
			layer[key] = value
		}
	}
	if webhook, ok := raw[keyWebhook].(map[string]any); ok {
		if _, ok := webhook[keySecret]; ok {
			layer[keyWebhook] = map[string]any{keySecret: typed.Webhook.Secret}
		}
	}
	return layer
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded ConfigLayer, runtime ConfigLayer) (Config, error) {
	defaultLayer := map[string]any(configToLayerMap(defaults, true))
	loadedLayer := loaded.clone()
	runtimeLayer := runtime.clone()

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

const (
	keyAPIKey            = "api_key"
	keyBaseURL           = "base_url"
	keyTimeoutSeconds    = "timeout_seconds"
	keyMaxRetries        = "max_retries"
	keyRetryDelaySeconds = "retry_delay_seconds"
	keyUserAgent         = "user_agent"
	keyMaxResponseBytes  = "max_response_bytes"
	keyWebhook           = "webhook"
	keySecret            = "secret"
)

func (l ConfigLayer) clone() map[string]any {
	out := make(map[string]any, len(l))
	for key, value := range l {
		if nested, ok := value.(map[string]any); ok {
			copied := make(map[string]any, len(nested))
			for k, v := range nested {
				copied[k] = v
			}
			value = copied
		}
		out[key] = value
	}
	return out
}

// configToLayerMap treats zero fields as unset unless includeZero is true.
func configToLayerMap(cfg Config, includeZero bool) ConfigLayer {
	layer := ConfigLayer{}
	if includeZero || strings.TrimSpace(cfg.APIKey) != "" {
		layer[keyAPIKey] = cfg.APIKey
	}
	if includeZero || strings.TrimSpace(cfg.BaseURL) != "" {
		layer[keyBaseURL] = cfg.BaseURL
	}
	if includeZero || cfg.TimeoutSeconds != 0 {
		layer[keyTimeoutSeconds] = cfg.TimeoutSeconds
	}
	if includeZero || cfg.MaxRetries != 0 {
		layer[keyMaxRetries] = cfg.MaxRetries
	}
	if includeZero || cfg.RetryDelaySeconds != 0 {
		layer[keyRetryDelaySeconds] = cfg.RetryDelaySeconds
	}
	if includeZero || strings.TrimSpace(cfg.UserAgent) != "" {
		layer[keyUserAgent] = cfg.UserAgent
	}
	if includeZero || cfg.MaxResponseBytes != 0 {
		layer[keyMaxResponseBytes] = cfg.MaxResponseBytes
	}
	if includeZero || cfg.Webhook.Secret != "" {
		layer[keyWebhook] = map[string]any{
			keySecret: cfg.Webhook.Secret,
		}
	}
	return layer
}
