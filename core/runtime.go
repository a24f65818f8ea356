package core

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Runtime holds the resolved configuration and collaborators shared by the
// request executor and the webhook dispatcher.
type Runtime struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	httpClient      HTTPDoer
	sleeper         Sleeper
}

type RuntimeDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	HTTPClient      HTTPDoer
	Sleeper         Sleeper
}

// NewRuntime resolves cfg against defaults and the configured provider.
// Precedence is defaults < loaded config < runtime values.
func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	return NewRuntimeContext(context.Background(), cfg, opts...)
}

func NewRuntimeContext(ctx context.Context, cfg Config, opts ...Option) (*Runtime, error) {
	builder := defaultRuntimeBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("trm", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("trm"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.sleeper == nil {
		builder.sleeper = ContextSleep
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(ctx, defaults)
	if err != nil {
		return nil, coreWrapError(err, goerrors.CategoryBadInput, "core: load config")
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeLayer)
	if err != nil {
		return nil, coreWrapError(err, goerrors.CategoryBadInput, "core: resolve config")
	}

	httpClient := builder.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Runtime{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		httpClient:      httpClient,
		sleeper:         builder.sleeper,
	}, nil
}

func (r *Runtime) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Runtime) Dependencies() RuntimeDependencies {
	if r == nil {
		return RuntimeDependencies{}
	}
	return RuntimeDependencies{
		Logger:          r.logger,
		LoggerProvider:  r.loggerProvider,
		MetricsRecorder: r.metricsRecorder,
		ConfigProvider:  r.configProvider,
		OptionsResolver: r.optionsResolver,
		HTTPClient:      r.httpClient,
		Sleeper:         r.sleeper,
	}
}

// NamedLogger returns a child logger from the provider, falling back to the
// runtime logger.
func (r *Runtime) NamedLogger(name string) Logger {
	if r == nil {
		return glog.Nop()
	}
	if r.loggerProvider != nil {
		if named := r.loggerProvider.GetLogger(name); named != nil {
			return glog.Ensure(named)
		}
	}
	return glog.Ensure(r.logger)
}
