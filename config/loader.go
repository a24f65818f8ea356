package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-trm/core"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const DefaultEnvPrefix = "TRM"

// KoanfLoader reads SDK settings with env > file > default precedence.
// Nested keys use a double underscore in the environment, so
// TRM_WEBHOOK__SECRET maps to webhook.secret.
type KoanfLoader struct {
	envPrefix string
	files     []string
	defaults  core.Config
}

type LoaderOption func(*KoanfLoader)

func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *KoanfLoader) {
		l.envPrefix = strings.TrimSuffix(strings.TrimSpace(prefix), "_")
	}
}

func WithFiles(paths ...string) LoaderOption {
	return func(l *KoanfLoader) {
		l.files = append(l.files, paths...)
	}
}

func WithDefaults(defaults core.Config) LoaderOption {
	return func(l *KoanfLoader) {
		l.defaults = defaults
	}
}

func NewKoanfLoader(opts ...LoaderOption) *KoanfLoader {
	loader := &KoanfLoader{
		envPrefix: DefaultEnvPrefix,
		defaults:  core.DefaultConfig(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(loader)
	}
	return loader
}

// NewConfigProvider wires a KoanfLoader into the cfgx-backed provider used by
// core.NewRuntime.
func NewConfigProvider(opts ...LoaderOption) *core.CfgxConfigProvider {
	return core.NewCfgxConfigProvider(NewKoanfLoader(opts...))
}

// Load returns the typed configuration, defaults included, without
// validating it.
func (l *KoanfLoader) Load(ctx context.Context) (core.Config, error) {
	sources, err := l.load(ctx)
	if err != nil {
		return core.Config{}, err
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultsToMap(l.defaults), "."), nil); err != nil {
		return core.Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if err := k.Merge(sources); err != nil {
		return core.Config{}, fmt.Errorf("config: merge sources: %w", err)
	}
	var cfg core.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return core.Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// LoadRaw implements core.RawConfigLoader. Only keys set by a file or the
// environment are returned, so an explicit zero is kept and an unset key
// falls through to the defaults. Values are decoded through the typed config
// first so environment strings reach cfgx with their final types.
func (l *KoanfLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	k, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	var cfg core.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return rawFromConfig(k, cfg), nil
}

// load reads files then the environment. Defaults are applied by callers.
func (l *KoanfLoader) load(ctx context.Context) (*koanf.Koanf, error) {
	if l == nil {
		return nil, fmt.Errorf("config: loader is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	k := koanf.New(".")

	for _, path := range l.files {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: file %s not found", path)
			}
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		prefix := l.envPrefix + "_"
		transform := func(s string) string {
			key := strings.TrimPrefix(s, prefix)
			key = strings.ReplaceAll(key, "__", ".")
			return strings.ToLower(key)
		}
		if err := k.Load(env.Provider(prefix, ".", transform), nil); err != nil {
			return nil, fmt.Errorf("config: load env: %w", err)
		}
	}
	return k, nil
}

func parserFor(path string) (koanf.Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	case ".toml", ".tml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("config: unsupported config file extension %s", ext)
	}
}

func defaultsToMap(cfg core.Config) map[string]any {
	return map[string]any{
		"api_key":             cfg.APIKey,
		"base_url":            cfg.BaseURL,
		"timeout_seconds":     cfg.TimeoutSeconds,
		"max_retries":         cfg.MaxRetries,
		"retry_delay_seconds": cfg.RetryDelaySeconds,
		"user_agent":          cfg.UserAgent,
		"max_response_bytes":  cfg.MaxResponseBytes,
		"webhook": map[string]any{
			"secret": cfg.Webhook.Secret,
		},
	}
}

// rawFromConfig keeps only keys present in k, which holds file and env
// values but no defaults.
func rawFromConfig(k *koanf.Koanf, cfg core.Config) map[string]any {
	typed := defaultsToMap(cfg)
	raw := map[string]any{}
	for key, value := range typed {
		if key == "webhook" {
			continue
		}
		if k.Exists(key) {
			raw[key] = value
		}
	}
	if k.Exists("webhook.secret") {
		raw["webhook"] = map[string]any{"secret": cfg.Webhook.Secret}
	}
	return raw
}
