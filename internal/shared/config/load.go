package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvLookup resolves an environment variable.
type EnvLookup func(string) (string, bool)

// DefaultEnvLookup reads the process environment.
var DefaultEnvLookup EnvLookup = os.LookupEnv

type loadOptions struct {
	configPath  string
	searchPaths []string
	envLookup   EnvLookup
}

// Option customizes Load.
type Option func(*loadOptions)

// WithConfigPath reads exactly this file. A missing file is an error.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) {
		o.configPath = strings.TrimSpace(path)
	}
}

// WithSearchPaths replaces the directories searched for askview.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(o *loadOptions) {
		o.searchPaths = append([]string(nil), paths...)
	}
}

// WithEnv overrides environment lookup for provenance and overrides.
func WithEnv(lookup EnvLookup) Option {
	return func(o *loadOptions) {
		if lookup != nil {
			o.envLookup = lookup
		}
	}
}

// Load assembles the configuration from defaults, the config file and
// ASKVIEW_* environment variables, in increasing precedence.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{
		searchPaths: []string{".", "$HOME/.askview"},
		envLookup:   DefaultEnvLookup,
	}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v, Default())

	if options.configPath != "" {
		v.SetConfigFile(options.configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		for _, path := range options.searchPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if options.configPath != "" || !errors.As(err, &notFound) {
			return Config{}, Metadata{}, fmt.Errorf("read config: %w", err)
		}
	}

	meta := Metadata{
		configFile: v.ConfigFileUsed(),
		sources:    map[string]ValueSource{},
		loadedAt:   time.Now(),
	}
	for _, key := range v.AllKeys() {
		envKey := envName(key)
		if value, ok := options.envLookup(envKey); ok {
			v.Set(key, value)
			meta.sources[key] = SourceEnv
			continue
		}
		if v.InConfig(key) {
			meta.sources[key] = SourceFile
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, Metadata{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, Metadata{}, err
	}
	return cfg, meta, nil
}

// envName maps a dotted key to its environment variable, e.g.
// server.max_batch -> ASKVIEW_SERVER_MAX_BATCH.
func envName(key string) string {
	return DefaultEnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.enable_cors", cfg.Server.EnableCORS)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.debug", cfg.Server.Debug)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.max_batch", cfg.Server.MaxBatch)

	v.SetDefault("decoder.max_unwrap_depth", cfg.Decoder.MaxUnwrapDepth)
	v.SetDefault("decoder.cache_size", cfg.Decoder.CacheSize)
	v.SetDefault("decoder.cache_ttl", cfg.Decoder.CacheTTL)
	v.SetDefault("decoder.batch_concurrency", cfg.Decoder.BatchConcurrency)

	obs := cfg.Observability
	v.SetDefault("observability.logging.level", obs.Logging.Level)
	v.SetDefault("observability.logging.format", obs.Logging.Format)
	v.SetDefault("observability.metrics.enabled", obs.Metrics.Enabled)
	v.SetDefault("observability.metrics.path", obs.Metrics.Path)
	v.SetDefault("observability.tracing.enabled", obs.Tracing.Enabled)
	v.SetDefault("observability.tracing.exporter", obs.Tracing.Exporter)
	v.SetDefault("observability.tracing.otlp_endpoint", obs.Tracing.OTLPEndpoint)
	v.SetDefault("observability.tracing.zipkin_endpoint", obs.Tracing.ZipkinEndpoint)
	v.SetDefault("observability.tracing.sample_rate", obs.Tracing.SampleRate)
	v.SetDefault("observability.tracing.service_name", obs.Tracing.ServiceName)
	v.SetDefault("observability.tracing.service_version", obs.Tracing.ServiceVersion)
}
