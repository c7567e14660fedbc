package config

import (
	"time"

	"askview/internal/observability"
)

// ValueSource records where a configuration value came from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "environment"
)

const (
	DefaultConfigName = "askview"
	DefaultEnvPrefix  = "ASKVIEW"
)

// Config is the full askview configuration.
type Config struct {
	Server        ServerConfig         `mapstructure:"server" yaml:"server"`
	Decoder       DecoderConfig        `mapstructure:"decoder" yaml:"decoder"`
	Observability observability.Config `mapstructure:"observability" yaml:"observability"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	EnableCORS     bool          `mapstructure:"enable_cors" yaml:"enable_cors"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Debug          bool          `mapstructure:"debug" yaml:"debug"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxBatch       int           `mapstructure:"max_batch" yaml:"max_batch"`
}

// DecoderConfig tunes the decoder and the decode service around it.
type DecoderConfig struct {
	MaxUnwrapDepth   int           `mapstructure:"max_unwrap_depth" yaml:"max_unwrap_depth"`
	CacheSize        int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	BatchConcurrency int           `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			EnableCORS:     true,
			AllowedOrigins: []string{"*"},
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxBatch:       256,
		},
		Decoder: DecoderConfig{
			MaxUnwrapDepth:   8,
			CacheSize:        1024,
			CacheTTL:         10 * time.Minute,
			BatchConcurrency: 8,
		},
		Observability: observability.DefaultConfig(),
	}
}

// Metadata describes how a Config was assembled.
type Metadata struct {
	configFile string
	sources    map[string]ValueSource
	loadedAt   time.Time
}

// ConfigFile returns the file that was read, or "" when none was found.
func (m Metadata) ConfigFile() string {
	return m.configFile
}

// Sources returns a copy of the provenance map.
func (m Metadata) Sources() map[string]ValueSource {
	out := make(map[string]ValueSource, len(m.sources))
	for key, value := range m.sources {
		out[key] = value
	}
	return out
}

// Source returns the origin for a dotted configuration key.
func (m Metadata) Source(key string) ValueSource {
	if src, ok := m.sources[key]; ok {
		return src
	}
	return SourceDefault
}

// LoadedAt returns when the configuration was loaded.
func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}
