package observability

import (
	"fmt"
	"strings"
)

// Config represents the complete observability configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, text
}

// DefaultConfig returns the default observability configuration
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:        false,
			Exporter:       "otlp",
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     1.0,
			ServiceName:    "askview",
			ServiceVersion: "1.0.0",
		},
	}
}

// Validate rejects values the logger, metrics and tracer cannot honour.
func (c Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Metrics.Path)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp", "zipkin":
		default:
			return fmt.Errorf("unsupported exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
			return fmt.Errorf("sample_rate must be within [0, 1]: %v", c.Tracing.SampleRate)
		}
	}
	return nil
}
