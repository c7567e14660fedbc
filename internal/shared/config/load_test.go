package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(values map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, meta, err := Load(WithSearchPaths(t.TempDir()), WithEnv(noEnv))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Empty(t, meta.ConfigFile())
	assert.Equal(t, SourceDefault, meta.Source("server.addr"))
	assert.False(t, meta.LoadedAt().IsZero())
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`server:
  addr: ":9090"
  max_batch: 10
decoder:
  cache_ttl: 30s
observability:
  logging:
    level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "askview.yaml"), content, 0o644))

	cfg, meta, err := Load(WithSearchPaths(dir), WithEnv(noEnv))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Server.MaxBatch)
	assert.Equal(t, 30*time.Second, cfg.Decoder.CacheTTL)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, 8, cfg.Decoder.MaxUnwrapDepth)
	assert.Equal(t, filepath.Join(dir, "askview.yaml"), meta.ConfigFile())
	assert.Equal(t, SourceFile, meta.Source("server.max_batch"))
	assert.Equal(t, SourceDefault, meta.Source("decoder.cache_size"))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  max_batch: 10\n"), 0o644))

	cfg, meta, err := Load(WithConfigPath(path), WithEnv(mapEnv(map[string]string{
		"ASKVIEW_SERVER_MAX_BATCH":              "64",
		"ASKVIEW_SERVER_ENABLE_CORS":            "false",
		"ASKVIEW_DECODER_CACHE_TTL":             "1m",
		"ASKVIEW_OBSERVABILITY_METRICS_ENABLED": "false",
	})))
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Server.MaxBatch)
	assert.False(t, cfg.Server.EnableCORS)
	assert.Equal(t, time.Minute, cfg.Decoder.CacheTTL)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, SourceEnv, meta.Source("server.max_batch"))
	assert.Equal(t, SourceEnv, meta.Sources()["decoder.cache_ttl"])
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")), WithEnv(noEnv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, _, err := Load(WithSearchPaths(t.TempDir()), WithEnv(mapEnv(map[string]string{
		"ASKVIEW_DECODER_BATCH_CONCURRENCY": "0",
	})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoder.batch_concurrency")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = " " }, wantErr: "server.addr"},
		{name: "zero batch", mutate: func(c *Config) { c.Server.MaxBatch = 0 }, wantErr: "server.max_batch"},
		{name: "negative timeout", mutate: func(c *Config) { c.Server.ReadTimeout = -time.Second }, wantErr: "timeouts"},
		{name: "zero depth", mutate: func(c *Config) { c.Decoder.MaxUnwrapDepth = 0 }, wantErr: "max_unwrap_depth"},
		{name: "cache without ttl", mutate: func(c *Config) { c.Decoder.CacheTTL = 0 }, wantErr: "cache_ttl"},
		{name: "cache disabled", mutate: func(c *Config) { c.Decoder.CacheSize = 0; c.Decoder.CacheTTL = 0 }},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.Exporter = "jaeger"
		}, wantErr: "unsupported exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "askview.yaml")
	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:7000"
	cfg.Decoder.CacheTTL = 90 * time.Second

	require.NoError(t, Save(cfg, path))

	loaded, meta, err := Load(WithConfigPath(path), WithEnv(noEnv))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, SourceFile, meta.Source("server.addr"))
}
