package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects configurations the server and decoder cannot run with.
func Validate(cfg Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if cfg.Server.MaxBatch <= 0 {
		errs = append(errs, fmt.Errorf("server.max_batch must be positive: %d", cfg.Server.MaxBatch))
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if cfg.Decoder.MaxUnwrapDepth <= 0 {
		errs = append(errs, fmt.Errorf("decoder.max_unwrap_depth must be positive: %d", cfg.Decoder.MaxUnwrapDepth))
	}
	if cfg.Decoder.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("decoder.cache_size must not be negative: %d", cfg.Decoder.CacheSize))
	}
	if cfg.Decoder.CacheSize > 0 && cfg.Decoder.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("decoder.cache_ttl must be positive when caching: %s", cfg.Decoder.CacheTTL))
	}
	if cfg.Decoder.BatchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("decoder.batch_concurrency must be positive: %d", cfg.Decoder.BatchConcurrency))
	}
	if err := cfg.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
