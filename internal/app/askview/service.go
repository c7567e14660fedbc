// Package askview serves ask-record decoding to the delivery layers: it
// wraps the domain decoder with a result cache, bounded batch fan-out,
// metrics and tracing.
package askview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"askview/internal/domain/ask"
	"askview/internal/observability"
	jsonx "askview/internal/shared/json"
	"askview/internal/shared/logging"
)

const (
	defaultCacheSize        = 1024
	defaultCacheTTL         = 10 * time.Minute
	defaultBatchConcurrency = 8

	cacheHit     = "hit"
	cacheMiss    = "miss"
	cacheExpired = "expired"
)

// Request is one channel pair plus the caller's priors.
type Request struct {
	AssistantContent   any    `json:"assistant_content" yaml:"assistant_content"`
	ToolContent        any    `json:"tool_content" yaml:"tool_content"`
	Success            bool   `json:"success" yaml:"success"`
	ToolTimestamp      string `json:"tool_timestamp,omitempty" yaml:"tool_timestamp,omitempty"`
	AssistantTimestamp string `json:"assistant_timestamp,omitempty" yaml:"assistant_timestamp,omitempty"`
}

func (r Request) prior() ask.Prior {
	return ask.Prior{
		Success:            r.Success,
		ToolTimestamp:      r.ToolTimestamp,
		AssistantTimestamp: r.AssistantTimestamp,
	}
}

// Config tunes the service. Zero values fall back to defaults.
type Config struct {
	MaxUnwrapDepth   int
	CacheSize        int
	CacheTTL         time.Duration
	BatchConcurrency int
}

type cacheEntry struct {
	record   ask.Record
	storedAt time.Time
}

// Service decodes ask records. It is safe for concurrent use.
type Service struct {
	decoder     *ask.Decoder
	cache       *lru.Cache[string, cacheEntry]
	ttl         time.Duration
	concurrency int

	metrics   *observability.DecodeMetrics
	tracer    *observability.TracerProvider
	logger    *observability.Logger
	decodeLog logging.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(metrics *observability.DecodeMetrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

func WithTracer(tracer *observability.TracerProvider) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func WithLogger(logger *observability.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDecodeLogger receives the decoder's per-channel diagnostics.
func WithDecodeLogger(logger logging.Logger) Option {
	return func(s *Service) { s.decodeLog = logging.OrNop(logger) }
}

// WithClock overrides time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service. A non-positive cache size disables caching.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	s := &Service{
		ttl:         cfg.CacheTTL,
		concurrency: cfg.BatchConcurrency,
		tracer:      observability.NoopTracerProvider(),
		logger:      observability.NopLogger(),
		decodeLog:   logging.Nop(),
		now:         time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultBatchConcurrency
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create decode cache: %w", err)
		}
		s.cache = cache
	}

	s.decoder = ask.NewDecoder(
		ask.WithLogger(s.decodeLog),
		ask.WithMaxUnwrapDepth(cfg.MaxUnwrapDepth),
		ask.WithParseFallbackHook(s.metrics.RecordParseFallback),
	)
	return s, nil
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		MaxUnwrapDepth:   8,
		CacheSize:        defaultCacheSize,
		CacheTTL:         defaultCacheTTL,
		BatchConcurrency: defaultBatchConcurrency,
	}
}

// Decode reconciles one request. The only error is ctx's.
func (s *Service) Decode(ctx context.Context, req Request) (ask.Record, error) {
	if err := ctx.Err(); err != nil {
		return ask.Record{}, err
	}
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanDecode)
	defer span.End()

	rec, hit := s.decode(ctx, req)
	span.SetAttributes(observability.DecodeAttrs(string(rec.Source), hit)...)
	return rec, nil
}

// DecodeBatch decodes every request with bounded concurrency. Records are
// returned in request order. A cancelled ctx stops the batch.
func (s *Service) DecodeBatch(ctx context.Context, reqs []Request) ([]ask.Record, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanDecodeBatch, observability.BatchAttrs(len(reqs))...)
	defer span.End()

	records := make([]ask.Record, len(reqs))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i := range reqs {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i], _ = s.decode(gctx, reqs[i])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		span.SetAttributes(observability.ErrorAttrs(err)...)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	s.logger.DebugContext(ctx, "decoded batch", "items", len(reqs))
	return records, nil
}

func (s *Service) decode(ctx context.Context, req Request) (rec ask.Record, hit bool) {
	key := s.cacheKey(req)
	if cached, ok := s.lookup(key); ok {
		logging.WithLogID(s.decodeLog, observability.RequestIDFromContext(ctx)).
			Debug("decode cache hit (source=%s)", cached.Source)
		return cached, true
	}

	start := s.now()
	rec = s.decodeSafely(ctx, req)
	s.metrics.RecordDecode(string(rec.Source), s.now().Sub(start))

	if s.cache != nil && key != "" {
		s.cache.Add(key, cacheEntry{record: cloneRecord(rec), storedAt: s.now()})
	}
	return rec, false
}

// decodeSafely degrades a panic to an empty record carrying the priors.
func (s *Service) decodeSafely(ctx context.Context, req Request) (rec ask.Record) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "ask decode panicked", "panic", fmt.Sprint(r))
			prior := req.prior()
			rec = ask.Record{
				Success:            prior.Success,
				ToolTimestamp:      prior.ToolTimestamp,
				AssistantTimestamp: prior.AssistantTimestamp,
				Source:             ask.SourceEmpty,
			}
		}
	}()
	return s.decoder.Decode(req.AssistantContent, req.ToolContent, req.prior())
}

func (s *Service) lookup(key string) (ask.Record, bool) {
	if s.cache == nil || key == "" {
		return ask.Record{}, false
	}
	entry, ok := s.cache.Get(key)
	if !ok {
		s.metrics.RecordCacheLookup(cacheMiss)
		return ask.Record{}, false
	}
	if s.now().Sub(entry.storedAt) > s.ttl {
		s.cache.Remove(key)
		s.metrics.RecordCacheLookup(cacheExpired)
		return ask.Record{}, false
	}
	s.metrics.RecordCacheLookup(cacheHit)
	return cloneRecord(entry.record), true
}

// cacheKey digests the request's JSON form together with the Go type of
// each channel, since a []byte and the string of its base64 text encode
// alike but decode differently. Requests that cannot be encoded, or whose
// channels nest non-JSON values, are not cached.
func (s *Service) cacheKey(req Request) string {
	if s.cache == nil || !plainJSON(req.AssistantContent) || !plainJSON(req.ToolContent) {
		return ""
	}
	encoded := jsonx.CompactString(req)
	if encoded == "" {
		return ""
	}
	h := sha256.New()
	fmt.Fprintf(h, "%T\x00%T\x00", req.AssistantContent, req.ToolContent)
	h.Write([]byte(encoded))
	return hex.EncodeToString(h.Sum(nil))
}

// plainJSON reports whether every value nested inside a channel is a type
// that JSON decoding itself produces. The channel value itself may be any
// type; its type is part of the key.
func plainJSON(channel any) bool {
	switch v := channel.(type) {
	case map[string]any:
		for _, item := range v {
			if !isJSONValue(item) {
				return false
			}
		}
	case []any:
		for _, item := range v {
			if !isJSONValue(item) {
				return false
			}
		}
	}
	return true
}

func isJSONValue(value any) bool {
	switch v := value.(type) {
	case nil, string, float64, bool:
		return true
	case map[string]any:
		for _, item := range v {
			if !isJSONValue(item) {
				return false
			}
		}
		return true
	case []any:
		for _, item := range v {
			if !isJSONValue(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func cloneRecord(rec ask.Record) ask.Record {
	if rec.Attachments != nil {
		rec.Attachments = append([]string(nil), rec.Attachments...)
	}
	return rec
}
