package askview

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askview/internal/domain/ask"
	"askview/internal/observability"
)

const envelope = `{"tool_execution":{"arguments":{"text":"Proceed?","attachments":"plan.md"},"result":{"success":true},"execution_details":{"timestamp":"T9"}}}`

func newTestService(t *testing.T, cfg Config, opts ...Option) (*Service, *observability.DecodeMetrics) {
	t.Helper()
	metrics := observability.NewDecodeMetricsWithRegisterer(prometheus.NewRegistry())
	svc, err := NewService(cfg, append([]Option{WithMetrics(metrics)}, opts...)...)
	require.NoError(t, err)
	return svc, metrics
}

func TestServiceDecode(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())

	rec, err := svc.Decode(context.Background(), Request{AssistantContent: envelope, AssistantTimestamp: "prior"})
	require.NoError(t, err)

	assert.Equal(t, "Proceed?", rec.Text)
	assert.Equal(t, []string{"plan.md"}, rec.Attachments)
	assert.True(t, rec.Success)
	assert.Equal(t, "T9", rec.AssistantTimestamp)
	assert.Equal(t, ask.SourceAssistantEnvelope, rec.Source)
}

func TestServiceDecodeCancelled(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Decode(ctx, Request{AssistantContent: envelope})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, metrics := newTestService(t, Config{CacheSize: 4, CacheTTL: time.Minute}, WithClock(clock))
	req := Request{ToolContent: `<ask attachments="a.txt">Cached?</ask>`}

	first, err := svc.Decode(context.Background(), req)
	require.NoError(t, err)
	first.Attachments[0] = "mutated"

	second, err := svc.Decode(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, second.Attachments)

	now = now.Add(2 * time.Minute)
	_, err = svc.Decode(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups().WithLabelValues(cacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups().WithLabelValues(cacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups().WithLabelValues(cacheExpired)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Decodes().WithLabelValues(string(ask.SourceLegacy))))
}

func TestServiceCacheDisabled(t *testing.T) {
	svc, metrics := newTestService(t, Config{CacheSize: 0})

	for i := 0; i < 3; i++ {
		_, err := svc.Decode(context.Background(), Request{AssistantContent: envelope})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Decodes().WithLabelValues(string(ask.SourceAssistantEnvelope))))
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.CacheLookups()))
}

func TestServiceParseFallbackMetric(t *testing.T) {
	svc, metrics := newTestService(t, Config{})

	_, err := svc.Decode(context.Background(), Request{AssistantContent: "plain prose", ToolContent: "more prose"})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ParseFallbacks()))
}

func TestServiceDecodeBatchPreservesOrder(t *testing.T) {
	svc, _ := newTestService(t, Config{BatchConcurrency: 3, CacheSize: 16})

	reqs := make([]Request, 25)
	for i := range reqs {
		reqs[i] = Request{ToolContent: fmt.Sprintf("<ask>question %d</ask>", i), Success: i%2 == 0}
	}

	records, err := svc.DecodeBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, records, len(reqs))
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("question %d", i), rec.Text)
		assert.Equal(t, i%2 == 0, rec.Success)
	}
}

func TestServiceDecodeBatchCancelled(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.DecodeBatch(ctx, []Request{{AssistantContent: envelope}})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "decode batch"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceUncacheableRequest(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())

	rec, err := svc.Decode(context.Background(), Request{AssistantContent: make(chan int), Success: true})
	require.NoError(t, err)
	assert.True(t, rec.IsEmpty())
	assert.True(t, rec.Success)
}

func TestServiceCacheKeepsChannelTypesApart(t *testing.T) {
	raw := []byte(`{"tool_execution":{"arguments":{"text":"From bytes"}}}`)
	encoded := base64.StdEncoding.EncodeToString(raw)

	uncached, _ := newTestService(t, Config{CacheSize: 0})
	want, err := uncached.Decode(context.Background(), Request{AssistantContent: encoded})
	require.NoError(t, err)

	svc, metrics := newTestService(t, DefaultConfig())
	fromBytes, err := svc.Decode(context.Background(), Request{AssistantContent: raw})
	require.NoError(t, err)
	assert.Equal(t, "From bytes", fromBytes.Text)
	assert.Equal(t, ask.SourceAssistantEnvelope, fromBytes.Source)

	fromString, err := svc.Decode(context.Background(), Request{AssistantContent: encoded})
	require.NoError(t, err)
	assert.Equal(t, want, fromString)
	assert.NotEqual(t, "From bytes", fromString.Text)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CacheLookups().WithLabelValues(cacheHit)))
}

func TestServiceCacheKey(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())

	tests := []struct {
		name    string
		a, b    Request
		sameKey bool
	}{
		{
			name:    "identical requests",
			a:       Request{AssistantContent: envelope, Success: true},
			b:       Request{AssistantContent: envelope, Success: true},
			sameKey: true,
		},
		{
			name: "bytes and string",
			a:    Request{AssistantContent: []byte(envelope)},
			b:    Request{AssistantContent: envelope},
		},
		{
			name: "different priors",
			a:    Request{ToolContent: envelope, Success: true},
			b:    Request{ToolContent: envelope, Success: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyA, keyB := svc.cacheKey(tt.a), svc.cacheKey(tt.b)
			require.NotEmpty(t, keyA)
			require.NotEmpty(t, keyB)
			if tt.sameKey {
				assert.Equal(t, keyA, keyB)
			} else {
				assert.NotEqual(t, keyA, keyB)
			}
		})
	}

	nested := map[string]any{"role": "assistant", "content": []byte(envelope)}
	assert.Empty(t, svc.cacheKey(Request{AssistantContent: nested}))
	assert.NotEmpty(t, svc.cacheKey(Request{AssistantContent: map[string]any{"content": []any{"x", 1.0, true, nil}}}))
}
