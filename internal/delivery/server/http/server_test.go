package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askview/internal/app/askview"
	"askview/internal/domain/ask"
	"askview/internal/observability"
	"askview/internal/shared/config"
	jsonx "askview/internal/shared/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, mutate func(*config.ServerConfig, *Deps)) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc, err := askview.NewService(askview.DefaultConfig(),
		askview.WithMetrics(observability.NewDecodeMetricsWithRegisterer(reg)))
	require.NoError(t, err)

	cfg := config.Default().Server
	cfg.Debug = true
	deps := Deps{
		Decoder:     svc,
		Gatherer:    reg,
		MetricsPath: "/metrics",
		Version:     "test",
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	server, err := NewServer(cfg, deps)
	require.NoError(t, err)
	return server
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleDecode(t *testing.T) {
	server := newTestServer(t, nil)
	body := `{"assistant_content":{"tool_execution":{"arguments":{"text":"Ship it?","attachments":"a.md, b.md"},"result":{"success":true}}},"success":false,"tool_timestamp":"TT"}`

	resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	var rec ask.Record
	require.NoError(t, jsonx.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, "Ship it?", rec.Text)
	assert.Equal(t, []string{"a.md", "b.md"}, rec.Attachments)
	assert.True(t, rec.Success)
	assert.Equal(t, "TT", rec.ToolTimestamp)
	assert.Equal(t, ask.SourceAssistantEnvelope, rec.Source)
}

func TestHandleDecodeEmptyRecordUsesNulls(t *testing.T) {
	server := newTestServer(t, nil)

	resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode", `{"success":true}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"text":null,"attachments":null,"status":null,"success":true,"source":"empty"}`, resp.Body.String())
}

func TestHandleDecodeEchoesRequestID(t *testing.T) {
	server := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tool-views/ask/decode", strings.NewReader(`{}`))
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestHandleDecodeValidation(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "not json", body: `nope`, wantErr: "single JSON object"},
		{name: "wrong success type", body: `{"success":"yes"}`, wantErr: "/success"},
		{name: "unknown field", body: `{"prompt":"x"}`, wantErr: "invalid request"},
		{name: "array body", body: `[]`, wantErr: "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.Code)

			var payload errorResponse
			require.NoError(t, jsonx.Unmarshal(resp.Body.Bytes(), &payload))
			assert.False(t, payload.Success)
			assert.Contains(t, payload.Error, tt.wantErr)
		})
	}
}

func TestHandleDecodeBatch(t *testing.T) {
	metricsReg := prometheus.NewRegistry()
	collector, err := observability.NewMetricsCollector(observability.MetricsConfig{Enabled: true}, metricsReg)
	require.NoError(t, err)
	defer collector.Shutdown(context.Background())

	server := newTestServer(t, func(_ *config.ServerConfig, deps *Deps) { deps.Metrics = collector })
	body := `{"items":[
		{"tool_content":"<ask>first</ask>"},
		{"assistant_content":"{\"tool_execution\":{\"arguments\":{\"text\":\"second\"}}}"},
		{"success":true}
	]}`

	resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode/batch", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var payload batchResponse
	require.NoError(t, jsonx.Unmarshal(resp.Body.Bytes(), &payload))
	require.Len(t, payload.Records, 3)
	assert.Equal(t, "first", payload.Records[0].Text)
	assert.Equal(t, "second", payload.Records[1].Text)
	assert.True(t, payload.Records[2].IsEmpty())
	assert.True(t, payload.Records[2].Success)

	families, err := metricsReg.Gather()
	require.NoError(t, err)
	var batchSamples uint64
	var batchSum float64
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "askview_batch_items") {
			continue
		}
		for _, m := range family.GetMetric() {
			batchSamples += m.GetHistogram().GetSampleCount()
			batchSum += m.GetHistogram().GetSampleSum()
		}
	}
	assert.Equal(t, uint64(1), batchSamples)
	assert.Equal(t, 3.0, batchSum)
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger := observability.NewLogger(observability.LogConfig{Level: "debug", Format: "json", Output: &logs})
	server := newTestServer(t, func(_ *config.ServerConfig, deps *Deps) { deps.Logger = logger })

	req := httptest.NewRequest(http.MethodPost, "/api/tool-views/ask/decode", strings.NewReader(`{"success":"yes"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	out := logs.String()
	assert.Contains(t, out, `"msg":"request rejected"`)
	assert.Contains(t, out, `"msg":"http request"`)
	assert.Contains(t, out, `"request_id":"req-42"`)
}

func TestHandleDecodeBatchLimits(t *testing.T) {
	server := newTestServer(t, func(cfg *config.ServerConfig, _ *Deps) { cfg.MaxBatch = 2 })

	resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode/batch", `{"items":[{},{},{}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	resp = doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode/batch", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode/batch", `{"items":[{"success":1}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleDecodeBodyTooLarge(t *testing.T) {
	server := newTestServer(t, nil)
	server.maxBodyBytes = 16

	resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode", `{"assistant_content":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

type failingDecoder struct{ err error }

func (f failingDecoder) Decode(context.Context, askview.Request) (ask.Record, error) {
	return ask.Record{}, f.err
}

func (f failingDecoder) DecodeBatch(context.Context, []askview.Request) ([]ask.Record, error) {
	return nil, f.err
}

func TestHandleDecodeServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "internal", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout},
		{name: "cancelled", err: context.Canceled, wantStatus: 499},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, func(_ *config.ServerConfig, deps *Deps) {
				deps.Decoder = failingDecoder{err: tt.err}
			})
			resp := doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode/batch", `{"items":[{}]}`)
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	server := newTestServer(t, nil)

	resp := doRequest(t, server, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var health healthResponse
	require.NoError(t, jsonx.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	doRequest(t, server, http.MethodPost, "/api/tool-views/ask/decode", `{"tool_content":"<ask>q</ask>"}`)
	resp = doRequest(t, server, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `askview_decode_total{source="legacy"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/tool-views/ask/decode", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewServerRequiresDecoder(t *testing.T) {
	_, err := NewServer(config.Default().Server, Deps{})
	assert.Error(t, err)
}
