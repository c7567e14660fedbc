// Package http exposes ask decoding over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"askview/internal/app/askview"
	"askview/internal/domain/ask"
	"askview/internal/observability"
	"askview/internal/shared/config"
)

const defaultMaxBodyBytes = 8 << 20

// AskDecoder is the service the handlers delegate to.
type AskDecoder interface {
	Decode(ctx context.Context, req askview.Request) (ask.Record, error)
	DecodeBatch(ctx context.Context, reqs []askview.Request) ([]ask.Record, error)
}

// Deps carries the server's collaborators. Nil observability members fall
// back to no-ops.
type Deps struct {
	Decoder     AskDecoder
	Logger      *observability.Logger
	Metrics     *observability.MetricsCollector
	Tracer      *observability.TracerProvider
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Version     string
}

// Server serves the ask decode API.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	decoder      AskDecoder
	logger       *observability.Logger
	metrics      *observability.MetricsCollector
	maxBatch     int
	maxBodyBytes int64
	version      string
	startTime    time.Time
}

func NewServer(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Decoder == nil {
		return nil, errors.New("http server requires a decoder")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.NoopTracerProvider()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(tracingMiddleware(deps.Tracer))
	engine.Use(accessLogMiddleware(deps.Logger, deps.Metrics))

	if cfg.EnableCORS {
		corsConfig := cors.DefaultConfig()
		if len(cfg.AllowedOrigins) == 0 || containsWildcard(cfg.AllowedOrigins) {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.AllowedOrigins
		}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", requestIDHeader}
		corsConfig.ExposeHeaders = []string{requestIDHeader}
		engine.Use(cors.New(corsConfig))
	}

	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = config.Default().Server.MaxBatch
	}

	s := &Server{
		engine:       engine,
		decoder:      deps.Decoder,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		maxBatch:     maxBatch,
		maxBodyBytes: defaultMaxBodyBytes,
		version:      deps.Version,
		startTime:    time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.setupRoutes(deps)
	return s, nil
}

func (s *Server) setupRoutes(deps Deps) {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	askViews := api.Group("/tool-views/ask")
	{
		askViews.POST("/decode", s.handleDecode)
		askViews.POST("/decode/batch", s.handleDecodeBatch)
	}

	if deps.Gatherer != nil && deps.MetricsPath != "" {
		s.engine.GET(deps.MetricsPath, gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting askview server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping askview server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
