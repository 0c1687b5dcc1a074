package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/importer"
	"github.com/atlas-finance/wisebook/internal/logging"
	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/pipeline"
)

// Runner executes an import. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*model.Report, error)
}

// Server serves the import API.
type Server struct {
	runner        Runner
	registry      *importer.Registry
	logger        *zap.Logger
	gatherer      prometheus.Gatherer
	maxUploadSize int64
	engine        *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithMaxUploadSize caps the request body in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// New builds a Server and its routes.
func New(runner Runner, registry *importer.Registry, options ...Option) *Server {
	s := &Server{
		runner:        runner,
		registry:      registry,
		logger:        zap.NewNop(),
		gatherer:      prometheus.DefaultGatherer,
		maxUploadSize: 32 << 20,
	}
	for _, fn := range options {
		fn(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.POST("/imports", s.createImport)
	v1.GET("/imports/schema", s.reportSchema)
	v1.GET("/imports/formats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"formats": s.registry.Formats()})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
