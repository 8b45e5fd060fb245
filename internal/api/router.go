package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/api/handlers"
	"github.com/leozw/ssl-verifier/internal/api/middleware"
	"github.com/leozw/ssl-verifier/internal/core"
)

type Options struct {
	Mode      string
	JWTSecret string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

type Server struct {
	Router  *gin.Engine
	handler *handlers.Handler
	opts    Options
}

func NewServer(verifier handlers.BatchVerifier, reports handlers.ReportSource, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())

	server := &Server{
		Router:  router,
		handler: handlers.NewHandler(verifier, reports, logger),
		opts:    opts,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.handler.Health)
	if s.opts.Metrics != nil {
		s.Router.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}

	api := s.Router.Group("/api/v1")
	if s.opts.JWTSecret != "" {
		api.Use(middleware.AuthRequired(s.opts.JWTSecret))
	}
	{
		api.POST("/verify", s.handler.Verify)
		api.GET("/reports/last", s.handler.LastReport)
	}
}

// Reports tries each source in order and returns the first stored batch.
// A source that fails for any reason other than core.ErrNoReport does not
// stop the lookup.
type Reports []handlers.ReportSource

func (r Reports) Last(ctx context.Context) (*core.BatchResult, error) {
	var errs []error
	for _, src := range r {
		b, err := src.Last(ctx)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, core.ErrNoReport) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, core.ErrNoReport
}
