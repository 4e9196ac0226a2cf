// Package server exposes the connector to the hub over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hub-connectors/internal/common/config"
	"hub-connectors/internal/common/logger"
	"hub-connectors/internal/common/observability"
	"hub-connectors/internal/common/validation"
	"hub-connectors/internal/connectors"
	"hub-connectors/internal/dedup"
	"hub-connectors/pkg/registry"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IssueActions executes the actions attached to issue cards.
type IssueActions interface {
	Comment(ctx context.Context, issueKey, body string) error
	Watch(ctx context.Context, issueKey string) error
}

// Deps are the collaborators the handlers call into. Connectors and Logger
// are required; the rest are optional.
type Deps struct {
	Connectors *connectors.Registry
	// DefaultConnector serves POST /cards/requests.
	DefaultConnector string
	Actions          IssueActions
	Dedup            *dedup.Store
	Validator        *validation.CardValidator
	Discovery        *registry.Discovery
	Observability    *observability.Observability
	// Ready reports whether backing services are reachable.
	Ready  func(ctx context.Context) error
	Logger logger.Logger
}

type Server struct {
	echo    *echo.Echo
	cfg     config.ServerConfig
	baseURL string
	deps    Deps
	logger  logger.Logger
}

func New(cfg config.ServerConfig, baseURL string, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeoutDuration()
	e.Server.WriteTimeout = cfg.WriteTimeoutDuration()

	s := &Server{
		echo:    e,
		cfg:     cfg,
		baseURL: baseURL,
		deps:    deps,
		logger:  deps.Logger.WithFields(map[string]interface{}{"component": "server"}),
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.observe)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/ready", s.handleReady)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/discovery/metadata.json", s.handleDiscovery)

	s.echo.POST("/cards/requests", s.handleCardRequest)
	s.echo.POST("/connectors/:connector/cards/requests", s.handleCardRequest)

	s.echo.POST("/api/v1/issues/:key/comment", s.handleComment)
	s.echo.POST("/api/v1/issues/:key/watch", s.handleWatch)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.cfg.Address})
	if err := s.echo.Start(s.cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// observe records the duration of every request and logs failures.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		duration := time.Since(start)
		s.deps.Observability.RecordRequest(c.Request().Context(), c.Path(), status, duration)

		if status >= http.StatusInternalServerError {
			s.logger.Error("Request failed", map[string]interface{}{
				"method":    c.Request().Method,
				"path":      c.Path(),
				"status":    status,
				"requestId": c.Response().Header().Get(echo.HeaderXRequestID),
				"duration":  duration.String(),
				"error":     err,
			})
		}
		return nil
	}
}
