// Package http exposes the planning engine over a JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/logging"
	"github.com/fyrsmithlabs/cadence/internal/orchestrator"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
	"github.com/fyrsmithlabs/cadence/internal/sanitize"
)

// Service is the engine surface the API serves.
type Service interface {
	GetDailyDecision(ctx context.Context, purpose orchestrator.Purpose, userID string, date time.Time) (*plan.Decision, error)
	GetWeeklyPlan(ctx context.Context, userID string) (*plan.WeeklyPlan, error)
	RegeneratePlan(ctx context.Context, userID string) (*plan.WeeklyPlan, error)
	MarkWorkoutComplete(ctx context.Context, userID, date string, fb plan.Feedback) (*plan.WeeklyPlan, error)
	MarkWorkoutMissed(ctx context.Context, userID, date string) (*plan.WeeklyPlan, error)
	EditDay(ctx context.Context, userID, date string, upd plan.DayUpdate) (*plan.WeeklyPlan, error)
	SaveProfile(ctx context.Context, p profile.Profile) error
	RecordLog(ctx context.Context, l profile.DailyLog) error
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	svc     Service
	logger  *logging.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// CORSOrigins lists allowed browser origins. Empty disables CORS
	// headers.
	CORSOrigins []string
	// Registry receives the HTTP metrics and backs /metrics. Nil uses the
	// process default registry.
	Registry *prometheus.Registry
	// Components report dependency state on /health, keyed by name.
	// Liveness never depends on them.
	Components map[string]func() string
}

// NewServer creates a new HTTP server.
func NewServer(svc Service, logger *logging.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}
	metrics, err := NewHTTPMetrics(reg, nil)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if len(cfg.CORSOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{DegradedHeader, echo.HeaderXRequestID},
		})
		// Pre runs before routing so preflight requests never reach the router.
		e.Pre(echo.WrapMiddleware(c.Handler))
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			if user := c.Param("user"); user != "" {
				ctx = logging.WithUserID(ctx, user)
			}
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				// Resolve the status before logging it.
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})
	e.Use(metrics.MetricsMiddleware())

	s := &Server{
		echo:    e,
		svc:     svc,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
	s.registerRoutes(gatherer)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	users := s.echo.Group("/api/v1/users/:user", s.validUser)
	users.GET("/decision", s.handleDecision)
	users.GET("/plan", s.handlePlan)
	users.POST("/plan/regenerate", s.handleRegenerate)
	users.POST("/days/:date/complete", s.handleComplete)
	users.POST("/days/:date/miss", s.handleMiss)
	users.PATCH("/days/:date", s.handleEditDay)
	users.PUT("/profile", s.handleSaveProfile)
	users.POST("/logs", s.handleRecordLog)
}

// validUser rejects malformed user ids before they reach storage keys.
func (s *Server) validUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := sanitize.UserID(c.Param("user")); err != nil {
			return s.fail(c, err)
		}
		return next(c)
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It blocks until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
