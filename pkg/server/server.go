// Package server exposes the surface pipeline over a JSON REST API built on
// echo.
//
// Routes:
//
//	POST /api/v1/surfaces         SurfaceRequest → Mesh (or OBJ with ?format=obj)
//	GET  /api/v1/normalize        ?expression= → normalization stages
//	GET  /api/v1/compile          ?expression= → canonical form and variables
//	POST /api/v1/assist           {"prompt"} → Suggestion, 204 when none
//	GET  /api/v1/systems          coordinate system domains
//	GET  /health                  liveness
//	GET  /metrics                 Prometheus metrics
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/sandrolain/gosurface/pkg/assistant"
	"github.com/sandrolain/gosurface/pkg/metrics"
	"github.com/sandrolain/gosurface/pkg/pipeline"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Server is the HTTP front end of a Pipeline.
type Server struct {
	echo      *echo.Echo
	pipeline  *pipeline.Pipeline
	assistant assistant.Assistant
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      Options
}

// Options configures a Server.
type Options struct {
	// BodyLimit is the maximum request body, in echo's size syntax ("64K").
	BodyLimit string
	// MaxResolution rejects larger surface requests.
	MaxResolution int
	// RateLimit enables per-client limiting when RPS > 0.
	RateLimit    rate.Limit
	RateBurst    int
	Assistant    assistant.Assistant
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Option configures a Server.
type Option func(*Options)

// WithBodyLimit sets the maximum request body size.
func WithBodyLimit(limit string) Option {
	return func(o *Options) {
		o.BodyLimit = limit
	}
}

// WithMaxResolution sets the largest accepted resolution.
func WithMaxResolution(n int) Option {
	return func(o *Options) {
		o.MaxResolution = n
	}
}

// WithRateLimit limits every client IP to rps requests per second with the
// given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Options) {
		o.RateLimit = rate.Limit(rps)
		o.RateBurst = burst
	}
}

// WithAssistant sets the assistant behind /api/v1/assist.
func WithAssistant(a assistant.Assistant) Option {
	return func(o *Options) {
		o.Assistant = a
	}
}

// WithMetrics enables /metrics and request error counting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTimeouts sets the HTTP server read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = read
		o.WriteTimeout = write
	}
}

// New creates a Server for p.
func New(p *pipeline.Pipeline, opts ...Option) *Server {
	options := Options{
		BodyLimit:     "64K",
		MaxResolution: 2000,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Assistant == nil {
		options.Assistant = assistant.NewCatalog()
	}

	s := &Server{
		echo:      echo.New(),
		pipeline:  p,
		assistant: options.Assistant,
		metrics:   options.Metrics,
		logger:    options.Logger,
		opts:      options,
	}
	s.configure()
	return s
}

func (s *Server) configure() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = s.opts.ReadTimeout
	e.Server.WriteTimeout = s.opts.WriteTimeout
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(s.opts.BodyLimit))
	if s.opts.RateLimit > 0 {
		e.Use(rateLimitMiddleware(newIPRateLimiter(s.opts.RateLimit, s.opts.RateBurst)))
		s.logger.Info("rate limiting enabled",
			"rps", float64(s.opts.RateLimit),
			"burst", s.opts.RateBurst)
	}

	e.GET("/health", s.health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api/v1")
	api.POST("/surfaces", s.generate)
	api.GET("/normalize", s.normalize)
	api.GET("/compile", s.compile)
	api.POST("/assist", s.assist)
	api.GET("/systems", s.systems)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// ipRateLimiter hands out one token bucket per client IP.
type ipRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

func newIPRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	if b < 1 {
		b = 1
	}
	return &ipRateLimiter{
		rate:  r,
		burst: b,
	}
}

func (i *ipRateLimiter) limiter(ip string) *rate.Limiter {
	if l, ok := i.limiters.Load(ip); ok {
		return l.(*rate.Limiter)
	}
	l, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return l.(*rate.Limiter)
}

func rateLimitMiddleware(rl *ipRateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.limiter(c.RealIP()).Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
