package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pscheid92/pollpulse/internal/adapter/metrics"
	apperrors "github.com/pscheid92/pollpulse/internal/platform/errors"
)

func (s *Server) registerRoutes() {
	httpMetrics := metrics.NewHTTPMetrics(s.registry)

	s.echo.Use(correlationMiddleware)
	s.echo.Use(requestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.Secure())
	s.echo.Use(apperrors.Middleware(httpMetrics.ErrorsTotal))

	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))

	// Poll API
	api := s.echo.Group("/api")
	api.GET("/polls", s.handleListPolls)
	api.POST("/polls", s.handleCreatePoll)
	api.GET("/polls/:id", s.handleGetPoll)
	api.PUT("/polls/:id", s.handleUpdatePoll)
	api.DELETE("/polls/:id", s.handleDeletePoll)
	api.GET("/polls/:id/results", s.handleResults)
	api.POST("/polls/:id/vote", s.handleVote, s.voteRateLimiter())

	// Observer WebSocket
	s.echo.GET("/ws", s.handleWebSocket)
}

// requestLogger routes echo's request log through slog, one line per
// request with method, path, status, and latency.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.InfoContext(c.Request().Context(), "Request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	})
}
