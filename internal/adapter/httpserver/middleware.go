package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pollpulse/internal/platform/correlation"
)

// correlationMiddleware tags every request with a fresh correlation ID
// so all log lines for one request can be tied together.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
