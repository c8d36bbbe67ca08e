package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "http_errors_total"}, []string{"type"})
}

func serve(t *testing.T, mw echo.MiddlewareFunc, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(mw)
	e.GET("/", handler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestMiddleware_CountsStructuredErrors(t *testing.T) {
	counter := newCounter()
	rec := serve(t, Middleware(counter), func(echo.Context) error {
		return PollInactiveError("poll is ended")
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(string(TypePollInactive))))
}

func TestMiddleware_CountsEchoHTTPErrors(t *testing.T) {
	counter := newCounter()
	rec := serve(t, Middleware(counter), func(echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(string(TypeNotFound))))
}

func TestMiddleware_NilCounter(t *testing.T) {
	rec := serve(t, Middleware(nil), func(echo.Context) error {
		return ValidationError("bad input")
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
