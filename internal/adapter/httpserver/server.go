// Package httpserver exposes the poll API over HTTP and WebSocket.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/pollpulse/internal/broadcast"
	"github.com/pscheid92/pollpulse/internal/domain"
	"github.com/pscheid92/pollpulse/internal/platform/config"
)

// appService is the slice of the application layer the HTTP server needs.
type appService interface {
	ListPolls(ctx context.Context) ([]*domain.Poll, error)
	GetPoll(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	CreatePoll(ctx context.Context, title string, startDate, endDate time.Time, options []string) (*domain.Poll, error)
	UpdatePoll(ctx context.Context, id uuid.UUID, update domain.PollUpdate) (*domain.Poll, error)
	DeletePoll(ctx context.Context, id uuid.UUID) error
	Vote(ctx context.Context, pollID, optionID uuid.UUID) (domain.Results, error)
	Results(ctx context.Context, pollID uuid.UUID) (*domain.Poll, domain.Results, error)
}

// pinger is the minimal interface for the readiness database check.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       appService
	hub       *broadcast.Hub
	db        pinger
	clock     clockwork.Clock
	registry  *prometheus.Registry
	startTime time.Time
}

func NewServer(cfg *config.Config, app appService, hub *broadcast.Hub, db pinger, clock clockwork.Clock, registry *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       app,
		hub:       hub,
		db:        db,
		clock:     clock,
		registry:  registry,
		startTime: clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
