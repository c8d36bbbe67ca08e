package httpserver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/pollpulse/internal/adapter/metrics"
	"github.com/pscheid92/pollpulse/internal/broadcast"
	"github.com/pscheid92/pollpulse/internal/domain"
	"github.com/pscheid92/pollpulse/internal/platform/config"
)

// --- Mock implementations ---

type mockApp struct {
	listPollsFn  func(ctx context.Context) ([]*domain.Poll, error)
	getPollFn    func(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	createPollFn func(ctx context.Context, title string, startDate, endDate time.Time, options []string) (*domain.Poll, error)
	updatePollFn func(ctx context.Context, id uuid.UUID, update domain.PollUpdate) (*domain.Poll, error)
	deletePollFn func(ctx context.Context, id uuid.UUID) error
	voteFn       func(ctx context.Context, pollID, optionID uuid.UUID) (domain.Results, error)
	resultsFn    func(ctx context.Context, pollID uuid.UUID) (*domain.Poll, domain.Results, error)
}

func (m *mockApp) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	if m.listPollsFn != nil {
		return m.listPollsFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockApp) GetPoll(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	if m.getPollFn != nil {
		return m.getPollFn(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockApp) CreatePoll(ctx context.Context, title string, startDate, endDate time.Time, options []string) (*domain.Poll, error) {
	if m.createPollFn != nil {
		return m.createPollFn(ctx, title, startDate, endDate, options)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockApp) UpdatePoll(ctx context.Context, id uuid.UUID, update domain.PollUpdate) (*domain.Poll, error) {
	if m.updatePollFn != nil {
		return m.updatePollFn(ctx, id, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockApp) DeletePoll(ctx context.Context, id uuid.UUID) error {
	if m.deletePollFn != nil {
		return m.deletePollFn(ctx, id)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockApp) Vote(ctx context.Context, pollID, optionID uuid.UUID) (domain.Results, error) {
	if m.voteFn != nil {
		return m.voteFn(ctx, pollID, optionID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockApp) Results(ctx context.Context, pollID uuid.UUID) (*domain.Poll, domain.Results, error) {
	if m.resultsFn != nil {
		return m.resultsFn(ctx, pollID)
	}
	return nil, nil, fmt.Errorf("not implemented")
}

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		MaxWebSocketConnections: 16,
		VoteRateLimit:           1000,
		VoteRateBurst:           1000,
	}
}

func newTestServer(t *testing.T, app appService) *Server {
	t.Helper()
	return newTestServerWithConfig(t, app, testConfig())
}

func newTestServerWithConfig(t *testing.T, app appService, cfg *config.Config) *Server {
	t.Helper()

	// The hub needs a real clock: connection write deadlines are derived
	// from it, and a fake clock would put them in the past.
	hub := broadcast.NewHub(clockwork.NewRealClock(), cfg.MaxWebSocketConnections, nil)
	t.Cleanup(hub.Stop)

	return NewServer(cfg, app, hub, &mockPinger{}, clockwork.NewFakeClock(), metrics.NewRegistry())
}

func testPoll(clock clockwork.Clock) *domain.Poll {
	now := clock.Now()
	poll := &domain.Poll{
		ID:        uuid.New(),
		Title:     "lunch",
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, text := range []string{"pizza", "sushi", "salad"} {
		poll.Options = append(poll.Options, domain.Option{
			ID:       uuid.New(),
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		})
	}
	return poll
}
