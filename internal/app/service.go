package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/pollpulse/internal/adapter/metrics"
	"github.com/pscheid92/pollpulse/internal/domain"
	apperrors "github.com/pscheid92/pollpulse/internal/platform/errors"
)

// Service is the application layer. It is the only component that
// references multiple domain components and orchestrates all use cases:
// poll lifecycle, vote recording, and result fanout.
type Service struct {
	polls        domain.PollRepository
	votes        domain.VoteRepository
	publisher    domain.Publisher
	clock        clockwork.Clock
	voteMetrics  *metrics.VoteMetrics
	resultsGroup singleflight.Group
}

// NewService creates the application layer service.
// voteMetrics may be nil when metrics are not wired (tests).
func NewService(polls domain.PollRepository, votes domain.VoteRepository, publisher domain.Publisher, clock clockwork.Clock, voteMetrics *metrics.VoteMetrics) *Service {
	return &Service{
		polls:       polls,
		votes:       votes,
		publisher:   publisher,
		clock:       clock,
		voteMetrics: voteMetrics,
	}
}

// ListPolls returns all polls newest-first.
func (s *Service) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	return s.polls.List(ctx)
}

// GetPoll returns one poll with its options.
func (s *Service) GetPoll(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, id)
	if errors.Is(err, domain.ErrPollNotFound) {
		return nil, apperrors.NotFoundError("poll not found").WithField("poll_id", id.String())
	}
	return poll, err
}

// CreatePoll validates input, persists the poll atomically with its
// options, and notifies observers. Nothing is persisted on validation
// failure.
func (s *Service) CreatePoll(ctx context.Context, title string, startDate, endDate time.Time, options []string) (*domain.Poll, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.ValidationError("title must not be empty")
	}
	if !startDate.Before(endDate) {
		return nil, apperrors.ValidationError("start date must be before end date")
	}
	texts, err := normalizeOptions(options)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	poll := &domain.Poll{
		ID:        uuid.New(),
		Title:     title,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, text := range texts {
		poll.Options = append(poll.Options, domain.Option{
			ID:       uuid.New(),
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		})
	}

	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, apperrors.InternalError("failed to create poll", err)
	}

	s.publisher.PublishPollsUpdated()
	return poll, nil
}

// UpdatePoll applies a partial update. Fields left nil stay untouched;
// a supplied option list is reconciled against the stored one inside the
// repository's transaction. Observers are notified only after a
// successful commit.
func (s *Service) UpdatePoll(ctx context.Context, id uuid.UUID, update domain.PollUpdate) (*domain.Poll, error) {
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			return nil, apperrors.ValidationError("title must not be empty")
		}
		update.Title = &trimmed
	}
	if update.Options != nil {
		texts, err := normalizeOptions(update.Options)
		if err != nil {
			return nil, err
		}
		update.Options = texts
	}

	poll, err := s.polls.Update(ctx, id, update)
	switch {
	case errors.Is(err, domain.ErrPollNotFound):
		return nil, apperrors.NotFoundError("poll not found").WithField("poll_id", id.String())
	case errors.Is(err, domain.ErrInvalidDates):
		return nil, apperrors.ValidationError("start date must be before end date")
	case err != nil:
		return nil, apperrors.InternalError("failed to update poll", err)
	}

	s.publisher.PublishPollsUpdated()
	return poll, nil
}

// DeletePoll removes the poll, cascading to options and votes, and
// notifies observers.
func (s *Service) DeletePoll(ctx context.Context, id uuid.UUID) error {
	err := s.polls.Delete(ctx, id)
	switch {
	case errors.Is(err, domain.ErrPollNotFound):
		return apperrors.NotFoundError("poll not found").WithField("poll_id", id.String())
	case err != nil:
		return apperrors.InternalError("failed to delete poll", err)
	}

	s.publisher.PublishPollsUpdated()
	return nil
}

// Vote records one anonymous vote after checking, in order, that the
// poll exists, that the option exists and belongs to it, and that the
// poll is active right now. On success it pushes fresh results to all
// observers and returns them.
func (s *Service) Vote(ctx context.Context, pollID, optionID uuid.UUID) (domain.Results, error) {
	start := s.clock.Now()
	defer func() {
		if s.voteMetrics != nil {
			s.voteMetrics.ProcessingDuration.Observe(s.clock.Since(start).Seconds())
		}
	}()

	poll, err := s.polls.GetByID(ctx, pollID)
	if errors.Is(err, domain.ErrPollNotFound) {
		s.countVote("rejected_not_found")
		return nil, apperrors.NotFoundError("poll not found").WithField("poll_id", pollID.String())
	}
	if err != nil {
		s.countVote("error")
		return nil, apperrors.InternalError("failed to load poll", err)
	}

	option, err := s.polls.GetOption(ctx, optionID)
	if errors.Is(err, domain.ErrOptionNotFound) {
		s.countVote("rejected_not_found")
		return nil, apperrors.NotFoundError("option not found").WithField("option_id", optionID.String())
	}
	if err != nil {
		s.countVote("error")
		return nil, apperrors.InternalError("failed to load option", err)
	}
	if option.PollID != poll.ID {
		s.countVote("rejected_mismatch")
		return nil, apperrors.OptionMismatchError("option does not belong to this poll").
			WithField("poll_id", pollID.String()).
			WithField("option_id", optionID.String())
	}

	if status := poll.StatusAt(s.clock.Now()); status != domain.StatusActive {
		s.countVote("rejected_inactive")
		return nil, apperrors.PollInactiveError("poll is " + string(status)).
			WithField("poll_id", pollID.String()).
			WithField("status", string(status))
	}

	vote := &domain.Vote{ID: uuid.New(), OptionID: optionID, CreatedAt: s.clock.Now().UTC()}
	if err := s.votes.Insert(ctx, vote); err != nil {
		s.countVote("error")
		return nil, apperrors.InternalError("failed to record vote", err)
	}
	s.countVote("recorded")

	// Fanout is best-effort: the vote is durable at this point, so a
	// failed tally read must not fail the request.
	results, err := s.countResults(ctx, pollID)
	if err != nil {
		slog.Error("failed to compute results after vote", "poll_id", pollID.String(), "error", err)
		return domain.Results{}, nil
	}
	s.publisher.PublishVotesUpdated(pollID, results)

	return results, nil
}

// Results returns the poll and the current tally for every one of its
// options, including zero-vote options.
func (s *Service) Results(ctx context.Context, pollID uuid.UUID) (*domain.Poll, domain.Results, error) {
	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.countResults(ctx, pollID)
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to count votes", err)
	}
	return poll, results, nil
}

// countResults collapses concurrent tally reads for the same poll into
// one query. Under a vote burst every voter triggers a recount; the
// singleflight group turns that stampede into a single round trip whose
// result all callers share.
func (s *Service) countResults(ctx context.Context, pollID uuid.UUID) (domain.Results, error) {
	v, err, _ := s.resultsGroup.Do(pollID.String(), func() (any, error) {
		return s.votes.CountByPoll(ctx, pollID)
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.Results), nil
}

func (s *Service) countVote(result string) {
	if s.voteMetrics != nil {
		s.voteMetrics.VotesRecorded.WithLabelValues(result).Inc()
	}
}

// normalizeOptions trims each option text and enforces the minimum set
// size. Order is preserved; duplicates are allowed and resolved by the
// reconciliation diff on update.
func normalizeOptions(options []string) ([]string, error) {
	if len(options) < domain.MinOptions {
		return nil, apperrors.ValidationError(fmt.Sprintf("a poll needs at least %d options", domain.MinOptions))
	}
	texts := make([]string, len(options))
	for i, text := range options {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, apperrors.ValidationError("option text must not be empty")
		}
		texts[i] = trimmed
	}
	return texts, nil
}
