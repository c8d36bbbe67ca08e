package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PollUpdate carries the fields of a partial poll update. Nil fields are
// left untouched. Options, when set, must already be validated (trimmed,
// non-empty, at least MinOptions entries); they are reconciled against
// the stored options inside the repository's transaction.
type PollUpdate struct {
	Title     *string
	StartDate *time.Time
	EndDate   *time.Time
	Options   []string
}

// PollRepository is the durable store for polls and their options.
// Deleting a poll cascades to its options and their votes.
type PollRepository interface {
	// Create persists the poll and all its options atomically.
	Create(ctx context.Context, poll *Poll) error
	// GetByID returns the poll with its options ordered by position,
	// or ErrPollNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Poll, error)
	// List returns all polls newest-first, options ordered by position.
	List(ctx context.Context) ([]*Poll, error)
	// Update applies the partial update and option reconciliation in a
	// single transaction that locks the poll row, serializing concurrent
	// updates of the same poll. Returns ErrPollNotFound or
	// ErrInvalidDates (merged dates out of order; nothing is applied).
	Update(ctx context.Context, id uuid.UUID, update PollUpdate) (*Poll, error)
	// Delete removes the poll, cascading to options and votes.
	// Returns ErrPollNotFound if no row was deleted.
	Delete(ctx context.Context, id uuid.UUID) error
	// GetOption resolves a single option or ErrOptionNotFound.
	GetOption(ctx context.Context, optionID uuid.UUID) (*Option, error)
}

// VoteRepository stores votes. Votes are append-only; they are removed
// only through the poll/option cascade.
type VoteRepository interface {
	Insert(ctx context.Context, vote *Vote) error
	// CountByPoll tallies votes per option for every option of the poll,
	// including options with zero votes.
	CountByPoll(ctx context.Context, pollID uuid.UUID) (Results, error)
}

// Publisher fans state-change notifications out to connected observers.
// Delivery is best-effort and fire-and-forget: implementations must never
// fail the write that triggered the notification.
type Publisher interface {
	// PublishPollsUpdated signals that the poll set changed; observers
	// re-fetch the list.
	PublishPollsUpdated()
	// PublishVotesUpdated pushes fresh results for one poll.
	PublishVotesUpdated(pollID uuid.UUID, results Results)
}
