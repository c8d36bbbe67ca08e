package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/pollpulse/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PollRepo struct {
	pool *pgxpool.Pool
}

func NewPollRepo(pool *pgxpool.Pool) *PollRepo {
	return &PollRepo{pool: pool}
}

// Create persists the poll and its options in one transaction, so a
// failure partway through never leaves a poll without its option set.
func (r *PollRepo) Create(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO polls (id, title, start_date, end_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		poll.ID, poll.Title, poll.StartDate, poll.EndDate, poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	batch := &pgx.Batch{}
	for _, opt := range poll.Options {
		batch.Queue(
			`INSERT INTO poll_options (id, poll_id, text, position) VALUES ($1, $2, $3, $4)`,
			opt.ID, opt.PollID, opt.Text, opt.Position)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert options: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PollRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return getPoll(ctx, r.pool, id)
}

func getPoll(ctx context.Context, db dbtx, id uuid.UUID) (*domain.Poll, error) {
	var poll domain.Poll
	err := db.QueryRow(ctx,
		`SELECT id, title, start_date, end_date, created_at, updated_at
		 FROM polls WHERE id = $1`, id).
		Scan(&poll.ID, &poll.Title, &poll.StartDate, &poll.EndDate, &poll.CreatedAt, &poll.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	options, err := fetchOptions(ctx, db, id)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	return &poll, nil
}

// List returns all polls newest-first with their options in position order.
func (r *PollRepo) List(ctx context.Context) ([]*domain.Poll, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, start_date, end_date, created_at, updated_at
		 FROM polls ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var polls []*domain.Poll
	index := make(map[uuid.UUID]*domain.Poll)
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.Title, &poll.StartDate, &poll.EndDate, &poll.CreatedAt, &poll.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		poll.Options = []domain.Option{}
		polls = append(polls, &poll)
		index[poll.ID] = &poll
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT id, poll_id, text, position FROM poll_options ORDER BY poll_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt domain.Option
		if err := optRows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		if poll, ok := index[opt.PollID]; ok {
			poll.Options = append(poll.Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}

	return polls, nil
}

// Update applies a partial update and, when options are supplied,
// reconciles them against the stored option set. The whole sequence runs
// in one transaction with the poll row locked, so concurrent updates of
// the same poll serialize instead of interleaving their read-diff-write
// steps.
func (r *PollRepo) Update(ctx context.Context, id uuid.UUID, update domain.PollUpdate) (*domain.Poll, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var poll domain.Poll
	err = tx.QueryRow(ctx,
		`SELECT id, title, start_date, end_date, created_at, updated_at
		 FROM polls WHERE id = $1 FOR UPDATE`, id).
		Scan(&poll.ID, &poll.Title, &poll.StartDate, &poll.EndDate, &poll.CreatedAt, &poll.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock poll: %w", err)
	}

	if update.Title != nil {
		poll.Title = *update.Title
	}
	if update.StartDate != nil {
		poll.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		poll.EndDate = *update.EndDate
	}
	if !poll.StartDate.Before(poll.EndDate) {
		return nil, domain.ErrInvalidDates
	}

	_, err = tx.Exec(ctx,
		`UPDATE polls SET title = $2, start_date = $3, end_date = $4, updated_at = now()
		 WHERE id = $1`,
		poll.ID, poll.Title, poll.StartDate, poll.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	if update.Options != nil {
		if err := reconcileOptions(ctx, tx, id, update.Options); err != nil {
			return nil, err
		}
	}

	options, err := fetchOptions(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &poll, nil
}

// reconcileOptions applies the text-identity diff: options whose text
// survives keep their rows (and their votes), removed texts are deleted
// (cascading their votes), new texts are inserted.
func reconcileOptions(ctx context.Context, tx pgx.Tx, pollID uuid.UUID, proposed []string) error {
	existing, err := fetchOptions(ctx, tx, pollID)
	if err != nil {
		return err
	}

	plan := domain.Reconcile(existing, proposed)

	if len(plan.Deletes) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM poll_options WHERE id = ANY($1)`, plan.Deletes); err != nil {
			return fmt.Errorf("failed to delete removed options: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, move := range plan.Repositions {
		batch.Queue(`UPDATE poll_options SET position = $2 WHERE id = $1`, move.ID, move.Position)
	}
	for _, create := range plan.Creates {
		batch.Queue(
			`INSERT INTO poll_options (id, poll_id, text, position) VALUES ($1, $2, $3, $4)`,
			uuid.New(), pollID, create.Text, create.Position)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to apply option reconciliation: %w", err)
		}
	}

	return nil
}

func (r *PollRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

func (r *PollRepo) GetOption(ctx context.Context, optionID uuid.UUID) (*domain.Option, error) {
	var opt domain.Option
	err := r.pool.QueryRow(ctx,
		`SELECT id, poll_id, text, position FROM poll_options WHERE id = $1`, optionID).
		Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get option: %w", err)
	}
	return &opt, nil
}

func fetchOptions(ctx context.Context, db dbtx, pollID uuid.UUID) ([]domain.Option, error) {
	rows, err := db.Query(ctx,
		`SELECT id, poll_id, text, position FROM poll_options
		 WHERE poll_id = $1 ORDER BY position`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}
