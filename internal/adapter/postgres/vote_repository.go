package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/pollpulse/internal/domain"
)

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// Insert appends one vote. Votes are never updated; concurrent inserts
// on the same option need no coordination beyond this single statement.
func (r *VoteRepo) Insert(ctx context.Context, vote *domain.Vote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO votes (id, option_id, created_at) VALUES ($1, $2, $3)`,
		vote.ID, vote.OptionID, vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// CountByPoll tallies votes per option at call time. Options with zero
// votes are included via the left join.
func (r *VoteRepo) CountByPoll(ctx context.Context, pollID uuid.UUID) (domain.Results, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.text, COUNT(v.id)
		 FROM poll_options o
		 LEFT JOIN votes v ON v.option_id = o.id
		 WHERE o.poll_id = $1
		 GROUP BY o.id, o.text
		 ORDER BY MIN(o.position)`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	results := make(domain.Results)
	for rows.Next() {
		var optionID uuid.UUID
		var result domain.OptionResult
		if err := rows.Scan(&optionID, &result.Text, &result.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		results[optionID] = result
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote counts: %w", err)
	}
	return results, nil
}
