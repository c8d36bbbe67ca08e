package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/pollpulse/internal/domain"
)

func TestVoteRepo_CountByPoll_IncludesZeroVoteOptions(t *testing.T) {
	pool := setupTestDB(t)
	pollRepo := NewPollRepo(pool)
	voteRepo := NewVoteRepo(pool)
	ctx := context.Background()

	poll := makePoll("colours", "red", "green", "blue")
	require.NoError(t, pollRepo.Create(ctx, poll))

	redID := poll.Options[0].ID
	for range 2 {
		vote := &domain.Vote{ID: uuid.New(), OptionID: redID, CreatedAt: time.Now().UTC()}
		require.NoError(t, voteRepo.Insert(ctx, vote))
	}

	results, err := voteRepo.CountByPoll(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, domain.OptionResult{Text: "red", Votes: 2}, results[redID])
	assert.Equal(t, domain.OptionResult{Text: "green", Votes: 0}, results[poll.Options[1].ID])
	assert.Equal(t, domain.OptionResult{Text: "blue", Votes: 0}, results[poll.Options[2].ID])
}

func TestVoteRepo_CountByPoll_UnknownPollIsEmpty(t *testing.T) {
	pool := setupTestDB(t)
	voteRepo := NewVoteRepo(pool)

	results, err := voteRepo.CountByPoll(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVoteRepo_ConcurrentInsertsAllLand(t *testing.T) {
	pool := setupTestDB(t)
	pollRepo := NewPollRepo(pool)
	voteRepo := NewVoteRepo(pool)
	ctx := context.Background()

	poll := makePoll("busy", "a", "b", "c")
	require.NoError(t, pollRepo.Create(ctx, poll))

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := range voters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vote := &domain.Vote{
				ID:        uuid.New(),
				OptionID:  poll.Options[i%3].ID,
				CreatedAt: time.Now().UTC(),
			}
			errs <- voteRepo.Insert(ctx, vote)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	results, err := voteRepo.CountByPoll(ctx, poll.ID)
	require.NoError(t, err)

	var total int64
	for _, result := range results {
		total += result.Votes
	}
	assert.Equal(t, int64(voters), total, "every concurrent vote is counted exactly once")
}
