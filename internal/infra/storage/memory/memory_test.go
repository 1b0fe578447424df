package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/storage"
)

func TestJournalRepo_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewJournalRepo(3)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, &domain.CommandRecord{
			ID:      fmt.Sprintf("cmd-%d", i),
			Action:  domain.ActionInit,
			Outcome: domain.OutcomeOK,
		}))
	}

	recs, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "cmd-4", recs[0].ID)
	assert.Equal(t, "cmd-2", recs[2].ID)

	recs, err = repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cmd-4", recs[0].ID)
}

func TestJournalRepo_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewJournalRepo(10)

	pose := domain.Pose{X: 1}
	rec := &domain.CommandRecord{ID: "a", Action: domain.ActionMove, Pose: &pose}
	require.NoError(t, repo.Record(ctx, rec))

	pose.X = 99
	rec.ID = "changed"

	recs, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, 1.0, recs[0].Pose.X)
}

func TestJournalRepo_RecentReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewJournalRepo(10)

	require.NoError(t, repo.Record(ctx, &domain.CommandRecord{
		ID:     "a",
		Action: domain.ActionMove,
		Pose:   &domain.Pose{X: 1},
	}))

	recs, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	recs[0].Pose.X = 99
	recs[0].Outcome = "tampered"

	recs, err = repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, recs[0].Pose.X)
	assert.Empty(t, recs[0].Outcome)
}

func TestJournalRepo_Closed(t *testing.T) {
	ctx := context.Background()
	repo := NewJournalRepo(0)
	require.NoError(t, repo.Close())

	assert.ErrorIs(t, repo.Record(ctx, &domain.CommandRecord{}), storage.ErrClosed)
	_, err := repo.Recent(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.Equal(t, "memory", repo.Driver())
}
