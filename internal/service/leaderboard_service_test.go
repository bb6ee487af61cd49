package service

import (
	"context"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardTop(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	bob := testutil.CreateUser(t, f.db, "Bob")
	cara := testutil.CreateUser(t, f.db, "Cara")

	// Asha: 60, Bob: 10, Cara: 60 + 50 + 10
	_, err := f.svc.CompleteCourse(ctx, f.user.ID, "c1")
	require.NoError(t, err)
	_, err = f.svc.CompleteLesson(ctx, bob.ID, "l1")
	require.NoError(t, err)
	for _, id := range []string{"c1", "c2"} {
		_, err = f.svc.CompleteCourse(ctx, cara.ID, id)
		require.NoError(t, err)
	}

	cfg := testutil.NewTestConfig(t)
	cfg.Gamification.LeaderboardMaxLimit = 2
	lb := NewLeaderboardService(repository.NewProgressionRepository(f.db), nil, cfg)

	entries, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2, "limit is capped by the configured maximum")

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Cara", entries[0].FirstName)
	assert.Equal(t, 110, entries[0].XP)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "Asha", entries[1].FirstName)
	assert.Equal(t, 60, entries[1].XP)
	assert.Equal(t, 1, entries[1].Level)
}
