package service

import (
	"context"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/testutil"
	"finguard_backend/internal/util"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgeImport_KeepsInactiveFlag(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewBadgeService(repository.NewBadgeRepository(db))
	ctx := context.Background()

	specs := []BadgeSpec{
		{Name: "First Steps", Condition: "complete_first_course", XPReward: 10},
		{Name: "Retired", Condition: "complete_first_quiz", Inactive: true},
	}
	n, err := svc.Import(ctx, specs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := svc.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "First Steps", active[0].Name)

	all, err := svc.AllBadges(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[1].IsActive)

	// 再次导入时按名称更新，不产生重复
	specs[0].XPReward = 15
	specs[1].Inactive = false
	_, err = svc.Import(ctx, specs)
	require.NoError(t, err)

	all, err = svc.AllBadges(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 15, all[0].XPReward)
	assert.True(t, all[1].IsActive)
}

func TestBadgeImport_RejectsUnknownCondition(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewBadgeService(repository.NewBadgeRepository(db))

	_, err := svc.Import(context.Background(), []BadgeSpec{{Name: "Odd", Condition: "do_a_barrel_roll"}})
	assert.ErrorContains(t, err, "unknown condition")
}

func TestEnsureCatalog(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewBadgeService(repository.NewBadgeRepository(db))
	ctx := context.Background()

	require.NoError(t, svc.EnsureCatalog(ctx, filepath.Join(t.TempDir(), "missing.yaml")))
	all, err := svc.AllBadges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultBadgeCatalog()))

	// 已有目录时不再导入
	path := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte("badges:\n  - name: Extra\n    condition: use_first_tool\n"), 0o644))
	require.NoError(t, svc.EnsureCatalog(ctx, path))
	all, err = svc.AllBadges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultBadgeCatalog()))
}

func TestLoadBadgeCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badges.yaml")
	content := `badges:
  - name: Tool Explorer
    description: Use a security tool
    xpReward: 5
    condition: use_first_tool
    rarity: common
    requirements: ["Use any tool once"]
  - name: Hidden
    condition: streak_3_days
    inactive: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	specs, err := LoadBadgeCatalog(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, 5, specs[0].XPReward)
	assert.Equal(t, []string{"Use any tool once"}, specs[0].Requirements)
	assert.True(t, specs[1].Inactive)

	_, err = LoadBadgeCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetFavorite(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	_, err := f.badges.SetFavorite(ctx, f.user.ID, "First Steps", true)
	assert.ErrorIs(t, err, util.ErrBadgeNotEarned)

	_, err = f.badges.SetFavorite(ctx, f.user.ID, "No Such Badge", true)
	assert.ErrorIs(t, err, util.ErrBadgeNotFound)

	_, err = f.svc.CompleteCourse(ctx, f.user.ID, "c1")
	require.NoError(t, err)

	view, err := f.badges.SetFavorite(ctx, f.user.ID, "First Steps", true)
	require.NoError(t, err)
	assert.True(t, view.IsFavorite)
	assert.Equal(t, 10, view.XPReward)

	earned, err := f.badges.Earned(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.True(t, earned[0].IsFavorite)
}

func TestSetActive_UnknownBadge(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewBadgeService(repository.NewBadgeRepository(db))

	err := svc.SetActive(context.Background(), "Nope", false)
	assert.ErrorIs(t, err, util.ErrBadgeNotFound)
}
