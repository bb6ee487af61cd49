package service

import (
	"context"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/testutil"
	"finguard_backend/internal/util"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type progressionFixture struct {
	db     *gorm.DB
	svc    *ProgressionService
	badges *BadgeService
	user   *model.User
	now    time.Time
}

func newProgressionFixture(t *testing.T) *progressionFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t)

	badgeRepo := repository.NewBadgeRepository(db)
	f := &progressionFixture{
		db:     db,
		badges: NewBadgeService(badgeRepo),
		user:   testutil.CreateUser(t, db, "Asha"),
		now:    time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewProgressionService(repository.NewProgressionRepository(db), badgeRepo, repository.NewContentRepository(db), cfg)
	f.svc.Now = func() time.Time { return f.now }

	_, err := f.badges.Import(context.Background(), DefaultBadgeCatalog())
	require.NoError(t, err)
	return f
}

func (f *progressionFixture) view(t *testing.T) *ProgressionView {
	t.Helper()
	v, err := f.svc.GetProgression(context.Background(), f.user.ID)
	require.NoError(t, err)
	return v
}

func badgeNames(res BadgeResult) []string {
	names := make([]string, 0, len(res.NewBadges))
	for _, b := range res.NewBadges {
		names = append(names, b.Name)
	}
	return names
}

func TestGetProgression_CreatesDefaultRecord(t *testing.T) {
	f := newProgressionFixture(t)

	v := f.view(t)
	assert.Equal(t, 0, v.XP)
	assert.Equal(t, 1, v.Level)
	assert.Equal(t, 0, v.Streak)
	assert.Equal(t, 500, v.XPForNextLevel)
	assert.Empty(t, v.Completed.Courses)
	assert.Empty(t, v.EarnedBadges)
	assert.Nil(t, v.LastLogin)

	// 再次读取不会重复创建
	var count int64
	require.NoError(t, f.db.Model(&model.Progression{}).Where("user_id = ?", f.user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCompleteCourse_AwardsXPAndFirstBadge(t *testing.T) {
	f := newProgressionFixture(t)

	res, err := f.svc.CompleteCourse(context.Background(), f.user.ID, "budgeting-101")
	require.NoError(t, err)

	assert.Equal(t, 50, res.XPResult.XPGained)
	assert.Equal(t, 50, res.XPResult.TotalXP)
	assert.False(t, res.XPResult.LeveledUp)
	assert.Equal(t, []string{"First Steps"}, badgeNames(res.BadgeResult))
	assert.Equal(t, 10, res.BadgeResult.BonusXP)
	assert.Equal(t, 60, res.XP)
	assert.Equal(t, 1, res.Stats.CoursesCompleted)

	v := f.view(t)
	assert.Equal(t, 60, v.XP)
	assert.Equal(t, []string{"budgeting-101"}, v.Completed.Courses)
	assert.Equal(t, []string{"First Steps"}, v.EarnedBadges)
	assert.NotNil(t, v.LastBadgeEarned)
}

func TestCompleteCourse_DuplicateRejected(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteCourse(ctx, f.user.ID, "c1")
	require.NoError(t, err)

	_, err = f.svc.CompleteCourse(ctx, f.user.ID, "c1")
	assert.ErrorIs(t, err, util.ErrAlreadyCompleted)

	v := f.view(t)
	assert.Equal(t, 60, v.XP)
	assert.Equal(t, 1, v.Stats.CoursesCompleted)
}

func TestCompleteLesson(t *testing.T) {
	f := newProgressionFixture(t)

	res, err := f.svc.CompleteLesson(context.Background(), f.user.ID, "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, 10, res.XPResult.XPGained)
	assert.Equal(t, 1, res.Stats.LessonsCompleted)
	assert.Empty(t, res.BadgeResult.NewBadges)
}

func TestCompleteQuiz_PerfectScoreBonus(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	res, err := f.svc.CompleteQuiz(ctx, f.user.ID, "q1", 100)
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPResult.XPGained)
	assert.Equal(t, 1, res.Stats.PerfectQuizScores)
	assert.Equal(t, []string{"Quiz Beginner", "Perfect Score"}, badgeNames(res.BadgeResult))

	res, err = f.svc.CompleteQuiz(ctx, f.user.ID, "q2", 80)
	require.NoError(t, err)
	assert.Equal(t, 30, res.XPResult.XPGained)
	assert.Equal(t, 2, res.Stats.QuizzesCompleted)
	assert.Equal(t, 1, res.Stats.PerfectQuizScores)
}

func TestCompleteQuiz_InvalidScore(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	for _, score := range []int{-1, 101} {
		_, err := f.svc.CompleteQuiz(ctx, f.user.ID, "q1", score)
		assert.ErrorIs(t, err, util.ErrInvalidScore, "score=%d", score)
	}
	assert.Equal(t, 0, f.view(t).Stats.QuizzesCompleted)
}

func TestTenPerfectQuizzes(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		_, err := f.svc.CompleteQuiz(ctx, f.user.ID, fmt.Sprintf("quiz-%d", i), 100)
		require.NoError(t, err)
	}

	v := f.view(t)
	// 10 * 50 + 徽章奖励 10 + 20 + 25 + 50 + 50
	assert.Equal(t, 655, v.XP)
	assert.Equal(t, 2, v.Level)
	assert.ElementsMatch(t,
		[]string{"Quiz Beginner", "Perfect Score", "Quiz Enthusiast", "Quiz Champion", "Quiz Master"},
		v.EarnedBadges)
}

func TestCourseExplorerGrantedOnce(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	var granted []string
	for i := 1; i <= 7; i++ {
		res, err := f.svc.CompleteCourse(ctx, f.user.ID, fmt.Sprintf("course-%d", i))
		require.NoError(t, err)
		granted = append(granted, badgeNames(res.BadgeResult)...)
	}
	assert.Equal(t, []string{"First Steps", "Course Explorer"}, granted)

	var rows int64
	require.NoError(t, f.db.Model(&model.UserBadge{}).Where("user_id = ?", f.user.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
	assert.Equal(t, 7*50+10+50, f.view(t).XP)
}

func TestInactiveBadgeNotGranted(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.badges.SetActive(ctx, "First Steps", false))

	res, err := f.svc.CompleteCourse(ctx, f.user.ID, "c1")
	require.NoError(t, err)
	assert.Empty(t, res.BadgeResult.NewBadges)
	assert.Equal(t, 50, res.XP)
}

func TestUseTool_OncePerDay(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	res, err := f.svc.UseTool(ctx, f.user.ID, "url_analyzer")
	require.NoError(t, err)
	assert.Equal(t, 15, res.XPResult.XPGained)
	assert.Equal(t, []string{"Tool Explorer"}, badgeNames(res.BadgeResult))

	_, err = f.svc.UseTool(ctx, f.user.ID, "url_analyzer")
	assert.ErrorIs(t, err, util.ErrAlreadyCompleted)

	_, err = f.svc.UseTool(ctx, f.user.ID, "message_analyzer")
	require.NoError(t, err)

	f.now = f.now.Add(24 * time.Hour)
	_, err = f.svc.UseTool(ctx, f.user.ID, "url_analyzer")
	require.NoError(t, err)

	v := f.view(t)
	assert.Equal(t, 3, v.Stats.ToolsUsed)
	assert.Equal(t, []string{"message_analyzer", "url_analyzer"}, v.Completed.Tools)
}

func TestUseTool_EmptyName(t *testing.T) {
	f := newProgressionFixture(t)

	_, err := f.svc.UseTool(context.Background(), f.user.ID, "   ")
	assert.ErrorIs(t, err, util.ErrInvalidTool)
}

func TestRecordToolUse_IgnoresRepeat(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	assert.NotNil(t, f.svc.RecordToolUse(ctx, f.user.ID, util.ToolURLAnalyzer))
	assert.Nil(t, f.svc.RecordToolUse(ctx, f.user.ID, util.ToolURLAnalyzer))
}

func TestUpdateStreak(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	res, err := f.svc.UpdateStreak(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, "Streak updated", res.Message)
	assert.Equal(t, 10, res.XPResult.XPGained)

	// 同一天：不增加连续天数，但仍有 XP
	f.now = f.now.Add(3 * time.Hour)
	res, err = f.svc.UpdateStreak(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, "already counted today", res.Message)
	assert.Equal(t, 20, res.XP)

	f.now = f.now.Add(24 * time.Hour)
	res, err = f.svc.UpdateStreak(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)

	f.now = f.now.Add(24 * time.Hour)
	res, err = f.svc.UpdateStreak(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Streak)
	assert.Equal(t, []string{"Consistent Learner"}, badgeNames(res.BadgeResult))

	// 中断两天后重新从 1 开始
	f.now = f.now.Add(72 * time.Hour)
	res, err = f.svc.UpdateStreak(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)

	v := f.view(t)
	require.NotNil(t, v.LastLogin)
	assert.True(t, v.LastLogin.Equal(f.now))
}

func TestNextStreak(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	at := func(s string) *time.Time {
		tm, err := time.ParseInLocation(util.TimeFormat, s, ist)
		require.NoError(t, err)
		return &tm
	}

	tests := []struct {
		name      string
		streak    int
		lastLogin *time.Time
		now       string
		want      int
		counted   bool
	}{
		{"first login", 0, nil, "2024-03-10 09:00:00", 1, true},
		{"same day", 4, at("2024-03-10 00:10:00"), "2024-03-10 23:50:00", 4, false},
		{"next day across midnight", 4, at("2024-03-10 23:00:00"), "2024-03-11 00:30:00", 5, true},
		{"missed a day", 4, at("2024-03-10 09:00:00"), "2024-03-12 09:00:00", 1, true},
		{"clock went backwards", 4, at("2024-03-11 09:00:00"), "2024-03-10 09:00:00", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, counted := NextStreak(tt.streak, tt.lastLogin, *at(tt.now), ist)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.counted, counted)
		})
	}
}

func TestListActivity_NewestFirst(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, f.user.ID, "l1")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.CompleteCourse(ctx, f.user.ID, "c1")
	require.NoError(t, err)

	logs, err := f.svc.ListActivity(ctx, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, ActionBadgeEarned, logs[0].Action)
	assert.Equal(t, "First Steps", logs[0].TargetID)
	assert.Equal(t, ActionCourseCompleted, logs[1].Action)
	assert.Equal(t, ActionLessonCompleted, logs[2].Action)

	logs, err = f.svc.ListActivity(ctx, f.user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestConcurrentCompletions(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	// 先创建记录，避免首次创建与并发写混在一起
	f.view(t)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.CompleteLesson(ctx, f.user.ID, fmt.Sprintf("lesson-%d", i))
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			_, err := f.svc.CompleteScenario(ctx, f.user.ID, "phishing-call")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, util.ErrAlreadyCompleted):
			dup++
		}
	}
	assert.Equal(t, n+1, ok)
	assert.Equal(t, n-1, dup)

	v := f.view(t)
	assert.Equal(t, n, v.Stats.LessonsCompleted)
	assert.Equal(t, 1, v.Stats.ScenariosCompleted)
	// 课时 + 情景 + Lesson Learner(20) + Scam Spotter(10)
	assert.Equal(t, n*10+40+20+10, v.XP)
	assert.ElementsMatch(t, []string{"Scam Spotter", "Lesson Learner"}, v.EarnedBadges)
}

// 徽章奖励的 XP 跨过等级门槛时，等级徽章在下一次事件才发放
func TestBadgeXPLevelUpCaughtNextEvent(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	f.view(t)
	require.NoError(t, f.db.Model(&model.Progression{}).
		Where("user_id = ?", f.user.ID).
		Updates(map[string]interface{}{"xp": 1940, "level": 4}).Error)

	res, err := f.svc.CompleteCourse(ctx, f.user.ID, "budgeting-101")
	require.NoError(t, err)
	assert.Equal(t, 1990, res.XPResult.TotalXP)
	assert.Equal(t, []string{"First Steps"}, badgeNames(res.BadgeResult))
	assert.Equal(t, 2000, res.XP)
	assert.Equal(t, 5, res.Level)
	assert.NotContains(t, f.view(t).EarnedBadges, "Rising Star")

	res, err = f.svc.CompleteLesson(ctx, f.user.ID, "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rising Star"}, badgeNames(res.BadgeResult))
	assert.Equal(t, 2010, res.XP)
	assert.Equal(t, 5, res.Level)
}

func TestCompleteCourse_BadgeStorageFailureIsReported(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Migrator().DropTable(&model.UserBadge{}))

	_, err := f.svc.CompleteCourse(ctx, f.user.ID, "budgeting-101")
	require.Error(t, err)
	assert.NotErrorIs(t, err, util.ErrAlreadyCompleted)

	// 课程完成已提交，徽章未发放
	var p model.Progression
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).First(&p).Error)
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 1, p.CoursesCompleted)

	// 存储恢复后，下一次事件补发
	require.NoError(t, f.db.AutoMigrate(&model.UserBadge{}))
	res, err := f.svc.CompleteLesson(ctx, f.user.ID, "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"First Steps"}, badgeNames(res.BadgeResult))
	assert.Equal(t, 70, res.XP)
}
