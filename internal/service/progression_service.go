package service

import (
	"context"
	"errors"
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"finguard_backend/pkg/monitoring"
	"finguard_backend/pkg/tracing"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// 活动日志中的动作名称
const (
	ActionCourseCompleted   = "course_completed"
	ActionLessonCompleted   = "lesson_completed"
	ActionQuizCompleted     = "quiz_completed"
	ActionScenarioCompleted = "scenario_completed"
	ActionToolUsed          = "tool_used"
	ActionDailyLogin        = "daily_login"
	ActionBadgeEarned       = "badge_earned"
)

// maxCASRetries 版本冲突时整个事务的最大尝试次数
const maxCASRetries = 3

var errVersionConflict = errors.New("progression version conflict")

type XPResult struct {
	XPGained      int  `json:"xpGained"`
	TotalXP       int  `json:"totalXp"`
	Level         int  `json:"level"`
	PreviousLevel int  `json:"previousLevel"`
	LeveledUp     bool `json:"leveledUp"`
}

type EarnedBadge struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Color       string            `json:"color"`
	Rarity      model.BadgeRarity `json:"rarity"`
	Category    string            `json:"category"`
	XPReward    int               `json:"xpReward"`
	EarnedAt    time.Time         `json:"earnedAt"`
}

type BadgeResult struct {
	NewBadges []EarnedBadge `json:"newBadges"`
	BonusXP   int           `json:"bonusXp"`
}

// EventResult 一次完成事件的合并结果
type EventResult struct {
	Message     string                 `json:"message"`
	XPResult    XPResult               `json:"xpResult"`
	BadgeResult BadgeResult            `json:"badgeResult"`
	Stats       model.ProgressionStats `json:"stats"`
	XP          int                    `json:"xp"`
	Level       int                    `json:"level"`
}

type StreakResult struct {
	EventResult
	Streak int `json:"streak"`
}

type CompletedSets struct {
	Courses   []string `json:"courses"`
	Lessons   []string `json:"lessons"`
	Quizzes   []string `json:"quizzes"`
	Scenarios []string `json:"scenarios"`
	Tools     []string `json:"tools"`
}

// ProgressionView GET /progression 的返回体
type ProgressionView struct {
	XP                  int                    `json:"xp"`
	Level               int                    `json:"level"`
	Streak              int                    `json:"streak"`
	Stats               model.ProgressionStats `json:"stats"`
	Completed           CompletedSets          `json:"completed"`
	XPForNextLevel      int                    `json:"xpForNextLevel"`
	ProgressToNextLevel int                    `json:"progressToNextLevel"`
	LastLogin           *time.Time             `json:"lastLogin"`
	LastBadgeEarned     *time.Time             `json:"lastBadgeEarned"`
	EarnedBadges        []string               `json:"earnedBadges"`
}

// earnMeta 随徽章一起记录的获得时上下文
type earnMeta struct {
	score      int
	difficulty string
}

// progressEvent 描述对进度记录的一次修改
type progressEvent struct {
	action   string
	targetID string
	xp       int
	// claim 在事务内占位（完成记录或徽章），返回 false 表示重复
	claim     func(tx *gorm.DB) (bool, error)
	duplicate error
	apply     func(p *model.Progression)
}

type ProgressionService struct {
	Repo        *repository.ProgressionRepository
	BadgeRepo   *repository.BadgeRepository
	ContentRepo *repository.ContentRepository
	Location    *time.Location
	Now         func() time.Time
}

func NewProgressionService(
	repo *repository.ProgressionRepository,
	badgeRepo *repository.BadgeRepository,
	contentRepo *repository.ContentRepository,
	cfg *config.Config,
) *ProgressionService {
	return &ProgressionService{
		Repo:        repo,
		BadgeRepo:   badgeRepo,
		ContentRepo: contentRepo,
		Location:    cfg.Gamification.Location(),
		Now:         time.Now,
	}
}

func (s *ProgressionService) now() time.Time {
	return s.Now().In(s.Location)
}

// GetProgression 读取（必要时创建）用户进度以及完成集合
func (s *ProgressionService) GetProgression(ctx context.Context, userID uint) (*ProgressionView, error) {
	var (
		p           *model.Progression
		completions []model.ProgressCompletion
		badges      []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.Repo.FindOrCreate(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		completions, err = s.Repo.ListCompletions(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		badges, err = s.BadgeRepo.EarnedNames(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load progression: %w", err)
	}

	if badges == nil {
		badges = []string{}
	}
	return &ProgressionView{
		XP:                  p.XP,
		Level:               p.Level,
		Streak:              p.Streak,
		Stats:               p.Stats(),
		Completed:           groupCompletions(completions),
		XPForNextLevel:      XPForNextLevel(p.Level),
		ProgressToNextLevel: ProgressToNextLevel(p.XP),
		LastLogin:           p.LastLogin,
		LastBadgeEarned:     p.LastBadgeEarned,
		EarnedBadges:        badges,
	}, nil
}

func groupCompletions(items []model.ProgressCompletion) CompletedSets {
	sets := CompletedSets{
		Courses:   []string{},
		Lessons:   []string{},
		Quizzes:   []string{},
		Scenarios: []string{},
		Tools:     []string{},
	}
	seenTools := make(map[string]bool)
	for _, c := range items {
		switch c.Kind {
		case model.KindCourse:
			sets.Courses = append(sets.Courses, c.TargetID)
		case model.KindLesson:
			sets.Lessons = append(sets.Lessons, c.TargetID)
		case model.KindQuiz:
			sets.Quizzes = append(sets.Quizzes, c.TargetID)
		case model.KindScenario:
			sets.Scenarios = append(sets.Scenarios, c.TargetID)
		case model.KindTool:
			// 工具按天去重，这里只列出用过的工具名
			if !seenTools[c.TargetID] {
				seenTools[c.TargetID] = true
				sets.Tools = append(sets.Tools, c.TargetID)
			}
		}
	}
	sort.Strings(sets.Tools)
	return sets
}

func (s *ProgressionService) ListActivity(ctx context.Context, userID uint, limit int) ([]model.ActivityLog, error) {
	return s.Repo.ListActivity(ctx, userID, limit)
}

func (s *ProgressionService) completion(userID uint, kind model.CompletionKind, targetID, day string) func(tx *gorm.DB) (bool, error) {
	return func(tx *gorm.DB) (bool, error) {
		return s.Repo.InsertCompletionTx(tx, &model.ProgressCompletion{
			UserID:   userID,
			Kind:     kind,
			TargetID: targetID,
			Day:      day,
		})
	}
}

func (s *ProgressionService) CompleteCourse(ctx context.Context, userID uint, courseID string) (*EventResult, error) {
	return s.complete(ctx, userID, progressEvent{
		action:    ActionCourseCompleted,
		targetID:  courseID,
		xp:        XPCourse,
		claim:     s.completion(userID, model.KindCourse, courseID, ""),
		duplicate: util.ErrAlreadyCompleted,
		apply:     func(p *model.Progression) { p.CoursesCompleted++ },
	}, earnMeta{}, "Course completed")
}

func (s *ProgressionService) CompleteLesson(ctx context.Context, userID uint, lessonID string) (*EventResult, error) {
	return s.complete(ctx, userID, progressEvent{
		action:    ActionLessonCompleted,
		targetID:  lessonID,
		xp:        XPLesson,
		claim:     s.completion(userID, model.KindLesson, lessonID, ""),
		duplicate: util.ErrAlreadyCompleted,
		apply:     func(p *model.Progression) { p.LessonsCompleted++ },
	}, earnMeta{}, "Lesson completed")
}

// CompleteQuiz 基础 30 XP，满分额外 20 XP 并计入 perfectQuizScores
func (s *ProgressionService) CompleteQuiz(ctx context.Context, userID uint, quizID string, score int) (*EventResult, error) {
	if score < 0 || score > PerfectScore {
		return nil, util.ErrInvalidScore
	}
	perfect := score == PerfectScore
	xp := XPQuiz
	if perfect {
		xp += XPPerfectQuiz
	}

	meta := earnMeta{score: score}
	if s.ContentRepo != nil {
		if quiz, err := s.ContentRepo.FindQuiz(ctx, quizID); err == nil {
			meta.difficulty = string(quiz.Difficulty)
		}
	}

	return s.complete(ctx, userID, progressEvent{
		action:    ActionQuizCompleted,
		targetID:  quizID,
		xp:        xp,
		claim:     s.completion(userID, model.KindQuiz, quizID, ""),
		duplicate: util.ErrAlreadyCompleted,
		apply: func(p *model.Progression) {
			p.QuizzesCompleted++
			if perfect {
				p.PerfectQuizScores++
			}
		},
	}, meta, "Quiz completed")
}

func (s *ProgressionService) CompleteScenario(ctx context.Context, userID uint, scenarioID string) (*EventResult, error) {
	return s.complete(ctx, userID, progressEvent{
		action:    ActionScenarioCompleted,
		targetID:  scenarioID,
		xp:        XPScenario,
		claim:     s.completion(userID, model.KindScenario, scenarioID, ""),
		duplicate: util.ErrAlreadyCompleted,
		apply:     func(p *model.Progression) { p.ScenariosCompleted++ },
	}, earnMeta{}, "Scenario completed")
}

// UseTool 同一工具每个自然日只计一次
func (s *ProgressionService) UseTool(ctx context.Context, userID uint, toolName string) (*EventResult, error) {
	toolName = strings.TrimSpace(toolName)
	if toolName == "" {
		return nil, util.ErrInvalidTool
	}
	day := s.now().Format(util.DateFormat)
	return s.complete(ctx, userID, progressEvent{
		action:    ActionToolUsed,
		targetID:  toolName,
		xp:        XPTool,
		claim:     s.completion(userID, model.KindTool, toolName, day),
		duplicate: util.ErrAlreadyCompleted,
		apply:     func(p *model.Progression) { p.ToolsUsed++ },
	}, earnMeta{}, "Tool usage recorded")
}

// UpdateStreak 每日登录：同日不改变连续天数，但仍发放 10 XP
func (s *ProgressionService) UpdateStreak(ctx context.Context, userID uint) (*StreakResult, error) {
	var (
		counted bool
		streak  int
	)
	ev := progressEvent{
		action: ActionDailyLogin,
		xp:     XPDailyLogin,
		apply: func(p *model.Progression) {
			now := s.now()
			next, ok := NextStreak(p.Streak, p.LastLogin, now, s.Location)
			counted = ok
			if ok {
				p.Streak = next
				p.LastLogin = &now
			}
			streak = p.Streak
		},
	}

	res, err := s.complete(ctx, userID, ev, earnMeta{}, "")
	if err != nil {
		return nil, err
	}
	if counted {
		res.Message = "Streak updated"
	} else {
		res.Message = "already counted today"
	}
	return &StreakResult{EventResult: *res, Streak: streak}, nil
}

// NextStreak 按自然日计算新的连续天数；同一天返回 false
func NextStreak(streak int, lastLogin *time.Time, now time.Time, loc *time.Location) (int, bool) {
	if lastLogin == nil {
		return 1, true
	}
	gap := calendarDays(*lastLogin, now, loc)
	switch {
	case gap <= 0:
		return streak, false
	case gap == 1:
		return streak + 1, true
	default:
		return 1, true
	}
}

// calendarDays 两个时间点在 loc 时区下相差的自然日数
func calendarDays(from, to time.Time, loc *time.Location) int {
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// complete 应用事件，提交后进行一轮徽章评估
func (s *ProgressionService) complete(ctx context.Context, userID uint, ev progressEvent, meta earnMeta, message string) (*EventResult, error) {
	p, xpRes, err := s.applyEvent(ctx, userID, ev)
	if err != nil {
		return nil, err
	}

	badgeRes, updated, err := s.evaluateBadges(ctx, userID, p, meta)
	if err != nil {
		// 事件本身已提交；已发放的徽章各自随 XP 原子提交，其余的在下一次事件时重新评估
		return nil, fmt.Errorf("evaluate badges after %s: %w", ev.action, err)
	}
	if updated != nil {
		p = updated
	}

	return &EventResult{
		Message:     message,
		XPResult:    xpRes,
		BadgeResult: badgeRes,
		Stats:       p.Stats(),
		XP:          p.XP,
		Level:       p.Level,
	}, nil
}

// applyEvent 在一个事务中完成：占位、修改计数、版本校验写回、追加活动日志。
// 版本冲突时整体回滚并重试
func (s *ProgressionService) applyEvent(ctx context.Context, userID uint, ev progressEvent) (*model.Progression, XPResult, error) {
	ctx, span := tracing.StartSpan(ctx, "progression."+ev.action,
		attribute.Int64("user.id", int64(userID)),
		attribute.String("target.id", ev.targetID),
	)
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	if _, err := s.Repo.FindOrCreate(ctx, userID); err != nil {
		spanErr = err
		return nil, XPResult{}, fmt.Errorf("load progression: %w", err)
	}

	for attempt := 1; attempt <= maxCASRetries; attempt++ {
		var (
			saved     *model.Progression
			prevLevel int
		)
		err := s.Repo.Transaction(ctx, func(tx *gorm.DB) error {
			p, err := s.Repo.FindByUserTx(tx, userID)
			if err != nil {
				return err
			}

			if ev.claim != nil {
				ok, err := ev.claim(tx)
				if err != nil {
					return err
				}
				if !ok {
					return ev.duplicate
				}
			}

			expected := p.Version
			prevLevel = p.Level
			if ev.apply != nil {
				ev.apply(p)
			}
			p.XP += ev.xp
			p.Level = LevelForXP(p.XP)

			ok, err := s.Repo.SaveVersionedTx(tx, p, expected)
			if err != nil {
				return err
			}
			if !ok {
				return errVersionConflict
			}

			if err := s.Repo.AppendActivityTx(tx, &model.ActivityLog{
				UserID:    userID,
				Action:    ev.action,
				TargetID:  ev.targetID,
				XPGained:  ev.xp,
				CreatedAt: s.Now(),
			}); err != nil {
				return err
			}

			saved = p
			return nil
		})

		switch {
		case err == nil:
			if ev.xp > 0 {
				monitoring.XPAwarded.WithLabelValues(ev.action).Add(float64(ev.xp))
			}
			logger.Log.Debug("XP awarded",
				zap.Uint("userID", userID),
				zap.String("action", ev.action),
				zap.String("target", ev.targetID),
				zap.Int("xp", ev.xp),
				zap.Int("total", saved.XP),
			)
			return saved, XPResult{
				XPGained:      ev.xp,
				TotalXP:       saved.XP,
				Level:         saved.Level,
				PreviousLevel: prevLevel,
				LeveledUp:     saved.Level > prevLevel,
			}, nil
		case errors.Is(err, errVersionConflict):
			monitoring.CASConflicts.Inc()
			logger.Log.Debug("Progression version conflict, retrying",
				zap.Uint("userID", userID),
				zap.Int("attempt", attempt),
			)
			continue
		case ev.duplicate != nil && errors.Is(err, ev.duplicate):
			return nil, XPResult{}, err
		default:
			spanErr = err
			return nil, XPResult{}, fmt.Errorf("apply %s: %w", ev.action, err)
		}
	}

	spanErr = util.ErrConcurrentUpdate
	return nil, XPResult{}, util.ErrConcurrentUpdate
}

var errBadgeHeld = errors.New("badge already held")

// evaluateBadges 对事件后的计数器快照做一轮评估。
// 徽章自身奖励的 XP 不会触发新的评估，由下一次事件补上
func (s *ProgressionService) evaluateBadges(ctx context.Context, userID uint, p *model.Progression, meta earnMeta) (BadgeResult, *model.Progression, error) {
	result := BadgeResult{NewBadges: []EarnedBadge{}}

	catalog, err := s.BadgeRepo.ListActive(ctx)
	if err != nil {
		return result, nil, fmt.Errorf("list badges: %w", err)
	}
	held, err := s.BadgeRepo.EarnedBadgeIDs(ctx, userID)
	if err != nil {
		return result, nil, fmt.Errorf("load earned badges: %w", err)
	}

	snap := SnapshotOf(p)
	var latest *model.Progression
	for _, badge := range QualifyingBadges(catalog, held, snap) {
		earnedAt := s.Now()
		updated, _, err := s.applyEvent(ctx, userID, progressEvent{
			action:   ActionBadgeEarned,
			targetID: badge.Name,
			xp:       badge.XPReward,
			claim: func(tx *gorm.DB) (bool, error) {
				return s.BadgeRepo.GrantTx(tx, &model.UserBadge{
					UserID:     userID,
					BadgeID:    badge.ID,
					EarnedAt:   earnedAt,
					Score:      meta.score,
					Difficulty: meta.difficulty,
				})
			},
			duplicate: errBadgeHeld,
			apply: func(p *model.Progression) {
				p.LastBadgeEarned = &earnedAt
			},
		})
		if errors.Is(err, errBadgeHeld) {
			// 并发请求已发放
			continue
		}
		if err != nil {
			return result, latest, err
		}

		latest = updated
		monitoring.BadgesEarned.WithLabelValues(badge.Name).Inc()
		logger.Log.Info("Badge earned",
			zap.Uint("userID", userID),
			zap.String("badge", badge.Name),
			zap.Int("xpReward", badge.XPReward),
		)
		result.BonusXP += badge.XPReward
		result.NewBadges = append(result.NewBadges, EarnedBadge{
			Name:        badge.Name,
			Description: badge.Description,
			Icon:        badge.Icon,
			Color:       badge.Color,
			Rarity:      badge.Rarity,
			Category:    badge.Category,
			XPReward:    badge.XPReward,
			EarnedAt:    earnedAt,
		})
	}

	return result, latest, nil
}

// RecordToolUse 工具类接口的附带奖励，失败不影响工具本身的结果
func (s *ProgressionService) RecordToolUse(ctx context.Context, userID uint, tool string) *EventResult {
	res, err := s.UseTool(ctx, userID, tool)
	if errors.Is(err, util.ErrAlreadyCompleted) {
		return nil
	}
	if err != nil {
		logger.Log.Warn("Failed to record tool usage",
			zap.Uint("userID", userID),
			zap.String("tool", tool),
			zap.Error(err),
		)
		return nil
	}
	return res
}
