package repository

import (
	"context"
	"errors"
	"finguard_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressionRepository struct {
	DB *gorm.DB
}

func NewProgressionRepository(db *gorm.DB) *ProgressionRepository {
	return &ProgressionRepository{DB: db}
}

// LeaderboardRow 排行榜查询结果
type LeaderboardRow struct {
	UserID    uint
	FirstName string
	LastName  string
	Avatar    string
	XP        int
	Level     int
	Streak    int
}

// Transaction 在事务中执行 fn，fn 中通过 tx 调用 *Tx 方法
func (r *ProgressionRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// FindOrCreate 读取用户的进度记录，不存在则按零值创建。
// 并发创建时依赖 user_id 唯一索引，冲突方忽略插入后重新读取。
// 不在事务中调用，避免可重复读快照看不到对方刚提交的行
func (r *ProgressionRepository) FindOrCreate(ctx context.Context, userID uint) (*model.Progression, error) {
	db := r.DB.WithContext(ctx)
	var p model.Progression
	err := db.Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = model.Progression{UserID: userID, Level: 1}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}

	var fresh model.Progression
	if err := db.Where("user_id = ?", userID).First(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func (r *ProgressionRepository) FindByUserTx(tx *gorm.DB, userID uint) (*model.Progression, error) {
	var p model.Progression
	if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertCompletionTx 写入完成记录，已存在时返回 false
func (r *ProgressionRepository) InsertCompletionTx(tx *gorm.DB, c *model.ProgressCompletion) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SaveVersionedTx 以 version 作为比较条件写回进度（CAS），版本不一致时返回 false
func (r *ProgressionRepository) SaveVersionedTx(tx *gorm.DB, p *model.Progression, expectedVersion int) (bool, error) {
	res := tx.Model(&model.Progression{}).
		Where("id = ? AND version = ?", p.ID, expectedVersion).
		Updates(map[string]interface{}{
			"xp":                  p.XP,
			"level":               p.Level,
			"streak":              p.Streak,
			"last_login":          p.LastLogin,
			"courses_completed":   p.CoursesCompleted,
			"lessons_completed":   p.LessonsCompleted,
			"quizzes_completed":   p.QuizzesCompleted,
			"scenarios_completed": p.ScenariosCompleted,
			"tools_used":          p.ToolsUsed,
			"perfect_quiz_scores": p.PerfectQuizScores,
			"last_badge_earned":   p.LastBadgeEarned,
			"version":             expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	p.Version = expectedVersion + 1
	return true, nil
}

func (r *ProgressionRepository) AppendActivityTx(tx *gorm.DB, entry *model.ActivityLog) error {
	return tx.Create(entry).Error
}

func (r *ProgressionRepository) ListCompletions(ctx context.Context, userID uint) ([]model.ProgressCompletion, error) {
	var items []model.ProgressCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// CompletedTargets 返回某一类型下用户已完成的目标 ID 集合
func (r *ProgressionRepository) CompletedTargets(ctx context.Context, userID uint, kind model.CompletionKind, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(targetIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.ProgressCompletion{}).
		Where("user_id = ? AND kind = ? AND target_id IN ?", userID, kind, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *ProgressionRepository) ListActivity(ctx context.Context, userID uint, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// TopByXP 按 XP 降序的排行榜，XP 相同按 user_id 升序
func (r *ProgressionRepository) TopByXP(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).
		Table("progressions").
		Select("progressions.user_id, users.first_name, users.last_name, users.avatar, progressions.xp, progressions.level, progressions.streak").
		Joins("JOIN users ON users.id = progressions.user_id").
		Where("progressions.deleted_at IS NULL AND users.deleted_at IS NULL AND users.disabled = ?", false).
		Order("progressions.xp DESC, progressions.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
