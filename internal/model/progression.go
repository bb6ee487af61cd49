package model

import "time"

// CompletionKind 完成记录的类型
type CompletionKind string

const (
	KindCourse   CompletionKind = "course"
	KindLesson   CompletionKind = "lesson"
	KindQuiz     CompletionKind = "quiz"
	KindScenario CompletionKind = "scenario"
	KindTool     CompletionKind = "tool"
)

// Progression 每个用户一条的游戏化进度记录，首次访问时惰性创建
// swagger:model Progression
type Progression struct {
	BaseModel
	UserID             uint       `gorm:"uniqueIndex;not null" json:"userId"`
	XP                 int        `gorm:"not null;default:0" json:"xp"`
	Level              int        `gorm:"not null;default:1" json:"level"`
	Streak             int        `gorm:"not null;default:0" json:"streak"`
	LastLogin          *time.Time `json:"lastLogin"`
	CoursesCompleted   int        `gorm:"not null;default:0" json:"coursesCompleted"`
	LessonsCompleted   int        `gorm:"not null;default:0" json:"lessonsCompleted"`
	QuizzesCompleted   int        `gorm:"not null;default:0" json:"quizzesCompleted"`
	ScenariosCompleted int        `gorm:"not null;default:0" json:"scenariosCompleted"`
	ToolsUsed          int        `gorm:"not null;default:0" json:"toolsUsed"`
	PerfectQuizScores  int        `gorm:"not null;default:0" json:"perfectQuizScores"`
	LastBadgeEarned    *time.Time `json:"lastBadgeEarned"`
	// 乐观锁版本号，每次写入 +1
	Version int `gorm:"not null;default:0" json:"-"`
}

func (Progression) TableName() string {
	return "progressions"
}

// ProgressionStats 对外展示的计数器集合
type ProgressionStats struct {
	CoursesCompleted   int `json:"coursesCompleted"`
	LessonsCompleted   int `json:"lessonsCompleted"`
	QuizzesCompleted   int `json:"quizzesCompleted"`
	ScenariosCompleted int `json:"scenariosCompleted"`
	ToolsUsed          int `json:"toolsUsed"`
	PerfectQuizScores  int `json:"perfectQuizScores"`
}

func (p *Progression) Stats() ProgressionStats {
	return ProgressionStats{
		CoursesCompleted:   p.CoursesCompleted,
		LessonsCompleted:   p.LessonsCompleted,
		QuizzesCompleted:   p.QuizzesCompleted,
		ScenariosCompleted: p.ScenariosCompleted,
		ToolsUsed:          p.ToolsUsed,
		PerfectQuizScores:  p.PerfectQuizScores,
	}
}

// ProgressCompletion 完成集合中的一项。(user_id, kind, target_id, day) 唯一，
// day 仅对工具使用生效（按自然日去重），其他类型为空串
type ProgressCompletion struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_user_completion,priority:1" json:"userId"`
	Kind      CompletionKind `gorm:"size:20;not null;uniqueIndex:idx_user_completion,priority:2" json:"kind"`
	TargetID  string         `gorm:"size:100;not null;uniqueIndex:idx_user_completion,priority:3" json:"targetId"`
	Day       string         `gorm:"size:10;not null;default:'';uniqueIndex:idx_user_completion,priority:4" json:"day,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (ProgressCompletion) TableName() string {
	return "progress_completions"
}

// ActivityLog 只追加的活动流水
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_activity_user_time,priority:1" json:"-"`
	Action    string    `gorm:"size:50;not null" json:"action"`
	TargetID  string    `gorm:"size:100" json:"targetId"`
	XPGained  int       `gorm:"not null;default:0" json:"xpGained"`
	CreatedAt time.Time `gorm:"index:idx_activity_user_time,priority:2" json:"timestamp"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
