package model

import "gorm.io/datatypes"

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Course 课程，包含若干课时
// swagger:model Course
type Course struct {
	UUIDBase
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"size:50;index" json:"category"`
	Difficulty  Difficulty     `gorm:"size:20;default:'beginner'" json:"difficulty"`
	Tags        datatypes.JSON `json:"tags"`
	CoverImage  string         `gorm:"size:255" json:"coverImage"`
	SortOrder   int            `gorm:"default:0" json:"sortOrder"`
	Published   bool           `gorm:"default:true" json:"published"`
	Lessons     []Lesson       `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Lesson
type Lesson struct {
	UUIDBase
	CourseID        string `gorm:"size:36;index;not null" json:"courseId"`
	Title           string `gorm:"size:200;not null" json:"title"`
	Content         string `gorm:"type:text" json:"content"`
	DurationMinutes int    `gorm:"default:5" json:"durationMinutes"`
	SortOrder       int    `gorm:"default:0" json:"sortOrder"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	CourseID    string         `gorm:"size:36;index" json:"courseId,omitempty"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Difficulty  Difficulty     `gorm:"size:20;default:'beginner'" json:"difficulty"`
	Questions   []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion Options 为 JSON 字符串数组，CorrectIndex 不会下发给客户端
type QuizQuestion struct {
	UUIDBase
	QuizID       string         `gorm:"size:36;index;not null" json:"quizId"`
	Prompt       string         `gorm:"type:text;not null" json:"prompt"`
	Options      datatypes.JSON `json:"options"`
	CorrectIndex int            `gorm:"not null" json:"-"`
	Explanation  string         `gorm:"type:text" json:"explanation,omitempty"`
	SortOrder    int            `gorm:"default:0" json:"sortOrder"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// Scenario 诈骗情景模拟，用户需要选出安全的应对方式
// swagger:model Scenario
type Scenario struct {
	UUIDBase
	Title       string           `gorm:"size:200;not null" json:"title"`
	Narrative   string           `gorm:"type:text" json:"narrative"`
	Category    string           `gorm:"size:50;index" json:"category"`
	Difficulty  Difficulty       `gorm:"size:20;default:'beginner'" json:"difficulty"`
	Explanation string           `gorm:"type:text" json:"explanation,omitempty"`
	Choices     []ScenarioChoice `gorm:"foreignKey:ScenarioID" json:"choices,omitempty"`
}

func (Scenario) TableName() string {
	return "scenarios"
}

type ScenarioChoice struct {
	UUIDBase
	ScenarioID string `gorm:"size:36;index;not null" json:"scenarioId"`
	Label      string `gorm:"size:255;not null" json:"label"`
	IsSafe     bool   `gorm:"default:false" json:"-"`
	Feedback   string `gorm:"type:text" json:"-"`
	SortOrder  int    `gorm:"default:0" json:"sortOrder"`
}

func (ScenarioChoice) TableName() string {
	return "scenario_choices"
}
