package repository

import (
	"context"
	"finguard_backend/internal/model"

	"gorm.io/gorm"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) ListCourses(ctx context.Context, category string) ([]model.Course, error) {
	var courses []model.Course
	query := r.DB.WithContext(ctx).Where("published = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("sort_order ASC, created_at ASC").Find(&courses).Error
	return courses, err
}

func (r *ContentRepository) FindCourse(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// LessonIDsByCourse 每门课程下的课时 ID，用于计算课程完成百分比
func (r *ContentRepository) LessonIDsByCourse(ctx context.Context, courseIDs []string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(courseIDs) == 0 {
		return out, nil
	}
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Select("id", "course_id").
		Where("course_id IN ?", courseIDs).
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		out[l.CourseID] = append(out[l.CourseID], l.ID)
	}
	return out, nil
}

func (r *ContentRepository) FindLesson(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *ContentRepository) FindQuiz(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *ContentRepository) ListQuizzes(ctx context.Context, courseID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	query := r.DB.WithContext(ctx)
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("created_at ASC").Find(&quizzes).Error
	return quizzes, err
}

func (r *ContentRepository) FindScenario(ctx context.Context, id string) (*model.Scenario, error) {
	var scenario model.Scenario
	err := r.DB.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&scenario).Error
	if err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (r *ContentRepository) ListScenarios(ctx context.Context, category string) ([]model.Scenario, error) {
	var scenarios []model.Scenario
	query := r.DB.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("created_at ASC").Find(&scenarios).Error
	return scenarios, err
}

// CreateCourse 课程与其课时一并写入
func (r *ContentRepository) CreateCourse(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *ContentRepository) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *ContentRepository) CreateScenario(ctx context.Context, scenario *model.Scenario) error {
	return r.DB.WithContext(ctx).Create(scenario).Error
}
