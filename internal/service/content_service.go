package service

import (
	"context"
	"encoding/json"
	"errors"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseSummary 课程及当前用户的完成进度
type CourseSummary struct {
	model.Course
	LessonCount      int  `json:"lessonCount"`
	CompletedLessons int  `json:"completedLessons"`
	ProgressPercent  int  `json:"progressPercent"`
	Completed        bool `json:"completed"`
}

type LessonView struct {
	model.Lesson
	Completed bool `json:"completed"`
}

type CourseDetail struct {
	CourseSummary
	Lessons []LessonView `json:"lessons"`
}

type QuestionResult struct {
	QuestionID   string `json:"questionId"`
	Selected     int    `json:"selected"`
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	Explanation  string `json:"explanation,omitempty"`
}

type QuizSubmission struct {
	QuizID      string           `json:"quizId"`
	Score       int              `json:"score"`
	Correct     int              `json:"correct"`
	Total       int              `json:"total"`
	Results     []QuestionResult `json:"results"`
	Progression *EventResult     `json:"progression,omitempty"`
	// 已完成过的测验仍然会评分，但不再发放 XP
	AlreadyCompleted bool `json:"alreadyCompleted"`
}

type ScenarioOutcome struct {
	ScenarioID       string       `json:"scenarioId"`
	ChoiceID         string       `json:"choiceId"`
	Safe             bool         `json:"safe"`
	Feedback         string       `json:"feedback"`
	Explanation      string       `json:"explanation,omitempty"`
	Progression      *EventResult `json:"progression,omitempty"`
	AlreadyCompleted bool         `json:"alreadyCompleted"`
}

type LessonInput struct {
	Title           string `json:"title" binding:"required"`
	Content         string `json:"content"`
	DurationMinutes int    `json:"durationMinutes"`
}

type CourseInput struct {
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Difficulty  string        `json:"difficulty"`
	Tags        []string      `json:"tags"`
	CoverImage  string        `json:"coverImage"`
	SortOrder   int           `json:"sortOrder"`
	Lessons     []LessonInput `json:"lessons"`
}

type QuestionInput struct {
	Prompt       string   `json:"prompt" binding:"required"`
	Options      []string `json:"options" binding:"required,min=2"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

type QuizInput struct {
	CourseID    string          `json:"courseId"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Difficulty  string          `json:"difficulty"`
	Questions   []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

type ChoiceInput struct {
	Label    string `json:"label" binding:"required"`
	IsSafe   bool   `json:"isSafe"`
	Feedback string `json:"feedback"`
}

type ScenarioInput struct {
	Title       string        `json:"title" binding:"required"`
	Narrative   string        `json:"narrative"`
	Category    string        `json:"category"`
	Difficulty  string        `json:"difficulty"`
	Explanation string        `json:"explanation"`
	Choices     []ChoiceInput `json:"choices" binding:"required,min=2,dive"`
}

type ContentService struct {
	Repo            *repository.ContentRepository
	ProgressionRepo *repository.ProgressionRepository
	Progression     *ProgressionService
}

func NewContentService(repo *repository.ContentRepository, progressionRepo *repository.ProgressionRepository, progression *ProgressionService) *ContentService {
	return &ContentService{
		Repo:            repo,
		ProgressionRepo: progressionRepo,
		Progression:     progression,
	}
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return done * 100 / total
}

func (s *ContentService) ListCourses(ctx context.Context, userID uint, category string) ([]CourseSummary, error) {
	courses, err := s.Repo.ListCourses(ctx, category)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	lessonsByCourse, err := s.Repo.LessonIDsByCourse(ctx, ids)
	if err != nil {
		return nil, err
	}
	var allLessons []string
	for _, l := range lessonsByCourse {
		allLessons = append(allLessons, l...)
	}
	doneLessons, err := s.ProgressionRepo.CompletedTargets(ctx, userID, model.KindLesson, allLessons)
	if err != nil {
		return nil, err
	}
	doneCourses, err := s.ProgressionRepo.CompletedTargets(ctx, userID, model.KindCourse, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		lessons := lessonsByCourse[c.ID]
		done := 0
		for _, id := range lessons {
			if doneLessons[id] {
				done++
			}
		}
		out = append(out, CourseSummary{
			Course:           c,
			LessonCount:      len(lessons),
			CompletedLessons: done,
			ProgressPercent:  percent(done, len(lessons)),
			Completed:        doneCourses[c.ID],
		})
	}
	return out, nil
}

func (s *ContentService) GetCourse(ctx context.Context, userID uint, id string) (*CourseDetail, error) {
	course, err := s.Repo.FindCourse(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	lessonIDs := make([]string, 0, len(course.Lessons))
	for _, l := range course.Lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	doneLessons, err := s.ProgressionRepo.CompletedTargets(ctx, userID, model.KindLesson, lessonIDs)
	if err != nil {
		return nil, err
	}
	doneCourse, err := s.ProgressionRepo.CompletedTargets(ctx, userID, model.KindCourse, []string{course.ID})
	if err != nil {
		return nil, err
	}

	lessons := make([]LessonView, 0, len(course.Lessons))
	done := 0
	for _, l := range course.Lessons {
		if doneLessons[l.ID] {
			done++
		}
		lessons = append(lessons, LessonView{Lesson: l, Completed: doneLessons[l.ID]})
	}
	course.Lessons = nil

	return &CourseDetail{
		CourseSummary: CourseSummary{
			Course:           *course,
			LessonCount:      len(lessons),
			CompletedLessons: done,
			ProgressPercent:  percent(done, len(lessons)),
			Completed:        doneCourse[course.ID],
		},
		Lessons: lessons,
	}, nil
}

// CompleteLesson 校验课时存在后记入进度
func (s *ContentService) CompleteLesson(ctx context.Context, userID uint, lessonID string) (*EventResult, error) {
	if _, err := s.Repo.FindLesson(ctx, lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	return s.Progression.CompleteLesson(ctx, userID, lessonID)
}

func (s *ContentService) ListQuizzes(ctx context.Context, courseID string) ([]model.Quiz, error) {
	return s.Repo.ListQuizzes(ctx, courseID)
}

// GetQuiz 返回题目，正确答案不会序列化
func (s *ContentService) GetQuiz(ctx context.Context, id string) (*model.Quiz, error) {
	quiz, err := s.Repo.FindQuiz(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

// SubmitQuiz 按题目顺序评分，得分 = 正确数 * 100 / 题目数
func (s *ContentService) SubmitQuiz(ctx context.Context, userID uint, quizID string, answers []int) (*QuizSubmission, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	sub := &QuizSubmission{
		QuizID:  quiz.ID,
		Total:   len(quiz.Questions),
		Results: make([]QuestionResult, 0, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		selected := -1
		if i < len(answers) {
			selected = answers[i]
		}
		ok := selected == q.CorrectIndex
		if ok {
			sub.Correct++
		}
		sub.Results = append(sub.Results, QuestionResult{
			QuestionID:   q.ID,
			Selected:     selected,
			Correct:      ok,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		})
	}
	sub.Score = percent(sub.Correct, sub.Total)

	res, err := s.Progression.CompleteQuiz(ctx, userID, quiz.ID, sub.Score)
	if errors.Is(err, util.ErrAlreadyCompleted) {
		sub.AlreadyCompleted = true
		return sub, nil
	}
	if err != nil {
		return nil, err
	}
	sub.Progression = res
	return sub, nil
}

func (s *ContentService) ListScenarios(ctx context.Context, category string) ([]model.Scenario, error) {
	return s.Repo.ListScenarios(ctx, category)
}

func (s *ContentService) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	scenario, err := s.Repo.FindScenario(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrScenarioNotFound
	}
	return scenario, err
}

// SubmitScenarioChoice 选中安全选项时才算完成情景
func (s *ContentService) SubmitScenarioChoice(ctx context.Context, userID uint, scenarioID, choiceID string) (*ScenarioOutcome, error) {
	scenario, err := s.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	var choice *model.ScenarioChoice
	for i := range scenario.Choices {
		if scenario.Choices[i].ID == choiceID {
			choice = &scenario.Choices[i]
			break
		}
	}
	if choice == nil {
		return nil, util.ErrInvalidChoice
	}

	out := &ScenarioOutcome{
		ScenarioID: scenario.ID,
		ChoiceID:   choice.ID,
		Safe:       choice.IsSafe,
		Feedback:   choice.Feedback,
	}
	if !choice.IsSafe {
		return out, nil
	}

	out.Explanation = scenario.Explanation
	res, err := s.Progression.CompleteScenario(ctx, userID, scenario.ID)
	if errors.Is(err, util.ErrAlreadyCompleted) {
		out.AlreadyCompleted = true
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Progression = res
	return out, nil
}

func jsonList(items []string) (datatypes.JSON, error) {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func difficultyOf(s string) model.Difficulty {
	switch model.Difficulty(s) {
	case model.Intermediate, model.Advanced:
		return model.Difficulty(s)
	default:
		return model.Beginner
	}
}

func (s *ContentService) CreateCourse(ctx context.Context, in CourseInput) (*model.Course, error) {
	tags, err := jsonList(in.Tags)
	if err != nil {
		return nil, err
	}
	course := &model.Course{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Difficulty:  difficultyOf(in.Difficulty),
		Tags:        tags,
		CoverImage:  in.CoverImage,
		SortOrder:   in.SortOrder,
		Published:   true,
	}
	for i, l := range in.Lessons {
		course.Lessons = append(course.Lessons, model.Lesson{
			Title:           l.Title,
			Content:         l.Content,
			DurationMinutes: l.DurationMinutes,
			SortOrder:       i + 1,
		})
	}
	if err := s.Repo.CreateCourse(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *ContentService) CreateQuiz(ctx context.Context, in QuizInput) (*model.Quiz, error) {
	if in.CourseID != "" {
		if _, err := s.Repo.FindCourse(ctx, in.CourseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrCourseNotFound
			}
			return nil, err
		}
	}
	quiz := &model.Quiz{
		CourseID:    in.CourseID,
		Title:       in.Title,
		Description: in.Description,
		Difficulty:  difficultyOf(in.Difficulty),
	}
	for i, q := range in.Questions {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d", util.ErrInvalidQuestion, i+1)
		}
		opts, err := jsonList(q.Options)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Prompt:       q.Prompt,
			Options:      opts,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
			SortOrder:    i + 1,
		})
	}
	if err := s.Repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *ContentService) CreateScenario(ctx context.Context, in ScenarioInput) (*model.Scenario, error) {
	scenario := &model.Scenario{
		Title:       in.Title,
		Narrative:   in.Narrative,
		Category:    in.Category,
		Difficulty:  difficultyOf(in.Difficulty),
		Explanation: in.Explanation,
	}
	for i, c := range in.Choices {
		scenario.Choices = append(scenario.Choices, model.ScenarioChoice{
			Label:     c.Label,
			IsSafe:    c.IsSafe,
			Feedback:  c.Feedback,
			SortOrder: i + 1,
		})
	}
	if err := s.Repo.CreateScenario(ctx, scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}
