package service

import (
	"context"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContentService(f *progressionFixture) *ContentService {
	return NewContentService(repository.NewContentRepository(f.db), repository.NewProgressionRepository(f.db), f.svc)
}

func TestCourseProgress(t *testing.T) {
	f := newProgressionFixture(t)
	svc := newContentService(f)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CourseInput{
		Title:    "UPI Safety",
		Category: "payments",
		Tags:     []string{"upi", "basics"},
		Lessons: []LessonInput{
			{Title: "What is a collect request"},
			{Title: "Never share your PIN"},
		},
	})
	require.NoError(t, err)
	require.Len(t, course.Lessons, 2)
	assert.Equal(t, model.Beginner, course.Difficulty)

	res, err := svc.CompleteLesson(ctx, f.user.ID, course.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, res.XPResult.XPGained)

	_, err = svc.CompleteLesson(ctx, f.user.ID, "no-such-lesson")
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	detail, err := svc.GetCourse(ctx, f.user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.LessonCount)
	assert.Equal(t, 1, detail.CompletedLessons)
	assert.Equal(t, 50, detail.ProgressPercent)
	assert.True(t, detail.Lessons[0].Completed)
	assert.False(t, detail.Lessons[1].Completed)
	assert.False(t, detail.Completed)

	list, err := svc.ListCourses(ctx, f.user.ID, "payments")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 50, list[0].ProgressPercent)

	list, err = svc.ListCourses(ctx, f.user.ID, "investing")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.GetCourse(ctx, f.user.ID, "missing")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestSubmitQuiz(t *testing.T) {
	f := newProgressionFixture(t)
	svc := newContentService(f)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(ctx, QuizInput{
		Title:      "Spot the phish",
		Difficulty: "intermediate",
		Questions: []QuestionInput{
			{Prompt: "Bank asks for OTP by phone", Options: []string{"Share", "Hang up"}, CorrectIndex: 1},
			{Prompt: "Official bank domain", Options: []string{"sbi.co.in", "sbi-kyc.top"}, CorrectIndex: 0},
		},
	})
	require.NoError(t, err)

	sub, err := svc.SubmitQuiz(ctx, f.user.ID, quiz.ID, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 100, sub.Score)
	assert.Equal(t, 2, sub.Correct)
	require.NotNil(t, sub.Progression)
	assert.Equal(t, 50, sub.Progression.XPResult.XPGained)

	// 重复提交仍然评分但不发放 XP
	sub, err = svc.SubmitQuiz(ctx, f.user.ID, quiz.ID, []int{0})
	require.NoError(t, err)
	assert.True(t, sub.AlreadyCompleted)
	assert.Nil(t, sub.Progression)
	assert.Equal(t, 0, sub.Score)
	assert.Equal(t, -1, sub.Results[1].Selected)

	earned, err := f.badges.Earned(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, earned)
	for _, b := range earned {
		assert.Equal(t, 100, b.Score)
		assert.Equal(t, "intermediate", b.Difficulty)
	}

	_, err = svc.SubmitQuiz(ctx, f.user.ID, "missing", []int{0})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestCreateQuiz_Validation(t *testing.T) {
	f := newProgressionFixture(t)
	svc := newContentService(f)
	ctx := context.Background()

	_, err := svc.CreateQuiz(ctx, QuizInput{
		Title:     "Broken",
		Questions: []QuestionInput{{Prompt: "?", Options: []string{"a", "b"}, CorrectIndex: 2}},
	})
	assert.ErrorIs(t, err, util.ErrInvalidQuestion)

	_, err = svc.CreateQuiz(ctx, QuizInput{
		CourseID:  "missing",
		Title:     "Orphan",
		Questions: []QuestionInput{{Prompt: "?", Options: []string{"a", "b"}}},
	})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestSubmitScenarioChoice(t *testing.T) {
	f := newProgressionFixture(t)
	svc := newContentService(f)
	ctx := context.Background()

	scenario, err := svc.CreateScenario(ctx, ScenarioInput{
		Title:       "Courier customs call",
		Explanation: "Customs never asks for payment over the phone.",
		Choices: []ChoiceInput{
			{Label: "Pay the fee", Feedback: "That is how the scam works."},
			{Label: "Hang up and call the courier", IsSafe: true, Feedback: "Correct."},
		},
	})
	require.NoError(t, err)
	unsafe, safe := scenario.Choices[0], scenario.Choices[1]

	out, err := svc.SubmitScenarioChoice(ctx, f.user.ID, scenario.ID, unsafe.ID)
	require.NoError(t, err)
	assert.False(t, out.Safe)
	assert.Nil(t, out.Progression)
	assert.Empty(t, out.Explanation)
	assert.Equal(t, 0, f.view(t).Stats.ScenariosCompleted)

	out, err = svc.SubmitScenarioChoice(ctx, f.user.ID, scenario.ID, safe.ID)
	require.NoError(t, err)
	assert.True(t, out.Safe)
	require.NotNil(t, out.Progression)
	assert.Equal(t, 40, out.Progression.XPResult.XPGained)
	assert.Equal(t, []string{"Scam Spotter"}, badgeNames(out.Progression.BadgeResult))

	out, err = svc.SubmitScenarioChoice(ctx, f.user.ID, scenario.ID, safe.ID)
	require.NoError(t, err)
	assert.True(t, out.AlreadyCompleted)

	_, err = svc.SubmitScenarioChoice(ctx, f.user.ID, scenario.ID, "bogus")
	assert.ErrorIs(t, err, util.ErrInvalidChoice)
	_, err = svc.SubmitScenarioChoice(ctx, f.user.ID, "missing", safe.ID)
	assert.ErrorIs(t, err, util.ErrScenarioNotFound)
}
