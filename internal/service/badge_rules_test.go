package service

import (
	"finguard_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionRule_Matches(t *testing.T) {
	snap := CounterSnapshot{CounterQuizzes: 5, CounterStreak: 3}

	assert.True(t, ConditionRule{CounterQuizzes, ">=", 5}.Matches(snap))
	assert.False(t, ConditionRule{CounterQuizzes, ">", 5}.Matches(snap))
	assert.True(t, ConditionRule{CounterStreak, "==", 3}.Matches(snap))
	assert.False(t, ConditionRule{CounterStreak, "<", 10}.Matches(snap), "unsupported comparator never matches")
	assert.False(t, ConditionRule{CounterCourses, ">=", 0}.Matches(snap), "missing counter never matches")
}

func TestDefaultCatalogConditionsAreKnown(t *testing.T) {
	specs := DefaultBadgeCatalog()
	require.Len(t, specs, 18)

	seen := make(map[string]bool)
	for _, spec := range specs {
		_, ok := LookupCondition(spec.Condition)
		assert.True(t, ok, "badge %q uses unknown condition %q", spec.Name, spec.Condition)
		assert.False(t, seen[spec.Name], "duplicate badge name %q", spec.Name)
		seen[spec.Name] = true
	}
	assert.Len(t, KnownConditions(), len(badgeConditions))
}

func TestQualifyingBadges(t *testing.T) {
	catalog := []model.Badge{
		{BaseModel: model.BaseModel{ID: 1}, Name: "First Steps", Condition: "complete_first_course", IsActive: true},
		{BaseModel: model.BaseModel{ID: 2}, Name: "Course Explorer", Condition: "complete_5_courses", IsActive: true},
		{BaseModel: model.BaseModel{ID: 3}, Name: "Quiz Beginner", Condition: "complete_first_quiz", IsActive: true},
		{BaseModel: model.BaseModel{ID: 4}, Name: "Retired", Condition: "complete_first_quiz", IsActive: false},
		{BaseModel: model.BaseModel{ID: 5}, Name: "Mystery", Condition: "no_such_condition", IsActive: true},
	}
	snap := SnapshotOf(&model.Progression{CoursesCompleted: 5, QuizzesCompleted: 1, Level: 1})

	got := QualifyingBadges(catalog, map[uint]bool{1: true}, snap)

	names := make([]string, 0, len(got))
	for _, b := range got {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"Course Explorer", "Quiz Beginner"}, names)
}
