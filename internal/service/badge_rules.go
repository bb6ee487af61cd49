package service

import (
	"finguard_backend/internal/model"
	"fmt"
)

// Counter 徽章条件可引用的计数器
type Counter string

const (
	CounterCourses       Counter = "coursesCompleted"
	CounterLessons       Counter = "lessonsCompleted"
	CounterQuizzes       Counter = "quizzesCompleted"
	CounterScenarios     Counter = "scenariosCompleted"
	CounterTools         Counter = "toolsUsed"
	CounterPerfectScores Counter = "perfectQuizScores"
	CounterStreak        Counter = "streak"
	CounterLevel         Counter = "level"
)

// ConditionRule 一条徽章条件：counter comparator threshold
type ConditionRule struct {
	Counter    Counter
	Comparator string
	Threshold  int
}

func (r ConditionRule) String() string {
	return fmt.Sprintf("%s %s %d", r.Counter, r.Comparator, r.Threshold)
}

// Matches 对快照求值
func (r ConditionRule) Matches(s CounterSnapshot) bool {
	v, ok := s[r.Counter]
	if !ok {
		return false
	}
	switch r.Comparator {
	case ">=":
		return v >= r.Threshold
	case ">":
		return v > r.Threshold
	case "==":
		return v == r.Threshold
	default:
		return false
	}
}

// badgeConditions 目录中 condition 名称到规则的映射。
// 新增徽章只需在这里加一行
var badgeConditions = map[string]ConditionRule{
	"complete_first_course":   {CounterCourses, ">=", 1},
	"complete_5_courses":      {CounterCourses, ">=", 5},
	"complete_10_courses":     {CounterCourses, ">=", 10},
	"complete_10_lessons":     {CounterLessons, ">=", 10},
	"complete_first_quiz":     {CounterQuizzes, ">=", 1},
	"complete_5_quizzes":      {CounterQuizzes, ">=", 5},
	"complete_10_quizzes":     {CounterQuizzes, ">=", 10},
	"perfect_quiz_score":      {CounterPerfectScores, ">=", 1},
	"perfect_5_quiz_scores":   {CounterPerfectScores, ">=", 5},
	"complete_first_scenario": {CounterScenarios, ">=", 1},
	"complete_5_scenarios":    {CounterScenarios, ">=", 5},
	"use_first_tool":          {CounterTools, ">=", 1},
	"use_10_tools":            {CounterTools, ">=", 10},
	"streak_3_days":           {CounterStreak, ">=", 3},
	"streak_7_days":           {CounterStreak, ">=", 7},
	"streak_30_days":          {CounterStreak, ">=", 30},
	"reach_level_5":           {CounterLevel, ">=", 5},
	"reach_level_10":          {CounterLevel, ">=", 10},
}

// LookupCondition 查找条件规则，未知条件返回 false（该徽章永远不会发放）
func LookupCondition(name string) (ConditionRule, bool) {
	rule, ok := badgeConditions[name]
	return rule, ok
}

// KnownConditions 供 seed 脚本校验目录文件
func KnownConditions() []string {
	names := make([]string, 0, len(badgeConditions))
	for name := range badgeConditions {
		names = append(names, name)
	}
	return names
}

// CounterSnapshot 某一时刻的计数器取值
type CounterSnapshot map[Counter]int

func SnapshotOf(p *model.Progression) CounterSnapshot {
	return CounterSnapshot{
		CounterCourses:       p.CoursesCompleted,
		CounterLessons:       p.LessonsCompleted,
		CounterQuizzes:       p.QuizzesCompleted,
		CounterScenarios:     p.ScenariosCompleted,
		CounterTools:         p.ToolsUsed,
		CounterPerfectScores: p.PerfectQuizScores,
		CounterStreak:        p.Streak,
		CounterLevel:         p.Level,
	}
}

// QualifyingBadges 按目录顺序返回快照下新满足条件的徽章
func QualifyingBadges(catalog []model.Badge, held map[uint]bool, snap CounterSnapshot) []model.Badge {
	var out []model.Badge
	for _, b := range catalog {
		if !b.IsActive || held[b.ID] {
			continue
		}
		rule, ok := LookupCondition(b.Condition)
		if !ok {
			continue
		}
		if rule.Matches(snap) {
			out = append(out, b)
		}
	}
	return out
}
