package service

// XPPerLevel 每升一级需要的 XP
const XPPerLevel = 500

// 固定的 XP 奖励
const (
	XPCourse      = 50
	XPLesson      = 10
	XPQuiz        = 30
	XPPerfectQuiz = 20
	XPScenario    = 40
	XPTool        = 15
	XPDailyLogin  = 10
)

// PerfectScore 满分才触发额外奖励
const PerfectScore = 100

// LevelForXP level = floor(xp/500) + 1
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// XPForNextLevel 到达下一级所需的累计 XP
func XPForNextLevel(level int) int {
	return level * XPPerLevel
}

// ProgressToNextLevel 当前等级内的进度百分比（0-99）
func ProgressToNextLevel(xp int) int {
	level := LevelForXP(xp)
	into := xp - (level-1)*XPPerLevel
	return into * 100 / XPPerLevel
}
