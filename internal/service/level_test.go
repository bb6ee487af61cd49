package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{-20, 1},
		{499, 1},
		{500, 2},
		{999, 2},
		{1000, 3},
		{4999, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 500, XPForNextLevel(1))
	assert.Equal(t, 1000, XPForNextLevel(2))
}

func TestProgressToNextLevel(t *testing.T) {
	assert.Equal(t, 0, ProgressToNextLevel(0))
	assert.Equal(t, 50, ProgressToNextLevel(250))
	assert.Equal(t, 99, ProgressToNextLevel(499))
	assert.Equal(t, 0, ProgressToNextLevel(500))
	assert.Equal(t, 31, ProgressToNextLevel(655))
}
