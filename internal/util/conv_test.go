package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 20, ParseLimit("", 20, 100))
	assert.Equal(t, 20, ParseLimit("abc", 20, 100))
	assert.Equal(t, 20, ParseLimit("-3", 20, 100))
	assert.Equal(t, 5, ParseLimit("5", 20, 100))
	assert.Equal(t, 100, ParseLimit("1000", 20, 100))
	assert.Equal(t, 1000, ParseLimit("1000", 20, 0))
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(42), MustParseUint("42"))
	assert.Equal(t, uint(0), MustParseUint("x"))
}
