package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIndex(t *testing.T) {
	assert.Equal(t, 4, ParseIndex("4", 1))
	assert.Equal(t, 4, ParseIndex(" 4 ", 1))
	assert.Equal(t, 3, ParseIndex("3.0", 1))
	assert.Equal(t, 2, ParseIndex("", 2))
	assert.Equal(t, 7, ParseIndex("seven", 7))
	assert.Equal(t, 5, ParseIndex("2.5", 5))
}
