package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReservedWord(t *testing.T) {
	assert.True(t, isReservedWord("SELECT"))
	assert.True(t, isReservedWord("select"))
	assert.True(t, isReservedWord("Commit"))
	assert.True(t, isReservedWord("xa"))

	assert.False(t, isReservedWord("get_users"))
	assert.False(t, isReservedWord("selection"))
	assert.False(t, isReservedWord(""))
}
