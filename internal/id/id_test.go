package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate("tab")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("session")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "session-"))
	// prefix + dash + 21-char nanoid
	assert.Len(t, id, len("session-")+21)
}

func TestMustGenerate(t *testing.T) {
	id := MustGenerate("tab")
	assert.True(t, strings.HasPrefix(id, "tab-"))
}
