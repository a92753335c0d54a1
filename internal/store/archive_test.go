package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnArchive_RecordAndRecent(t *testing.T) {
	archive, err := OpenTurnArchive(filepath.Join(t.TempDir(), "archive.db"), nil)
	require.NoError(t, err)
	defer archive.Close()

	require.NoError(t, archive.Record("luna", "first", "reply one", false))
	require.NoError(t, archive.Record("luna", "second", "reply two", false))
	require.NoError(t, archive.Record("luna", "third", "partial [error]", true))
	require.NoError(t, archive.Record("rex", "unrelated", "case closed", false))

	turns, err := archive.Recent("luna", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	// Newest first.
	assert.Equal(t, "third", turns[0].UserText)
	assert.True(t, turns[0].Failed)
	assert.Equal(t, "second", turns[1].UserText)
	assert.False(t, turns[1].Failed)

	for _, turn := range turns {
		assert.Equal(t, "luna", turn.CharacterID)
		assert.False(t, turn.CreatedAt.IsZero())
	}
}

func TestTurnArchive_RecentUnknownCharacter(t *testing.T) {
	archive, err := OpenTurnArchive(filepath.Join(t.TempDir(), "archive.db"), nil)
	require.NoError(t, err)
	defer archive.Close()

	turns, err := archive.Recent("nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
