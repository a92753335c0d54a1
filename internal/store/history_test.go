package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personachat/internal/persona"
)

func testMessages() []persona.Message {
	return []persona.Message{
		{
			ID:        "m1",
			Role:      persona.RoleUser,
			Text:      "hello there",
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:        "m2",
			Role:      persona.RoleModel,
			Text:      "well hello",
			Timestamp: time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
		},
	}
}

func TestHistoryStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	msgs := testMessages()

	s := NewHistoryStore(path, nil)
	s.Load()
	s.Replace("luna", msgs)

	// Simulate a restart: a fresh store reads the same document.
	restarted := NewHistoryStore(path, nil)
	sessions := restarted.Load()

	require.Contains(t, sessions, "luna")
	assert.Equal(t, "luna", sessions["luna"].CharacterID)
	assert.False(t, sessions["luna"].LastUpdated.IsZero())
	if diff := cmp.Diff(msgs, sessions["luna"].Messages); diff != "" {
		t.Errorf("messages mismatch after reload (-want +got):\n%s", diff)
	}
}

func TestHistoryStore_CorruptDocumentFailsSoft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewHistoryStore(path, nil)
	sessions := s.Load()
	assert.Empty(t, sessions, "corrupt document must yield an empty store, not a crash")
}

func TestHistoryStore_MissingDocument(t *testing.T) {
	s := NewHistoryStore(filepath.Join(t.TempDir(), "nope", "history.json"), nil)
	assert.Empty(t, s.Load())
}

func TestHistoryStore_EmptyStoreNeverPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s := NewHistoryStore(path, nil)
	s.Load()
	// Nothing was ever replaced; no document may appear.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryStore_ReplaceOverwritesWholeLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewHistoryStore(path, nil)
	s.Load()

	s.Replace("rex", testMessages())
	shorter := testMessages()[:1]
	s.Replace("rex", shorter)

	restarted := NewHistoryStore(path, nil)
	sessions := restarted.Load()
	require.Contains(t, sessions, "rex")
	assert.Len(t, sessions["rex"].Messages, 1, "replace is whole-log, not append")
}

func TestHistoryStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewHistoryStore(path, nil)
	s.Load()
	s.Replace("luna", testMessages())
	s.Replace("rex", testMessages())

	s.Delete("luna")

	restarted := NewHistoryStore(path, nil)
	sessions := restarted.Load()
	assert.NotContains(t, sessions, "luna")
	assert.Contains(t, sessions, "rex")
}

func TestHistoryStore_MessagesReturnsCopy(t *testing.T) {
	s := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), nil)
	s.Load()
	s.Replace("sage", testMessages())

	got := s.Messages("sage")
	got[0].Text = "tampered"
	assert.Equal(t, "hello there", s.Messages("sage")[0].Text)
	assert.Nil(t, s.Messages("unknown"))
}
