// Package store persists PersonaChat conversation history.
//
// This file implements the message store: a whole-document JSON mapping from
// character id to conversation session, rewritten synchronously on every
// replace. SQLite-backed stores elsewhere in this package serve auxiliary
// concerns; the message log itself is deliberately a single document so a
// restart sees exactly what the last publish wrote.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"personachat/internal/persona"
)

// HistoryStore owns the persisted per-character message logs.
type HistoryStore struct {
	mu       sync.Mutex
	path     string
	logger   *zap.Logger
	sessions map[string]persona.Session
}

// NewHistoryStore creates a store backed by the JSON document at path.
// No I/O happens until Load or Replace.
func NewHistoryStore(path string, logger *zap.Logger) *HistoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryStore{
		path:     path,
		logger:   logger,
		sessions: make(map[string]persona.Session),
	}
}

// Load deserializes persisted state. A missing, unreadable, or corrupt
// document is not fatal: it is logged and an empty mapping is returned, so
// the caller always starts from a usable state.
func (s *HistoryStore) Load() map[string]persona.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read history document, starting empty",
				zap.String("path", s.path), zap.Error(err))
		}
		s.sessions = make(map[string]persona.Session)
		return s.snapshotLocked()
	}

	var sessions map[string]persona.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Warn("history document is corrupt, starting empty",
			zap.String("path", s.path), zap.Error(err))
		s.sessions = make(map[string]persona.Session)
		return s.snapshotLocked()
	}
	if sessions == nil {
		sessions = make(map[string]persona.Session)
	}

	s.sessions = sessions
	return s.snapshotLocked()
}

// Replace overwrites the character's full message log, bumps its
// last-updated time, and persists the whole store synchronously.
func (s *HistoryStore) Replace(characterID string, messages []persona.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[characterID] = persona.Session{
		CharacterID: characterID,
		Messages:    append([]persona.Message(nil), messages...),
		LastUpdated: time.Now(),
	}
	s.persistLocked()
}

// Messages returns a copy of the character's current log.
func (s *HistoryStore) Messages(characterID string) []persona.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[characterID]
	if !ok {
		return nil
	}
	return append([]persona.Message(nil), sess.Messages...)
}

// Delete removes a character's log entirely and persists the result.
// Used when the user clears a conversation.
func (s *HistoryStore) Delete(characterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[characterID]; !ok {
		return
	}
	delete(s.sessions, characterID)
	s.persistLocked()
}

func (s *HistoryStore) snapshotLocked() map[string]persona.Session {
	out := make(map[string]persona.Session, len(s.sessions))
	for id, sess := range s.sessions {
		sess.Messages = append([]persona.Message(nil), sess.Messages...)
		out[id] = sess
	}
	return out
}

// persistLocked writes the whole store. An empty store is never written:
// the first publish of a fresh process must not clobber prior saved state.
func (s *HistoryStore) persistLocked() {
	if len(s.sessions) == 0 {
		return
	}

	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode history document", zap.Error(err))
		return
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("failed to write history document",
			zap.String("path", s.path), zap.Error(err))
	}
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// cannot leave a truncated document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history document: %w", err)
	}
	return nil
}
