package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// TurnArchive records completed turns to a local SQLite database for later
// inspection. It is an auxiliary log: writes are best-effort and never
// block or fail a conversation.
type TurnArchive struct {
	db     *sql.DB
	logger *zap.Logger
}

// ArchivedTurn is one recorded exchange.
type ArchivedTurn struct {
	ID          int64
	CharacterID string
	UserText    string
	ModelText   string
	Failed      bool
	CreatedAt   time.Time
}

// OpenTurnArchive opens (creating if needed) the archive database at path.
func OpenTurnArchive(path string, logger *zap.Logger) (*TurnArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id TEXT NOT NULL,
		user_text TEXT NOT NULL,
		model_text TEXT NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_turns_character ON turns(character_id, id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	return &TurnArchive{db: db, logger: logger}, nil
}

// Record stores one completed turn.
func (a *TurnArchive) Record(characterID, userText, modelText string, failed bool) error {
	failedInt := 0
	if failed {
		failedInt = 1
	}
	_, err := a.db.Exec(
		`INSERT INTO turns (character_id, user_text, model_text, failed) VALUES (?, ?, ?, ?)`,
		characterID, userText, modelText, failedInt,
	)
	if err != nil {
		a.logger.Warn("failed to archive turn",
			zap.String("character", characterID), zap.Error(err))
		return err
	}
	return nil
}

// Recent returns the most recent turns for a character, newest first.
func (a *TurnArchive) Recent(characterID string, limit int) ([]ArchivedTurn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.Query(
		`SELECT id, character_id, user_text, model_text, failed, created_at
		 FROM turns WHERE character_id = ? ORDER BY id DESC LIMIT ?`,
		characterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var turns []ArchivedTurn
	for rows.Next() {
		var t ArchivedTurn
		var failed int
		if err := rows.Scan(&t.ID, &t.CharacterID, &t.UserText, &t.ModelText, &failed, &t.CreatedAt); err != nil {
			continue
		}
		t.Failed = failed != 0
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close releases the underlying database.
func (a *TurnArchive) Close() error {
	return a.db.Close()
}
