// Package backup keeps a local copy of the latest edit of each open story,
// independent of the server.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inamate/storyeditor/internal/history"
)

// NewStoryKey is shared by every story that has not been saved yet.
const NewStoryKey = "auto-draft"

// Store is a sqlite-backed key-value store of history entries.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the backup database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	_, err = conn.Exec(`CREATE TABLE IF NOT EXISTS story_backups (
		key        TEXT PRIMARY KEY,
		entry_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate backups: %w", err)
	}
	return &Store{conn: conn, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Key returns the backup key for a story.
func Key(storyID string, isNew bool) string {
	if isNew || storyID == "" {
		return NewStoryKey
	}
	return storyID
}

func (s *Store) Save(ctx context.Context, storyID string, isNew bool, e history.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO story_backups (key, entry_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET entry_json = excluded.entry_json, updated_at = excluded.updated_at`,
		Key(storyID, isNew), string(data), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	return nil
}

// Load returns the stored entry; ok is false when there is none.
func (s *Store) Load(ctx context.Context, storyID string, isNew bool) (e history.Entry, ok bool, err error) {
	var data string
	err = s.conn.QueryRowContext(ctx,
		`SELECT entry_json FROM story_backups WHERE key = ?`, Key(storyID, isNew),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, false, nil
	}
	if err != nil {
		return history.Entry{}, false, fmt.Errorf("load backup: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return history.Entry{}, false, fmt.Errorf("decode backup: %w", err)
	}
	return e, true, nil
}

func (s *Store) Delete(ctx context.Context, storyID string, isNew bool) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM story_backups WHERE key = ?`, Key(storyID, isNew)); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

// Clear drops every backup, at the end of a session.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM story_backups`); err != nil {
		return fmt.Errorf("clear backups: %w", err)
	}
	return nil
}
