package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 4 * time.Second

// Schema creates the tables PGStore uses.
const Schema = `
CREATE TABLE IF NOT EXISTS stories (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'auto-draft',
    date        TEXT,
    modified    TEXT NOT NULL,
    excerpt     TEXT NOT NULL DEFAULT '',
    slug        TEXT NOT NULL DEFAULT '',
    link        TEXT NOT NULL DEFAULT '',
    story_data  JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE TABLE IF NOT EXISTS story_autosaves (
    story_id    TEXT PRIMARY KEY REFERENCES stories(id) ON DELETE CASCADE,
    title       TEXT NOT NULL DEFAULT '',
    excerpt     TEXT NOT NULL DEFAULT '',
    story_data  JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PGStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

// Migrate applies Schema.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate stories: %w", err)
	}
	return nil
}

func (s *PGStore) GetStoryByID(ctx context.Context, id string) (*RawStory, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var r RawStory
	err := s.db.QueryRow(ctx, `
        SELECT id, title, status, date, modified, excerpt, slug, link, story_data
        FROM stories
        WHERE id = $1
    `, id).Scan(&r.ID, &r.Title, &r.Status, &r.Date, &r.Modified, &r.Excerpt, &r.Slug, &r.Link, &r.StoryData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get story %s: %w", id, err)
	}
	return &r, nil
}

func (s *PGStore) SaveStoryByID(ctx context.Context, r *RawStory) (*RawStory, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	saved := *r
	saved.Modified = s.now().UTC().Format(time.RFC3339)
	tag, err := s.db.Exec(ctx, `
        UPDATE stories SET
            title      = $2,
            status     = $3,
            date       = $4,
            modified   = $5,
            excerpt    = $6,
            slug       = $7,
            link       = $8,
            story_data = $9
        WHERE id = $1
    `, saved.ID, saved.Title, saved.Status, saved.Date, saved.Modified, saved.Excerpt, saved.Slug, saved.Link, saved.StoryData)
	if err != nil {
		return nil, fmt.Errorf("save story %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return &saved, nil
}

func (s *PGStore) AutoSaveByID(ctx context.Context, r *RawStory) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `
        INSERT INTO story_autosaves (story_id, title, excerpt, story_data, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (story_id) DO UPDATE SET
            title      = EXCLUDED.title,
            excerpt    = EXCLUDED.excerpt,
            story_data = EXCLUDED.story_data,
            updated_at = EXCLUDED.updated_at
    `, r.ID, r.Title, r.Excerpt, r.StoryData, s.now().UTC())
	if err != nil {
		return fmt.Errorf("autosave story %s: %w", r.ID, err)
	}
	return nil
}
