package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id      BIGINT PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
	display_name TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL,
	avatar_url   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS playlists (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_playlists_user_id ON playlists (user_id);

CREATE TABLE IF NOT EXISTS playlist_tracks (
	playlist_id        BIGINT NOT NULL REFERENCES playlists (id) ON DELETE CASCADE,
	position           INT NOT NULL,
	track_id           TEXT NOT NULL,
	name               TEXT NOT NULL,
	artists            TEXT[] NOT NULL DEFAULT '{}',
	album_id           TEXT NOT NULL DEFAULT '',
	album_cover_url    TEXT,
	album_release_date TEXT,
	preview_url        TEXT,
	PRIMARY KEY (playlist_id, track_id)
);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
