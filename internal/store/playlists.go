package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"simpletune/internal/catalog"
)

// Playlist captures a user-curated track set. Version is the optimistic
// concurrency counter: every successful track-set swap increments it.
type Playlist struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	Name      string          `json:"name"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Tracks    []catalog.Track `json:"tracks"`
}

// CreatePlaylist persists a new, empty playlist for the owner.
func (s *Store) CreatePlaylist(ctx context.Context, ownerID int64, name string) (*Playlist, error) {
	playlist := Playlist{
		OwnerID: ownerID,
		Name:    name,
		Tracks:  []catalog.Track{},
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO playlists (user_id, name, version, created_at)
		VALUES ($1, $2, 1, $3)
		RETURNING id, version, created_at
	`, ownerID, name, time.Now().UTC()).Scan(&playlist.ID, &playlist.Version, &playlist.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert playlist: %w", err)
	}

	return &playlist, nil
}

// ListPlaylists returns all playlists owned by a user, newest first. A user
// with no playlists gets an empty slice, not an error.
func (s *Store) ListPlaylists(ctx context.Context, ownerID int64) ([]*Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, version, created_at
		FROM playlists
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]*Playlist, 0)
	for rows.Next() {
		var playlist Playlist
		if err := rows.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Version, &playlist.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, &playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	for _, playlist := range playlists {
		tracks, err := s.listPlaylistTracks(ctx, playlist.ID)
		if err != nil {
			return nil, err
		}
		playlist.Tracks = tracks
	}
	return playlists, nil
}

// GetPlaylist returns a single playlist with its track set.
func (s *Store) GetPlaylist(ctx context.Context, id int64) (*Playlist, error) {
	var playlist Playlist
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, version, created_at
		FROM playlists
		WHERE id = $1
	`, id).Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Version, &playlist.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	tracks, err := s.listPlaylistTracks(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}
	playlist.Tracks = tracks
	return &playlist, nil
}

// DeletePlaylist removes a playlist owned by the given user. Deleting an id
// that does not exist, or is owned by someone else, is a no-op.
func (s *Store) DeletePlaylist(ctx context.Context, ownerID, id int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM playlists
		WHERE id = $1 AND user_id = $2
	`, id, ownerID); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

// CompareAndSwapTracks replaces the playlist's track set only if the stored
// version still equals expectedVersion, bumping the version on success.
// Returns ErrVersionConflict when a concurrent mutation won the race and
// ErrNotFound when the playlist is gone. Callers run the bounded retry loop.
func (s *Store) CompareAndSwapTracks(ctx context.Context, playlistID, expectedVersion int64, tracks []catalog.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE playlists
		SET version = version + 1
		WHERE id = $1 AND version = $2
	`, playlistID, expectedVersion)
	if err != nil {
		return fmt.Errorf("bump playlist version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)
		`, playlistID).Scan(&exists); err != nil {
			return fmt.Errorf("check playlist: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	if err := replacePlaylistTracksTx(ctx, tx, playlistID, tracks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit track swap: %w", err)
	}
	tx = nil

	return nil
}

func (s *Store) listPlaylistTracks(ctx context.Context, playlistID int64) ([]catalog.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, name, artists, album_id, COALESCE(album_cover_url, ''), COALESCE(album_release_date, ''), COALESCE(preview_url, '')
		FROM playlist_tracks
		WHERE playlist_id = $1
		ORDER BY position ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]catalog.Track, 0)
	for rows.Next() {
		var track catalog.Track
		if err := rows.Scan(&track.ID, &track.Name, pq.Array(&track.Artists), &track.Album.ID,
			&track.Album.CoverURL, &track.Album.ReleaseDate, &track.PreviewURL); err != nil {
			return nil, fmt.Errorf("scan playlist track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist tracks: %w", err)
	}
	return tracks, nil
}

func replacePlaylistTracksTx(ctx context.Context, tx *sql.Tx, playlistID int64, tracks []catalog.Track) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = $1`, playlistID); err != nil {
		return fmt.Errorf("clear playlist tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, position, track_id, name, artists, album_id, album_cover_url, album_release_date, preview_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("prepare insert playlist track: %w", err)
	}
	defer stmt.Close()

	for idx, track := range tracks {
		if _, err := stmt.ExecContext(
			ctx,
			playlistID,
			idx,
			track.ID,
			track.Name,
			pq.Array(track.Artists),
			track.Album.ID,
			nullIfEmpty(track.Album.CoverURL),
			nullIfEmpty(track.Album.ReleaseDate),
			nullIfEmpty(track.PreviewURL),
		); err != nil {
			return fmt.Errorf("insert playlist track: %w", err)
		}
	}
	return nil
}
