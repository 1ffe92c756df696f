// Package playlists coordinates playlist workflows, in particular merging
// catalog tracks into a playlist's track set without duplicates or lost
// updates.
package playlists

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"simpletune/internal/catalog"
	"simpletune/internal/session"
	"simpletune/internal/store"
)

var (
	// ErrInvalidInput signals an empty or malformed user-supplied field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConcurrentModification signals the bounded conflict retry was
	// exhausted; the caller may simply re-trigger the operation.
	ErrConcurrentModification = errors.New("playlist concurrently modified")
)

// maxSwapAttempts bounds the compare-and-swap retry loop. Each attempt
// re-reads the playlist, so exhaustion means sustained contention, not a
// transient blip.
const maxSwapAttempts = 5

// Store captures the persistence needs for playlist workflows. The
// CompareAndSwapTracks primitive is the serialization point for concurrent
// edits; no client-side locking exists above it.
type Store interface {
	CreatePlaylist(ctx context.Context, ownerID int64, name string) (*store.Playlist, error)
	ListPlaylists(ctx context.Context, ownerID int64) ([]*store.Playlist, error)
	GetPlaylist(ctx context.Context, id int64) (*store.Playlist, error)
	DeletePlaylist(ctx context.Context, ownerID, id int64) error
	CompareAndSwapTracks(ctx context.Context, playlistID, expectedVersion int64, tracks []catalog.Track) error
}

// Catalog is the slice of the catalog client the service needs.
type Catalog interface {
	GetAlbumTracks(ctx context.Context, albumID string) ([]catalog.Track, error)
}

// Service coordinates playlist-related operations.
type Service interface {
	Create(ctx context.Context, ownerID int64, name string) (*store.Playlist, error)
	List(ctx context.Context, ownerID int64) ([]*store.Playlist, error)
	Get(ctx context.Context, id int64) (*store.Playlist, error)
	Delete(ctx context.Context, ownerID, id int64) error

	// AddTrack merges a single track into the playlist's set.
	AddTrack(ctx context.Context, ownerID, playlistID int64, track catalog.Track) (*store.Playlist, error)
	// AddAlbum fetches the album's full track list and merges it in one
	// call. A failed fetch fails the whole operation; nothing partial is
	// ever written.
	AddAlbum(ctx context.Context, ownerID, playlistID int64, albumID string) (*store.Playlist, error)
	// RemoveTrack removes the entry matching the track id; removing an
	// absent id is a no-op, not an error.
	RemoveTrack(ctx context.Context, ownerID, playlistID int64, trackID string) (*store.Playlist, error)
}

type service struct {
	store   Store
	catalog Catalog
}

// New constructs a Service backed by the provided Store and catalog client.
func New(s Store, c Catalog) Service {
	return &service{store: s, catalog: c}
}

func (s *service) Create(ctx context.Context, ownerID int64, name string) (*store.Playlist, error) {
	if ownerID == 0 {
		return nil, session.ErrUnauthenticated
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidInput
	}
	return s.store.CreatePlaylist(ctx, ownerID, strings.TrimSpace(name))
}

func (s *service) List(ctx context.Context, ownerID int64) ([]*store.Playlist, error) {
	if ownerID == 0 {
		return nil, session.ErrUnauthenticated
	}
	return s.store.ListPlaylists(ctx, ownerID)
}

func (s *service) Get(ctx context.Context, id int64) (*store.Playlist, error) {
	return s.store.GetPlaylist(ctx, id)
}

func (s *service) Delete(ctx context.Context, ownerID, id int64) error {
	if ownerID == 0 {
		return session.ErrUnauthenticated
	}
	return s.store.DeletePlaylist(ctx, ownerID, id)
}

func (s *service) AddTrack(ctx context.Context, ownerID, playlistID int64, track catalog.Track) (*store.Playlist, error) {
	if track.ID == "" {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, ownerID, playlistID, func(current []catalog.Track) ([]catalog.Track, bool) {
		return mergeTracks(current, []catalog.Track{track})
	})
}

func (s *service) AddAlbum(ctx context.Context, ownerID, playlistID int64, albumID string) (*store.Playlist, error) {
	if albumID == "" {
		return nil, ErrInvalidInput
	}

	tracks, err := s.catalog.GetAlbumTracks(ctx, albumID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, ownerID, playlistID, func(current []catalog.Track) ([]catalog.Track, bool) {
		return mergeTracks(current, tracks)
	})
}

func (s *service) RemoveTrack(ctx context.Context, ownerID, playlistID int64, trackID string) (*store.Playlist, error) {
	if trackID == "" {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, ownerID, playlistID, func(current []catalog.Track) ([]catalog.Track, bool) {
		return removeTrack(current, trackID)
	})
}

// mutate runs the bounded compare-and-swap loop: read the playlist, apply the
// transform, attempt the conditional write, retry on a detected conflict. A
// transform reporting no change commits nothing and bumps no version.
func (s *service) mutate(ctx context.Context, ownerID, playlistID int64, transform func([]catalog.Track) ([]catalog.Track, bool)) (*store.Playlist, error) {
	if ownerID == 0 {
		return nil, session.ErrUnauthenticated
	}

	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		playlist, err := s.store.GetPlaylist(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		if playlist.OwnerID != ownerID {
			return nil, session.ErrUnauthenticated
		}

		next, changed := transform(playlist.Tracks)
		if !changed {
			return playlist, nil
		}

		err = s.store.CompareAndSwapTracks(ctx, playlistID, playlist.Version, next)
		if err == nil {
			playlist.Version++
			playlist.Tracks = next
			return playlist, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}

		log.Debug().
			Int64("playlist_id", playlistID).
			Int("attempt", attempt).
			Msg("playlist swap conflict, retrying")
	}

	return nil, ErrConcurrentModification
}

// mergeTracks unions incoming into existing, keyed by track id only. Entries
// already present are left untouched even when the incoming copy differs in
// incidental fields (image ordering, preview availability), so nothing the
// store normalized gets clobbered. Insertion order is preserved.
func mergeTracks(existing, incoming []catalog.Track) ([]catalog.Track, bool) {
	seen := make(map[string]struct{}, len(existing))
	for _, track := range existing {
		seen[track.ID] = struct{}{}
	}

	merged := append([]catalog.Track(nil), existing...)
	changed := false
	for _, track := range incoming {
		if _, ok := seen[track.ID]; ok {
			continue
		}
		seen[track.ID] = struct{}{}
		merged = append(merged, track)
		changed = true
	}
	return merged, changed
}

// removeTrack filters by id, never by position: the displayed order may no
// longer match the store's order after concurrent edits.
func removeTrack(existing []catalog.Track, trackID string) ([]catalog.Track, bool) {
	next := make([]catalog.Track, 0, len(existing))
	changed := false
	for _, track := range existing {
		if track.ID == trackID {
			changed = true
			continue
		}
		next = append(next, track)
	}
	return next, changed
}
