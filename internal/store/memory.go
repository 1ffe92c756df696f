package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"simpletune/internal/catalog"
)

// MemoryPlaylists keeps playlists in memory. It honors the same
// compare-and-swap contract as the Postgres store and backs tests and local
// development without a database.
type MemoryPlaylists struct {
	mu     sync.Mutex
	nextID int64
	lists  map[int64]*Playlist
}

// NewMemoryPlaylists returns an empty in-memory playlist store.
func NewMemoryPlaylists() *MemoryPlaylists {
	return &MemoryPlaylists{
		nextID: 1,
		lists:  make(map[int64]*Playlist),
	}
}

// CreatePlaylist persists a new, empty playlist for the owner.
func (m *MemoryPlaylists) CreatePlaylist(_ context.Context, ownerID int64, name string) (*Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist := &Playlist{
		ID:        m.nextID,
		OwnerID:   ownerID,
		Name:      name,
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Tracks:    []catalog.Track{},
	}
	m.nextID++
	m.lists[playlist.ID] = playlist

	return clonePlaylist(playlist), nil
}

// ListPlaylists returns the owner's playlists, newest first.
func (m *MemoryPlaylists) ListPlaylists(_ context.Context, ownerID int64) ([]*Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*Playlist, 0)
	for _, playlist := range m.lists {
		if playlist.OwnerID == ownerID {
			result = append(result, clonePlaylist(playlist))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// GetPlaylist returns a playlist by id.
func (m *MemoryPlaylists) GetPlaylist(_ context.Context, id int64) (*Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, ok := m.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePlaylist(playlist), nil
}

// DeletePlaylist removes a playlist; absent ids are a no-op.
func (m *MemoryPlaylists) DeletePlaylist(_ context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if playlist, ok := m.lists[id]; ok && playlist.OwnerID == ownerID {
		delete(m.lists, id)
	}
	return nil
}

// CompareAndSwapTracks swaps the track set when the version still matches.
func (m *MemoryPlaylists) CompareAndSwapTracks(_ context.Context, playlistID, expectedVersion int64, tracks []catalog.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, ok := m.lists[playlistID]
	if !ok {
		return ErrNotFound
	}
	if playlist.Version != expectedVersion {
		return ErrVersionConflict
	}

	playlist.Version++
	playlist.Tracks = append([]catalog.Track(nil), tracks...)
	return nil
}

func clonePlaylist(playlist *Playlist) *Playlist {
	clone := *playlist
	clone.Tracks = append([]catalog.Track(nil), playlist.Tracks...)
	return &clone
}
