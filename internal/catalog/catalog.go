package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty or unusable search query.
	ErrInvalidQuery = errors.New("invalid search query")
	// ErrNotFound indicates the catalog has no record for the requested id.
	ErrNotFound = errors.New("catalog record not found")
	// ErrUnavailable covers transport and HTTP failures talking to the catalog.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrAuthFailure indicates the token endpoint rejected the client credentials.
	ErrAuthFailure = errors.New("catalog authentication failed")
)

// Kind selects the result type of a catalog search.
type Kind string

const (
	KindTrack  Kind = "track"
	KindAlbum  Kind = "album"
	KindArtist Kind = "artist"
)

// ParseKind validates a user-supplied search kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindTrack, KindAlbum, KindArtist:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidQuery, raw)
}

// AlbumRef is the owning-album slice of a track: just enough to render it.
type AlbumRef struct {
	ID          string `json:"id"`
	CoverURL    string `json:"cover_url,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// Track is an immutable value fetched from the catalog. Copies of it are
// stored inside playlists; identity is the ID field alone.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      AlbumRef `json:"album"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// Album is catalog album metadata. Its track list is fetched lazily via
// GetAlbumTracks, never embedded here.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	TotalTracks int    `json:"total_tracks,omitempty"`
}

// Artist is catalog artist metadata; albums and top tracks are derived
// collections fetched on demand.
type Artist struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url,omitempty"`
	Genres   []string `json:"genres,omitempty"`
}

// SearchResults holds the matches for one search call. Only the list matching
// the requested kind is populated.
type SearchResults struct {
	Tracks  []Track  `json:"tracks"`
	Albums  []Album  `json:"albums"`
	Artists []Artist `json:"artists"`
}

// Client is the read-only view of the third-party music catalog.
type Client interface {
	// Authenticate exchanges client credentials for a bearer token and caches
	// it until expiry. Dependent calls invoke it lazily; callers normally
	// never need to.
	Authenticate(ctx context.Context) error

	Search(ctx context.Context, query string, kind Kind) (*SearchResults, error)
	GetArtist(ctx context.Context, artistID string) (*Artist, error)
	GetArtistAlbums(ctx context.Context, artistID string) ([]Album, error)
	GetArtistTopTracks(ctx context.Context, artistID string) ([]Track, error)
	GetAlbumTracks(ctx context.Context, albumID string) ([]Track, error)
}
