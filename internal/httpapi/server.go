package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"simpletune/internal/app/playlists"
	"simpletune/internal/app/users"
	"simpletune/internal/auth"
	"simpletune/internal/blobstore"
	"simpletune/internal/catalog"
	"simpletune/internal/session"
	"simpletune/internal/store"
)

// UserService captures the account workflows needed by the HTTP handlers.
type UserService interface {
	SignUp(ctx context.Context, email, password, displayName string) (int64, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut()
	Profile(ctx context.Context, userID int64) (*store.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, displayName, email string) (*store.Profile, error)
	UploadAvatar(ctx context.Context, userID int64, contentType string, r io.Reader) (*store.Profile, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID int64, currentPassword string) error
}

// PlaylistService coordinates playlist operations.
type PlaylistService interface {
	Create(ctx context.Context, ownerID int64, name string) (*store.Playlist, error)
	List(ctx context.Context, ownerID int64) ([]*store.Playlist, error)
	Get(ctx context.Context, id int64) (*store.Playlist, error)
	Delete(ctx context.Context, ownerID, id int64) error
	AddTrack(ctx context.Context, ownerID, playlistID int64, track catalog.Track) (*store.Playlist, error)
	AddAlbum(ctx context.Context, ownerID, playlistID int64, albumID string) (*store.Playlist, error)
	RemoveTrack(ctx context.Context, ownerID, playlistID int64, trackID string) (*store.Playlist, error)
}

// CatalogService provides search and lookup against the music catalog.
type CatalogService interface {
	Search(ctx context.Context, query string, kind catalog.Kind) (*catalog.SearchResults, error)
	GetArtist(ctx context.Context, artistID string) (*catalog.Artist, error)
	GetArtistAlbums(ctx context.Context, artistID string) ([]catalog.Album, error)
	GetArtistTopTracks(ctx context.Context, artistID string) ([]catalog.Track, error)
	GetAlbumTracks(ctx context.Context, albumID string) ([]catalog.Track, error)
}

// TokenVerifier validates bearer tokens presented by clients.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	playlists PlaylistService
	catalog   CatalogService
	tokens    TokenVerifier
}

// New configures a Server with the given services.
func New(users UserService, playlists PlaylistService, catalog CatalogService, tokens TokenVerifier) *Server {
	return &Server{
		users:     users,
		playlists: playlists,
		catalog:   catalog,
		tokens:    tokens,
	}
}

// Routes exposes the HTTP handlers for account, playlist, and catalog access.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)

	// Account routes
	mux.HandleFunc("GET /api/v1/me/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/v1/me/profile", s.handleUpdateProfile)
	mux.HandleFunc("PUT /api/v1/me/password", s.handleChangePassword)
	mux.HandleFunc("POST /api/v1/me/avatar", s.handleUploadAvatar)
	mux.HandleFunc("DELETE /api/v1/me", s.handleDeleteAccount)

	// Playlist routes
	mux.HandleFunc("POST /api/v1/playlists", s.handleCreatePlaylist)
	mux.HandleFunc("GET /api/v1/playlists", s.handleListPlaylists)
	mux.HandleFunc("GET /api/v1/playlists/{id}", s.handleGetPlaylist)
	mux.HandleFunc("DELETE /api/v1/playlists/{id}", s.handleDeletePlaylist)
	mux.HandleFunc("POST /api/v1/playlists/{id}/tracks", s.handleAddTrack)
	mux.HandleFunc("POST /api/v1/playlists/{id}/albums/{albumID}", s.handleAddAlbum)
	mux.HandleFunc("DELETE /api/v1/playlists/{id}/tracks/{trackID}", s.handleRemoveTrack)

	// Catalog routes
	mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/artists/{id}", s.handleGetArtist)
	mux.HandleFunc("GET /api/v1/artists/{id}/albums", s.handleArtistAlbums)
	mux.HandleFunc("GET /api/v1/artists/{id}/top-tracks", s.handleArtistTopTracks)
	mux.HandleFunc("GET /api/v1/albums/{id}/tracks", s.handleAlbumTracks)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

// authenticate extracts and verifies the bearer token, returning the caller's
// identity claims.
func (s *Server) authenticate(r *http.Request) (*auth.Claims, error) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return s.tokens.Verify(token)
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, session.ErrUnauthenticated),
		errors.Is(err, users.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, catalog.ErrAuthFailure):
		status = http.StatusUnauthorized
	case errors.Is(err, users.ErrInvalidInput),
		errors.Is(err, playlists.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, playlists.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, blobstore.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, blobstore.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, catalog.ErrUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid bearer token"})
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
