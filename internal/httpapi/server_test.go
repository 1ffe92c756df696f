package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"simpletune/internal/app/playlists"
	"simpletune/internal/app/users"
	"simpletune/internal/auth"
	"simpletune/internal/catalog"
	"simpletune/internal/store"
)

type stubUserService struct {
	signUpErr error
	signInErr error
	token     string

	profile    *store.Profile
	profileErr error

	changePasswordErr error
	deleteErr         error

	lastEmail    string
	lastPassword string
}

func (s *stubUserService) SignUp(_ context.Context, email, password, _ string) (int64, error) {
	s.lastEmail = email
	s.lastPassword = password
	if s.signUpErr != nil {
		return 0, s.signUpErr
	}
	return 1, nil
}

func (s *stubUserService) SignIn(_ context.Context, email, password string) (string, error) {
	s.lastEmail = email
	s.lastPassword = password
	if s.signInErr != nil {
		return "", s.signInErr
	}
	return s.token, nil
}

func (s *stubUserService) SignOut() {}

func (s *stubUserService) Profile(context.Context, int64) (*store.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubUserService) UpdateProfile(_ context.Context, _ int64, displayName, email string) (*store.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &store.Profile{DisplayName: displayName, Email: email}, nil
}

func (s *stubUserService) UploadAvatar(context.Context, int64, string, io.Reader) (*store.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubUserService) ChangePassword(context.Context, int64, string, string) error {
	return s.changePasswordErr
}

func (s *stubUserService) DeleteAccount(context.Context, int64, string) error {
	return s.deleteErr
}

type stubPlaylistService struct {
	playlist *store.Playlist
	list     []*store.Playlist
	err      error

	lastOwnerID    int64
	lastPlaylistID int64
	lastAlbumID    string
	lastTrackID    string
}

func (s *stubPlaylistService) Create(_ context.Context, ownerID int64, name string) (*store.Playlist, error) {
	s.lastOwnerID = ownerID
	if s.err != nil {
		return nil, s.err
	}
	return &store.Playlist{ID: 1, OwnerID: ownerID, Name: name, Version: 1}, nil
}

func (s *stubPlaylistService) List(_ context.Context, ownerID int64) ([]*store.Playlist, error) {
	s.lastOwnerID = ownerID
	return s.list, s.err
}

func (s *stubPlaylistService) Get(_ context.Context, id int64) (*store.Playlist, error) {
	s.lastPlaylistID = id
	return s.playlist, s.err
}

func (s *stubPlaylistService) Delete(_ context.Context, ownerID, id int64) error {
	s.lastOwnerID = ownerID
	s.lastPlaylistID = id
	return s.err
}

func (s *stubPlaylistService) AddTrack(_ context.Context, ownerID, playlistID int64, _ catalog.Track) (*store.Playlist, error) {
	s.lastOwnerID = ownerID
	s.lastPlaylistID = playlistID
	return s.playlist, s.err
}

func (s *stubPlaylistService) AddAlbum(_ context.Context, ownerID, playlistID int64, albumID string) (*store.Playlist, error) {
	s.lastOwnerID = ownerID
	s.lastPlaylistID = playlistID
	s.lastAlbumID = albumID
	return s.playlist, s.err
}

func (s *stubPlaylistService) RemoveTrack(_ context.Context, ownerID, playlistID int64, trackID string) (*store.Playlist, error) {
	s.lastOwnerID = ownerID
	s.lastPlaylistID = playlistID
	s.lastTrackID = trackID
	return s.playlist, s.err
}

type stubCatalogService struct {
	results *catalog.SearchResults
	artist  *catalog.Artist
	albums  []catalog.Album
	tracks  []catalog.Track
	err     error
}

func (s *stubCatalogService) Search(context.Context, string, catalog.Kind) (*catalog.SearchResults, error) {
	return s.results, s.err
}

func (s *stubCatalogService) GetArtist(context.Context, string) (*catalog.Artist, error) {
	return s.artist, s.err
}

func (s *stubCatalogService) GetArtistAlbums(context.Context, string) ([]catalog.Album, error) {
	return s.albums, s.err
}

func (s *stubCatalogService) GetArtistTopTracks(context.Context, string) ([]catalog.Track, error) {
	return s.tracks, s.err
}

func (s *stubCatalogService) GetAlbumTracks(context.Context, string) ([]catalog.Track, error) {
	return s.tracks, s.err
}

var testTokens = auth.NewTokenManager("test-secret")

func bearerFor(t *testing.T, userID int64) string {
	t.Helper()
	token, err := testTokens.Issue(userID, "ada@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, srv *Server, method, target, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	userSvc := &stubUserService{token: "issued-token"}
	srv := New(userSvc, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Email:    "ada@example.com",
		Password: "password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "issued-token" {
		t.Fatalf("unexpected token %q", resp.Token)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	userSvc := &stubUserService{signInErr: users.ErrInvalidCredentials}
	srv := New(userSvc, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSignupEmailTaken(t *testing.T) {
	userSvc := &stubUserService{signUpErr: store.ErrEmailTaken}
	srv := New(userSvc, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/signup", "", signupRequest{
		Email:    "ada@example.com",
		Password: "password",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestPlaylistsRequireAuth(t *testing.T) {
	srv := New(&stubUserService{}, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/playlists", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/playlists", "Bearer not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a garbage token, got %d", rec.Code)
	}
}

func TestCreatePlaylist(t *testing.T) {
	playlistSvc := &stubPlaylistService{}
	srv := New(&stubUserService{}, playlistSvc, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/playlists", bearerFor(t, 7), createPlaylistRequest{Name: "Mix"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if playlistSvc.lastOwnerID != 7 {
		t.Fatalf("expected owner id from the token, got %d", playlistSvc.lastOwnerID)
	}
}

func TestGetPlaylistHidesForeignPlaylists(t *testing.T) {
	playlistSvc := &stubPlaylistService{playlist: &store.Playlist{ID: 3, OwnerID: 2, Name: "Theirs"}}
	srv := New(&stubUserService{}, playlistSvc, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/playlists/3", bearerFor(t, 7), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's playlist, got %d", rec.Code)
	}
}

func TestAddTrackConflict(t *testing.T) {
	playlistSvc := &stubPlaylistService{err: playlists.ErrConcurrentModification}
	srv := New(&stubUserService{}, playlistSvc, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/playlists/3/tracks", bearerFor(t, 7), catalog.Track{ID: "t1", Name: "Airbag"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAddAlbum(t *testing.T) {
	playlistSvc := &stubPlaylistService{playlist: &store.Playlist{ID: 3, OwnerID: 7, Version: 2}}
	srv := New(&stubUserService{}, playlistSvc, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/playlists/3/albums/al1", bearerFor(t, 7), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if playlistSvc.lastPlaylistID != 3 || playlistSvc.lastAlbumID != "al1" {
		t.Fatalf("unexpected args: playlist %d album %q", playlistSvc.lastPlaylistID, playlistSvc.lastAlbumID)
	}
}

func TestRemoveTrack(t *testing.T) {
	playlistSvc := &stubPlaylistService{playlist: &store.Playlist{ID: 3, OwnerID: 7}}
	srv := New(&stubUserService{}, playlistSvc, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/playlists/3/tracks/t1", bearerFor(t, 7), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if playlistSvc.lastTrackID != "t1" {
		t.Fatalf("expected track id t1, got %q", playlistSvc.lastTrackID)
	}
}

func TestSearchRejectsUnknownKind(t *testing.T) {
	srv := New(&stubUserService{}, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/search?q=radiohead&kind=podcast", bearerFor(t, 7), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearchCatalogUnavailable(t *testing.T) {
	catalogSvc := &stubCatalogService{err: catalog.ErrUnavailable}
	srv := New(&stubUserService{}, &stubPlaylistService{}, catalogSvc, testTokens)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/search?q=radiohead&kind=track", bearerFor(t, 7), nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestAlbumTracksNotFound(t *testing.T) {
	catalogSvc := &stubCatalogService{err: catalog.ErrNotFound}
	srv := New(&stubUserService{}, &stubPlaylistService{}, catalogSvc, testTokens)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/albums/missing/tracks", bearerFor(t, 7), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	userSvc := &stubUserService{changePasswordErr: users.ErrInvalidCredentials}
	srv := New(userSvc, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodPut, "/api/v1/me/password", bearerFor(t, 7), passwordChangeRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	srv := New(&stubUserService{}, &stubPlaylistService{}, &stubCatalogService{}, testTokens)

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/me", bearerFor(t, 7), reauthRequest{CurrentPassword: "password"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{users.ErrInvalidCredentials, http.StatusUnauthorized},
		{playlists.ErrInvalidInput, http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{playlists.ErrConcurrentModification, http.StatusConflict},
		{catalog.ErrUnavailable, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
	}
}
