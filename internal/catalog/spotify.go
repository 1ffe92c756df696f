package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL   = "https://api.spotify.com/v1"

	searchLimit = 20
	// Requests per second against the catalog; bursts of one keep us inside
	// the provider's published quota.
	requestsPerSecond = 10
)

// SpotifyClient talks to the Spotify Web API using the client-credentials
// flow. The bearer token is cached in memory with its expiry; it is never
// refreshed proactively.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string
	httpClient   *http.Client
	limiter      *rate.Limiter

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option customizes a SpotifyClient.
type Option func(*SpotifyClient)

// WithEndpoints overrides the token and API base URLs.
func WithEndpoints(tokenURL, apiURL string) Option {
	return func(c *SpotifyClient) {
		c.tokenURL = tokenURL
		c.apiURL = apiURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *SpotifyClient) {
		c.httpClient = hc
	}
}

// NewSpotifyClient creates a catalog client for the given application
// credentials.
func NewSpotifyClient(clientID, clientSecret string, opts ...Option) *SpotifyClient {
	c := &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultTokenURL,
		apiURL:       defaultAPIURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spotify wire types.

type spotifySearchResponse struct {
	Artists *spotifyArtistsPage `json:"artists,omitempty"`
	Albums  *spotifyAlbumsPage  `json:"albums,omitempty"`
	Tracks  *spotifyTracksPage  `json:"tracks,omitempty"`
}

type spotifyArtistsPage struct {
	Items []spotifyArtist `json:"items"`
}

type spotifyAlbumsPage struct {
	Items []spotifyAlbum `json:"items"`
}

type spotifyTracksPage struct {
	Items []spotifyTrack `json:"items"`
}

type spotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []spotifyImage `json:"images"`
}

type spotifyAlbum struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Artists     []spotifySimpleArtist `json:"artists"`
	ReleaseDate string                `json:"release_date"`
	TotalTracks int                   `json:"total_tracks"`
	Images      []spotifyImage        `json:"images"`
	Tracks      *spotifyTracksPage    `json:"tracks,omitempty"`
}

type spotifyTrack struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Artists    []spotifySimpleArtist `json:"artists"`
	Album      *spotifyAlbum         `json:"album,omitempty"`
	PreviewURL string                `json:"preview_url,omitempty"`
}

type spotifySimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate obtains and caches an access token. It is a no-op while the
// cached token is still valid.
func (c *SpotifyClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *SpotifyClient) authenticateLocked(ctx context.Context) error {
	if time.Now().Before(c.tokenExpiry) {
		return nil
	}

	authString := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+authString)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrAuthFailure, resp.Status, string(body))
	}

	var tokenResp spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("%w: decode token response: %v", ErrAuthFailure, err)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return nil
}

// doRequest performs an authenticated GET against the catalog API. All
// failures, including an expired or unobtainable token, surface as
// ErrUnavailable; a 404 surfaces as ErrNotFound. There is no retry.
func (c *SpotifyClient) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.mu.Lock()
	if err := c.authenticateLocked(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	token := c.accessToken
	c.mu.Unlock()

	apiURL := c.apiURL + "/" + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrUnavailable, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return nil
}

// Search queries the catalog for a single result kind.
func (c *SpotifyClient) Search(ctx context.Context, query string, kind Kind) (*SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}

	params := url.Values{
		"q":     []string{query},
		"type":  []string{string(kind)},
		"limit": []string{fmt.Sprintf("%d", searchLimit)},
	}

	var result spotifySearchResponse
	if err := c.doRequest(ctx, "search", params, &result); err != nil {
		return nil, err
	}

	results := &SearchResults{
		Tracks:  []Track{},
		Albums:  []Album{},
		Artists: []Artist{},
	}

	switch kind {
	case KindTrack:
		if result.Tracks != nil {
			for _, st := range result.Tracks.Items {
				results.Tracks = append(results.Tracks, convertTrack(st, nil))
			}
		}
	case KindAlbum:
		if result.Albums != nil {
			for _, sa := range result.Albums.Items {
				results.Albums = append(results.Albums, convertAlbum(sa))
			}
		}
	case KindArtist:
		if result.Artists != nil {
			for _, sa := range result.Artists.Items {
				results.Artists = append(results.Artists, convertArtist(sa))
			}
		}
	}

	return results, nil
}

// GetArtist retrieves artist metadata by id.
func (c *SpotifyClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	var sa spotifyArtist
	if err := c.doRequest(ctx, "artists/"+artistID, nil, &sa); err != nil {
		return nil, err
	}

	artist := convertArtist(sa)
	return &artist, nil
}

// GetArtistAlbums retrieves the albums and singles released by an artist.
func (c *SpotifyClient) GetArtistAlbums(ctx context.Context, artistID string) ([]Album, error) {
	params := url.Values{}
	params.Set("include_groups", "album,single")
	params.Set("limit", "50")

	var response struct {
		Items []spotifyAlbum `json:"items"`
	}
	if err := c.doRequest(ctx, "artists/"+artistID+"/albums", params, &response); err != nil {
		return nil, err
	}

	albums := make([]Album, 0, len(response.Items))
	for _, sa := range response.Items {
		albums = append(albums, convertAlbum(sa))
	}
	return albums, nil
}

// GetArtistTopTracks retrieves an artist's most popular tracks.
func (c *SpotifyClient) GetArtistTopTracks(ctx context.Context, artistID string) ([]Track, error) {
	params := url.Values{}
	params.Set("market", "US")

	var response struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := c.doRequest(ctx, "artists/"+artistID+"/top-tracks", params, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Tracks))
	for _, st := range response.Tracks {
		tracks = append(tracks, convertTrack(st, nil))
	}
	return tracks, nil
}

// GetAlbumTracks retrieves the full track list of an album. Each track value
// carries the owning album's reference so playlist entries render without a
// second lookup.
func (c *SpotifyClient) GetAlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	var sa spotifyAlbum
	if err := c.doRequest(ctx, "albums/"+albumID, nil, &sa); err != nil {
		return nil, err
	}

	ref := albumRef(sa)

	tracks := []Track{}
	if sa.Tracks != nil {
		for _, st := range sa.Tracks.Items {
			tracks = append(tracks, convertTrack(st, &ref))
		}
	}
	return tracks, nil
}

func convertArtist(sa spotifyArtist) Artist {
	imageURL := ""
	if len(sa.Images) > 0 {
		imageURL = sa.Images[0].URL
	}
	return Artist{
		ID:       sa.ID,
		Name:     sa.Name,
		ImageURL: imageURL,
		Genres:   sa.Genres,
	}
}

func convertAlbum(sa spotifyAlbum) Album {
	artistName := ""
	if len(sa.Artists) > 0 {
		artistName = sa.Artists[0].Name
	}
	coverURL := ""
	if len(sa.Images) > 0 {
		coverURL = sa.Images[0].URL
	}
	return Album{
		ID:          sa.ID,
		Name:        sa.Name,
		Artist:      artistName,
		ReleaseDate: sa.ReleaseDate,
		CoverURL:    coverURL,
		TotalTracks: sa.TotalTracks,
	}
}

func albumRef(sa spotifyAlbum) AlbumRef {
	coverURL := ""
	if len(sa.Images) > 0 {
		coverURL = sa.Images[0].URL
	}
	return AlbumRef{
		ID:          sa.ID,
		CoverURL:    coverURL,
		ReleaseDate: sa.ReleaseDate,
	}
}

// convertTrack maps a wire track to the common value type. ref, when non-nil,
// overrides the album reference; the albums endpoint returns tracks without
// an embedded album object.
func convertTrack(st spotifyTrack, ref *AlbumRef) Track {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, a.Name)
	}

	var album AlbumRef
	if ref != nil {
		album = *ref
	} else if st.Album != nil {
		album = albumRef(*st.Album)
	}

	return Track{
		ID:         st.ID,
		Name:       st.Name,
		Artists:    artists,
		Album:      album,
		PreviewURL: st.PreviewURL,
	}
}
