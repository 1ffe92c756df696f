package httpapi

import (
	"net/http"

	"simpletune/internal/catalog"
)

type albumsResponse struct {
	Albums []catalog.Album `json:"albums"`
}

type tracksResponse struct {
	Tracks []catalog.Track `json:"tracks"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeUnauthorized(w)
		return
	}

	query := r.URL.Query()

	kind, err := catalog.ParseKind(query.Get("kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	results, err := s.catalog.Search(r.Context(), query.Get("q"), kind)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeUnauthorized(w)
		return
	}

	artist, err := s.catalog.GetArtist(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, artist)
}

func (s *Server) handleArtistAlbums(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeUnauthorized(w)
		return
	}

	albums, err := s.catalog.GetArtistAlbums(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, albumsResponse{Albums: albums})
}

func (s *Server) handleArtistTopTracks(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeUnauthorized(w)
		return
	}

	tracks, err := s.catalog.GetArtistTopTracks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}

func (s *Server) handleAlbumTracks(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeUnauthorized(w)
		return
	}

	tracks, err := s.catalog.GetAlbumTracks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}
