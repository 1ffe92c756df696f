package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"simpletune/internal/catalog"
	"simpletune/internal/store"
)

type createPlaylistRequest struct {
	Name string `json:"name"`
}

type playlistsResponse struct {
	Playlists []*store.Playlist `json:"playlists"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	playlist, err := s.playlists.Create(r.Context(), claims.UserID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	lists, err := s.playlists.List(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: lists})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	playlist, err := s.playlists.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// Playlists are private to their owner; do not reveal existence.
	if playlist.OwnerID != claims.UserID {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "playlist not found"})
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := s.playlists.Delete(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var track catalog.Track
	if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}
	if track.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing track id"})
		return
	}

	playlist, err := s.playlists.AddTrack(r.Context(), claims.UserID, id, track)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleAddAlbum(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	albumID := r.PathValue("albumID")
	if albumID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing album id"})
		return
	}

	playlist, err := s.playlists.AddAlbum(r.Context(), claims.UserID, id, albumID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	trackID := r.PathValue("trackID")
	if trackID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing track id"})
		return
	}

	playlist, err := s.playlists.RemoveTrack(r.Context(), claims.UserID, id, trackID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name + " parameter"})
		return 0, false
	}
	return id, true
}
