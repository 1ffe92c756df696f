package main

import (
	"fmt"
	"net/http"
	"strings"

	"simpletune/internal/app/playlists"
	"simpletune/internal/app/users"
	"simpletune/internal/auth"
	"simpletune/internal/blobstore"
	"simpletune/internal/catalog"
	"simpletune/internal/httpapi"
	"simpletune/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store) (http.Handler, error) {
	blobs, err := blobstore.NewDiskStore(cfg.AvatarDir, cfg.AvatarBaseURL)
	if err != nil {
		return nil, fmt.Errorf("open avatar store: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	spotify := catalog.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret)

	playlistSvc := playlists.New(dataStore, spotify)
	userSvc := users.New(dataStore, dataStore, blobs, tokens)

	handler := httpapi.New(userSvc, playlistSvc, spotify, tokens).Routes()

	// Serve uploaded avatars alongside the API.
	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle(cfg.AvatarBaseURL+"/", http.StripPrefix(cfg.AvatarBaseURL+"/",
		http.FileServer(http.Dir(blobs.Dir()))))

	wrapped := httpapi.Recovery(httpapi.RequestLogging(mux))
	return withCORS(cfg.AllowedOrigins, wrapped), nil
}

func withCORS(allowedOrigins []string, next http.Handler) http.Handler {
	originAllowed := func(origin string) bool {
		if len(allowedOrigins) == 0 || origin == "" {
			return false
		}
		for _, o := range allowedOrigins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
