// Package httpapi exposes the listening-history service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"needledrop/internal/lastfm"
	"needledrop/internal/scrobble"
)

// ScrobblesService captures the listening-history operations needed by the
// HTTP handlers.
type ScrobblesService interface {
	ScrobblesInPeriod(ctx context.Context, username string, start, end time.Time) ([]scrobble.Scrobble, error)
	TopTracks(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.TrackCount, error)
	TopArtists(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.ArtistCount, error)
	TopAlbums(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.AlbumCount, error)
	Frequency(ctx context.Context, username string, start, end time.Time, unit string) ([]scrobble.PeriodCount, error)
	Refresh(ctx context.Context, username string) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	scrobbles ScrobblesService
}

// New configures a Server over the given service.
func New(scrobbles ScrobblesService) *Server {
	return &Server{scrobbles: scrobbles}
}

// Routes exposes the HTTP handlers for listening-history queries.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/v1/scrobbles/{username}", s.handleScrobbles)
	mux.HandleFunc("GET /api/v1/scrobbles/{username}/top-tracks", s.handleTopTracks)
	mux.HandleFunc("GET /api/v1/scrobbles/{username}/top-artists", s.handleTopArtists)
	mux.HandleFunc("GET /api/v1/scrobbles/{username}/top-albums", s.handleTopAlbums)
	mux.HandleFunc("GET /api/v1/scrobbles/{username}/frequency", s.handleFrequency)
	mux.HandleFunc("POST /api/v1/scrobbles/{username}/update", s.handleUpdate)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scrobble.ErrUnsupportedUnit):
		status = http.StatusBadRequest
	case errors.Is(err, lastfm.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lastfm.ErrFetchFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// parseTime accepts RFC 3339 timestamps and bare dates, which map to
// midnight UTC.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: expected RFC 3339 or YYYY-MM-DD", value)
	}
	return t, nil
}

// parseWindow reads the start and end query parameters. Both are required.
func parseWindow(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.New("start and end query parameters are required")
	}
	if start, err = parseTime(startStr); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = parseTime(endStr); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
