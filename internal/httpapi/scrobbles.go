package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"needledrop/internal/scrobble"
)

type scrobblesResponse struct {
	Start     time.Time           `json:"start"`
	End       time.Time           `json:"end"`
	Scrobbles []scrobble.Scrobble `json:"scrobbles"`
}

type topTracksResponse struct {
	Start  time.Time             `json:"start"`
	End    time.Time             `json:"end"`
	Tracks []scrobble.TrackCount `json:"tracks"`
}

type topArtistsResponse struct {
	Start   time.Time              `json:"start"`
	End     time.Time              `json:"end"`
	Artists []scrobble.ArtistCount `json:"artists"`
}

type topAlbumsResponse struct {
	Start  time.Time             `json:"start"`
	End    time.Time             `json:"end"`
	Albums []scrobble.AlbumCount `json:"albums"`
}

type frequencyResponse struct {
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Unit   string         `json:"unit"`
	Counts map[string]int `json:"counts"`
}

func (s *Server) handleScrobbles(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	events, err := s.scrobbles.ScrobblesInPeriod(r.Context(), r.PathValue("username"), start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	if events == nil {
		events = []scrobble.Scrobble{}
	}
	writeJSON(w, http.StatusOK, scrobblesResponse{Start: start, End: end, Scrobbles: events})
}

func (s *Server) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	start, end, limit, err := parseRankingParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	tracks, err := s.scrobbles.TopTracks(r.Context(), r.PathValue("username"), start, end, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	if tracks == nil {
		tracks = []scrobble.TrackCount{}
	}
	writeJSON(w, http.StatusOK, topTracksResponse{Start: start, End: end, Tracks: tracks})
}

func (s *Server) handleTopArtists(w http.ResponseWriter, r *http.Request) {
	start, end, limit, err := parseRankingParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	artists, err := s.scrobbles.TopArtists(r.Context(), r.PathValue("username"), start, end, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	if artists == nil {
		artists = []scrobble.ArtistCount{}
	}
	writeJSON(w, http.StatusOK, topArtistsResponse{Start: start, End: end, Artists: artists})
}

func (s *Server) handleTopAlbums(w http.ResponseWriter, r *http.Request) {
	start, end, limit, err := parseRankingParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	albums, err := s.scrobbles.TopAlbums(r.Context(), r.PathValue("username"), start, end, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	if albums == nil {
		albums = []scrobble.AlbumCount{}
	}
	writeJSON(w, http.StatusOK, topAlbumsResponse{Start: start, End: end, Albums: albums})
}

func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = string(scrobble.UnitDays)
	}

	counts, err := s.scrobbles.Frequency(r.Context(), r.PathValue("username"), start, end, unit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, frequencyResponse{
		Start:  start,
		End:    end,
		Unit:   unit,
		Counts: labelCounts(counts, unit),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.scrobbles.Refresh(r.Context(), r.PathValue("username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRankingParams(r *http.Request) (start, end time.Time, limit int, err error) {
	start, end, err = parseWindow(r)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid limit parameter")
		}
	}
	return start, end, limit, nil
}

// labelCounts keys buckets by calendar date for date-based units and by
// RFC 3339 timestamp for hour buckets.
func labelCounts(counts []scrobble.PeriodCount, unit string) map[string]int {
	layout := time.RFC3339
	if u, err := scrobble.ParseUnit(unit); err == nil && u.Calendar() {
		layout = "2006-01-02"
	}

	out := make(map[string]int, len(counts))
	for _, c := range counts {
		out[c.Bucket.Format(layout)] = c.Plays
	}
	return out
}
