package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"needledrop/internal/lastfm"
	"needledrop/internal/scrobble"
)

type stubService struct {
	events    []scrobble.Scrobble
	tracks    []scrobble.TrackCount
	artists   []scrobble.ArtistCount
	albums    []scrobble.AlbumCount
	counts    []scrobble.PeriodCount
	err       error
	refreshed []string

	gotStart, gotEnd time.Time
	gotLimit         int
	gotUnit          string
	gotUsername      string
}

func (s *stubService) ScrobblesInPeriod(_ context.Context, username string, start, end time.Time) ([]scrobble.Scrobble, error) {
	s.gotUsername, s.gotStart, s.gotEnd = username, start, end
	return s.events, s.err
}

func (s *stubService) TopTracks(_ context.Context, username string, start, end time.Time, limit int) ([]scrobble.TrackCount, error) {
	s.gotUsername, s.gotStart, s.gotEnd, s.gotLimit = username, start, end, limit
	return s.tracks, s.err
}

func (s *stubService) TopArtists(_ context.Context, username string, start, end time.Time, limit int) ([]scrobble.ArtistCount, error) {
	s.gotUsername, s.gotStart, s.gotEnd, s.gotLimit = username, start, end, limit
	return s.artists, s.err
}

func (s *stubService) TopAlbums(_ context.Context, username string, start, end time.Time, limit int) ([]scrobble.AlbumCount, error) {
	s.gotUsername, s.gotStart, s.gotEnd, s.gotLimit = username, start, end, limit
	return s.albums, s.err
}

func (s *stubService) Frequency(_ context.Context, username string, start, end time.Time, unit string) ([]scrobble.PeriodCount, error) {
	s.gotUsername, s.gotStart, s.gotEnd, s.gotUnit = username, start, end, unit
	if s.err != nil {
		return nil, s.err
	}
	if _, err := scrobble.ParseUnit(unit); err != nil {
		return nil, err
	}
	return s.counts, nil
}

func (s *stubService) Refresh(_ context.Context, username string) error {
	s.refreshed = append(s.refreshed, username)
	return s.err
}

func doRequest(t *testing.T, svc ScrobblesService, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	New(svc).Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleScrobbles(t *testing.T) {
	play, err := scrobble.New(scrobble.Track{Title: "Rumors", Artist: "R3hab", Album: "The Wave"}, 1548244130)
	if err != nil {
		t.Fatalf("scrobble.New: %v", err)
	}
	svc := &stubService{events: []scrobble.Scrobble{play}}

	rec := doRequest(t, svc, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor?start=2019-01-23&end=2019-01-25")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotUsername != "sonofatailor" {
		t.Fatalf("expected username from path, got %q", svc.gotUsername)
	}
	wantStart := time.Date(2019, time.January, 23, 0, 0, 0, 0, time.UTC)
	if !svc.gotStart.Equal(wantStart) {
		t.Fatalf("expected bare date parsed as midnight UTC, got %v", svc.gotStart)
	}

	var body scrobblesResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Scrobbles) != 1 || body.Scrobbles[0].Track.Title != "Rumors" {
		t.Fatalf("unexpected body: %#v", body)
	}
}

func TestHandleScrobblesMissingWindow(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/api/v1/scrobbles/sonofatailor")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleScrobblesAcceptsRFC3339(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, svc, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor?start=2019-01-23T10:00:00Z&end=2019-01-23T12:00:00Z")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := time.Date(2019, time.January, 23, 10, 0, 0, 0, time.UTC)
	if !svc.gotStart.Equal(want) {
		t.Fatalf("expected %v, got %v", want, svc.gotStart)
	}
}

func TestHandleTopTracksPassesLimit(t *testing.T) {
	svc := &stubService{tracks: []scrobble.TrackCount{{Track: scrobble.Track{Title: "Rumors"}, Plays: 3}}}

	rec := doRequest(t, svc, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor/top-tracks?start=2019-01-23&end=2019-01-25&limit=10")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotLimit != 10 {
		t.Fatalf("expected limit 10, got %d", svc.gotLimit)
	}
}

func TestHandleTopTracksRejectsBadLimit(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor/top-tracks?start=2019-01-23&end=2019-01-25&limit=lots")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleTopAlbumsWireFormat(t *testing.T) {
	svc := &stubService{albums: []scrobble.AlbumCount{{Album: "The Wave", Artist: "R3hab", Plays: 68}}}

	rec := doRequest(t, svc, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor/top-albums?start=2019-01-23&end=2019-01-25")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Albums []map[string]any `json:"albums"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Albums) != 1 {
		t.Fatalf("expected 1 album, got %d", len(body.Albums))
	}
	if body.Albums[0]["album artist"] != "R3hab" {
		t.Fatalf(`expected "album artist" key, got %#v`, body.Albums[0])
	}
}

func TestHandleFrequencyLabelsDays(t *testing.T) {
	svc := &stubService{counts: []scrobble.PeriodCount{
		{Bucket: time.Date(2019, time.January, 23, 0, 0, 0, 0, time.UTC), Plays: 2},
		{Bucket: time.Date(2019, time.January, 24, 0, 0, 0, 0, time.UTC), Plays: 1},
	}}

	rec := doRequest(t, svc, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor/frequency?start=2019-01-23&end=2019-01-25&unit=days")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body frequencyResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Counts["2019-01-23"] != 2 || body.Counts["2019-01-24"] != 1 {
		t.Fatalf("unexpected counts: %#v", body.Counts)
	}
}

func TestHandleFrequencyLabelsHours(t *testing.T) {
	svc := &stubService{counts: []scrobble.PeriodCount{
		{Bucket: time.Date(2019, time.January, 23, 10, 0, 0, 0, time.UTC), Plays: 3},
	}}

	rec := doRequest(t, svc, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor/frequency?start=2019-01-23T10:00:00Z&end=2019-01-23T12:00:00Z&unit=hours")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body frequencyResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Counts["2019-01-23T10:00:00Z"] != 3 {
		t.Fatalf("unexpected counts: %#v", body.Counts)
	}
}

func TestHandleFrequencyUnsupportedUnit(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet,
		"/api/v1/scrobbles/sonofatailor/frequency?start=2019-01-23&end=2019-01-25&unit=fortnights")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUpdate(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, svc, http.MethodPost, "/api/v1/scrobbles/sonofatailor/update")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.refreshed) != 1 || svc.refreshed[0] != "sonofatailor" {
		t.Fatalf("expected refresh delegated, got %v", svc.refreshed)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown user", lastfm.ErrUserNotFound, http.StatusNotFound},
		{"upstream failure", lastfm.ErrFetchFailed, http.StatusBadGateway},
		{"bad unit", scrobble.ErrUnsupportedUnit, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, &stubService{err: tc.err}, http.MethodGet,
				"/api/v1/scrobbles/sonofatailor?start=2019-01-23&end=2019-01-25")
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}

			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
