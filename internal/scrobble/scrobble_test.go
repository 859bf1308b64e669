package scrobble

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewScrobble(t *testing.T) {
	track := Track{Title: "Roygbiv", Artist: "Boards of Canada", Album: "Music Has the Right to Children"}

	tests := []struct {
		name    string
		track   Track
		unix    int64
		wantErr bool
	}{
		{name: "valid", track: track, unix: 1548244130},
		{name: "epoch", track: track, unix: 0},
		{name: "missing track", track: Track{}, unix: 1548244130, wantErr: true},
		{name: "negative timestamp", track: track, unix: -1, wantErr: true},
		{name: "timestamp past year 9999", track: track, unix: 300000000000, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.track, tc.unix)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidScrobble) {
					t.Fatalf("expected ErrInvalidScrobble, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Track != tc.track {
				t.Fatalf("unexpected track: %#v", s.Track)
			}
			if got := s.Time; !got.Equal(time.Unix(tc.unix, 0)) || got.Location() != time.UTC {
				t.Fatalf("expected UTC time for unix %d, got %v", tc.unix, got)
			}
		})
	}
}

func TestTrackEqualityIsFieldwise(t *testing.T) {
	a := Track{Title: "Teardrop", Artist: "Massive Attack", Album: "Mezzanine"}
	b := Track{Title: "Teardrop", Artist: "Massive Attack", Album: "Mezzanine"}
	if a != b {
		t.Fatal("identical field values must compare equal")
	}

	c := b
	c.Album = "mezzanine"
	if a == c {
		t.Fatal("track comparison must be case-sensitive")
	}
}

func TestScrobbleJSONWireFormat(t *testing.T) {
	s, err := New(Track{Title: "Angel", Artist: "Massive Attack", Album: "Mezzanine"}, 1548244130)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire struct {
		Track struct {
			Title  string `json:"title"`
			Artist string `json:"artist"`
			Album  string `json:"album"`
		} `json:"track"`
		Date time.Time `json:"date"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire.Track.Title != "Angel" || wire.Track.Artist != "Massive Attack" || wire.Track.Album != "Mezzanine" {
		t.Fatalf("unexpected track payload: %#v", wire.Track)
	}
	if !wire.Date.Equal(s.Time) {
		t.Fatalf("expected date %v, got %v", s.Time, wire.Date)
	}
}
