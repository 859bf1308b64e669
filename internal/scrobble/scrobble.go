package scrobble

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidScrobble signals a play event that cannot be represented:
	// a missing track or a timestamp outside the representable range.
	ErrInvalidScrobble = errors.New("invalid scrobble")
	// ErrUnsupportedUnit indicates an unrecognized aggregation granularity.
	ErrUnsupportedUnit = errors.New("unsupported unit")
)

// Track identifies a piece of music. Two tracks are the same if and only if
// title, artist and album all match exactly; the zero value is no track.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// Scrobble is a single recorded play: one track at one point in time.
// The timestamp is always held in UTC so that comparisons and bucket
// boundaries never depend on a local zone.
type Scrobble struct {
	Track Track     `json:"track"`
	Time  time.Time `json:"date"`
}

// maxTimestamp caps scrobble times at the end of year 9999, mirroring the
// range a calendar-formatted timestamp can express.
var maxTimestamp = time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)

// New builds a Scrobble from a track and a Unix timestamp in seconds.
func New(track Track, unix int64) (Scrobble, error) {
	if track == (Track{}) {
		return Scrobble{}, fmt.Errorf("%w: no track supplied", ErrInvalidScrobble)
	}
	if unix < 0 {
		return Scrobble{}, fmt.Errorf("%w: negative timestamp %d", ErrInvalidScrobble, unix)
	}
	ts := time.Unix(unix, 0).UTC()
	if !ts.Before(maxTimestamp) {
		return Scrobble{}, fmt.Errorf("%w: timestamp %d out of range", ErrInvalidScrobble, unix)
	}
	return Scrobble{Track: track, Time: ts}, nil
}

// Before reports whether s was played before other.
func (s Scrobble) Before(other Scrobble) bool {
	return s.Time.Before(other.Time)
}
