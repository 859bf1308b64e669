// Package scrobbles exposes listening-history queries over a scrobble
// event source.
package scrobbles

import (
	"context"
	"time"

	"needledrop/internal/scrobble"
)

// DefaultLimit is the ranking size used when the caller asks for none.
const DefaultLimit = 5

// EventSource supplies a user's scrobble history, refreshed as needed.
type EventSource interface {
	Events(ctx context.Context, username string) ([]scrobble.Scrobble, error)
	Refresh(ctx context.Context, username string) error
}

// Service exposes listening-history workflows in an extensible manner.
type Service interface {
	ScrobblesInPeriod(ctx context.Context, username string, start, end time.Time) ([]scrobble.Scrobble, error)
	TopTracks(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.TrackCount, error)
	TopArtists(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.ArtistCount, error)
	TopAlbums(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.AlbumCount, error)
	Frequency(ctx context.Context, username string, start, end time.Time, unit string) ([]scrobble.PeriodCount, error)
	Refresh(ctx context.Context, username string) error
}

type service struct {
	source EventSource
}

// New wires a Service backed by the provided EventSource.
func New(source EventSource) Service {
	return &service{source: source}
}

func (s *service) ScrobblesInPeriod(ctx context.Context, username string, start, end time.Time) ([]scrobble.Scrobble, error) {
	events, err := s.events(ctx, username)
	if err != nil {
		return nil, err
	}
	return scrobble.EventsInPeriod(events, start, end), nil
}

func (s *service) TopTracks(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.TrackCount, error) {
	events, err := s.events(ctx, username)
	if err != nil {
		return nil, err
	}
	return scrobble.TopTracks(events, start, end, normalizeLimit(limit)), nil
}

func (s *service) TopArtists(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.ArtistCount, error) {
	events, err := s.events(ctx, username)
	if err != nil {
		return nil, err
	}
	return scrobble.TopArtists(events, start, end, normalizeLimit(limit)), nil
}

func (s *service) TopAlbums(ctx context.Context, username string, start, end time.Time, limit int) ([]scrobble.AlbumCount, error) {
	events, err := s.events(ctx, username)
	if err != nil {
		return nil, err
	}
	return scrobble.TopAlbums(events, start, end, normalizeLimit(limit)), nil
}

func (s *service) Frequency(ctx context.Context, username string, start, end time.Time, unit string) ([]scrobble.PeriodCount, error) {
	u, err := scrobble.ParseUnit(unit)
	if err != nil {
		return nil, err
	}
	events, err := s.events(ctx, username)
	if err != nil {
		return nil, err
	}
	return scrobble.CountInPeriod(events, start, end, u)
}

func (s *service) Refresh(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.source.Refresh(ctx, username)
}

func (s *service) events(ctx context.Context, username string) ([]scrobble.Scrobble, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.source.Events(ctx, username)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
