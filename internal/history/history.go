// Package history keeps a user's scrobble history fresh by combining the
// persisted copy with incremental fetches from Last.fm.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"needledrop/internal/scrobble"
	"needledrop/internal/store"
)

// DefaultFreshness is how old the persisted history may be before a read
// triggers an incremental fetch.
const DefaultFreshness = time.Minute

// Client downloads play history from the scrobble provider.
type Client interface {
	RecentTracks(ctx context.Context, username string, from, to time.Time) ([]scrobble.Scrobble, error)
}

// Store persists play history between fetches.
type Store interface {
	SaveScrobbles(ctx context.Context, username string, scrobbles []scrobble.Scrobble, fetchedAt time.Time) error
	ScrobblesByUser(ctx context.Context, username string) ([]scrobble.Scrobble, error)
	LastUpdate(ctx context.Context, username string) (time.Time, error)
}

// Service serves scrobble histories, fetching from the provider only when
// the persisted copy has gone stale.
type Service struct {
	client    Client
	store     Store
	freshness time.Duration
	now       func() time.Time

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewService wires a history service over the provider client and store.
// A freshness of zero falls back to DefaultFreshness.
func NewService(client Client, store Store, freshness time.Duration) *Service {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Service{
		client:    client,
		store:     store,
		freshness: freshness,
		now:       time.Now,
		users:     make(map[string]*sync.Mutex),
	}
}

// Events returns the user's complete scrobble history ordered by time,
// refreshing the persisted copy first if it is stale.
func (s *Service) Events(ctx context.Context, username string) ([]scrobble.Scrobble, error) {
	if err := s.Refresh(ctx, username); err != nil {
		return nil, err
	}
	events, err := s.store.ScrobblesByUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", username, err)
	}
	return events, nil
}

// Refresh brings the persisted history up to date. A user never seen before
// gets a full download; a known user gets the window since the last fetch.
// Concurrent refreshes for the same user are serialized so the provider is
// hit once.
func (s *Service) Refresh(ctx context.Context, username string) error {
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	now := s.now().UTC()

	watermark, err := s.store.LastUpdate(ctx, username)
	switch {
	case errors.Is(err, store.ErrUnknownUser):
		return s.fetchAndSave(ctx, username, time.Time{}, now)
	case err != nil:
		return fmt.Errorf("check history age for %s: %w", username, err)
	}

	if now.Sub(watermark) < s.freshness {
		return nil
	}
	return s.fetchAndSave(ctx, username, watermark, now)
}

func (s *Service) fetchAndSave(ctx context.Context, username string, from, now time.Time) error {
	fetched, err := s.client.RecentTracks(ctx, username, from, now)
	if err != nil {
		return err
	}

	log.Debug().
		Str("username", username).
		Int("count", len(fetched)).
		Bool("full", from.IsZero()).
		Msg("fetched scrobbles")

	if err := s.store.SaveScrobbles(ctx, username, fetched, now); err != nil {
		return fmt.Errorf("save history for %s: %w", username, err)
	}
	return nil
}

func (s *Service) userLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.users[username]
	if !ok {
		lock = &sync.Mutex{}
		s.users[username] = lock
	}
	return lock
}
