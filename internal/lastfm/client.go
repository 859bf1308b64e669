package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"needledrop/internal/scrobble"
)

const (
	defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
	pageLimit      = 200
	// Last.fm API error code for an unknown user.
	errCodeUserNotFound = 6
)

var (
	// ErrUserNotFound indicates the username does not exist on Last.fm.
	ErrUserNotFound = errors.New("last.fm user not found")
	// ErrFetchFailed wraps transient upstream failures; callers may retry.
	ErrFetchFailed = errors.New("fetching scrobbles from last.fm failed")
)

// Client talks to the Last.fm web API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewClient creates a Last.fm API client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		now:        time.Now,
	}
}

// Last.fm API response structures
type recentTracksResponse struct {
	RecentTracks *recentTracksPage `json:"recenttracks"`
	Error        int               `json:"error"`
	Message      string            `json:"message"`
}

type recentTracksPage struct {
	Track []recentTrack `json:"track"`
	Attr  pageAttr      `json:"@attr"`
}

type pageAttr struct {
	Page       string `json:"page"`
	TotalPages string `json:"totalPages"`
}

type recentTrack struct {
	Name   string     `json:"name"`
	Artist textNode   `json:"artist"`
	Album  textNode   `json:"album"`
	Date   *trackDate `json:"date,omitempty"`
	Attr   *trackAttr `json:"@attr,omitempty"`
}

type textNode struct {
	Text string `json:"#text"`
}

type trackDate struct {
	UTS string `json:"uts"`
}

type trackAttr struct {
	NowPlaying string `json:"nowplaying"`
}

// RecentTracks downloads the user's play history, oldest page last, and
// converts it to scrobbles. Zero from/to values leave the window unbounded,
// which fetches the full history.
func (c *Client) RecentTracks(ctx context.Context, username string, from, to time.Time) ([]scrobble.Scrobble, error) {
	var all []scrobble.Scrobble

	page, totalPages := 0, 1
	for page < totalPages {
		page++
		body, err := c.recentTracksPage(ctx, username, from, to, page)
		if err != nil {
			return nil, err
		}
		if body.RecentTracks == nil {
			return nil, fmt.Errorf("%w: response missing recenttracks", ErrFetchFailed)
		}

		all = append(all, c.parseTracks(username, body.RecentTracks.Track)...)

		if tp, err := strconv.Atoi(body.RecentTracks.Attr.TotalPages); err == nil {
			totalPages = tp
		} else {
			totalPages = page
		}
	}

	return all, nil
}

func (c *Client) parseTracks(username string, rows []recentTrack) []scrobble.Scrobble {
	var parsed []scrobble.Scrobble
	skipped := 0
	for _, row := range rows {
		track := scrobble.Track{
			Title:  row.Name,
			Artist: row.Artist.Text,
			Album:  row.Album.Text,
		}

		var unix int64
		switch {
		case row.Date != nil:
			v, err := strconv.ParseInt(row.Date.UTS, 10, 64)
			if err != nil {
				skipped++
				continue
			}
			unix = v
		case row.Attr != nil && row.Attr.NowPlaying == "true":
			// A currently-playing row has no timestamp; stamp it with the
			// fetch time.
			unix = c.now().Unix()
		default:
			skipped++
			continue
		}

		s, err := scrobble.New(track, unix)
		if err != nil {
			skipped++
			continue
		}
		parsed = append(parsed, s)
	}

	if skipped > 0 {
		log.Warn().
			Str("username", username).
			Int("skipped", skipped).
			Msg("discarded malformed scrobble rows")
	}
	return parsed
}

func (c *Client) recentTracksPage(ctx context.Context, username string, from, to time.Time, page int) (*recentTracksResponse, error) {
	params := url.Values{}
	params.Set("method", "user.getRecentTracks")
	params.Set("user", username)
	params.Set("limit", strconv.Itoa(pageLimit))
	params.Set("page", strconv.Itoa(page))
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)
	if !from.IsZero() {
		params.Set("from", strconv.FormatInt(from.Unix(), 10))
	}
	if !to.IsZero() {
		params.Set("to", strconv.FormatInt(to.Unix(), 10))
	}

	backoff := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		body, retryable, err := c.doPage(ctx, params)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// doPage performs a single request. The second return value reports whether
// the failure is transient and worth retrying.
func (c *Client) doPage(ctx context.Context, params url.Values) (*recentTracksResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	var body recentTracksResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, true, fmt.Errorf("%w: decode response: %v", ErrFetchFailed, err)
	}

	// Last.fm reports some errors in the payload with a 200 status.
	if body.Error == errCodeUserNotFound {
		return nil, false, fmt.Errorf("%w: %s", ErrUserNotFound, body.Message)
	}
	if body.Error != 0 {
		return nil, false, fmt.Errorf("%w: api error %d: %s", ErrFetchFailed, body.Error, body.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf("%w: unexpected status %s", ErrFetchFailed, resp.Status)
	}

	return &body, false, nil
}
