package scrobble

import (
	"sort"
	"time"
)

// TrackCount pairs a track with the number of times it was played.
type TrackCount struct {
	Track Track `json:"track"`
	Plays int   `json:"played"`
}

// ArtistCount pairs an artist name with a play count.
type ArtistCount struct {
	Artist string `json:"artist"`
	Plays  int    `json:"played"`
}

// AlbumCount pairs an album (and the artist it was first seen with) with a
// play count.
type AlbumCount struct {
	Album  string `json:"album"`
	Artist string `json:"album artist"`
	Plays  int    `json:"played"`
}

// TopTracks ranks the n most played tracks between start and end. Tracks
// are grouped by full value equality, so field-wise identical tracks always
// count together. The sort is stable: on equal play counts the track whose
// first play appears earlier in the input ranks first, so identical input
// always yields identical output.
func TopTracks(events []Scrobble, start, end time.Time, n int) []TrackCount {
	if n <= 0 {
		return nil
	}

	plays := make(map[Track]int)
	var order []Track
	for _, s := range EventsInPeriod(events, start, end) {
		if _, seen := plays[s.Track]; !seen {
			order = append(order, s.Track)
		}
		plays[s.Track]++
	}

	ranked := make([]TrackCount, 0, len(order))
	for _, t := range order {
		ranked = append(ranked, TrackCount{Track: t, Plays: plays[t]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Plays > ranked[j].Plays
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopArtists aggregates the top-n track ranking by artist name. Note the
// derivation: plays are summed over the ranked tracks only, so an artist
// whose listens are spread across many tracks below the cutoff is counted
// lower than one dominant track would be. This matches the behaviour
// long-standing consumers of the API rely on.
func TopArtists(events []Scrobble, start, end time.Time, n int) []ArtistCount {
	plays := make(map[string]int)
	var order []string
	for _, tc := range TopTracks(events, start, end, n) {
		if _, seen := plays[tc.Track.Artist]; !seen {
			order = append(order, tc.Track.Artist)
		}
		plays[tc.Track.Artist] += tc.Plays
	}

	artists := make([]ArtistCount, 0, len(order))
	for _, name := range order {
		artists = append(artists, ArtistCount{Artist: name, Plays: plays[name]})
	}
	return artists
}

// TopAlbums aggregates the top-n track ranking by album name, with the same
// derivation caveat as TopArtists. The reported artist is the one the album
// was first ranked with.
func TopAlbums(events []Scrobble, start, end time.Time, n int) []AlbumCount {
	plays := make(map[string]int)
	artist := make(map[string]string)
	var order []string
	for _, tc := range TopTracks(events, start, end, n) {
		if _, seen := plays[tc.Track.Album]; !seen {
			order = append(order, tc.Track.Album)
			artist[tc.Track.Album] = tc.Track.Artist
		}
		plays[tc.Track.Album] += tc.Plays
	}

	albums := make([]AlbumCount, 0, len(order))
	for _, name := range order {
		albums = append(albums, AlbumCount{Album: name, Artist: artist[name], Plays: plays[name]})
	}
	return albums
}
