// Package playlist recognizes URLs that reference a collection of items
// rather than a single downloadable item, so the scheduler can expand them
// before enqueueing.
package playlist

import "regexp"

// Site identifies the platform a playlist pattern was matched against.
type Site string

const (
	YouTube    Site = "youtube"
	Spotify    Site = "spotify"
	SoundCloud Site = "soundcloud"
)

type pattern struct {
	site    Site
	re      *regexp.Regexp
	idGroup int
}

var patterns = []pattern{
	{YouTube, regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]+)`), 1},
	{Spotify, regexp.MustCompile(`open\.spotify\.com/playlist/([A-Za-z0-9]+)`), 1},
	{Spotify, regexp.MustCompile(`open\.spotify\.com/album/([A-Za-z0-9]+)`), 1},
	{SoundCloud, regexp.MustCompile(`soundcloud\.com/[^/]+/sets/([^/?]+)`), 1},
}

// Detection describes a recognized playlist reference.
type Detection struct {
	Site       Site
	PlaylistID string
}

// Detect reports whether rawURL references a playlist and, if so, which
// site and playlist identifier it names.
func Detect(rawURL string) (Detection, bool) {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(rawURL); m != nil {
			return Detection{Site: p.site, PlaylistID: m[p.idGroup]}, true
		}
	}
	return Detection{}, false
}

// IsPlaylist reports whether rawURL references a playlist.
func IsPlaylist(rawURL string) bool {
	_, ok := Detect(rawURL)
	return ok
}
