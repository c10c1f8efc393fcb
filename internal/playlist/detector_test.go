package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectYouTubePlaylist(t *testing.T) {
	d, ok := Detect("https://www.youtube.com/watch?v=abc123&list=PLxyz789")
	require.True(t, ok)
	assert.Equal(t, YouTube, d.Site)
	assert.Equal(t, "PLxyz789", d.PlaylistID)
}

func TestDetectSpotifyAlbum(t *testing.T) {
	d, ok := Detect("https://open.spotify.com/album/3hB5DxR")
	require.True(t, ok)
	assert.Equal(t, Spotify, d.Site)
	assert.Equal(t, "3hB5DxR", d.PlaylistID)
}

func TestDetectSoundCloudSet(t *testing.T) {
	d, ok := Detect("https://soundcloud.com/someartist/sets/my-album")
	require.True(t, ok)
	assert.Equal(t, SoundCloud, d.Site)
	assert.Equal(t, "my-album", d.PlaylistID)
}

func TestNonPlaylistURL(t *testing.T) {
	_, ok := Detect("https://www.youtube.com/watch?v=abc123")
	assert.False(t, ok)
	assert.False(t, IsPlaylist("https://example.com/video/1"))
}
