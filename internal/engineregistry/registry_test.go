package engineregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name      EngineName
	available bool
	handles   func(string) bool
}

func (f *fakeEngine) Name() EngineName      { return f.name }
func (f *fakeEngine) Available() bool       { return f.available }
func (f *fakeEngine) CanHandle(url string) bool {
	return f.handles(url)
}
func (f *fakeEngine) Fetch(context.Context, Request, ProgressFunc) (Result, error) {
	return Result{Engine: f.name}, nil
}

func TestSelectPrefersSpecializedEngineOverGeneralFallback(t *testing.T) {
	r := New(
		&fakeEngine{name: YtDlpAria2, available: true, handles: func(string) bool { return true }},
		&fakeEngine{name: Streamlink, available: true, handles: func(u string) bool { return MatchesAny(Streamlink, u) }},
	)

	e, ok := r.Select("https://twitch.tv/someone", "")
	require.True(t, ok)
	assert.Equal(t, Streamlink, e.Name())
}

func TestSelectFallsBackToGeneralEngine(t *testing.T) {
	r := New(
		&fakeEngine{name: YtDlpAria2, available: true, handles: func(string) bool { return true }},
		&fakeEngine{name: Streamlink, available: true, handles: func(u string) bool { return MatchesAny(Streamlink, u) }},
	)

	e, ok := r.Select("https://www.youtube.com/watch?v=abc", "")
	require.True(t, ok)
	assert.Equal(t, YtDlpAria2, e.Name())
}

func TestSelectHonorsPreferredEngineWhenAvailableAndCapable(t *testing.T) {
	r := New(
		&fakeEngine{name: YtDlpAria2, available: true, handles: func(string) bool { return true }},
		&fakeEngine{name: GalleryDL, available: true, handles: func(u string) bool { return MatchesAny(GalleryDL, u) }},
	)

	e, ok := r.Select("https://instagram.com/p/xyz", GalleryDL)
	require.True(t, ok)
	assert.Equal(t, GalleryDL, e.Name())
}

func TestSelectIgnoresPreferredEngineWhenUnavailable(t *testing.T) {
	r := New(
		&fakeEngine{name: YtDlpAria2, available: true, handles: func(string) bool { return true }},
		&fakeEngine{name: GalleryDL, available: false, handles: func(u string) bool { return MatchesAny(GalleryDL, u) }},
	)

	e, ok := r.Select("https://instagram.com/p/xyz", GalleryDL)
	require.True(t, ok)
	assert.Equal(t, YtDlpAria2, e.Name(), "unavailable preferred engine should fall back to the normal order")
}

func TestSelectReturnsFalseWhenNoEngineMatches(t *testing.T) {
	r := New(&fakeEngine{name: Ripme, available: true, handles: func(u string) bool { return MatchesAny(Ripme, u) }})
	_, ok := r.Select("https://example.com/nothing-matches", "")
	assert.False(t, ok)
}

func TestAvailableFiltersUnavailableEngines(t *testing.T) {
	r := New(
		&fakeEngine{name: YtDlpAria2, available: true, handles: func(string) bool { return true }},
		&fakeEngine{name: Ripme, available: false, handles: func(string) bool { return true }},
	)
	avail := r.Available()
	require.Len(t, avail, 1)
	assert.Equal(t, YtDlpAria2, avail[0].Name())
}
