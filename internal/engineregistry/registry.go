// Package engineregistry selects which external fetcher backend handles a
// given URL, among a fixed set of engines each with a memoized
// availability check.
package engineregistry

import "context"

// EngineName identifies a fetcher backend.
type EngineName string

const (
	YtDlpAria2 EngineName = "yt-dlp+aria2c"
	Streamlink EngineName = "streamlink"
	GalleryDL  EngineName = "gallery-dl"
	Ripme      EngineName = "ripme"
)

// Request describes a single fetch to hand to an engine.
type Request struct {
	URL          string
	OutputDir    string
	Quality      string
	Metadata     map[string]any
}

// Result is the normalized outcome of an engine's fetch attempt.
type Result struct {
	Status     string
	OutputPath string
	Title      string
	DurationS  float64
	Engine     EngineName
}

// ProgressFunc receives incremental progress updates from an engine while a
// fetch is in flight.
type ProgressFunc func(percent float64, speed, eta string)

// Engine is a single fetcher backend. Available is computed once and
// memoized; it is never reprobed during the process lifetime.
type Engine interface {
	Name() EngineName
	Available() bool
	CanHandle(url string) bool
	Fetch(ctx context.Context, req Request, onProgress ProgressFunc) (Result, error)
}

// preferenceOrder lists engines from most to least specialized; the
// general-purpose yt-dlp+aria2c engine is always the final fallback.
var preferenceOrder = []EngineName{Streamlink, GalleryDL, Ripme, YtDlpAria2}

// Registry holds the fixed set of known engines and selects among them.
type Registry struct {
	engines map[EngineName]Engine
}

// New builds a Registry from a set of engines. Engines not present in the
// given slice are simply absent from selection.
func New(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[EngineName]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

// Select returns the engine that should handle url. If preferred is
// non-empty, available, and reports it can handle the URL, it is used.
// Otherwise engines are tried in preferenceOrder and the first
// available, matching engine wins. Returns false if none match.
func (r *Registry) Select(url string, preferred EngineName) (Engine, bool) {
	if preferred != "" {
		if e, ok := r.engines[preferred]; ok && e.Available() && e.CanHandle(url) {
			return e, true
		}
	}
	for _, name := range preferenceOrder {
		e, ok := r.engines[name]
		if !ok || !e.Available() || !e.CanHandle(url) {
			continue
		}
		return e, true
	}
	return nil, false
}

// Available returns the subset of registered engines whose Available()
// reports true.
func (r *Registry) Available() []Engine {
	out := make([]Engine, 0, len(r.engines))
	for _, name := range preferenceOrder {
		if e, ok := r.engines[name]; ok && e.Available() {
			out = append(out, e)
		}
	}
	return out
}

// Get returns a registered engine by name.
func (r *Registry) Get(name EngineName) (Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}
