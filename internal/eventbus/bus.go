// Package eventbus implements the in-process publish/subscribe fabric that
// every other component uses to observe and react to lifecycle changes,
// plus a bounded history and an optional websocket fan-out.
package eventbus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler receives a dispatched event. A Handler's own errors are caught by
// the bus and logged; they never block or fail sibling handlers.
type Handler func(Event) error

// Filter inspects an event before it is recorded or dispatched. Returning
// false drops the event: it is not added to history and no handler sees it.
type Filter func(Event) bool

const defaultMaxHistory = 1000

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is the central event dispatcher. The zero value is not usable; build
// one with New.
type Bus struct {
	mu           sync.Mutex
	handlers     map[EventType][]subscription
	wildcard     []subscription
	nextSubID    uint64
	history      []Event
	maxHistory   int
	filters      []Filter
	logger       *slog.Logger
	wsFanout     *WSFanout
	stats        stats
}

type stats struct {
	published    uint64
	handled      uint64
	handlerErrs  uint64
	startedAt    time.Time
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithMaxHistory overrides the default bounded history length.
func WithMaxHistory(n int) Option {
	return func(b *Bus) { b.maxHistory = n }
}

// WithLogger attaches a structured logger used to report handler panics and
// errors. If omitted, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New constructs a ready-to-use Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers:   make(map[EventType][]subscription),
		maxHistory: defaultMaxHistory,
		logger:     slog.Default(),
		stats:      stats{startedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.wsFanout = newWSFanout(b.logger)
	return b
}

// Fanout exposes the websocket broadcaster so an HTTP layer can register
// upgraded connections with it.
func (b *Bus) Fanout() *WSFanout { return b.wsFanout }

// Subscribe registers handler for a single event type and returns an
// unsubscribe function.
func (b *Bus) Subscribe(t EventType, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: h})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers handler for every event type. It runs alongside
// the type-specific handlers of each event, each on its own goroutine, so
// no order between them is defined.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	b.wildcard = append(b.wildcard, subscription{id: id, handler: h})
	return func() { b.unsubscribeWildcard(id) }
}

func (b *Bus) unsubscribe(t EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[t]
	for i, s := range subs {
		if s.id == id {
			b.handlers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeWildcard(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.wildcard {
		if s.id == id {
			b.wildcard = append(b.wildcard[:i], b.wildcard[i+1:]...)
			return
		}
	}
}

// AddFilter installs a filter run on every Publish call, in installation
// order. Any filter returning false short-circuits the remaining chain.
func (b *Bus) AddFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters = append(b.filters, f)
}

// Publish builds and dispatches an event. source identifies the component
// emitting it. It returns the constructed Event's ID, or "" if a filter
// rejected the event.
func (b *Bus) Publish(t EventType, source string, data map[string]any) string {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.Lock()
	for _, f := range b.filters {
		if !f(ev) {
			b.mu.Unlock()
			return ""
		}
	}
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHistory {
		b.history = b.history[len(b.history)-b.maxHistory:]
	}
	b.stats.published++

	typed := append([]subscription(nil), b.handlers[t]...)
	wild := append([]subscription(nil), b.wildcard...)
	b.mu.Unlock()

	b.dispatch(ev, typed, wild)
	b.wsFanout.Broadcast(ev)
	return ev.ID
}

func (b *Bus) dispatch(ev Event, typed, wild []subscription) {
	all := make([]subscription, 0, len(typed)+len(wild))
	all = append(all, typed...)
	all = append(all, wild...)
	if len(all) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(all))
	for _, s := range all {
		go func(s subscription) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.recordHandlerError(ev, r)
				}
			}()
			if err := s.handler(ev); err != nil {
				b.recordHandlerError(ev, err)
				return
			}
			b.mu.Lock()
			b.stats.handled++
			b.mu.Unlock()
		}(s)
	}
	wg.Wait()
}

func (b *Bus) recordHandlerError(ev Event, cause any) {
	b.mu.Lock()
	b.stats.handlerErrs++
	b.mu.Unlock()
	b.logger.Warn("event handler error",
		"event_type", ev.Type, "event_id", ev.ID, "error", cause)
}

// History returns up to limit most-recent events, optionally filtered by
// type (empty string matches any type). limit<=0 means no limit.
func (b *Bus) History(t EventType, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for i := len(b.history) - 1; i >= 0; i-- {
		ev := b.history[i]
		if t != "" && ev.Type != t {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ClearHistory discards all recorded events.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}

// Stats is a point-in-time snapshot of bus activity, matching the shape
// exposed by the status surface.
type Stats struct {
	EventsPublished    uint64  `json:"events_published"`
	EventsHandled      uint64  `json:"events_handled"`
	HandlerErrors      uint64  `json:"handler_errors"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
	ActiveHandlers     int     `json:"active_handlers"`
	WildcardHandlers   int     `json:"wildcard_handlers"`
	WebsocketConns     int     `json:"websocket_connections"`
	EventHistorySize   int     `json:"event_history_size"`
	ActiveFilters      int     `json:"active_filters"`
}

// Stats returns a snapshot of bus counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	active := 0
	for _, subs := range b.handlers {
		active += len(subs)
	}
	return Stats{
		EventsPublished:  b.stats.published,
		EventsHandled:    b.stats.handled,
		HandlerErrors:    b.stats.handlerErrs,
		UptimeSeconds:    time.Since(b.stats.startedAt).Seconds(),
		ActiveHandlers:   active,
		WildcardHandlers: len(b.wildcard),
		WebsocketConns:   b.wsFanout.Count(),
		EventHistorySize: len(b.history),
		ActiveFilters:    len(b.filters),
	}
}

// Shutdown publishes SystemShutdown and closes all websocket connections.
func (b *Bus) Shutdown() {
	b.Publish(SystemShutdown, "eventbus", nil)
	b.wsFanout.CloseAll()
}
