package obslog

import (
	"context"
	"log/slog"
)

// eventPublisher is the subset of *eventbus.Bus this package depends on.
// It is defined locally, rather than importing internal/eventbus directly,
// so the logger package has no dependency on the component it may end up
// logging about.
type eventPublisher interface {
	Publish(eventType string, source string, data map[string]any) string
}

// eventSinkHandler republishes warning-and-above log records onto the
// event bus as system.error events, mirroring the audit trail a client
// observing the bus would otherwise only see via stdout.
type eventSinkHandler struct {
	bus   eventPublisher
	level slog.Level
	attrs []slog.Attr
}

// NewEventSinkHandler builds a slog.Handler that republishes records at or
// above level onto bus.
func NewEventSinkHandler(bus eventPublisher, level slog.Level) slog.Handler {
	return &eventSinkHandler{bus: bus, level: level}
}

func (h *eventSinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level && level >= slog.LevelWarn
}

func (h *eventSinkHandler) Handle(_ context.Context, record slog.Record) error {
	data := map[string]any{
		"message": record.Message,
		"level":   record.Level.String(),
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	h.bus.Publish("system.error", "obslog", data)
	return nil
}

func (h *eventSinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &eventSinkHandler{bus: h.bus, level: h.level}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *eventSinkHandler) WithGroup(_ string) slog.Handler {
	return h
}
