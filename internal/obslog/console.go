package obslog

import (
	"io"
	"log/slog"
	"os"
)

// NewConsoleHandler builds the human-readable text handler used for
// stdout/stderr output.
func NewConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	if w == nil {
		w = os.Stdout
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// New builds the daemon's root logger: console output plus, if bus is
// non-nil, an event-bus sink. level gates both.
func New(bus eventPublisher, level slog.Level) *slog.Logger {
	handlers := []slog.Handler{NewConsoleHandler(os.Stdout, level)}
	if bus != nil {
		handlers = append(handlers, NewEventSinkHandler(bus, level))
	}
	return slog.New(NewFanout(handlers...))
}
