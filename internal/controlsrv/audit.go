package controlsrv

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"grabby-orchestrator/internal/eventbus"
)

// AccessLogEntry is one recorded control-surface request.
type AccessLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SourceIP  string    `json:"source_ip"`
	UserAgent string    `json:"user_agent"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	Details   string    `json:"details"`
}

// AuditLogger keeps a bounded in-memory ring of recent control-surface
// requests, mirrors each onto the event bus, and logs failures via slog.
type AuditLogger struct {
	mu      sync.Mutex
	entries []AccessLogEntry
	maxLen  int

	logger *slog.Logger
	bus    *eventbus.Bus
}

// NewAuditLogger builds an AuditLogger. bus may be nil.
func NewAuditLogger(logger *slog.Logger, bus *eventbus.Bus) *AuditLogger {
	return &AuditLogger{logger: logger, bus: bus, maxLen: 500}
}

// Log records a single control-surface request.
func (a *AuditLogger) Log(sourceIP, userAgent, action string, status int, details string) {
	entry := AccessLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		SourceIP:  sourceIP,
		UserAgent: userAgent,
		Action:    action,
		Status:    status,
		Details:   details,
	}

	a.mu.Lock()
	a.entries = append(a.entries, entry)
	if len(a.entries) > a.maxLen {
		a.entries = a.entries[len(a.entries)-a.maxLen:]
	}
	a.mu.Unlock()

	if a.bus != nil {
		a.bus.Publish(eventbus.EventType("control.request"), "controlsrv", map[string]any{
			"action": action, "status": status, "source_ip": sourceIP,
		})
	}

	if status >= 400 {
		a.logger.Warn("control request failed", "action", action, "status", status, "source_ip", sourceIP, "details", details)
	}
}

// Recent returns up to limit of the most recently recorded entries.
func (a *AuditLogger) Recent(limit int) []AccessLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}
	out := make([]AccessLogEntry, limit)
	copy(out, a.entries[len(a.entries)-limit:])
	return out
}
