// Package controlsrv exposes a minimal HTTP surface for observing the
// running daemon: queue/engine/rules status, event history, and a
// websocket stream of live events. It is a demonstration and operator
// convenience, not the orchestrator's primary interface — every decision
// it triggers still flows through the same components a caller could
// drive directly in-process.
package controlsrv

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"grabby-orchestrator/internal/engineregistry"
	"grabby-orchestrator/internal/eventbus"
	"grabby-orchestrator/internal/queue"
	"grabby-orchestrator/internal/rules"
)

// Server wires the demonstration HTTP/WS surface to the live components.
type Server struct {
	scheduler *queue.Scheduler
	registry  *engineregistry.Registry
	rules     *rules.Engine
	bus       *eventbus.Bus
	audit     *AuditLogger
	logger    *slog.Logger

	upgrader websocket.Upgrader
	router   chi.Router
}

// New builds a Server. Any of registry/rules may be nil if that subsystem
// isn't wired in this deployment.
func New(scheduler *queue.Scheduler, registry *engineregistry.Registry, rulesEngine *rules.Engine, bus *eventbus.Bus, logger *slog.Logger) *Server {
	s := &Server{
		scheduler: scheduler,
		registry:  registry,
		rules:     rulesEngine,
		bus:       bus,
		audit:     NewAuditLogger(logger, bus),
		logger:    logger,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.routes()
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.auditMiddleware)

	r.Get("/status", s.handleStatus)
	r.Get("/engines", s.handleEngines)
	r.Get("/rules", s.handleRules)
	r.Get("/events", s.handleEventHistory)
	r.Get("/ws", s.handleWebSocket)
	r.Post("/queue/items", s.handleAddItem)
	r.Post("/queue/{id}/pause", s.handlePause)
	r.Post("/queue/{id}/resume", s.handleResume)
	r.Post("/queue/{id}/cancel", s.handleCancel)

	s.router = r
}

func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.audit.Log(r.RemoteAddr, r.UserAgent(), r.Method+" "+r.URL.Path, rec.status, "")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the wrapped writer so the websocket upgrade
// still works behind the audit middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("controlsrv: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.scheduler.Status()
	out := map[string]any{
		"total":            snap.Total,
		"queue_length":     snap.QueueLength,
		"active_count":     snap.ActiveCount,
		"status_breakdown": snap.StatusBreakdown,
		"bandwidth_used":   snap.BandwidthUsed,
		"bandwidth_total":  snap.BandwidthTotal,
	}
	if s.bus != nil {
		out["event_bus"] = s.bus.Stats()
	}
	if s.rules != nil {
		out["rules"] = s.rules.Stats()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine registry not configured"})
		return
	}
	names := make([]string, 0)
	for _, e := range s.registry.Available() {
		names = append(names, string(e.Name()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": names})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if s.rules == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rules engine not configured"})
		return
	}
	writeJSON(w, http.StatusOK, s.rules.ListRules())
}

func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "event bus not configured"})
		return
	}
	writeJSON(w, http.StatusOK, s.bus.History("", 200))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "event bus not configured", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.bus.Fanout().Register(conn)

	go func() {
		defer func() {
			s.bus.Fanout().Unregister(conn)
			conn.Close()
		}()
		conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type addItemRequest struct {
	URL      string         `json:"url"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	priority := queue.Priority(req.Priority)
	if priority == 0 {
		priority = queue.Normal
	}
	it, err := s.scheduler.AddItem(req.URL, priority, req.Metadata)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.scheduler.Pause(id); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.scheduler.Resume(id); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.scheduler.Cancel(id); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
