// Package http exposes a read-only diagnostics surface over the peer
// registry: a health check, a peer listing, and a live per-peer event tail
// over a websocket. There is no admin-only auth layer here deliberately --
// GUI/SQLite persistence/hostile-IP tables are all out of scope (spec.md §1
// Non-goals), and this surface is meant for operators on a trusted network,
// the same posture the teacher's ws handler documents inline ("adjust for
// production").
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/netmesh/peerq/internal/peer"
	"github.com/netmesh/peerq/internal/registry"
)

// Server wraps a chi router bound to a Registry.
type Server struct {
	logger   *slog.Logger
	registry *registry.Registry
	upgrader websocket.Upgrader
	router   chi.Router
}

// NewServer builds the diagnostics HTTP surface.
func NewServer(reg *registry.Registry, logger *slog.Logger) *Server {
	s := &Server{
		logger:   logger,
		registry: reg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/peers", s.handleListPeers)
	r.Get("/peers/{peerID}", s.handleGetPeer)
	r.Get("/peers/{peerID}/events", s.handlePeerEvents)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"peers":  s.registry.Count(),
	})
}

type peerSummary struct {
	ID    uuid.UUID `json:"id"`
	Bytes int       `json:"bytes"`
	Count int       `json:"count"`
	Zone  string    `json:"zone"`
	Swift bool      `json:"swift"`
}

func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	summaries := make([]peerSummary, 0, s.registry.Count())
	s.registry.Range(func(id peer.ID, p *peer.Peer) bool {
		stats, ok := p.Stats()
		if !ok {
			return true
		}
		summaries = append(summaries, peerSummary{
			ID:    id,
			Bytes: stats.Bytes,
			Count: stats.Count,
			Zone:  stats.Zone.String(),
			Swift: stats.Swift,
		})
		return true
	})
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetPeer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "peerID"))
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}
	p, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "peer not found", http.StatusNotFound)
		return
	}
	stats, ok := p.Stats()
	if !ok {
		http.Error(w, "peer is shutting down", http.StatusGone)
		return
	}
	writeJSON(w, http.StatusOK, peerSummary{
		ID:    id,
		Bytes: stats.Bytes,
		Count: stats.Count,
		Zone:  stats.Zone.String(),
		Swift: stats.Swift,
	})
}

// handlePeerEvents upgrades to a websocket and tails the registry's event
// bus, filtering to the requested peer. Grounded on the teacher's
// handler/ws/delivery.go pump loop: upgrade, subscribe, write-loop until the
// request context ends or the send fails.
func (s *Server) handlePeerEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "peerID"))
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("diagnostics ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	events := make(chan peer.Event, 32)
	unsubscribe := s.registry.Bus().Subscribe(events)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Peer != id {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("diagnostics ws send failed", "error", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
