package server

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type healthResponse struct {
	Status      string `json:"status"`
	RemoteCache string `json:"remoteCache"`
}

// handleHealthz reports liveness plus remote-cache reachability. A broken
// remote never fails the probe: the service degrades to memory-only caching.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := healthResponse{Status: "ok", RemoteCache: "disabled"}

	if s.store.HasRemote() {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			health.RemoteCache = "unreachable"
		} else {
			health.RemoteCache = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
