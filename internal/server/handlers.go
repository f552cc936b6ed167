package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/conneroisu/techviz/internal/middleware"
	"github.com/conneroisu/techviz/internal/render"
	"github.com/conneroisu/techviz/internal/topology"
	"github.com/conneroisu/techviz/internal/version"
)

// kindInfo describes one component kind in the topology response.
type kindInfo struct {
	Kind  topology.Kind     `json:"kind"`
	Title string            `json:"title"`
	Spec  topology.KindSpec `json:"spec"`
}

type topologyResponse struct {
	Layout topology.Layout          `json:"layout"`
	Kinds  []kindInfo               `json:"kinds"`
	Policy topology.AdjacencyPolicy `json:"policy"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowGet(w, r) {
		return
	}

	opts := render.DefaultPageOptions()
	opts.Nonce = middleware.NonceFromContext(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Page(opts).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render page")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	frame := s.engine.Latest()
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"clients":   s.hub.ConnectedClients(),
		"engine": map[string]interface{}{
			"running": s.engine.Running(),
			"tick":    frame.Tick,
			"nodes":   len(frame.Nodes),
		},
	}
	s.writeJSON(w, r, health)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	s.writeJSON(w, r, s.engine.Latest())
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	kinds := make([]kindInfo, 0, len(topology.AllKinds))
	for _, k := range topology.AllKinds {
		kinds = append(kinds, kindInfo{Kind: k, Title: render.KindTitle(k), Spec: k.Spec()})
	}
	s.writeJSON(w, r, topologyResponse{
		Layout: s.engine.Layout(),
		Kinds:  kinds,
		Policy: s.engine.Policy(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	opts := render.DefaultSceneOptions()
	if r.URL.Query().Get("labels") == "false" {
		opts.ShowLabels = false
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.Scene(s.engine.Latest(), opts).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render snapshot")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode response", "path", r.URL.Path)
	}
}

// allowGet rejects anything but GET and HEAD.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}
