package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/bionic/internal/bionic"
	"github.com/dgallion1/bionic/internal/settings"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cur, err := s.settings.Load(r.Context())
	if err != nil {
		jsonError(w, "load settings: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cur)
}

// handlePutSettings stores a settings update and pushes it to every page
// with a loaded engine. Absent keys keep their stored value.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	cur, err := s.settings.Load(ctx)
	if err != nil {
		jsonError(w, "load settings: "+err.Error(), http.StatusBadGateway)
		return
	}
	merged := cur.ToMap()
	for k, v := range patch {
		merged[k] = v
	}
	next := settings.FromMap(merged)
	if err := s.settings.Save(ctx, next); err != nil {
		jsonError(w, "save settings: "+err.Error(), http.StatusBadGateway)
		return
	}
	updated := s.pages.Broadcast(ctx, next, s.log)
	s.log.Info("settings updated", "enabled", next.Enabled, "ratio", next.BoldRatio, "pages", updated)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"settings":      next,
		"pages_updated": updated,
	})
}

type transformRequest struct {
	Text      string `json:"text"`
	BoldRatio int    `json:"boldRatio"`
}

// handleTransform returns bionic markup for a piece of text without a page.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ratio := settings.Settings{BoldRatio: req.BoldRatio}.Normalize().BoldRatio
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"markup":    bionic.Markup(req.Text, ratio),
		"boldRatio": ratio,
	})
}
