package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quietmesh/rfcoord/internal/registry"
)

// handleListEntities returns every registered entity.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.List(r.Context())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": records,
		"count":    len(records),
	})
}

// handleGetEntity returns one entity by registry id.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleAssignArea places an entity in an area. The entity is addressed
// by registry id; the body carries the area.
func (s *Server) handleAssignArea(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AreaID string `json:"area_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "malformed request body: "+err.Error())
		return
	}
	if body.AreaID == "" {
		writeBadRequest(w, "area_id is required")
		return
	}

	rec, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	if err := s.registry.AssignArea(r.Context(), rec.DeviceID, body.AreaID); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
