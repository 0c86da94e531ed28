package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// SectorHandler handles sector management endpoints
type SectorHandler struct {
	sectorSvc *services.SectorService
	logger    *zap.SugaredLogger
}

// NewSectorHandler creates a new sector handler
func NewSectorHandler(ss *services.SectorService, logger *zap.SugaredLogger) *SectorHandler {
	return &SectorHandler{sectorSvc: ss, logger: logger}
}

// Create handles POST /api/v1/sectors
func (h *SectorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sector, err := h.sectorSvc.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create sector")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Sector created successfully",
		"sector":  sector,
	})
}

// List handles GET /api/v1/sectors?district={id}
func (h *SectorHandler) List(w http.ResponseWriter, r *http.Request) {
	var districtID *uuid.UUID
	if raw := r.URL.Query().Get("district"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid district id")
			return
		}
		districtID = &id
	}

	page, limit := pageParams(r)
	sectors, meta, err := h.sectorSvc.List(r.Context(), districtID, r.URL.Query().Get("search"), page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load sectors")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sectors":    sectors,
		"pagination": meta,
	})
}

// Get handles GET /api/v1/sectors/{id}
func (h *SectorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sector id")
		return
	}

	sector, err := h.sectorSvc.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load sector")
		return
	}
	respondJSON(w, http.StatusOK, sector)
}

// Update handles PUT /api/v1/sectors/{id}
func (h *SectorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sector id")
		return
	}

	var req models.UpdateSectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sector, err := h.sectorSvc.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update sector")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Sector updated successfully",
		"sector":  sector,
	})
}

// Delete handles DELETE /api/v1/sectors/{id}?cascade=true
func (h *SectorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sector id")
		return
	}
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := h.sectorSvc.Delete(r.Context(), id, cascade); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete sector")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sector deleted successfully"})
}

// Citizens handles GET /api/v1/sectors/{id}/citizens
func (h *SectorHandler) Citizens(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sector id")
		return
	}

	page, limit := pageParams(r)
	citizens, meta, err := h.sectorSvc.Citizens(r.Context(), id, r.URL.Query().Get("search"), page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load citizens")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"citizens":   citizens,
		"pagination": meta,
	})
}

// Statistics handles GET /api/v1/sectors/{id}/statistics
func (h *SectorHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sector id")
		return
	}

	stats, err := h.sectorSvc.Statistics(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// AssignAdmin handles POST /api/v1/sectors/{id}/assign-admin
func (h *SectorHandler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sector id")
		return
	}

	var req models.AssignAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := h.sectorSvc.AssignAdmin(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to assign sector admin")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Sector admin assigned successfully; credentials sent by email",
		"admin":   admin,
	})
}
