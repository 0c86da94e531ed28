package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// DistrictHandler handles district management endpoints
type DistrictHandler struct {
	districtSvc *services.DistrictService
	logger      *zap.SugaredLogger
}

// NewDistrictHandler creates a new district handler
func NewDistrictHandler(ds *services.DistrictService, logger *zap.SugaredLogger) *DistrictHandler {
	return &DistrictHandler{districtSvc: ds, logger: logger}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

// Create handles POST /api/v1/districts
func (h *DistrictHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDistrictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	district, admin, err := h.districtSvc.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create district")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "District created successfully; admin credentials sent by email",
		"district": district,
		"admin":    admin,
	})
}

// List handles GET /api/v1/districts
func (h *DistrictHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	districts, meta, err := h.districtSvc.List(r.Context(), r.URL.Query().Get("search"), page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load districts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"districts":  districts,
		"pagination": meta,
	})
}

// Get handles GET /api/v1/districts/{id}
func (h *DistrictHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid district id")
		return
	}

	district, err := h.districtSvc.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load district")
		return
	}
	respondJSON(w, http.StatusOK, district)
}

// Update handles PUT /api/v1/districts/{id}
func (h *DistrictHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid district id")
		return
	}

	var req models.UpdateDistrictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	district, err := h.districtSvc.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update district")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "District updated successfully",
		"district": district,
	})
}

// Delete handles DELETE /api/v1/districts/{id}?cascade=true
func (h *DistrictHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid district id")
		return
	}
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := h.districtSvc.Delete(r.Context(), id, cascade); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete district")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "District deleted successfully"})
}

// Sectors handles GET /api/v1/districts/{id}/sectors
func (h *DistrictHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid district id")
		return
	}

	page, limit := pageParams(r)
	sectors, meta, err := h.districtSvc.Sectors(r.Context(), id, r.URL.Query().Get("search"), page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load sectors")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sectors":    sectors,
		"pagination": meta,
	})
}

// Statistics handles GET /api/v1/districts/{id}/statistics
func (h *DistrictHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid district id")
		return
	}

	stats, err := h.districtSvc.Statistics(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// AssignAdmin handles POST /api/v1/districts/{id}/assign-admin
func (h *DistrictHandler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid district id")
		return
	}

	var req models.AssignAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := h.districtSvc.AssignAdmin(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to assign district admin")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "District admin assigned successfully; credentials sent by email",
		"admin":   admin,
	})
}
