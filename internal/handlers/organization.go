package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// OrganizationHandler handles organization management endpoints
type OrganizationHandler struct {
	orgSvc *services.OrganizationService
	logger *zap.SugaredLogger
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(os *services.OrganizationService, logger *zap.SugaredLogger) *OrganizationHandler {
	return &OrganizationHandler{orgSvc: os, logger: logger}
}

// Create handles POST /api/v1/organizations
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	org, admin, err := h.orgSvc.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create organization")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":      "Organization created successfully; admin credentials sent by email",
		"organization": org,
		"admin":        admin,
	})
}

// List handles GET /api/v1/organizations
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgSvc.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load organizations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
		"count":         len(orgs),
	})
}

// Get handles GET /api/v1/organizations/{id}
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	org, err := h.orgSvc.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load organization")
		return
	}
	respondJSON(w, http.StatusOK, org)
}

// Update handles PUT /api/v1/organizations/{id}
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	var req models.UpdateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	org, err := h.orgSvc.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update organization")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Organization updated successfully",
		"organization": org,
	})
}

// Delete handles DELETE /api/v1/organizations/{id}?cascade=true
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := h.orgSvc.Delete(r.Context(), id, cascade); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete organization")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Organization deleted successfully"})
}

// Districts handles GET /api/v1/organizations/{id}/districts
func (h *OrganizationHandler) Districts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	districts, err := h.orgSvc.Districts(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load districts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"districts": districts,
		"count":     len(districts),
	})
}

// Statistics handles GET /api/v1/organizations/{id}/statistics
func (h *OrganizationHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	stats, err := h.orgSvc.Statistics(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
