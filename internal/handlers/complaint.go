package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/middleware"
	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// ComplaintHandler handles complaint-related HTTP endpoints
type ComplaintHandler struct {
	complaintSvc *services.ComplaintService
	logger       *zap.SugaredLogger
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(cs *services.ComplaintService, logger *zap.SugaredLogger) *ComplaintHandler {
	return &ComplaintHandler{complaintSvc: cs, logger: logger}
}

func urlID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// Submit handles POST /api/v1/complaints
func (h *ComplaintHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	var req models.CreateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" || req.Service == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: title, description, service")
		return
	}

	summary, err := h.complaintSvc.Create(r.Context(), user, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to submit complaint")
		return
	}

	h.logger.Infow("Complaint submitted", "id", summary.ID, "complaintId", summary.ComplaintID)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Complaint submitted successfully",
		"complaint": summary,
	})
}

// Get handles GET /api/v1/complaints/{id}
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid complaint id")
		return
	}

	complaint, err := h.complaintSvc.Details(r.Context(), user, id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load complaint")
		return
	}
	respondJSON(w, http.StatusOK, complaint)
}

// Mine handles GET /api/v1/complaints/my-complaints
func (h *ComplaintHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	complaints, err := h.complaintSvc.ListForCitizen(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load complaints")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"complaints": complaints,
		"count":      len(complaints),
	})
}

// SectorQueue handles GET /api/v1/complaints/sector
func (h *ComplaintHandler) SectorQueue(w http.ResponseWriter, r *http.Request) {
	h.queue(w, r, h.complaintSvc.ListForSector)
}

// DistrictQueue handles GET /api/v1/complaints/district
func (h *ComplaintHandler) DistrictQueue(w http.ResponseWriter, r *http.Request) {
	h.queue(w, r, h.complaintSvc.ListForDistrict)
}

// OrganizationQueue handles GET /api/v1/complaints/organization
func (h *ComplaintHandler) OrganizationQueue(w http.ResponseWriter, r *http.Request) {
	h.queue(w, r, h.complaintSvc.ListForOrganization)
}

func (h *ComplaintHandler) queue(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, admin *models.User) ([]models.Complaint, error)) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	complaints, err := list(r.Context(), user)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load complaints")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"complaints": complaints,
		"count":      len(complaints),
	})
}

// UpdateStatus handles PATCH /api/v1/complaints/{id}/status
func (h *ComplaintHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid complaint id")
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.complaintSvc.UpdateStatus(r.Context(), user, id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Status updated successfully",
		"complaint": summary,
	})
}

// AddComment handles POST /api/v1/complaints/{id}/comments
func (h *ComplaintHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid complaint id")
		return
	}

	var req models.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "Comment text is required")
		return
	}

	comment, err := h.complaintSvc.AddComment(r.Context(), user, id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to add comment")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Comment added successfully",
		"comment": comment,
	})
}

// Escalate handles POST /api/v1/complaints/{id}/escalate
func (h *ComplaintHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid complaint id")
		return
	}

	var req models.EscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	level, err := h.complaintSvc.Escalate(r.Context(), user, id, req.Reason)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to escalate complaint")
		return
	}

	h.logger.Infow("Complaint escalated", "id", id, "level", level, "by", user.ID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Complaint escalated successfully",
		"escalationLevel": level,
	})
}

// RemoveFile handles DELETE /api/v1/complaints/{id}/files
func (h *ComplaintHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid complaint id")
		return
	}

	var req models.RemoveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileURL == "" {
		respondError(w, http.StatusBadRequest, "fileUrl is required")
		return
	}

	if err := h.complaintSvc.RemoveFile(r.Context(), user, id, req.FileURL); err != nil {
		respondServiceError(w, h.logger, err, "Failed to remove file")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "File removed successfully"})
}
