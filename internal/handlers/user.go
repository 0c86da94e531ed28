package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userSvc *services.UserService
	logger  *zap.SugaredLogger
}

// NewUserHandler creates a new user handler
func NewUserHandler(us *services.UserService, logger *zap.SugaredLogger) *UserHandler {
	return &UserHandler{userSvc: us, logger: logger}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.UserFilter{
		Role:   q.Get("role"),
		Search: q.Get("search"),
	}
	if raw := q.Get("district"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid district id")
			return
		}
		filter.DistrictID = &id
	}
	if raw := q.Get("sector"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sector id")
			return
		}
		filter.SectorID = &id
	}

	page, limit := pageParams(r)
	users, meta, err := h.userSvc.List(r.Context(), filter, page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users":      users,
		"pagination": meta,
	})
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := h.userSvc.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Update handles PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userSvc.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"user":    user,
	})
}

// Delete handles DELETE /api/v1/users/{id}
// Users owning complaints are deactivated instead of removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	deactivated, err := h.userSvc.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete user")
		return
	}

	msg := "User deleted successfully"
	if deactivated {
		msg = "User has complaints on record and was deactivated instead of deleted"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     msg,
		"deactivated": deactivated,
	})
}

// ResetPassword handles POST /api/v1/users/{id}/reset-password
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.userSvc.ResetPassword(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to reset password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Temporary password sent to the user's email",
	})
}
