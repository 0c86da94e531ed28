package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/middleware"
	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// AuthHandler handles registration, login and password management.
type AuthHandler struct {
	authSvc *services.AuthService
	logger  *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(as *services.AuthService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{authSvc: as, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.authSvc.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to register user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, token, org, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to login")
		return
	}

	resp := map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	}
	if org != nil {
		resp["organization"] = org
	}
	respondJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// CreateAdmin handles POST /api/v1/auth/create-admin
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := h.authSvc.CreateAdmin(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create admin")
		return
	}

	h.logger.Infow("Admin account created", "id", admin.ID, "role", admin.Role)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Admin created successfully; credentials sent by email",
		"user":    admin,
	})
}

// ChangePassword handles PUT /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authSvc.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, h.logger, err, "Failed to change password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
// Always responds the same way so account existence is not revealed.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.authSvc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Errorw("Forgot password failed", "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a temporary password has been sent",
	})
}
