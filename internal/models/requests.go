package models

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest is the body for POST /auth/register. Registration always
// creates a citizen; admin accounts are provisioned separately.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Province  string `json:"province"`
	District  string `json:"district"`
	Sector    string `json:"sector"`
	Cell      string `json:"cell"`
	Village   string `json:"village"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body for PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// CreateAdminRequest is the body for POST /auth/create-admin.
type CreateAdminRequest struct {
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Role           string     `json:"role"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	DistrictID     *uuid.UUID `json:"districtId,omitempty"`
	SectorID       *uuid.UUID `json:"sectorId,omitempty"`
}

// CreateComplaintRequest is the body for POST /complaints.
type CreateComplaintRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Service        string    `json:"service"`
	OrganizationID uuid.UUID `json:"organization"`
	Attachments    []string  `json:"documents,omitempty"`
}

// ComplaintSummary is the trimmed response returned on creation and
// status updates.
type ComplaintSummary struct {
	ID          uuid.UUID `json:"id"`
	ComplaintID string    `json:"complaintId,omitempty"`
	Title       string    `json:"title,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// UpdateStatusRequest is the body for PATCH /complaints/{id}/status.
type UpdateStatusRequest struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
}

// AddCommentRequest is the body for POST /complaints/{id}/comments.
type AddCommentRequest struct {
	Text        string   `json:"text"`
	Attachments []string `json:"files,omitempty"`
}

// EscalateRequest is the body for POST /complaints/{id}/escalate.
type EscalateRequest struct {
	Reason string `json:"reason"`
}

// RemoveFileRequest is the body for removing an attachment URL from a
// complaint and its comments.
type RemoveFileRequest struct {
	FileURL string `json:"fileUrl"`
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name     string   `json:"name"`
	Services []string `json:"services"`
	Location string   `json:"location"`
	Email    string   `json:"email"`
	Tel      string   `json:"tel"`
}

// UpdateOrganizationRequest is the body for PUT /organizations/{id}.
// Nil fields are left unchanged.
type UpdateOrganizationRequest struct {
	Name     *string  `json:"name,omitempty"`
	Services []string `json:"services,omitempty"`
	Location *string  `json:"location,omitempty"`
	Email    *string  `json:"email,omitempty"`
	Tel      *string  `json:"tel,omitempty"`
}

// CreateDistrictRequest is the body for POST /districts. Email and phone
// seed the auto-provisioned district admin account.
type CreateDistrictRequest struct {
	Name           string    `json:"name"`
	Province       string    `json:"province"`
	OrganizationID uuid.UUID `json:"organization"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
}

// UpdateDistrictRequest is the body for PUT /districts/{id}.
type UpdateDistrictRequest struct {
	Name     *string `json:"name,omitempty"`
	Province *string `json:"province,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// CreateSectorRequest is the body for POST /sectors.
type CreateSectorRequest struct {
	Name       string    `json:"name"`
	DistrictID uuid.UUID `json:"district"`
	Cells      []string  `json:"cells,omitempty"`
}

// UpdateSectorRequest is the body for PUT /sectors/{id}.
type UpdateSectorRequest struct {
	Name   *string  `json:"name,omitempty"`
	Active *bool    `json:"active,omitempty"`
	Cells  []string `json:"cells,omitempty"`
}

// AssignAdminRequest is the body for the assign-admin endpoints on
// districts and sectors.
type AssignAdminRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UpdateUserRequest is the body for PUT /users/{id}.
type UpdateUserRequest struct {
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Role      *string    `json:"role,omitempty"`
	District  *uuid.UUID `json:"district,omitempty"`
	Sector    *uuid.UUID `json:"sector,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}

// Page carries pagination metadata on list responses.
type Page struct {
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// StatusCount is one bucket of a complaints-by-status aggregation.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DailyCount is one day's submissions in a complaints-over-time series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ResolutionStats aggregates resolution times in days for resolved
// complaints under a hierarchy node.
type ResolutionStats struct {
	AvgDays float64 `json:"avgResolutionTime"`
	MinDays float64 `json:"minResolutionTime"`
	MaxDays float64 `json:"maxResolutionTime"`
}

// NodeStats is the statistics payload shared by the organization,
// district and sector statistics endpoints.
type NodeStats struct {
	Name            string          `json:"name"`
	SectorCount     int             `json:"sectorCount,omitempty"`
	DistrictCount   int             `json:"districtCount,omitempty"`
	UserCount       int             `json:"userCount"`
	ComplaintCount  int             `json:"complaintCount"`
	ByStatus        []StatusCount   `json:"complaintsByStatus"`
	OverTime        []DailyCount    `json:"complaintsOverTime"`
	ResolutionStats ResolutionStats `json:"resolutionStats"`
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime,omitempty"`
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
}
