// Package models defines the data structures used across the application.
// These map to the PostgreSQL schema in internal/database.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. Exactly one per user; admins carry a reference to the
// hierarchy node they administer, citizens carry free-text location fields.
const (
	RoleCitizen       = "citizen"
	RoleSectorAdmin   = "sectoradmin"
	RoleDistrictAdmin = "districtadmin"
	RoleOrgAdmin      = "orgadmin"
	RoleSuperAdmin    = "superadmin"
)

// ValidRole reports whether role is one of the known role strings.
func ValidRole(role string) bool {
	switch role {
	case RoleCitizen, RoleSectorAdmin, RoleDistrictAdmin, RoleOrgAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Complaint statuses.
const (
	StatusReceived   = "received"
	StatusInProgress = "in_progress"
	StatusNeedsInfo  = "needs_info"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
	StatusEscalated  = "escalated"
)

// Escalation levels, ordered sector < district < organization.
// A complaint's level only ever moves up the ladder.
const (
	LevelSector       = "sector"
	LevelDistrict     = "district"
	LevelOrganization = "organization"
)

// Notification types.
const (
	NotifComplaintUpdate = "complaint_update"
	NotifStatusChange    = "status_change"
	NotifComment         = "comment"
	NotifEscalation      = "escalation"
	NotifResolution      = "resolution"
	NotifSystem          = "system"
)

// Location is the free-text geographic affiliation carried by citizens.
// The sector name is resolved against the sectors table at complaint
// creation time.
type Location struct {
	Province string `json:"province,omitempty"`
	District string `json:"district,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Cell     string `json:"cell,omitempty"`
	Village  string `json:"village,omitempty"`
}

// User is an identity plus affiliation record.
type User struct {
	ID             uuid.UUID  `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	Phone          string     `json:"phone"`
	Role           string     `json:"role"`
	OrganizationID *uuid.UUID `json:"organization,omitempty"`
	DistrictID     *uuid.UUID `json:"district,omitempty"`
	SectorID       *uuid.UUID `json:"sector,omitempty"`
	Location       Location   `json:"location"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Organization is the root of the containment hierarchy. At most one
// admin user at a time; districts reference their organization.
type Organization struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Services  []string   `json:"services"`
	Location  string     `json:"location"`
	Email     string     `json:"email"`
	Tel       string     `json:"tel"`
	AdminID   *uuid.UUID `json:"admin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// District is the mid-tier hierarchy node. Name is unique within its
// organization.
type District struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Province       string     `json:"province"`
	OrganizationID uuid.UUID  `json:"organization"`
	AdminID        *uuid.UUID `json:"admin,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Sector is the leaf hierarchy node. Name is unique within its district.
type Sector struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	DistrictID uuid.UUID  `json:"district"`
	AdminID    *uuid.UUID `json:"admin,omitempty"`
	Active     bool       `json:"active"`
	Cells      []string   `json:"cells"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// EscalationDetails is the audit record stamped on a complaint when it is
// escalated. OriginalDistrict/OriginalSector snapshot the pre-escalation
// location before it goes stale.
type EscalationDetails struct {
	Level            string     `json:"level"`
	Reason           string     `json:"reason"`
	RequestedBy      string     `json:"requestedBy"`
	Timestamp        time.Time  `json:"timestamp"`
	OriginalDistrict *uuid.UUID `json:"originalDistrict,omitempty"`
	OriginalSector   *uuid.UUID `json:"originalSector,omitempty"`
}

// Comment is one entry in a complaint's append-only comment thread.
type Comment struct {
	ID          uuid.UUID `json:"id"`
	ComplaintID uuid.UUID `json:"complaintId"`
	Text        string    `json:"text"`
	UserID      uuid.UUID `json:"user"`
	Role        string    `json:"role"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Complaint is the ticket entity. Citizen and organization are immutable
// after creation; district/sector are weak references that survive
// hierarchy changes and escalation.
type Complaint struct {
	ID             uuid.UUID  `json:"id"`
	ComplaintID    string     `json:"complaintId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Service        string     `json:"service"`
	OrganizationID uuid.UUID  `json:"organization"`
	DistrictID     *uuid.UUID `json:"district,omitempty"`
	SectorID       *uuid.UUID `json:"sector,omitempty"`
	// SectorResolved is false when the citizen's free-text sector name had
	// no matching sector row and a placeholder reference was assigned.
	SectorResolved bool      `json:"sectorResolved"`
	CitizenID      uuid.UUID `json:"citizen"`
	Status         string    `json:"status"`

	EscalateToDistrict bool               `json:"escalateToDistrict"`
	EscalateToOrg      bool               `json:"escalateToOrg"`
	EscalationLevel    string             `json:"escalationLevel"`
	EscalationDetails  *EscalationDetails `json:"escalationDetails,omitempty"`

	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	AssignedAt *time.Time `json:"assignedAt,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	Resolution *string    `json:"resolution,omitempty"`

	Attachments []string  `json:"attachments,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Notification is a one-way fan-out record for a single recipient.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID uuid.UUID  `json:"recipient"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	Read        bool       `json:"read"`
	ComplaintID *uuid.UUID `json:"relatedComplaint,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
