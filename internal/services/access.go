package services

import (
	"github.com/google/uuid"

	"github.com/citizenvoice/engagement-server/internal/models"
)

// Affiliation is an actor's resolved standing at evaluation time: their
// role plus the hierarchy node they administer, looked up fresh per
// request so affiliation changes take effect immediately.
type Affiliation struct {
	UserID         uuid.UUID
	Role           string
	SectorID       *uuid.UUID
	DistrictID     *uuid.UUID
	OrganizationID *uuid.UUID
}

// CanAccess decides whether the actor may read, comment on or escalate
// the complaint. Deny by default: any role not enumerated here is refused.
//
//   - citizen: own complaints only
//   - sectoradmin: complaints in their sector
//   - districtadmin: complaints in their district, or escalated to district
//   - orgadmin: complaints for their organization, or escalated to org
//   - superadmin: everything
func CanAccess(a Affiliation, c *models.Complaint) bool {
	switch a.Role {
	case models.RoleCitizen:
		return c.CitizenID == a.UserID

	case models.RoleSectorAdmin:
		return a.SectorID != nil && c.SectorID != nil && *a.SectorID == *c.SectorID

	case models.RoleDistrictAdmin:
		if c.EscalateToDistrict {
			return true
		}
		return a.DistrictID != nil && c.DistrictID != nil && *a.DistrictID == *c.DistrictID

	case models.RoleOrgAdmin:
		if c.EscalateToOrg {
			return true
		}
		return a.OrganizationID != nil && *a.OrganizationID == c.OrganizationID

	case models.RoleSuperAdmin:
		return true
	}

	return false
}
