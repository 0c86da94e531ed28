package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/citizenvoice/engagement-server/internal/models"
)

func TestCanAccessCitizen(t *testing.T) {
	owner := uuid.New()
	c := &models.Complaint{CitizenID: owner, OrganizationID: uuid.New()}

	assert.True(t, CanAccess(Affiliation{UserID: owner, Role: models.RoleCitizen}, c))
	assert.False(t, CanAccess(Affiliation{UserID: uuid.New(), Role: models.RoleCitizen}, c))
}

func TestCanAccessSectorAdmin(t *testing.T) {
	sector := uuid.New()
	other := uuid.New()
	c := &models.Complaint{CitizenID: uuid.New(), OrganizationID: uuid.New(), SectorID: &sector}

	assert.True(t, CanAccess(Affiliation{UserID: uuid.New(), Role: models.RoleSectorAdmin, SectorID: &sector}, c))
	assert.False(t, CanAccess(Affiliation{UserID: uuid.New(), Role: models.RoleSectorAdmin, SectorID: &other}, c))

	// Admin with no sector affiliation sees nothing
	assert.False(t, CanAccess(Affiliation{UserID: uuid.New(), Role: models.RoleSectorAdmin}, c))

	// Complaint with an unresolved sector is invisible to sector admins
	noSector := &models.Complaint{CitizenID: uuid.New(), OrganizationID: uuid.New()}
	assert.False(t, CanAccess(Affiliation{UserID: uuid.New(), Role: models.RoleSectorAdmin, SectorID: &sector}, noSector))
}

func TestCanAccessDistrictAdmin(t *testing.T) {
	district := uuid.New()
	other := uuid.New()
	c := &models.Complaint{CitizenID: uuid.New(), OrganizationID: uuid.New(), DistrictID: &district}

	assert.True(t, CanAccess(Affiliation{Role: models.RoleDistrictAdmin, DistrictID: &district}, c))
	assert.False(t, CanAccess(Affiliation{Role: models.RoleDistrictAdmin, DistrictID: &other}, c))

	// Escalation to district opens access regardless of location
	escalated := &models.Complaint{CitizenID: uuid.New(), OrganizationID: uuid.New(), EscalateToDistrict: true}
	assert.True(t, CanAccess(Affiliation{Role: models.RoleDistrictAdmin, DistrictID: &other}, escalated))
	assert.True(t, CanAccess(Affiliation{Role: models.RoleDistrictAdmin}, escalated))
}

func TestCanAccessOrgAdmin(t *testing.T) {
	org := uuid.New()
	other := uuid.New()
	c := &models.Complaint{CitizenID: uuid.New(), OrganizationID: org}

	assert.True(t, CanAccess(Affiliation{Role: models.RoleOrgAdmin, OrganizationID: &org}, c))
	assert.False(t, CanAccess(Affiliation{Role: models.RoleOrgAdmin, OrganizationID: &other}, c))

	escalated := &models.Complaint{CitizenID: uuid.New(), OrganizationID: other, EscalateToOrg: true}
	assert.True(t, CanAccess(Affiliation{Role: models.RoleOrgAdmin, OrganizationID: &org}, escalated))
}

func TestCanAccessSuperAdmin(t *testing.T) {
	c := &models.Complaint{CitizenID: uuid.New(), OrganizationID: uuid.New()}
	assert.True(t, CanAccess(Affiliation{Role: models.RoleSuperAdmin}, c))
}

func TestCanAccessAdmitsEveryEscalationParty(t *testing.T) {
	sector := uuid.New()
	district := uuid.New()
	org := uuid.New()
	owner := uuid.New()
	c := &models.Complaint{
		CitizenID:      owner,
		OrganizationID: org,
		DistrictID:     &district,
		SectorID:       &sector,
	}

	// Escalation has no role gate on its route; the access policy alone
	// decides, and it must admit all of these.
	assert.True(t, CanAccess(Affiliation{UserID: owner, Role: models.RoleCitizen}, c))
	assert.True(t, CanAccess(Affiliation{Role: models.RoleSectorAdmin, SectorID: &sector}, c))
	assert.True(t, CanAccess(Affiliation{Role: models.RoleDistrictAdmin, DistrictID: &district}, c))
	assert.True(t, CanAccess(Affiliation{Role: models.RoleOrgAdmin, OrganizationID: &org}, c))
	assert.True(t, CanAccess(Affiliation{Role: models.RoleSuperAdmin}, c))

	// And still refuse an unrelated citizen
	assert.False(t, CanAccess(Affiliation{UserID: uuid.New(), Role: models.RoleCitizen}, c))
}

func TestCanAccessUnknownRoleDenied(t *testing.T) {
	owner := uuid.New()
	c := &models.Complaint{CitizenID: owner, OrganizationID: uuid.New()}

	// Deny by default, even for the complaint owner under a bogus role
	assert.False(t, CanAccess(Affiliation{UserID: owner, Role: "auditor"}, c))
	assert.False(t, CanAccess(Affiliation{UserID: owner, Role: ""}, c))
}
