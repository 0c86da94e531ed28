package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/citizenvoice/engagement-server/internal/mail"
	"github.com/citizenvoice/engagement-server/internal/models"
)

const organizationColumns = `id, name, services, location, email, tel, admin_id, created_at, updated_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Services, &o.Location, &o.Email, &o.Tel, &o.AdminID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// OrganizationService handles the root tier of the hierarchy.
type OrganizationService struct {
	db     *pgxpool.Pool
	mailer *mail.Mailer
	logger *zap.SugaredLogger
}

// NewOrganizationService creates a new organization service.
func NewOrganizationService(db *pgxpool.Pool, mailer *mail.Mailer, logger *zap.SugaredLogger) *OrganizationService {
	return &OrganizationService{db: db, mailer: mailer, logger: logger}
}

// Create adds an organization and auto-provisions its admin account with
// a temporary password mailed to the organization email.
func (s *OrganizationService) Create(ctx context.Context, req *models.CreateOrganizationRequest) (*models.Organization, *models.User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, nil, errInvalid("Name and email are required")
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE name = $1)`, req.Name).Scan(&exists); err != nil {
		return nil, nil, fmt.Errorf("check name: %w", err)
	}
	if exists {
		return nil, nil, errConflict("Organization already exists with this name")
	}

	temp, err := tempPassword()
	if err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	org := &models.Organization{
		ID:       uuid.New(),
		Name:     req.Name,
		Services: req.Services,
		Location: req.Location,
		Email:    req.Email,
		Tel:      req.Tel,
	}
	admin := &models.User{
		ID:             uuid.New(),
		FirstName:      "Admin",
		LastName:       req.Name,
		Email:          req.Email,
		Phone:          req.Tel,
		Role:           models.RoleOrgAdmin,
		OrganizationID: &org.ID,
		Active:         true,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO organizations (id, name, services, location, email, tel)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.Services, org.Location, org.Email, org.Tel)
	if err != nil {
		return nil, nil, fmt.Errorf("insert organization: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, phone, role, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, admin.ID, admin.FirstName, admin.LastName, admin.Email, string(hash), admin.Phone, admin.Role, org.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("insert org admin: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE organizations SET admin_id = $2 WHERE id = $1`, org.ID, admin.ID); err != nil {
		return nil, nil, fmt.Errorf("link admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	org.AdminID = &admin.ID

	s.mailer.Enqueue(mail.Message{
		To:      admin.Email,
		Subject: "Welcome to Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello,\n\nAn administrator account for %s has been created. Your temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			org.Name, temp),
	})

	s.logger.Infow("Organization created", "organization", org.ID, "name", org.Name)
	return org, admin, nil
}

// List returns all organizations.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	rows, err := s.db.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			s.logger.Debugw("Skipping organization row", "error", err)
			continue
		}
		orgs = append(orgs, *o)
	}
	return orgs, nil
}

// GetByID loads one organization.
func (s *OrganizationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	row := s.db.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
	o, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("Organization not found")
		}
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return o, nil
}

// Update applies a partial update; renames are checked for uniqueness.
func (s *OrganizationService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateOrganizationRequest) (*models.Organization, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != o.Name {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM organizations WHERE name = $1 AND id <> $2)`,
			*req.Name, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check name: %w", err)
		}
		if exists {
			return nil, errConflict("Organization name already in use")
		}
		o.Name = *req.Name
	}
	if req.Services != nil {
		o.Services = req.Services
	}
	if req.Location != nil {
		o.Location = *req.Location
	}
	if req.Email != nil {
		o.Email = *req.Email
	}
	if req.Tel != nil {
		o.Tel = *req.Tel
	}

	_, err = s.db.Exec(ctx, `
		UPDATE organizations
		SET name = $2, services = $3, location = $4, email = $5, tel = $6, updated_at = NOW()
		WHERE id = $1
	`, id, o.Name, o.Services, o.Location, o.Email, o.Tel)
	if err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes an organization. With dependents present the call is
// refused unless cascade is set, in which case districts, sectors,
// affiliated users and complaints all go in one transaction.
func (s *OrganizationService) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var districtCount, userCount, complaintCount int
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM districts WHERE organization_id = $1),
			(SELECT COUNT(*) FROM users WHERE organization_id = $1 AND id IS DISTINCT FROM $2),
			(SELECT COUNT(*) FROM complaints WHERE organization_id = $1)
	`, id, o.AdminID).Scan(&districtCount, &userCount, &complaintCount); err != nil {
		return fmt.Errorf("count dependents: %w", err)
	}

	if deleteBlocked(districtCount, userCount, complaintCount) && !cascade {
		return errConflict("Organization has districts, users or complaints; pass cascade=true to delete them too")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Unlink admin references before the users they point at are removed.
	steps := []string{
		`UPDATE organizations SET admin_id = NULL WHERE id = $1`,
		`UPDATE districts SET admin_id = NULL WHERE organization_id = $1`,
		`UPDATE sectors SET admin_id = NULL
			WHERE district_id IN (SELECT id FROM districts WHERE organization_id = $1)`,
		`DELETE FROM complaints WHERE organization_id = $1
			OR citizen_id IN (SELECT id FROM users WHERE organization_id = $1
				OR district_id IN (SELECT id FROM districts WHERE organization_id = $1)
				OR sector_id IN (SELECT id FROM sectors WHERE district_id IN
					(SELECT id FROM districts WHERE organization_id = $1)))`,
		`DELETE FROM users WHERE organization_id = $1
			OR district_id IN (SELECT id FROM districts WHERE organization_id = $1)
			OR sector_id IN (SELECT id FROM sectors WHERE district_id IN
				(SELECT id FROM districts WHERE organization_id = $1))`,
		`DELETE FROM sectors WHERE district_id IN (SELECT id FROM districts WHERE organization_id = $1)`,
		`DELETE FROM districts WHERE organization_id = $1`,
		`DELETE FROM organizations WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete organization: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Infow("Organization deleted", "organization", id, "cascade", cascade)
	return nil
}

// Districts returns the organization's districts with dependent counts.
func (s *OrganizationService) Districts(ctx context.Context, id uuid.UUID) ([]models.District, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, name, province, organization_id, admin_id, active, created_at, updated_at
		FROM districts WHERE organization_id = $1 ORDER BY name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list org districts: %w", err)
	}
	defer rows.Close()

	var districts []models.District
	for rows.Next() {
		var d models.District
		if err := rows.Scan(&d.ID, &d.Name, &d.Province, &d.OrganizationID, &d.AdminID, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			s.logger.Debugw("Skipping district row", "organization", id, "error", err)
			continue
		}
		districts = append(districts, d)
	}
	return districts, nil
}

// Statistics aggregates complaint statistics for the organization.
func (s *OrganizationService) Statistics(ctx context.Context, id uuid.UUID) (*models.NodeStats, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var districtCount, userCount, complaintCount int
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM districts WHERE organization_id = $1),
			(SELECT COUNT(*) FROM users WHERE organization_id = $1),
			(SELECT COUNT(*) FROM complaints WHERE organization_id = $1)
	`, id).Scan(&districtCount, &userCount, &complaintCount); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	byStatus, overTime, res, err := complaintStats(ctx, s.db, "organization_id", id)
	if err != nil {
		return nil, err
	}

	return &models.NodeStats{
		Name:            o.Name,
		DistrictCount:   districtCount,
		UserCount:       userCount,
		ComplaintCount:  complaintCount,
		ByStatus:        byStatus,
		OverTime:        overTime,
		ResolutionStats: res,
	}, nil
}
