package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/citizenvoice/engagement-server/internal/mail"
	"github.com/citizenvoice/engagement-server/internal/models"
)

const districtColumns = `id, name, province, organization_id, admin_id, active, created_at, updated_at`

func scanDistrict(row pgx.Row) (*models.District, error) {
	var d models.District
	err := row.Scan(&d.ID, &d.Name, &d.Province, &d.OrganizationID, &d.AdminID, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DistrictService handles the mid tier of the hierarchy.
type DistrictService struct {
	db     *pgxpool.Pool
	mailer *mail.Mailer
	logger *zap.SugaredLogger
}

// NewDistrictService creates a new district service.
func NewDistrictService(db *pgxpool.Pool, mailer *mail.Mailer, logger *zap.SugaredLogger) *DistrictService {
	return &DistrictService{db: db, mailer: mailer, logger: logger}
}

// Create adds a district under an organization and provisions its admin
// account in the same transaction.
func (s *DistrictService) Create(ctx context.Context, req *models.CreateDistrictRequest) (*models.District, *models.User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, nil, errInvalid("Name and admin email are required")
	}

	var orgExists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, req.OrganizationID).Scan(&orgExists); err != nil {
		return nil, nil, fmt.Errorf("check organization: %w", err)
	}
	if !orgExists {
		return nil, nil, errNotFound("Organization not found")
	}

	var nameTaken bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM districts WHERE organization_id = $1 AND name = $2)`,
		req.OrganizationID, req.Name).Scan(&nameTaken); err != nil {
		return nil, nil, fmt.Errorf("check name: %w", err)
	}
	if nameTaken {
		return nil, nil, errConflict("District with this name already exists in this organization")
	}

	temp, err := tempPassword()
	if err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	district := &models.District{
		ID:             uuid.New(),
		Name:           req.Name,
		Province:       req.Province,
		OrganizationID: req.OrganizationID,
	}
	admin := &models.User{
		ID:             uuid.New(),
		FirstName:      "Admin",
		LastName:       req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Role:           models.RoleDistrictAdmin,
		OrganizationID: &req.OrganizationID,
		DistrictID:     &district.ID,
		Active:         true,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO districts (id, name, province, organization_id, active)
		VALUES ($1, $2, $3, $4, FALSE)
	`, district.ID, district.Name, district.Province, district.OrganizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("insert district: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, phone, role, organization_id, district_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, admin.ID, admin.FirstName, admin.LastName, admin.Email, string(hash), admin.Phone, admin.Role,
		admin.OrganizationID, admin.DistrictID)
	if err != nil {
		return nil, nil, fmt.Errorf("insert district admin: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE districts SET admin_id = $2 WHERE id = $1`, district.ID, admin.ID); err != nil {
		return nil, nil, fmt.Errorf("link admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	district.AdminID = &admin.ID

	s.mailer.Enqueue(mail.Message{
		To:      admin.Email,
		Subject: "Welcome to Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello,\n\nAn administrator account for %s district has been created. Your temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			district.Name, temp),
	})

	s.logger.Infow("District created", "district", district.ID, "name", district.Name)
	return district, admin, nil
}

// List returns a page of districts with dependent counts, searchable by
// name.
func (s *DistrictService) List(ctx context.Context, search string, page, limit int) ([]map[string]interface{}, *models.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := ""
	args := []interface{}{}
	if search != "" {
		where = `WHERE d.name ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM districts d `+where, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("count districts: %w", err)
	}

	offsetArg := fmt.Sprintf("$%d", len(args)+1)
	limitArg := fmt.Sprintf("$%d", len(args)+2)
	args = append(args, (page-1)*limit, limit)

	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.name, d.province, d.organization_id, d.admin_id, d.active, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM sectors s WHERE s.district_id = d.id),
			(SELECT COUNT(*) FROM users u WHERE u.district_id = d.id),
			(SELECT COUNT(*) FROM complaints c WHERE c.district_id = d.id)
		FROM districts d `+where+`
		ORDER BY d.name OFFSET `+offsetArg+` LIMIT `+limitArg,
		args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list districts: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var d models.District
		var sectorCount, userCount, complaintCount int
		if err := rows.Scan(&d.ID, &d.Name, &d.Province, &d.OrganizationID, &d.AdminID, &d.Active,
			&d.CreatedAt, &d.UpdatedAt, &sectorCount, &userCount, &complaintCount); err != nil {
			s.logger.Debugw("Skipping district row", "error", err)
			continue
		}
		out = append(out, map[string]interface{}{
			"district":       d,
			"sectorCount":    sectorCount,
			"userCount":      userCount,
			"complaintCount": complaintCount,
		})
	}

	meta := &models.Page{
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}
	return out, meta, nil
}

// GetByID loads one district.
func (s *DistrictService) GetByID(ctx context.Context, id uuid.UUID) (*models.District, error) {
	row := s.db.QueryRow(ctx, `SELECT `+districtColumns+` FROM districts WHERE id = $1`, id)
	d, err := scanDistrict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("District not found")
		}
		return nil, fmt.Errorf("load district: %w", err)
	}
	return d, nil
}

// Update applies a partial update. Renames are checked for uniqueness in
// the organization; admin contact changes propagate to the admin user.
func (s *DistrictService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateDistrictRequest) (*models.District, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != d.Name {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM districts WHERE organization_id = $1 AND name = $2 AND id <> $3)`,
			d.OrganizationID, *req.Name, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check name: %w", err)
		}
		if exists {
			return nil, errConflict("District name already exists in this organization")
		}
		d.Name = *req.Name
	}
	if req.Province != nil {
		d.Province = *req.Province
	}
	if req.Active != nil {
		d.Active = *req.Active
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE districts SET name = $2, province = $3, active = $4, updated_at = NOW() WHERE id = $1
	`, id, d.Name, d.Province, d.Active)
	if err != nil {
		return nil, fmt.Errorf("update district: %w", err)
	}

	if d.AdminID != nil {
		if req.Email != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`, *d.AdminID, *req.Email); err != nil {
				return nil, fmt.Errorf("update admin email: %w", err)
			}
		}
		if req.Phone != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE users SET phone = $2, updated_at = NOW() WHERE id = $1`, *d.AdminID, *req.Phone); err != nil {
				return nil, fmt.Errorf("update admin phone: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a district; refused with dependents present unless
// cascade is set.
func (s *DistrictService) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var sectorCount, userCount, complaintCount int
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sectors WHERE district_id = $1),
			(SELECT COUNT(*) FROM users WHERE district_id = $1 AND id IS DISTINCT FROM $2),
			(SELECT COUNT(*) FROM complaints WHERE district_id = $1)
	`, id, d.AdminID).Scan(&sectorCount, &userCount, &complaintCount); err != nil {
		return fmt.Errorf("count dependents: %w", err)
	}

	if deleteBlocked(sectorCount, userCount, complaintCount) && !cascade {
		return errConflict("District has sectors, users or complaints; pass cascade=true to delete them too")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`UPDATE districts SET admin_id = NULL WHERE id = $1`,
		`UPDATE sectors SET admin_id = NULL WHERE district_id = $1`,
		`DELETE FROM complaints WHERE district_id = $1
			OR sector_id IN (SELECT id FROM sectors WHERE district_id = $1)
			OR citizen_id IN (SELECT id FROM users WHERE district_id = $1
				OR sector_id IN (SELECT id FROM sectors WHERE district_id = $1))`,
		`DELETE FROM users WHERE district_id = $1
			OR sector_id IN (SELECT id FROM sectors WHERE district_id = $1)`,
		`DELETE FROM sectors WHERE district_id = $1`,
		`DELETE FROM districts WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete district: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Infow("District deleted", "district", id, "cascade", cascade)
	return nil
}

// Sectors returns a page of the district's sectors with dependent counts.
func (s *DistrictService) Sectors(ctx context.Context, id uuid.UUID, search string, page, limit int) ([]map[string]interface{}, *models.Page, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := `WHERE s.district_id = $1`
	args := []interface{}{id}
	if search != "" {
		where += ` AND s.name ILIKE $2`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM sectors s `+where, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("count sectors: %w", err)
	}

	offsetArg := fmt.Sprintf("$%d", len(args)+1)
	limitArg := fmt.Sprintf("$%d", len(args)+2)
	args = append(args, (page-1)*limit, limit)

	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.name, s.district_id, s.admin_id, s.active, s.cells, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM users u WHERE u.sector_id = s.id),
			(SELECT COUNT(*) FROM complaints c WHERE c.sector_id = s.id)
		FROM sectors s `+where+`
		ORDER BY s.name OFFSET `+offsetArg+` LIMIT `+limitArg,
		args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list district sectors: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var sec models.Sector
		var userCount, complaintCount int
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.DistrictID, &sec.AdminID, &sec.Active, &sec.Cells,
			&sec.CreatedAt, &sec.UpdatedAt, &userCount, &complaintCount); err != nil {
			s.logger.Debugw("Skipping sector row", "district", id, "error", err)
			continue
		}
		out = append(out, map[string]interface{}{
			"sector":         sec,
			"userCount":      userCount,
			"complaintCount": complaintCount,
		})
	}

	meta := &models.Page{
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}
	return out, meta, nil
}

// Statistics aggregates complaint statistics for the district.
func (s *DistrictService) Statistics(ctx context.Context, id uuid.UUID) (*models.NodeStats, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var sectorCount, userCount, complaintCount int
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sectors WHERE district_id = $1),
			(SELECT COUNT(*) FROM users WHERE district_id = $1),
			(SELECT COUNT(*) FROM complaints WHERE district_id = $1)
	`, id).Scan(&sectorCount, &userCount, &complaintCount); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	byStatus, overTime, res, err := complaintStats(ctx, s.db, "district_id", id)
	if err != nil {
		return nil, err
	}

	return &models.NodeStats{
		Name:            d.Name,
		SectorCount:     sectorCount,
		UserCount:       userCount,
		ComplaintCount:  complaintCount,
		ByStatus:        byStatus,
		OverTime:        overTime,
		ResolutionStats: res,
	}, nil
}

// AssignAdmin provisions a fresh district admin account and activates the
// district. Any previous admin loses the admin link.
func (s *DistrictService) AssignAdmin(ctx context.Context, id uuid.UUID, req *models.AssignAdminRequest) (*models.User, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email == "" || req.Name == "" {
		return nil, errInvalid("Name and email are required")
	}

	first, last := splitName(req.Name)
	temp, err := tempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &models.User{
		ID:             uuid.New(),
		FirstName:      first,
		LastName:       last,
		Email:          req.Email,
		Phone:          req.Phone,
		Role:           models.RoleDistrictAdmin,
		OrganizationID: &d.OrganizationID,
		DistrictID:     &d.ID,
		Active:         true,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, phone, role, organization_id, district_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, admin.ID, admin.FirstName, admin.LastName, admin.Email, string(hash), admin.Phone, admin.Role,
		admin.OrganizationID, admin.DistrictID)
	if err != nil {
		return nil, fmt.Errorf("insert district admin: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE districts SET admin_id = $2, active = TRUE, updated_at = NOW() WHERE id = $1`,
		id, admin.ID); err != nil {
		return nil, fmt.Errorf("link admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.mailer.Enqueue(mail.Message{
		To:      admin.Email,
		Subject: "Welcome to Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello %s,\n\nYou are now the administrator of %s district. Your temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			admin.FirstName, d.Name, temp),
	})
	return admin, nil
}

// splitName breaks a display name into first/last parts.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
