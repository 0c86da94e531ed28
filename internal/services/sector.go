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

const sectorColumns = `id, name, district_id, admin_id, active, cells, created_at, updated_at`

func scanSector(row pgx.Row) (*models.Sector, error) {
	var sec models.Sector
	err := row.Scan(&sec.ID, &sec.Name, &sec.DistrictID, &sec.AdminID, &sec.Active, &sec.Cells,
		&sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// SectorService handles the leaf tier of the hierarchy. Sectors are
// created inactive and activate when an admin is assigned.
type SectorService struct {
	db     *pgxpool.Pool
	mailer *mail.Mailer
	logger *zap.SugaredLogger
}

// NewSectorService creates a new sector service.
func NewSectorService(db *pgxpool.Pool, mailer *mail.Mailer, logger *zap.SugaredLogger) *SectorService {
	return &SectorService{db: db, mailer: mailer, logger: logger}
}

// Create adds a sector under a district.
func (s *SectorService) Create(ctx context.Context, req *models.CreateSectorRequest) (*models.Sector, error) {
	if req.Name == "" {
		return nil, errInvalid("Name is required")
	}

	var districtExists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM districts WHERE id = $1)`, req.DistrictID).Scan(&districtExists); err != nil {
		return nil, fmt.Errorf("check district: %w", err)
	}
	if !districtExists {
		return nil, errNotFound("District not found")
	}

	var nameTaken bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sectors WHERE district_id = $1 AND name = $2)`,
		req.DistrictID, req.Name).Scan(&nameTaken); err != nil {
		return nil, fmt.Errorf("check name: %w", err)
	}
	if nameTaken {
		return nil, errConflict("Sector with this name already exists in this district")
	}

	cells := req.Cells
	if cells == nil {
		cells = []string{}
	}

	id := uuid.New()
	_, err := s.db.Exec(ctx, `
		INSERT INTO sectors (id, name, district_id, active, cells)
		VALUES ($1, $2, $3, FALSE, $4)
	`, id, req.Name, req.DistrictID, cells)
	if err != nil {
		return nil, fmt.Errorf("insert sector: %w", err)
	}

	s.logger.Infow("Sector created", "sector", id, "name", req.Name, "district", req.DistrictID)
	return s.GetByID(ctx, id)
}

// List returns a page of sectors with dependent counts, searchable by
// name and optionally scoped to a district.
func (s *SectorService) List(ctx context.Context, districtID *uuid.UUID, search string, page, limit int) ([]map[string]interface{}, *models.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := `WHERE TRUE`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if districtID != nil {
		where += ` AND s.district_id = ` + arg(*districtID)
	}
	if search != "" {
		where += ` AND s.name ILIKE ` + arg("%"+search+"%")
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM sectors s `+where, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("count sectors: %w", err)
	}

	query := `
		SELECT s.id, s.name, s.district_id, s.admin_id, s.active, s.cells, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM users u WHERE u.sector_id = s.id),
			(SELECT COUNT(*) FROM complaints c WHERE c.sector_id = s.id)
		FROM sectors s ` + where + `
		ORDER BY s.name OFFSET ` + arg((page-1)*limit) + ` LIMIT ` + arg(limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var sec models.Sector
		var userCount, complaintCount int
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.DistrictID, &sec.AdminID, &sec.Active, &sec.Cells,
			&sec.CreatedAt, &sec.UpdatedAt, &userCount, &complaintCount); err != nil {
			s.logger.Debugw("Skipping sector row", "error", err)
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

// GetByID loads one sector.
func (s *SectorService) GetByID(ctx context.Context, id uuid.UUID) (*models.Sector, error) {
	row := s.db.QueryRow(ctx, `SELECT `+sectorColumns+` FROM sectors WHERE id = $1`, id)
	sec, err := scanSector(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("Sector not found")
		}
		return nil, fmt.Errorf("load sector: %w", err)
	}
	return sec, nil
}

// Update applies a partial update, checking rename uniqueness within the
// district.
func (s *SectorService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateSectorRequest) (*models.Sector, error) {
	sec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != sec.Name {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sectors WHERE district_id = $1 AND name = $2 AND id <> $3)`,
			sec.DistrictID, *req.Name, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check name: %w", err)
		}
		if exists {
			return nil, errConflict("Sector name already exists in this district")
		}
		sec.Name = *req.Name
	}
	if req.Active != nil {
		sec.Active = *req.Active
	}
	if req.Cells != nil {
		sec.Cells = req.Cells
	}

	_, err = s.db.Exec(ctx, `
		UPDATE sectors SET name = $2, active = $3, cells = $4, updated_at = NOW() WHERE id = $1
	`, id, sec.Name, sec.Active, sec.Cells)
	if err != nil {
		return nil, fmt.Errorf("update sector: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a sector; refused with dependents present unless cascade
// is set.
func (s *SectorService) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	sec, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var userCount, complaintCount int
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE sector_id = $1 AND id IS DISTINCT FROM $2),
			(SELECT COUNT(*) FROM complaints WHERE sector_id = $1)
	`, id, sec.AdminID).Scan(&userCount, &complaintCount); err != nil {
		return fmt.Errorf("count dependents: %w", err)
	}

	if deleteBlocked(0, userCount, complaintCount) && !cascade {
		return errConflict("Sector has users or complaints; pass cascade=true to delete them too")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`UPDATE sectors SET admin_id = NULL WHERE id = $1`,
		`DELETE FROM complaints WHERE sector_id = $1
			OR citizen_id IN (SELECT id FROM users WHERE sector_id = $1)`,
		`DELETE FROM users WHERE sector_id = $1`,
		`DELETE FROM sectors WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete sector: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Infow("Sector deleted", "sector", id, "cascade", cascade)
	return nil
}

// Citizens returns a page of citizens affiliated with the sector,
// searchable by name or email.
func (s *SectorService) Citizens(ctx context.Context, id uuid.UUID, search string, page, limit int) ([]*models.User, *models.Page, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := `WHERE sector_id = $1 AND role = $2`
	args := []interface{}{id, models.RoleCitizen}
	if search != "" {
		where += ` AND (first_name ILIKE $3 OR last_name ILIKE $3 OR email ILIKE $3)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("count citizens: %w", err)
	}

	offsetArg := fmt.Sprintf("$%d", len(args)+1)
	limitArg := fmt.Sprintf("$%d", len(args)+2)
	args = append(args, (page-1)*limit, limit)

	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users `+where+
			` ORDER BY created_at DESC OFFSET `+offsetArg+` LIMIT `+limitArg,
		args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list citizens: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			s.logger.Debugw("Skipping citizen row", "sector", id, "error", err)
			continue
		}
		users = append(users, u)
	}

	meta := &models.Page{
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}
	return users, meta, nil
}

// Statistics aggregates complaint statistics for the sector.
func (s *SectorService) Statistics(ctx context.Context, id uuid.UUID) (*models.NodeStats, error) {
	sec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var userCount, complaintCount int
	if err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE sector_id = $1),
			(SELECT COUNT(*) FROM complaints WHERE sector_id = $1)
	`, id).Scan(&userCount, &complaintCount); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	byStatus, overTime, res, err := complaintStats(ctx, s.db, "sector_id", id)
	if err != nil {
		return nil, err
	}

	return &models.NodeStats{
		Name:            sec.Name,
		UserCount:       userCount,
		ComplaintCount:  complaintCount,
		ByStatus:        byStatus,
		OverTime:        overTime,
		ResolutionStats: res,
	}, nil
}

// AssignAdmin provisions a sector admin account and activates the sector.
func (s *SectorService) AssignAdmin(ctx context.Context, id uuid.UUID, req *models.AssignAdminRequest) (*models.User, error) {
	sec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email == "" || req.Name == "" {
		return nil, errInvalid("Name and email are required")
	}

	var orgID uuid.UUID
	if err := s.db.QueryRow(ctx,
		`SELECT organization_id FROM districts WHERE id = $1`, sec.DistrictID).Scan(&orgID); err != nil {
		return nil, fmt.Errorf("load parent district: %w", err)
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
		Role:           models.RoleSectorAdmin,
		OrganizationID: &orgID,
		DistrictID:     &sec.DistrictID,
		SectorID:       &sec.ID,
		Active:         true,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, phone, role, organization_id, district_id, sector_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, admin.ID, admin.FirstName, admin.LastName, admin.Email, string(hash), admin.Phone, admin.Role,
		admin.OrganizationID, admin.DistrictID, admin.SectorID)
	if err != nil {
		return nil, fmt.Errorf("insert sector admin: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sectors SET admin_id = $2, active = TRUE, updated_at = NOW() WHERE id = $1`,
		id, admin.ID); err != nil {
		return nil, fmt.Errorf("link admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.mailer.Enqueue(mail.Message{
		To:      admin.Email,
		Subject: "Welcome to Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello %s,\n\nYou are now the administrator of %s sector. Your temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			admin.FirstName, sec.Name, temp),
	})
	return admin, nil
}
