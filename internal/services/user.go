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

const userColumns = `id, first_name, last_name, email, password, phone, role,
	organization_id, district_id, sector_id,
	location_province, location_district, location_sector, location_cell, location_village,
	active, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Phone, &u.Role,
		&u.OrganizationID, &u.DistrictID, &u.SectorID,
		&u.Location.Province, &u.Location.District, &u.Location.Sector, &u.Location.Cell, &u.Location.Village,
		&u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserService handles user lookup, listing, updates and deletion.
type UserService struct {
	db     *pgxpool.Pool
	mailer *mail.Mailer
	logger *zap.SugaredLogger
}

// NewUserService creates a new user service.
func NewUserService(db *pgxpool.Pool, mailer *mail.Mailer, logger *zap.SugaredLogger) *UserService {
	return &UserService{db: db, mailer: mailer, logger: logger}
}

// GetByID loads a user.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// GetByEmail loads a user by email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// UserFilter narrows List results.
type UserFilter struct {
	Role       string
	DistrictID *uuid.UUID
	SectorID   *uuid.UUID
	Search     string
}

// List returns a page of users matching the filter, with search over
// name, email and phone.
func (s *UserService) List(ctx context.Context, f UserFilter, page, limit int) ([]models.User, *models.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Role != "" {
		conds = append(conds, "role = "+arg(f.Role))
	}
	if f.DistrictID != nil {
		conds = append(conds, "district_id = "+arg(*f.DistrictID))
	}
	if f.SectorID != nil {
		conds = append(conds, "sector_id = "+arg(*f.SectorID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(first_name ILIKE %s OR last_name ILIKE %s OR email ILIKE %s OR phone ILIKE %s)", p, p, p, p))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ` + where +
		` ORDER BY created_at DESC OFFSET ` + arg((page-1)*limit) + ` LIMIT ` + arg(limit)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			s.logger.Debugw("Skipping user row", "error", err)
			continue
		}
		users = append(users, *u)
	}

	meta := &models.Page{
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}
	return users, meta, nil
}

// Update applies a partial update. Changing the email to one already in
// use is a conflict; changing the role validates the role string.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateUserRequest) (*models.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && !strings.EqualFold(*req.Email, u.Email) {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`,
			*req.Email, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if exists {
			return nil, errConflict("Email is already in use")
		}
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, errInvalid("Invalid role")
		}
		u.Role = *req.Role
	}
	if req.District != nil {
		u.DistrictID = req.District
	}
	if req.Sector != nil {
		u.SectorID = req.Sector
	}
	if req.Active != nil {
		u.Active = *req.Active
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, phone = $5, role = $6,
			district_id = $7, sector_id = $8, active = $9, updated_at = NOW()
		WHERE id = $1
	`, id, u.FirstName, u.LastName, u.Email, u.Phone, u.Role, u.DistrictID, u.SectorID, u.Active)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a user. Users that own complaints are deactivated
// instead of deleted; otherwise the row and its notifications go away.
// Returns true when the user was soft-deactivated.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return false, err
	}

	var complaintCount int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM complaints WHERE citizen_id = $1`, id).Scan(&complaintCount); err != nil {
		return false, fmt.Errorf("count complaints: %w", err)
	}

	if complaintCount > 0 {
		_, err := s.db.Exec(ctx, `UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return false, fmt.Errorf("deactivate user: %w", err)
		}
		return true, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM notifications WHERE recipient_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete notifications: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return false, tx.Commit(ctx)
}

// ResetPassword sets a fresh temporary password and emails it to the user.
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	temp, err := tempPassword()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`, id, string(hash))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.mailer.Enqueue(mail.Message{
		To:      u.Email,
		Subject: "Password Reset - Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello %s,\n\nYour password has been reset. Your new temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			u.FirstName, temp),
	})
	return nil
}
