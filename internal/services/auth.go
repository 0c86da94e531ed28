package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/citizenvoice/engagement-server/internal/mail"
	"github.com/citizenvoice/engagement-server/internal/models"
)

// tokenTTL is the signed-token lifetime.
const tokenTTL = 24 * time.Hour

// AuthService handles registration, credential verification, token
// issuance and admin provisioning.
type AuthService struct {
	db     *pgxpool.Pool
	secret []byte
	mailer *mail.Mailer
	logger *zap.SugaredLogger
}

// NewAuthService creates a new auth service.
func NewAuthService(db *pgxpool.Pool, jwtSecret string, mailer *mail.Mailer, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{db: db, secret: []byte(jwtSecret), mailer: mailer, logger: logger}
}

// GenerateToken signs a 24-hour HS256 token with id, email and role claims.
func (s *AuthService) GenerateToken(u *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    u.ID.String(),
		"email": u.Email,
		"role":  u.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Register creates a citizen account and returns the user with a fresh
// token. Admin accounts are never created through registration.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, string, error) {
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return nil, "", errInvalid("First name, last name, email and password are required")
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, req.Email).Scan(&exists); err != nil {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, "", errConflict("User already exists with this email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:        uuid.New(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      models.RoleCitizen,
		Location: models.Location{
			Province: req.Province,
			District: req.District,
			Sector:   req.Sector,
			Cell:     req.Cell,
			Village:  req.Village,
		},
		Active: true,
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, phone, role,
			location_province, location_district, location_sector, location_cell, location_village)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, u.ID, u.FirstName, u.LastName, u.Email, string(hash), u.Phone, u.Role,
		u.Location.Province, u.Location.District, u.Location.Sector, u.Location.Cell, u.Location.Village)
	if err != nil {
		return nil, "", fmt.Errorf("insert user: %w", err)
	}

	token, err := s.GenerateToken(u)
	if err != nil {
		return nil, "", err
	}

	s.logger.Infow("User registered", "user", u.ID, "email", u.Email)
	return u, token, nil
}

// Login verifies credentials and issues a token. Org admins additionally
// get their organization resolved for the response payload.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, *models.Organization, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil, errNotFound("User not found")
		}
		return nil, "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, "", nil, errForbidden("Invalid credentials")
	}

	token, err := s.GenerateToken(u)
	if err != nil {
		return nil, "", nil, err
	}

	var org *models.Organization
	if u.Role == models.RoleOrgAdmin {
		var o models.Organization
		err := s.db.QueryRow(ctx,
			`SELECT id, name FROM organizations WHERE admin_id = $1`, u.ID,
		).Scan(&o.ID, &o.Name)
		if err == nil {
			org = &o
		}
	}

	return u, token, org, nil
}

// CreateAdmin provisions an admin account with a generated temporary
// password, links it to the hierarchy node it administers and emails the
// credentials.
func (s *AuthService) CreateAdmin(ctx context.Context, req *models.CreateAdminRequest) (*models.User, error) {
	switch req.Role {
	case models.RoleOrgAdmin, models.RoleDistrictAdmin, models.RoleSectorAdmin:
	default:
		return nil, errInvalid("Role must be one of orgadmin, districtadmin, sectoradmin")
	}
	if req.Email == "" {
		return nil, errInvalid("Email is required")
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, req.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, errConflict("User already exists with this email")
	}

	temp, err := tempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:             uuid.New(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
		DistrictID:     req.DistrictID,
		SectorID:       req.SectorID,
		Active:         true,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, phone, role,
			organization_id, district_id, sector_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.FirstName, u.LastName, u.Email, string(hash), u.Phone, u.Role,
		u.OrganizationID, u.DistrictID, u.SectorID)
	if err != nil {
		return nil, fmt.Errorf("insert admin user: %w", err)
	}

	// Tie the node back to its new admin.
	switch {
	case u.Role == models.RoleOrgAdmin && req.OrganizationID != nil:
		_, err = tx.Exec(ctx, `UPDATE organizations SET admin_id = $2, updated_at = NOW() WHERE id = $1`,
			*req.OrganizationID, u.ID)
	case u.Role == models.RoleDistrictAdmin && req.DistrictID != nil:
		_, err = tx.Exec(ctx, `UPDATE districts SET admin_id = $2, active = TRUE, updated_at = NOW() WHERE id = $1`,
			*req.DistrictID, u.ID)
	case u.Role == models.RoleSectorAdmin && req.SectorID != nil:
		_, err = tx.Exec(ctx, `UPDATE sectors SET admin_id = $2, active = TRUE, updated_at = NOW() WHERE id = $1`,
			*req.SectorID, u.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("link admin to node: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.mailer.Enqueue(mail.Message{
		To:      u.Email,
		Subject: "Welcome to Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello %s,\n\nYour administrator account has been created. Your temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			u.FirstName, temp),
	})

	s.logger.Infow("Admin user created", "user", u.ID, "role", u.Role)
	return u, nil
}

// ChangePassword verifies the current password and replaces it.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	if current == "" || newPassword == "" {
		return errInvalid("Current password and new password are required")
	}

	var hash string
	err := s.db.QueryRow(ctx, `SELECT password FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotFound("User not found")
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		return errForbidden("Current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`, userID, string(newHash))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ForgotPassword sends a reset mail when the address is registered. The
// response never reveals whether the address exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return errInvalid("Email is required")
	}

	var id uuid.UUID
	var firstName string
	err := s.db.QueryRow(ctx,
		`SELECT id, first_name FROM users WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&id, &firstName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	temp, err := tempPassword()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.db.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`, id, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.mailer.Enqueue(mail.Message{
		To:      email,
		Subject: "Password Reset - Citizen Engagement Platform",
		Body: fmt.Sprintf("Hello %s,\n\nYour new temporary password is: %s\n\n"+
			"Please login and change your password immediately.\n\nRegards,\nCitizen Engagement Platform Team",
			firstName, temp),
	})
	return nil
}

// tempPassword generates a random temporary credential for provisioned
// and reset accounts.
func tempPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
