package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/models"
)

// ComplaintService handles the complaint lifecycle: creation, status
// updates, comments, attachments and escalation.
type ComplaintService struct {
	db       *pgxpool.Pool
	notifier *NotificationService
	logger   *zap.SugaredLogger
}

// NewComplaintService creates a new complaint service.
func NewComplaintService(db *pgxpool.Pool, notifier *NotificationService, logger *zap.SugaredLogger) *ComplaintService {
	return &ComplaintService{db: db, notifier: notifier, logger: logger}
}

const complaintColumns = `id, complaint_id, title, description, service, organization_id,
	district_id, sector_id, sector_resolved, citizen_id, status,
	escalate_to_district, escalate_to_org, escalation_level,
	esc_level, esc_reason, esc_requested_by, esc_timestamp,
	esc_original_district, esc_original_sector,
	assigned_to, assigned_at, resolved_at, resolution,
	attachments, created_at, updated_at`

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var c models.Complaint
	var escLevel, escReason, escRequestedBy *string
	var escTimestamp *time.Time
	var escDistrict, escSector *uuid.UUID

	err := row.Scan(&c.ID, &c.ComplaintID, &c.Title, &c.Description, &c.Service, &c.OrganizationID,
		&c.DistrictID, &c.SectorID, &c.SectorResolved, &c.CitizenID, &c.Status,
		&c.EscalateToDistrict, &c.EscalateToOrg, &c.EscalationLevel,
		&escLevel, &escReason, &escRequestedBy, &escTimestamp,
		&escDistrict, &escSector,
		&c.AssignedTo, &c.AssignedAt, &c.ResolvedAt, &c.Resolution,
		&c.Attachments, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if escLevel != nil {
		c.EscalationDetails = &models.EscalationDetails{
			Level:            *escLevel,
			OriginalDistrict: escDistrict,
			OriginalSector:   escSector,
		}
		if escReason != nil {
			c.EscalationDetails.Reason = *escReason
		}
		if escRequestedBy != nil {
			c.EscalationDetails.RequestedBy = *escRequestedBy
		}
		if escTimestamp != nil {
			c.EscalationDetails.Timestamp = *escTimestamp
		}
	}

	return &c, nil
}

// Create files a new complaint for a citizen. The complaint id is drawn
// from a per-year counter row updated atomically inside the same
// transaction as the insert, so concurrent creations cannot collide.
func (s *ComplaintService) Create(ctx context.Context, citizen *models.User, req *models.CreateComplaintRequest) (*models.ComplaintSummary, error) {
	if citizen.Role != models.RoleCitizen {
		return nil, errForbidden("Only citizens can create complaints")
	}
	if req.Title == "" || req.Description == "" {
		return nil, errInvalid("Title and description are required")
	}
	if citizen.Location.Sector == "" {
		return nil, errInvalid("User's sector is required to create a complaint")
	}

	var orgID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM organizations WHERE id = $1`, req.OrganizationID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("Organization not found")
		}
		return nil, fmt.Errorf("lookup organization: %w", err)
	}

	// Resolve the citizen's free-text sector name. A miss is a known
	// data-quality condition in upstream geographic data: a placeholder
	// reference is assigned and the miss is recorded on the complaint.
	var sectorID uuid.UUID
	var districtID *uuid.UUID
	sectorResolved := true
	err = s.db.QueryRow(ctx,
		`SELECT id, district_id FROM sectors WHERE LOWER(name) = LOWER($1) LIMIT 1`,
		citizen.Location.Sector,
	).Scan(&sectorID, &districtID)
	if errors.Is(err, pgx.ErrNoRows) {
		sectorID = uuid.New()
		districtID = nil
		sectorResolved = false
		s.logger.Warnw("Sector not found, assigning placeholder reference",
			"sector", citizen.Location.Sector,
			"citizen", citizen.ID,
		)
	} else if err != nil {
		return nil, fmt.Errorf("resolve sector: %w", err)
	}

	now := time.Now()
	id := uuid.New()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO complaint_sequences (year, value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET value = complaint_sequences.value + 1
		RETURNING value
	`, now.Year()).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next complaint sequence: %w", err)
	}
	complaintID := FormatComplaintID(now.Year(), seq)

	_, err = tx.Exec(ctx, `
		INSERT INTO complaints (id, complaint_id, title, description, service,
			organization_id, district_id, sector_id, sector_resolved, citizen_id,
			status, escalation_level, attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, id, complaintID, req.Title, req.Description, req.Service,
		orgID, districtID, sectorID, sectorResolved, citizen.ID,
		models.StatusReceived, models.LevelSector, req.Attachments, now)
	if err != nil {
		return nil, fmt.Errorf("insert complaint: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO complaint_comments (id, complaint_id, text, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), id, "Complaint submitted", citizen.ID, models.RoleCitizen, now)
	if err != nil {
		return nil, fmt.Errorf("insert initial comment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Infow("Complaint created",
		"complaint_id", complaintID,
		"citizen", citizen.ID,
		"organization", orgID,
		"sector_resolved", sectorResolved,
	)

	// Best effort: tell a sector admin. Failure never surfaces to the
	// citizen; the complaint is already committed.
	if sectorResolved {
		var adminID uuid.UUID
		err := s.db.QueryRow(ctx,
			`SELECT id FROM users WHERE role = $1 AND sector_id = $2 LIMIT 1`,
			models.RoleSectorAdmin, sectorID,
		).Scan(&adminID)
		if err == nil {
			if nerr := s.notifier.Notify(ctx, adminID,
				fmt.Sprintf("New complaint %s", complaintID),
				fmt.Sprintf("A new complaint %q was submitted in your sector.", req.Title),
				models.NotifStatusChange, &id); nerr != nil {
				s.logger.Warnw("Failed to notify sector admin", "error", nerr)
			}
		}
	}

	return &models.ComplaintSummary{
		ID:          id,
		ComplaintID: complaintID,
		Title:       req.Title,
		Status:      models.StatusReceived,
		CreatedAt:   now,
	}, nil
}

// GetByID loads a complaint without any access check. Callers that act on
// behalf of a user go through Details instead.
func (s *ComplaintService) GetByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	row := s.db.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("Complaint not found")
		}
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	return c, nil
}

// Details loads a complaint with its comment thread, enforcing the access
// policy for the actor.
func (s *ComplaintService) Details(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Complaint, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	aff, err := s.ResolveAffiliation(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !CanAccess(aff, c) {
		return nil, errForbidden("Access denied")
	}

	c.Comments, err = s.loadComments(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ComplaintService) loadComments(ctx context.Context, complaintID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, complaint_id, text, user_id, role, attachments, created_at
		FROM complaint_comments WHERE complaint_id = $1 ORDER BY created_at
	`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(&cm.ID, &cm.ComplaintID, &cm.Text, &cm.UserID, &cm.Role, &cm.Attachments, &cm.CreatedAt); err != nil {
			s.logger.Debugw("Skipping comment row", "complaint", complaintID, "error", err)
			continue
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

// ResolveAffiliation looks up the actor's current standing. Org admins are
// resolved through the organization that lists them as admin, falling back
// to the organization reference on the user record.
func (s *ComplaintService) ResolveAffiliation(ctx context.Context, actor *models.User) (Affiliation, error) {
	aff := Affiliation{
		UserID:         actor.ID,
		Role:           actor.Role,
		SectorID:       actor.SectorID,
		DistrictID:     actor.DistrictID,
		OrganizationID: actor.OrganizationID,
	}

	if actor.Role == models.RoleOrgAdmin {
		var orgID uuid.UUID
		err := s.db.QueryRow(ctx, `SELECT id FROM organizations WHERE admin_id = $1`, actor.ID).Scan(&orgID)
		if err == nil {
			aff.OrganizationID = &orgID
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return aff, fmt.Errorf("resolve org admin affiliation: %w", err)
		}
	}

	return aff, nil
}

// UpdateStatus moves a complaint along the status lifecycle, recording a
// system comment. Resolving stamps resolved_at and the resolution text.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *models.User, id uuid.UUID, req *models.UpdateStatusRequest) (*models.ComplaintSummary, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(c.Status, req.Status) {
		return nil, errInvalid(fmt.Sprintf("Cannot change status from %s to %s", c.Status, req.Status))
	}

	now := time.Now()
	var resolvedAt *time.Time
	var resolution *string
	if req.Status == models.StatusResolved {
		resolvedAt = &now
		if req.Resolution != "" {
			resolution = &req.Resolution
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE complaints
		SET status = $2,
			resolved_at = COALESCE($3, resolved_at),
			resolution = COALESCE($4, resolution),
			updated_at = $5
		WHERE id = $1
	`, id, req.Status, resolvedAt, resolution, now)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO complaint_comments (id, complaint_id, text, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), id, fmt.Sprintf("Status updated to %s", req.Status), actor.ID, actor.Role, now)
	if err != nil {
		return nil, fmt.Errorf("insert status comment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	updateType := models.NotifStatusChange
	message := fmt.Sprintf("Your complaint %s is now %s.", c.ComplaintID, req.Status)
	if req.Status == models.StatusResolved {
		updateType = models.NotifResolution
		message = fmt.Sprintf("Your complaint %s has been resolved.", c.ComplaintID)
	}
	if err := s.notifier.NotifyComplaintUpdate(ctx, id, updateType, message, actor.ID); err != nil {
		s.logger.Warnw("Failed to dispatch status notification", "complaint", id, "error", err)
	}

	return &models.ComplaintSummary{ID: id, Status: req.Status, UpdatedAt: now}, nil
}

// AddComment appends to the complaint's comment thread. Requires access.
func (s *ComplaintService) AddComment(ctx context.Context, actor *models.User, id uuid.UUID, req *models.AddCommentRequest) (*models.Comment, error) {
	if req.Text == "" {
		return nil, errInvalid("Comment text is required")
	}

	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	aff, err := s.ResolveAffiliation(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !CanAccess(aff, c) {
		return nil, errForbidden("Access denied")
	}

	comment := models.Comment{
		ID:          uuid.New(),
		ComplaintID: id,
		Text:        req.Text,
		UserID:      actor.ID,
		Role:        actor.Role,
		Attachments: req.Attachments,
		CreatedAt:   time.Now(),
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO complaint_comments (id, complaint_id, text, user_id, role, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, comment.ID, comment.ComplaintID, comment.Text, comment.UserID, comment.Role, comment.Attachments, comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if err := s.notifier.NotifyComplaintUpdate(ctx, id, models.NotifComment,
		fmt.Sprintf("New comment on complaint %s.", c.ComplaintID), actor.ID); err != nil {
		s.logger.Warnw("Failed to dispatch comment notification", "complaint", id, "error", err)
	}

	return &comment, nil
}

// RemoveFile removes an attachment URL from the complaint and from every
// comment that references it. Removing an absent URL is a quiet no-op.
func (s *ComplaintService) RemoveFile(ctx context.Context, actor *models.User, id uuid.UUID, fileURL string) error {
	if fileURL == "" {
		return errInvalid("fileUrl is required")
	}

	c, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	aff, err := s.ResolveAffiliation(ctx, actor)
	if err != nil {
		return err
	}
	if !CanAccess(aff, c) {
		return errForbidden("Access denied")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `UPDATE complaints SET attachments = $2, updated_at = NOW() WHERE id = $1`,
		id, removeURL(c.Attachments, fileURL))
	if err != nil {
		return fmt.Errorf("update complaint attachments: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE complaint_comments SET attachments = array_remove(attachments, $2)
		WHERE complaint_id = $1 AND $2 = ANY(attachments)
	`, id, fileURL)
	if err != nil {
		return fmt.Errorf("update comment attachments: %w", err)
	}

	return tx.Commit(ctx)
}

// Escalate advances a complaint one rung up the escalation ladder and
// stamps audit metadata. The district/sector references stay in place;
// downstream queries rely on the escalation flags and level instead.
func (s *ComplaintService) Escalate(ctx context.Context, actor *models.User, id uuid.UUID, reason string) (string, error) {
	if reason == "" {
		return "", errInvalid("Escalation reason is required")
	}

	c, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	aff, err := s.ResolveAffiliation(ctx, actor)
	if err != nil {
		return "", err
	}
	if !CanAccess(aff, c) {
		return "", errForbidden("Access denied")
	}

	newLevel := NextEscalationLevel(c.EscalationLevel)
	now := time.Now()

	// Snapshot the pre-escalation location while both references are
	// still meaningful.
	var origDistrict, origSector *uuid.UUID
	if c.DistrictID != nil && c.SectorID != nil {
		origDistrict = c.DistrictID
		origSector = c.SectorID
	}

	escalateToDistrict := c.EscalateToDistrict || newLevel == models.LevelDistrict
	escalateToOrg := c.EscalateToOrg || newLevel == models.LevelOrganization

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE complaints
		SET escalation_level = $2,
			escalate_to_district = $3,
			escalate_to_org = $4,
			esc_level = $2,
			esc_reason = $5,
			esc_requested_by = $6,
			esc_timestamp = $7,
			esc_original_district = COALESCE($8, esc_original_district),
			esc_original_sector = COALESCE($9, esc_original_sector),
			updated_at = $7
		WHERE id = $1
	`, id, newLevel, escalateToDistrict, escalateToOrg, reason, actor.Role, now, origDistrict, origSector)
	if err != nil {
		return "", fmt.Errorf("update escalation: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO complaint_comments (id, complaint_id, text, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), id,
		fmt.Sprintf("Complaint escalated to %s level. Reason: %s", newLevel, reason),
		actor.ID, actor.Role, now)
	if err != nil {
		return "", fmt.Errorf("insert escalation comment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.logger.Infow("Complaint escalated",
		"complaint", c.ComplaintID,
		"from", c.EscalationLevel,
		"to", newLevel,
		"requested_by", actor.Role,
	)

	if err := s.notifier.NotifyComplaintUpdate(ctx, id, models.NotifEscalation,
		fmt.Sprintf("Complaint %s has been escalated to %s level.", c.ComplaintID, newLevel), actor.ID); err != nil {
		s.logger.Warnw("Failed to dispatch escalation notification", "complaint", id, "error", err)
	}

	return newLevel, nil
}

// ListForCitizen returns the citizen's own complaints, newest first.
func (s *ComplaintService) ListForCitizen(ctx context.Context, citizenID uuid.UUID) ([]models.Complaint, error) {
	return s.list(ctx, `WHERE citizen_id = $1`, citizenID)
}

// ListForSector returns sector-level complaints in the admin's sector.
func (s *ComplaintService) ListForSector(ctx context.Context, admin *models.User) ([]models.Complaint, error) {
	if admin.SectorID == nil {
		return nil, errInvalid("Admin's sector not found")
	}
	return s.list(ctx, `WHERE sector_id = $1 AND escalation_level = 'sector'`, *admin.SectorID)
}

// ListForDistrict returns district-level complaints in the admin's
// district plus anything escalated to district.
func (s *ComplaintService) ListForDistrict(ctx context.Context, admin *models.User) ([]models.Complaint, error) {
	if admin.DistrictID == nil {
		return nil, errInvalid("Admin's district not found")
	}
	return s.list(ctx, `WHERE (district_id = $1 AND escalation_level = 'district') OR escalate_to_district`, *admin.DistrictID)
}

// ListForOrganization returns organization-level complaints for the org
// the admin administers plus anything escalated to org.
func (s *ComplaintService) ListForOrganization(ctx context.Context, admin *models.User) ([]models.Complaint, error) {
	aff, err := s.ResolveAffiliation(ctx, admin)
	if err != nil {
		return nil, err
	}
	if aff.OrganizationID == nil {
		return nil, errInvalid("Admin's organization not found")
	}
	return s.list(ctx, `WHERE (organization_id = $1 AND escalation_level = 'organization') OR escalate_to_org`, *aff.OrganizationID)
}

func (s *ComplaintService) list(ctx context.Context, where string, args ...interface{}) ([]models.Complaint, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+complaintColumns+` FROM complaints `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var complaints []models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			s.logger.Debugw("Skipping complaint row", "error", err)
			continue
		}
		complaints = append(complaints, *c)
	}
	return complaints, nil
}
