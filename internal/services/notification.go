package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/mail"
	"github.com/citizenvoice/engagement-server/internal/models"
)

// unreadCountTTL bounds staleness of the cached unread counter.
const unreadCountTTL = 30 * time.Second

// NotificationService writes notification records and fans out best-effort
// email. The database insert is the commit point; email is handed to the
// background mailer and its outcome never affects the caller.
type NotificationService struct {
	db     *pgxpool.Pool
	cache  *redis.Client
	mailer *mail.Mailer
	logger *zap.SugaredLogger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(db *pgxpool.Pool, cache *redis.Client, mailer *mail.Mailer, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{db: db, cache: cache, mailer: mailer, logger: logger}
}

func unreadKey(userID uuid.UUID) string {
	return "notif:unread:" + userID.String()
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadKey(userID)).Err(); err != nil {
		s.logger.Debugw("Failed to invalidate unread count cache", "user", userID, "error", err)
	}
}

// Notify writes a notification row for the recipient and enqueues a
// best-effort email.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, title, message, notifType string, complaintID *uuid.UUID) error {
	if notifType == "" {
		notifType = models.NotifSystem
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, title, message, type, complaint_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), recipientID, title, message, notifType, complaintID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	s.invalidateUnread(ctx, recipientID)

	var email string
	err = s.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, recipientID).Scan(&email)
	if err == nil && email != "" {
		s.mailer.Enqueue(mail.Message{To: email, Subject: title, Body: message})
	}

	return nil
}

// NotifyComplaintUpdate routes a complaint event to the right party: an
// update made by the complaint's own citizen goes to the sector admins of
// the complaint's sector, anything else goes to the citizen.
func (s *NotificationService) NotifyComplaintUpdate(ctx context.Context, complaintID uuid.UUID, updateType, message string, updatedBy uuid.UUID) error {
	var citizenID uuid.UUID
	var sectorID *uuid.UUID
	var cid string
	err := s.db.QueryRow(ctx,
		`SELECT citizen_id, sector_id, complaint_id FROM complaints WHERE id = $1`, complaintID,
	).Scan(&citizenID, &sectorID, &cid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotFound("Complaint not found")
		}
		return fmt.Errorf("load complaint: %w", err)
	}

	title := notificationTitle(updateType, cid)

	if updatedBy == citizenID {
		if sectorID == nil {
			return nil
		}
		rows, err := s.db.Query(ctx,
			`SELECT id FROM users WHERE role = $1 AND sector_id = $2`,
			models.RoleSectorAdmin, *sectorID)
		if err != nil {
			return fmt.Errorf("find sector admins: %w", err)
		}
		defer rows.Close()

		var admins []uuid.UUID
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				s.logger.Debugw("Skipping sector admin row", "error", err)
				continue
			}
			admins = append(admins, id)
		}
		for _, adminID := range admins {
			if err := s.Notify(ctx, adminID, title, message, updateType, &complaintID); err != nil {
				s.logger.Warnw("Failed to notify sector admin", "admin", adminID, "error", err)
			}
		}
		return nil
	}

	return s.Notify(ctx, citizenID, title, message, updateType, &complaintID)
}

// notificationTitle derives a human title from the update type.
func notificationTitle(updateType, complaintID string) string {
	switch updateType {
	case models.NotifStatusChange:
		return fmt.Sprintf("Complaint %s status updated", complaintID)
	case models.NotifComment:
		return fmt.Sprintf("New comment on your complaint %s", complaintID)
	case models.NotifEscalation:
		return fmt.Sprintf("Complaint %s has been escalated", complaintID)
	case models.NotifResolution:
		return fmt.Sprintf("Complaint %s has been resolved", complaintID)
	}
	return fmt.Sprintf("Update on your complaint %s", complaintID)
}

// NotifySystem fans the same notification out to an explicit recipient
// list, sequentially.
func (s *NotificationService) NotifySystem(ctx context.Context, recipientIDs []uuid.UUID, title, message string, complaintID *uuid.UUID) error {
	for _, id := range recipientIDs {
		if err := s.Notify(ctx, id, title, message, models.NotifSystem, complaintID); err != nil {
			return err
		}
	}
	return nil
}

// List returns a page of the recipient's notifications, newest first,
// along with totals and the unread count.
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, page, limit int, unreadOnly bool) ([]models.Notification, *models.Page, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := `WHERE recipient_id = $1`
	if unreadOnly {
		where += ` AND NOT read`
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, recipientID).Scan(&total); err != nil {
		return nil, nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, recipient_id, title, message, type, read, complaint_id, created_at
		FROM notifications `+where+`
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, recipientID, (page-1)*limit, limit)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.Read, &n.ComplaintID, &n.CreatedAt); err != nil {
			s.logger.Debugw("Skipping notification row", "recipient", recipientID, "error", err)
			continue
		}
		notifications = append(notifications, n)
	}

	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, nil, 0, err
	}

	meta := &models.Page{
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}
	return notifications, meta, unread, nil
}

// UnreadCount returns the recipient's unread notification count, served
// from Redis when fresh.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	if s.cache != nil {
		if n, err := s.cache.Get(ctx, unreadKey(recipientID)).Int(); err == nil {
			return n, nil
		}
	}

	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`, recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, unreadKey(recipientID), count, unreadCountTTL).Err(); err != nil {
			s.logger.Debugw("Failed to cache unread count", "user", recipientID, "error", err)
		}
	}
	return count, nil
}

// MarkRead flips one of the recipient's notifications to read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`,
		notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("Notification not found")
	}
	s.invalidateUnread(ctx, recipientID)
	return nil
}

// MarkAllRead flips every unread notification for the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`, recipientID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	s.invalidateUnread(ctx, recipientID)
	return nil
}

// Delete removes one of the recipient's notifications.
func (s *NotificationService) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`,
		notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("Notification not found")
	}
	s.invalidateUnread(ctx, recipientID)
	return nil
}
