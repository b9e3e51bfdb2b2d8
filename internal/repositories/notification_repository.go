package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `id, resident_id, building_id, event_key, payload, is_read, created_at, read_at`

// NotificationRepository defines persistence for derived notifications.
type NotificationRepository interface {
	InsertIfAbsent(ctx context.Context, n models.Notification) (models.Notification, bool, error)
	Get(ctx context.Context, notificationID int64) (models.Notification, error)
	MarkRead(ctx context.Context, notificationID int64) error
	MarkAllRead(ctx context.Context, residentID int) error
	UnreadCount(ctx context.Context, residentID int, buildingID *int) (int, error)
	ListForResident(ctx context.Context, residentID int, limit int) ([]models.Notification, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// InsertIfAbsent creates the notification unless one already exists for the
// same (event, recipient) pair, which makes event reprocessing idempotent.
func (r *NotificationRepo) InsertIfAbsent(ctx context.Context, n models.Notification) (models.Notification, bool, error) {
	var created models.Notification
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO notifications (resident_id, building_id, event_key, payload)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (event_key, resident_id) DO NOTHING
         RETURNING `+notificationColumns,
		n.ResidentID, n.BuildingID, n.EventKey, n.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, false, nil
	}
	if err != nil {
		return models.Notification{}, false, err
	}
	return created, true, nil
}

// Get fetches a notification by id.
func (r *NotificationRepo) Get(ctx context.Context, notificationID int64) (models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n,
		`SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// MarkRead transitions a notification to read. Already-read rows are left
// untouched so the transition never reverts.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE id=$1 AND is_read = FALSE`,
		notificationID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		// Distinguish missing rows from rows that were already read.
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM notifications WHERE id=$1)`, notificationID); err != nil {
			return err
		}
		if !exists {
			return ErrNotificationNotFound
		}
	}
	return nil
}

// MarkAllRead marks every unread notification of the resident as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, residentID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE resident_id=$1 AND is_read = FALSE`,
		residentID)
	return err
}

// UnreadCount counts unread notifications, optionally scoped to a building.
func (r *NotificationRepo) UnreadCount(ctx context.Context, residentID int, buildingID *int) (int, error) {
	var count int
	if buildingID == nil {
		err := r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM notifications WHERE resident_id=$1 AND is_read = FALSE`, residentID)
		return count, err
	}
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE resident_id=$1 AND building_id=$2 AND is_read = FALSE`,
		residentID, *buildingID)
	return count, err
}

// ListForResident returns the newest notifications for a resident.
func (r *NotificationRepo) ListForResident(ctx context.Context, residentID int, limit int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+notificationColumns+` FROM notifications
         WHERE resident_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		residentID, limit)
	return list, err
}
