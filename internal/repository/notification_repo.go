package repository

import (
	"context"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `
	id, recipient_id, actor_id, type, payload, read_at, email_sent_at, created_at
`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	var notification models.Notification
	err := row.Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.ActorID,
		&notification.Type,
		&notification.Payload,
		&notification.ReadAt,
		&notification.EmailSentAt,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepository) Create(
	ctx context.Context,
	recipientID int64,
	actorID *int64,
	notificationType string,
	payload models.NotificationPayload,
) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, actor_id, type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + notificationColumns

	return scanNotification(r.db.QueryRow(
		ctx,
		query,
		recipientID,
		actorID,
		notificationType,
		payload,
	))
}

func (r *NotificationRepository) ListForRecipient(
	ctx context.Context,
	recipientID int64,
	limit int,
	offset int,
) ([]models.Notification, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
	`, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, *notification)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkAllRead stamps read_at on every unread notification of the recipient,
// the bulk operation behind opening the notification center.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET read_at = NOW()
		WHERE recipient_id = $1
		  AND read_at IS NULL
	`, recipientID)
	return err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
		  AND read_at IS NULL
	`, recipientID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsForSession reports whether the recipient already has a notification
// of this type referencing the session, so batch jobs create each at most
// once.
func (r *NotificationRepository) ExistsForSession(
	ctx context.Context,
	recipientID int64,
	notificationType string,
	sessionID int64,
) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM notifications
			WHERE recipient_id = $1
			  AND type = $2
			  AND (payload->>'session_id')::bigint = $3
		)
	`, recipientID, notificationType, sessionID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListUnsentByType returns notifications of one type whose reminder email was
// never sent. Feeds the review-reminder batch.
func (r *NotificationRepository) ListUnsentByType(
	ctx context.Context,
	notificationType string,
	limit int,
) ([]models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE type = $1
		  AND email_sent_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, notificationType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkEmailSent stamps email_sent_at only if still unset so a batch job run
// twice sends at most one email per notification.
func (r *NotificationRepository) MarkEmailSent(ctx context.Context, notificationID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET email_sent_at = NOW()
		WHERE id = $1 AND email_sent_at IS NULL
	`, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
