package repository

import (
	"context"
	"time"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_id, body, read_at, notified_at, created_at`

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	body string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING ` + messageColumns

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, conversationID, senderID, body).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Body,
		&message.ReadAt,
		&message.NotifiedAt,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Body,
			&message.ReadAt,
			&message.NotifiedAt,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkMessagesRead stamps read_at on messages the reader did not send.
// Already-read messages keep their original timestamp.
func (r *MessageRepository) MarkMessagesRead(
	ctx context.Context,
	messageIDs []int64,
	readerID int64,
) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET read_at = NOW()
		WHERE id = ANY($1)
		  AND sender_id <> $2
		  AND read_at IS NULL
	`, messageIDs, readerID)
	return err
}

// ListUnnotified returns messages still unread and never reminded about,
// created before the cutoff. Feeds the delayed unread-chat reminder batch.
func (r *MessageRepository) ListUnnotified(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE read_at IS NULL
		  AND notified_at IS NULL
		  AND created_at < $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Body,
			&message.ReadAt,
			&message.NotifiedAt,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkNotified stamps notified_at only if it is still unset, so a reminder
// batch that runs twice sends at most one email per message.
func (r *MessageRepository) MarkNotified(ctx context.Context, messageID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET notified_at = NOW()
		WHERE id = $1 AND notified_at IS NULL
	`, messageID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
