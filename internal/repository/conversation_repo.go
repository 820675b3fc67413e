package repository

import (
	"context"
	"database/sql"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CanonicalPair normalizes a two-user pair into the stored (user_a, user_b)
// order. Every insert or lookup of a conversation must go through this so
// the uniqueness constraint on (session_id, user_a, user_b) can do its job.
func CanonicalPair(x, y int64) (int64, int64) {
	if x < y {
		return x, y
	}
	return y, x
}

// CreateOrGet provisions the conversation for a session-scoped pair,
// idempotently. The no-op DO UPDATE lets RETURNING yield the existing row on
// conflict, so two racing accepts converge on the same conversation id.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	sessionID int64,
	userX int64,
	userY int64,
) (*models.Conversation, error) {
	userA, userB := CanonicalPair(userX, userY)

	query := `
		INSERT INTO conversations (session_id, user_a, user_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_a, user_b)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, session_id, user_a, user_b, created_at, updated_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, sessionID, userA, userB).Scan(
		&conversation.ID,
		&conversation.SessionID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(
	ctx context.Context,
	conversationID int64,
) (*models.Conversation, error) {
	query := `
		SELECT id, session_id, user_a, user_b, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.SessionID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID int64,
	participantID int64,
) (*models.Conversation, error) {
	query := `
		SELECT id, session_id, user_a, user_b, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND (user_a = $2 OR user_b = $2)
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, participantID).Scan(
		&conversation.ID,
		&conversation.SessionID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.session_id,
			c.user_a,
			c.user_b,
			c.created_at,
			c.updated_at,
			lm.id,
			lm.conversation_id,
			lm.sender_id,
			lm.body,
			lm.read_at,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, body, read_at, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE conversation_id = c.id
			  AND sender_id <> $1
			  AND read_at IS NULL
		) uc ON TRUE
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY COALESCE(lm.created_at, c.updated_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageConversationID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageBody sql.NullString
		var messageReadAt sql.NullTime
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.SessionID,
			&summary.UserA,
			&summary.UserB,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageBody,
			&messageReadAt,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			lastMessage := &models.ChatMessage{
				ID:             messageID.Int64,
				ConversationID: messageConversationID.Int64,
				SenderID:       messageSenderID.Int64,
				Body:           messageBody.String,
				CreatedAt:      messageCreatedAt.Time,
			}
			if messageReadAt.Valid {
				readAt := messageReadAt.Time
				lastMessage.ReadAt = &readAt
			}
			summary.LastMessage = lastMessage
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}
