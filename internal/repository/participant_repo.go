package repository

import (
	"context"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type SessionParticipantRepository struct {
	db DBTX
}

func NewSessionParticipantRepository(db DBTX) *SessionParticipantRepository {
	return &SessionParticipantRepository{db: db}
}

func (r *SessionParticipantRepository) Add(
	ctx context.Context,
	sessionID int64,
	userID int64,
	role string,
) (*models.SessionParticipant, error) {
	query := `
		INSERT INTO session_participants (session_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING session_id, user_id, role, created_at
	`

	var participant models.SessionParticipant
	err := r.db.QueryRow(ctx, query, sessionID, userID, role).Scan(
		&participant.SessionID,
		&participant.UserID,
		&participant.Role,
		&participant.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// Remove is keyed and idempotent; removing an absent row is not an error so
// withdrawal cleanup can be retried safely.
func (r *SessionParticipantRepository) Remove(
	ctx context.Context,
	sessionID int64,
	userID int64,
) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM session_participants
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID)
	return err
}

func (r *SessionParticipantRepository) Exists(
	ctx context.Context,
	sessionID int64,
	userID int64,
) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM session_participants
			WHERE session_id = $1 AND user_id = $2
		)
	`, sessionID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *SessionParticipantRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
) ([]models.SessionParticipant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT session_id, user_id, role, created_at
		FROM session_participants
		WHERE session_id = $1
		ORDER BY created_at ASC, user_id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.SessionParticipant, 0)
	for rows.Next() {
		var participant models.SessionParticipant
		if err := rows.Scan(
			&participant.SessionID,
			&participant.UserID,
			&participant.Role,
			&participant.CreatedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return participants, nil
}
