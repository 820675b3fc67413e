package repository

import (
	"context"
	"fmt"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type CreateRequestInput struct {
	SessionID         int64
	RequesterID       int64
	ParticipantCount  int
	Message           *string
	ParticipantEmails *[]string
}

type SessionRequestRepository struct {
	db DBTX
}

func NewSessionRequestRepository(db DBTX) *SessionRequestRepository {
	return &SessionRequestRepository{db: db}
}

const requestColumns = `
	id, session_id, requester_id, status, participant_count, message,
	participant_emails, created_at, updated_at
`

func scanRequest(row interface{ Scan(...any) error }) (*models.SessionRequest, error) {
	var request models.SessionRequest
	err := row.Scan(
		&request.ID,
		&request.SessionID,
		&request.RequesterID,
		&request.Status,
		&request.ParticipantCount,
		&request.Message,
		&request.ParticipantEmails,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *SessionRequestRepository) Create(
	ctx context.Context,
	input CreateRequestInput,
) (*models.SessionRequest, error) {
	query := fmt.Sprintf(`
		INSERT INTO session_requests (
			session_id, requester_id, status, participant_count, message, participant_emails
		)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING %s
	`, requestColumns)

	return scanRequest(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.RequesterID,
		input.ParticipantCount,
		input.Message,
		input.ParticipantEmails,
	))
}

func (r *SessionRequestRepository) GetByID(
	ctx context.Context,
	requestID int64,
) (*models.SessionRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM session_requests
		WHERE id = $1
	`, requestColumns)
	return scanRequest(r.db.QueryRow(ctx, query, requestID))
}

// GetActive returns the requester's non-withdrawn request on a session, if
// any. Used as the optimistic duplicate check before insert; the partial
// unique index remains the authoritative guard.
func (r *SessionRequestRepository) GetActive(
	ctx context.Context,
	sessionID int64,
	requesterID int64,
) (*models.SessionRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM session_requests
		WHERE session_id = $1
		  AND requester_id = $2
		  AND status <> 'withdrawn'
	`, requestColumns)
	return scanRequest(r.db.QueryRow(ctx, query, sessionID, requesterID))
}

func (r *SessionRequestRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
) ([]models.SessionRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM session_requests
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, requestColumns)
	return r.list(ctx, query, sessionID)
}

func (r *SessionRequestRepository) ListByRequester(
	ctx context.Context,
	requesterID int64,
) ([]models.SessionRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM session_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC, id DESC
	`, requestColumns)
	return r.list(ctx, query, requesterID)
}

func (r *SessionRequestRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.SessionRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.SessionRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

// UpdateStatusIfCurrent is a compare-and-swap on status: the update succeeds
// only if the row still holds currentStatus, so concurrent transitions on the
// same request resolve to exactly one winner. Losers see pgx.ErrNoRows.
func (r *SessionRequestRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	requestID int64,
	currentStatus string,
	nextStatus string,
) (*models.SessionRequest, error) {
	query := fmt.Sprintf(`
		UPDATE session_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, requestColumns)
	return scanRequest(r.db.QueryRow(ctx, query, requestID, currentStatus, nextStatus))
}

// UpdateStatusIfIn is the multi-source variant used by withdrawal, which is
// legal from either pending or accepted.
func (r *SessionRequestRepository) UpdateStatusIfIn(
	ctx context.Context,
	requestID int64,
	currentStatuses []string,
	nextStatus string,
) (*models.SessionRequest, error) {
	query := fmt.Sprintf(`
		UPDATE session_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)
		RETURNING %s
	`, requestColumns)
	return scanRequest(r.db.QueryRow(ctx, query, requestID, currentStatuses, nextStatus))
}
