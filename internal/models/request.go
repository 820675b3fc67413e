package models

import "time"

const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusDeclined  = "declined"
	RequestStatusWithdrawn = "withdrawn"
)

// SessionRequest is a fighter's bid to join someone else's session. At most
// one non-withdrawn request may exist per (session, requester) pair.
type SessionRequest struct {
	ID                int64     `json:"id"`
	SessionID         int64     `json:"session_id"`
	RequesterID       int64     `json:"requester_id"`
	Status            string    `json:"status"`
	ParticipantCount  int       `json:"participant_count"`
	Message           *string   `json:"message"`
	ParticipantEmails *[]string `json:"participant_emails"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
