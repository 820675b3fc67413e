package models

import "time"

const (
	NotificationRequestReceived  = "session_request_received"
	NotificationRequestAccepted  = "session_request_accepted"
	NotificationRequestRefused   = "session_request_refused"
	NotificationRequestWithdrawn = "session_request_withdrawn"
	NotificationUnreadChat       = "unread_chat"
	NotificationReviewNeeded     = "review_needed"
	NotificationBlogPost         = "blog_post"
)

// NotificationPayload carries the identifiers a client needs to route the
// recipient to the right screen. Fields are omitted when not applicable.
type NotificationPayload struct {
	SessionID      *int64 `json:"session_id,omitempty"`
	RequestID      *int64 `json:"request_id,omitempty"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
	MessageID      *int64 `json:"message_id,omitempty"`
}

type Notification struct {
	ID          int64               `json:"id"`
	RecipientID int64               `json:"recipient_id"`
	ActorID     *int64              `json:"actor_id"`
	Type        string              `json:"type"`
	Payload     NotificationPayload `json:"payload"`
	ReadAt      *time.Time          `json:"read_at"`
	EmailSentAt *time.Time          `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}
