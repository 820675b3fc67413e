package models

import "time"

// Conversation is a 1:1 channel between two fighters scoped to a session.
// UserA is always the smaller of the two ids so the pair is uniquely keyed.
type Conversation struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	UserA     int64     `json:"user_a"`
	UserB     int64     `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}

func (c *Conversation) OtherParticipant(userID int64) int64 {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}
