package models

import "time"

type Session struct {
	ID              int64      `json:"id"`
	HostID          int64      `json:"host_id"`
	StartsAt        time.Time  `json:"starts_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Capacity        int        `json:"capacity"`
	Discipline      string     `json:"discipline"`
	Level           string     `json:"level"`
	City            *string    `json:"city"`
	MinHeightCM     *float64   `json:"min_height_cm"`
	MaxHeightCM     *float64   `json:"max_height_cm"`
	MinWeightKG     *float64   `json:"min_weight_kg"`
	MaxWeightKG     *float64   `json:"max_weight_kg"`
	DominantHand    *string    `json:"dominant_hand"`
	IsPublished     bool       `json:"is_published"`
	IsFull          bool       `json:"is_full"`
	BoostedUntil    *time.Time `json:"boosted_until"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type SessionParticipant struct {
	SessionID int64     `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ParticipantRoleHost    = "host"
	ParticipantRoleFighter = "fighter"
)
