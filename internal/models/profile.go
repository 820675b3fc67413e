package models

import "time"

type FighterProfile struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	DisplayName  *string    `json:"display_name"`
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	Gender       *string    `json:"gender"`
	Birthdate    *time.Time `json:"birthdate"`
	City         *string    `json:"city"`
	DominantHand *string    `json:"dominant_hand"`
	HeightCM     *float64   `json:"height_cm"`
	WeightKG     *float64   `json:"weight_kg"`
	AvatarURL    *string    `json:"avatar_url"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Discipline is one practiced discipline with the fighter's level in it
// (for example boxing/intermediate). A profile needs at least one to be
// considered complete.
type Discipline struct {
	Discipline string `json:"discipline"`
	Level      string `json:"level"`
}

type FighterProfileDetail struct {
	FighterProfile
	Disciplines []Discipline `json:"disciplines"`
	// Completeness is the percentage of required profile attributes present.
	Completeness int `json:"completeness"`
}
