package models

import "time"

const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Entitlement is the per-user plan state. It is written only by the billing
// webhook; the rest of the app just reads it for quota decisions.
type Entitlement struct {
	UserID       int64      `json:"user_id"`
	Plan         string     `json:"plan"`
	Lifetime     bool       `json:"lifetime"`
	PremiumUntil *time.Time `json:"premium_until"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsPremium reports whether the entitlement grants premium access at now.
func (e *Entitlement) IsPremium(now time.Time) bool {
	if e == nil {
		return false
	}
	if e.Lifetime {
		return true
	}
	return e.PremiumUntil != nil && e.PremiumUntil.After(now)
}
