package repository

import (
	"context"
	"time"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type EntitlementRepository struct {
	db DBTX
}

func NewEntitlementRepository(db DBTX) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) GetByUserID(
	ctx context.Context,
	userID int64,
) (*models.Entitlement, error) {
	query := `
		SELECT user_id, plan, lifetime, premium_until, updated_at
		FROM entitlements
		WHERE user_id = $1
	`

	var entitlement models.Entitlement
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&entitlement.UserID,
		&entitlement.Plan,
		&entitlement.Lifetime,
		&entitlement.PremiumUntil,
		&entitlement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}

// Upsert is invoked only by the billing webhook.
func (r *EntitlementRepository) Upsert(
	ctx context.Context,
	userID int64,
	plan string,
	lifetime bool,
	premiumUntil *time.Time,
) (*models.Entitlement, error) {
	query := `
		INSERT INTO entitlements (user_id, plan, lifetime, premium_until, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
			lifetime = EXCLUDED.lifetime,
			premium_until = EXCLUDED.premium_until,
			updated_at = NOW()
		RETURNING user_id, plan, lifetime, premium_until, updated_at
	`

	var entitlement models.Entitlement
	err := r.db.QueryRow(ctx, query, userID, plan, lifetime, premiumUntil).Scan(
		&entitlement.UserID,
		&entitlement.Plan,
		&entitlement.Lifetime,
		&entitlement.PremiumUntil,
		&entitlement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}
