package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ldupont/SparLinkBack/internal/models"
)

// FreeMonthlySessionCap is the number of sessions a free user may create per
// UTC calendar month. The fifth attempt in a month is rejected.
const FreeMonthlySessionCap = 4

type entitlementReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Entitlement, error)
}

type sessionCounter interface {
	CountCreatedInMonth(ctx context.Context, hostID int64, at time.Time) (int, error)
}

type QuotaService struct {
	entitlementRepo entitlementReader
	sessionRepo     sessionCounter
	now             func() time.Time
}

func NewQuotaService(entitlementRepo entitlementReader, sessionRepo sessionCounter) *QuotaService {
	return &QuotaService{
		entitlementRepo: entitlementRepo,
		sessionRepo:     sessionRepo,
		now:             time.Now,
	}
}

// CanCreateSession reports whether the user may create one more session.
// Premium entitlements bypass the cap entirely; a missing entitlement row
// means free plan. The count-then-create window is deliberately unguarded:
// a race can overshoot the cap by at most one session.
func (s *QuotaService) CanCreateSession(ctx context.Context, userID int64) (bool, error) {
	now := s.now().UTC()

	entitlement, err := s.entitlementRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	if entitlement.IsPremium(now) {
		return true, nil
	}

	count, err := s.sessionRepo.CountCreatedInMonth(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return count < FreeMonthlySessionCap, nil
}
