package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ldupont/SparLinkBack/internal/models"
)

type stubEntitlementReader struct {
	entitlement *models.Entitlement
	err         error
}

func (s *stubEntitlementReader) GetByUserID(_ context.Context, _ int64) (*models.Entitlement, error) {
	return s.entitlement, s.err
}

type stubSessionCounter struct {
	count int
	err   error
	calls int
}

func (s *stubSessionCounter) CountCreatedInMonth(_ context.Context, _ int64, _ time.Time) (int, error) {
	s.calls++
	return s.count, s.err
}

func quotaServiceAt(entitlements *stubEntitlementReader, counter *stubSessionCounter, at time.Time) *QuotaService {
	service := NewQuotaService(entitlements, counter)
	service.now = func() time.Time { return at }
	return service
}

func TestCanCreateSessionUnderCap(t *testing.T) {
	counter := &stubSessionCounter{count: FreeMonthlySessionCap - 1}
	service := quotaServiceAt(&stubEntitlementReader{err: pgx.ErrNoRows}, counter, time.Now())

	allowed, err := service.CanCreateSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("CanCreateSession: %v", err)
	}
	if !allowed {
		t.Fatal("expected creation allowed below the cap")
	}
}

func TestCanCreateSessionAtCap(t *testing.T) {
	counter := &stubSessionCounter{count: FreeMonthlySessionCap}
	service := quotaServiceAt(&stubEntitlementReader{err: pgx.ErrNoRows}, counter, time.Now())

	allowed, err := service.CanCreateSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("CanCreateSession: %v", err)
	}
	if allowed {
		t.Fatal("expected creation rejected at the cap")
	}
}

func TestCanCreateSessionLifetimePremiumBypassesCount(t *testing.T) {
	counter := &stubSessionCounter{count: 100}
	entitlements := &stubEntitlementReader{
		entitlement: &models.Entitlement{UserID: 7, Plan: models.PlanPremium, Lifetime: true},
	}
	service := quotaServiceAt(entitlements, counter, time.Now())

	allowed, err := service.CanCreateSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("CanCreateSession: %v", err)
	}
	if !allowed {
		t.Fatal("expected lifetime premium to bypass the cap")
	}
	if counter.calls != 0 {
		t.Fatalf("expected no count query for premium, got %d", counter.calls)
	}
}

func TestCanCreateSessionExpiredPremiumCountsAsFree(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	counter := &stubSessionCounter{count: FreeMonthlySessionCap}
	entitlements := &stubEntitlementReader{
		entitlement: &models.Entitlement{UserID: 7, Plan: models.PlanPremium, PremiumUntil: &expired},
	}
	service := quotaServiceAt(entitlements, counter, now)

	allowed, err := service.CanCreateSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("CanCreateSession: %v", err)
	}
	if allowed {
		t.Fatal("expected expired premium to be capped like free")
	}
}

func TestCanCreateSessionActivePremiumUntil(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	until := now.Add(24 * time.Hour)
	counter := &stubSessionCounter{count: FreeMonthlySessionCap}
	entitlements := &stubEntitlementReader{
		entitlement: &models.Entitlement{UserID: 7, Plan: models.PlanPremium, PremiumUntil: &until},
	}
	service := quotaServiceAt(entitlements, counter, now)

	allowed, err := service.CanCreateSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("CanCreateSession: %v", err)
	}
	if !allowed {
		t.Fatal("expected active premium_until to bypass the cap")
	}
}
