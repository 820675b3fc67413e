package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

type noopLifecycleNotifier struct{}

func (noopLifecycleNotifier) Notify(
	_ context.Context,
	_ string,
	_ int64,
	_ *int64,
	_ models.NotificationPayload,
	_ string,
	_ string,
) {
}

func TestRequestLifecycleAcceptProvisionsConversation(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationRequestService(pool)

	hostID := createTestFighter(t, ctx, pool)
	requesterID := createTestFighter(t, ctx, pool)
	t.Cleanup(func() { cleanupTestFighters(t, ctx, pool, hostID, requesterID) })

	sessionID := createPublishedSession(t, ctx, pool, hostID)

	request, err := service.SubmitRequest(ctx, requesterID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1})
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if request.Status != models.RequestStatusPending {
		t.Fatalf("expected pending, got %s", request.Status)
	}

	result, err := service.Decide(ctx, hostID, request.ID, "accepted")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Request.Status != models.RequestStatusAccepted {
		t.Fatalf("expected accepted, got %s", result.Request.Status)
	}
	if result.Conversation == nil {
		t.Fatal("expected a conversation on acceptance")
	}

	wantA, wantB := repository.CanonicalPair(hostID, requesterID)
	if result.Conversation.UserA != wantA || result.Conversation.UserB != wantB {
		t.Fatalf("expected canonical pair (%d, %d), got (%d, %d)",
			wantA, wantB, result.Conversation.UserA, result.Conversation.UserB)
	}

	participantRepo := repository.NewSessionParticipantRepository(pool)
	joined, err := participantRepo.Exists(ctx, sessionID, requesterID)
	if err != nil {
		t.Fatalf("participant Exists: %v", err)
	}
	if !joined {
		t.Fatal("expected a participant row after acceptance")
	}

	// Re-provisioning must return the same conversation, not a second row.
	conversationRepo := repository.NewConversationRepository(pool)
	again, err := conversationRepo.CreateOrGet(ctx, sessionID, requesterID, hostID)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if again.ID != result.Conversation.ID {
		t.Fatalf("expected conversation %d again, got %d", result.Conversation.ID, again.ID)
	}

	// The decision is not repeatable once the request left pending.
	if _, err := service.Decide(ctx, hostID, request.ID, "declined"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on a second decision, got %v", err)
	}
}

func TestRequestLifecycleDuplicateSubmitConflict(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationRequestService(pool)

	hostID := createTestFighter(t, ctx, pool)
	requesterID := createTestFighter(t, ctx, pool)
	t.Cleanup(func() { cleanupTestFighters(t, ctx, pool, hostID, requesterID) })

	sessionID := createPublishedSession(t, ctx, pool, hostID)

	first, err := service.SubmitRequest(ctx, requesterID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1})
	if err != nil {
		t.Fatalf("first SubmitRequest: %v", err)
	}

	if _, err := service.SubmitRequest(ctx, requesterID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate submit, got %v", err)
	}

	// Withdrawing frees the slot for a fresh request.
	if _, err := service.WithdrawOrCancel(ctx, requesterID, first.ID); err != nil {
		t.Fatalf("WithdrawOrCancel: %v", err)
	}
	if _, err := service.SubmitRequest(ctx, requesterID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1}); err != nil {
		t.Fatalf("resubmit after withdraw: %v", err)
	}
}

func TestRequestLifecycleWithdrawAfterAcceptRemovesParticipant(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationRequestService(pool)

	hostID := createTestFighter(t, ctx, pool)
	requesterID := createTestFighter(t, ctx, pool)
	t.Cleanup(func() { cleanupTestFighters(t, ctx, pool, hostID, requesterID) })

	sessionID := createPublishedSession(t, ctx, pool, hostID)

	request, err := service.SubmitRequest(ctx, requesterID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1})
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if _, err := service.Decide(ctx, hostID, request.ID, "accepted"); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	withdrawn, err := service.WithdrawOrCancel(ctx, requesterID, request.ID)
	if err != nil {
		t.Fatalf("WithdrawOrCancel: %v", err)
	}
	if withdrawn.Status != models.RequestStatusWithdrawn {
		t.Fatalf("expected withdrawn, got %s", withdrawn.Status)
	}

	participantRepo := repository.NewSessionParticipantRepository(pool)
	joined, err := participantRepo.Exists(ctx, sessionID, requesterID)
	if err != nil {
		t.Fatalf("participant Exists: %v", err)
	}
	if joined {
		t.Fatal("expected the participant row removed after withdrawal")
	}

	if _, err := service.WithdrawOrCancel(ctx, requesterID, request.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on repeated withdrawal, got %v", err)
	}
}

func TestRequestLifecycleReverseAcceptance(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationRequestService(pool)

	hostID := createTestFighter(t, ctx, pool)
	requesterID := createTestFighter(t, ctx, pool)
	t.Cleanup(func() { cleanupTestFighters(t, ctx, pool, hostID, requesterID) })

	sessionID := createPublishedSession(t, ctx, pool, hostID)

	request, err := service.SubmitRequest(ctx, requesterID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1})
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if _, err := service.Decide(ctx, hostID, request.ID, "accepted"); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if _, err := service.ReverseAcceptance(ctx, requesterID, request.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-host reversal, got %v", err)
	}

	reversed, err := service.ReverseAcceptance(ctx, hostID, request.ID)
	if err != nil {
		t.Fatalf("ReverseAcceptance: %v", err)
	}
	if reversed.Status != models.RequestStatusDeclined {
		t.Fatalf("expected declined, got %s", reversed.Status)
	}

	participantRepo := repository.NewSessionParticipantRepository(pool)
	joined, err := participantRepo.Exists(ctx, sessionID, requesterID)
	if err != nil {
		t.Fatalf("participant Exists: %v", err)
	}
	if joined {
		t.Fatal("expected the participant row removed after reversal")
	}
}

func TestRequestLifecycleHostCannotRequestOwnSession(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationRequestService(pool)

	hostID := createTestFighter(t, ctx, pool)
	t.Cleanup(func() { cleanupTestFighters(t, ctx, pool, hostID) })

	sessionID := createPublishedSession(t, ctx, pool, hostID)

	if _, err := service.SubmitRequest(ctx, hostID, SubmitRequestInput{SessionID: sessionID, ParticipantCount: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for the host's own session, got %v", err)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationRequestService(pool *pgxpool.Pool) *RequestService {
	return NewRequestService(
		pool,
		repository.NewSessionRequestRepository(pool),
		repository.NewSessionRepository(pool),
		repository.NewSessionParticipantRepository(pool),
		noopLifecycleNotifier{},
	)
}

func createTestFighter(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("request-test-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "test-hash",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	profileRepo := repository.NewFighterProfileRepository(pool)
	if err := profileRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty profile: %v", err)
	}
	return user.ID
}

func createPublishedSession(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hostID int64) int64 {
	t.Helper()

	sessionRepo := repository.NewSessionRepository(pool)
	session, err := sessionRepo.Create(ctx, repository.CreateSessionInput{
		HostID:     hostID,
		StartsAt:   time.Now().Add(72 * time.Hour).UTC(),
		Capacity:   2,
		Discipline: "boxing",
		Level:      "intermediate",
	})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	if _, err := sessionRepo.SetPublished(ctx, session.ID, true); err != nil {
		t.Fatalf("SetPublished: %v", err)
	}
	return session.ID
}

func cleanupTestFighters(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	statements := []string{
		"DELETE FROM notifications WHERE recipient_id = ANY($1) OR actor_id = ANY($1)",
		"DELETE FROM messages WHERE sender_id = ANY($1) OR conversation_id IN (SELECT id FROM conversations WHERE user_a = ANY($1) OR user_b = ANY($1))",
		"DELETE FROM conversations WHERE user_a = ANY($1) OR user_b = ANY($1)",
		"DELETE FROM session_participants WHERE user_id = ANY($1) OR session_id IN (SELECT id FROM sessions WHERE host_id = ANY($1))",
		"DELETE FROM session_requests WHERE requester_id = ANY($1) OR session_id IN (SELECT id FROM sessions WHERE host_id = ANY($1))",
		"DELETE FROM sessions WHERE host_id = ANY($1)",
		"DELETE FROM entitlements WHERE user_id = ANY($1)",
		"DELETE FROM fighter_disciplines WHERE user_id = ANY($1)",
		"DELETE FROM fighter_profiles WHERE user_id = ANY($1)",
		"DELETE FROM users WHERE id = ANY($1)",
	}
	for _, statement := range statements {
		if _, err := pool.Exec(ctx, statement, userIDs); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	}
}
