package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/services"
)

type stubHookRequestReader struct {
	request *models.SessionRequest
	err     error
}

func (s *stubHookRequestReader) GetByID(_ context.Context, _ int64) (*models.SessionRequest, error) {
	return s.request, s.err
}

func (s *stubHookRequestReader) GetActive(_ context.Context, _ int64, _ int64) (*models.SessionRequest, error) {
	return s.request, s.err
}

type stubHookSessionReader struct {
	session *models.Session
	err     error
}

func (s *stubHookSessionReader) GetByID(_ context.Context, _ int64) (*models.Session, error) {
	return s.session, s.err
}

type stubEntitlementWriter struct {
	lastUserID   int64
	lastPlan     string
	lastLifetime bool
	err          error
}

func (s *stubEntitlementWriter) Upsert(_ context.Context, userID int64, plan string, lifetime bool, premiumUntil *time.Time) (*models.Entitlement, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastUserID = userID
	s.lastPlan = plan
	s.lastLifetime = lifetime
	return &models.Entitlement{UserID: userID, Plan: plan, Lifetime: lifetime, PremiumUntil: premiumUntil}, nil
}

type stubHookNotifier struct {
	emitted  []string
	emailed  []int64
	emitErr  error
	emailErr error
}

func (s *stubHookNotifier) Emit(_ context.Context, notificationType string, recipientID int64, _ *int64, _ models.NotificationPayload) (*models.Notification, error) {
	if s.emitErr != nil {
		return nil, s.emitErr
	}
	s.emitted = append(s.emitted, notificationType)
	return &models.Notification{ID: 1, RecipientID: recipientID, Type: notificationType}, nil
}

func (s *stubHookNotifier) EmailRecipient(_ context.Context, recipientID int64, _, _ string) error {
	if s.emailErr != nil {
		return s.emailErr
	}
	s.emailed = append(s.emailed, recipientID)
	return nil
}

type stubReminderRunner struct {
	chatSummary   *services.BatchSummary
	reviewSummary *services.BatchSummary
	err           error
}

func (s *stubReminderRunner) ChatReminders(_ context.Context) (*services.BatchSummary, error) {
	return s.chatSummary, s.err
}

func (s *stubReminderRunner) ReviewReminders(_ context.Context) (*services.BatchSummary, error) {
	return s.reviewSummary, s.err
}

type hookHarness struct {
	requests     *stubHookRequestReader
	sessions     *stubHookSessionReader
	entitlements *stubEntitlementWriter
	notifier     *stubHookNotifier
	reminders    *stubReminderRunner
	app          *fiber.App
}

func newHookHarness(mailerConfigured bool) *hookHarness {
	h := &hookHarness{
		requests:     &stubHookRequestReader{},
		sessions:     &stubHookSessionReader{},
		entitlements: &stubEntitlementWriter{},
		notifier:     &stubHookNotifier{},
		reminders:    &stubReminderRunner{},
	}
	handler := NewHooksHandler(
		h.requests,
		h.sessions,
		h.entitlements,
		h.notifier,
		h.reminders,
		mailerConfigured,
		"cron-secret",
		"billing-secret",
	)

	app := fiber.New()
	app.Post("/api/hooks/request-received", handler.RequestReceived)
	app.Post("/api/hooks/request-decision", handler.RequestDecision)
	app.Post("/api/hooks/request-withdrawn", handler.RequestWithdrawn)
	app.Post("/api/hooks/billing", handler.Billing)
	app.Post("/api/cron/chat-reminders", handler.ChatReminders)
	app.Post("/api/cron/review-reminders", handler.ReviewReminders)
	h.app = app
	return h
}

func postJSON(t *testing.T, app *fiber.App, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestRequestReceivedHookEmitsAndEmails(t *testing.T) {
	h := newHookHarness(true)
	h.sessions.session = &models.Session{ID: 5, HostID: 100, Discipline: "boxing"}
	h.requests.request = &models.SessionRequest{ID: 9, SessionID: 5, RequesterID: 42}

	resp := postJSON(t, h.app, "/api/hooks/request-received", `{"sessionId": 5, "requesterId": 42}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(h.notifier.emitted) != 1 || h.notifier.emitted[0] != models.NotificationRequestReceived {
		t.Fatalf("expected one request_received emit, got %v", h.notifier.emitted)
	}
	if len(h.notifier.emailed) != 1 || h.notifier.emailed[0] != 100 {
		t.Fatalf("expected one email to the host, got %v", h.notifier.emailed)
	}

	var body struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK {
		t.Fatal("expected ok:true")
	}
}

func TestRequestReceivedHookMailerUnconfigured(t *testing.T) {
	h := newHookHarness(false)

	resp := postJSON(t, h.app, "/api/hooks/request-received", `{"sessionId": 5, "requesterId": 42}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestRequestReceivedHookBadPayload(t *testing.T) {
	h := newHookHarness(true)

	resp := postJSON(t, h.app, "/api/hooks/request-received", `{"sessionId": 0}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequestReceivedHookUnknownSession(t *testing.T) {
	h := newHookHarness(true)
	h.sessions.err = pgx.ErrNoRows

	resp := postJSON(t, h.app, "/api/hooks/request-received", `{"sessionId": 5, "requesterId": 42}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRequestDecisionHookAccepted(t *testing.T) {
	h := newHookHarness(true)
	h.requests.request = &models.SessionRequest{ID: 9, SessionID: 5, RequesterID: 42}
	h.sessions.session = &models.Session{ID: 5, HostID: 100}

	resp := postJSON(t, h.app, "/api/hooks/request-decision", `{"requestId": 9, "decision": "accepted"}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(h.notifier.emitted) != 1 || h.notifier.emitted[0] != models.NotificationRequestAccepted {
		t.Fatalf("expected request_accepted emit, got %v", h.notifier.emitted)
	}
	if len(h.notifier.emailed) != 1 || h.notifier.emailed[0] != 42 {
		t.Fatalf("expected email to the requester, got %v", h.notifier.emailed)
	}
}

func TestRequestDecisionHookInvalidDecision(t *testing.T) {
	h := newHookHarness(true)

	resp := postJSON(t, h.app, "/api/hooks/request-decision", `{"requestId": 9, "decision": "maybe"}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequestWithdrawnHookSkipsEmailWhenNotAsked(t *testing.T) {
	h := newHookHarness(true)
	h.requests.request = &models.SessionRequest{ID: 9, SessionID: 5, RequesterID: 42}
	h.sessions.session = &models.Session{ID: 5, HostID: 100}

	resp := postJSON(t, h.app, "/api/hooks/request-withdrawn", `{"requestId": 9, "sendEmail": false}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(h.notifier.emitted) != 1 || h.notifier.emitted[0] != models.NotificationRequestWithdrawn {
		t.Fatalf("expected request_withdrawn emit, got %v", h.notifier.emitted)
	}
	if len(h.notifier.emailed) != 0 {
		t.Fatalf("expected no email, got %v", h.notifier.emailed)
	}
}

func TestRequestWithdrawnHookUnknownRequest(t *testing.T) {
	h := newHookHarness(true)
	h.requests.err = pgx.ErrNoRows

	resp := postJSON(t, h.app, "/api/hooks/request-withdrawn", `{"requestId": 9, "sendEmail": true}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestBillingHookRequiresSecret(t *testing.T) {
	h := newHookHarness(true)

	resp := postJSON(t, h.app, "/api/hooks/billing", `{"userId": 7, "plan": "premium"}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", resp.StatusCode)
	}
}

func TestBillingHookUpserts(t *testing.T) {
	h := newHookHarness(true)

	resp := postJSON(
		t,
		h.app,
		"/api/hooks/billing",
		`{"userId": 7, "plan": "premium", "lifetime": true}`,
		map[string]string{"Authorization": "Bearer billing-secret"},
	)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if h.entitlements.lastUserID != 7 || h.entitlements.lastPlan != models.PlanPremium || !h.entitlements.lastLifetime {
		t.Fatalf("expected upsert(7, premium, lifetime), got (%d, %s, %v)",
			h.entitlements.lastUserID, h.entitlements.lastPlan, h.entitlements.lastLifetime)
	}
}

func TestBillingHookRejectsUnknownPlan(t *testing.T) {
	h := newHookHarness(true)

	resp := postJSON(
		t,
		h.app,
		"/api/hooks/billing",
		`{"userId": 7, "plan": "platinum"}`,
		map[string]string{"Authorization": "Bearer billing-secret"},
	)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatRemindersCronRequiresSecret(t *testing.T) {
	h := newHookHarness(true)

	resp := postJSON(t, h.app, "/api/cron/chat-reminders", "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", resp.StatusCode)
	}
}

func TestChatRemindersCronReturnsSummary(t *testing.T) {
	h := newHookHarness(true)
	h.reminders.chatSummary = &services.BatchSummary{
		Sent: 2,
		Results: []services.BatchItem{
			{ID: 1, Outcome: "sent"},
			{ID: 2, Outcome: "sent"},
			{ID: 3, Outcome: "skipped", Reason: "already notified"},
		},
	}

	resp := postJSON(
		t,
		h.app,
		"/api/cron/chat-reminders",
		"",
		map[string]string{"Authorization": "Bearer cron-secret"},
	)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		OK      bool                 `json:"ok"`
		Sent    int                  `json:"sent"`
		Results []services.BatchItem `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Sent != 2 || len(body.Results) != 3 {
		t.Fatalf("unexpected summary: %+v", body)
	}
}

func TestReviewRemindersCronReturnsSummary(t *testing.T) {
	h := newHookHarness(true)
	h.reminders.reviewSummary = &services.BatchSummary{Sent: 0, Results: []services.BatchItem{}}

	resp := postJSON(
		t,
		h.app,
		"/api/cron/review-reminders",
		"",
		map[string]string{"Authorization": "Bearer cron-secret"},
	)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
