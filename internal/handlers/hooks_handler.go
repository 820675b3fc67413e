package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/services"
)

type hookNotifier interface {
	Emit(ctx context.Context, notificationType string, recipientID int64, actorID *int64, payload models.NotificationPayload) (*models.Notification, error)
	EmailRecipient(ctx context.Context, recipientID int64, subject string, text string) error
}

type reminderRunner interface {
	ChatReminders(ctx context.Context) (*services.BatchSummary, error)
	ReviewReminders(ctx context.Context) (*services.BatchSummary, error)
}

type hookRequestReader interface {
	GetByID(ctx context.Context, requestID int64) (*models.SessionRequest, error)
	GetActive(ctx context.Context, sessionID int64, requesterID int64) (*models.SessionRequest, error)
}

type hookSessionReader interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
}

type entitlementWriter interface {
	Upsert(ctx context.Context, userID int64, plan string, lifetime bool, premiumUntil *time.Time) (*models.Entitlement, error)
}

// HooksHandler serves the side-effect endpoints called by external
// collaborators: notification hooks for clients that write request rows
// through the data layer directly, the billing webhook, and the cron batch
// triggers. None of these sit behind user auth; the cron and billing routes
// check a shared secret instead.
type HooksHandler struct {
	requestRepo      hookRequestReader
	sessionRepo      hookSessionReader
	entitlementRepo  entitlementWriter
	notifier         hookNotifier
	reminders        reminderRunner
	mailerConfigured bool
	cronSecret       string
	billingSecret    string
}

func NewHooksHandler(
	requestRepo hookRequestReader,
	sessionRepo hookSessionReader,
	entitlementRepo entitlementWriter,
	notifier hookNotifier,
	reminders reminderRunner,
	mailerConfigured bool,
	cronSecret string,
	billingSecret string,
) *HooksHandler {
	return &HooksHandler{
		requestRepo:      requestRepo,
		sessionRepo:      sessionRepo,
		entitlementRepo:  entitlementRepo,
		notifier:         notifier,
		reminders:        reminders,
		mailerConfigured: mailerConfigured,
		cronSecret:       cronSecret,
		billingSecret:    billingSecret,
	}
}

type requestReceivedHook struct {
	SessionID   int64 `json:"sessionId"`
	RequesterID int64 `json:"requesterId"`
}

func (h *HooksHandler) RequestReceived(c *fiber.Ctx) error {
	if !h.mailerConfigured {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Mailer is not configured"})
	}

	var body requestReceivedHook
	if err := c.BodyParser(&body); err != nil || body.SessionID <= 0 || body.RequesterID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	session, err := h.sessionRepo.GetByID(c.Context(), body.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch session"})
	}

	request, err := h.requestRepo.GetActive(c.Context(), body.SessionID, body.RequesterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch request"})
	}

	payload := models.NotificationPayload{
		SessionID: &request.SessionID,
		RequestID: &request.ID,
	}
	if _, err := h.notifier.Emit(
		c.Context(),
		models.NotificationRequestReceived,
		session.HostID,
		&body.RequesterID,
		payload,
	); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to record notification"})
	}

	if err := h.notifier.EmailRecipient(
		c.Context(),
		session.HostID,
		"New request for your session",
		fmt.Sprintf("A fighter asked to join your %s session. Open the app to respond.", session.Discipline),
	); err != nil {
		return mapHookEmailError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

type requestDecisionHook struct {
	RequestID int64  `json:"requestId"`
	Decision  string `json:"decision"`
}

func (h *HooksHandler) RequestDecision(c *fiber.Ctx) error {
	if !h.mailerConfigured {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Mailer is not configured"})
	}

	var body requestDecisionHook
	if err := c.BodyParser(&body); err != nil || body.RequestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	notificationType := ""
	subject := ""
	text := ""
	switch strings.ToLower(strings.TrimSpace(body.Decision)) {
	case "accept", "accepted":
		notificationType = models.NotificationRequestAccepted
		subject = "Your session request was accepted"
		text = "The host accepted your request. Open the app to chat and plan the session."
	case "decline", "declined", "refuse", "refused":
		notificationType = models.NotificationRequestRefused
		subject = "Your session request was declined"
		text = "The host declined your request. Keep looking, other sessions are waiting."
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	request, err := h.requestRepo.GetByID(c.Context(), body.RequestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch request"})
	}
	session, err := h.sessionRepo.GetByID(c.Context(), request.SessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch session"})
	}

	payload := models.NotificationPayload{
		SessionID: &request.SessionID,
		RequestID: &request.ID,
	}
	if _, err := h.notifier.Emit(
		c.Context(),
		notificationType,
		request.RequesterID,
		&session.HostID,
		payload,
	); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to record notification"})
	}

	if err := h.notifier.EmailRecipient(c.Context(), request.RequesterID, subject, text); err != nil {
		return mapHookEmailError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

type requestWithdrawnHook struct {
	RequestID int64 `json:"requestId"`
	SendEmail bool  `json:"sendEmail"`
}

func (h *HooksHandler) RequestWithdrawn(c *fiber.Ctx) error {
	if !h.mailerConfigured {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Mailer is not configured"})
	}

	var body requestWithdrawnHook
	if err := c.BodyParser(&body); err != nil || body.RequestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	request, err := h.requestRepo.GetByID(c.Context(), body.RequestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch request"})
	}
	session, err := h.sessionRepo.GetByID(c.Context(), request.SessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch session"})
	}

	payload := models.NotificationPayload{
		SessionID: &request.SessionID,
		RequestID: &request.ID,
	}
	if _, err := h.notifier.Emit(
		c.Context(),
		models.NotificationRequestWithdrawn,
		session.HostID,
		&request.RequesterID,
		payload,
	); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to record notification"})
	}

	if body.SendEmail {
		if err := h.notifier.EmailRecipient(
			c.Context(),
			session.HostID,
			"A request for your session was withdrawn",
			"The fighter withdrew their request. The spot is open again.",
		); err != nil {
			return mapHookEmailError(c, err)
		}
	}

	return c.JSON(fiber.Map{"ok": true})
}

type billingHook struct {
	UserID       int64      `json:"userId"`
	Plan         string     `json:"plan"`
	Lifetime     bool       `json:"lifetime"`
	PremiumUntil *time.Time `json:"premiumUntil"`
}

func (h *HooksHandler) Billing(c *fiber.Ctx) error {
	if !h.checkSecret(c, h.billingSecret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid secret"})
	}

	var body billingHook
	if err := c.BodyParser(&body); err != nil || body.UserID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}
	switch body.Plan {
	case models.PlanFree, models.PlanPremium:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	entitlement, err := h.entitlementRepo.Upsert(
		c.Context(),
		body.UserID,
		body.Plan,
		body.Lifetime,
		body.PremiumUntil,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update entitlement"})
	}

	return c.JSON(fiber.Map{"ok": true, "entitlement": entitlement})
}

func (h *HooksHandler) ChatReminders(c *fiber.Ctx) error {
	if !h.checkSecret(c, h.cronSecret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid secret"})
	}
	if !h.mailerConfigured {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Mailer is not configured"})
	}

	summary, err := h.reminders.ChatReminders(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to run chat reminders"})
	}

	return c.JSON(fiber.Map{"ok": true, "sent": summary.Sent, "results": summary.Results})
}

func (h *HooksHandler) ReviewReminders(c *fiber.Ctx) error {
	if !h.checkSecret(c, h.cronSecret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid secret"})
	}
	if !h.mailerConfigured {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Mailer is not configured"})
	}

	summary, err := h.reminders.ReviewReminders(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to run review reminders"})
	}

	return c.JSON(fiber.Map{"ok": true, "sent": summary.Sent, "results": summary.Results})
}

func (h *HooksHandler) checkSecret(c *fiber.Ctx, secret string) bool {
	if secret == "" {
		return false
	}
	provided := strings.TrimSpace(c.Get("Authorization"))
	provided = strings.TrimPrefix(provided, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

func mapHookEmailError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrMailerUnavailable) {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Mailer is not configured"})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Recipient not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send email"})
}
