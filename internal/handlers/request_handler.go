package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/services"
)

type requestLifecycleService interface {
	SubmitRequest(ctx context.Context, requesterID int64, input services.SubmitRequestInput) (*models.SessionRequest, error)
	Decide(ctx context.Context, actorID int64, requestID int64, decision string) (*services.DecisionResult, error)
	WithdrawOrCancel(ctx context.Context, actorID int64, requestID int64) (*models.SessionRequest, error)
	ReverseAcceptance(ctx context.Context, actorID int64, requestID int64) (*models.SessionRequest, error)
	GetRequest(ctx context.Context, actorID int64, requestID int64) (*models.SessionRequest, error)
	ListForSession(ctx context.Context, actorID int64, sessionID int64) ([]models.SessionRequest, error)
	ListMine(ctx context.Context, actorID int64) ([]models.SessionRequest, error)
}

type SessionRequestHandler struct {
	requestService requestLifecycleService
}

func NewSessionRequestHandler(requestService requestLifecycleService) *SessionRequestHandler {
	return &SessionRequestHandler{requestService: requestService}
}

type submitRequestBody struct {
	SessionID         int64     `json:"session_id"`
	ParticipantCount  int       `json:"participant_count"`
	Message           *string   `json:"message"`
	ParticipantEmails *[]string `json:"participant_emails"`
}

func (h *SessionRequestHandler) SubmitRequest(c *fiber.Ctx) error {
	requesterID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var body submitRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if body.ParticipantCount == 0 {
		body.ParticipantCount = 1
	}

	request, err := h.requestService.SubmitRequest(c.Context(), requesterID, services.SubmitRequestInput{
		SessionID:         body.SessionID,
		ParticipantCount:  body.ParticipantCount,
		Message:           body.Message,
		ParticipantEmails: body.ParticipantEmails,
	})
	if err != nil {
		return mapRequestError(c, err, "Failed to submit request")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

type decisionBody struct {
	Decision string `json:"decision"`
}

func (h *SessionRequestHandler) Decide(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var body decisionBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.requestService.Decide(c.Context(), actorID, int64(requestID), body.Decision)
	if err != nil {
		return mapRequestError(c, err, "Failed to record decision")
	}

	return c.JSON(result)
}

func (h *SessionRequestHandler) Withdraw(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.requestService.WithdrawOrCancel(c.Context(), actorID, int64(requestID))
	if err != nil {
		return mapRequestError(c, err, "Failed to withdraw request")
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *SessionRequestHandler) ReverseAcceptance(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.requestService.ReverseAcceptance(c.Context(), actorID, int64(requestID))
	if err != nil {
		return mapRequestError(c, err, "Failed to reverse acceptance")
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *SessionRequestHandler) GetRequest(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.requestService.GetRequest(c.Context(), actorID, int64(requestID))
	if err != nil {
		return mapRequestError(c, err, "Failed to fetch request")
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *SessionRequestHandler) ListForSession(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	requests, err := h.requestService.ListForSession(c.Context(), actorID, int64(sessionID))
	if err != nil {
		return mapRequestError(c, err, "Failed to fetch requests")
	}

	return c.JSON(fiber.Map{"requests": requests})
}

func (h *SessionRequestHandler) ListMine(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requests, err := h.requestService.ListMine(c.Context(), actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch requests"})
	}

	return c.JSON(fiber.Map{"requests": requests})
}

func mapRequestError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "An active request for this session already exists"})
	case errors.Is(err, services.ErrSessionUnavailable):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Session is not open for requests"})
	case errors.Is(err, services.ErrInvalidState):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Request is not in a state that allows this action"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
