package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/ldupont/SparLinkBack/internal/repository"
	"github.com/ldupont/SparLinkBack/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

type createSessionRequest struct {
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes *int      `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	Discipline      string    `json:"discipline"`
	Level           string    `json:"level"`
	City            *string   `json:"city"`
	MinHeightCM     *float64  `json:"min_height_cm"`
	MaxHeightCM     *float64  `json:"max_height_cm"`
	MinWeightKG     *float64  `json:"min_weight_kg"`
	MaxWeightKG     *float64  `json:"max_weight_kg"`
	DominantHand    *string   `json:"dominant_hand"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	hostID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.sessionService.CreateSession(c.Context(), hostID, repository.CreateSessionInput{
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		Discipline:      req.Discipline,
		Level:           req.Level,
		City:            req.City,
		MinHeightCM:     req.MinHeightCM,
		MaxHeightCM:     req.MaxHeightCM,
		MinWeightKG:     req.MinWeightKG,
		MaxWeightKG:     req.MaxWeightKG,
		DominantHand:    req.DominantHand,
	})
	if err != nil {
		return mapSessionError(c, err, "Failed to create session")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.sessionService.GetSession(c.Context(), int64(sessionID))
	if err != nil {
		return mapSessionError(c, err, "Failed to fetch session")
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListMySessions(c *fiber.Ctx) error {
	hostID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessions, err := h.sessionService.ListMine(c.Context(), hostID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch sessions"})
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) DiscoverSessions(c *fiber.Ctx) error {
	if _, err := parseActorID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page := parsePositiveInt(c.Query("page"), 1)
	offset := (page - 1) * limit

	filter := repository.SessionDiscoveryFilter{
		Discipline: c.Query("discipline"),
		Level:      c.Query("level"),
		City:       c.Query("city"),
	}

	sessions, err := h.sessionService.Discover(c.Context(), filter, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch sessions"})
	}

	return c.JSON(fiber.Map{
		"sessions": sessions,
		"meta":     buildPaginationMeta(page, limit, len(sessions)),
	})
}

type updateSessionRequest struct {
	StartsAt        *time.Time `json:"starts_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Capacity        *int       `json:"capacity"`
	Discipline      *string    `json:"discipline"`
	Level           *string    `json:"level"`
	City            *string    `json:"city"`
	MinHeightCM     *float64   `json:"min_height_cm"`
	MaxHeightCM     *float64   `json:"max_height_cm"`
	MinWeightKG     *float64   `json:"min_weight_kg"`
	MaxWeightKG     *float64   `json:"max_weight_kg"`
	DominantHand    *string    `json:"dominant_hand"`
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.sessionService.UpdateSession(c.Context(), actorID, int64(sessionID), repository.UpdateSessionInput{
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		Discipline:      req.Discipline,
		Level:           req.Level,
		City:            req.City,
		MinHeightCM:     req.MinHeightCM,
		MaxHeightCM:     req.MaxHeightCM,
		MinWeightKG:     req.MinWeightKG,
		MaxWeightKG:     req.MaxWeightKG,
		DominantHand:    req.DominantHand,
	})
	if err != nil {
		return mapSessionError(c, err, "Failed to update session")
	}

	return c.JSON(fiber.Map{"session": session})
}

type publishRequest struct {
	Published bool `json:"published"`
}

func (h *SessionHandler) SetPublished(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.sessionService.SetPublished(c.Context(), actorID, int64(sessionID), req.Published)
	if err != nil {
		return mapSessionError(c, err, "Failed to update session")
	}

	return c.JSON(fiber.Map{"session": session})
}

type fullRequest struct {
	Full bool `json:"full"`
}

func (h *SessionHandler) SetFull(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req fullRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.sessionService.SetFull(c.Context(), actorID, int64(sessionID), req.Full)
	if err != nil {
		return mapSessionError(c, err, "Failed to update session")
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) BoostSession(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.sessionService.BoostSession(c.Context(), actorID, int64(sessionID))
	if err != nil {
		return mapSessionError(c, err, "Failed to boost session")
	}

	return c.JSON(fiber.Map{"session": session})
}

func mapSessionError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(fiber.StatusPaymentRequired).
			JSON(fiber.Map{"error": "Monthly session limit reached", "code": "quota_exceeded"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session data"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
