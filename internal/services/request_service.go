package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ldupont/SparLinkBack/internal/metrics"
	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/repository"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidInput       = errors.New("invalid input")
	ErrQuotaExceeded      = errors.New("monthly session quota exceeded")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionUnavailable = errors.New("session is not open for requests")
)

type lifecycleNotifier interface {
	Notify(
		ctx context.Context,
		notificationType string,
		recipientID int64,
		actorID *int64,
		payload models.NotificationPayload,
		emailSubject string,
		emailText string,
	)
}

// RequestService is the session request lifecycle engine. All status
// transitions go through compare-and-swap updates so concurrent actors
// racing on the same request resolve to exactly one winner; the loser gets
// ErrInvalidState and no partial side effects.
type RequestService struct {
	db              *pgxpool.Pool
	requestRepo     *repository.SessionRequestRepository
	sessionRepo     *repository.SessionRepository
	participantRepo *repository.SessionParticipantRepository
	notifier        lifecycleNotifier
}

func NewRequestService(
	db *pgxpool.Pool,
	requestRepo *repository.SessionRequestRepository,
	sessionRepo *repository.SessionRepository,
	participantRepo *repository.SessionParticipantRepository,
	notifier lifecycleNotifier,
) *RequestService {
	return &RequestService{
		db:              db,
		requestRepo:     requestRepo,
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		notifier:        notifier,
	}
}

type SubmitRequestInput struct {
	SessionID         int64
	ParticipantCount  int
	Message           *string
	ParticipantEmails *[]string
}

type DecisionResult struct {
	Request      *models.SessionRequest `json:"request"`
	Conversation *models.Conversation   `json:"conversation,omitempty"`
}

func (s *RequestService) SubmitRequest(
	ctx context.Context,
	requesterID int64,
	input SubmitRequestInput,
) (*models.SessionRequest, error) {
	if input.SessionID <= 0 || input.ParticipantCount < 1 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.HostID == requesterID {
		return nil, ErrInvalidInput
	}
	if !session.IsPublished || session.IsFull {
		return nil, ErrSessionUnavailable
	}

	// Optimistic duplicate check for a friendly error; the partial unique
	// index is the authoritative guard against the check-then-insert race.
	existing, err := s.requestRepo.GetActive(ctx, input.SessionID, requesterID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	request, err := s.requestRepo.Create(ctx, repository.CreateRequestInput{
		SessionID:         input.SessionID,
		RequesterID:       requesterID,
		ParticipantCount:  input.ParticipantCount,
		Message:           input.Message,
		ParticipantEmails: input.ParticipantEmails,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}

	metrics.RequestTransitions.WithLabelValues(models.RequestStatusPending).Inc()

	s.notifier.Notify(
		ctx,
		models.NotificationRequestReceived,
		session.HostID,
		&requesterID,
		requestPayload(request),
		"New request for your session",
		fmt.Sprintf("A fighter asked to join your %s session. Open the app to respond.", session.Discipline),
	)

	return request, nil
}

// Decide lets the host accept or decline a pending request. Acceptance,
// participant registration and conversation provisioning commit atomically;
// the notification follows after and is never allowed to fail the decision.
func (s *RequestService) Decide(
	ctx context.Context,
	actorID int64,
	requestID int64,
	decision string,
) (*DecisionResult, error) {
	nextStatus, err := normalizeDecision(decision)
	if err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.GetByID(ctx, request.SessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewSessionRequestRepository(tx)

	updated, err := txRequestRepo.UpdateStatusIfCurrent(
		ctx,
		requestID,
		models.RequestStatusPending,
		nextStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	result := &DecisionResult{Request: updated}

	if nextStatus == models.RequestStatusAccepted {
		txParticipantRepo := repository.NewSessionParticipantRepository(tx)
		txConversationRepo := repository.NewConversationRepository(tx)

		if _, err := txParticipantRepo.Add(
			ctx,
			request.SessionID,
			request.RequesterID,
			models.ParticipantRoleFighter,
		); err != nil {
			return nil, err
		}

		conversation, err := txConversationRepo.CreateOrGet(
			ctx,
			request.SessionID,
			session.HostID,
			request.RequesterID,
		)
		if err != nil {
			return nil, err
		}
		result.Conversation = conversation
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RequestTransitions.WithLabelValues(nextStatus).Inc()

	notificationType := models.NotificationRequestAccepted
	subject := "Your session request was accepted"
	text := fmt.Sprintf("The host accepted your request to join the %s session.", session.Discipline)
	if nextStatus == models.RequestStatusDeclined {
		notificationType = models.NotificationRequestRefused
		subject = "Your session request was declined"
		text = fmt.Sprintf("The host declined your request to join the %s session.", session.Discipline)
	}

	payload := requestPayload(updated)
	if result.Conversation != nil {
		payload.ConversationID = &result.Conversation.ID
	}
	s.notifier.Notify(ctx, notificationType, request.RequesterID, &actorID, payload, subject, text)

	return result, nil
}

// WithdrawOrCancel moves a pending or accepted request to withdrawn. The
// participant cleanup after an accepted withdrawal is best-effort: a failure
// is logged and the residual row reconciled by retrying, never by rolling
// back the withdrawal itself.
func (s *RequestService) WithdrawOrCancel(
	ctx context.Context,
	actorID int64,
	requestID int64,
) (*models.SessionRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isRequester(request, actorID) {
		return nil, ErrForbidden
	}
	session, err := s.sessionRepo.GetByID(ctx, request.SessionID)
	if err != nil {
		return nil, err
	}

	updated, err := s.requestRepo.UpdateStatusIfIn(
		ctx,
		requestID,
		[]string{models.RequestStatusPending, models.RequestStatusAccepted},
		models.RequestStatusWithdrawn,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := s.participantRepo.Remove(ctx, request.SessionID, request.RequesterID); err != nil {
		log.Printf("withdraw cleanup: remove participant (session %d, user %d): %v",
			request.SessionID, request.RequesterID, err)
	}

	metrics.RequestTransitions.WithLabelValues(models.RequestStatusWithdrawn).Inc()

	s.notifier.Notify(
		ctx,
		models.NotificationRequestWithdrawn,
		session.HostID,
		&actorID,
		requestPayload(updated),
		"A request for your session was withdrawn",
		fmt.Sprintf("A fighter withdrew their request to join your %s session.", session.Discipline),
	)

	return updated, nil
}

// ReverseAcceptance is the host-initiated accepted -> declined reversal.
func (s *RequestService) ReverseAcceptance(
	ctx context.Context,
	actorID int64,
	requestID int64,
) (*models.SessionRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.GetByID(ctx, request.SessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}

	updated, err := s.requestRepo.UpdateStatusIfCurrent(
		ctx,
		requestID,
		models.RequestStatusAccepted,
		models.RequestStatusDeclined,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := s.participantRepo.Remove(ctx, request.SessionID, request.RequesterID); err != nil {
		log.Printf("reversal cleanup: remove participant (session %d, user %d): %v",
			request.SessionID, request.RequesterID, err)
	}

	metrics.RequestTransitions.WithLabelValues(models.RequestStatusDeclined).Inc()

	s.notifier.Notify(
		ctx,
		models.NotificationRequestRefused,
		request.RequesterID,
		&actorID,
		requestPayload(updated),
		"Your session request was declined",
		fmt.Sprintf("The host declined your place in the %s session.", session.Discipline),
	)

	return updated, nil
}

func (s *RequestService) GetRequest(
	ctx context.Context,
	actorID int64,
	requestID int64,
) (*models.SessionRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.GetByID(ctx, request.SessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) && !isRequester(request, actorID) {
		return nil, ErrForbidden
	}
	return request, nil
}

func (s *RequestService) ListForSession(
	ctx context.Context,
	actorID int64,
	sessionID int64,
) ([]models.SessionRequest, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}
	return s.requestRepo.ListBySession(ctx, sessionID)
}

func (s *RequestService) ListMine(
	ctx context.Context,
	actorID int64,
) ([]models.SessionRequest, error) {
	return s.requestRepo.ListByRequester(ctx, actorID)
}

func isHost(session *models.Session, actorID int64) bool {
	return session.HostID == actorID
}

func isRequester(request *models.SessionRequest, actorID int64) bool {
	return request.RequesterID == actorID
}

func normalizeDecision(decision string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "accept", "accepted":
		return models.RequestStatusAccepted, nil
	case "decline", "declined", "refuse", "refused":
		return models.RequestStatusDeclined, nil
	default:
		return "", ErrInvalidInput
	}
}

func requestPayload(request *models.SessionRequest) models.NotificationPayload {
	sessionID := request.SessionID
	requestID := request.ID
	return models.NotificationPayload{
		SessionID: &sessionID,
		RequestID: &requestID,
	}
}
