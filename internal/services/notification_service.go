package services

import (
	"context"
	"errors"
	"log"

	"github.com/ldupont/SparLinkBack/internal/metrics"
	"github.com/ldupont/SparLinkBack/internal/models"
)

var ErrMailerUnavailable = errors.New("mailer not configured")

type notificationWriter interface {
	Create(
		ctx context.Context,
		recipientID int64,
		actorID *int64,
		notificationType string,
		payload models.NotificationPayload,
	) (*models.Notification, error)
}

type recipientReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// NotificationService is the side-channel for lifecycle transitions: one
// in-app notification row plus an optional transactional email. Both follow
// the fire-and-forget discipline via Notify; Emit and EmailRecipient expose
// the failable steps for the hook endpoints that need real status codes.
type NotificationService struct {
	notificationRepo notificationWriter
	userRepo         recipientReader
	mailer           Mailer
}

func NewNotificationService(
	notificationRepo notificationWriter,
	userRepo recipientReader,
	mailer Mailer,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		mailer:           mailer,
	}
}

func (s *NotificationService) Emit(
	ctx context.Context,
	notificationType string,
	recipientID int64,
	actorID *int64,
	payload models.NotificationPayload,
) (*models.Notification, error) {
	notification, err := s.notificationRepo.Create(ctx, recipientID, actorID, notificationType, payload)
	if err != nil {
		metrics.NotificationEmits.WithLabelValues(notificationType, "error").Inc()
		return nil, err
	}
	metrics.NotificationEmits.WithLabelValues(notificationType, "ok").Inc()
	return notification, nil
}

func (s *NotificationService) EmailRecipient(
	ctx context.Context,
	recipientID int64,
	subject string,
	text string,
) error {
	if s.mailer == nil {
		return ErrMailerUnavailable
	}
	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, recipient.Email, subject, text)
}

// Notify is the fire-and-forget path used by the lifecycle engine. A failed
// notification write or email must never fail the transition that triggered
// it, so every error ends here as a log line.
func (s *NotificationService) Notify(
	ctx context.Context,
	notificationType string,
	recipientID int64,
	actorID *int64,
	payload models.NotificationPayload,
	emailSubject string,
	emailText string,
) {
	if _, err := s.Emit(ctx, notificationType, recipientID, actorID, payload); err != nil {
		log.Printf("notification emit %s to %d: %v", notificationType, recipientID, err)
	}

	if emailSubject == "" || s.mailer == nil {
		return
	}
	if err := s.EmailRecipient(ctx, recipientID, emailSubject, emailText); err != nil {
		log.Printf("notification email %s to %d: %v", notificationType, recipientID, err)
	}
}
