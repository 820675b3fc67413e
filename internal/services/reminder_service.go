package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ldupont/SparLinkBack/internal/metrics"
	"github.com/ldupont/SparLinkBack/internal/models"
)

const (
	// ChatReminderDelay is how long a message stays unread before the
	// reminder email fires.
	ChatReminderDelay = 10 * time.Minute

	// ReviewReminderWindow bounds how far back the review batch rescans
	// ended sessions.
	ReviewReminderWindow = 14 * 24 * time.Hour

	reminderBatchLimit = 200
)

type BatchItem struct {
	ID      int64  `json:"id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

type BatchSummary struct {
	Sent    int         `json:"sent"`
	Results []BatchItem `json:"results"`
}

type reminderMessageStore interface {
	ListUnnotified(ctx context.Context, cutoff time.Time, limit int) ([]models.ChatMessage, error)
	MarkNotified(ctx context.Context, messageID int64) (bool, error)
}

type reminderConversationStore interface {
	GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error)
}

type reminderNotificationStore interface {
	ListUnsentByType(ctx context.Context, notificationType string, limit int) ([]models.Notification, error)
	MarkEmailSent(ctx context.Context, notificationID int64) (bool, error)
	ExistsForSession(ctx context.Context, recipientID int64, notificationType string, sessionID int64) (bool, error)
}

type reminderSessionStore interface {
	ListRecentlyEnded(ctx context.Context, since time.Time, limit int) ([]models.Session, error)
}

type reminderParticipantStore interface {
	ListBySession(ctx context.Context, sessionID int64) ([]models.SessionParticipant, error)
}

type reminderNotifier interface {
	Emit(ctx context.Context, notificationType string, recipientID int64, actorID *int64, payload models.NotificationPayload) (*models.Notification, error)
	EmailRecipient(ctx context.Context, recipientID int64, subject string, text string) error
}

// ReminderService runs the two scheduled batch jobs. Both are idempotent via
// marker columns (messages.notified_at, notifications.email_sent_at) claimed
// with a conditional update before any email goes out, and both report
// per-item outcomes instead of aborting the batch on one failure.
type ReminderService struct {
	messageRepo      reminderMessageStore
	conversationRepo reminderConversationStore
	notificationRepo reminderNotificationStore
	sessionRepo      reminderSessionStore
	participantRepo  reminderParticipantStore
	notifier         reminderNotifier
	now              func() time.Time
}

func NewReminderService(
	messageRepo reminderMessageStore,
	conversationRepo reminderConversationStore,
	notificationRepo reminderNotificationStore,
	sessionRepo reminderSessionStore,
	participantRepo reminderParticipantStore,
	notifier reminderNotifier,
) *ReminderService {
	return &ReminderService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		notificationRepo: notificationRepo,
		sessionRepo:      sessionRepo,
		participantRepo:  participantRepo,
		notifier:         notifier,
		now:              time.Now,
	}
}

// ChatReminders emails recipients of messages that stayed unread for at
// least ChatReminderDelay. A message already claimed by a previous run is
// skipped.
func (s *ReminderService) ChatReminders(ctx context.Context) (*BatchSummary, error) {
	cutoff := s.now().Add(-ChatReminderDelay)
	messages, err := s.messageRepo.ListUnnotified(ctx, cutoff, reminderBatchLimit)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Results: make([]BatchItem, 0, len(messages))}
	for _, message := range messages {
		summary.Results = append(summary.Results, s.remindMessage(ctx, message, summary))
	}
	return summary, nil
}

func (s *ReminderService) remindMessage(
	ctx context.Context,
	message models.ChatMessage,
	summary *BatchSummary,
) BatchItem {
	item := BatchItem{ID: message.ID}

	claimed, err := s.messageRepo.MarkNotified(ctx, message.ID)
	if err != nil {
		metrics.ReminderEmails.WithLabelValues("chat", "failed").Inc()
		item.Outcome = "failed"
		item.Reason = "claim: " + err.Error()
		return item
	}
	if !claimed {
		metrics.ReminderEmails.WithLabelValues("chat", "skipped").Inc()
		item.Outcome = "skipped"
		item.Reason = "already notified"
		return item
	}

	conversation, err := s.conversationRepo.GetByID(ctx, message.ConversationID)
	if err != nil {
		metrics.ReminderEmails.WithLabelValues("chat", "failed").Inc()
		item.Outcome = "failed"
		item.Reason = "conversation lookup: " + err.Error()
		return item
	}
	recipientID := conversation.OtherParticipant(message.SenderID)

	payload := models.NotificationPayload{
		ConversationID: &conversation.ID,
		MessageID:      &message.ID,
	}
	if _, err := s.notifier.Emit(ctx, models.NotificationUnreadChat, recipientID, &message.SenderID, payload); err != nil {
		// The email is the point of this job; the in-app row is additive.
		item.Reason = "emit: " + err.Error()
	}

	if err := s.notifier.EmailRecipient(
		ctx,
		recipientID,
		"You have an unread message",
		"A sparring partner sent you a message. Open the app to reply.",
	); err != nil {
		metrics.ReminderEmails.WithLabelValues("chat", "failed").Inc()
		item.Outcome = "failed"
		item.Reason = "email: " + err.Error()
		return item
	}

	metrics.ReminderEmails.WithLabelValues("chat", "sent").Inc()
	item.Outcome = "sent"
	summary.Sent++
	return item
}

// ReviewReminders creates review_needed notifications for sessions whose
// computed end time has passed, then emails the unsent ones and stamps
// email_sent_at.
func (s *ReminderService) ReviewReminders(ctx context.Context) (*BatchSummary, error) {
	since := s.now().Add(-ReviewReminderWindow)
	sessions, err := s.sessionRepo.ListRecentlyEnded(ctx, since, reminderBatchLimit)
	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		if err := s.seedReviewNotifications(ctx, session); err != nil {
			return nil, err
		}
	}

	pending, err := s.notificationRepo.ListUnsentByType(ctx, models.NotificationReviewNeeded, reminderBatchLimit)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Results: make([]BatchItem, 0, len(pending))}
	for _, notification := range pending {
		item := BatchItem{ID: notification.ID}

		claimed, err := s.notificationRepo.MarkEmailSent(ctx, notification.ID)
		if err != nil {
			metrics.ReminderEmails.WithLabelValues("review", "failed").Inc()
			item.Outcome = "failed"
			item.Reason = "claim: " + err.Error()
			summary.Results = append(summary.Results, item)
			continue
		}
		if !claimed {
			metrics.ReminderEmails.WithLabelValues("review", "skipped").Inc()
			item.Outcome = "skipped"
			item.Reason = "already sent"
			summary.Results = append(summary.Results, item)
			continue
		}

		if err := s.notifier.EmailRecipient(
			ctx,
			notification.RecipientID,
			"How was your session?",
			"Your training session has ended. Leave a review for your sparring partner.",
		); err != nil {
			metrics.ReminderEmails.WithLabelValues("review", "failed").Inc()
			item.Outcome = "failed"
			item.Reason = "email: " + err.Error()
			summary.Results = append(summary.Results, item)
			continue
		}

		metrics.ReminderEmails.WithLabelValues("review", "sent").Inc()
		item.Outcome = "sent"
		summary.Sent++
		summary.Results = append(summary.Results, item)
	}

	return summary, nil
}

func (s *ReminderService) seedReviewNotifications(
	ctx context.Context,
	session models.Session,
) error {
	recipients := []int64{session.HostID}
	participants, err := s.participantRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return err
	}
	for _, participant := range participants {
		recipients = append(recipients, participant.UserID)
	}

	sessionID := session.ID
	for _, recipientID := range recipients {
		exists, err := s.notificationRepo.ExistsForSession(
			ctx,
			recipientID,
			models.NotificationReviewNeeded,
			session.ID,
		)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.notifier.Emit(
			ctx,
			models.NotificationReviewNeeded,
			recipientID,
			nil,
			models.NotificationPayload{SessionID: &sessionID},
		); err != nil {
			return fmt.Errorf("seed review notification (session %d, user %d): %w", session.ID, recipientID, err)
		}
	}
	return nil
}
