package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type stubReminderMessageStore struct {
	messages []models.ChatMessage
	notified map[int64]bool
}

func (s *stubReminderMessageStore) ListUnnotified(_ context.Context, _ time.Time, _ int) ([]models.ChatMessage, error) {
	pending := make([]models.ChatMessage, 0, len(s.messages))
	for _, message := range s.messages {
		if !s.notified[message.ID] {
			pending = append(pending, message)
		}
	}
	return pending, nil
}

func (s *stubReminderMessageStore) MarkNotified(_ context.Context, messageID int64) (bool, error) {
	if s.notified == nil {
		s.notified = make(map[int64]bool)
	}
	if s.notified[messageID] {
		return false, nil
	}
	s.notified[messageID] = true
	return true, nil
}

type stubReminderConversationStore struct {
	conversations map[int64]*models.Conversation
}

func (s *stubReminderConversationStore) GetByID(_ context.Context, conversationID int64) (*models.Conversation, error) {
	conversation, ok := s.conversations[conversationID]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return conversation, nil
}

type stubReminderNotificationStore struct {
	unsent    []models.Notification
	emailSent map[int64]bool
	existing  map[string]bool
}

func reviewSeedKey(recipientID, sessionID int64) string {
	return fmt.Sprintf("%d/%d", recipientID, sessionID)
}

func (s *stubReminderNotificationStore) ListUnsentByType(_ context.Context, _ string, _ int) ([]models.Notification, error) {
	pending := make([]models.Notification, 0, len(s.unsent))
	for _, notification := range s.unsent {
		if !s.emailSent[notification.ID] {
			pending = append(pending, notification)
		}
	}
	return pending, nil
}

func (s *stubReminderNotificationStore) MarkEmailSent(_ context.Context, notificationID int64) (bool, error) {
	if s.emailSent == nil {
		s.emailSent = make(map[int64]bool)
	}
	if s.emailSent[notificationID] {
		return false, nil
	}
	s.emailSent[notificationID] = true
	return true, nil
}

func (s *stubReminderNotificationStore) ExistsForSession(_ context.Context, recipientID int64, _ string, sessionID int64) (bool, error) {
	return s.existing[reviewSeedKey(recipientID, sessionID)], nil
}

type stubReminderSessionStore struct {
	sessions []models.Session
}

func (s *stubReminderSessionStore) ListRecentlyEnded(_ context.Context, _ time.Time, _ int) ([]models.Session, error) {
	return s.sessions, nil
}

type stubReminderParticipantStore struct {
	participants map[int64][]models.SessionParticipant
}

func (s *stubReminderParticipantStore) ListBySession(_ context.Context, sessionID int64) ([]models.SessionParticipant, error) {
	return s.participants[sessionID], nil
}

type stubReminderNotifier struct {
	emitted  []models.Notification
	emails   []int64
	emailErr error
	nextID   int64
}

func (s *stubReminderNotifier) Emit(
	_ context.Context,
	notificationType string,
	recipientID int64,
	actorID *int64,
	payload models.NotificationPayload,
) (*models.Notification, error) {
	s.nextID++
	notification := models.Notification{
		ID:          s.nextID,
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        notificationType,
		Payload:     payload,
	}
	s.emitted = append(s.emitted, notification)
	return &notification, nil
}

func (s *stubReminderNotifier) EmailRecipient(_ context.Context, recipientID int64, _, _ string) error {
	if s.emailErr != nil {
		return s.emailErr
	}
	s.emails = append(s.emails, recipientID)
	return nil
}

func newChatReminderService(
	messages *stubReminderMessageStore,
	conversations *stubReminderConversationStore,
	notifier *stubReminderNotifier,
) *ReminderService {
	return NewReminderService(
		messages,
		conversations,
		&stubReminderNotificationStore{},
		&stubReminderSessionStore{},
		&stubReminderParticipantStore{},
		notifier,
	)
}

func TestChatRemindersSendsAndClaims(t *testing.T) {
	messages := &stubReminderMessageStore{
		messages: []models.ChatMessage{
			{ID: 1, ConversationID: 10, SenderID: 100},
			{ID: 2, ConversationID: 10, SenderID: 200},
		},
	}
	conversations := &stubReminderConversationStore{
		conversations: map[int64]*models.Conversation{
			10: {ID: 10, UserA: 100, UserB: 200},
		},
	}
	notifier := &stubReminderNotifier{}
	service := newChatReminderService(messages, conversations, notifier)

	summary, err := service.ChatReminders(context.Background())
	if err != nil {
		t.Fatalf("ChatReminders: %v", err)
	}

	if summary.Sent != 2 {
		t.Fatalf("expected 2 sent, got %d", summary.Sent)
	}
	if len(notifier.emails) != 2 || notifier.emails[0] != 200 || notifier.emails[1] != 100 {
		t.Fatalf("expected emails to the non-senders [200 100], got %v", notifier.emails)
	}
	for _, notification := range notifier.emitted {
		if notification.Type != models.NotificationUnreadChat {
			t.Fatalf("expected unread_chat notifications, got %s", notification.Type)
		}
	}
}

func TestChatRemindersSecondRunSkips(t *testing.T) {
	messages := &stubReminderMessageStore{
		messages: []models.ChatMessage{{ID: 1, ConversationID: 10, SenderID: 100}},
	}
	conversations := &stubReminderConversationStore{
		conversations: map[int64]*models.Conversation{
			10: {ID: 10, UserA: 100, UserB: 200},
		},
	}
	notifier := &stubReminderNotifier{}
	service := newChatReminderService(messages, conversations, notifier)

	first, err := service.ChatReminders(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Sent != 1 {
		t.Fatalf("expected 1 sent on the first run, got %d", first.Sent)
	}

	second, err := service.ChatReminders(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Sent != 0 {
		t.Fatalf("expected 0 sent on the second run, got %d", second.Sent)
	}
	if len(notifier.emails) != 1 {
		t.Fatalf("expected exactly one email across both runs, got %d", len(notifier.emails))
	}
}

func TestChatRemindersEmailFailureReported(t *testing.T) {
	messages := &stubReminderMessageStore{
		messages: []models.ChatMessage{{ID: 1, ConversationID: 10, SenderID: 100}},
	}
	conversations := &stubReminderConversationStore{
		conversations: map[int64]*models.Conversation{
			10: {ID: 10, UserA: 100, UserB: 200},
		},
	}
	notifier := &stubReminderNotifier{emailErr: errors.New("smtp down")}
	service := newChatReminderService(messages, conversations, notifier)

	summary, err := service.ChatReminders(context.Background())
	if err != nil {
		t.Fatalf("ChatReminders: %v", err)
	}
	if summary.Sent != 0 {
		t.Fatalf("expected 0 sent, got %d", summary.Sent)
	}
	if len(summary.Results) != 1 || summary.Results[0].Outcome != "failed" {
		t.Fatalf("expected one failed item, got %+v", summary.Results)
	}
}

func TestReviewRemindersSeedsHostAndParticipants(t *testing.T) {
	starts := time.Now().Add(-2 * time.Hour)
	sessions := &stubReminderSessionStore{
		sessions: []models.Session{{ID: 5, HostID: 100, StartsAt: starts}},
	}
	participants := &stubReminderParticipantStore{
		participants: map[int64][]models.SessionParticipant{
			5: {{SessionID: 5, UserID: 200}},
		},
	}
	notifier := &stubReminderNotifier{}
	service := NewReminderService(
		&stubReminderMessageStore{},
		&stubReminderConversationStore{},
		&stubReminderNotificationStore{},
		sessions,
		participants,
		notifier,
	)

	if _, err := service.ReviewReminders(context.Background()); err != nil {
		t.Fatalf("ReviewReminders: %v", err)
	}

	if len(notifier.emitted) != 2 {
		t.Fatalf("expected review rows for host and participant, got %d", len(notifier.emitted))
	}
	recipients := map[int64]bool{}
	for _, notification := range notifier.emitted {
		if notification.Type != models.NotificationReviewNeeded {
			t.Fatalf("expected review_needed, got %s", notification.Type)
		}
		recipients[notification.RecipientID] = true
	}
	if !recipients[100] || !recipients[200] {
		t.Fatalf("expected recipients 100 and 200, got %v", recipients)
	}
}

func TestReviewRemindersSecondRunSkipsSentEmails(t *testing.T) {
	notifications := &stubReminderNotificationStore{
		unsent: []models.Notification{
			{ID: 1, RecipientID: 100, Type: models.NotificationReviewNeeded},
			{ID: 2, RecipientID: 200, Type: models.NotificationReviewNeeded},
		},
	}
	notifier := &stubReminderNotifier{}
	service := NewReminderService(
		&stubReminderMessageStore{},
		&stubReminderConversationStore{},
		notifications,
		&stubReminderSessionStore{},
		&stubReminderParticipantStore{},
		notifier,
	)

	first, err := service.ReviewReminders(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Sent != 2 {
		t.Fatalf("expected 2 sent on the first run, got %d", first.Sent)
	}

	second, err := service.ReviewReminders(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Sent != 0 {
		t.Fatalf("expected 0 sent on the second run, got %d", second.Sent)
	}
	if len(notifier.emails) != 2 {
		t.Fatalf("expected exactly two emails across both runs, got %d", len(notifier.emails))
	}
}
