package services

import (
	"context"
	"time"

	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/repository"
)

// BoostDuration is how long a boost keeps a session ranked first in
// discovery results.
const BoostDuration = 7 * 24 * time.Hour

type quotaChecker interface {
	CanCreateSession(ctx context.Context, userID int64) (bool, error)
}

type sessionStore interface {
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	ListByHost(ctx context.Context, hostID int64) ([]models.Session, error)
	Discover(ctx context.Context, filter repository.SessionDiscoveryFilter, limit, offset int) ([]models.Session, error)
	UpdatePartial(ctx context.Context, sessionID int64, input repository.UpdateSessionInput) (*models.Session, error)
	SetPublished(ctx context.Context, sessionID int64, published bool) (*models.Session, error)
	SetFull(ctx context.Context, sessionID int64, full bool) (*models.Session, error)
	Boost(ctx context.Context, sessionID int64, until time.Time) (*models.Session, error)
}

type SessionService struct {
	sessionRepo sessionStore
	quota       quotaChecker
	now         func() time.Time
}

func NewSessionService(sessionRepo sessionStore, quota quotaChecker) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		quota:       quota,
		now:         time.Now,
	}
}

func (s *SessionService) CreateSession(
	ctx context.Context,
	hostID int64,
	input repository.CreateSessionInput,
) (*models.Session, error) {
	if input.StartsAt.Before(s.now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}
	if input.Capacity < 1 || input.Discipline == "" || input.Level == "" {
		return nil, ErrInvalidInput
	}
	if input.DurationMinutes != nil && *input.DurationMinutes <= 0 {
		return nil, ErrInvalidInput
	}

	allowed, err := s.quota.CanCreateSession(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrQuotaExceeded
	}

	input.HostID = hostID
	return s.sessionRepo.Create(ctx, input)
}

func (s *SessionService) GetSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}

func (s *SessionService) ListMine(ctx context.Context, hostID int64) ([]models.Session, error) {
	return s.sessionRepo.ListByHost(ctx, hostID)
}

func (s *SessionService) Discover(
	ctx context.Context,
	filter repository.SessionDiscoveryFilter,
	limit int,
	offset int,
) ([]models.Session, error) {
	return s.sessionRepo.Discover(ctx, filter, limit, offset)
}

func (s *SessionService) UpdateSession(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	input repository.UpdateSessionInput,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}
	if input.Capacity != nil && *input.Capacity < 1 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.UpdatePartial(ctx, sessionID, input)
}

func (s *SessionService) SetPublished(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	published bool,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}
	return s.sessionRepo.SetPublished(ctx, sessionID, published)
}

func (s *SessionService) SetFull(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	full bool,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}
	return s.sessionRepo.SetFull(ctx, sessionID, full)
}

func (s *SessionService) BoostSession(
	ctx context.Context,
	actorID int64,
	sessionID int64,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isHost(session, actorID) {
		return nil, ErrForbidden
	}
	return s.sessionRepo.Boost(ctx, sessionID, s.now().Add(BoostDuration))
}

// SessionEnd computes when a session finishes, defaulting the duration to
// one hour when the host left it unset.
func SessionEnd(session *models.Session) time.Time {
	minutes := 60
	if session.DurationMinutes != nil {
		minutes = *session.DurationMinutes
	}
	return session.StartsAt.Add(time.Duration(minutes) * time.Minute)
}
