package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type CreateSessionInput struct {
	HostID          int64
	StartsAt        time.Time
	DurationMinutes *int
	Capacity        int
	Discipline      string
	Level           string
	City            *string
	MinHeightCM     *float64
	MaxHeightCM     *float64
	MinWeightKG     *float64
	MaxWeightKG     *float64
	DominantHand    *string
}

type UpdateSessionInput struct {
	StartsAt        *time.Time
	DurationMinutes *int
	Capacity        *int
	Discipline      *string
	Level           *string
	City            *string
	MinHeightCM     *float64
	MaxHeightCM     *float64
	MinWeightKG     *float64
	MaxWeightKG     *float64
	DominantHand    *string
}

type SessionDiscoveryFilter struct {
	Discipline string
	Level      string
	City       string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, host_id, starts_at, duration_minutes, capacity, discipline, level, city,
	min_height_cm, max_height_cm, min_weight_kg, max_weight_kg, dominant_hand,
	is_published, is_full, boosted_until, created_at, updated_at
`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.HostID,
		&session.StartsAt,
		&session.DurationMinutes,
		&session.Capacity,
		&session.Discipline,
		&session.Level,
		&session.City,
		&session.MinHeightCM,
		&session.MaxHeightCM,
		&session.MinWeightKG,
		&session.MaxWeightKG,
		&session.DominantHand,
		&session.IsPublished,
		&session.IsFull,
		&session.BoostedUntil,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO sessions (
			host_id, starts_at, duration_minutes, capacity, discipline, level, city,
			min_height_cm, max_height_cm, min_weight_kg, max_weight_kg, dominant_hand
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s
	`, sessionColumns)

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.HostID,
		input.StartsAt,
		input.DurationMinutes,
		input.Capacity,
		input.Discipline,
		input.Level,
		input.City,
		input.MinHeightCM,
		input.MaxHeightCM,
		input.MinWeightKG,
		input.MaxWeightKG,
		input.DominantHand,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE id = $1
	`, sessionColumns)
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) ListByHost(
	ctx context.Context,
	hostID int64,
) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE host_id = $1
		ORDER BY starts_at ASC, id ASC
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Discover lists published, non-full, upcoming sessions. Boosted sessions
// rank first, then the soonest start time.
func (r *SessionRepository) Discover(
	ctx context.Context,
	filter SessionDiscoveryFilter,
	limit int,
	offset int,
) ([]models.Session, error) {
	args := []any{}
	whereParts := []string{
		"is_published = TRUE",
		"is_full = FALSE",
		"starts_at > NOW()",
	}

	if discipline := strings.TrimSpace(filter.Discipline); discipline != "" {
		args = append(args, discipline)
		whereParts = append(whereParts, fmt.Sprintf("discipline = $%d", len(args)))
	}
	if level := strings.TrimSpace(filter.Level); level != "" {
		args = append(args, level)
		whereParts = append(whereParts, fmt.Sprintf("level = $%d", len(args)))
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		args = append(args, city)
		whereParts = append(whereParts, fmt.Sprintf("city = $%d", len(args)))
	}

	args = append(args, limit)
	limitIdx := len(args)
	args = append(args, offset)
	offsetIdx := len(args)

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY (boosted_until IS NOT NULL AND boosted_until > NOW()) DESC,
			starts_at ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, strings.Join(whereParts, " AND "), limitIdx, offsetIdx)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *SessionRepository) UpdatePartial(
	ctx context.Context,
	sessionID int64,
	input UpdateSessionInput,
) (*models.Session, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{sessionID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.StartsAt != nil {
		appendSet("starts_at", *input.StartsAt)
	}
	if input.DurationMinutes != nil {
		appendSet("duration_minutes", *input.DurationMinutes)
	}
	if input.Capacity != nil {
		appendSet("capacity", *input.Capacity)
	}
	if input.Discipline != nil {
		appendSet("discipline", *input.Discipline)
	}
	if input.Level != nil {
		appendSet("level", *input.Level)
	}
	if input.City != nil {
		appendSet("city", *input.City)
	}
	if input.MinHeightCM != nil {
		appendSet("min_height_cm", *input.MinHeightCM)
	}
	if input.MaxHeightCM != nil {
		appendSet("max_height_cm", *input.MaxHeightCM)
	}
	if input.MinWeightKG != nil {
		appendSet("min_weight_kg", *input.MinWeightKG)
	}
	if input.MaxWeightKG != nil {
		appendSet("max_weight_kg", *input.MaxWeightKG)
	}
	if input.DominantHand != nil {
		appendSet("dominant_hand", *input.DominantHand)
	}

	query := fmt.Sprintf(`
		UPDATE sessions
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), sessionColumns)

	return scanSession(r.db.QueryRow(ctx, query, args...))
}

func (r *SessionRepository) SetPublished(
	ctx context.Context,
	sessionID int64,
	published bool,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET is_published = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, sessionColumns)
	return scanSession(r.db.QueryRow(ctx, query, sessionID, published))
}

func (r *SessionRepository) SetFull(
	ctx context.Context,
	sessionID int64,
	full bool,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET is_full = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, sessionColumns)
	return scanSession(r.db.QueryRow(ctx, query, sessionID, full))
}

func (r *SessionRepository) Boost(
	ctx context.Context,
	sessionID int64,
	until time.Time,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET boosted_until = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, sessionColumns)
	return scanSession(r.db.QueryRow(ctx, query, sessionID, until))
}

// ListRecentlyEnded returns sessions whose computed end time has passed but
// no longer ago than since. The end time defaults the duration to 60 minutes
// when the host left it unset.
func (r *SessionRepository) ListRecentlyEnded(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE (starts_at + (COALESCE(duration_minutes, 60) * INTERVAL '1 minute')) < NOW()
		  AND (starts_at + (COALESCE(duration_minutes, 60) * INTERVAL '1 minute')) > $1
		ORDER BY starts_at ASC, id ASC
		LIMIT $2
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// CountCreatedInMonth counts sessions a host created within the UTC calendar
// month containing at. Feeds the free-plan publish quota.
func (r *SessionRepository) CountCreatedInMonth(
	ctx context.Context,
	hostID int64,
	at time.Time,
) (int, error) {
	monthStart := time.Date(at.UTC().Year(), at.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM sessions
		WHERE host_id = $1
		  AND created_at >= $2
		  AND created_at < $3
	`, hostID, monthStart, monthEnd).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
