package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ldupont/SparLinkBack/internal/models"
)

type UpdateFighterProfileInput struct {
	DisplayName  *string
	FirstName    *string
	LastName     *string
	Gender       *string
	Birthdate    *time.Time
	City         *string
	DominantHand *string
	HeightCM     *float64
	WeightKG     *float64
	AvatarURL    *string
}

type FighterProfileRepository struct {
	db DBTX
}

func NewFighterProfileRepository(db DBTX) *FighterProfileRepository {
	return &FighterProfileRepository{db: db}
}

const fighterProfileColumns = `
	id, user_id, display_name, first_name, last_name, gender, birthdate,
	city, dominant_hand, height_cm, weight_kg, avatar_url, created_at, updated_at
`

func (r *FighterProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO fighter_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *FighterProfileRepository) GetByUserID(
	ctx context.Context,
	userID int64,
) (*models.FighterProfile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM fighter_profiles
		WHERE user_id = $1
	`, fighterProfileColumns)

	var profile models.FighterProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.FirstName,
		&profile.LastName,
		&profile.Gender,
		&profile.Birthdate,
		&profile.City,
		&profile.DominantHand,
		&profile.HeightCM,
		&profile.WeightKG,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *FighterProfileRepository) UpdatePartial(
	ctx context.Context,
	userID int64,
	input UpdateFighterProfileInput,
) (*models.FighterProfile, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{userID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.DisplayName != nil {
		appendSet("display_name", *input.DisplayName)
	}
	if input.FirstName != nil {
		appendSet("first_name", *input.FirstName)
	}
	if input.LastName != nil {
		appendSet("last_name", *input.LastName)
	}
	if input.Gender != nil {
		appendSet("gender", *input.Gender)
	}
	if input.Birthdate != nil {
		appendSet("birthdate", *input.Birthdate)
	}
	if input.City != nil {
		appendSet("city", *input.City)
	}
	if input.DominantHand != nil {
		appendSet("dominant_hand", *input.DominantHand)
	}
	if input.HeightCM != nil {
		appendSet("height_cm", *input.HeightCM)
	}
	if input.WeightKG != nil {
		appendSet("weight_kg", *input.WeightKG)
	}
	if input.AvatarURL != nil {
		appendSet("avatar_url", *input.AvatarURL)
	}

	query := fmt.Sprintf(`
		UPDATE fighter_profiles
		SET %s
		WHERE user_id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), fighterProfileColumns)

	var profile models.FighterProfile
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.FirstName,
		&profile.LastName,
		&profile.Gender,
		&profile.Birthdate,
		&profile.City,
		&profile.DominantHand,
		&profile.HeightCM,
		&profile.WeightKG,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *FighterProfileRepository) ListDisciplines(
	ctx context.Context,
	userID int64,
) ([]models.Discipline, error) {
	rows, err := r.db.Query(ctx, `
		SELECT discipline, level
		FROM fighter_disciplines
		WHERE user_id = $1
		ORDER BY discipline ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	disciplines := make([]models.Discipline, 0)
	for rows.Next() {
		var discipline models.Discipline
		if err := rows.Scan(&discipline.Discipline, &discipline.Level); err != nil {
			return nil, err
		}
		disciplines = append(disciplines, discipline)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return disciplines, nil
}

func (r *FighterProfileRepository) ReplaceDisciplines(
	ctx context.Context,
	userID int64,
	disciplines []models.Discipline,
) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM fighter_disciplines
		WHERE user_id = $1
	`, userID); err != nil {
		return err
	}

	for _, discipline := range disciplines {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO fighter_disciplines (user_id, discipline, level)
			VALUES ($1, $2, $3)
		`, userID, discipline.Discipline, discipline.Level); err != nil {
			return err
		}
	}
	return nil
}
