package services

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ldupont/SparLinkBack/internal/models"
	"github.com/ldupont/SparLinkBack/internal/repository"
)

type ProfileService struct {
	db          *pgxpool.Pool
	profileRepo *repository.FighterProfileRepository
}

func NewProfileService(db *pgxpool.Pool, profileRepo *repository.FighterProfileRepository) *ProfileService {
	return &ProfileService{db: db, profileRepo: profileRepo}
}

func (s *ProfileService) GetProfile(
	ctx context.Context,
	userID int64,
) (*models.FighterProfileDetail, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	disciplines, err := s.profileRepo.ListDisciplines(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.FighterProfileDetail{
		FighterProfile: *profile,
		Disciplines:    disciplines,
		Completeness:   CompletenessScore(profile, disciplines),
	}, nil
}

func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	userID int64,
	input repository.UpdateFighterProfileInput,
) (*models.FighterProfileDetail, error) {
	if _, err := s.profileRepo.UpdatePartial(ctx, userID, input); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *ProfileService) ReplaceDisciplines(
	ctx context.Context,
	userID int64,
	disciplines []models.Discipline,
) (*models.FighterProfileDetail, error) {
	for _, discipline := range disciplines {
		if strings.TrimSpace(discipline.Discipline) == "" || strings.TrimSpace(discipline.Level) == "" {
			return nil, ErrInvalidInput
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txProfileRepo := repository.NewFighterProfileRepository(tx)
	if err := txProfileRepo.ReplaceDisciplines(ctx, userID, disciplines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

// CanEnterApp reports whether the profile clears the completeness gate that
// guards every authenticated route except profile editing. A profile can
// regress below 100 later and re-trigger the gate.
func (s *ProfileService) CanEnterApp(ctx context.Context, userID int64) (bool, error) {
	detail, err := s.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return detail.Completeness == 100, nil
}

// CompletenessScore is the percentage of the fixed required attribute set
// present on the profile. First and last name count as a single attribute;
// the discipline list counts as one and needs at least one entry.
func CompletenessScore(profile *models.FighterProfile, disciplines []models.Discipline) int {
	if profile == nil {
		return 0
	}

	checks := []bool{
		hasText(profile.DisplayName),
		hasText(profile.Gender),
		hasText(profile.FirstName) && hasText(profile.LastName),
		profile.Birthdate != nil,
		hasText(profile.City),
		hasText(profile.DominantHand),
		profile.HeightCM != nil && *profile.HeightCM > 0,
		profile.WeightKG != nil && *profile.WeightKG > 0,
		hasText(profile.AvatarURL),
		len(disciplines) > 0,
	}

	present := 0
	for _, ok := range checks {
		if ok {
			present++
		}
	}
	return present * 100 / len(checks)
}

func hasText(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}
