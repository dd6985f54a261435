package app

import (
	"context"

	"dibs-service/internal/domain/shared"
	"dibs-service/internal/ports/inbound"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProfileService implements the household directory use cases
type ProfileService struct {
	profileRepo    outbound.ProfileRepository
	notifier       outbound.ChangeNotifier
	startingPoints int
	logger         zerolog.Logger
}

type ProfileServiceParams struct {
	ProfileRepo    outbound.ProfileRepository
	Notifier       outbound.ChangeNotifier
	StartingPoints int
	Logger         zerolog.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(params ProfileServiceParams) *ProfileService {
	startingPoints := params.StartingPoints
	if startingPoints <= 0 {
		startingPoints = 100
	}

	return &ProfileService{
		profileRepo:    params.ProfileRepo,
		notifier:       params.Notifier,
		startingPoints: startingPoints,
		logger:         params.Logger.With().Str("component", "profile_service").Logger(),
	}
}

// CreateProfile adds a member to the directory. Every member starts with
// the same configured point balance; couples still bid from a shared pool
// because deductions hit both partners.
func (service *ProfileService) CreateProfile(ctx context.Context, req inbound.CreateProfileRequest) (*shared.Profile, error) {
	if req.FirstName == "" {
		return nil, shared.ErrFirstNameRequired
	}

	profile := &shared.Profile{
		ID:        uuid.New(),
		FirstName: req.FirstName,
		CoupleID:  req.CoupleID,
		Points:    service.startingPoints,
	}

	if err := service.profileRepo.Create(ctx, profile); err != nil {
		service.logger.Error().Err(err).Str("first_name", req.FirstName).Msg("Failed to create profile")
		return nil, err
	}

	service.logger.Info().
		Str("profile_id", profile.ID.String()).
		Str("first_name", profile.FirstName).
		Int("points", profile.Points).
		Msg("Profile created")

	service.publishChange(ctx, outbound.ChangeInsert, profile.ID)

	return profile, nil
}

// ListProfiles retrieves the full household directory
func (service *ProfileService) ListProfiles(ctx context.Context) ([]*shared.Profile, error) {
	return service.profileRepo.List(ctx)
}

func (service *ProfileService) publishChange(ctx context.Context, kind outbound.ChangeKind, profileID uuid.UUID) {
	if service.notifier == nil {
		return
	}

	change := outbound.Change{
		Table:    outbound.TableProfiles,
		Kind:     kind,
		RecordID: profileID,
	}

	if err := service.notifier.Publish(ctx, change); err != nil {
		service.logger.Error().Err(err).Str("profile_id", profileID.String()).Msg("Failed to publish change notification")
	}
}
