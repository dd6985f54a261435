package app

import (
	"context"
	"errors"
	"time"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/points"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/domain/unit"
	"dibs-service/internal/ports/inbound"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClaimService implements the claim and bid mutation use cases. Every
// successful mutation triggers a resolution evaluation for the item.
type ClaimService struct {
	claimRepo   outbound.ClaimRepository
	itemRepo    outbound.ItemRepository
	profileRepo outbound.ProfileRepository
	notifier    outbound.ChangeNotifier
	resolver    *ResolutionService
	now         func() time.Time
	logger      zerolog.Logger
}

type ClaimServiceParams struct {
	ClaimRepo   outbound.ClaimRepository
	ItemRepo    outbound.ItemRepository
	ProfileRepo outbound.ProfileRepository
	Notifier    outbound.ChangeNotifier
	Resolver    *ResolutionService
	Now         func() time.Time
	Logger      zerolog.Logger
}

// NewClaimService creates a new claim service
func NewClaimService(params ClaimServiceParams) *ClaimService {
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &ClaimService{
		claimRepo:   params.ClaimRepo,
		itemRepo:    params.ItemRepo,
		profileRepo: params.ProfileRepo,
		notifier:    params.Notifier,
		resolver:    params.Resolver,
		now:         now,
		logger:      params.Logger.With().Str("component", "claim_service").Logger(),
	}
}

// SetClaim upserts or toggles a user's decision on an item: no claim
// creates one, a different status flips it, and requesting the current
// status removes the claim (the explicit undo action).
func (service *ClaimService) SetClaim(ctx context.Context, req inbound.SetClaimRequest) (*claim.Claim, error) {
	service.logger.Info().
		Str("item_id", req.ItemID.String()).
		Str("user_id", req.UserID.String()).
		Str("status", string(req.Status)).
		Msg("Attempting to set claim")

	if !req.Status.IsValid() {
		return nil, shared.ErrInvalidClaimStatus
	}

	it, err := service.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", req.ItemID.String()).Msg("Item not found")
		return nil, shared.ErrItemNotFound
	}

	if !it.IsActive() {
		service.logger.Warn().
			Str("item_id", req.ItemID.String()).
			Str("status", string(it.Status)).
			Msg("Item no longer accepting claims")
		return nil, shared.ErrItemNotActive
	}

	user, err := service.profileRepo.GetByID(ctx, req.UserID)
	if err != nil {
		service.logger.Error().Err(err).Str("user_id", req.UserID.String()).Msg("Profile not found")
		return nil, shared.ErrProfileNotFound
	}

	existing, err := service.claimRepo.GetByItemAndUser(ctx, req.ItemID, req.UserID)
	if err != nil && !errors.Is(err, shared.ErrClaimNotFound) {
		service.logger.Error().Err(err).Str("item_id", req.ItemID.String()).Msg("Failed to look up existing claim")
		return nil, err
	}

	var result *claim.Claim
	var kind outbound.ChangeKind
	var recordID uuid.UUID

	switch {
	case existing == nil:
		newClaim := &claim.Claim{
			ID:        uuid.New(),
			ItemID:    req.ItemID,
			UserID:    user.ID,
			Status:    req.Status,
			CreatedAt: service.now(),
			UpdatedAt: service.now(),
		}
		if err := service.claimRepo.Create(ctx, newClaim); err != nil {
			service.logger.Error().Err(err).Str("item_id", req.ItemID.String()).Msg("Failed to create claim")
			return nil, err
		}
		result, kind, recordID = newClaim, outbound.ChangeInsert, newClaim.ID

	case existing.Status == req.Status:
		// Same status clicked again removes the decision entirely
		if err := service.claimRepo.Delete(ctx, existing.ID); err != nil {
			service.logger.Error().Err(err).Str("claim_id", existing.ID.String()).Msg("Failed to delete claim")
			return nil, err
		}
		result, kind, recordID = nil, outbound.ChangeDelete, existing.ID

	default:
		existing.Status = req.Status
		existing.UpdatedAt = service.now()
		if err := service.claimRepo.Update(ctx, existing); err != nil {
			service.logger.Error().Err(err).Str("claim_id", existing.ID.String()).Msg("Failed to update claim")
			return nil, err
		}
		result, kind, recordID = existing, outbound.ChangeUpdate, existing.ID
	}

	service.logger.Info().
		Str("item_id", req.ItemID.String()).
		Str("user_id", req.UserID.String()).
		Str("change", string(kind)).
		Msg("Claim mutation persisted")

	service.publishChange(ctx, outbound.TableClaims, kind, recordID)
	service.evaluate(ctx, req.ItemID)

	return result, nil
}

// SetBid updates the bid amount on an existing interested claim. The
// amount is clamped so the unit can never commit more total points than
// it has, counting the bid being replaced as available.
func (service *ClaimService) SetBid(ctx context.Context, req inbound.SetBidRequest) (*claim.Claim, error) {
	service.logger.Info().
		Str("claim_id", req.ClaimID.String()).
		Int("amount", req.Amount).
		Msg("Attempting to set bid")

	if req.Amount < 0 {
		return nil, shared.ErrBidAmountNegative
	}

	cl, err := service.claimRepo.GetByID(ctx, req.ClaimID)
	if err != nil {
		service.logger.Error().Err(err).Str("claim_id", req.ClaimID.String()).Msg("Claim not found")
		return nil, err
	}

	if !cl.IsInterested() {
		service.logger.Warn().Str("claim_id", req.ClaimID.String()).Msg("Bid rejected, claim is not interested")
		return nil, shared.ErrClaimNotInterested
	}

	it, err := service.itemRepo.GetByID(ctx, cl.ItemID)
	if err != nil {
		return nil, shared.ErrItemNotFound
	}
	if !it.IsActive() {
		return nil, shared.ErrItemNotActive
	}

	// Excluding the claim's own item from escrow makes the current bid
	// spendable again, which is exactly the replacement ceiling.
	available, err := service.AvailablePoints(ctx, cl.UserID, cl.ItemID)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	if amount > available {
		service.logger.Warn().
			Str("claim_id", req.ClaimID.String()).
			Int("requested", req.Amount).
			Int("available", available).
			Msg("Bid clamped to available points")
		amount = available
	}
	if amount < 0 {
		amount = 0
	}

	cl.BidAmount = amount
	cl.UpdatedAt = service.now()
	if err := service.claimRepo.Update(ctx, cl); err != nil {
		service.logger.Error().Err(err).Str("claim_id", cl.ID.String()).Msg("Failed to persist bid")
		return nil, err
	}

	service.logger.Info().
		Str("claim_id", cl.ID.String()).
		Str("item_id", cl.ItemID.String()).
		Int("bid_amount", cl.BidAmount).
		Msg("Bid persisted")

	service.publishChange(ctx, outbound.TableClaims, outbound.ChangeUpdate, cl.ID)
	service.evaluate(ctx, cl.ItemID)

	return cl, nil
}

// GetClaims retrieves all claims on an item
func (service *ClaimService) GetClaims(ctx context.Context, itemID uuid.UUID) ([]*claim.Claim, error) {
	return service.claimRepo.GetByItemID(ctx, itemID)
}

// GetUserClaims retrieves all claims held by a user
func (service *ClaimService) GetUserClaims(ctx context.Context, userID uuid.UUID) ([]*claim.Claim, error) {
	return service.claimRepo.GetByUserID(ctx, userID)
}

// AvailablePoints computes how many points the user's decision unit can
// still bid: the unit's balance minus bids escrowed on contested items,
// excluding the given item when one is being edited.
func (service *ClaimService) AvailablePoints(ctx context.Context, userID uuid.UUID, excludeItem uuid.UUID) (int, error) {
	user, err := service.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	profiles, err := service.profileRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	unitClaims, err := service.claimRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if partner := unit.Partner(userID, profiles); partner != nil {
		partnerClaims, err := service.claimRepo.GetByUserID(ctx, partner.ID)
		if err != nil {
			return 0, err
		}
		unitClaims = append(unitClaims, partnerClaims...)
	}

	// Count interested units per item the unit has claims on; only
	// contested items escrow points
	interestedUnits := make(map[uuid.UUID]int)
	for _, c := range unitClaims {
		if _, done := interestedUnits[c.ItemID]; done {
			continue
		}
		itemClaims, err := service.claimRepo.GetByItemID(ctx, c.ItemID)
		if err != nil {
			return 0, err
		}
		interestedUnits[c.ItemID] = len(unit.GroupInterested(itemClaims, profiles))
	}

	return points.Available(user.Points, unitClaims, interestedUnits, excludeItem), nil
}

// evaluate triggers resolution for the item after a mutation. Evaluation
// failures are logged and retried by the next trigger, never surfaced to
// the caller of the mutation.
func (service *ClaimService) evaluate(ctx context.Context, itemID uuid.UUID) {
	if service.resolver == nil {
		return
	}

	if _, err := service.resolver.Evaluate(ctx, itemID); err != nil {
		service.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Post-mutation evaluation failed")
	}
}

func (service *ClaimService) publishChange(ctx context.Context, table outbound.Table, kind outbound.ChangeKind, recordID uuid.UUID) {
	if service.notifier == nil {
		return
	}

	change := outbound.Change{
		Table:     table,
		Kind:      kind,
		RecordID:  recordID,
		Timestamp: service.now().Unix(),
	}

	if err := service.notifier.Publish(ctx, change); err != nil {
		service.logger.Error().Err(err).
			Str("table", string(table)).
			Str("record_id", recordID.String()).
			Msg("Failed to publish change notification")
	}
}
