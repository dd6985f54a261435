package app

import (
	"context"
	"sort"
	"time"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/domain/unit"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResolutionService is the state machine that decides whether an active
// item transitions to resolved or donated, or gets its deadline extended.
// Evaluation always re-reads current state, applies at most one rule per
// invocation, and commits transitions with a conditional write so that
// concurrent triggers produce at most one committed decision per item.
type ResolutionService struct {
	itemRepo     outbound.ItemRepository
	claimRepo    outbound.ClaimRepository
	profileRepo  outbound.ProfileRepository
	notifier     outbound.ChangeNotifier
	policy       unit.EligibilityPolicy
	tieExtension time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

type ResolutionServiceParams struct {
	ItemRepo     outbound.ItemRepository
	ClaimRepo    outbound.ClaimRepository
	ProfileRepo  outbound.ProfileRepository
	Notifier     outbound.ChangeNotifier
	Policy       unit.EligibilityPolicy
	TieExtension time.Duration
	Now          func() time.Time
	Logger       zerolog.Logger
}

// NewResolutionService creates a new resolution service
func NewResolutionService(params ResolutionServiceParams) *ResolutionService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	tieExtension := params.TieExtension
	if tieExtension == 0 {
		tieExtension = 24 * time.Hour
	}
	policy := params.Policy
	if policy == "" {
		policy = unit.EligibilityAll
	}

	return &ResolutionService{
		itemRepo:     params.ItemRepo,
		claimRepo:    params.ClaimRepo,
		profileRepo:  params.ProfileRepo,
		notifier:     params.Notifier,
		policy:       policy,
		tieExtension: tieExtension,
		now:          now,
		logger:       params.Logger.With().Str("component", "resolution_service").Logger(),
	}
}

// Evaluate re-evaluates an item and applies the first matching rule.
// It is invoked after every claim mutation on the item and by the
// expiration monitor once the deadline passes. Failures abort this
// invocation only; the next trigger retries from fresh state.
func (service *ResolutionService) Evaluate(ctx context.Context, itemID uuid.UUID) (*shared.ResolutionResult, error) {
	service.logger.Debug().Str("item_id", itemID.String()).Msg("Evaluating item")

	it, err := service.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Failed to retrieve item for evaluation")
		return nil, err
	}

	// Terminal states never transition again
	if !it.IsActive() {
		service.logger.Debug().
			Str("item_id", itemID.String()).
			Str("status", string(it.Status)).
			Msg("Item not active, skipping evaluation")
		return &shared.ResolutionResult{ItemID: itemID, Outcome: shared.OutcomeNone}, nil
	}

	claims, err := service.claimRepo.GetByItemID(ctx, itemID)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Failed to retrieve claims for evaluation")
		return nil, err
	}

	profiles, err := service.profileRepo.List(ctx)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Failed to retrieve profile directory")
		return nil, err
	}

	var interested, declined []*claim.Claim
	acted := make(map[uuid.UUID]bool)
	for _, c := range claims {
		acted[c.UserID] = true
		switch c.Status {
		case claim.StatusInterested:
			interested = append(interested, c)
		case claim.StatusDeclined:
			declined = append(declined, c)
		}
	}

	groups := unit.GroupInterested(claims, profiles)
	allActed := unit.AllActed(profiles, acted, service.policy, it.UploadedBy)
	now := service.now()
	expired := it.Expired(now)

	service.logger.Debug().
		Str("item_id", itemID.String()).
		Int("interested_claims", len(interested)).
		Int("declined_claims", len(declined)).
		Int("interested_units", len(groups)).
		Bool("all_acted", allActed).
		Bool("expired", expired).
		Msg("Evaluation inputs gathered")

	// Rule 1: every eligible unit declined
	if allActed && len(interested) == 0 && len(declined) > 0 {
		return service.commit(ctx, it, item.StatusDonated, nil, 0)
	}

	// Rule 2: deadline passed and nobody ever acted
	if len(interested) == 0 && len(declined) == 0 && expired {
		return service.commit(ctx, it, item.StatusDonated, nil, 0)
	}

	if len(groups) == 1 {
		winnerID := groups[0].WinnerID()

		// Rule 3: sole interested unit and everyone has decided
		if allActed {
			return service.commit(ctx, it, item.StatusResolved, &winnerID, 0)
		}

		// Rule 4: sole interested unit at the deadline
		if expired {
			return service.commit(ctx, it, item.StatusResolved, &winnerID, 0)
		}
	}

	// Rule 5: contested item at the deadline goes to the highest bidder
	if len(groups) > 1 && expired {
		return service.resolveBidOff(ctx, it, groups, interested)
	}

	// Rule 6: nothing to decide yet
	return &shared.ResolutionResult{ItemID: itemID, Outcome: shared.OutcomeNone}, nil
}

type groupBid struct {
	group  unit.Group
	maxBid int
}

// resolveBidOff ranks contesting units by their max bid. A unique top bid
// wins; a tie pushes the deadline forward from the old deadline.
func (service *ResolutionService) resolveBidOff(ctx context.Context, it *item.Item, groups []unit.Group, interested []*claim.Claim) (*shared.ResolutionResult, error) {
	bidByUser := make(map[uuid.UUID]int, len(interested))
	for _, c := range interested {
		bidByUser[c.UserID] = c.BidAmount
	}

	ranked := make([]groupBid, 0, len(groups))
	for _, g := range groups {
		maxBid := 0
		for _, memberID := range g.Members {
			if b := bidByUser[memberID]; b > maxBid {
				maxBid = b
			}
		}
		ranked = append(ranked, groupBid{group: g, maxBid: maxBid})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].maxBid > ranked[j].maxBid
	})

	topBid := ranked[0].maxBid
	tied := 0
	for _, gb := range ranked {
		if gb.maxBid == topBid {
			tied++
		}
	}

	if tied > 1 {
		return service.extend(ctx, it, tied)
	}

	winnerID := ranked[0].group.WinnerID()
	return service.commit(ctx, it, item.StatusResolved, &winnerID, topBid)
}

// extend pushes the deadline forward by the tie extension, measured from
// the current stored deadline rather than from the evaluation time
func (service *ResolutionService) extend(ctx context.Context, it *item.Item, tiedUnits int) (*shared.ResolutionResult, error) {
	newExpiresAt := it.ExpiresAt.Add(service.tieExtension)

	ok, err := service.itemRepo.ExtendDeadline(ctx, it.ID, newExpiresAt)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", it.ID.String()).Msg("Failed to extend item deadline")
		return nil, err
	}
	if !ok {
		// Another evaluation won the race and already transitioned the item
		service.logger.Warn().Str("item_id", it.ID.String()).Msg("Deadline extension skipped, item no longer active")
		return &shared.ResolutionResult{ItemID: it.ID, Outcome: shared.OutcomeNone}, nil
	}

	service.logger.Info().
		Str("item_id", it.ID.String()).
		Int("tied_units", tiedUnits).
		Time("new_expires_at", newExpiresAt).
		Msg("Bid tie, item deadline extended")

	service.publishChange(ctx, outbound.TableItems, outbound.ChangeUpdate, it.ID)

	return &shared.ResolutionResult{
		ItemID:       it.ID,
		Outcome:      shared.OutcomeExtended,
		NewExpiresAt: &newExpiresAt,
	}, nil
}

// commit applies a terminal transition with a conditional write and, on a
// resolve with a positive winning bid, deducts the points from the
// winner's unit.
func (service *ResolutionService) commit(ctx context.Context, it *item.Item, status item.Status, winnerID *uuid.UUID, winningBid int) (*shared.ResolutionResult, error) {
	resolvedAt := service.now()

	ok, err := service.itemRepo.Resolve(ctx, it.ID, status, winnerID, resolvedAt)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", it.ID.String()).Msg("Failed to commit item transition")
		return nil, err
	}
	if !ok {
		// Concurrent trigger committed first; this invocation is a no-op
		service.logger.Warn().Str("item_id", it.ID.String()).Msg("Transition skipped, item no longer active")
		return &shared.ResolutionResult{ItemID: it.ID, Outcome: shared.OutcomeNone}, nil
	}

	event := service.logger.Info().
		Str("item_id", it.ID.String()).
		Str("status", string(status))
	if winnerID != nil {
		event = event.Str("winner_id", winnerID.String())
	}
	if winningBid > 0 {
		event = event.Int("winning_bid", winningBid)
	}
	event.Msg("Item transition committed")

	if winnerID != nil && winningBid > 0 {
		service.deductPoints(ctx, *winnerID, winningBid)
	}

	service.publishChange(ctx, outbound.TableItems, outbound.ChangeUpdate, it.ID)

	outcome := shared.OutcomeDonated
	if status == item.StatusResolved {
		outcome = shared.OutcomeResolved
	}

	return &shared.ResolutionResult{
		ItemID:     it.ID,
		Outcome:    outcome,
		WinnerID:   winnerID,
		WinningBid: winningBid,
	}, nil
}

// deductPoints charges the winning bid against the winner's balance and,
// for couples, the partner's mirrored balance in the same transaction.
// The item transition is already committed at this point, so a failure is
// logged rather than unwound.
func (service *ResolutionService) deductPoints(ctx context.Context, winnerID uuid.UUID, amount int) {
	winner, err := service.profileRepo.GetByID(ctx, winnerID)
	if err != nil {
		service.logger.Error().Err(err).Str("winner_id", winnerID.String()).Msg("Failed to load winner profile for point deduction")
		return
	}

	if err := service.profileRepo.DeductPoints(ctx, winnerID, winner.CoupleID, amount); err != nil {
		service.logger.Error().Err(err).
			Str("winner_id", winnerID.String()).
			Int("amount", amount).
			Msg("Failed to deduct points from winner")
		return
	}

	service.logger.Info().
		Str("winner_id", winnerID.String()).
		Int("amount", amount).
		Bool("coupled", winner.CoupleID != nil).
		Msg("Points deducted from winning unit")

	service.publishChange(ctx, outbound.TableProfiles, outbound.ChangeUpdate, winnerID)
}

func (service *ResolutionService) publishChange(ctx context.Context, table outbound.Table, kind outbound.ChangeKind, recordID uuid.UUID) {
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
		// Notification delivery is best effort; state is already persisted
		service.logger.Error().Err(err).
			Str("table", string(table)).
			Str("record_id", recordID.String()).
			Msg("Failed to publish change notification")
	}
}
