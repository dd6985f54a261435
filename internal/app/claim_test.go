package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/domain/unit"
	"dibs-service/internal/ports/inbound"
	"dibs-service/internal/ports/outbound"
)

func newClaimService(h *household) *ClaimService {
	return NewClaimService(ClaimServiceParams{
		ClaimRepo:   h.claims,
		ItemRepo:    h.items,
		ProfileRepo: h.profiles,
		Notifier:    h.notifier,
		Resolver:    h.resolver,
		Now:         func() time.Time { return testNow },
		Logger:      zerolog.Nop(),
	})
}

func TestSetClaimCreatesFlipsAndRemoves(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	it := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	ctx := context.Background()

	// First tap creates the claim.
	created, err := svc.SetClaim(ctx, inbound.SetClaimRequest{ItemID: it.ID, UserID: h.cas.ID, Status: claim.StatusInterested})
	if err != nil {
		t.Fatalf("SetClaim create: %v", err)
	}
	if created == nil || created.Status != claim.StatusInterested {
		t.Fatalf("expected interested claim, got %+v", created)
	}
	if h.notifier.published(outbound.TableClaims, outbound.ChangeInsert) != 1 {
		t.Errorf("expected one claim insert notification")
	}

	// The opposite status flips it in place.
	flipped, err := svc.SetClaim(ctx, inbound.SetClaimRequest{ItemID: it.ID, UserID: h.cas.ID, Status: claim.StatusDeclined})
	if err != nil {
		t.Fatalf("SetClaim flip: %v", err)
	}
	if flipped.ID != created.ID || flipped.Status != claim.StatusDeclined {
		t.Errorf("expected same claim flipped to declined, got %+v", flipped)
	}

	// Repeating the current status removes the decision.
	removed, err := svc.SetClaim(ctx, inbound.SetClaimRequest{ItemID: it.ID, UserID: h.cas.ID, Status: claim.StatusDeclined})
	if err != nil {
		t.Fatalf("SetClaim remove: %v", err)
	}
	if removed != nil {
		t.Errorf("expected nil claim after toggle-off, got %+v", removed)
	}
	if _, err := h.claims.GetByItemAndUser(ctx, it.ID, h.cas.ID); !errors.Is(err, shared.ErrClaimNotFound) {
		t.Errorf("expected claim gone from store, got %v", err)
	}
}

func TestSetClaimRejectsInactiveItem(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	it := h.addItem(t, h.dana.ID, testNow.Add(-time.Hour))
	h.items.Resolve(context.Background(), it.ID, "donated", nil, testNow)

	_, err := svc.SetClaim(context.Background(), inbound.SetClaimRequest{ItemID: it.ID, UserID: h.cas.ID, Status: claim.StatusInterested})
	if !errors.Is(err, shared.ErrItemNotActive) {
		t.Errorf("expected ErrItemNotActive, got %v", err)
	}
}

func TestSetClaimTriggersResolution(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	it := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	ctx := context.Background()

	// Ana dibs, everyone else passes. The final pass completes the
	// household decision and the item resolves without waiting.
	svc.SetClaim(ctx, inbound.SetClaimRequest{ItemID: it.ID, UserID: h.ana.ID, Status: claim.StatusInterested})
	svc.SetClaim(ctx, inbound.SetClaimRequest{ItemID: it.ID, UserID: h.cas.ID, Status: claim.StatusDeclined})
	svc.SetClaim(ctx, inbound.SetClaimRequest{ItemID: it.ID, UserID: h.dana.ID, Status: claim.StatusDeclined})

	got := h.itemStatus(t, it.ID)
	if got.Status != "resolved" {
		t.Fatalf("expected item resolved after the last decision, got %s", got.Status)
	}
	if got.WinnerID == nil || *got.WinnerID != h.ana.ID {
		t.Errorf("expected Ana to win")
	}
}

func TestSetBidClampsToAvailablePoints(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	ctx := context.Background()

	// Cas already escrows 40 on another contested item.
	other := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	h.addClaim(t, other.ID, h.cas.ID, claim.StatusInterested, 40)
	h.addClaim(t, other.ID, h.dana.ID, claim.StatusInterested, 10)

	it := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	cl := h.addClaim(t, it.ID, h.cas.ID, claim.StatusInterested, 0)
	h.addClaim(t, it.ID, h.ana.ID, claim.StatusInterested, 0)

	updated, err := svc.SetBid(ctx, inbound.SetBidRequest{ClaimID: cl.ID, Amount: 90})
	if err != nil {
		t.Fatalf("SetBid: %v", err)
	}
	if updated.BidAmount != 60 {
		t.Errorf("expected bid clamped to 60, got %d", updated.BidAmount)
	}
}

func TestSetBidReplacementKeepsOwnBidSpendable(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	ctx := context.Background()

	it := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	cl := h.addClaim(t, it.ID, h.cas.ID, claim.StatusInterested, 70)
	h.addClaim(t, it.ID, h.ana.ID, claim.StatusInterested, 10)

	// Raising an existing 70-point bid to 100 is fine: the old bid is
	// released the moment the new one lands.
	updated, err := svc.SetBid(ctx, inbound.SetBidRequest{ClaimID: cl.ID, Amount: 100})
	if err != nil {
		t.Fatalf("SetBid: %v", err)
	}
	if updated.BidAmount != 100 {
		t.Errorf("expected full-balance replacement bid, got %d", updated.BidAmount)
	}
}

func TestSetBidRejectsNegativeAndDeclined(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	ctx := context.Background()

	it := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	declined := h.addClaim(t, it.ID, h.cas.ID, claim.StatusDeclined, 0)

	if _, err := svc.SetBid(ctx, inbound.SetBidRequest{ClaimID: declined.ID, Amount: -5}); !errors.Is(err, shared.ErrBidAmountNegative) {
		t.Errorf("expected ErrBidAmountNegative, got %v", err)
	}
	if _, err := svc.SetBid(ctx, inbound.SetBidRequest{ClaimID: declined.ID, Amount: 10}); !errors.Is(err, shared.ErrClaimNotInterested) {
		t.Errorf("expected ErrClaimNotInterested, got %v", err)
	}
}

func TestAvailablePointsPoolsCoupleEscrow(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newClaimService(h)
	ctx := context.Background()

	// Ben escrows 30 on a contested item; Ana's available drops too.
	contested := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	h.addClaim(t, contested.ID, h.ben.ID, claim.StatusInterested, 30)
	h.addClaim(t, contested.ID, h.cas.ID, claim.StatusInterested, 5)

	available, err := svc.AvailablePoints(ctx, h.ana.ID, contested.ID)
	if err != nil {
		t.Fatalf("AvailablePoints: %v", err)
	}
	// Excluding the contested item itself releases Ben's escrow.
	if available != 100 {
		t.Errorf("expected 100 when editing the contested item, got %d", available)
	}

	other := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	available, err = svc.AvailablePoints(ctx, h.ana.ID, other.ID)
	if err != nil {
		t.Fatalf("AvailablePoints: %v", err)
	}
	if available != 70 {
		t.Errorf("expected 70 with partner escrow held, got %d", available)
	}
}
