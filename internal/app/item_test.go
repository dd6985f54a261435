package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/domain/unit"
	"dibs-service/internal/ports/inbound"
)

func newItemService(h *household) *ItemService {
	return NewItemService(ItemServiceParams{
		ItemRepo:    h.items,
		ClaimRepo:   h.claims,
		ProfileRepo: h.profiles,
		Notifier:    h.notifier,
		Now:         func() time.Time { return testNow },
		Logger:      zerolog.Nop(),
	})
}

func TestCreateItemDefaultDeadline(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)

	it, err := svc.CreateItem(context.Background(), inbound.CreateItemRequest{
		Name:       "Bookshelf",
		UploadedBy: h.dana.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	// A week out, at 7pm.
	want := time.Date(2025, time.June, 17, 19, 0, 0, 0, time.UTC)
	if !it.ExpiresAt.Equal(want) {
		t.Errorf("expected default deadline %v, got %v", want, it.ExpiresAt)
	}
	if it.Status != item.StatusActive {
		t.Errorf("expected active item, got %s", it.Status)
	}
}

func TestCreateItemExplicitDeadline(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)

	deadline := testNow.Add(3 * time.Hour)
	it, err := svc.CreateItem(context.Background(), inbound.CreateItemRequest{
		Name:       "Mirror",
		UploadedBy: h.dana.ID,
		ExpiresAt:  deadline.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !it.ExpiresAt.Equal(deadline) {
		t.Errorf("expected deadline %v, got %v", deadline, it.ExpiresAt)
	}
}

func TestCreateItemValidation(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)
	ctx := context.Background()

	if _, err := svc.CreateItem(ctx, inbound.CreateItemRequest{UploadedBy: h.dana.ID}); !errors.Is(err, shared.ErrItemNameRequired) {
		t.Errorf("expected ErrItemNameRequired, got %v", err)
	}

	past := testNow.Add(-time.Hour).Format(time.RFC3339)
	if _, err := svc.CreateItem(ctx, inbound.CreateItemRequest{Name: "Rug", UploadedBy: h.dana.ID, ExpiresAt: past}); !errors.Is(err, shared.ErrInvalidExpiresAt) {
		t.Errorf("expected ErrInvalidExpiresAt, got %v", err)
	}

	if _, err := svc.CreateItem(ctx, inbound.CreateItemRequest{Name: "Rug", UploadedBy: h.dana.ID, ExpiresAt: "tomorrow"}); !errors.Is(err, shared.ErrInvalidTimeFormat) {
		t.Errorf("expected ErrInvalidTimeFormat, got %v", err)
	}
}

func TestListSectionDibbedAndPassed(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)
	ctx := context.Background()

	wanted := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	passed := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))

	h.addClaim(t, wanted.ID, h.cas.ID, claim.StatusInterested, 0)
	h.addClaim(t, passed.ID, h.cas.ID, claim.StatusDeclined, 0)

	dibbed, err := svc.ListSection(ctx, h.cas.ID, inbound.SectionDibbed)
	if err != nil {
		t.Fatalf("ListSection dibbed: %v", err)
	}
	if len(dibbed) != 1 || dibbed[0].ID != wanted.ID {
		t.Errorf("expected only the wanted item in dibbed, got %d items", len(dibbed))
	}

	declines, err := svc.ListSection(ctx, h.cas.ID, inbound.SectionPassed)
	if err != nil {
		t.Fatalf("ListSection passed: %v", err)
	}
	if len(declines) != 1 || declines[0].ID != passed.ID {
		t.Errorf("expected only the passed item, got %d items", len(declines))
	}

	browse, err := svc.ListSection(ctx, h.cas.ID, inbound.SectionBrowse)
	if err != nil {
		t.Fatalf("ListSection browse: %v", err)
	}
	if len(browse) != 3 {
		t.Errorf("expected all 3 active items in browse, got %d", len(browse))
	}
}

func TestListSectionConflictsNeedsCompetingUnit(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)
	ctx := context.Background()

	contested := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))
	solo := h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))

	h.addClaim(t, contested.ID, h.cas.ID, claim.StatusInterested, 0)
	h.addClaim(t, contested.ID, h.dana.ID, claim.StatusInterested, 0)
	h.addClaim(t, solo.ID, h.cas.ID, claim.StatusInterested, 0)

	conflicts, err := svc.ListSection(ctx, h.cas.ID, inbound.SectionConflicts)
	if err != nil {
		t.Fatalf("ListSection conflicts: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != contested.ID {
		t.Errorf("expected only the contested item, got %d items", len(conflicts))
	}
}

func TestListSectionMyStuffIncludesPartnerWins(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)
	ctx := context.Background()

	won := h.addItem(t, h.dana.ID, testNow.Add(-time.Hour))
	h.items.Resolve(ctx, won.ID, item.StatusResolved, &h.ana.ID, testNow)

	othersWin := h.addItem(t, h.dana.ID, testNow.Add(-time.Hour))
	h.items.Resolve(ctx, othersWin.ID, item.StatusResolved, &h.cas.ID, testNow)

	// The win is recorded under Ana, but Ben shares it.
	mystuff, err := svc.ListSection(ctx, h.ben.ID, inbound.SectionMyStuff)
	if err != nil {
		t.Fatalf("ListSection mystuff: %v", err)
	}
	if len(mystuff) != 1 || mystuff[0].ID != won.ID {
		t.Errorf("expected the couple's win for Ben, got %d items", len(mystuff))
	}
}

func TestListSectionDonationPile(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)
	ctx := context.Background()

	donated := h.addItem(t, h.dana.ID, testNow.Add(-time.Hour))
	h.items.Resolve(ctx, donated.ID, item.StatusDonated, nil, testNow)
	h.addItem(t, h.dana.ID, testNow.Add(48*time.Hour))

	pile, err := svc.ListSection(ctx, h.cas.ID, inbound.SectionDonation)
	if err != nil {
		t.Fatalf("ListSection donation: %v", err)
	}
	if len(pile) != 1 || pile[0].ID != donated.ID {
		t.Errorf("expected only the donated item, got %d items", len(pile))
	}
}

func TestListSectionUnknown(t *testing.T) {
	h := newHousehold(t, unit.EligibilityAll)
	svc := newItemService(h)

	if _, err := svc.ListSection(context.Background(), h.cas.ID, "attic"); !errors.Is(err, shared.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
