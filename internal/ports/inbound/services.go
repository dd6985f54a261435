package inbound

import (
	"context"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"

	"github.com/google/uuid"
)

// Section identifies a server-side browse filter
type Section string

const (
	SectionBrowse    Section = "browse"
	SectionDibbed    Section = "dibbed"
	SectionPassed    Section = "passed"
	SectionConflicts Section = "conflicts"
	SectionMyStuff   Section = "mystuff"
	SectionDonation  Section = "donation"
)

// ItemService defines the interface for item lifecycle operations
type ItemService interface {
	// CreateItem uploads a new item and opens its claim window
	CreateItem(ctx context.Context, req CreateItemRequest) (*item.Item, error)

	// GetItem retrieves an item by ID
	GetItem(ctx context.Context, itemID uuid.UUID) (*item.Item, error)

	// ListItems retrieves a list of items
	ListItems(ctx context.Context, req ListItemsRequest) ([]*item.Item, error)

	// ListSection retrieves the items a user sees in a browse section
	ListSection(ctx context.Context, userID uuid.UUID, section Section) ([]*item.Item, error)
}

// ClaimService defines the interface for claim and bid mutations
type ClaimService interface {
	// SetClaim upserts or toggles a user's decision on an item.
	// Requesting the status a claim already has removes the claim.
	// Returns nil when the claim was removed.
	SetClaim(ctx context.Context, req SetClaimRequest) (*claim.Claim, error)

	// SetBid updates the bid amount on an existing interested claim,
	// clamped so the unit never commits more points than it has
	SetBid(ctx context.Context, req SetBidRequest) (*claim.Claim, error)

	// GetClaims retrieves all claims on an item
	GetClaims(ctx context.Context, itemID uuid.UUID) ([]*claim.Claim, error)

	// GetUserClaims retrieves all claims held by a user
	GetUserClaims(ctx context.Context, userID uuid.UUID) ([]*claim.Claim, error)

	// AvailablePoints computes the points a user's unit can still bid,
	// optionally excluding the item being edited
	AvailablePoints(ctx context.Context, userID uuid.UUID, excludeItem uuid.UUID) (int, error)
}

// ProfileService defines the interface for household directory operations
type ProfileService interface {
	// CreateProfile adds a member to the household directory with the
	// configured starting balance
	CreateProfile(ctx context.Context, req CreateProfileRequest) (*shared.Profile, error)

	// ListProfiles retrieves the full household directory
	ListProfiles(ctx context.Context) ([]*shared.Profile, error)
}

// request to create a profile. Partners share a couple ID; the caller
// passes the same one for both members.
type CreateProfileRequest struct {
	FirstName string     `json:"first_name"`
	CoupleID  *uuid.UUID `json:"couple_id,omitempty"`
}

// request to create an item
type CreateItemRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	ExpiresAt   string    `json:"expires_at,omitempty"`
}

// request to list items
type ListItemsRequest struct {
	Status   *item.Status `json:"status,omitempty"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// request to set or toggle a claim
type SetClaimRequest struct {
	ItemID uuid.UUID    `json:"item_id"`
	UserID uuid.UUID    `json:"user_id"`
	Status claim.Status `json:"status"`
}

// request to set a bid on a claim
type SetBidRequest struct {
	ClaimID uuid.UUID `json:"claim_id"`
	Amount  int       `json:"amount"`
}
