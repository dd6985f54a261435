package outbound

import (
	"context"
	"time"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"

	"github.com/google/uuid"
)

// ItemRepository defines the interface for item data operations
type ItemRepository interface {
	// Create creates a new item
	Create(ctx context.Context, item *item.Item) error

	// GetByID retrieves an item by ID
	GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error)

	// List retrieves a list of items with optional status filter
	List(ctx context.Context, status *item.Status, page, pageSize int) ([]*item.Item, error)

	// ListActiveExpired retrieves active items whose deadline has passed
	ListActiveExpired(ctx context.Context, now time.Time) ([]*item.Item, error)

	// Resolve transitions an item to a terminal status. The write is
	// conditional on the item still being active; it returns false when
	// a concurrent evaluation already committed a transition.
	Resolve(ctx context.Context, id uuid.UUID, status item.Status, winnerID *uuid.UUID, resolvedAt time.Time) (bool, error)

	// ExtendDeadline pushes an active item's deadline forward. Returns
	// false when the item is no longer active.
	ExtendDeadline(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error)

	// Delete deletes an item
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClaimRepository defines the interface for claim data operations
type ClaimRepository interface {
	// Create creates a new claim
	Create(ctx context.Context, claim *claim.Claim) error

	// GetByID retrieves a claim by ID
	GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error)

	// GetByItemID retrieves all claims for an item
	GetByItemID(ctx context.Context, itemID uuid.UUID) ([]*claim.Claim, error)

	// GetByUserID retrieves all claims made by a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*claim.Claim, error)

	// GetByItemAndUser retrieves the claim a user holds on an item
	GetByItemAndUser(ctx context.Context, itemID, userID uuid.UUID) (*claim.Claim, error)

	// Update updates a claim
	Update(ctx context.Context, claim *claim.Claim) error

	// Delete deletes a claim
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileRepository defines the interface for profile directory operations
type ProfileRepository interface {
	// GetByID retrieves a profile by ID
	GetByID(ctx context.Context, id uuid.UUID) (*shared.Profile, error)

	// List retrieves the full profile directory
	List(ctx context.Context) ([]*shared.Profile, error)

	// Create creates a new profile
	Create(ctx context.Context, profile *shared.Profile) error

	// DeductPoints subtracts amount from the winner's points, and from the
	// partner's when coupleID is set, in a single transaction.
	DeductPoints(ctx context.Context, winnerID uuid.UUID, coupleID *uuid.UUID, amount int) error
}
