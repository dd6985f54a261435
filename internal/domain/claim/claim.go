package claim

import (
	"time"

	"github.com/google/uuid"
)

// Status represents a household member's decision on an item.
// Absence of a claim means the member has not decided yet.
type Status string

const (
	StatusInterested Status = "interested"
	StatusDeclined   Status = "declined"
)

// IsValid returns true for a recognised claim status
func (s Status) IsValid() bool {
	return s == StatusInterested || s == StatusDeclined
}

// Claim represents one member's decision on one item.
// At most one claim exists per (item, user) pair.
type Claim struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	UserID    uuid.UUID `json:"user_id"`
	Status    Status    `json:"status"`
	BidAmount int       `json:"bid_amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsInterested returns true if the claim marks the item as wanted
func (c *Claim) IsInterested() bool {
	return c.Status == StatusInterested
}

// IsDeclined returns true if the claim passes on the item
func (c *Claim) IsDeclined() bool {
	return c.Status == StatusDeclined
}
