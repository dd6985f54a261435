package item

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of an item
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusDonated  Status = "donated"
)

// expireHour is the local hour of day default deadlines land on
const expireHour = 19

// Item represents a physical household item open for claims
type Item struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	UploadedBy  uuid.UUID  `json:"uploaded_by"`
	Status      Status     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	WinnerID    *uuid.UUID `json:"winner_id,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive returns true if the item is still open for claims
func (i *Item) IsActive() bool {
	return i.Status == StatusActive
}

// IsTerminal returns true if the item has been resolved or donated.
// Terminal items never transition again.
func (i *Item) IsTerminal() bool {
	return i.Status == StatusResolved || i.Status == StatusDonated
}

// Expired returns true if the item's claim window has passed at the given time
func (i *Item) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// DefaultExpiresAt computes the default claim deadline for an item
// uploaded at createdAt: the configured window later, at 7pm local time.
func DefaultExpiresAt(createdAt time.Time, window time.Duration) time.Time {
	deadline := createdAt.Add(window)
	return time.Date(deadline.Year(), deadline.Month(), deadline.Day(),
		expireHour, 0, 0, 0, deadline.Location())
}
