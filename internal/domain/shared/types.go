package shared

import (
	"time"

	"github.com/google/uuid"
)

// Outcome represents what a resolution evaluation decided for an item
type Outcome string

const (
	// OutcomeNone means the item stays active, nothing was committed
	OutcomeNone Outcome = "none"
	// OutcomeResolved means a winner was assigned
	OutcomeResolved Outcome = "resolved"
	// OutcomeDonated means the item was given away with no winner
	OutcomeDonated Outcome = "donated"
	// OutcomeExtended means a bid tie pushed the deadline forward
	OutcomeExtended Outcome = "extended"
)

// ResolutionResult represents the result of evaluating an item
type ResolutionResult struct {
	ItemID       uuid.UUID
	Outcome      Outcome
	WinnerID     *uuid.UUID
	WinningBid   int
	NewExpiresAt *time.Time
}

// Transitioned returns true if the evaluation committed a terminal status
func (r *ResolutionResult) Transitioned() bool {
	return r.Outcome == OutcomeResolved || r.Outcome == OutcomeDonated
}
