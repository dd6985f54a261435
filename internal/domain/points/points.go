package points

import (
	"github.com/google/uuid"

	"dibs-service/internal/domain/claim"
)

// Available computes how many of a decision unit's points are free to bid,
// given the unit's claims and the number of interested units per item.
// A bid escrows points only while its item is contested (more than one
// interested unit); the item under active edit is excluded so the bid
// being replaced stays spendable. The escrow is a projection recomputed
// from current claims, never persisted.
func Available(total int, unitClaims []*claim.Claim, interestedUnits map[uuid.UUID]int, excludeItem uuid.UUID) int {
	outstanding := 0
	for _, c := range unitClaims {
		if c.ItemID == excludeItem {
			continue
		}
		if c.Status != claim.StatusInterested || c.BidAmount <= 0 {
			continue
		}
		if interestedUnits[c.ItemID] > 1 {
			outstanding += c.BidAmount
		}
	}
	return total - outstanding
}
