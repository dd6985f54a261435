package shared

import (
	"github.com/google/uuid"
)

// Profile represents a household member in the directory.
// Two profiles sharing a CoupleID act as a single decision unit.
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	CoupleID  *uuid.UUID `json:"couple_id,omitempty"`
	Points    int        `json:"points"`
}

// IsCoupled returns true if the profile is linked to a partner
func (p *Profile) IsCoupled() bool {
	return p.CoupleID != nil
}
