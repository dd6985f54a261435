package unit

import (
	"sort"

	"github.com/google/uuid"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/shared"
)

// EligibilityPolicy selects which profiles count as obligated to act on an
// item. The two policies reflect both rule-sets observed in production.
type EligibilityPolicy string

const (
	// EligibilityAll treats every profile as eligible, uploader included
	EligibilityAll EligibilityPolicy = "all"
	// EligibilityExcludeUploader leaves the uploader and their partner out
	EligibilityExcludeUploader EligibilityPolicy = "exclude_uploader"
)

// IsValid returns true for a recognised eligibility policy
func (p EligibilityPolicy) IsValid() bool {
	return p == EligibilityAll || p == EligibilityExcludeUploader
}

// Group is a decision unit with an interest in an item: a single member,
// or two partners that both hold interested claims.
type Group struct {
	Members  []uuid.UUID
	IsCouple bool
}

// WinnerID returns the user id a win is recorded under.
// Couples share the win under the first member's id.
func (g Group) WinnerID() uuid.UUID {
	return g.Members[0]
}

// Partner returns the couple partner of the given user, or nil if the user
// is not coupled or the partner is missing from the directory.
func Partner(userID uuid.UUID, profiles []*shared.Profile) *shared.Profile {
	var self *shared.Profile
	for _, p := range profiles {
		if p.ID == userID {
			self = p
			break
		}
	}
	if self == nil || self.CoupleID == nil {
		return nil
	}
	for _, p := range profiles {
		if p.ID != userID && p.CoupleID != nil && *p.CoupleID == *self.CoupleID {
			return p
		}
	}
	return nil
}

// DisplayName returns the name a unit is shown under: the member's first
// name, or both partners' names in alphabetical order.
func DisplayName(user *shared.Profile, partner *shared.Profile) string {
	if partner == nil {
		return user.FirstName
	}
	names := []string{user.FirstName, partner.FirstName}
	sort.Strings(names)
	return names[0] + " & " + names[1]
}

// GroupInterested merges interested claims into decision units. Claims are
// walked in input order, so the output order follows first appearance.
// Partners are merged into one couple group only when both hold interested
// claims. A claimant missing from the profile directory is dropped.
func GroupInterested(claims []*claim.Claim, profiles []*shared.Profile) []Group {
	byID := make(map[uuid.UUID]*shared.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	interested := make(map[uuid.UUID]bool)
	for _, c := range claims {
		if c.Status == claim.StatusInterested {
			interested[c.UserID] = true
		}
	}

	processed := make(map[uuid.UUID]bool)
	var groups []Group

	for _, c := range claims {
		if c.Status != claim.StatusInterested || processed[c.UserID] {
			continue
		}

		profile, ok := byID[c.UserID]
		if !ok {
			// Data skew: claim references an unknown user. Exclude it
			// from grouping instead of failing the evaluation.
			continue
		}
		processed[c.UserID] = true

		if partner := Partner(c.UserID, profiles); partner != nil && interested[partner.ID] {
			processed[partner.ID] = true
			groups = append(groups, Group{
				Members:  []uuid.UUID{profile.ID, partner.ID},
				IsCouple: true,
			})
			continue
		}

		groups = append(groups, Group{Members: []uuid.UUID{profile.ID}})
	}

	return groups
}

// CountActed tallies eligible decision units and how many of them have
// acted on an item. A couple counts as acted when either partner has a
// claim. Under EligibilityExcludeUploader the uploader's unit is not
// counted at all.
func CountActed(profiles []*shared.Profile, acted map[uuid.UUID]bool, policy EligibilityPolicy, uploaderID uuid.UUID) (actedUnits, totalUnits int) {
	excludedCouple := uuid.Nil
	if policy == EligibilityExcludeUploader {
		for _, p := range profiles {
			if p.ID == uploaderID && p.CoupleID != nil {
				excludedCouple = *p.CoupleID
			}
		}
	}

	couples := make(map[uuid.UUID][]uuid.UUID)
	for _, p := range profiles {
		if policy == EligibilityExcludeUploader {
			if p.ID == uploaderID {
				continue
			}
			if p.CoupleID != nil && *p.CoupleID == excludedCouple {
				continue
			}
		}

		if p.CoupleID != nil {
			couples[*p.CoupleID] = append(couples[*p.CoupleID], p.ID)
			continue
		}

		totalUnits++
		if acted[p.ID] {
			actedUnits++
		}
	}

	for _, members := range couples {
		totalUnits++
		for _, id := range members {
			if acted[id] {
				actedUnits++
				break
			}
		}
	}

	return actedUnits, totalUnits
}

// AllActed returns true when every eligible unit has made a decision.
// An empty directory never counts as fully acted.
func AllActed(profiles []*shared.Profile, acted map[uuid.UUID]bool, policy EligibilityPolicy, uploaderID uuid.UUID) bool {
	actedUnits, totalUnits := CountActed(profiles, acted, policy, uploaderID)
	return totalUnits > 0 && actedUnits == totalUnits
}
