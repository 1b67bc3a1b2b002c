package matching

import (
	"fmt"
	"time"

	"bloodalert/pkg/types"
)

// BloodPolicy decides whether a donor's blood type satisfies a request.
type BloodPolicy func(donor, requested types.BloodType) bool

// ExactMatch only pairs donors with alerts for their own blood type.
func ExactMatch(donor, requested types.BloodType) bool {
	return donor == requested
}

// CompatibleMatch applies ABO/Rh red cell compatibility.
func CompatibleMatch(donor, requested types.BloodType) bool {
	return donor.CanDonateTo(requested)
}

// ParseBloodPolicy maps the BLOOD_MATCH_POLICY setting to a policy.
func ParseBloodPolicy(name string) (BloodPolicy, error) {
	switch name {
	case "", "exact":
		return ExactMatch, nil
	case "compatible":
		return CompatibleMatch, nil
	}
	return nil, fmt.Errorf("unknown blood match policy %q", name)
}

// RecencyRule reports whether enough time has passed since the donor's
// last donation for them to be asked again.
type RecencyRule func(donor *types.User, now time.Time) bool

func AlwaysEligible(*types.User, time.Time) bool { return true }

// MinInterval excludes donors whose last recorded donation is within d.
// A non-positive d disables the rule.
func MinInterval(d time.Duration) RecencyRule {
	if d <= 0 {
		return AlwaysEligible
	}
	return func(donor *types.User, now time.Time) bool {
		return donor.LastDonationAt == nil || now.Sub(*donor.LastDonationAt) >= d
	}
}

type EligibilityFilter struct {
	Policy  BloodPolicy
	Recency RecencyRule
	Now     func() time.Time
}

// NewEligibilityFilter returns the baseline filter: exact blood type,
// recency always satisfied.
func NewEligibilityFilter() *EligibilityFilter {
	return &EligibilityFilter{Policy: ExactMatch, Recency: AlwaysEligible, Now: time.Now}
}

// FilterEligible keeps donors (role donor only) whose blood type satisfies
// requested and who pass the recency rule. Input order is preserved.
func (f *EligibilityFilter) FilterEligible(candidates []*types.User, requested types.BloodType) []*types.User {
	now := f.Now()
	out := make([]*types.User, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Role != types.RoleDonor || c.BloodType == nil {
			continue
		}
		if !f.Policy(*c.BloodType, requested) {
			continue
		}
		if !f.Recency(c, now) {
			continue
		}
		out = append(out, c)
	}
	return out
}
