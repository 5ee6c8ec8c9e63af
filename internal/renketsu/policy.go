package renketsu

import (
	"fmt"
	"slices"
	"strings"
)

// TieBreaker picks one registration among candidates that matched a query
// at the same resolution step. candidates is never empty and is in
// registration order.
type TieBreaker func(query string, candidates []*Registration) *Registration

// FirstRegistered picks the earliest registration.
func FirstRegistered(_ string, candidates []*Registration) *Registration {
	return candidates[0]
}

// PreferPrimary picks the first registration marked primary, falling back to
// the earliest one.
func PreferPrimary(_ string, candidates []*Registration) *Registration {
	for _, c := range candidates {
		if c.Primary {
			return c
		}
	}

	return candidates[0]
}

// PreferProfile picks the first registration active in one of the given
// profiles, then applies PreferPrimary.
func PreferProfile(profiles ...string) TieBreaker {
	return func(query string, candidates []*Registration) *Registration {
		var active []*Registration
		for _, c := range candidates {
			if slices.ContainsFunc(c.Profiles, func(p string) bool { return slices.Contains(profiles, p) }) {
				active = append(active, c)
			}
		}

		if len(active) > 0 {
			return PreferPrimary(query, active)
		}

		return PreferPrimary(query, candidates)
	}
}

// ParseTieBreaker returns the policy with the given name: "first",
// "primary" or "profile". The profiles are only used by "profile".
func ParseTieBreaker(name string, profiles []string) (TieBreaker, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first":
		return FirstRegistered, nil
	case "primary":
		return PreferPrimary, nil
	case "profile":
		return PreferProfile(profiles...), nil
	default:
		return nil, fmt.Errorf("unknown tie-break policy: %s", name)
	}
}
