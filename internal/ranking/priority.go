// Package ranking assigns priority tiers and distances and orders the surviving communities.
package ranking

import (
	"strings"

	"github.com/spigell/placement-assistant/internal/community"
)

// Priority tiers. Lower is better.
const (
	TierContracted = 1
	TierPlacement  = 2
	TierOther      = 3
)

// AssignPriority returns the tier for a community: any contract value other
// than blank, "no" or "nan" is tier 1, otherwise a placement partner is tier 2,
// everything else tier 3.
func AssignPriority(contract, placement string) int {
	switch strings.ToLower(strings.TrimSpace(contract)) {
	case "", "no", "nan":
	default:
		return TierContracted
	}

	if strings.ToLower(strings.TrimSpace(placement)) == "yes" {
		return TierPlacement
	}
	return TierOther
}

// Prioritize returns a copy of the table with Priority set on every record.
func Prioritize(t *community.Table) *community.Table {
	return t.Map(func(r community.Record) community.Record {
		r.Priority = AssignPriority(r.Contract, r.Placement)
		return r
	})
}
