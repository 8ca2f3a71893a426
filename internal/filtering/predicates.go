package filtering

import (
	"strings"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/preferences"
)

// Predicate decides whether a community stays in the table.
type Predicate func(community.Record) bool

// ServiceContains matches records whose service type contains level, ignoring case.
func ServiceContains(level string) Predicate {
	needle := strings.ToLower(strings.TrimSpace(level))
	return func(r community.Record) bool {
		return strings.Contains(strings.ToLower(r.ServiceType), needle)
	}
}

// FlagIsYes matches records whose column value is "yes" in any case.
func FlagIsYes(column string) Predicate {
	return func(r community.Record) bool {
		return strings.EqualFold(strings.TrimSpace(r.Field(column)), "yes")
	}
}

// WaitlistIn matches records whose waitlist estimate is one of allowed.
func WaitlistIn(allowed ...string) Predicate {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return func(r community.Record) bool {
		_, ok := set[strings.ToLower(strings.TrimSpace(r.Waitlist))]
		return ok
	}
}

// FeeAtMost matches records with a known monthly fee not above limit.
// Records without a usable fee never match.
func FeeAtMost(limit float64) Predicate {
	return func(r community.Record) bool {
		return r.HasFee && r.MonthlyFee <= limit
	}
}

// WaitlistValues lists the waitlist estimates acceptable for a move-in window.
// Nil means the window does not restrict anything.
func WaitlistValues(w preferences.MoveInWindow) []string {
	switch w {
	case preferences.MoveInImmediate:
		return []string{"Available", "Unconfirmed"}
	case preferences.MoveInNearTerm:
		return []string{"Available", "Unconfirmed", "1-2 months", "2-4 months", "4-6 months"}
	default:
		return nil
	}
}
