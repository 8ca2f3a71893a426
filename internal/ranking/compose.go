package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/placement-assistant/internal/community"
)

// DefaultTopN is the shortlist size when none is configured.
const DefaultTopN = 5

// Policy selects how the shortlist is taken from the ranked table.
type Policy string

const (
	// PriorityFirst takes the head of the table ordered by tier, then distance.
	PriorityFirst Policy = "priority-first"
	// DistanceFirst takes the nearest communities regardless of tier.
	DistanceFirst Policy = "distance-first"
)

// ParsePolicy validates a configured policy name. Empty means PriorityFirst.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityFirst, nil
	case PriorityFirst, DistanceFirst:
		return p, nil
	default:
		return "", fmt.Errorf("unknown ranking policy %q (want %q or %q)", s, PriorityFirst, DistanceFirst)
	}
}

// Result is the outcome of ranking: every survivor in order and the shortlist.
type Result struct {
	Policy    Policy
	Ranked    *community.Table
	Shortlist *community.Table
}

// Compose orders the table and selects the shortlist under policy.
func Compose(t *community.Table, policy Policy, n int) Result {
	if policy == "" {
		policy = PriorityFirst
	}
	ranked := Order(t)
	return Result{
		Policy:    policy,
		Ranked:    ranked,
		Shortlist: Shortlist(ranked, policy, n),
	}
}

// Order sorts by tier, then distance with unknown distances last. Ties keep
// their original order.
func Order(t *community.Table) *community.Table {
	records := t.Records()
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return closer(a, b)
	})
	return t.WithRecords(records)
}

// Shortlist takes n records from an ordered table under policy.
func Shortlist(ordered *community.Table, policy Policy, n int) *community.Table {
	if n <= 0 {
		n = DefaultTopN
	}

	records := ordered.Records()
	if policy == DistanceFirst {
		sort.SliceStable(records, func(i, j int) bool {
			return closer(records[i], records[j])
		})
	}

	if len(records) > n {
		records = records[:n]
	}
	return ordered.WithRecords(records)
}

func closer(a, b community.Record) bool {
	switch {
	case a.HasDistance && b.HasDistance:
		return a.Distance < b.Distance
	case a.HasDistance:
		return true
	default:
		return false
	}
}
