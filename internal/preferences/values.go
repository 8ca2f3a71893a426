package preferences

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CareLevel is the level of care the resident needs.
type CareLevel string

const (
	CareUnknown     CareLevel = "Unknown"
	CareIndependent CareLevel = "Independent Living"
	CareAssisted    CareLevel = "Assisted Living"
	CareMemory      CareLevel = "Memory Care"
)

// ParseCareLevel maps free text onto a known care level.
func ParseCareLevel(s string) CareLevel {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return CareUnknown
	case strings.Contains(v, "memory"), strings.Contains(v, "dementia"):
		return CareMemory
	case strings.Contains(v, "assist"):
		return CareAssisted
	case strings.Contains(v, "independ"):
		return CareIndependent
	default:
		return CareUnknown
	}
}

// TriState is a yes/no answer that may not have been given.
type TriState string

const (
	Unknown TriState = "Unknown"
	Yes     TriState = "Yes"
	No      TriState = "No"
)

// ParseTriState accepts booleans and the usual yes/no spellings.
func ParseTriState(v any) TriState {
	switch t := v.(type) {
	case nil:
		return Unknown
	case bool:
		if t {
			return Yes
		}
		return No
	case TriState:
		return ParseTriState(string(t))
	}

	s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	switch s {
	case "yes", "y", "true", "1", "required", "preferred":
		return Yes
	case "no", "n", "false", "0", "not needed", "none":
		return No
	}
	if strings.HasPrefix(s, "yes") {
		return Yes
	}
	return Unknown
}

// MoveInWindow is how soon the resident needs to move.
type MoveInWindow string

const (
	MoveInUnknown   MoveInWindow = "Unknown"
	MoveInImmediate MoveInWindow = "Immediate"
	MoveInNearTerm  MoveInWindow = "Near-term"
	MoveInFlexible  MoveInWindow = "Flexible"
)

var moveInSynonyms = []struct {
	window MoveInWindow
	words  []string
}{
	{MoveInImmediate, []string{"immediate", "asap", "as soon as possible", "right away", "urgent", "this week", "today", "tomorrow"}},
	{MoveInFlexible, []string{"flexible", "no rush", "whenever", "later", "6 month", "six month", "12 month", "next year", "not in a hurry"}},
	{MoveInNearTerm, []string{"near", "soon", "next month", "1-3 month", "1 to 3 month", "within 3 month", "few weeks", "couple of weeks", "weeks", "1 month", "2 month", "3 month"}},
}

// ParseMoveInWindow maps free text such as "asap" or "1-3 months" onto a window.
func ParseMoveInWindow(s string) MoveInWindow {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "unknown", "n/a", "not sure":
		return MoveInUnknown
	case "now":
		return MoveInImmediate
	}
	for _, w := range []MoveInWindow{MoveInImmediate, MoveInNearTerm, MoveInFlexible} {
		if strings.EqualFold(v, string(w)) {
			return w
		}
	}

	for _, group := range moveInSynonyms {
		for _, w := range group.words {
			if strings.Contains(v, w) {
				return group.window
			}
		}
	}
	return MoveInUnknown
}

// ParseBudget extracts a positive monthly amount. Zero means no budget.
func ParseBudget(v any) int {
	var f float64

	switch t := v.(type) {
	case nil:
		return 0
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float64:
		f = t
	case string:
		f = leadingAmount(t)
	default:
		f = leadingAmount(fmt.Sprint(v))
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	return int(math.Round(f))
}

// leadingAmount reads the first number in s, honoring thousands separators and a k suffix.
func leadingAmount(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("$", "", ",", "").Replace(s)

	start := strings.IndexFunc(s, isNumberRune)
	if start < 0 {
		return 0
	}
	if start > 0 && s[start-1] == '-' {
		return 0
	}

	end := start
	for end < len(s) && isNumberRune(rune(s[end])) {
		end++
	}

	f, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0
	}

	rest := strings.TrimSpace(s[end:])
	if strings.HasPrefix(rest, "k") {
		f *= 1000
	}
	return f
}

func isNumberRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.'
}

func stringList(v any) []string {
	var items []string

	switch t := v.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(t, ";")
	case []string:
		items = t
	case []any:
		for _, item := range t {
			if item == nil {
				continue
			}
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = []string{fmt.Sprint(v)}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := flatten(t[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "; ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
