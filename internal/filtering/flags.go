package filtering

import (
	"context"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/preferences"
)

type flagFilter struct {
	toggle
	name   string
	column string
	pick   func(preferences.ClientPreferences) preferences.TriState
	want   preferences.TriState
}

// NewEnhanced creates a filter that keeps enhanced communities when the client asked for one.
func NewEnhanced() Filter {
	return &flagFilter{
		name:   "enhanced",
		column: community.ColumnEnhanced,
		pick:   func(p preferences.ClientPreferences) preferences.TriState { return p.Enhanced },
	}
}

// NewEnriched creates a filter that keeps enriched communities when the client asked for one.
func NewEnriched() Filter {
	return &flagFilter{
		name:   "enriched",
		column: community.ColumnEnriched,
		pick:   func(p preferences.ClientPreferences) preferences.TriState { return p.Enriched },
	}
}

func (f *flagFilter) Name() string { return f.name }

func (f *flagFilter) Validate(cfg *Config) error {
	f.want = preferences.Unknown
	if cfg != nil {
		f.want = f.pick(cfg.Preferences)
	}
	return nil
}

func (f *flagFilter) Apply(_ context.Context, _ Deps, t *community.Table) (*community.Table, Step, error) {
	if f.want != preferences.Yes {
		next, step := skip(t, "not requested")
		return next, step, nil
	}
	if !t.Schema().Has(f.column) {
		next, step := skip(t, "column "+f.column+" not found")
		return next, step, nil
	}

	next, step := apply(t, FlagIsYes(f.column))
	return next, step, nil
}

func (f *flagFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"column": f.column, "requested": string(f.want)},
	}
}
