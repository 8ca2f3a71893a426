package filtering

import (
	"context"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/preferences"
)

type careLevelFilter struct {
	toggle
	level preferences.CareLevel
}

// NewCareLevel creates a filter that keeps communities offering the requested care level.
func NewCareLevel() Filter {
	return &careLevelFilter{}
}

func (f *careLevelFilter) Name() string { return "care_level" }

func (f *careLevelFilter) Validate(cfg *Config) error {
	f.level = preferences.CareUnknown
	if cfg != nil {
		f.level = cfg.Preferences.CareLevel
	}
	return nil
}

func (f *careLevelFilter) Apply(_ context.Context, _ Deps, t *community.Table) (*community.Table, Step, error) {
	if f.level == preferences.CareUnknown || f.level == "" {
		next, step := skip(t, "care level unknown")
		return next, step, nil
	}

	next, step := apply(t, ServiceContains(string(f.level)))
	return next, step, nil
}

func (f *careLevelFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"care_level": string(f.level)},
	}
}
