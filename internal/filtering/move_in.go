package filtering

import (
	"context"
	"strings"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/preferences"
)

type moveInFilter struct {
	toggle
	window preferences.MoveInWindow
}

// NewMoveIn creates a filter that keeps communities whose waitlist fits the move-in window.
func NewMoveIn() Filter {
	return &moveInFilter{}
}

func (f *moveInFilter) Name() string { return "move_in" }

func (f *moveInFilter) Validate(cfg *Config) error {
	f.window = preferences.MoveInUnknown
	if cfg != nil {
		f.window = cfg.Preferences.MoveIn
	}
	return nil
}

func (f *moveInFilter) Apply(_ context.Context, _ Deps, t *community.Table) (*community.Table, Step, error) {
	allowed := WaitlistValues(f.window)
	if allowed == nil {
		next, step := skip(t, "move-in window does not restrict waitlist")
		return next, step, nil
	}
	if !t.Schema().Has(community.ColumnWaitlist) {
		next, step := skip(t, "column "+community.ColumnWaitlist+" not found")
		return next, step, nil
	}

	next, step := apply(t, WaitlistIn(allowed...))
	return next, step, nil
}

func (f *moveInFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"window":  string(f.window),
			"allowed": strings.Join(WaitlistValues(f.window), ","),
		},
	}
}
