package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/preferences"
)

// Filter represents a single filtering step applied to the community table.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, t *community.Table) (*community.Table, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
	// Skipped explains why a stage passed every row through untouched.
	Skipped string
}

// Report pairs a step result with the filter that produced it.
type Report struct {
	Name    string
	Enabled bool
	Step    Step
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	Preferences preferences.ClientPreferences
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the filter chain in its fixed order.
func Default() []Filter {
	return []Filter{
		NewCareLevel(),
		NewEnhanced(),
		NewEnriched(),
		NewMoveIn(),
		NewBudget(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) bool {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Run executes the supplied filters sequentially. The input table is never
// modified; every stage yields a new table.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, t *community.Table) (*community.Table, []Report, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	reports := make([]Report, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if !step.IsEnabled() {
			log.Info("filter disabled", zap.String("name", step.Name()))
			reports = append(reports, Report{
				Name: step.Name(),
				Step: Step{Initial: t.Len(), Left: t.Len(), Skipped: "disabled"},
			})
			continue
		}

		next, info, err := step.Apply(ctx, deps, t)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		fields := logger.StageFields(step.Name(), info.Initial, info.Left)
		fields = append(fields, zap.Int("dropped", info.Dropped))
		if info.Skipped != "" {
			fields = append(fields, zap.String("skipped", info.Skipped))
		}
		log.Info("filter step", fields...)

		reports = append(reports, Report{Name: step.Name(), Enabled: true, Step: info})
		t = next
	}

	return t, reports, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Summary joins a filter's status with the counts of its last run.
type Summary struct {
	Status
	Step Step
	// Ran is false when the chain stopped before reaching the filter.
	Ran bool
}

// Summarize describes steps in chain order, attaching the matching report when there is one.
func Summarize(steps []Filter, reports []Report) []Summary {
	byName := make(map[string]Report, len(reports))
	for _, r := range reports {
		byName[r.Name] = r
	}

	statuses := Describe(steps)
	summaries := make([]Summary, 0, len(statuses))
	for _, status := range statuses {
		r, ok := byName[status.Name]
		summaries = append(summaries, Summary{Status: status, Step: r.Step, Ran: ok})
	}
	return summaries
}

// toggle carries the enabled state shared by every filter.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// apply keeps the rows matching keep and reports the counts.
func apply(t *community.Table, keep Predicate) (*community.Table, Step) {
	initial := t.Len()
	next := t.Select(keep)
	return next, Step{Initial: initial, Dropped: initial - next.Len(), Left: next.Len()}
}

// skip passes the table through and records why.
func skip(t *community.Table, reason string) (*community.Table, Step) {
	return t, Step{Initial: t.Len(), Left: t.Len(), Skipped: reason}
}
