package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/community"
)

type budgetFilter struct {
	toggle
	max int
}

// NewBudget creates a filter that drops communities above the monthly budget.
// Communities without a readable fee are dropped as well.
func NewBudget() Filter {
	return &budgetFilter{}
}

func (f *budgetFilter) Name() string { return "budget" }

func (f *budgetFilter) Validate(cfg *Config) error {
	f.max = 0
	if cfg != nil && cfg.Preferences.HasBudget() {
		f.max = cfg.Preferences.MaxBudget
	}
	return nil
}

func (f *budgetFilter) Apply(_ context.Context, deps Deps, t *community.Table) (*community.Table, Step, error) {
	if f.max <= 0 {
		next, step := skip(t, "no budget given")
		return next, step, nil
	}

	if !t.Schema().Has(community.ColumnMonthlyFee) && deps.Logger != nil {
		deps.Logger.Warn("dataset has no fee column; every community is over budget",
			zap.String("column", community.ColumnMonthlyFee),
		)
	}

	next, step := apply(t, FeeAtMost(float64(f.max)))
	return next, step, nil
}

func (f *budgetFilter) Status() Status {
	details := map[string]string{}
	if f.max > 0 {
		details["max_budget"] = strconv.Itoa(f.max)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
