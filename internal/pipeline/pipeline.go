// Package pipeline runs the matching stages in order and keeps every intermediate table.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/filtering"
	"github.com/spigell/placement-assistant/internal/geo"
	"github.com/spigell/placement-assistant/internal/logger"
	"github.com/spigell/placement-assistant/internal/preferences"
	"github.com/spigell/placement-assistant/internal/ranking"
)

// Stage names a snapshot kept by the run context.
type Stage string

const (
	StageNormalized  Stage = "normalized"
	StageFiltered    Stage = "filtered"
	StagePrioritized Stage = "prioritized"
	StageGeoRanked   Stage = "geo_ranked"
	StageOrdered     Stage = "ordered"
)

// Locator attaches distances to communities.
type Locator interface {
	ClientCoordinates(ctx context.Context, locations []string) []geo.Coordinate
	Rank(ctx context.Context, t *community.Table, clients []geo.Coordinate) *community.Table
}

// Pipeline holds what a matching run needs besides its inputs.
type Pipeline struct {
	Filters []filtering.Filter
	// Locator may be nil, in which case no distances are computed.
	Locator Locator
	Policy  ranking.Policy
	TopN    int
	Logger  *zap.Logger
}

// Context is the state of one run. Each stage adds a new snapshot and never
// touches an earlier one, so a failed run still exposes what was computed.
type Context struct {
	Preferences preferences.ClientPreferences
	Clients     []geo.Coordinate
	Reports     []filtering.Report
	// Filters describes every configured filter, including disabled ones.
	Filters     []filtering.Summary
	Result      ranking.Result
	Duration    time.Duration

	stages    []Stage
	snapshots map[Stage]*community.Table
}

func newContext(prefs preferences.ClientPreferences) *Context {
	return &Context{
		Preferences: prefs,
		snapshots:   make(map[Stage]*community.Table),
	}
}

func (c *Context) record(stage Stage, t *community.Table) {
	c.stages = append(c.stages, stage)
	c.snapshots[stage] = t
}

// Snapshot returns the table produced by stage.
func (c *Context) Snapshot(stage Stage) (*community.Table, bool) {
	t, ok := c.snapshots[stage]
	return t, ok
}

// Stages lists the completed stages in order.
func (c *Context) Stages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// Run matches prefs against the normalized table.
func (p *Pipeline) Run(ctx context.Context, prefs preferences.ClientPreferences, table *community.Table) (*Context, error) {
	started := time.Now()
	log := logger.WithFields(p.Logger)

	rc := newContext(prefs)
	rc.record(StageNormalized, table)
	log.Info("pipeline stage", logger.StageFields(string(StageNormalized), table.Len(), table.Len())...)

	filters := p.Filters
	if filters == nil {
		filters = filtering.Default()
	}

	filtered, reports, err := filtering.Run(ctx, &filtering.Config{Preferences: prefs}, filtering.Deps{Logger: log}, filters, table)
	rc.Filters = filtering.Summarize(filters, reports)
	if err != nil {
		return rc, fmt.Errorf("filtering: %w", err)
	}
	rc.Reports = reports
	rc.record(StageFiltered, filtered)
	log.Info("pipeline stage", logger.StageFields(string(StageFiltered), table.Len(), filtered.Len())...)

	if filtered.Len() == 0 {
		log.Info("no communities left after filters")
	}

	prioritized := ranking.Prioritize(filtered)
	rc.record(StagePrioritized, prioritized)

	located := prioritized
	if p.Locator != nil && prioritized.Len() > 0 {
		if !prioritized.Schema().HasPostal() {
			// Nothing to measure against, so the client locations are not looked up.
			log.Info("geographic ranking skipped", zap.String("reason", "no postal code column"))
		} else {
			rc.Clients = p.Locator.ClientCoordinates(ctx, prefs.Locations)
			if err := ctx.Err(); err != nil {
				return rc, fmt.Errorf("geographic ranking: %w", err)
			}

			located = p.Locator.Rank(ctx, prioritized, rc.Clients)
			if err := ctx.Err(); err != nil {
				return rc, fmt.Errorf("geographic ranking: %w", err)
			}
		}
	}
	rc.record(StageGeoRanked, located)

	rc.Result = ranking.Compose(located, p.Policy, p.TopN)
	rc.record(StageOrdered, rc.Result.Ranked)
	rc.Duration = time.Since(started)

	log.Info("pipeline finished",
		zap.Int("ranked", rc.Result.Ranked.Len()),
		zap.Int("shortlist", rc.Result.Shortlist.Len()),
		zap.String("policy", string(rc.Result.Policy)),
		zap.Duration("took", rc.Duration),
	)

	return rc, nil
}
