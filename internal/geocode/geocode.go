// Package geocode resolves free-text places and postal codes to coordinates
// through rate limited, cached calls to public lookup services.
package geocode

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/placement-assistant/internal/geo"
)

// ErrNoMatch is returned by a Searcher when the service knows nothing about the query.
var ErrNoMatch = errors.New("geocode: no match")

const (
	defaultMinInterval = time.Second
	defaultTimeout     = 10 * time.Second
)

// Place is a resolved location.
type Place struct {
	Coordinate geo.Coordinate
	Town       string
	State      string
}

// Searcher performs one lookup against an external service.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) (Place, error)
}

type cached struct {
	place Place
	ok    bool
}

// Adapter wraps a Searcher so calls are serialized, spaced by at least the
// minimum interval, cached for the adapter's lifetime and never fail.
// It is safe for concurrent use.
type Adapter struct {
	searcher Searcher
	logger   *zap.Logger
	limiter  *rate.Limiter
	timeout  time.Duration

	mu    sync.Mutex
	cache map[string]cached
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithMinInterval sets the minimum spacing between external calls.
func WithMinInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d <= 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		a.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLimiter replaces the limiter entirely.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Adapter) {
		a.limiter = l
	}
}

// WithTimeout bounds a single external call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// NewAdapter creates an Adapter around s.
func NewAdapter(s Searcher, opts ...Option) *Adapter {
	a := &Adapter{
		searcher: s,
		logger:   zap.NewNop(),
		limiter:  rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		timeout:  defaultTimeout,
		cache:    make(map[string]cached),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Resolve returns the coordinate for text, or false when it cannot be found.
func (a *Adapter) Resolve(ctx context.Context, text string) (geo.Coordinate, bool) {
	p, ok := a.ResolvePlace(ctx, text)
	return p.Coordinate, ok
}

// ResolvePostal looks up a postal code.
func (a *Adapter) ResolvePostal(ctx context.Context, postal string) (Place, bool) {
	return a.ResolvePlace(ctx, postal)
}

// ResolvePlace returns the place for text. Lookup failures, timeouts and
// misses all report false; each distinct text is sent upstream at most once.
func (a *Adapter) ResolvePlace(ctx context.Context, text string) (Place, bool) {
	key := normalize(text)
	if key == "" {
		return Place{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if hit, ok := a.cache[key]; ok {
		return hit.place, hit.ok
	}

	log := a.logger.With(zap.String("service", a.searcher.Name()), zap.String("query", text))

	if err := a.limiter.Wait(ctx); err != nil {
		log.Debug("geocode wait aborted", zap.Error(err))
		return Place{}, false
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	place, err := a.searcher.Search(callCtx, strings.TrimSpace(text))
	switch {
	case err == nil && place.Coordinate.Valid():
		log.Debug("geocode resolved", zap.Stringer("coordinate", place.Coordinate))
		a.cache[key] = cached{place: place, ok: true}
		return place, true
	case ctx.Err() != nil:
		// the run is being abandoned; a later run may succeed
		return Place{}, false
	case err == nil, errors.Is(err, ErrNoMatch):
		log.Debug("geocode no match")
	default:
		log.Warn("geocode lookup failed", zap.Error(err))
	}

	a.cache[key] = cached{}
	return Place{}, false
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
