package paginate

import (
	"context"
	"fmt"
)

// Strategy variant names. The set is closed: every mechanism the engine knows
// is one of these, and the navigator's fallback logic handles them
// exhaustively.
const (
	StrategyAuto   = "auto"
	StrategyURL    = "url"
	StrategyClick  = "click"
	StrategyScroll = "scroll"
)

// Assessment is the transient result of asking a strategy whether it can
// handle the current page.
type Assessment struct {
	// Confidence in [0,1] that this mechanism drives the page.
	Confidence float64
	// Reason is a short diagnostic for logs.
	Reason string
}

// NextPage identifies the page produced by a successful advance. URL-driven
// navigation fills URL; click and scroll navigation fill Marker when the
// address did not change.
type NextPage struct {
	URL    string
	Marker string
}

// Identity returns the visited-set key for this page.
func (n *NextPage) Identity() string {
	if n.URL != "" {
		return n.URL
	}
	return n.Marker
}

// Strategy is one pagination mechanism. Assess must be side-effect-free with
// respect to the page beyond read-only queries; Advance performs the actual
// navigation.
type Strategy interface {
	// Name returns the variant name (url, click, scroll).
	Name() string

	// Assess inspects the page for structural evidence of this mechanism.
	Assess(ctx context.Context, page Page) Assessment

	// Advance moves to the next page. Returns ErrNoMorePages when the page
	// exposes no further content, or an error wrapping ErrNavigationFailure
	// when the expected change did not materialise in time.
	Advance(ctx context.Context, page Page) (*NextPage, error)
}

// strategyRank is the fixed tie-break order: URL navigation is preferred
// because it is idempotent and resumable; click and scroll depend on live
// DOM state.
func strategyRank(name string) int {
	switch name {
	case StrategyURL:
		return 0
	case StrategyClick:
		return 1
	case StrategyScroll:
		return 2
	}
	return 3
}

// NewStrategy builds the named variant from cfg. The config must already be
// validated.
func NewStrategy(name string, cfg Config) (Strategy, error) {
	switch name {
	case StrategyURL:
		return newURLStrategy(cfg)
	case StrategyClick:
		return newClickStrategy(cfg), nil
	case StrategyScroll:
		return newScrollStrategy(cfg), nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", ErrConfig, name)
}

// allStrategies instantiates every variant in priority order.
func allStrategies(cfg Config) ([]Strategy, error) {
	names := []string{StrategyURL, StrategyClick, StrategyScroll}
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, err := NewStrategy(n, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
