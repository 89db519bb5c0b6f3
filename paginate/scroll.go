package paginate

import (
	"context"
	"fmt"
)

// scrollStrategy drives pagination by triggering a "load more" control or by
// scrolling, then verifying that the number of matched content items grew.
// It never produces a new URL: its NextPage is a marker over the post-scroll
// container state.
type scrollStrategy struct {
	cfg Config
}

func newScrollStrategy(cfg Config) *scrollStrategy {
	return &scrollStrategy{cfg: cfg}
}

func (s *scrollStrategy) Name() string { return StrategyScroll }

func (s *scrollStrategy) Assess(ctx context.Context, page Page) Assessment {
	if els, _ := page.Query(ctx, s.cfg.Selectors.LoadMore); len(els) > 0 {
		return Assessment{Confidence: 0.8, Reason: "load-more control"}
	}
	if els, _ := page.Query(ctx, s.cfg.Selectors.InfiniteMarkers); len(els) > 0 {
		return Assessment{Confidence: 0.6, Reason: "infinite-scroll markers"}
	}
	return Assessment{Confidence: 0, Reason: "no scroll indicators"}
}

func (s *scrollStrategy) Advance(ctx context.Context, page Page) (*NextPage, error) {
	before := countElements(ctx, page, s.cfg.Selectors.Item)

	if loadMore := s.findLoadMore(ctx, page); loadMore != nil {
		if err := loadMore.Click(ctx); err != nil {
			return nil, fmt.Errorf("%w: click load-more: %v", ErrNavigationFailure, err)
		}
	} else if err := page.ScrollBy(ctx, s.cfg.Navigation.ScrollDelta); err != nil {
		return nil, fmt.Errorf("%w: scroll: %v", ErrNavigationFailure, err)
	}

	// Let the page settle, then wait for growth up to the load timeout.
	if !sleepCtx(ctx, s.cfg.Navigation.ScrollPause) {
		return nil, ctx.Err()
	}
	grew := page.WaitUntil(ctx, func() bool {
		return countElements(ctx, page, s.cfg.Selectors.Item) > before
	}, s.cfg.Navigation.PageLoadTimeout)
	if !grew {
		// Nothing new appeared: content ended.
		return nil, fmt.Errorf("%w: item count stayed at %d", ErrNoMorePages, before)
	}

	after := countElements(ctx, page, s.cfg.Selectors.Item)
	return &NextPage{Marker: fmt.Sprintf("scroll:%s#%d", page.CurrentURL(), after)}, nil
}

func (s *scrollStrategy) findLoadMore(ctx context.Context, page Page) Element {
	els, err := page.Query(ctx, s.cfg.Selectors.LoadMore)
	if err != nil || len(els) == 0 {
		return nil
	}
	for _, el := range els {
		if el.Visible() && !elementDisabled(el) {
			return el
		}
	}
	return nil
}
