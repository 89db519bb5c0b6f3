package paginate

import (
	"context"
	"errors"
	"testing"
)

func TestScrollStrategy_Assess(t *testing.T) {
	cfg := testConfig()
	s := newScrollStrategy(cfg)
	ctx := context.Background()

	loadMore := &fakeElement{text: "Load more", visible: true}
	page := &fakePage{elements: map[string][]Element{cfg.Selectors.LoadMore: {loadMore}}}
	if a := s.Assess(ctx, page); a.Confidence != 0.8 {
		t.Errorf("load-more control: got %v, want 0.8", a.Confidence)
	}

	marker := &fakeElement{visible: true}
	page = &fakePage{elements: map[string][]Element{cfg.Selectors.InfiniteMarkers: {marker}}}
	if a := s.Assess(ctx, page); a.Confidence != 0.6 {
		t.Errorf("infinite markers: got %v, want 0.6", a.Confidence)
	}

	page = &fakePage{}
	if a := s.Assess(ctx, page); a.Confidence != 0 {
		t.Errorf("no indicators: got %v, want 0", a.Confidence)
	}
}

func TestScrollStrategy_AdvanceByScroll(t *testing.T) {
	cfg := testConfig()
	s := newScrollStrategy(cfg)

	items := itemElements(10)
	page := &fakePage{url: "https://x.test/feed"}
	page.onScroll = func(p *fakePage) { items = itemElements(20) }
	page.queryFn = func(sel string) []Element {
		if sel == cfg.Selectors.Item {
			return items
		}
		return nil
	}

	got, err := s.Advance(context.Background(), page)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got.URL != "" {
		t.Errorf("scroll navigation must not produce a URL, got %q", got.URL)
	}
	if got.Marker == "" {
		t.Error("marker should identify the post-scroll state")
	}
	if page.scrolled != cfg.Navigation.ScrollDelta {
		t.Errorf("scrolled: got %d, want %d", page.scrolled, cfg.Navigation.ScrollDelta)
	}
}

func TestScrollStrategy_AdvanceByLoadMore(t *testing.T) {
	cfg := testConfig()
	s := newScrollStrategy(cfg)

	items := itemElements(5)
	loadMore := &fakeElement{text: "Show more", visible: true}
	loadMore.clickFn = func() error {
		items = itemElements(11)
		return nil
	}
	page := &fakePage{url: "https://x.test/feed"}
	page.queryFn = func(sel string) []Element {
		switch sel {
		case cfg.Selectors.LoadMore:
			return []Element{loadMore}
		case cfg.Selectors.Item:
			return items
		}
		return nil
	}

	if _, err := s.Advance(context.Background(), page); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if loadMore.clicks != 1 {
		t.Errorf("load-more clicks: got %d, want 1", loadMore.clicks)
	}
	if page.scrolled != 0 {
		t.Errorf("should not scroll when a load-more control exists, scrolled %d", page.scrolled)
	}
}

func TestScrollStrategy_NoGrowthIsNoMorePages(t *testing.T) {
	cfg := testConfig()
	s := newScrollStrategy(cfg)

	items := itemElements(10)
	page := &fakePage{url: "https://x.test/feed"}
	page.queryFn = func(sel string) []Element {
		if sel == cfg.Selectors.Item {
			return items
		}
		return nil
	}

	_, err := s.Advance(context.Background(), page)
	if !errors.Is(err, ErrNoMorePages) {
		t.Errorf("expected ErrNoMorePages, got %v", err)
	}
}

func TestScrollStrategy_MarkersUniquePerStep(t *testing.T) {
	// Consecutive successful scrolls must produce distinct identities, or
	// the navigator would misread growth as a navigation loop.
	cfg := testConfig()
	s := newScrollStrategy(cfg)

	count := 10
	page := &fakePage{url: "https://x.test/feed"}
	page.onScroll = func(p *fakePage) { count += 10 }
	page.queryFn = func(sel string) []Element {
		if sel == cfg.Selectors.Item {
			return itemElements(count)
		}
		return nil
	}

	first, err := s.Advance(context.Background(), page)
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	second, err := s.Advance(context.Background(), page)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if first.Identity() == second.Identity() {
		t.Errorf("identities must differ: %q", first.Identity())
	}
}
