package paginate

import (
	"context"
	"errors"
	"testing"
)

func TestDetector_ConfidenceBeatsPriority(t *testing.T) {
	// URL strategy assesses 0.0 (no matching pattern) while the click
	// strategy finds an enabled next control at 0.9. Click must win even
	// though URL outranks it: priority only breaks ties.
	cfg := testConfig()
	next := &fakeElement{text: "Next", visible: true}
	page := &fakePage{
		url:      "https://x.test/catalog",
		elements: map[string][]Element{cfg.Selectors.Next: {next}},
	}

	s, a, err := NewDetector(cfg, nil).Detect(context.Background(), page)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if s.Name() != StrategyClick {
		t.Errorf("strategy: got %s, want click", s.Name())
	}
	if a.Confidence != 0.9 {
		t.Errorf("confidence: got %v, want 0.9", a.Confidence)
	}
}

func TestDetector_URLPreferredOnMatch(t *testing.T) {
	// A matching URL pattern outranks the click strategy on confidence
	// (0.95 vs 0.9), matching the preference for idempotent navigation.
	cfg := testConfig()
	next := &fakeElement{text: "Next", visible: true}
	page := &fakePage{
		url:      "https://x.test/shop/page/1/",
		elements: map[string][]Element{cfg.Selectors.Next: {next}},
	}

	s, _, err := NewDetector(cfg, nil).Detect(context.Background(), page)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if s.Name() != StrategyURL {
		t.Errorf("strategy: got %s, want url", s.Name())
	}
}

func TestDetector_NothingDetected(t *testing.T) {
	cfg := testConfig()
	page := &fakePage{url: "https://x.test/about"}

	_, _, err := NewDetector(cfg, nil).Detect(context.Background(), page)
	if !errors.Is(err, ErrNoStrategy) {
		t.Errorf("expected ErrNoStrategy, got %v", err)
	}
}

func TestDetector_Threshold(t *testing.T) {
	// A disabled next control assesses at 0.2; raising the threshold above
	// that must reject it.
	cfg := testConfig()
	cfg.Detection.ConfidenceThreshold = 0.5
	disabled := &fakeElement{text: "Next", visible: true, attrs: map[string]string{"disabled": ""}}
	page := &fakePage{
		url:      "https://x.test/catalog",
		elements: map[string][]Element{cfg.Selectors.Next: {disabled}},
	}

	_, _, err := NewDetector(cfg, nil).Detect(context.Background(), page)
	if !errors.Is(err, ErrNoStrategy) {
		t.Errorf("expected ErrNoStrategy, got %v", err)
	}
}

func TestDetector_ExplicitStrategyHint(t *testing.T) {
	// With an explicit hint only that variant is evaluated, even when
	// another one would assess higher.
	cfg := testConfig()
	cfg.Strategy = StrategyScroll
	next := &fakeElement{text: "Next", visible: true}
	loadMore := &fakeElement{text: "More", visible: true}
	page := &fakePage{
		url: "https://x.test/shop/page/1/",
		elements: map[string][]Element{
			cfg.Selectors.Next:     {next},
			cfg.Selectors.LoadMore: {loadMore},
		},
	}

	s, _, err := NewDetector(cfg, nil).Detect(context.Background(), page)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if s.Name() != StrategyScroll {
		t.Errorf("strategy: got %s, want scroll", s.Name())
	}
}

func TestDetector_PageInfoFromMarkup(t *testing.T) {
	cfg := testConfig()
	d := NewDetector(cfg, nil)
	ctx := context.Background()

	page := &fakePage{url: "https://x.test/list"}
	page.queryFn = func(sel string) []Element {
		switch sel {
		case cfg.Selectors.PageNumbers:
			return []Element{
				&fakeElement{text: "1"},
				&fakeElement{text: "2"},
				&fakeElement{text: "9"},
				&fakeElement{text: "Next"},
			}
		case cfg.Selectors.CurrentPage:
			return []Element{&fakeElement{text: "2"}}
		}
		return nil
	}

	info := d.PageInfo(ctx, page)
	if info.TotalPages != 9 {
		t.Errorf("TotalPages: got %d, want 9", info.TotalPages)
	}
	if info.CurrentPage != 2 {
		t.Errorf("CurrentPage: got %d, want 2", info.CurrentPage)
	}
}

func TestDetector_PageInfoExplicitTotal(t *testing.T) {
	// An explicit indicator wins over the page links: data attribute first,
	// then the text's last number.
	cfg := testConfig()
	d := NewDetector(cfg, nil)
	ctx := context.Background()

	page := &fakePage{url: "https://x.test/list"}
	page.queryFn = func(sel string) []Element {
		switch sel {
		case cfg.Selectors.TotalPages:
			return []Element{&fakeElement{text: "Page 3 of 42", attrs: map[string]string{"data-total-pages": "42"}}}
		case cfg.Selectors.PageNumbers:
			return []Element{&fakeElement{text: "5"}}
		}
		return nil
	}
	if got := d.PageInfo(ctx, page).TotalPages; got != 42 {
		t.Errorf("data attribute total: got %d, want 42", got)
	}

	page.queryFn = func(sel string) []Element {
		if sel == cfg.Selectors.TotalPages {
			return []Element{&fakeElement{text: "Page 3 of 17"}}
		}
		return nil
	}
	if got := d.PageInfo(ctx, page).TotalPages; got != 17 {
		t.Errorf("text total: got %d, want 17", got)
	}
}

func TestDetector_PageInfoCurrentFromURL(t *testing.T) {
	cfg := testConfig()
	d := NewDetector(cfg, nil)

	page := &fakePage{url: "https://x.test/shop/page/7/"}
	info := d.PageInfo(context.Background(), page)
	if info.CurrentPage != 7 {
		t.Errorf("CurrentPage from url: got %d, want 7", info.CurrentPage)
	}
	if info.TotalPages != 0 {
		t.Errorf("TotalPages: got %d, want 0", info.TotalPages)
	}
}
