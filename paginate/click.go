package paginate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
)

// clickStrategy drives pagination through an in-page "next" control. It
// assumes nothing about the address: after the click it waits for either the
// URL or the result container contents to change.
type clickStrategy struct {
	cfg Config
}

func newClickStrategy(cfg Config) *clickStrategy {
	return &clickStrategy{cfg: cfg}
}

func (s *clickStrategy) Name() string { return StrategyClick }

func (s *clickStrategy) Assess(ctx context.Context, page Page) Assessment {
	next := s.findNext(ctx, page)
	if next == nil {
		// Page-number links alone are weak evidence: they may belong to a
		// URL-driven pager.
		if nums, _ := page.Query(ctx, s.cfg.Selectors.PageNumbers); len(nums) > 0 {
			return Assessment{Confidence: 0.4, Reason: "page-number links, no next control"}
		}
		return Assessment{Confidence: 0, Reason: "no next control"}
	}
	if elementDisabled(next) {
		return Assessment{Confidence: 0.2, Reason: "next control present but disabled"}
	}
	return Assessment{Confidence: 0.9, Reason: "enabled next control"}
}

func (s *clickStrategy) Advance(ctx context.Context, page Page) (*NextPage, error) {
	next := s.findNext(ctx, page)
	if next == nil {
		return nil, fmt.Errorf("%w: next control gone", ErrNoMorePages)
	}
	if elementDisabled(next) {
		return nil, fmt.Errorf("%w: next control disabled", ErrNoMorePages)
	}

	beforeURL := page.CurrentURL()
	beforeSig := s.contentSignature(ctx, page)

	if err := next.Click(ctx); err != nil {
		return nil, fmt.Errorf("%w: click next: %v", ErrNavigationFailure, err)
	}

	changed := page.WaitUntil(ctx, func() bool {
		if page.CurrentURL() != beforeURL {
			return true
		}
		return s.contentSignature(ctx, page) != beforeSig
	}, s.cfg.Navigation.PageLoadTimeout)
	if !changed {
		return nil, fmt.Errorf("%w: page did not change within %s", ErrNavigationFailure, s.cfg.Navigation.PageLoadTimeout)
	}

	if after := page.CurrentURL(); after != beforeURL {
		return &NextPage{URL: after}, nil
	}
	// Same address, new contents: identify the page by its content signature
	// so the visited set still detects a wrap-around, even when every page
	// holds the same number of items.
	return &NextPage{Marker: fmt.Sprintf("click:%s#%s", beforeURL, s.contentSignature(ctx, page))}, nil
}

// contentSignature fingerprints the watched container's contents. Item
// elements are the fallback when the container selector matches nothing.
func (s *clickStrategy) contentSignature(ctx context.Context, page Page) string {
	els, err := page.Query(ctx, s.cfg.Selectors.Container)
	if err != nil || len(els) == 0 {
		if els, err = page.Query(ctx, s.cfg.Selectors.Item); err != nil {
			return ""
		}
	}
	h := sha256.New()
	for _, el := range els {
		io.WriteString(h, el.Text())
		io.WriteString(h, "\x1f")
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

func (s *clickStrategy) findNext(ctx context.Context, page Page) Element {
	els, err := page.Query(ctx, s.cfg.Selectors.Next)
	if err != nil || len(els) == 0 {
		return nil
	}
	for _, el := range els {
		if el.Visible() {
			return el
		}
	}
	return els[0]
}

// elementDisabled checks the common terminal markers on a pager control.
func elementDisabled(el Element) bool {
	if _, ok := el.Attribute("disabled"); ok {
		return true
	}
	if v, ok := el.Attribute("aria-disabled"); ok && v == "true" {
		return true
	}
	if cls, ok := el.Attribute("class"); ok && strings.Contains(cls, "disabled") {
		return true
	}
	return false
}

func countElements(ctx context.Context, page Page, selector string) int {
	els, err := page.Query(ctx, selector)
	if err != nil {
		return 0
	}
	return len(els)
}
