package paginate

import (
	"context"
	"fmt"
	"time"
)

// fakePage is an in-memory Page for tests. Selectors resolve through either
// the static elements map or the queryFn hook.
type fakePage struct {
	url      string
	navigate func(p *fakePage, url string) error
	elements map[string][]Element
	queryFn  func(selector string) []Element
	scrolled int
	onScroll func(p *fakePage)
	htmlData []byte
}

func (p *fakePage) CurrentURL() string { return p.url }

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.navigate != nil {
		return p.navigate(p, url)
	}
	p.url = url
	return nil
}

func (p *fakePage) Query(_ context.Context, selector string) ([]Element, error) {
	if p.queryFn != nil {
		return p.queryFn(selector), nil
	}
	return p.elements[selector], nil
}

func (p *fakePage) ScrollBy(_ context.Context, pixels int) error {
	p.scrolled += pixels
	if p.onScroll != nil {
		p.onScroll(p)
	}
	return nil
}

func (p *fakePage) WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if pred() {
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *fakePage) HTML(_ context.Context) ([]byte, error) { return p.htmlData, nil }

// fakeElement is an in-memory Element.
type fakeElement struct {
	text    string
	attrs   map[string]string
	visible bool
	clickFn func() error
	clicks  int
}

func (e *fakeElement) Click(_ context.Context) error {
	e.clicks++
	if e.clickFn != nil {
		return e.clickFn()
	}
	return nil
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Visible() bool { return e.visible }

// testConfig returns a config with timings shrunk for tests.
func testConfig() Config {
	var cfg Config
	cfg.Defaults()
	cfg.Navigation.WaitTime = time.Millisecond
	cfg.Navigation.ScrollPause = time.Millisecond
	cfg.Navigation.PageLoadTimeout = 50 * time.Millisecond
	return cfg
}

// itemElements builds n indistinct item elements.
func itemElements(n int) []Element {
	out := make([]Element, n)
	for i := range out {
		out[i] = &fakeElement{text: fmt.Sprintf("item %d", i), visible: true}
	}
	return out
}
