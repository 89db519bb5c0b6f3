package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/pagewalk/paginate"
)

// Page adapts a Rod page to the navigation surface the pagination engine
// drives. One Page belongs to one session; Rod calls are not serialised here.
type Page struct {
	page    *rod.Page
	timeout time.Duration
	logger  *slog.Logger
	lastURL string
}

// CurrentURL returns the page's address. Rod failures fall back to the last
// known address rather than an empty string, which would corrupt the visited
// set.
func (p *Page) CurrentURL() string {
	info, err := p.page.Info()
	if err != nil {
		return p.lastURL
	}
	p.lastURL = info.URL
	return info.URL
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("%w: navigate %s: %v", paginate.ErrNavigationFailure, url, err)
	}
	if err := p.page.Context(navCtx).WaitLoad(); err != nil {
		p.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	p.CurrentURL() // refresh the cached address
	return nil
}

// Query resolves a CSS selector against the live DOM.
func (p *Page) Query(ctx context.Context, selector string) ([]paginate.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	out := make([]paginate.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out, nil
}

// ScrollBy scrolls the window vertically by pixels.
func (p *Page) ScrollBy(ctx context.Context, pixels int) error {
	_, err := p.page.Context(ctx).Eval(`(y) => window.scrollBy(0, y)`, pixels)
	if err != nil {
		return fmt.Errorf("%w: scroll: %v", paginate.ErrNavigationFailure, err)
	}
	return nil
}

// WaitUntil polls pred until it is true or timeout elapses.
func (p *Page) WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if pred() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// HTML serialises the live DOM as outer HTML.
func (p *Page) HTML(ctx context.Context) ([]byte, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the underlying tab.
func (p *Page) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}

// element wraps a Rod element. Handles go stale when the DOM re-renders;
// those failures map to the engine's stale-element error so the retry loop
// re-queries instead of giving up.
type element struct {
	el *rod.Element
}

func (e *element) Click(ctx context.Context) error {
	err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		return fmt.Errorf("%w: click: %v", paginate.ErrStaleElement, err)
	}
	return nil
}

func (e *element) Text() string {
	txt, err := e.el.Text()
	if err != nil {
		return ""
	}
	return txt
}

func (e *element) Attribute(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *element) Visible() bool {
	v, err := e.el.Visible()
	return err == nil && v
}
