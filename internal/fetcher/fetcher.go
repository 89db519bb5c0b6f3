// Package fetcher implements the HTTP-only acquisition path. No browser,
// no JS: a plain GET per page, parsed with goquery. It covers static sites,
// which is most of the URL-pattern pagination out there; sessions that need
// clicking or scrolling escalate to the browser port.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/pagewalk/paginate"
)

const maxBodySize = 10 << 20

// Client performs HTTP GETs and opens static pages.
type Client struct {
	http   *http.Client
	ua     string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) { f.http = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Client) { f.ua = ua }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Client) { f.logger = l }
}

// New creates a Client with sensible defaults.
func New(opts ...Option) *Client {
	f := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		ua:     "Mozilla/5.0 (compatible; pagewalk/1.0)",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Open fetches startURL and returns a Page positioned on it.
func (f *Client) Open(ctx context.Context, startURL string) (*Page, error) {
	p := &Page{client: f}
	if err := p.Navigate(ctx, startURL); err != nil {
		return nil, err
	}
	return p, nil
}

// Fetch GETs a URL and returns the body along with the resolved address
// after redirects.
func (f *Client) Fetch(ctx context.Context, pageURL string) (body []byte, resolved string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("fetcher: %s: status %d", pageURL, resp.StatusCode)
	}

	// Cap the read to prevent runaway downloads.
	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: read body: %w", err)
	}

	resolved = pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		resolved = resp.Request.URL.String()
	}

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "resolved", resolved, "status", resp.StatusCode, "size", len(body))
	return body, resolved, nil
}

// Page is a static rendition of one fetched document. It satisfies the
// navigation surface the pagination engine drives, with the interactions a
// plain document cannot perform reporting clean errors instead of pretending.
type Page struct {
	client *Client
	url    string
	html   []byte
	doc    *goquery.Document
}

// CurrentURL returns the resolved address of the last successful fetch.
func (p *Page) CurrentURL() string { return p.url }

// Navigate fetches url and replaces the current document. The page's address
// becomes the post-redirect URL, not the requested one.
func (p *Page) Navigate(ctx context.Context, url string) error {
	body, resolved, err := p.client.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %v", paginate.ErrNavigationFailure, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", paginate.ErrNavigationFailure, resolved, err)
	}
	p.url = resolved
	p.html = body
	p.doc = doc
	return nil
}

// Query resolves a CSS selector against the current document.
func (p *Page) Query(_ context.Context, selector string) ([]paginate.Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("fetcher: no document loaded")
	}
	var out []paginate.Element
	p.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &element{sel: sel})
	})
	return out, nil
}

// ScrollBy is not available without a browser.
func (p *Page) ScrollBy(context.Context, int) error {
	return fmt.Errorf("%w: scrolling requires a browser", paginate.ErrNavigationFailure)
}

// WaitUntil evaluates pred immediately. A static document never changes
// after the fetch, so there is nothing to wait for.
func (p *Page) WaitUntil(_ context.Context, pred func() bool, _ time.Duration) bool {
	return pred()
}

// HTML returns the raw body of the current document.
func (p *Page) HTML(context.Context) ([]byte, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("fetcher: no document loaded")
	}
	return p.html, nil
}

// element wraps a goquery selection.
type element struct {
	sel *goquery.Selection
}

// Click is not available without a browser.
func (e *element) Click(context.Context) error {
	return fmt.Errorf("%w: clicking requires a browser", paginate.ErrStaleElement)
}

func (e *element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *element) Attribute(name string) (string, bool) {
	return e.sel.Attr(name)
}

// Visible approximates visibility from static markup: hidden attribute or an
// inline display:none both count as invisible.
func (e *element) Visible() bool {
	if _, hidden := e.sel.Attr("hidden"); hidden {
		return false
	}
	if style, ok := e.sel.Attr("style"); ok {
		s := strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(s, "display:none") || strings.Contains(s, "visibility:hidden") {
			return false
		}
	}
	return true
}
