package paginate

import (
	"context"
	"time"
)

// Page is the page-access port consumed by the pagination engine. It is
// implemented by internal/browser (Rod-driven Chrome) and internal/fetcher
// (plain HTTP + parsed document). Selectors are opaque strings configured by
// the caller and passed through unchanged; the engine never assumes a
// particular query language.
type Page interface {
	// CurrentURL returns the resolved URL of the page currently loaded.
	CurrentURL() string

	// Navigate loads the given URL, replacing the current page.
	Navigate(ctx context.Context, url string) error

	// Query returns the elements matching selector, possibly empty.
	Query(ctx context.Context, selector string) ([]Element, error)

	// ScrollBy scrolls the viewport down by the given number of pixels.
	ScrollBy(ctx context.Context, pixels int) error

	// WaitUntil polls pred until it returns true or timeout elapses.
	// Returns false on timeout or context cancellation.
	WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) bool

	// HTML returns the current document serialised as HTML.
	HTML(ctx context.Context) ([]byte, error)
}

// Element is a handle to a single queried element.
type Element interface {
	// Click dispatches a click on the element. Returns an error wrapping
	// ErrStaleElement when the handle no longer resolves to a live node.
	Click(ctx context.Context) error

	// Text returns the visible text content of the element.
	Text() string

	// Attribute returns the value of the named attribute, and whether it
	// is present on the element.
	Attribute(name string) (string, bool)

	// Visible reports whether the element is rendered and interactable.
	Visible() bool
}
