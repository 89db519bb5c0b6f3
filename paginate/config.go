package paginate

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SelectorConfig holds the per-variant element locators. All values are
// passed to the page port verbatim.
type SelectorConfig struct {
	// Next locates the "next page" control for click navigation.
	Next string `yaml:"next" json:"next"`
	// PageNumbers locates page-number links.
	PageNumbers string `yaml:"page_numbers" json:"page_numbers"`
	// Container locates the results container watched for content change.
	Container string `yaml:"container" json:"container"`
	// LoadMore locates the "load more" control for infinite scroll.
	LoadMore string `yaml:"load_more" json:"load_more"`
	// Item locates one content item; used to count progress on scroll
	// navigation and to detect container growth.
	Item string `yaml:"item" json:"item"`
	// InfiniteMarkers locates structural hints of scroll-triggered loading.
	InfiniteMarkers string `yaml:"infinite_markers" json:"infinite_markers"`
	// TotalPages locates elements advertising the pager's last page.
	TotalPages string `yaml:"total_pages" json:"total_pages"`
	// CurrentPage locates the highlighted page-number element.
	CurrentPage string `yaml:"current_page" json:"current_page"`
}

// LimitConfig bounds a session. Zero means unlimited.
type LimitConfig struct {
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	MaxItems int `yaml:"max_items" json:"max_items"`
}

// NavigationConfig holds the timing knobs for page-to-page movement.
type NavigationConfig struct {
	// WaitTime is the pause between successful page navigations.
	WaitTime time.Duration `yaml:"wait_time" json:"wait_time"`
	// RetryAttempts is how many times a failed advance is retried before
	// fallback or failure.
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// ScrollPause is the settle time after a scroll or load-more trigger.
	ScrollPause time.Duration `yaml:"scroll_pause" json:"scroll_pause"`
	// PageLoadTimeout bounds the wait for a post-navigation change.
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"`
	// ScrollDelta is the pixel distance of one scroll step.
	ScrollDelta int `yaml:"scroll_delta" json:"scroll_delta"`
}

// DetectionConfig tunes strategy selection.
type DetectionConfig struct {
	// ConfidenceThreshold is the minimum assessment confidence, in [0,1].
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	// AutoDetect re-runs detection on resume instead of trusting the
	// previously selected strategy.
	AutoDetect bool `yaml:"auto_detect" json:"auto_detect"`
	// FallbackStrategy is tried once per page after retries are exhausted,
	// and used directly when detection finds nothing.
	FallbackStrategy string `yaml:"fallback_strategy" json:"fallback_strategy"`
}

// Config is the immutable per-session pagination configuration.
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Strategy is "auto" or an explicit variant name (url, click, scroll).
	Strategy   string           `yaml:"strategy" json:"strategy"`
	Selectors  SelectorConfig   `yaml:"selectors" json:"selectors"`
	Limits     LimitConfig      `yaml:"limits" json:"limits"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
	Detection  DetectionConfig  `yaml:"detection" json:"detection"`
	// URLPatterns are regexes recognising page tokens in URLs. Patterns
	// starting with "/" match path segments and take precedence over
	// query-parameter patterns. Group 1 must capture the page number.
	URLPatterns []string `yaml:"url_patterns" json:"url_patterns"`
}

// DefaultURLPatterns cover the address shapes seen in the wild: numeric path
// segments after a page token, and the common query keys.
var DefaultURLPatterns = []string{
	`/page/(\d+)`,
	`/p/(\d+)`,
	`[?&]page=(\d+)`,
	`[?&]p=(\d+)`,
	`[?&]pg=(\d+)`,
	`[?&]pageno=(\d+)`,
}

// Defaults fills zero values in place.
func (c *Config) Defaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyAuto
	}
	if c.Selectors.Next == "" {
		c.Selectors.Next = ".pagination .next, .pagination .next-page, a[rel=next]"
	}
	if c.Selectors.PageNumbers == "" {
		c.Selectors.PageNumbers = ".pagination a, .pagination .page"
	}
	if c.Selectors.Container == "" {
		c.Selectors.Container = ".pagination, .pager, .page-navigation"
	}
	if c.Selectors.LoadMore == "" {
		c.Selectors.LoadMore = ".load-more, .load-more-btn, .show-more"
	}
	if c.Selectors.Item == "" {
		c.Selectors.Item = "article, .product, .result, li.item"
	}
	if c.Selectors.InfiniteMarkers == "" {
		c.Selectors.InfiniteMarkers = "[data-infinite-scroll], .infinite-scroll, .lazy-load"
	}
	if c.Selectors.TotalPages == "" {
		c.Selectors.TotalPages = "[data-total-pages], [data-last-page], .pagination .total, .pagination .last, .pagination .count"
	}
	if c.Selectors.CurrentPage == "" {
		c.Selectors.CurrentPage = ".pagination .current, .pagination .active, .pager .current, .pager .active, .current-page"
	}
	if c.Limits.MaxPages <= 0 {
		c.Limits.MaxPages = 100
	}
	if c.Limits.MaxItems <= 0 {
		c.Limits.MaxItems = 1000
	}
	if c.Navigation.WaitTime <= 0 {
		c.Navigation.WaitTime = 2 * time.Second
	}
	if c.Navigation.RetryAttempts <= 0 {
		c.Navigation.RetryAttempts = 3
	}
	if c.Navigation.ScrollPause <= 0 {
		c.Navigation.ScrollPause = time.Second
	}
	if c.Navigation.PageLoadTimeout <= 0 {
		c.Navigation.PageLoadTimeout = 10 * time.Second
	}
	if c.Navigation.ScrollDelta <= 0 {
		c.Navigation.ScrollDelta = 2000
	}
	if c.Detection.ConfidenceThreshold <= 0 {
		c.Detection.ConfidenceThreshold = 0.3
	}
	if len(c.URLPatterns) == 0 {
		c.URLPatterns = append([]string(nil), DefaultURLPatterns...)
	}
}

// Validate checks the configuration before any navigation begins. All
// problems wrap ErrConfig.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyAuto, StrategyURL, StrategyClick, StrategyScroll:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrConfig, c.Strategy)
	}
	if fb := c.Detection.FallbackStrategy; fb != "" {
		switch fb {
		case StrategyURL, StrategyClick, StrategyScroll:
		default:
			return fmt.Errorf("%w: unknown fallback strategy %q", ErrConfig, fb)
		}
	}
	if t := c.Detection.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("%w: confidence threshold %v outside [0,1]", ErrConfig, t)
	}
	for _, p := range c.URLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("%w: url pattern %q: %v", ErrConfig, p, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("%w: url pattern %q has no page-number group", ErrConfig, p)
		}
	}
	return nil
}

// Fingerprint returns a stable hash of the configuration, stored with each
// checkpoint to detect configuration drift on resume.
func (c *Config) Fingerprint() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// pathPattern reports whether a configured pattern targets a path segment
// rather than a query parameter.
func pathPattern(p string) bool {
	return strings.HasPrefix(p, "/")
}
