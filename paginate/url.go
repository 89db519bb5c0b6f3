package paginate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// urlStrategy drives pagination by rewriting a page-number token in the
// address. It recognises two shapes: a numeric path segment after a page
// token (/page/2/) and a query parameter (?page=2). Path-segment patterns
// are checked first: the absence of a path match does not imply the absence
// of a query match, so the order is a real precedence rule, not an
// optimisation.
type urlStrategy struct {
	path  []*regexp.Regexp
	query []*regexp.Regexp
}

func newURLStrategy(cfg Config) (*urlStrategy, error) {
	s := &urlStrategy{}
	for _, p := range cfg.URLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: url pattern %q: %v", ErrConfig, p, err)
		}
		if pathPattern(p) {
			s.path = append(s.path, re)
		} else {
			s.query = append(s.query, re)
		}
	}
	return s, nil
}

func (s *urlStrategy) Name() string { return StrategyURL }

// Assess returns zero confidence when no configured pattern matches the
// current URL. This variant never guesses a shape it did not detect.
func (s *urlStrategy) Assess(ctx context.Context, page Page) Assessment {
	url := page.CurrentURL()
	if re := s.match(s.path, url); re != nil {
		return Assessment{Confidence: 0.95, Reason: "path pattern " + re.String()}
	}
	if re := s.match(s.query, url); re != nil {
		return Assessment{Confidence: 0.9, Reason: "query pattern " + re.String()}
	}
	return Assessment{Confidence: 0, Reason: "no url pattern matches"}
}

func (s *urlStrategy) Advance(ctx context.Context, page Page) (*NextPage, error) {
	current := page.CurrentURL()
	next, err := s.nextURL(current)
	if err != nil {
		return nil, err
	}

	if err := page.Navigate(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: navigate %s: %v", ErrNavigationFailure, next, err)
	}
	resolved := page.CurrentURL()
	if resolved == current {
		return nil, fmt.Errorf("%w: url unchanged after navigating to %s", ErrNavigationFailure, next)
	}
	// Return the resolved address, not the requested one: a redirect back to
	// an earlier page must be visible to the navigator's loop detection.
	return &NextPage{URL: resolved}, nil
}

// nextURL rewrites only the matched page-number token, incremented by one,
// leaving the rest of the address untouched.
func (s *urlStrategy) nextURL(current string) (string, error) {
	re := s.match(s.path, current)
	if re == nil {
		re = s.match(s.query, current)
	}
	if re == nil {
		return "", fmt.Errorf("%w: no url pattern matches %s", ErrNoMorePages, current)
	}

	idx := re.FindStringSubmatchIndex(current)
	// idx[2]:idx[3] is group 1, the page number.
	if idx == nil || len(idx) < 4 || idx[2] < 0 {
		return "", fmt.Errorf("%w: pattern %s lost its match on %s", ErrNavigationFailure, re, current)
	}
	n, err := strconv.Atoi(current[idx[2]:idx[3]])
	if err != nil {
		return "", fmt.Errorf("%w: page token %q: %v", ErrNavigationFailure, current[idx[2]:idx[3]], err)
	}
	return current[:idx[2]] + strconv.Itoa(n+1) + current[idx[3]:], nil
}

func (s *urlStrategy) match(res []*regexp.Regexp, url string) *regexp.Regexp {
	for _, re := range res {
		if re.MatchString(url) {
			return re
		}
	}
	return nil
}
