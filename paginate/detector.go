package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Detector evaluates the known strategies against a page and selects the one
// with the highest confidence. Ties are broken by the fixed priority order
// url > click > scroll; priority never overrides a confidence difference.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// NewDetector creates a Detector for a validated config.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// Detect returns the selected strategy and its assessment, or ErrNoStrategy
// when no candidate clears the confidence threshold.
func (d *Detector) Detect(ctx context.Context, page Page) (Strategy, Assessment, error) {
	candidates, err := d.candidates()
	if err != nil {
		return nil, Assessment{}, err
	}

	type scored struct {
		strategy   Strategy
		assessment Assessment
	}
	results := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		a := s.Assess(ctx, page)
		d.logger.Debug("detector: assessed",
			"strategy", s.Name(), "confidence", a.Confidence, "reason", a.Reason)
		results = append(results, scored{strategy: s, assessment: a})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].assessment.Confidence != results[j].assessment.Confidence {
			return results[i].assessment.Confidence > results[j].assessment.Confidence
		}
		return strategyRank(results[i].strategy.Name()) < strategyRank(results[j].strategy.Name())
	})

	best := results[0]
	if best.assessment.Confidence < d.cfg.Detection.ConfidenceThreshold {
		return nil, best.assessment, fmt.Errorf("%w: best candidate %s at %.2f below threshold %.2f",
			ErrNoStrategy, best.strategy.Name(), best.assessment.Confidence, d.cfg.Detection.ConfidenceThreshold)
	}

	d.logger.Info("detector: selected strategy",
		"strategy", best.strategy.Name(),
		"confidence", best.assessment.Confidence,
		"reason", best.assessment.Reason)
	return best.strategy, best.assessment, nil
}

// PageInfo is the pager position a page advertises about itself: the page it
// shows and the last page it links to. Both fields are best-effort reads;
// zero means the page gave no answer.
type PageInfo struct {
	CurrentPage int
	TotalPages  int
}

// PageInfo reads position hints from the live page without navigating.
func (d *Detector) PageInfo(ctx context.Context, page Page) PageInfo {
	return PageInfo{
		CurrentPage: d.extractCurrentPage(ctx, page),
		TotalPages:  d.extractTotalPages(ctx, page),
	}
}

// extractTotalPages checks explicit total indicators first (data attributes,
// then their text), then falls back to the highest numeric page link.
func (d *Detector) extractTotalPages(ctx context.Context, page Page) int {
	els, _ := page.Query(ctx, d.cfg.Selectors.TotalPages)
	for _, el := range els {
		for _, attr := range []string{"data-total-pages", "data-last-page"} {
			if v, ok := el.Attribute(attr); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
					return n
				}
			}
		}
		if n := lastNumberIn(el.Text()); n > 0 {
			return n
		}
	}

	highest := 0
	els, _ = page.Query(ctx, d.cfg.Selectors.PageNumbers)
	for _, el := range els {
		if n, err := strconv.Atoi(strings.TrimSpace(el.Text())); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// extractCurrentPage reads the highlighted page-number element, then falls
// back to the page token in the address.
func (d *Detector) extractCurrentPage(ctx context.Context, page Page) int {
	els, _ := page.Query(ctx, d.cfg.Selectors.CurrentPage)
	for _, el := range els {
		if n, err := strconv.Atoi(strings.TrimSpace(el.Text())); err == nil && n > 0 {
			return n
		}
	}

	url := page.CurrentURL()
	for _, p := range d.cfg.URLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

var numberRe = regexp.MustCompile(`\d+`)

// lastNumberIn returns the last integer in a text like "Page 3 of 12", or 0.
func lastNumberIn(text string) int {
	nums := numberRe.FindAllString(text, -1)
	if len(nums) == 0 {
		return 0
	}
	n, err := strconv.Atoi(nums[len(nums)-1])
	if err != nil {
		return 0
	}
	return n
}

func (d *Detector) candidates() ([]Strategy, error) {
	if d.cfg.Strategy != StrategyAuto {
		s, err := NewStrategy(d.cfg.Strategy, d.cfg)
		if err != nil {
			return nil, err
		}
		return []Strategy{s}, nil
	}
	return allStrategies(d.cfg)
}
