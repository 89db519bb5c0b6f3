package paginate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Checkpointer persists session state. The navigator writes a checkpoint
// after every completed page and on pause and terminal transitions; a failed
// write never discards in-memory progress.
type Checkpointer interface {
	Save(ctx context.Context, state *State, fingerprint string) error
}

// PageVisit is what the navigator yields to the extraction collaborator for
// each successfully reached page.
type PageVisit struct {
	PageNumber int
	Identity   string // resolved URL, or a post-navigation marker
	Page       Page
}

// OnPage is the extraction callback. Its return value is the number of
// records extracted on that page, reported back into ItemsFound. An error
// from the callback is logged but does not stop navigation.
type OnPage func(ctx context.Context, visit PageVisit) (int, error)

// Navigator runs the pagination control loop for one session. It exclusively
// owns its Page and State; concurrent sessions each get their own Navigator.
type Navigator struct {
	page     Page
	cfg      Config
	state    *State
	detector *Detector
	strategy Strategy
	ckpt     Checkpointer
	onPage   OnPage
	logger   *slog.Logger

	fingerprint  string
	pauseRequest atomic.Bool
	fallbackUsed map[int]bool // pages where the one-time fallback was spent
}

// NavigatorOption customises a Navigator.
type NavigatorOption func(*Navigator)

// WithState resumes from a previously checkpointed state instead of starting
// a fresh session.
func WithState(st *State) NavigatorOption {
	return func(n *Navigator) { n.state = st }
}

// WithCheckpointer enables state persistence.
func WithCheckpointer(c Checkpointer) NavigatorOption {
	return func(n *Navigator) { n.ckpt = c }
}

// WithOnPage sets the extraction callback.
func WithOnPage(fn OnPage) NavigatorOption {
	return func(n *Navigator) { n.onPage = fn }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) NavigatorOption {
	return func(n *Navigator) { n.logger = l }
}

// NewNavigator validates cfg and builds the control loop for one session.
// Configuration problems surface here, never mid-loop.
func NewNavigator(sessionID string, page Page, cfg Config, opts ...NavigatorOption) (*Navigator, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Navigator{
		page:         page,
		cfg:          cfg,
		fingerprint:  cfg.Fingerprint(),
		fallbackUsed: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	if n.state == nil {
		n.state = NewState(sessionID)
	}
	n.detector = NewDetector(cfg, n.logger)
	return n, nil
}

// State returns the session state. Read it only while Run is not executing,
// or from the OnPage callback.
func (n *Navigator) State() *State { return n.state }

// Fingerprint returns the hash of the configuration this navigator runs with.
func (n *Navigator) Fingerprint() string { return n.fingerprint }

// Pause requests a cooperative pause. Navigation halts before the next
// advance, never mid-navigation; Run then returns with status Paused.
func (n *Navigator) Pause() { n.pauseRequest.Store(true) }

// Run drives the session until a terminal status, a pause, or context
// cancellation. Calling Run again on a paused navigator resumes it; the
// strategy is re-detected against the live page rather than trusted from
// before the pause, because the prior DOM state may be gone.
func (n *Navigator) Run(ctx context.Context) error {
	st := n.state

	switch st.Status {
	case StatusPaused:
		if err := st.Transition(StatusRunning); err != nil {
			return err
		}
		n.strategy = nil // re-detect on resume
		n.pauseRequest.Store(false)
		n.logger.Info("navigator: resumed", "session", st.SessionID, "page", st.CurrentPage)
	case StatusRunning:
	default:
		return fmt.Errorf("%w: session is %s", ErrInvalidTransition, st.Status)
	}

	// A fresh session yields its starting page before any navigation, so
	// page 1 is extracted and recorded like every later page. Resumed
	// sessions skip this: pages below CurrentPage were already yielded.
	if len(st.VisitedURLs) == 0 {
		st.MarkVisited(n.page.CurrentURL())
		n.yield(ctx, st.CurrentPage, st.LastVisited())
		n.checkpoint(ctx)
	}

	for {
		if err := ctx.Err(); err != nil {
			// Treat cancellation like a pause: persist and hand back.
			_ = st.Transition(StatusPaused)
			n.checkpoint(context.WithoutCancel(ctx))
			return err
		}
		if n.pauseRequest.Load() {
			if err := st.Transition(StatusPaused); err != nil {
				return err
			}
			n.checkpoint(ctx)
			n.logger.Info("navigator: paused", "session", st.SessionID, "page", st.CurrentPage)
			return nil
		}
		if !st.CanContinue(n.cfg.Limits.MaxPages, n.cfg.Limits.MaxItems) {
			n.logger.Info("navigator: limit reached",
				"session", st.SessionID, "page", st.CurrentPage, "items", st.ItemsFound)
			return n.complete(ctx)
		}

		if n.strategy == nil {
			if err := n.selectStrategy(ctx); err != nil {
				return n.fail(ctx, err)
			}
		}

		next, err := n.advanceWithRetry(ctx)
		if ctx.Err() != nil {
			// Cancellation mid-advance is a pause, not a session failure.
			_ = st.Transition(StatusPaused)
			n.checkpoint(context.WithoutCancel(ctx))
			return ctx.Err()
		}
		switch {
		case errors.Is(err, ErrNoMorePages):
			n.logger.Info("navigator: no more pages", "session", st.SessionID, "page", st.CurrentPage)
			return n.complete(ctx)
		case err != nil:
			return n.fail(ctx, err)
		}

		identity := next.Identity()
		if !st.MarkVisited(identity) {
			// The site wrapped around to a page we already scraped. That is
			// the end of content, not an error.
			n.logger.Info("navigator: navigation loop detected",
				"session", st.SessionID, "identity", identity)
			return n.complete(ctx)
		}

		// The navigation away from the previous page finally succeeded, so
		// its failure entry (if any) is cleared.
		st.ClearFailure(st.CurrentPage)
		st.AdvancePage()
		n.yield(ctx, st.CurrentPage, identity)
		n.checkpoint(ctx)

		if !sleepCtx(ctx, n.cfg.Navigation.WaitTime) {
			continue // loop top handles ctx.Err()
		}
	}
}

func (n *Navigator) selectStrategy(ctx context.Context) error {
	s, _, err := n.detector.Detect(ctx, n.page)
	if err == nil {
		n.strategy = s
		n.state.StrategyName = s.Name()
		n.readPageInfo(ctx)
		return nil
	}
	if !errors.Is(err, ErrNoStrategy) {
		return err
	}
	fb := n.cfg.Detection.FallbackStrategy
	if fb == "" {
		return err
	}
	// Explicit fallback is used directly, without a detection pass.
	s, serr := NewStrategy(fb, n.cfg)
	if serr != nil {
		return serr
	}
	n.logger.Warn("navigator: nothing detected, using fallback strategy",
		"session", n.state.SessionID, "strategy", fb)
	n.strategy = s
	n.state.StrategyName = fb
	n.readPageInfo(ctx)
	return nil
}

// readPageInfo records what the pager advertises about its extent. The total
// bounds the walk through CanContinue; the current-page reading is a
// diagnostic, never an override of the walk's own counter.
func (n *Navigator) readPageInfo(ctx context.Context) {
	info := n.detector.PageInfo(ctx, n.page)
	if info.TotalPages > 0 {
		n.state.SetTotalPages(info.TotalPages)
		n.logger.Info("navigator: pager extent",
			"session", n.state.SessionID, "total_pages", info.TotalPages,
			"shown_page", info.CurrentPage)
	}
}

// advanceWithRetry retries a failed advance up to RetryAttempts with linear
// backoff, then spends the one-time strategy fallback if configured, then
// gives up.
func (n *Navigator) advanceWithRetry(ctx context.Context) (*NextPage, error) {
	st := n.state
	page := st.CurrentPage

	var lastErr error
	for attempt := 1; attempt <= n.cfg.Navigation.RetryAttempts; attempt++ {
		next, err := n.strategy.Advance(ctx, n.page)
		if err == nil || errors.Is(err, ErrNoMorePages) {
			return next, err
		}

		lastErr = err
		attempts := st.RecordFailure(page, failureKind(err), err)
		n.logger.Warn("navigator: advance failed",
			"session", st.SessionID, "page", page, "strategy", n.strategy.Name(),
			"attempt", attempts, "error", err)

		if attempt < n.cfg.Navigation.RetryAttempts {
			if !sleepCtx(ctx, n.cfg.Navigation.WaitTime*time.Duration(attempt)) {
				return nil, ctx.Err()
			}
		}
	}

	fb := n.cfg.Detection.FallbackStrategy
	if fb != "" && fb != n.strategy.Name() && !n.fallbackUsed[page] {
		n.fallbackUsed[page] = true
		s, err := NewStrategy(fb, n.cfg)
		if err != nil {
			return nil, err
		}
		n.logger.Warn("navigator: switching to fallback strategy",
			"session", st.SessionID, "page", page, "from", n.strategy.Name(), "to", fb)
		n.strategy = s
		st.StrategyName = fb

		next, err := s.Advance(ctx, n.page)
		if err == nil || errors.Is(err, ErrNoMorePages) {
			return next, err
		}
		st.RecordFailure(page, failureKind(err), err)
		lastErr = err
	}

	return nil, lastErr
}

func (n *Navigator) yield(ctx context.Context, pageNum int, identity string) {
	if n.onPage == nil {
		return
	}
	items, err := n.onPage(ctx, PageVisit{PageNumber: pageNum, Identity: identity, Page: n.page})
	if err != nil {
		n.logger.Warn("navigator: extraction failed",
			"session", n.state.SessionID, "page", pageNum, "error", err)
		return
	}
	n.state.AddItems(items)
	n.logger.Info("navigator: page extracted",
		"session", n.state.SessionID, "page", pageNum, "items", items, "total", n.state.ItemsFound)
}

func (n *Navigator) complete(ctx context.Context) error {
	if err := n.state.Transition(StatusCompleted); err != nil {
		return err
	}
	n.checkpoint(ctx)
	return nil
}

func (n *Navigator) fail(ctx context.Context, cause error) error {
	// Completed pages are preserved: the caller can inspect FailedPages and
	// resume after fixing configuration or network conditions.
	if err := n.state.Transition(StatusFailed); err != nil {
		return err
	}
	n.checkpoint(ctx)
	n.logger.Error("navigator: session failed",
		"session", n.state.SessionID, "page", n.state.CurrentPage, "error", cause)
	return cause
}

func (n *Navigator) checkpoint(ctx context.Context) {
	if n.ckpt == nil {
		return
	}
	if err := n.ckpt.Save(ctx, n.state, n.fingerprint); err != nil {
		n.logger.Warn("navigator: checkpoint failed",
			"session", n.state.SessionID, "error", err)
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrStaleElement):
		return "interaction"
	case errors.Is(err, ErrNavigationFailure):
		return "navigation"
	default:
		return "unknown"
	}
}

// sleepCtx sleeps for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
