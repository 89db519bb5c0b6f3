// Package pagewalk runs automatic pagination sessions: it detects how a site
// paginates, walks the pages, extracts listing items, and persists enough
// state to pause and resume any walk.
package pagewalk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/pagewalk/idgen"
	"github.com/hazyhaar/pagewalk/internal/browser"
	"github.com/hazyhaar/pagewalk/internal/extract"
	"github.com/hazyhaar/pagewalk/internal/fetcher"
	"github.com/hazyhaar/pagewalk/internal/store"
	"github.com/hazyhaar/pagewalk/paginate"
)

// Service owns all pagination sessions. Each session runs its own navigator
// in its own goroutine; the service is the concurrency boundary.
type Service struct {
	cfg    *Config
	logger *slog.Logger
	store  *store.Store
	fetch  *fetcher.Client
	chrome *browser.Manager
	newID  idgen.Generator

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// session is one live walk.
type session struct {
	id       string
	startURL string
	port     Port
	nav      *paginate.Navigator
	page     paginate.Page
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates the service and opens its database. nil cfg uses defaults.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	} else {
		cfg.applyDefaults()
	}
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("pagewalk: open store: %w", err)
	}

	bcfg := cfg.Browser
	bcfg.Logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		fetch:    fetcher.New(fetcher.WithUserAgent(cfg.UserAgent), fetcher.WithLogger(logger)),
		chrome:   browser.NewManager(bcfg),
		newID:    idgen.UUIDv7(),
		sessions: make(map[string]*session),
		rootCtx:  ctx,
		cancel:   cancel,
	}, nil
}

// StartSession begins a new walk from startURL and returns its session id.
// nil cfg uses the service's default pagination config. The session runs in
// the background; watch it through Status.
func (s *Service) StartSession(ctx context.Context, startURL string, cfg *paginate.Config) (string, error) {
	pcfg := s.cfg.Paginate
	if cfg != nil {
		pcfg = *cfg
	}
	pcfg.Defaults()
	if err := pcfg.Validate(); err != nil {
		return "", err
	}

	id := s.newID()
	page, port, err := s.openPort(ctx, startURL, &pcfg)
	if err != nil {
		return "", err
	}

	nav, err := paginate.NewNavigator(id, page, pcfg,
		paginate.WithCheckpointer(s.store.Checkpointer(startURL)),
		paginate.WithOnPage(s.onPage(id, pcfg.Selectors.Item)),
		paginate.WithLogger(s.logger))
	if err != nil {
		closePage(page)
		return "", err
	}

	// The session row must exist before the first page's items land, and it
	// makes Status available as soon as StartSession returns.
	if err := s.store.SaveSession(ctx, startURL, nav.State(), nav.Fingerprint()); err != nil {
		closePage(page)
		return "", err
	}

	sess := &session{id: id, startURL: startURL, port: port, nav: nav, page: page}
	if err := s.launch(sess); err != nil {
		closePage(page)
		return "", err
	}

	s.logger.Info("pagewalk: session started", "session", id, "url", startURL, "port", port)
	return id, nil
}

// openPort decides which acquisition path a walk runs on. Click and scroll
// need a real browser; URL walks stay static unless the first page turns out
// to be a script shell.
func (s *Service) openPort(ctx context.Context, startURL string, pcfg *paginate.Config) (paginate.Page, Port, error) {
	needBrowser := s.cfg.ForceBrowser ||
		pcfg.Strategy == paginate.StrategyClick ||
		pcfg.Strategy == paginate.StrategyScroll ||
		pcfg.Detection.FallbackStrategy == paginate.StrategyClick ||
		pcfg.Detection.FallbackStrategy == paginate.StrategyScroll

	if !needBrowser {
		body, _, err := s.fetch.Fetch(ctx, startURL)
		if err != nil {
			return nil, "", fmt.Errorf("pagewalk: probe %s: %w", startURL, err)
		}
		if fetcher.NeedsBrowser(body) {
			s.logger.Info("pagewalk: static fetch insufficient, escalating to browser", "url", startURL)
			needBrowser = true
		}
	}

	if needBrowser {
		if err := s.chrome.Start(s.rootCtx); err != nil {
			return nil, "", err
		}
		page, err := s.chrome.Open(ctx, startURL)
		if err != nil {
			return nil, "", err
		}
		return page, PortBrowser, nil
	}

	// A static document cannot click or scroll, so auto-detection narrows
	// to the URL strategy.
	if pcfg.Strategy == paginate.StrategyAuto {
		pcfg.Strategy = paginate.StrategyURL
	}
	page, err := s.fetch.Open(ctx, startURL)
	if err != nil {
		return nil, "", err
	}
	return page, PortStatic, nil
}

// onPage builds the extraction callback for a session.
func (s *Service) onPage(sessionID, itemSelector string) paginate.OnPage {
	ex := extract.New(itemSelector, s.logger)
	return func(ctx context.Context, v paginate.PageVisit) (int, error) {
		body, err := v.Page.HTML(ctx)
		if err != nil {
			return 0, err
		}
		items, err := ex.FromHTML(body, v.Page.CurrentURL())
		if err != nil {
			return 0, err
		}
		if err := s.store.InsertItems(ctx, sessionID, v.PageNumber, items); err != nil {
			return 0, fmt.Errorf("pagewalk: store items: %w", err)
		}
		return len(items), nil
	}
}

// launch registers the session and starts its run goroutine.
func (s *Service) launch(sess *session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(s.rootCtx)
	sess.cancel = cancel
	sess.done = make(chan struct{})
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(sess.done)

		err := sess.nav.Run(runCtx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			s.logger.Info("pagewalk: session interrupted", "session", sess.id)
		default:
			s.logger.Error("pagewalk: session failed", "session", sess.id, "error", err)
		}

		// Terminal sessions release their page and leave the map. Paused
		// sessions stay resident so Resume can pick them back up.
		st := sess.nav.State()
		if st.Status.Terminal() {
			s.remove(sess)
		}
	}()
	return nil
}

func (s *Service) remove(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	closePage(sess.page)
}

// Pause asks a running session to stop after the page in flight. The
// checkpoint stays resumable.
func (s *Service) Pause(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.nav.Pause()
	return nil
}

// Resume continues a paused session: a resident one directly, an evicted one
// from its checkpoint. The pagination strategy is re-detected against the
// live page either way.
func (s *Service) Resume(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if ok {
		select {
		case <-sess.done:
		default:
			return ErrSessionActive
		}
		if sess.nav.State().Status != paginate.StatusPaused {
			return ErrNotPaused
		}
		return s.launch(sess)
	}
	return s.resumeFromStore(ctx, id)
}

// resumeFromStore rebuilds a session from its checkpoint after a restart.
// The walk continues from the last visited page under the service's current
// config; a fingerprint drift is logged, not fatal, since re-detection
// revalidates the strategy anyway.
func (s *Service) resumeFromStore(ctx context.Context, id string) error {
	row, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if row.Status != paginate.StatusPaused {
		return fmt.Errorf("%w: status is %s", ErrNotPaused, row.Status)
	}

	pcfg := s.cfg.Paginate
	pcfg.Defaults()

	resumeURL := row.State.LastVisited()
	if resumeURL == "" {
		resumeURL = row.StartURL
	}
	page, port, err := s.openPort(ctx, resumeURL, &pcfg)
	if err != nil {
		return err
	}

	nav, err := paginate.NewNavigator(id, page, pcfg,
		paginate.WithState(row.State),
		paginate.WithCheckpointer(s.store.Checkpointer(row.StartURL)),
		paginate.WithOnPage(s.onPage(id, pcfg.Selectors.Item)),
		paginate.WithLogger(s.logger))
	if err != nil {
		closePage(page)
		return err
	}
	if row.Fingerprint != "" && row.Fingerprint != nav.Fingerprint() {
		s.logger.Warn("pagewalk: config changed since checkpoint", "session", id)
	}

	sess := &session{id: id, startURL: row.StartURL, port: port, nav: nav, page: page}
	if err := s.launch(sess); err != nil {
		closePage(page)
		return err
	}
	s.logger.Info("pagewalk: session resumed", "session", id, "page", row.CurrentPage, "port", port)
	return nil
}

// Stop halts a session's navigation immediately and evicts it. Progress is
// checkpointed as paused, so a stopped session can still be resumed later.
func (s *Service) Stop(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.cancel()
	<-sess.done
	s.remove(sess)
	return nil
}

// Status reports a session's progress from its last checkpoint.
func (s *Service) Status(ctx context.Context, id string) (*Progress, error) {
	row, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return progressFromRow(row, s.isActive(id)), nil
}

// List reports all non-archived sessions.
func (s *Service) List(ctx context.Context) ([]*Progress, error) {
	rows, err := s.store.ListSessions(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]*Progress, 0, len(rows))
	for _, row := range rows {
		out = append(out, progressFromRow(row, s.isActive(row.ID)))
	}
	return out, nil
}

// Items returns a session's extracted items in crawl order.
func (s *Service) Items(ctx context.Context, id string) ([]store.StoredItem, error) {
	if _, err := s.Status(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, id)
}

// Archive hides a finished session from listings. Active sessions refuse.
func (s *Service) Archive(ctx context.Context, id string) error {
	if s.isActive(id) {
		return ErrSessionActive
	}
	err := s.store.ArchiveSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Wait blocks until the session leaves the running state: pause, completion,
// or failure.
func (s *Service) Wait(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		<-sess.done
	}
}

func (s *Service) isActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	select {
	case <-sess.done:
		return false
	default:
		return true
	}
}

// Close stops every session, the browser, and the store.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	for id, sess := range s.sessions {
		closePage(sess.page)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if err := s.chrome.Close(); err != nil {
		s.logger.Warn("pagewalk: browser close", "error", err)
	}
	return s.store.Close()
}

func closePage(p paginate.Page) {
	if c, ok := p.(interface{ Close() error }); ok {
		c.Close()
	}
}
