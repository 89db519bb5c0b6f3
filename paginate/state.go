package paginate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a pagination session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PageFailure records the last error seen while navigating away from a page.
// Entries are removed only when the page eventually succeeds.
type PageFailure struct {
	Kind      string `json:"kind"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

// State is the serialisable record of navigation progress for one scraping
// session. It is owned by exactly one Navigator and mutated only between
// navigation attempts; it must never be shared across sessions.
type State struct {
	SessionID    string               `json:"session_id"`
	CurrentPage  int                  `json:"current_page"` // 1-based
	TotalPages   int                  `json:"total_pages,omitempty"` // 0 when the site advertises none
	ItemsFound   int                  `json:"items_found"`
	VisitedURLs  []string             `json:"visited_urls"` // append-only
	FailedPages  map[int]*PageFailure `json:"failed_pages"`
	Status       Status               `json:"status"`
	StrategyName string               `json:"strategy_name"`
	StartedAt    time.Time            `json:"started_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewState creates the state for a fresh session, positioned on page 1.
func NewState(sessionID string) *State {
	now := time.Now().UTC()
	return &State{
		SessionID:   sessionID,
		CurrentPage: 1,
		FailedPages: make(map[int]*PageFailure),
		Status:      StatusRunning,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkVisited appends identity to the visited sequence. It returns false when
// the identity was already seen, a navigation loop the navigator treats as
// end of content.
func (s *State) MarkVisited(identity string) bool {
	for _, u := range s.VisitedURLs {
		if u == identity {
			return false
		}
	}
	s.VisitedURLs = append(s.VisitedURLs, identity)
	s.touch()
	return true
}

// AdvancePage moves to the next page. CurrentPage only ever increases by one.
func (s *State) AdvancePage() {
	s.CurrentPage++
	s.touch()
}

// AddItems adds n extracted records to the running total. Negative counts are
// ignored so the total never decreases.
func (s *State) AddItems(n int) {
	if n > 0 {
		s.ItemsFound += n
		s.touch()
	}
}

// RecordFailure increments the attempt counter for page and stores the error.
// It returns the updated attempt count.
func (s *State) RecordFailure(page int, kind string, err error) int {
	f := s.FailedPages[page]
	if f == nil {
		f = &PageFailure{}
		s.FailedPages[page] = f
	}
	f.Attempts++
	f.Kind = kind
	if err != nil {
		f.LastError = err.Error()
	}
	s.touch()
	return f.Attempts
}

// ClearFailure removes the failure entry for a page that finally succeeded.
func (s *State) ClearFailure(page int) {
	delete(s.FailedPages, page)
}

// Transition moves the session to the given status, enforcing the state
// machine: Running→{Paused,Completed,Failed}, Paused→Running.
func (s *State) Transition(to Status) error {
	ok := false
	switch s.Status {
	case StatusRunning:
		ok = to == StatusPaused || to == StatusCompleted || to == StatusFailed
	case StatusPaused:
		ok = to == StatusRunning
	}
	if !ok {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	s.touch()
	return nil
}

// CanContinue reports whether navigation may proceed under the given limits.
// A zero limit means unlimited.
func (s *State) CanContinue(maxPages, maxItems int) bool {
	if s.Status != StatusRunning {
		return false
	}
	if maxPages > 0 && s.CurrentPage >= maxPages {
		return false
	}
	if maxItems > 0 && s.ItemsFound >= maxItems {
		return false
	}
	if s.TotalPages > 0 && s.CurrentPage > s.TotalPages {
		return false
	}
	return true
}

// SetTotalPages records the last page the site advertises. A zero or smaller
// reading never shrinks an earlier one.
func (s *State) SetTotalPages(n int) {
	if n > s.TotalPages {
		s.TotalPages = n
		s.touch()
	}
}

// LastVisited returns the most recent visited identity, or "".
func (s *State) LastVisited() string {
	if len(s.VisitedURLs) == 0 {
		return ""
	}
	return s.VisitedURLs[len(s.VisitedURLs)-1]
}

func (s *State) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Summary is the derived progress view of a session: how the walk is going,
// not just where it stands.
type Summary struct {
	// SuccessRate is the fraction of attempted pages that navigated cleanly.
	SuccessRate float64 `json:"success_rate"`
	// Elapsed is the walk duration so far, frozen at the last update for
	// sessions that are no longer running.
	Elapsed time.Duration `json:"elapsed"`
	// ETA estimates the remaining time from the pace so far. Zero when the
	// site never advertised a total page count or the walk is not running.
	ETA time.Duration `json:"eta,omitempty"`
}

// Summarize computes the derived progress metrics.
func (s *State) Summarize() Summary {
	visited := len(s.VisitedURLs)
	failed := 0
	for p := range s.FailedPages {
		if p <= s.CurrentPage {
			failed++
		}
	}
	rate := 1.0
	if visited+failed > 0 {
		rate = float64(visited) / float64(visited+failed)
	}

	elapsed := s.UpdatedAt.Sub(s.StartedAt)
	if s.Status == StatusRunning {
		elapsed = time.Since(s.StartedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	var eta time.Duration
	if s.Status == StatusRunning && s.TotalPages > s.CurrentPage && visited > 0 && elapsed > 0 {
		perPage := elapsed / time.Duration(visited)
		eta = perPage * time.Duration(s.TotalPages-s.CurrentPage)
	}
	return Summary{SuccessRate: rate, Elapsed: elapsed, ETA: eta}
}

// Marshal serialises the state for checkpointing.
func (s *State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState restores a checkpointed state.
func UnmarshalState(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("paginate: decode state: %w", err)
	}
	if st.FailedPages == nil {
		st.FailedPages = make(map[int]*PageFailure)
	}
	if st.CurrentPage < 1 {
		st.CurrentPage = 1
	}
	return &st, nil
}
