package pagewalk

import (
	"time"

	"github.com/hazyhaar/pagewalk/internal/store"
	"github.com/hazyhaar/pagewalk/paginate"
)

// Port names the acquisition path a session runs on.
type Port string

const (
	PortStatic  Port = "static"  // plain HTTP + parsed documents
	PortBrowser Port = "browser" // Chrome via Rod
)

// Progress is a point-in-time view of one session, read from its last
// checkpoint. TotalPages is what the site advertised, zero when it never did;
// ETA is derived from the pace so far and empty without a known total.
type Progress struct {
	SessionID    string          `json:"sessionId"`
	StartURL     string          `json:"startUrl"`
	Strategy     string          `json:"strategy,omitempty"`
	Status       paginate.Status `json:"status"`
	CurrentPage  int             `json:"currentPage"`
	TotalPages   int             `json:"totalPages,omitempty"`
	ItemsFound   int             `json:"itemsFound"`
	PagesVisited int             `json:"pagesVisited"`
	SuccessRate  float64         `json:"successRate"`
	Elapsed      string          `json:"elapsed"`
	ETA          string          `json:"eta,omitempty"`
	Active       bool            `json:"active"`
	UpdatedAt    int64           `json:"updatedAt"`
}

func progressFromRow(row *store.Session, active bool) *Progress {
	sum := row.State.Summarize()
	p := &Progress{
		SessionID:    row.ID,
		StartURL:     row.StartURL,
		Strategy:     row.Strategy,
		Status:       row.Status,
		CurrentPage:  row.CurrentPage,
		TotalPages:   row.State.TotalPages,
		ItemsFound:   row.ItemsFound,
		PagesVisited: len(row.State.VisitedURLs),
		SuccessRate:  sum.SuccessRate,
		Elapsed:      sum.Elapsed.Round(time.Second).String(),
		Active:       active,
		UpdatedAt:    row.UpdatedAt,
	}
	if sum.ETA > 0 {
		p.ETA = sum.ETA.Round(time.Second).String()
	}
	return p
}
