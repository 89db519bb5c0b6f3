package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/pagewalk/dbopen"
	"github.com/hazyhaar/pagewalk/paginate"
)

// ErrNotFound is returned when a session id has no row.
var ErrNotFound = errors.New("store: session not found")

// Session is one persisted crawl session.
type Session struct {
	ID          string
	StartURL    string
	Strategy    string
	Status      paginate.Status
	CurrentPage int
	ItemsFound  int
	Fingerprint string
	State       *paginate.State
	CreatedAt   int64
	UpdatedAt   int64
}

// SaveSession upserts the session row from the engine state. Called on every
// checkpoint, so a crash loses at most the page in flight.
func (s *Store) SaveSession(ctx context.Context, startURL string, st *paginate.State, fingerprint string) error {
	blob, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}
	now := time.Now().UnixMilli()

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, start_url, strategy, status, current_page,
			items_found, fingerprint, state_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				strategy = excluded.strategy,
				status = excluded.status,
				current_page = excluded.current_page,
				items_found = excluded.items_found,
				fingerprint = excluded.fingerprint,
				state_json = excluded.state_json,
				updated_at = excluded.updated_at`,
			st.SessionID, startURL, st.StrategyName, string(st.Status), st.CurrentPage,
			st.ItemsFound, fingerprint, string(blob), now, now,
		)
		return err
	})
}

// Checkpointer binds SaveSession to a start URL so it satisfies the engine's
// checkpoint interface.
func (s *Store) Checkpointer(startURL string) paginate.Checkpointer {
	return checkpointFunc(func(ctx context.Context, st *paginate.State, fp string) error {
		return s.SaveSession(ctx, startURL, st, fp)
	})
}

type checkpointFunc func(context.Context, *paginate.State, string) error

func (f checkpointFunc) Save(ctx context.Context, st *paginate.State, fp string) error {
	return f(ctx, st, fp)
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, start_url, strategy, status, current_page, items_found,
		fingerprint, state_json, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns non-archived sessions, most recently updated first.
// An empty status filter returns everything.
func (s *Store) ListSessions(ctx context.Context, status paginate.Status) ([]*Session, error) {
	q := `SELECT id, start_url, strategy, status, current_page, items_found,
		fingerprint, state_json, created_at, updated_at
		FROM sessions WHERE archived_at IS NULL`
	args := []any{}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY updated_at DESC`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ArchiveSession marks a terminal session as archived. The row and its items
// stay; archived sessions just drop out of listings.
func (s *Store) ArchiveSession(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET archived_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session and its items.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var status, blob string
	err := row.Scan(&sess.ID, &sess.StartURL, &sess.Strategy, &status,
		&sess.CurrentPage, &sess.ItemsFound, &sess.Fingerprint, &blob,
		&sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Status = paginate.Status(status)
	st, err := paginate.UnmarshalState([]byte(blob))
	if err != nil {
		return nil, fmt.Errorf("store: session %s: %w", sess.ID, err)
	}
	sess.State = st
	return &sess, nil
}
