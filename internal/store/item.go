package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hazyhaar/pagewalk/dbopen"
	"github.com/hazyhaar/pagewalk/internal/extract"
)

// InsertItems stores one page's extracted items in a single transaction.
func (s *Store) InsertItems(ctx context.Context, sessionID string, pageNumber int, items []extract.Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO items (id, session_id, page_number, item_index, title, link, text, markdown, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.ExecContext(ctx,
				s.newID(), sessionID, pageNumber, it.Index,
				it.Title, it.Link, it.Text, it.Markdown, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// StoredItem is an extracted item with its position in the crawl.
type StoredItem struct {
	ID         string
	PageNumber int
	extract.Item
}

// ListItems returns a session's items in crawl order.
func (s *Store) ListItems(ctx context.Context, sessionID string) ([]StoredItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, page_number, item_index, title, link, text, markdown
		FROM items WHERE session_id = ?
		ORDER BY page_number, item_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredItem
	for rows.Next() {
		var it StoredItem
		if err := rows.Scan(&it.ID, &it.PageNumber, &it.Index,
			&it.Title, &it.Link, &it.Text, &it.Markdown); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CountItems returns the number of stored items for a session.
func (s *Store) CountItems(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
