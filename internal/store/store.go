// Package store persists crawl sessions and their extracted items in SQLite.
// A checkpoint row is the unit of resumability: the engine state as JSON plus
// the config fingerprint it was produced under.
package store

import (
	"database/sql"

	"github.com/hazyhaar/pagewalk/dbopen"
	"github.com/hazyhaar/pagewalk/idgen"
)

// Store wraps the pagewalk database.
type Store struct {
	DB    *sql.DB
	newID idgen.Generator
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New creates a Store from an already-opened database connection. The caller
// is responsible for having applied the schema.
func New(db *sql.DB) *Store {
	return &Store{DB: db, newID: idgen.UUIDv7()}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
