// Package store provides the SQLite persistence layer for sigcor:
// seven record families, replace-on-conflict upserts, and the correlation
// queries joining them by shared identifiers.
package store

import (
	"database/sql"
	"encoding/json"

	"github.com/hazyhaar/sigcor/dbopen"
)

// Store is the sigcor database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the sigcor SQLite database at path, applies the
// durability pragmas and the correlation schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// nullStr maps the empty string to SQL NULL. Optional identifier columns
// store NULL rather than '' so partial indexes and joins stay clean.
func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// nullJSON maps a nil payload to SQL NULL and anything else to its text form.
func nullJSON(v json.RawMessage) any {
	if v == nil {
		return nil
	}
	return string(v)
}

// jsonText renders a required payload column, defaulting to the empty object.
func jsonText(v json.RawMessage) string {
	if v == nil {
		return "{}"
	}
	return string(v)
}

func strOrEmpty(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}

func rawOrNil(v sql.NullString) json.RawMessage {
	if v.Valid {
		return json.RawMessage(v.String)
	}
	return nil
}
