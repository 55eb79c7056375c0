package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// HAREntry is one HTTP request/response exchange from an HTTP archive.
// StartedAtNS and Status are nil when the source entry did not carry them.
type HAREntry struct {
	EntryID       string          `json:"entry_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	StartedAtNS   *int64          `json:"started_at_ns,omitempty"`
	Method        string          `json:"method,omitempty"`
	URL           string          `json:"url,omitempty"`
	Status        *int64          `json:"status,omitempty"`
	RequestJSON   json.RawMessage `json:"request_json,omitempty"`
	ResponseJSON  json.RawMessage `json:"response_json,omitempty"`
	RawEntry      json.RawMessage `json:"raw_entry"`
}

// UpsertHAREntry inserts or replaces a HAR entry row.
func (s *Store) UpsertHAREntry(ctx context.Context, entry *HAREntry) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO har_entries (
			entry_id, correlation_id, started_at_ns, method,
			url, status, request_json, response_json, raw_entry
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		entry.EntryID, nullStr(entry.CorrelationID), entry.StartedAtNS,
		nullStr(entry.Method), nullStr(entry.URL), entry.Status,
		nullJSON(entry.RequestJSON), nullJSON(entry.ResponseJSON),
		jsonText(entry.RawEntry),
	)
	if err != nil {
		return fmt.Errorf("store: upsert har entry %s: %w", entry.EntryID, err)
	}
	return nil
}

// GetHAREntry retrieves an entry by ID. Returns (nil, nil) when absent.
func (s *Store) GetHAREntry(ctx context.Context, entryID string) (*HAREntry, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT entry_id, correlation_id, started_at_ns, method,
		       url, status, request_json, response_json, raw_entry
		FROM har_entries WHERE entry_id = ?`, entryID)
	entry, err := scanHAREntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get har entry %s: %w", entryID, err)
	}
	return entry, nil
}

// ListHAREntriesByURL returns entries for a URL, newest first.
func (s *Store) ListHAREntriesByURL(ctx context.Context, url string, limit int) ([]*HAREntry, error) {
	query := `
		SELECT entry_id, correlation_id, started_at_ns, method,
		       url, status, request_json, response_json, raw_entry
		FROM har_entries WHERE url = ?
		ORDER BY started_at_ns DESC`
	args := []any{url}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list har entries by url: %w", err)
	}
	defer rows.Close()
	return scanHAREntries(rows)
}

func scanHAREntry(r rowScanner) (*HAREntry, error) {
	var (
		entry            HAREntry
		corr, method     sql.NullString
		url              sql.NullString
		started, status  sql.NullInt64
		reqJSON, resJSON sql.NullString
		raw              string
	)
	err := r.Scan(&entry.EntryID, &corr, &started, &method,
		&url, &status, &reqJSON, &resJSON, &raw)
	if err != nil {
		return nil, err
	}
	entry.CorrelationID = strOrEmpty(corr)
	if started.Valid {
		entry.StartedAtNS = &started.Int64
	}
	entry.Method = strOrEmpty(method)
	entry.URL = strOrEmpty(url)
	if status.Valid {
		entry.Status = &status.Int64
	}
	entry.RequestJSON = rawOrNil(reqJSON)
	entry.ResponseJSON = rawOrNil(resJSON)
	entry.RawEntry = json.RawMessage(raw)
	return &entry, nil
}

func scanHAREntries(rows *sql.Rows) ([]*HAREntry, error) {
	var out []*HAREntry
	for rows.Next() {
		entry, err := scanHAREntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
