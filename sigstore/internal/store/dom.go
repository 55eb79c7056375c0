package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/sigcor/dbopen"
	"github.com/hazyhaar/sigcor/stability"
)

// DOMSnapshot is a raw captured DOM tree at a point in time.
type DOMSnapshot struct {
	SnapshotID    string          `json:"snapshot_id"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CapturedAtNS  int64           `json:"captured_at_ns"`
	RawDOM        json.RawMessage `json:"raw_dom"`
}

// DOMSheet is a derived stabilized view of a snapshot. StabilityScore is the
// only field mutated after creation (by the batch recompute); nil means not
// yet scored.
type DOMSheet struct {
	SheetID        string          `json:"sheet_id"`
	SnapshotID     string          `json:"snapshot_id"`
	TraceID        string          `json:"trace_id,omitempty"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	StabilityScore *float64        `json:"dom_stability_score,omitempty"`
	DOMTree        json.RawMessage `json:"dom_tree"`
	NoiseStats     json.RawMessage `json:"noise_stats,omitempty"`
}

// UpsertDOMSnapshot inserts or replaces a snapshot row.
func (s *Store) UpsertDOMSnapshot(ctx context.Context, snap *DOMSnapshot) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO dom_snapshots (
			snapshot_id, trace_id, correlation_id, captured_at_ns, raw_dom
		) VALUES (?,?,?,?,?)`,
		snap.SnapshotID, nullStr(snap.TraceID), nullStr(snap.CorrelationID),
		snap.CapturedAtNS, jsonText(snap.RawDOM),
	)
	if err != nil {
		return fmt.Errorf("store: upsert dom snapshot %s: %w", snap.SnapshotID, err)
	}
	return nil
}

// GetDOMSnapshot retrieves a snapshot by ID. Returns (nil, nil) when absent.
func (s *Store) GetDOMSnapshot(ctx context.Context, snapshotID string) (*DOMSnapshot, error) {
	var (
		snap        DOMSnapshot
		trace, corr sql.NullString
		raw         string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT snapshot_id, trace_id, correlation_id, captured_at_ns, raw_dom
		FROM dom_snapshots WHERE snapshot_id = ?`, snapshotID).
		Scan(&snap.SnapshotID, &trace, &corr, &snap.CapturedAtNS, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get dom snapshot %s: %w", snapshotID, err)
	}
	snap.TraceID = strOrEmpty(trace)
	snap.CorrelationID = strOrEmpty(corr)
	snap.RawDOM = json.RawMessage(raw)
	return &snap, nil
}

// DeleteDOMSnapshot removes a snapshot; its derived sheets cascade away with
// it (FK ON DELETE CASCADE).
func (s *Store) DeleteDOMSnapshot(ctx context.Context, snapshotID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM dom_snapshots WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("store: delete dom snapshot %s: %w", snapshotID, err)
	}
	return nil
}

// UpsertDOMSheet inserts or replaces a derived sheet. A sheet referencing a
// nonexistent snapshot is rejected by the foreign key, never dropped silently.
func (s *Store) UpsertDOMSheet(ctx context.Context, sheet *DOMSheet) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO dom_sheets (
			sheet_id, snapshot_id, trace_id, correlation_id,
			dom_stability_score, dom_tree, noise_stats
		) VALUES (?,?,?,?,?,?,?)`,
		sheet.SheetID, sheet.SnapshotID, nullStr(sheet.TraceID), nullStr(sheet.CorrelationID),
		sheet.StabilityScore, jsonText(sheet.DOMTree), nullJSON(sheet.NoiseStats),
	)
	if err != nil {
		return fmt.Errorf("store: upsert dom sheet %s: %w", sheet.SheetID, err)
	}
	return nil
}

// GetDOMSheet retrieves a sheet by ID. Returns (nil, nil) when absent.
func (s *Store) GetDOMSheet(ctx context.Context, sheetID string) (*DOMSheet, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT sheet_id, snapshot_id, trace_id, correlation_id,
		       dom_stability_score, dom_tree, noise_stats
		FROM dom_sheets WHERE sheet_id = ?`, sheetID)
	sheet, err := scanDOMSheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get dom sheet %s: %w", sheetID, err)
	}
	return sheet, nil
}

// ListDOMSheetsBySnapshot returns all sheets derived from a snapshot.
func (s *Store) ListDOMSheetsBySnapshot(ctx context.Context, snapshotID string) ([]*DOMSheet, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT sheet_id, snapshot_id, trace_id, correlation_id,
		       dom_stability_score, dom_tree, noise_stats
		FROM dom_sheets WHERE snapshot_id = ?
		ORDER BY sheet_id`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("store: list dom sheets by snapshot: %w", err)
	}
	defer rows.Close()
	return scanDOMSheets(rows)
}

// ListDOMSheetsByCorrelation returns sheets for a correlation identifier,
// best scores first. An empty correlation id yields an empty list.
func (s *Store) ListDOMSheetsByCorrelation(ctx context.Context, correlationID string) ([]*DOMSheet, error) {
	if correlationID == "" {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT sheet_id, snapshot_id, trace_id, correlation_id,
		       dom_stability_score, dom_tree, noise_stats
		FROM dom_sheets WHERE correlation_id = ?
		ORDER BY dom_stability_score DESC`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("store: list dom sheets by correlation: %w", err)
	}
	defer rows.Close()
	return scanDOMSheets(rows)
}

// RecomputeStabilityScores rescans every stored sheet, recomputes its
// stability score from the stored tree, and commits all updates in a single
// transaction. A failure anywhere in the pass leaves every score untouched.
// Returns the number of sheets rescored.
func (s *Store) RecomputeStabilityScores(ctx context.Context) (int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT sheet_id, dom_tree FROM dom_sheets`)
	if err != nil {
		return 0, fmt.Errorf("store: recompute scores: %w", err)
	}

	type update struct {
		sheetID string
		score   float64
	}
	var updates []update
	for rows.Next() {
		var sheetID, treeText string
		if err := rows.Scan(&sheetID, &treeText); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: recompute scores: scan: %w", err)
		}
		var tree any
		if err := json.Unmarshal([]byte(treeText), &tree); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: recompute scores: sheet %s dom_tree: %w", sheetID, err)
		}
		updates = append(updates, update{sheetID, stability.Score(tree)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("store: recompute scores: %w", err)
	}
	rows.Close()

	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE dom_sheets SET dom_stability_score = ? WHERE sheet_id = ?`)
		if err != nil {
			return fmt.Errorf("store: recompute scores: prepare: %w", err)
		}
		defer stmt.Close()
		for _, u := range updates {
			if _, err := stmt.ExecContext(ctx, u.score, u.sheetID); err != nil {
				return fmt.Errorf("store: recompute scores: sheet %s: %w", u.sheetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(updates), nil
}

func scanDOMSheet(r rowScanner) (*DOMSheet, error) {
	var (
		sheet       DOMSheet
		trace, corr sql.NullString
		score       sql.NullFloat64
		tree        string
		noise       sql.NullString
	)
	err := r.Scan(&sheet.SheetID, &sheet.SnapshotID, &trace, &corr, &score, &tree, &noise)
	if err != nil {
		return nil, err
	}
	sheet.TraceID = strOrEmpty(trace)
	sheet.CorrelationID = strOrEmpty(corr)
	if score.Valid {
		sheet.StabilityScore = &score.Float64
	}
	sheet.DOMTree = json.RawMessage(tree)
	sheet.NoiseStats = rawOrNil(noise)
	return &sheet, nil
}

func scanDOMSheets(rows *sql.Rows) ([]*DOMSheet, error) {
	var out []*DOMSheet
	for rows.Next() {
		sheet, err := scanDOMSheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sheet)
	}
	return out, rows.Err()
}
