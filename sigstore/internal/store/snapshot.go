package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Snapshot is a content-addressed blob: the record identity IS the SHA-256
// digest of its canonical payload, so re-submitting identical content is an
// identity no-op.
type Snapshot struct {
	Hash        string          `json:"snapshot_hash"`
	CreatedAtNS int64           `json:"created_at_ns"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
}

// InsertSnapshot writes a content-addressed snapshot row, replacing any row
// with the same hash.
func (s *Store) InsertSnapshot(ctx context.Context, snap *Snapshot) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots_v1 (
			snapshot_hash, created_at_ns, kind, payload
		) VALUES (?,?,?,?)`,
		snap.Hash, snap.CreatedAtNS, snap.Kind, jsonText(snap.Payload),
	)
	if err != nil {
		return fmt.Errorf("store: insert snapshot %s: %w", snap.Hash, err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by its content hash.
// Returns (nil, nil) when absent.
func (s *Store) GetSnapshot(ctx context.Context, hash string) (*Snapshot, error) {
	var (
		snap    Snapshot
		payload string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT snapshot_hash, created_at_ns, kind, payload
		FROM snapshots_v1 WHERE snapshot_hash = ?`, hash).
		Scan(&snap.Hash, &snap.CreatedAtNS, &snap.Kind, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get snapshot %s: %w", hash, err)
	}
	snap.Payload = json.RawMessage(payload)
	return &snap, nil
}

// ListSnapshotsByKind returns snapshots of one content kind, newest first.
func (s *Store) ListSnapshotsByKind(ctx context.Context, kind string, limit int) ([]*Snapshot, error) {
	query := `
		SELECT snapshot_hash, created_at_ns, kind, payload
		FROM snapshots_v1 WHERE kind = ?
		ORDER BY created_at_ns DESC`
	args := []any{kind}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots by kind: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			payload string
		)
		if err := rows.Scan(&snap.Hash, &snap.CreatedAtNS, &snap.Kind, &payload); err != nil {
			return nil, err
		}
		snap.Payload = json.RawMessage(payload)
		out = append(out, &snap)
	}
	return out, rows.Err()
}
