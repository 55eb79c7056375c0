package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClusterScore is the externally-computed (stability, novelty, drift) triple
// for one correlation identifier. At most one current row per correlation.
type ClusterScore struct {
	CorrelationID  string  `json:"correlation_id"`
	StabilityScore float64 `json:"stability_score"`
	NoveltyScore   float64 `json:"novelty_score"`
	DriftScore     float64 `json:"drift_score"`
	UpdatedAtNS    int64   `json:"updated_at_ns,omitempty"`
}

// Cluster is everything recorded around one correlation identifier. Any of
// the three families may legitimately be empty: signals arrive independently,
// in any order, or not at all.
type Cluster struct {
	CorrelationID string      `json:"correlation_id"`
	Spans         []*Span     `json:"spans"`
	DOMSheets     []*DOMSheet `json:"dom_sheets"`
	HAREntries    []*HAREntry `json:"har_entries"`
}

// SlowSpan pairs a span with the DOM sheets sharing its correlation id,
// best stability first.
type SlowSpan struct {
	Span      *Span       `json:"span"`
	DOMSheets []*DOMSheet `json:"dom_sheets"`
}

// UpsertClusterScore inserts or replaces the score triple for a correlation.
// An UpdatedAtNS of zero is stamped with the current time.
func (s *Store) UpsertClusterScore(ctx context.Context, score *ClusterScore) error {
	updatedAt := score.UpdatedAtNS
	if updatedAt == 0 {
		updatedAt = time.Now().UnixNano()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cluster_scores (
			correlation_id, stability_score, novelty_score,
			drift_score, updated_at_ns
		) VALUES (?,?,?,?,?)
		ON CONFLICT(correlation_id) DO UPDATE SET
			stability_score = excluded.stability_score,
			novelty_score = excluded.novelty_score,
			drift_score = excluded.drift_score,
			updated_at_ns = excluded.updated_at_ns`,
		score.CorrelationID, score.StabilityScore, score.NoveltyScore,
		score.DriftScore, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upsert cluster score %s: %w", score.CorrelationID, err)
	}
	return nil
}

// LoadClusterScore retrieves the current score triple for a correlation.
// Returns (nil, nil) when absent.
func (s *Store) LoadClusterScore(ctx context.Context, correlationID string) (*ClusterScore, error) {
	var score ClusterScore
	err := s.DB.QueryRowContext(ctx, `
		SELECT correlation_id, stability_score, novelty_score, drift_score, updated_at_ns
		FROM cluster_scores WHERE correlation_id = ?`, correlationID).
		Scan(&score.CorrelationID, &score.StabilityScore, &score.NoveltyScore,
			&score.DriftScore, &score.UpdatedAtNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load cluster score %s: %w", correlationID, err)
	}
	return &score, nil
}

// FindSlowSpansWithDOM ranks spans by duration descending, keeps the top
// limit rows at or above minDurationNS, and attaches each span's correlated
// DOM sheets. Spans without a correlation id get an empty sheet list.
func (s *Store) FindSlowSpansWithDOM(ctx context.Context, minDurationNS, limit int64) ([]*SlowSpan, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+spanColumns+`
		FROM spans
		WHERE (end_time_ns - start_time_ns) >= ?
		ORDER BY (end_time_ns - start_time_ns) DESC
		LIMIT ?`, minDurationNS, limit)
	if err != nil {
		return nil, fmt.Errorf("store: find slow spans: %w", err)
	}
	defer rows.Close()

	spans, err := scanSpans(rows)
	if err != nil {
		return nil, fmt.Errorf("store: find slow spans: %w", err)
	}

	out := make([]*SlowSpan, 0, len(spans))
	for _, span := range spans {
		sheets, err := s.ListDOMSheetsByCorrelation(ctx, span.CorrelationID)
		if err != nil {
			return nil, err
		}
		out = append(out, &SlowSpan{Span: span, DOMSheets: sheets})
	}
	return out, nil
}

// LoadCluster assembles all spans (start ascending), DOM sheets (stability
// descending) and HAR entries (start ascending) sharing one correlation id.
// Families with no rows come back as empty lists, never an error.
func (s *Store) LoadCluster(ctx context.Context, correlationID string) (*Cluster, error) {
	cluster := &Cluster{
		CorrelationID: correlationID,
		Spans:         []*Span{},
		DOMSheets:     []*DOMSheet{},
		HAREntries:    []*HAREntry{},
	}

	spanRows, err := s.DB.QueryContext(ctx, `
		SELECT `+spanColumns+`
		FROM spans WHERE correlation_id = ?
		ORDER BY start_time_ns ASC`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("store: load cluster %s: spans: %w", correlationID, err)
	}
	spans, err := scanSpans(spanRows)
	spanRows.Close()
	if err != nil {
		return nil, fmt.Errorf("store: load cluster %s: spans: %w", correlationID, err)
	}
	if spans != nil {
		cluster.Spans = spans
	}

	sheets, err := s.ListDOMSheetsByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, fmt.Errorf("store: load cluster %s: %w", correlationID, err)
	}
	if sheets != nil {
		cluster.DOMSheets = sheets
	}

	harRows, err := s.DB.QueryContext(ctx, `
		SELECT entry_id, correlation_id, started_at_ns, method,
		       url, status, request_json, response_json, raw_entry
		FROM har_entries WHERE correlation_id = ?
		ORDER BY started_at_ns ASC`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("store: load cluster %s: har: %w", correlationID, err)
	}
	entries, err := scanHAREntries(harRows)
	harRows.Close()
	if err != nil {
		return nil, fmt.Errorf("store: load cluster %s: har: %w", correlationID, err)
	}
	if entries != nil {
		cluster.HAREntries = entries
	}

	return cluster, nil
}
