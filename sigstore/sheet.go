// CLAUDE:SUMMARY Derives stabilized DOM sheets (role counts, noise stats, stability score) from stored snapshots.
package sigstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/sigcor/stability"
)

// domTreeDoc is the reduced structural summary stored on a derived sheet.
// The roles block feeds the json_extract expression index on dom_sheets.
type domTreeDoc struct {
	Roles domRoles `json:"roles"`
	Meta  domMeta  `json:"meta"`
}

type domRoles struct {
	ButtonCount int64 `json:"button_count"`
	LinkCount   int64 `json:"link_count"`
	InputCount  int64 `json:"input_count"`
}

type domMeta struct {
	OriginTraceID       string `json:"origin_trace_id,omitempty"`
	OriginCorrelationID string `json:"origin_correlation_id,omitempty"`
}

type noiseStatsDoc struct {
	DynamicIDCount int64 `json:"dynamic_id_count"`
}

// DeriveDOMSheet walks a stored snapshot's tree once to count interactive
// roles, estimates the dynamic-marker noise, scores the result, and stores a
// new sheet. Deriving from a snapshot that does not exist is a schema
// violation.
//
// Derivation is deterministic: byte-identical snapshot input yields identical
// role counts, noise stats, and stability score on every pass.
func (s *Store) DeriveDOMSheet(ctx context.Context, snapshotID string) (*DOMSheet, error) {
	snap, err := s.store.GetDOMSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, schemaErr(fmt.Sprintf("derive sheet: unknown snapshot %s", snapshotID))
	}

	var tree any
	if err := json.Unmarshal(snap.RawDOM, &tree); err != nil {
		return nil, malformed("stored dom tree", err)
	}

	doc := domTreeDoc{
		Roles: domRoles{
			ButtonCount: stability.CountTag(tree, "button"),
			LinkCount:   stability.CountTag(tree, "a"),
			InputCount:  stability.CountTag(tree, "input"),
		},
		Meta: domMeta{
			OriginTraceID:       snap.TraceID,
			OriginCorrelationID: snap.CorrelationID,
		},
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("sigstore: marshal dom tree doc: %w", err)
	}

	noise := noiseStatsDoc{DynamicIDCount: stability.CountDynamicMarkers(tree)}
	noiseJSON, err := json.Marshal(noise)
	if err != nil {
		return nil, fmt.Errorf("sigstore: marshal noise stats: %w", err)
	}

	// The score is computed over the reduced summary, the same tree the
	// batch recompute will later rescan.
	var docTree any
	if err := json.Unmarshal(docJSON, &docTree); err != nil {
		return nil, fmt.Errorf("sigstore: reparse dom tree doc: %w", err)
	}
	score := stability.Score(docTree)

	sheet := &DOMSheet{
		SheetID:        s.newSheetID(),
		SnapshotID:     snap.SnapshotID,
		TraceID:        snap.TraceID,
		CorrelationID:  snap.CorrelationID,
		StabilityScore: &score,
		DOMTree:        docJSON,
		NoiseStats:     noiseJSON,
	}
	if err := s.store.UpsertDOMSheet(ctx, sheet); err != nil {
		return nil, err
	}
	s.logger.Debug("sigstore: dom sheet derived",
		"sheet_id", sheet.SheetID, "snapshot_id", snap.SnapshotID,
		"buttons", doc.Roles.ButtonCount, "score", score)
	return sheet, nil
}

// ListDOMSheetsBySnapshot returns every sheet derived from one snapshot.
func (s *Store) ListDOMSheetsBySnapshot(ctx context.Context, snapshotID string) ([]*DOMSheet, error) {
	return s.store.ListDOMSheetsBySnapshot(ctx, snapshotID)
}
