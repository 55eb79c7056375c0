// CLAUDE:SUMMARY Exports a correlation cluster as gzip-compressed JSONL for downstream analysis tooling.
package sigstore

import (
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// exportLine is one JSONL record in a cluster export. Family tags the record
// so a streaming consumer can dispatch without sniffing fields.
type exportLine struct {
	Family string `json:"family"` // "span" | "dom_sheet" | "har_entry" | "cluster_score"
	Record any    `json:"record"`
}

// ExportCluster writes everything recorded around one correlation identifier
// to w as gzip-compressed JSONL, spans first, then DOM sheets, then HAR
// entries, then the cluster score when one exists. Record ordering inside
// each family matches LoadCluster.
func (s *Store) ExportCluster(ctx context.Context, correlationID string, w io.Writer) error {
	cluster, err := s.store.LoadCluster(ctx, correlationID)
	if err != nil {
		return err
	}
	score, err := s.store.LoadClusterScore(ctx, correlationID)
	if err != nil {
		return err
	}

	gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return fmt.Errorf("sigstore: export %s: gzip: %w", correlationID, err)
	}
	enc := json.NewEncoder(gz)

	for _, span := range cluster.Spans {
		if err := enc.Encode(exportLine{Family: "span", Record: span}); err != nil {
			gz.Close()
			return fmt.Errorf("sigstore: export %s: span: %w", correlationID, err)
		}
	}
	for _, sheet := range cluster.DOMSheets {
		if err := enc.Encode(exportLine{Family: "dom_sheet", Record: sheet}); err != nil {
			gz.Close()
			return fmt.Errorf("sigstore: export %s: sheet: %w", correlationID, err)
		}
	}
	for _, entry := range cluster.HAREntries {
		if err := enc.Encode(exportLine{Family: "har_entry", Record: entry}); err != nil {
			gz.Close()
			return fmt.Errorf("sigstore: export %s: har: %w", correlationID, err)
		}
	}
	if score != nil {
		if err := enc.Encode(exportLine{Family: "cluster_score", Record: score}); err != nil {
			gz.Close()
			return fmt.Errorf("sigstore: export %s: score: %w", correlationID, err)
		}
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("sigstore: export %s: close: %w", correlationID, err)
	}
	s.logger.Debug("sigstore: cluster exported",
		"correlation_id", correlationID,
		"spans", len(cluster.Spans), "sheets", len(cluster.DOMSheets), "har", len(cluster.HAREntries))
	return nil
}
