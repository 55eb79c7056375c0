// CLAUDE:SUMMARY Main sigstore orchestrator — durable correlation store over spans, DOM captures, and HAR entries.
// Package sigstore is the telemetry correlation store: it ingests
// distributed-tracing spans, DOM snapshots, and HTTP-archive entries,
// normalizes them into typed records, persists them in a single SQLite file,
// and answers correlation queries joining the families by a shared
// correlation identifier.
//
// Signals from the three families arrive independently, out of order, or not
// at all; the correlation identifier is a plain nullable attribute, never a
// structural edge, and joins are computed lazily at query time.
//
// Usage:
//
//	s, err := sigstore.New(cfg, logger)
//	defer s.Close()
//	s.IngestOTelSpan(ctx, rawSpanJSON)
//	cluster, err := s.LoadCluster(ctx, "corr-123")
package sigstore

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/sigcor/canon"
	"github.com/hazyhaar/sigcor/dbopen"
	"github.com/hazyhaar/sigcor/idgen"
	"github.com/hazyhaar/sigcor/sigstore/internal/store"
)

// Store is the main correlation store handle. All operations are synchronous
// blocking calls; callers impose their own timeouts via ctx.
type Store struct {
	store  *store.Store
	logger *slog.Logger
	config *Config

	newSheetID    idgen.Generator
	newSnapshotID idgen.Generator
	newEntryID    idgen.Generator
}

// New opens the correlation store. Opens the SQLite database, applies the
// durability pragmas (foreign keys on, WAL) and the schema.
func New(cfg *Config, logger *slog.Logger) (*Store, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	opts := []dbopen.Option{
		dbopen.WithBusyTimeout(cfg.BusyTimeoutMS),
		dbopen.WithSynchronous(cfg.Synchronous),
	}
	if cfg.ReadOnly {
		opts = append(opts, dbopen.WithReadOnly())
	}

	s, err := store.Open(cfg.DBPath, opts...)
	if err != nil {
		return nil, err
	}

	return &Store{
		store:         s,
		logger:        logger,
		config:        cfg,
		newSheetID:    idgen.Prefixed("sheet_", idgen.Default),
		newSnapshotID: idgen.Prefixed("snap_", idgen.Default),
		newEntryID:    idgen.Prefixed("har_", idgen.Default),
	}, nil
}

// Close shuts down the store and closes the database.
func (s *Store) Close() error {
	return s.store.Close()
}

// DB returns the underlying store for direct access (testing, admin).
func (s *Store) DB() *store.Store {
	return s.store
}

// --- Upserts (full-row replace, one per record family) ---

// UpsertSpan inserts or fully replaces a span by span id.
func (s *Store) UpsertSpan(ctx context.Context, span *Span) error {
	return s.store.UpsertSpan(ctx, span)
}

// UpsertDOMSnapshot inserts or replaces a raw DOM capture.
func (s *Store) UpsertDOMSnapshot(ctx context.Context, snap *DOMSnapshot) error {
	return s.store.UpsertDOMSnapshot(ctx, snap)
}

// UpsertDOMSheet inserts or replaces a derived sheet. The referenced
// snapshot must exist.
func (s *Store) UpsertDOMSheet(ctx context.Context, sheet *DOMSheet) error {
	return s.store.UpsertDOMSheet(ctx, sheet)
}

// UpsertHAREntry inserts or replaces an HTTP-archive entry.
func (s *Store) UpsertHAREntry(ctx context.Context, entry *HAREntry) error {
	return s.store.UpsertHAREntry(ctx, entry)
}

// UpsertJSONSchema inserts or replaces an inferred endpoint schema version.
func (s *Store) UpsertJSONSchema(ctx context.Context, schema *JSONSchema) error {
	return s.store.UpsertJSONSchema(ctx, schema)
}

// UpsertClusterScore inserts or replaces the externally-computed score triple
// for a correlation identifier.
func (s *Store) UpsertClusterScore(ctx context.Context, score *ClusterScore) error {
	return s.store.UpsertClusterScore(ctx, score)
}

// PutSnapshot stores a content-addressed snapshot of payload (raw JSON text)
// under kind. The record identity is the SHA-256 digest of the canonical
// payload, so identical content deduplicates for free. A createdAtNS of zero
// is stamped with the current time.
func (s *Store) PutSnapshot(ctx context.Context, kind string, payload []byte, createdAtNS int64) (*Snapshot, error) {
	hash, err := canon.HashJSON(payload)
	if err != nil {
		return nil, malformed("snapshot payload", err)
	}
	if createdAtNS == 0 {
		createdAtNS = time.Now().UnixNano()
	}
	snap := &Snapshot{
		Hash:        hash,
		CreatedAtNS: createdAtNS,
		Kind:        kind,
		Payload:     payload,
	}
	if err := s.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	s.logger.Debug("sigstore: snapshot stored", "hash", hash, "kind", kind)
	return snap, nil
}

// --- Point reads ---

// GetSpan retrieves a span by id; (nil, nil) when absent.
func (s *Store) GetSpan(ctx context.Context, spanID string) (*Span, error) {
	return s.store.GetSpan(ctx, spanID)
}

// ListSpansByTrace returns all spans of one trace ordered by start time.
func (s *Store) ListSpansByTrace(ctx context.Context, traceID string) ([]*Span, error) {
	return s.store.ListSpansByTrace(ctx, traceID)
}

// GetDOMSnapshot retrieves a snapshot by id; (nil, nil) when absent.
func (s *Store) GetDOMSnapshot(ctx context.Context, snapshotID string) (*DOMSnapshot, error) {
	return s.store.GetDOMSnapshot(ctx, snapshotID)
}

// GetDOMSheet retrieves a sheet by id; (nil, nil) when absent.
func (s *Store) GetDOMSheet(ctx context.Context, sheetID string) (*DOMSheet, error) {
	return s.store.GetDOMSheet(ctx, sheetID)
}

// GetHAREntry retrieves an entry by id; (nil, nil) when absent.
func (s *Store) GetHAREntry(ctx context.Context, entryID string) (*HAREntry, error) {
	return s.store.GetHAREntry(ctx, entryID)
}

// ListHAREntriesByURL returns recorded entries for one URL, newest first.
func (s *Store) ListHAREntriesByURL(ctx context.Context, url string, limit int) ([]*HAREntry, error) {
	return s.store.ListHAREntriesByURL(ctx, url, limit)
}

// GetJSONSchema retrieves one schema version; (nil, nil) when absent.
func (s *Store) GetJSONSchema(ctx context.Context, endpointKey string, version int64) (*JSONSchema, error) {
	return s.store.GetJSONSchema(ctx, endpointKey, version)
}

// ListJSONSchemaVersions returns all schema versions for an endpoint key.
func (s *Store) ListJSONSchemaVersions(ctx context.Context, endpointKey string) ([]*JSONSchema, error) {
	return s.store.ListJSONSchemaVersions(ctx, endpointKey)
}

// GetSnapshot retrieves a content-addressed snapshot; (nil, nil) when absent.
func (s *Store) GetSnapshot(ctx context.Context, hash string) (*Snapshot, error) {
	return s.store.GetSnapshot(ctx, hash)
}

// ListSnapshotsByKind returns snapshots of one kind, newest first.
func (s *Store) ListSnapshotsByKind(ctx context.Context, kind string, limit int) ([]*Snapshot, error) {
	return s.store.ListSnapshotsByKind(ctx, kind, limit)
}

// LoadClusterScore retrieves the score triple; (nil, nil) when absent.
func (s *Store) LoadClusterScore(ctx context.Context, correlationID string) (*ClusterScore, error) {
	return s.store.LoadClusterScore(ctx, correlationID)
}

// --- Deletes ---

// DeleteDOMSnapshot removes a snapshot and, through the foreign key cascade,
// every sheet derived from it.
func (s *Store) DeleteDOMSnapshot(ctx context.Context, snapshotID string) error {
	return s.store.DeleteDOMSnapshot(ctx, snapshotID)
}

// --- Correlation queries ---

// FindSlowSpansWithDOM ranks spans by duration descending, keeps the top
// limit at or above minDurationNS, and attaches each span's correlated DOM
// sheets ordered by stability score descending.
func (s *Store) FindSlowSpansWithDOM(ctx context.Context, minDurationNS, limit int64) ([]*SlowSpan, error) {
	return s.store.FindSlowSpansWithDOM(ctx, minDurationNS, limit)
}

// LoadCluster assembles everything recorded around one correlation
// identifier. Families with no rows come back empty, never as an error.
func (s *Store) LoadCluster(ctx context.Context, correlationID string) (*Cluster, error) {
	return s.store.LoadCluster(ctx, correlationID)
}

// --- Scoring ---

// RecomputeDOMStabilityScores rescans every stored sheet and rewrites its
// stability score in one atomic transaction; a mid-pass failure leaves every
// score untouched. Returns the number of sheets rescored.
func (s *Store) RecomputeDOMStabilityScores(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.store.RecomputeStabilityScores(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("sigstore: stability scores recomputed", "sheets", n, "elapsed", time.Since(start))
	return n, nil
}

// BuildEndpointKey builds the logical endpoint key for schema inference from
// an HTTP method and normalized route.
func BuildEndpointKey(method, route string) string {
	return strings.ToUpper(method) + " " + route
}
