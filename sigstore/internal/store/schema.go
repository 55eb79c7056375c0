package store

// Schema contains the complete DDL for the sigcor correlation tables.
// All structured payloads are serialized JSON text columns; the expression
// indices below reach into them with json_extract for hot filter paths.
const Schema = `
-- Spans: one row per unit of work in a distributed trace
CREATE TABLE IF NOT EXISTS spans (
    span_id        TEXT PRIMARY KEY,
    trace_id       TEXT NOT NULL,
    parent_span_id TEXT,
    start_time_ns  INTEGER NOT NULL,
    end_time_ns    INTEGER NOT NULL,
    span_name      TEXT NOT NULL,
    span_kind      TEXT,
    status_code    TEXT,
    service_name   TEXT,
    http_method    TEXT,
    http_route     TEXT,
    correlation_id TEXT,
    attributes     TEXT NOT NULL,
    resource       TEXT NOT NULL,
    raw_span       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spans_trace_id ON spans(trace_id);
CREATE INDEX IF NOT EXISTS idx_spans_http_route ON spans(http_route);
CREATE INDEX IF NOT EXISTS idx_spans_status_code ON spans(status_code);
CREATE INDEX IF NOT EXISTS idx_spans_service_name ON spans(service_name);
CREATE INDEX IF NOT EXISTS idx_spans_correlation ON spans(correlation_id);
CREATE INDEX IF NOT EXISTS idx_spans_attr_status_code
    ON spans(json_extract(attributes, '$.http.status_code'));

-- DOM snapshots: raw captured trees, write-once per id (replace on conflict)
CREATE TABLE IF NOT EXISTS dom_snapshots (
    snapshot_id    TEXT PRIMARY KEY,
    trace_id       TEXT,
    correlation_id TEXT,
    captured_at_ns INTEGER NOT NULL,
    raw_dom        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dom_snapshots_trace ON dom_snapshots(trace_id);
CREATE INDEX IF NOT EXISTS idx_dom_snapshots_corr ON dom_snapshots(correlation_id);

-- DOM sheets: derived stabilized views; deleting the snapshot cascades here
CREATE TABLE IF NOT EXISTS dom_sheets (
    sheet_id            TEXT PRIMARY KEY,
    snapshot_id         TEXT NOT NULL,
    trace_id            TEXT,
    correlation_id      TEXT,
    dom_stability_score REAL,
    dom_tree            TEXT NOT NULL,
    noise_stats         TEXT,
    FOREIGN KEY (snapshot_id) REFERENCES dom_snapshots(snapshot_id)
        ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_dom_sheets_corr ON dom_sheets(correlation_id);
CREATE INDEX IF NOT EXISTS idx_dom_sheets_snapshot ON dom_sheets(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_dom_sheets_role_button
    ON dom_sheets(json_extract(dom_tree, '$.roles.button_count'));

-- HAR entries: one HTTP request/response exchange each
CREATE TABLE IF NOT EXISTS har_entries (
    entry_id       TEXT PRIMARY KEY,
    correlation_id TEXT,
    started_at_ns  INTEGER,
    method         TEXT,
    url            TEXT,
    status         INTEGER,
    request_json   TEXT,
    response_json  TEXT,
    raw_entry      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_har_entries_corr ON har_entries(correlation_id);
CREATE INDEX IF NOT EXISTS idx_har_entries_url ON har_entries(url);
CREATE INDEX IF NOT EXISTS idx_har_entries_method ON har_entries(method);
CREATE INDEX IF NOT EXISTS idx_har_entries_status ON har_entries(status);

-- Inferred JSON schemas: versions coexist, no automatic supersession
CREATE TABLE IF NOT EXISTS json_schemas (
    schema_id      TEXT PRIMARY KEY,
    endpoint_key   TEXT NOT NULL,
    version        INTEGER NOT NULL,
    inferred_at_ns INTEGER NOT NULL,
    confidence     REAL NOT NULL,
    schema_json    TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_json_schemas_endpoint_version
    ON json_schemas(endpoint_key, version);
CREATE INDEX IF NOT EXISTS idx_json_schemas_confidence ON json_schemas(confidence);

-- Content-addressed snapshots: the hash IS the identity
CREATE TABLE IF NOT EXISTS snapshots_v1 (
    snapshot_hash  TEXT PRIMARY KEY,
    created_at_ns  INTEGER NOT NULL,
    kind           TEXT NOT NULL,
    payload        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_v1_kind ON snapshots_v1(kind);
CREATE INDEX IF NOT EXISTS idx_snapshots_v1_created ON snapshots_v1(created_at_ns);

-- Cluster scores: one current (stability, novelty, drift) triple per correlation
CREATE TABLE IF NOT EXISTS cluster_scores (
    correlation_id  TEXT PRIMARY KEY,
    stability_score REAL NOT NULL,
    novelty_score   REAL NOT NULL,
    drift_score     REAL NOT NULL,
    updated_at_ns   INTEGER NOT NULL
);
`
