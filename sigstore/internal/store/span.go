package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Span is a single unit of work in a distributed trace. Optional string
// fields use "" for absent; the three payload columns keep the original
// structured data verbatim for forward compatibility.
type Span struct {
	SpanID        string          `json:"span_id"`
	TraceID       string          `json:"trace_id"`
	ParentSpanID  string          `json:"parent_span_id,omitempty"`
	StartTimeNS   int64           `json:"start_time_ns"`
	EndTimeNS     int64           `json:"end_time_ns"`
	SpanName      string          `json:"span_name"`
	SpanKind      string          `json:"span_kind,omitempty"`
	StatusCode    string          `json:"status_code,omitempty"`
	ServiceName   string          `json:"service_name,omitempty"`
	HTTPMethod    string          `json:"http_method,omitempty"`
	HTTPRoute     string          `json:"http_route,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Attributes    json.RawMessage `json:"attributes"`
	Resource      json.RawMessage `json:"resource"`
	RawSpan       json.RawMessage `json:"raw_span"`
}

const spanColumns = `span_id, trace_id, parent_span_id, start_time_ns, end_time_ns,
	span_name, span_kind, status_code, service_name,
	http_method, http_route, correlation_id,
	attributes, resource, raw_span`

// UpsertSpan inserts a span or fully replaces the existing row with the same
// span_id. Replace, not merge: late-arriving enrichment must carry the whole
// record.
func (s *Store) UpsertSpan(ctx context.Context, span *Span) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO spans (`+spanColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(span_id) DO UPDATE SET
			trace_id = excluded.trace_id,
			parent_span_id = excluded.parent_span_id,
			start_time_ns = excluded.start_time_ns,
			end_time_ns = excluded.end_time_ns,
			span_name = excluded.span_name,
			span_kind = excluded.span_kind,
			status_code = excluded.status_code,
			service_name = excluded.service_name,
			http_method = excluded.http_method,
			http_route = excluded.http_route,
			correlation_id = excluded.correlation_id,
			attributes = excluded.attributes,
			resource = excluded.resource,
			raw_span = excluded.raw_span`,
		span.SpanID, span.TraceID, nullStr(span.ParentSpanID),
		span.StartTimeNS, span.EndTimeNS,
		span.SpanName, nullStr(span.SpanKind), nullStr(span.StatusCode),
		nullStr(span.ServiceName), nullStr(span.HTTPMethod), nullStr(span.HTTPRoute),
		nullStr(span.CorrelationID),
		jsonText(span.Attributes), jsonText(span.Resource), jsonText(span.RawSpan),
	)
	if err != nil {
		return fmt.Errorf("store: upsert span %s: %w", span.SpanID, err)
	}
	return nil
}

// GetSpan retrieves a span by ID. Returns (nil, nil) when absent.
func (s *Store) GetSpan(ctx context.Context, spanID string) (*Span, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+spanColumns+` FROM spans WHERE span_id = ?`, spanID)
	span, err := scanSpan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get span %s: %w", spanID, err)
	}
	return span, nil
}

// ListSpansByTrace returns all spans of a trace ordered by start time.
func (s *Store) ListSpansByTrace(ctx context.Context, traceID string) ([]*Span, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+spanColumns+` FROM spans WHERE trace_id = ? ORDER BY start_time_ns ASC`,
		traceID)
	if err != nil {
		return nil, fmt.Errorf("store: list spans by trace: %w", err)
	}
	defer rows.Close()
	return scanSpans(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpan(r rowScanner) (*Span, error) {
	var (
		span                          Span
		parent, kind, status, service sql.NullString
		method, route, corr           sql.NullString
		attributes, resource, raw     string
	)
	err := r.Scan(
		&span.SpanID, &span.TraceID, &parent, &span.StartTimeNS, &span.EndTimeNS,
		&span.SpanName, &kind, &status, &service,
		&method, &route, &corr,
		&attributes, &resource, &raw,
	)
	if err != nil {
		return nil, err
	}
	span.ParentSpanID = strOrEmpty(parent)
	span.SpanKind = strOrEmpty(kind)
	span.StatusCode = strOrEmpty(status)
	span.ServiceName = strOrEmpty(service)
	span.HTTPMethod = strOrEmpty(method)
	span.HTTPRoute = strOrEmpty(route)
	span.CorrelationID = strOrEmpty(corr)
	span.Attributes = json.RawMessage(attributes)
	span.Resource = json.RawMessage(resource)
	span.RawSpan = json.RawMessage(raw)
	return &span, nil
}

func scanSpans(rows *sql.Rows) ([]*Span, error) {
	var out []*Span
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, span)
	}
	return out, rows.Err()
}
