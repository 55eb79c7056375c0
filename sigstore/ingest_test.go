package sigstore

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeOTelSpanAliases(t *testing.T) {
	// The same span shipped under alternate field spellings must normalize
	// to identical typed columns.
	native := []byte(`{
		"span_id": "s1", "trace_id": "t1",
		"start_time_unix_nano": 1736500000123456789,
		"end_time_unix_nano": 1736500000223456789,
		"name": "GET /users",
		"attributes": {"service.name": "api", "http.method": "GET", "http.route": "/users"}
	}`)
	aliased := []byte(`{
		"span_id": "s1", "trace_id": "t1",
		"start_time_ns": "1736500000123456789",
		"end_time_ns": "1736500000223456789",
		"span_name": "GET /users",
		"attributes": {"service.name": "api", "http.method": "GET", "http.target": "/users"}
	}`)

	a, err := NormalizeOTelSpan(native)
	if err != nil {
		t.Fatalf("native: %v", err)
	}
	b, err := NormalizeOTelSpan(aliased)
	if err != nil {
		t.Fatalf("aliased: %v", err)
	}

	if a.StartTimeNS != b.StartTimeNS || a.StartTimeNS != 1736500000123456789 {
		t.Errorf("start: %d vs %d", a.StartTimeNS, b.StartTimeNS)
	}
	if a.EndTimeNS != b.EndTimeNS {
		t.Errorf("end: %d vs %d", a.EndTimeNS, b.EndTimeNS)
	}
	if a.SpanName != b.SpanName || a.SpanName != "GET /users" {
		t.Errorf("name: %q vs %q", a.SpanName, b.SpanName)
	}
	if a.HTTPRoute != b.HTTPRoute || a.HTTPRoute != "/users" {
		t.Errorf("route: %q vs %q", a.HTTPRoute, b.HTTPRoute)
	}
	if a.ServiceName != "api" {
		t.Errorf("service: %q", a.ServiceName)
	}
}

func TestNormalizeOTelSpanNameFallback(t *testing.T) {
	span, err := NormalizeOTelSpan([]byte(
		`{"span_id":"s1","trace_id":"t1","start_time_unix_nano":1,"end_time_unix_nano":2}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if span.SpanName != "unknown_span" {
		t.Errorf("name: got %q, want unknown_span", span.SpanName)
	}
}

func TestNormalizeOTelSpanCorrelationProbing(t *testing.T) {
	cases := []struct {
		name  string
		attrs string
		want  string
	}{
		{"correlation_id wins", `{"correlation_id":"a","session.id":"b"}`, "a"},
		{"dotted form", `{"correlation.id":"c"}`, "c"},
		{"session fallback", `{"session.id":"d"}`, "d"},
		{"absent", `{}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := []byte(`{"span_id":"s1","trace_id":"t1","start_time_unix_nano":1,` +
				`"end_time_unix_nano":2,"attributes":` + tc.attrs + `}`)
			span, err := NormalizeOTelSpan(raw)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if span.CorrelationID != tc.want {
				t.Errorf("correlation: got %q, want %q", span.CorrelationID, tc.want)
			}
		})
	}
}

func TestNormalizeOTelSpanStatusFallback(t *testing.T) {
	withStatus, err := NormalizeOTelSpan([]byte(
		`{"span_id":"s1","trace_id":"t1","start_time_unix_nano":1,"end_time_unix_nano":2,` +
			`"status":{"code":"ERROR"},"attributes":{"http.status_code":500}}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if withStatus.StatusCode != "ERROR" {
		t.Errorf("status.code should win: got %q", withStatus.StatusCode)
	}

	fromHTTP, err := NormalizeOTelSpan([]byte(
		`{"span_id":"s1","trace_id":"t1","start_time_unix_nano":1,"end_time_unix_nano":2,` +
			`"attributes":{"http.status_code":404}}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if fromHTTP.StatusCode != "404" {
		t.Errorf("http.status_code fallback: got %q", fromHTTP.StatusCode)
	}
}

func TestIngestOTelSpanMissingFieldWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.IngestOTelSpan(ctx, []byte(
		`{"span_id":"s1","trace_id":"t1","end_time_unix_nano":2}`))
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("want ErrSchemaViolation, got %v", err)
	}

	got, err := s.GetSpan(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("rejected span was written")
	}
}

func TestIngestOTelSpanMalformed(t *testing.T) {
	s := newTestStore(t)

	_, err := s.IngestOTelSpan(context.Background(), []byte(`[1,2,3]`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("want ErrMalformedPayload, got %v", err)
	}
	_, err = s.IngestOTelSpan(context.Background(), []byte(`{broken`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("want ErrMalformedPayload, got %v", err)
	}
}

func TestIngestOTelSpanKeepsRawVerbatim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	raw := []byte(`{"span_id":"s1","trace_id":"t1","start_time_ns":"7","end_time_ns":"9","extra":{"z":1,"a":2}}`)
	if _, err := s.IngestOTelSpan(ctx, raw); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, err := s.GetSpan(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if string(got.RawSpan) != string(raw) {
		t.Errorf("raw span not verbatim:\n got %s\nwant %s", got.RawSpan, raw)
	}
	if got.StartTimeNS != 7 || got.EndTimeNS != 9 {
		t.Errorf("normalized times: %d/%d", got.StartTimeNS, got.EndTimeNS)
	}
}

func TestNormalizeHAREntryNative(t *testing.T) {
	raw := []byte(`{
		"_id": "e1",
		"_correlation_id": "c1",
		"startedDateTime": "2025-01-10T09:30:00.123456789Z",
		"request": {"method": "POST", "url": "https://api.example.com/login"},
		"response": {"status": 201}
	}`)
	entry, err := NormalizeHAREntry(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if entry.EntryID != "e1" || entry.CorrelationID != "c1" {
		t.Errorf("ids: %q %q", entry.EntryID, entry.CorrelationID)
	}
	if entry.Method != "POST" || entry.URL != "https://api.example.com/login" {
		t.Errorf("request: %q %q", entry.Method, entry.URL)
	}
	if entry.Status == nil || *entry.Status != 201 {
		t.Errorf("status: %v", entry.Status)
	}
	if entry.StartedAtNS == nil {
		t.Fatal("startedDateTime not converted")
	}
	// 2025-01-10T09:30:00.123456789Z
	if *entry.StartedAtNS != 1736501400123456789 {
		t.Errorf("started_at_ns: got %d", *entry.StartedAtNS)
	}
}

func TestNormalizeHAREntryFlattened(t *testing.T) {
	entry, err := NormalizeHAREntry([]byte(
		`{"entry_id":"e2","correlation_id":"c2","started_at_ns":42,"method":"GET","url":"https://x/y","status":304}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if entry.EntryID != "e2" || entry.CorrelationID != "c2" {
		t.Errorf("ids: %q %q", entry.EntryID, entry.CorrelationID)
	}
	if entry.StartedAtNS == nil || *entry.StartedAtNS != 42 {
		t.Errorf("started_at_ns: %v", entry.StartedAtNS)
	}
	if entry.Method != "GET" || entry.URL != "https://x/y" {
		t.Errorf("flattened request: %q %q", entry.Method, entry.URL)
	}
	if entry.Status == nil || *entry.Status != 304 {
		t.Errorf("status: %v", entry.Status)
	}
}

func TestNormalizeHAREntryBadTimestamp(t *testing.T) {
	_, err := NormalizeHAREntry([]byte(`{"entry_id":"e3","startedDateTime":"yesterday"}`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("want ErrMalformedPayload, got %v", err)
	}
}

func TestIngestHAREntryMintsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, err := s.IngestHAREntry(ctx, []byte(`{"method":"GET","url":"https://x/"}`))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if entry.EntryID == "" {
		t.Fatal("no entry id minted")
	}

	got, err := s.GetHAREntry(ctx, entry.EntryID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
}

func TestIngestDOMSnapshotMintsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap, err := s.IngestDOMSnapshot(ctx, "", "t1", "c1", 10, []byte(`{"tag":"html"}`))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if snap.SnapshotID == "" {
		t.Fatal("no snapshot id minted")
	}

	got, err := s.GetDOMSnapshot(ctx, snap.SnapshotID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.CorrelationID != "c1" || got.CapturedAtNS != 10 {
		t.Errorf("snapshot fields: %+v", got)
	}
}

func TestIngestDOMSnapshotRejectsMalformed(t *testing.T) {
	s := newTestStore(t)

	_, err := s.IngestDOMSnapshot(context.Background(), "snap-1", "t1", "c1", 1, []byte(`<html>`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("want ErrMalformedPayload, got %v", err)
	}
}
