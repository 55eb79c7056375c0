// CLAUDE:SUMMARY Ingestion normalizers — alias-tolerant mapping of raw span/DOM/HAR payloads into typed records.
package sigstore

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// The normalizers in this file are pure functions of their input: identical
// raw payloads always yield identical records, which keeps content hashing
// meaningful downstream. Field extraction follows ordered candidate lists;
// the first present key wins, and a mandatory field still absent after every
// fallback is a schema violation with nothing written.

// Candidate attribute keys, probed in priority order.
var (
	startTimeKeys   = []string{"start_time_unix_nano", "start_time_ns"}
	endTimeKeys     = []string{"end_time_unix_nano", "end_time_ns"}
	spanNameKeys    = []string{"name", "span_name"}
	serviceKeys     = []string{"service.name"}
	httpMethodKeys  = []string{"http.method"}
	httpRouteKeys   = []string{"http.route", "http.target"}
	correlationKeys = []string{"correlation_id", "correlation.id", "session.id"}
)

// IngestOTelSpan normalizes a raw OpenTelemetry-shaped span JSON payload and
// upserts the resulting record. The raw payload is retained verbatim in the
// stored row for forward compatibility.
func (s *Store) IngestOTelSpan(ctx context.Context, raw []byte) (*Span, error) {
	span, err := NormalizeOTelSpan(raw)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertSpan(ctx, span); err != nil {
		return nil, err
	}
	s.logger.Debug("sigstore: span ingested",
		"span_id", span.SpanID, "trace_id", span.TraceID, "correlation_id", span.CorrelationID)
	return span, nil
}

// NormalizeOTelSpan maps a loosely-typed span payload into a Span record
// without touching the store.
func NormalizeOTelSpan(raw []byte) (*Span, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, malformed("span payload", err)
	}

	spanID, ok := stringField(obj, "span_id")
	if !ok {
		return nil, schemaErr("span payload missing span_id")
	}
	traceID, ok := stringField(obj, "trace_id")
	if !ok {
		return nil, schemaErr("span payload missing trace_id")
	}
	start, ok := firstInt64(obj, startTimeKeys)
	if !ok {
		return nil, schemaErr("span payload missing start_time_unix_nano")
	}
	end, ok := firstInt64(obj, endTimeKeys)
	if !ok {
		return nil, schemaErr("span payload missing end_time_unix_nano")
	}

	name, ok := firstString(obj, spanNameKeys)
	if !ok {
		name = "unknown_span"
	}

	attributes, _ := obj["attributes"].(map[string]any)
	if attributes == nil {
		attributes = map[string]any{}
	}
	resource, _ := obj["resource"].(map[string]any)
	if resource == nil {
		resource = map[string]any{}
	}

	span := &Span{
		SpanID:      spanID,
		TraceID:     traceID,
		StartTimeNS: start,
		EndTimeNS:   end,
		SpanName:    name,
	}
	span.ParentSpanID, _ = stringField(obj, "parent_span_id")
	span.SpanKind, _ = stringField(obj, "kind")
	span.ServiceName, _ = firstString(attributes, serviceKeys)
	span.HTTPMethod, _ = firstString(attributes, httpMethodKeys)
	span.HTTPRoute, _ = firstString(attributes, httpRouteKeys)
	span.CorrelationID, _ = firstString(attributes, correlationKeys)

	// Status: the status.code field wins; the numeric http.status_code
	// attribute is the fallback.
	if status, ok := obj["status"].(map[string]any); ok {
		span.StatusCode, _ = stringField(status, "code")
	}
	if span.StatusCode == "" {
		if code, ok := intField(attributes, "http.status_code"); ok {
			span.StatusCode = strconv.FormatInt(code, 10)
		}
	}

	attrJSON, err := json.Marshal(attributes)
	if err != nil {
		return nil, malformed("span attributes", err)
	}
	resJSON, err := json.Marshal(resource)
	if err != nil {
		return nil, malformed("span resource", err)
	}
	span.Attributes = attrJSON
	span.Resource = resJSON
	span.RawSpan = json.RawMessage(raw)

	return span, nil
}

// IngestDOMSnapshot parses a raw DOM tree JSON payload and stores it
// verbatim under snapshotID. An empty snapshotID mints one.
func (s *Store) IngestDOMSnapshot(ctx context.Context, snapshotID, traceID, correlationID string, capturedAtNS int64, rawDOM []byte) (*DOMSnapshot, error) {
	var tree any
	if err := json.Unmarshal(rawDOM, &tree); err != nil {
		return nil, malformed("dom payload", err)
	}
	if snapshotID == "" {
		snapshotID = s.newSnapshotID()
	}
	snap := &DOMSnapshot{
		SnapshotID:    snapshotID,
		TraceID:       traceID,
		CorrelationID: correlationID,
		CapturedAtNS:  capturedAtNS,
		RawDOM:        json.RawMessage(rawDOM),
	}
	if err := s.store.UpsertDOMSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	s.logger.Debug("sigstore: dom snapshot ingested",
		"snapshot_id", snapshotID, "correlation_id", correlationID)
	return snap, nil
}

// IngestHAREntry normalizes one raw HTTP-archive entry and upserts it.
// An entry without its own id gets a minted one, which makes the operation
// non-idempotent for id-less payloads; suppliers that replay should carry
// explicit entry ids.
func (s *Store) IngestHAREntry(ctx context.Context, raw []byte) (*HAREntry, error) {
	entry, err := NormalizeHAREntry(raw)
	if err != nil {
		return nil, err
	}
	if entry.EntryID == "" {
		entry.EntryID = s.newEntryID()
	}
	if err := s.store.UpsertHAREntry(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Debug("sigstore: har entry ingested",
		"entry_id", entry.EntryID, "url", entry.URL, "correlation_id", entry.CorrelationID)
	return entry, nil
}

// NormalizeHAREntry maps a raw HAR 1.2 entry (or the flattened equivalent)
// into a HAREntry record. EntryID is left empty when the payload carries no
// id of its own.
func NormalizeHAREntry(raw []byte) (*HAREntry, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, malformed("har payload", err)
	}

	entry := &HAREntry{RawEntry: json.RawMessage(raw)}
	entry.EntryID, _ = firstString(obj, []string{"entry_id", "_id", "id"})
	entry.CorrelationID, _ = firstString(obj, []string{"_correlation_id", "correlation_id"})

	// startedDateTime is the HAR-native form; started_at_ns the flattened one.
	if ns, ok := firstInt64(obj, []string{"started_at_ns"}); ok {
		entry.StartedAtNS = &ns
	} else if started, ok := stringField(obj, "startedDateTime"); ok {
		ts, err := time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, malformed("har startedDateTime", err)
		}
		ns := ts.UnixNano()
		entry.StartedAtNS = &ns
	}

	request, _ := obj["request"].(map[string]any)
	response, _ := obj["response"].(map[string]any)

	if request != nil {
		entry.Method, _ = stringField(request, "method")
		entry.URL, _ = stringField(request, "url")
		reqJSON, err := json.Marshal(request)
		if err != nil {
			return nil, malformed("har request", err)
		}
		entry.RequestJSON = reqJSON
	} else {
		entry.Method, _ = stringField(obj, "method")
		entry.URL, _ = stringField(obj, "url")
	}

	if response != nil {
		if code, ok := intField(response, "status"); ok {
			entry.Status = &code
		}
		resJSON, err := json.Marshal(response)
		if err != nil {
			return nil, malformed("har response", err)
		}
		entry.ResponseJSON = resJSON
	} else if code, ok := intField(obj, "status"); ok {
		entry.Status = &code
	}

	return entry, nil
}

// --- candidate extractors ---

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// firstString probes keys in order and returns the first present non-empty
// string value.
func firstString(m map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := stringField(m, k); ok {
			return s, true
		}
	}
	return "", false
}

// firstInt64 probes keys in order, accepting a native integer or a
// string-encoded one — OTLP exporters ship uint64 nanos as quoted strings.
func firstInt64(m map[string]any, keys []string) (int64, bool) {
	for _, k := range keys {
		if n, ok := intValue(m[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func intField(m map[string]any, key string) (int64, bool) {
	return intValue(m[key])
}

func intValue(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}
