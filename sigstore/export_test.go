package sigstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestExportCluster(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.IngestOTelSpan(ctx, []byte(
		`{"span_id":"s1","trace_id":"t1","start_time_unix_nano":1,"end_time_unix_nano":2,`+
			`"attributes":{"correlation_id":"c1"}}`)); err != nil {
		t.Fatalf("seed span: %v", err)
	}
	if _, err := s.IngestDOMSnapshot(ctx, "snap-1", "t1", "c1", 3,
		[]byte(`{"tag":"div"}`)); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	if _, err := s.DeriveDOMSheet(ctx, "snap-1"); err != nil {
		t.Fatalf("seed sheet: %v", err)
	}
	if _, err := s.IngestHAREntry(ctx, []byte(
		`{"entry_id":"h1","correlation_id":"c1","started_at_ns":4,"method":"GET","url":"https://x/"}`)); err != nil {
		t.Fatalf("seed har: %v", err)
	}
	if err := s.UpsertClusterScore(ctx, &ClusterScore{
		CorrelationID: "c1", StabilityScore: 0.8,
	}); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	var buf bytes.Buffer
	if err := s.ExportCluster(ctx, "c1", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	dec := json.NewDecoder(gz)

	var families []string
	for {
		var line struct {
			Family string          `json:"family"`
			Record json.RawMessage `json:"record"`
		}
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode line: %v", err)
		}
		if len(line.Record) == 0 {
			t.Errorf("empty record in family %s", line.Family)
		}
		families = append(families, line.Family)
	}

	want := []string{"span", "dom_sheet", "har_entry", "cluster_score"}
	if len(families) != len(want) {
		t.Fatalf("lines: got %v, want %v", families, want)
	}
	for i := range want {
		if families[i] != want[i] {
			t.Errorf("line %d: got %s, want %s", i, families[i], want[i])
		}
	}
}

func TestExportClusterEmpty(t *testing.T) {
	s := newTestStore(t)

	var buf bytes.Buffer
	if err := s.ExportCluster(context.Background(), "nobody", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("unknown correlation exported %d bytes", len(data))
	}
}
