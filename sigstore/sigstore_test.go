package sigstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &Config{DBPath: filepath.Join(t.TempDir(), "sigcor-test.db")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutSnapshotContentAddressed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Same content under different key order must collapse to one hash.
	a, err := s.PutSnapshot(ctx, "dom", []byte(`{"x":1,"y":2}`), 100)
	if err != nil {
		t.Fatalf("put a: %v", err)
	}
	b, err := s.PutSnapshot(ctx, "dom", []byte(`{"y":2,"x":1}`), 200)
	if err != nil {
		t.Fatalf("put b: %v", err)
	}
	if a.Hash != b.Hash {
		t.Errorf("hashes differ for equivalent content: %s vs %s", a.Hash, b.Hash)
	}

	got, err := s.GetSnapshot(ctx, a.Hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("snapshot not found by hash")
	}
	if got.Kind != "dom" {
		t.Errorf("kind: got %q", got.Kind)
	}
}

func TestPutSnapshotStampsCreatedAt(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.PutSnapshot(context.Background(), "har", []byte(`{"a":true}`), 0)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if snap.CreatedAtNS == 0 {
		t.Error("zero created_at_ns was not stamped")
	}
}

func TestPutSnapshotRejectsMalformed(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.PutSnapshot(context.Background(), "dom", []byte(`{nope`), 0); err == nil {
		t.Fatal("malformed snapshot payload accepted")
	}
}

func TestBuildEndpointKey(t *testing.T) {
	if got := BuildEndpointKey("get", "/api/users/{id}"); got != "GET /api/users/{id}" {
		t.Errorf("got %q", got)
	}
	if got := BuildEndpointKey("POST", "/login"); got != "POST /login" {
		t.Errorf("got %q", got)
	}
}

func TestReadOnlyStoreRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ro.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rw, err := New(&Config{DBPath: dbPath}, logger)
	if err != nil {
		t.Fatalf("open rw: %v", err)
	}
	rw.Close()

	ro, err := New(&Config{DBPath: dbPath, ReadOnly: true}, logger)
	if err != nil {
		t.Fatalf("open ro: %v", err)
	}
	defer ro.Close()

	err = ro.UpsertSpan(context.Background(), &Span{
		SpanID: "s1", TraceID: "t1", SpanName: "x", StartTimeNS: 1, EndTimeNS: 2,
	})
	if err == nil {
		t.Fatal("write against read-only store succeeded")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "db_path: /tmp/corr.db\nbusy_timeout_ms: 500\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/corr.db" {
		t.Errorf("db_path: got %q", cfg.DBPath)
	}
	if cfg.BusyTimeoutMS != 500 {
		t.Errorf("busy_timeout_ms: got %d", cfg.BusyTimeoutMS)
	}
	if cfg.Synchronous != "NORMAL" {
		t.Errorf("synchronous default: got %q", cfg.Synchronous)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file loaded")
	}
}
