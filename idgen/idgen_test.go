package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("sheet_", Default)
	id := gen()
	if !strings.HasPrefix(id, "sheet_") {
		t.Errorf("missing prefix: %s", id)
	}
	if _, err := Parse(strings.TrimPrefix(id, "sheet_")); err != nil {
		t.Errorf("suffix is not a valid UUID: %v", err)
	}
}

func TestTimestamped(t *testing.T) {
	id := Timestamped(Default)()
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("unexpected format: %s", id)
	}
	if len(parts[0]) != len("20060102T150405Z") {
		t.Errorf("timestamp part malformed: %s", parts[0])
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}
