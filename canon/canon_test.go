package canon

import (
	"strings"
	"testing"
)

func TestKeyOrderIndependence(t *testing.T) {
	a := []byte(`{"b":2,"a":1,"nested":{"y":[1,2,3],"x":"v"}}`)
	b := []byte(`{"nested":{"x":"v","y":[1,2,3]},"a":1,"b":2}`)

	ca, err := CanonicalizeJSON(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	cb, err := CanonicalizeJSON(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if string(ca) != string(cb) {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}

	ha, _ := HashJSON(a)
	hb, _ := HashJSON(b)
	if ha != hb {
		t.Errorf("digests differ: %s vs %s", ha, hb)
	}
}

func TestArrayOrderSignificant(t *testing.T) {
	ha, err := HashJSON([]byte(`{"items":[1,2,3]}`))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	hb, err := HashJSON([]byte(`{"items":[3,2,1]}`))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if ha == hb {
		t.Error("reordered array produced the same digest")
	}
}

func TestDigestFormat(t *testing.T) {
	h, err := HashJSON([]byte(`{"kind":"dom","payload":{"tag":"div"}}`))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(h) != 64 {
		t.Errorf("digest length: got %d, want 64", len(h))
	}
	if h != strings.ToLower(h) {
		t.Error("digest is not lowercase hex")
	}
	if strings.Trim(h, "0123456789abcdef") != "" {
		t.Errorf("digest contains non-hex characters: %s", h)
	}
}

func TestLargeIntegersSurvive(t *testing.T) {
	// Nanosecond timestamps exceed float64's integer range; the canonical
	// form must keep them textually intact.
	raw := []byte(`{"start_time_unix_nano":1736500000123456789}`)
	c, err := CanonicalizeJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if !strings.Contains(string(c), "1736500000123456789") {
		t.Errorf("timestamp mangled in canonical form: %s", c)
	}
}

func TestScalarsPassThrough(t *testing.T) {
	for _, raw := range []string{`null`, `true`, `"s"`, `42`, `1.5`} {
		c, err := CanonicalizeJSON([]byte(raw))
		if err != nil {
			t.Fatalf("canonicalize %s: %v", raw, err)
		}
		if string(c) != raw {
			t.Errorf("scalar %s changed to %s", raw, c)
		}
	}
}

func TestMalformedInput(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte(`{"open":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := HashJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for non-JSON input")
	}
}

func TestHashDecodedValue(t *testing.T) {
	v := map[string]any{"a": float64(1), "b": []any{"x", "y"}}
	h1, err := Hash(v)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashJSON([]byte(`{"b":["x","y"],"a":1}`))
	if err != nil {
		t.Fatalf("hash json: %v", err)
	}
	if h1 != h2 {
		t.Errorf("decoded-value and raw-text digests differ: %s vs %s", h1, h2)
	}
}
