package stability

import (
	"encoding/json"
	"testing"
)

func tree(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal tree: %v", err)
	}
	return v
}

func TestScoreBounds(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"all stable", `{"tag":"main","children":[{"tag":"p"},{"tag":"p"}]}`},
		{"all dynamic", `{"id":"session-1"}`},
		{"mixed", `{"tag":"div","children":[{"id":"uuid-x"},{"tag":"span"}]}`},
		{"scalars only", `[1,"two",null]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Score(tree(t, tc.raw))
			if s < 0.0 || s > 1.0 {
				t.Errorf("score %f out of [0,1]", s)
			}
		})
	}
}

func TestScoreEmptyTree(t *testing.T) {
	// Zero object nodes means maximally unknown, never "perfectly stable".
	for _, raw := range []string{`[]`, `"leaf"`, `null`, `[1,2,3]`} {
		if s := Score(tree(t, raw)); s != 0.0 {
			t.Errorf("Score(%s): got %f, want 0.0", raw, s)
		}
	}
}

func TestScoreStableTree(t *testing.T) {
	raw := `{"tag":"main","id":"content","children":[{"tag":"p","class":"body"}]}`
	if s := Score(tree(t, raw)); s != 1.0 {
		t.Errorf("fully stable tree: got %f, want 1.0", s)
	}
}

func TestDynamicIDHeuristics(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"content", false},
		{"main-uuid-abc", true},
		{"session_panel", true},
		{"abtest-variant", true},
		{"item42", true}, // any digit flags an id
		{"nav", false},
	}
	for _, tc := range cases {
		if got := dynamicID(tc.id); got != tc.want {
			t.Errorf("dynamicID(%q): got %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestDynamicClassIgnoresDigits(t *testing.T) {
	// col-2 style utility classes are stable; only marker substrings flag.
	if dynamicClass("col-2 mt-4") {
		t.Error("numbered utility class flagged as dynamic")
	}
	if !dynamicClass("session-banner") {
		t.Error("session class not flagged")
	}
}

func TestCountDynamicMarkers(t *testing.T) {
	raw := `{"id":"uuid-1","children":[{"id":"stable"},{"id":"cart7"},{"class":"session"}]}`
	// Only id attributes count toward noise stats.
	if got := CountDynamicMarkers(tree(t, raw)); got != 2 {
		t.Errorf("CountDynamicMarkers: got %d, want 2", got)
	}
}

func TestCountTag(t *testing.T) {
	raw := `{"tag":"div","children":[{"tag":"BUTTON"},{"tag":"button"},{"tag":"a","children":[{"tag":"input"}]}]}`
	v := tree(t, raw)
	if got := CountTag(v, "button"); got != 2 {
		t.Errorf("button count: got %d, want 2", got)
	}
	if got := CountTag(v, "a"); got != 1 {
		t.Errorf("link count: got %d, want 1", got)
	}
	if got := CountTag(v, "input"); got != 1 {
		t.Errorf("input count: got %d, want 1", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	raw := `{"tag":"div","id":"row3","children":[{"class":"abtest-b"},{"tag":"p"}]}`
	a := Score(tree(t, raw))
	b := Score(tree(t, raw))
	if a != b {
		t.Errorf("score not deterministic: %f vs %f", a, b)
	}
}
