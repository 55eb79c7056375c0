// CLAUDE:SUMMARY Recursive DOM-tree structural analysis: stability scoring, dynamic-marker and role counting.
// Package stability scores the structural stability of DOM trees.
//
// A tree is any JSON-decoded value: objects are nodes, arrays are node lists,
// scalars are leaves. A node is "dynamic" when its id or class attribute looks
// volatile (session tokens, uuids, A/B-test buckets, numeric suffixes). The
// score is the fraction of non-dynamic nodes, clamped to [0,1].
//
// A tree with zero object nodes scores 0.0: an empty capture is maximally
// unknown, not perfectly stable.
package stability

import (
	"strings"
)

// markers are the volatility substrings matched against id and class values.
var markers = []string{"uuid", "session", "abtest"}

// Score walks tree and returns clamp(1 - dynamic/total, 0, 1).
func Score(tree any) float64 {
	var dynamic, total int64
	walk(tree, &dynamic, &total)

	if total == 0 {
		return 0.0
	}

	score := 1.0 - float64(dynamic)/float64(total)
	if score < 0 {
		return 0.0
	}
	if score > 1 {
		return 1.0
	}
	return score
}

// CountDynamicMarkers returns the number of nodes whose id attribute matches
// the volatility heuristics. Used for noise statistics on derived sheets.
func CountDynamicMarkers(tree any) int64 {
	var count int64
	walkIDs(tree, &count)
	return count
}

// CountTag returns the number of object nodes whose "tag" attribute equals
// tag, case-insensitively.
func CountTag(tree any, tag string) int64 {
	var count int64
	var recurse func(v any)
	recurse = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			if s, ok := t["tag"].(string); ok && strings.EqualFold(s, tag) {
				count++
			}
			for _, child := range t {
				recurse(child)
			}
		case []any:
			for _, child := range t {
				recurse(child)
			}
		}
	}
	recurse(tree)
	return count
}

func walk(v any, dynamic, total *int64) {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["id"].(string); ok && dynamicID(id) {
			*dynamic++
		}
		if class, ok := t["class"].(string); ok && dynamicClass(class) {
			*dynamic++
		}
		*total++
		for _, child := range t {
			walk(child, dynamic, total)
		}
	case []any:
		for _, child := range t {
			walk(child, dynamic, total)
		}
	}
}

func walkIDs(v any, count *int64) {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["id"].(string); ok && dynamicID(id) {
			*count++
		}
		for _, child := range t {
			walkIDs(child, count)
		}
	case []any:
		for _, child := range t {
			walkIDs(child, count)
		}
	}
}

// dynamicID flags ids containing a marker substring or any ASCII digit.
func dynamicID(id string) bool {
	for _, m := range markers {
		if strings.Contains(id, m) {
			return true
		}
	}
	return strings.ContainsAny(id, "0123456789")
}

// dynamicClass flags classes containing a marker substring. Digits alone do
// not flag a class: numbered utility classes (col-2, mt-4) are stable.
func dynamicClass(class string) bool {
	for _, m := range markers {
		if strings.Contains(class, m) {
			return true
		}
	}
	return false
}
