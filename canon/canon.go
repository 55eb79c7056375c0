// CLAUDE:SUMMARY Deterministic canonical JSON serialization and SHA-256 content hashing.
// Package canon produces deterministic byte serializations and content hashes
// of JSON-like values.
//
// Two values that are equal up to object key order canonicalize to identical
// bytes, hence identical digests. Array element order is semantically
// significant and preserved.
//
// Numeric rule (load-bearing, never change it): numbers decoded from raw JSON
// keep their original textual form via json.Number; values passed in already
// decoded as float64 are formatted by encoding/json's shortest round-trip
// rule. A changed rule silently changes every downstream digest.
//
// Usage:
//
//	digest, err := canon.HashJSON(raw)          // raw JSON text
//	digest, err := canon.Hash(value)            // decoded value
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize serializes v deterministically. Object keys are emitted in
// ascending lexicographic order at every nesting level; arrays keep their
// element order; scalars pass through unchanged.
func Canonicalize(v any) ([]byte, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("canon: normalize: %w", err)
	}
	// encoding/json marshals map keys in sorted order, which is exactly the
	// canonical ordering contract.
	out, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	return out, nil
}

// CanonicalizeJSON decodes raw JSON text and canonicalizes it. Numbers are
// decoded as json.Number so 64-bit nanosecond timestamps survive intact.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return Canonicalize(v)
}

// Hash returns the SHA-256 digest of Canonicalize(v) as 64 lowercase hex
// characters.
func Hash(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashJSON is Hash over raw JSON text.
func HashJSON(raw []byte) (string, error) {
	b, err := CanonicalizeJSON(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canon: decode: %w", err)
	}
	return v, nil
}

// normalize rewrites v into the shapes encoding/json marshals
// deterministically: map[string]any for objects, []any for arrays.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, child := range t {
			n, err := normalize(child)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	case []any:
		s := make([]any, len(t))
		for i, child := range t {
			n, err := normalize(child)
			if err != nil {
				return nil, err
			}
			s[i] = n
		}
		return s, nil
	case nil, bool, string, json.Number, float64, int, int64:
		return t, nil
	case json.RawMessage:
		return decode(t)
	default:
		// Structs and other marshalable values: round-trip through JSON so
		// nested maps get the canonical treatment too.
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("canon: marshal %T: %w", t, err)
		}
		return decode(raw)
	}
}
