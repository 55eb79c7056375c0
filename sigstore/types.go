// CLAUDE:SUMMARY Re-exports internal store record types for external callers.
package sigstore

import "github.com/hazyhaar/sigcor/sigstore/internal/store"

// Re-exported types from internal/store for use by cmd/ and external callers.
type (
	Span         = store.Span
	DOMSnapshot  = store.DOMSnapshot
	DOMSheet     = store.DOMSheet
	HAREntry     = store.HAREntry
	JSONSchema   = store.JSONSchema
	Snapshot     = store.Snapshot
	ClusterScore = store.ClusterScore
	Cluster      = store.Cluster
	SlowSpan     = store.SlowSpan
)
