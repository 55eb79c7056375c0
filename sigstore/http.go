// CLAUDE:SUMMARY chi HTTP surface for ingestion, correlation queries, cluster scoring and export.
package sigstore

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

// RegisterHTTP mounts the store's API under the given router. All payloads
// are JSON; ingestion endpoints accept the same loosely-typed documents as
// the Ingest* methods.
func (s *Store) RegisterHTTP(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest/span", s.handleIngestSpan)
		r.Post("/ingest/dom", s.handleIngestDOM)
		r.Post("/ingest/har", s.handleIngestHAR)
		r.Post("/snapshots", s.handlePutSnapshot)
		r.Get("/snapshots/{hash}", s.handleGetSnapshot)
		r.Post("/scores/cluster", s.handleUpsertClusterScore)
		r.Post("/scores/recompute", s.handleRecompute)
		r.Get("/spans/slow", s.handleSlowSpans)
		r.Get("/clusters/{correlationID}", s.handleGetCluster)
		r.Get("/clusters/{correlationID}/export", s.handleExportCluster)
	})
}

// writeError maps store errors onto HTTP statuses: malformed payloads are
// the client's fault (400), schema violations mean the payload parsed but
// is missing mandatory fields (422), anything else is ours (500).
func (s *Store) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSchemaViolation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.logger.Error("sigstore: request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Store) handleIngestSpan(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	span, err := s.IngestOTelSpan(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"span_id":  span.SpanID,
		"trace_id": span.TraceID,
	})
}

func (s *Store) handleIngestDOM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SnapshotID    string          `json:"snapshot_id"`
		TraceID       string          `json:"trace_id"`
		CorrelationID string          `json:"correlation_id"`
		CapturedAtNS  int64           `json:"captured_at_ns"`
		RawDOM        json.RawMessage `json:"raw_dom"`
		RawHTML       string          `json:"raw_html"`
		DeriveSheet   bool            `json:"derive_sheet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		snap *DOMSnapshot
		err  error
	)
	if req.RawHTML != "" {
		snap, err = s.IngestDOMSnapshotHTML(r.Context(), req.SnapshotID, req.TraceID, req.CorrelationID, req.CapturedAtNS, []byte(req.RawHTML))
	} else {
		snap, err = s.IngestDOMSnapshot(r.Context(), req.SnapshotID, req.TraceID, req.CorrelationID, req.CapturedAtNS, req.RawDOM)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]string{"snapshot_id": snap.SnapshotID}
	if req.DeriveSheet {
		sheet, err := s.DeriveDOMSheet(r.Context(), snap.SnapshotID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp["sheet_id"] = sheet.SheetID
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Store) handleIngestHAR(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	entry, err := s.IngestHAREntry(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"entry_id": entry.EntryID})
}

func (s *Store) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        string          `json:"kind"`
		Payload     json.RawMessage `json:"payload"`
		CreatedAtNS int64           `json:"created_at_ns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	snap, err := s.PutSnapshot(r.Context(), req.Kind, req.Payload, req.CreatedAtNS)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"hash": snap.Hash})
}

func (s *Store) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.GetSnapshot(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if snap == nil {
		http.Error(w, "snapshot not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Store) handleUpsertClusterScore(w http.ResponseWriter, r *http.Request) {
	var score ClusterScore
	if err := json.NewDecoder(r.Body).Decode(&score); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if score.CorrelationID == "" {
		http.Error(w, "correlation_id required", http.StatusBadRequest)
		return
	}
	if err := s.UpsertClusterScore(r.Context(), &score); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"correlation_id": score.CorrelationID})
}

func (s *Store) handleRecompute(w http.ResponseWriter, r *http.Request) {
	n, err := s.RecomputeDOMStabilityScores(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// handleSlowSpans serves GET /api/v1/spans/slow?threshold_ns=N&limit=N.
func (s *Store) handleSlowSpans(w http.ResponseWriter, r *http.Request) {
	thresholdNS, err := strconv.ParseInt(r.URL.Query().Get("threshold_ns"), 10, 64)
	if err != nil {
		http.Error(w, "threshold_ns required", http.StatusBadRequest)
		return
	}
	limit := int64(50)
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.ParseInt(v, 10, 64)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	slow, err := s.FindSlowSpansWithDOM(r.Context(), thresholdNS, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slow)
}

func (s *Store) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	cluster, err := s.LoadCluster(r.Context(), chi.URLParam(r, "correlationID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cluster)
}

func (s *Store) handleExportCluster(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Encoding", "gzip")
	if err := s.ExportCluster(r.Context(), correlationID, w); err != nil {
		s.logger.Error("sigstore: export failed", "correlation_id", correlationID, "error", err)
	}
}
