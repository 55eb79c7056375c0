package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONSchema is an inferred JSON schema for a logical endpoint. Versions for
// the same endpoint key coexist; nothing supersedes automatically.
type JSONSchema struct {
	SchemaID     string          `json:"schema_id"`
	EndpointKey  string          `json:"endpoint_key"`
	Version      int64           `json:"version"`
	InferredAtNS int64           `json:"inferred_at_ns"`
	Confidence   float64         `json:"confidence"`
	SchemaJSON   json.RawMessage `json:"schema_json"`
}

// UpsertJSONSchema inserts or replaces an inferred schema row. The
// (endpoint_key, version) pair is unique; re-upserting the same pair
// replaces the previous row even under a different schema_id.
func (s *Store) UpsertJSONSchema(ctx context.Context, schema *JSONSchema) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO json_schemas (
			schema_id, endpoint_key, version,
			inferred_at_ns, confidence, schema_json
		) VALUES (?,?,?,?,?,?)`,
		schema.SchemaID, schema.EndpointKey, schema.Version,
		schema.InferredAtNS, schema.Confidence, jsonText(schema.SchemaJSON),
	)
	if err != nil {
		return fmt.Errorf("store: upsert json schema %s: %w", schema.SchemaID, err)
	}
	return nil
}

// GetJSONSchema retrieves one schema version for an endpoint key.
// Returns (nil, nil) when absent.
func (s *Store) GetJSONSchema(ctx context.Context, endpointKey string, version int64) (*JSONSchema, error) {
	var (
		schema JSONSchema
		text   string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT schema_id, endpoint_key, version, inferred_at_ns, confidence, schema_json
		FROM json_schemas WHERE endpoint_key = ? AND version = ?`,
		endpointKey, version).
		Scan(&schema.SchemaID, &schema.EndpointKey, &schema.Version,
			&schema.InferredAtNS, &schema.Confidence, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get json schema %s v%d: %w", endpointKey, version, err)
	}
	schema.SchemaJSON = json.RawMessage(text)
	return &schema, nil
}

// ListJSONSchemaVersions returns every version stored for an endpoint key,
// newest version first.
func (s *Store) ListJSONSchemaVersions(ctx context.Context, endpointKey string) ([]*JSONSchema, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT schema_id, endpoint_key, version, inferred_at_ns, confidence, schema_json
		FROM json_schemas WHERE endpoint_key = ?
		ORDER BY version DESC`, endpointKey)
	if err != nil {
		return nil, fmt.Errorf("store: list json schema versions: %w", err)
	}
	defer rows.Close()

	var out []*JSONSchema
	for rows.Next() {
		var (
			schema JSONSchema
			text   string
		)
		if err := rows.Scan(&schema.SchemaID, &schema.EndpointKey, &schema.Version,
			&schema.InferredAtNS, &schema.Confidence, &text); err != nil {
			return nil, err
		}
		schema.SchemaJSON = json.RawMessage(text)
		out = append(out, &schema)
	}
	return out, rows.Err()
}
