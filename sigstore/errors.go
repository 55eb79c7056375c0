// CLAUDE:SUMMARY Sentinel error taxonomy for ingestion and referential failures.
package sigstore

import (
	"errors"
	"fmt"
)

// Error taxonomy for callers that need to dispose of failures by class.
// Storage errors propagate from database/sql untranslated; canonicalization
// and digest failures are rare and surface as ordinary wrapped errors.
var (
	// ErrMalformedPayload marks input text that is not valid structured data.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrSchemaViolation marks a mandatory field absent after every
	// normalizer fallback, or a referential constraint that would break.
	ErrSchemaViolation = errors.New("schema violation")
)

var errNotObject = errors.New("payload is not a JSON object")

func malformed(what string, err error) error {
	return fmt.Errorf("sigstore: %s: %v: %w", what, err, ErrMalformedPayload)
}

func schemaErr(what string) error {
	return fmt.Errorf("sigstore: %s: %w", what, ErrSchemaViolation)
}
