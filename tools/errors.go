// Package tools provides shared utilities used across the shelf module:
// the error taxonomy, the structured logger, and identifier validation.
package tools

import (
	"errors"
	"fmt"
)

// Error codes for SDK consumption. Stable, programmatic identifiers — not
// meant to change even if the underlying message wording does.
const (
	CodeNotConnected        = "NOT_CONNECTED"
	CodeNotBound            = "NOT_BOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeStaleVersion        = "STALE_VERSION"
	CodeReferentialIntegrity = "REFERENTIAL_INTEGRITY"
	CodeInvalidSQL          = "INVALID_SQL"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeInvalidIdentifier   = "INVALID_IDENTIFIER"
	CodeInvalidOperator     = "INVALID_OPERATOR"
	CodeQueryTooDeep        = "QUERY_TOO_DEEP"
	CodeArrayTooLarge       = "ARRAY_TOO_LARGE"
	CodeNoFTSIndex          = "NO_FTS_INDEX"
)

// APIError is a structured description of a failure, suitable for SDK
// consumers that want a stable code plus a human hint rather than just an
// error string.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Sentinel errors. Check with errors.Is; the model runtime and adapter wrap
// these with context via fmt.Errorf("%w: ...", ...).
var (
	ErrNotConnected         = errors.New("adapter is not connected")
	ErrNotBound             = errors.New("model is not bound to a database")
	ErrNotFound             = errors.New("document not found")
	ErrStaleVersion         = errors.New("stale write: version mismatch")
	ErrReferentialIntegrity = errors.New("delete blocked by referential integrity")
	ErrInvalidSQL           = errors.New("invalid SQL")
	ErrValidationError      = errors.New("schema validation failed")

	ErrEmptyIdentifier   = errors.New("identifier cannot be empty")
	ErrIdentifierTooLong = errors.New("identifier exceeds maximum length")
	ErrInvalidCharacter  = errors.New("identifier contains invalid characters")

	ErrInvalidOperator = errors.New("invalid filter operator")
	ErrQueryTooDeep    = errors.New("any() nesting exceeds maximum depth")
	ErrArrayTooLarge   = errors.New("array exceeds maximum size")
	ErrNoFTSIndex      = errors.New("no full-text index for table")

	ErrMultiStatement = errors.New("execute does not accept multi-statement SQL; use ExecuteScript")
)

// NotFoundErr wraps ErrNotFound with the table/id that was missing.
func NotFoundErr(table string, id int64) error {
	return fmt.Errorf("%w: %s#%d", ErrNotFound, table, id)
}

// StaleVersionErr wraps ErrStaleVersion with the document identity that
// failed its optimistic compare-and-swap.
func StaleVersionErr(table string, id int64, expected int64) error {
	return fmt.Errorf("%w: %s#%d expected version %d", ErrStaleVersion, table, id, expected)
}

// ReferentialIntegrityErr names the table and document that blocked a
// restrict-policy delete.
func ReferentialIntegrityErr(table string, id int64, referrer string) error {
	return fmt.Errorf("%w: %s#%d is referenced by %s", ErrReferentialIntegrity, table, id, referrer)
}

// Describe maps an error to a stable APIError, mirroring the taxonomy laid
// out in SPEC_FULL.md §9. Unrecognized errors fall back to a generic code so
// callers always get a structured shape back.
func Describe(err error) APIError {
	switch {
	case errors.Is(err, ErrNotConnected):
		return APIError{Code: CodeNotConnected, Message: err.Error(), Hint: "call Connect before issuing operations"}
	case errors.Is(err, ErrNotBound):
		return APIError{Code: CodeNotBound, Message: err.Error(), Hint: "call model.Bind before saving or querying"}
	case errors.Is(err, ErrNotFound):
		return APIError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, ErrStaleVersion):
		return APIError{Code: CodeStaleVersion, Message: err.Error(), Hint: "refresh the instance and retry the save"}
	case errors.Is(err, ErrReferentialIntegrity):
		return APIError{Code: CodeReferentialIntegrity, Message: err.Error(), Hint: "remove or repoint referring documents first"}
	case errors.Is(err, ErrInvalidSQL):
		return APIError{Code: CodeInvalidSQL, Message: err.Error()}
	case errors.Is(err, ErrValidationError):
		return APIError{Code: CodeValidationError, Message: err.Error()}
	case errors.Is(err, ErrInvalidOperator):
		return APIError{Code: CodeInvalidOperator, Message: err.Error()}
	case errors.Is(err, ErrQueryTooDeep):
		return APIError{Code: CodeQueryTooDeep, Message: err.Error()}
	case errors.Is(err, ErrArrayTooLarge):
		return APIError{Code: CodeArrayTooLarge, Message: err.Error()}
	case errors.Is(err, ErrNoFTSIndex):
		return APIError{Code: CodeNoFTSIndex, Message: err.Error()}
	default:
		return APIError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}
}
