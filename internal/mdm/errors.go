package mdm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when a search is attempted without any
	// criteria.
	ErrInvalidQuery = errors.New("at least one search criterion is required")

	// ErrInvalidArgument is returned when a caller-supplied value is
	// rejected before any network call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a query that must match yields no
	// results.
	ErrNotFound = errors.New("no matching records")

	// ErrMalformedDocument is returned when an expected substructure is
	// missing from a fetched XML document.
	ErrMalformedDocument = errors.New("expected document structure missing")

	// ErrConflict is returned when a write guarded by a version lock is
	// rejected because the lock is stale. The caller must re-read the
	// scope and retry; the write is never retried automatically.
	ErrConflict = errors.New("version lock is stale")
)

// AuthError reports a failed token issuance or invalidation.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("authentication failed with status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("authentication failed with status %d", e.Status)
}

// TransportError reports a non-success status on an endpoint that is
// specified to fail rather than return an empty result.
type TransportError struct {
	Status   int
	Endpoint string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.Status)
}

// IncompleteRecordError reports a device record missing a field required
// to build an XML node or target a command.
type IncompleteRecordError struct {
	DeviceID int
	Field    string
}

func (e *IncompleteRecordError) Error() string {
	return fmt.Sprintf("device %d record is missing %s", e.DeviceID, e.Field)
}
