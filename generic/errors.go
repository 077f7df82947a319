/*
errors.go - Centralized error types for the household engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine computations degrade instead of failing (sparse data, zero
  income, stale input); errors only come out of I/O boundaries.

ERROR CATEGORIES:
  1. Store errors - Blob persistence failures and missing keys
  2. Input errors - Requests the HTTP/CLI surfaces cannot serve
  3. Corruption - Persisted blobs that cannot be decoded

USAGE:
  if errors.Is(err, generic.ErrBlobNotFound) {
      // fall back to defaults
  }

SEE ALSO:
  - store.go: BlobStore contract
  - brain/repository.go: Converts corruption into defaults
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBlobNotFound is returned by a BlobStore when the key has never been set.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidWindow is returned when a trailing window is not 3, 6 or 12 months.
	ErrInvalidWindow = errors.New("invalid window: must be 3, 6 or 12 months")

	// ErrInvalidScenario is returned when a scenario definition cannot be used.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrCorruptBlob is wrapped by CorruptBlobError.
	ErrCorruptBlob = errors.New("corrupt blob")

	// ErrDuplicateTransaction is returned when a transaction ID is recorded twice.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrInvalidTransaction is returned when a submitted transaction is malformed.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CorruptBlobError describes a persisted blob that could not be decoded.
type CorruptBlobError struct {
	Key string
	Err error
}

func (e *CorruptBlobError) Error() string {
	return fmt.Sprintf("corrupt blob %q: %v", e.Key, e.Err)
}

func (e *CorruptBlobError) Unwrap() error {
	return ErrCorruptBlob
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidScenario) ||
		errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrDuplicateTransaction)
}

// IsNotFound returns true if the error indicates a missing blob.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBlobNotFound)
}
