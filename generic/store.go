/*
store.go - Persistence interface for engine state

PURPOSE:
  The engine itself performs no I/O. The predictor snapshot and the adaptive
  policy are persisted by a collaborator as opaque JSON blobs under fixed
  keys. This file defines that contract.

CONTRACT:
  - GetBlob returns ErrBlobNotFound for a key that was never set
  - SetBlob replaces any previous value
  - RemoveBlob on a missing key is not an error
  Callers must tolerate absence and corruption; see brain/repository.go.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: kv_blobs table
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - brain/repository.go: Snapshot and policy repositories
*/
package generic

import "context"

// BlobStore is a key/value store for JSON-serializable blobs.
type BlobStore interface {
	GetBlob(ctx context.Context, key string) ([]byte, error)
	SetBlob(ctx context.Context, key string, value []byte) error
	RemoveBlob(ctx context.Context, key string) error
}
