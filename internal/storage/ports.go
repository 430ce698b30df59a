package storage

import "context"

// BlobStore is the persistence transport: opaque values under string keys.
type BlobStore interface {
	// Get returns found=false, and no error, when key was never written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every entry or none of them.
	SetMany(ctx context.Context, values map[string][]byte) error
}
