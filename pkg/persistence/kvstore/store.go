package kvstore

import "context"

// Store is the durable key-value space the widget keeps its identity and
// history in. It plays the role localStorage plays in a browser: string keys,
// string values, scoped to one profile.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
