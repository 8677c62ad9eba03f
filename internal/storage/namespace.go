package storage

import "context"

// Writer receives the mutations of a single atomic Update.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Namespace is a scoped keyspace holding the data of a single feed.
// Keys passed to a Namespace are relative to its prefix.
type Namespace interface {
	// Path returns the segment this namespace was created for.
	Path() string
	// Get returns the value for key; ok is false when absent.
	Get(key []byte) (value []byte, ok bool, err error)
	// Update applies every mutation issued by fn atomically.
	Update(ctx context.Context, fn func(w Writer) error) error
	// Iterate visits keys in [lower, upper) in order (descending when reverse)
	// until fn returns false. A nil upper means no upper bound. Slices passed
	// to fn are only valid for the duration of the call.
	Iterate(lower, upper []byte, reverse bool, fn func(key, value []byte) bool) error
}

// Provider hands out namespaces and erases them.
type Provider interface {
	Namespace(segment string) Namespace
	Erase(ctx context.Context, segment string) error
}
