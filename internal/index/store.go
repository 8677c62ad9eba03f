package index

// Store is an ordered key-value store with buffered writes.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key []byte) (value []byte, ok bool, err error)
	// Put buffers a write of value under key.
	Put(key, value []byte) error
	// Delete buffers removal of key.
	Delete(key []byte) error
	// Scan visits every key with the given prefix in order until fn returns false.
	Scan(prefix []byte, fn func(key, value []byte) bool) error
	// Flush commits every write buffered before the call and then invokes done
	// on another goroutine.
	Flush(done func(error))
}
