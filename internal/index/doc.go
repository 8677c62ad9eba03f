// Package index implements the small transactional key-value store that holds
// feed aliases.
//
// Writes are buffered and become durable only once a Flush completes. Reads
// observe buffered writes immediately, so a Put followed by a Get on the same
// Store returns the new value even before the flush.
//
//	s := index.NewPebbleStore(db, []byte("db/"))
//	_ = s.Put([]byte("k!ab"), nil)
//	s.Flush(func(err error) { /* durable or failed */ })
package index
