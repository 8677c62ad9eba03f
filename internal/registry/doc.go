// Package registry manages a collection of feeds and the aliases they are
// known by.
//
// A Registry keeps every open feed handle keyed by the hex form of its public
// key, and two alias caches in front of the persistent alias index: discovery
// key to public key and local name to public key. Misses fall through to the
// index.
//
// # Creation
//
// CreateLocal and CreateRemote return the handle immediately. Their completion
// callback runs exactly once, after both the alias flush and the handle's
// readiness have been observed, or as soon as either reports a failure.
//
// # Lookup
//
// Get classifies its identifier once (public key or local name) and returns a
// handle without blocking. A local name not yet seen by this instance yields a
// handle whose storage is bound only after the name is resolved against the
// index; if the name is unknown, every operation on that handle fails with
// ErrNotFound.
//
// # Teardown
//
// Close, CloseAll and Delete manage the handle cache. A handle that closes
// itself (for example after a storage failure) evicts itself, so the cache
// only ever holds open handles.
package registry
