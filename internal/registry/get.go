package registry

import (
	"fmt"

	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/pending"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// Get returns a handle for id without blocking.
//
// A key, or a name already cached, yields the open handle for that key,
// opening it with opts if needed. An unknown name yields a handle that binds
// once the name is resolved; concurrent calls for the same unresolved name
// share it. opts only apply to handles this call opens.
func (r *Registry) Get(id Identifier, opts ...feed.Option) (*feed.Feed, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	switch id.kind {
	case kindKey:
		return r.getByKey(id.key, opts), nil
	case kindName:
		if err := validateName(id.name); err != nil {
			return nil, err
		}
		if pk, ok := r.names.Load(id.name); ok {
			return r.getByKey(pk, opts), nil
		}
		return r.getByPendingName(id.name, opts), nil
	}
	return nil, fmt.Errorf("registry: invalid identifier")
}

func (r *Registry) getByPendingName(name string, opts []feed.Option) *feed.Feed {
	h, loaded := r.pending.LoadOrCompute(name, func() pendingHandle {
		p := pending.New[feed.Binding]()
		return pendingHandle{
			feed:    feed.Open(feed.Deferred(p), r.feedOptions(opts)...),
			binding: p,
		}
	})
	if !loaded {
		r.metrics.PendingAdded()
		go r.resolveName(name, h)
	}
	return h.feed
}

// resolveName settles a pending handle against the alias index. On success
// the handle joins the caches as if it had been opened by key. If a handle
// for the key was opened meanwhile, that one stays cached and the pending
// handle binds to the same namespace read-only, leaving the cached handle the
// only writer.
func (r *Registry) resolveName(name string, h pendingHandle) {
	defer func() {
		r.pending.Compute(name, func(cur pendingHandle, loaded bool) (pendingHandle, bool) {
			return cur, !loaded || cur.feed == h.feed
		})
		r.metrics.PendingSettled()
	}()

	pk, ok, err := r.aliases.ByLocalName(name)
	r.metrics.AliasLookup("name", ok)
	switch {
	case err != nil:
		h.binding.Fail(storeErr(err))
		return
	case !ok:
		r.logger.Debug("local name not found", logpkg.Str("name", name))
		h.binding.Fail(fmt.Errorf("%w: local name %q", ErrNotFound, name))
		return
	}

	if r.closed.Load() {
		h.binding.Fail(ErrClosed)
		return
	}

	r.names.Store(name, pk)
	r.dkeys.Store(keys.Discovery(pk).Hex(), pk)
	binding := feed.Binding{Namespace: r.namespaceFor(pk), Key: pk}
	hexKey := pk.Hex()
	if cur, loaded := r.feeds.LoadOrStore(hexKey, h.feed); loaded && cur != h.feed {
		r.logger.Debug("name resolved to an open feed", logpkg.Str("name", name), logpkg.Str("key", hexKey))
		binding.ReadOnly = true
	} else {
		r.track(hexKey, h.feed)
	}
	h.binding.Resolve(binding)
}

// FromDiscoveryKey resolves a discovery key to its public key.
func (r *Registry) FromDiscoveryKey(dk keys.DiscoveryKey) (keys.PublicKey, error) {
	if pk, ok := r.dkeys.Load(dk.Hex()); ok {
		return pk, nil
	}
	pk, ok, err := r.aliases.ByDiscoveryKey(dk)
	r.metrics.AliasLookup("discovery", ok)
	if err != nil {
		return keys.PublicKey{}, storeErr(err)
	}
	if !ok {
		return keys.PublicKey{}, fmt.Errorf("%w: discovery key %s", ErrNotFound, dk.Hex())
	}
	r.dkeys.Store(dk.Hex(), pk)
	return pk, nil
}

// FromLocalName resolves a local name to its public key.
func (r *Registry) FromLocalName(name string) (keys.PublicKey, error) {
	if pk, ok := r.names.Load(name); ok {
		return pk, nil
	}
	pk, ok, err := r.aliases.ByLocalName(name)
	r.metrics.AliasLookup("name", ok)
	if err != nil {
		return keys.PublicKey{}, storeErr(err)
	}
	if !ok {
		return keys.PublicKey{}, fmt.Errorf("%w: local name %q", ErrNotFound, name)
	}
	r.names.Store(name, pk)
	return pk, nil
}

// Has reports whether pk was ever created or loaded through a registry over
// the same index. Open handles answer without I/O.
func (r *Registry) Has(pk keys.PublicKey) (bool, error) {
	if _, ok := r.feeds.Load(pk.Hex()); ok {
		return true, nil
	}
	ok, err := r.aliases.Exists(pk)
	r.metrics.AliasLookup("exists", ok)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}
