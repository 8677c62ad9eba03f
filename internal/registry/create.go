package registry

import (
	"fmt"

	"github.com/substack/multifeed-storage/internal/alias"
	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/latch"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// CreateOptions are the per-feed options of a creation.
type CreateOptions struct {
	// Name is an optional local name bound to the feed.
	Name string
	// FeedOptions configure the handle when a new one is opened. They are
	// ignored when CreateRemote reuses an open handle.
	FeedOptions []feed.Option
}

// DoneFunc receives the outcome of a creation.
type DoneFunc func(f *feed.Feed, err error)

// Signals joined before a creation completes: the alias flush, the handle's
// readiness, and a checkpoint taken once the creation call itself is done.
const createSignals = 3

// CreateLocal generates a key pair and creates a writable feed for it.
//
// Errors returned directly mean nothing was created and done is never called.
// Otherwise the handle is returned at once and done runs exactly once, after
// the aliases are durable and the handle is ready.
func (r *Registry) CreateLocal(opts CreateOptions, done DoneFunc) (*feed.Feed, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	kp, err := keys.GenerateKeyPair(r.rand)
	if err != nil {
		return nil, err
	}
	return r.create(kp.Public, kp.Secret, opts, "local", done)
}

// CreateRemote creates, or reuses, the read-only feed for a known public key.
// If the feed is already open its handle is returned and only the aliases are
// written.
func (r *Registry) CreateRemote(pk keys.PublicKey, opts CreateOptions, done DoneFunc) (*feed.Feed, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if pk.IsZero() {
		return nil, keys.ErrInvalidKey
	}
	return r.create(pk, nil, opts, "remote", done)
}

func (r *Registry) create(pk keys.PublicKey, secret keys.SecretKey, opts CreateOptions, origin string, done DoneFunc) (*feed.Feed, error) {
	if opts.Name != "" {
		r.claimMu.Lock()
		defer r.claimMu.Unlock()
		if err := r.claimName(opts.Name, pk); err != nil {
			return nil, err
		}
	}

	hexKey := pk.Hex()
	dk := keys.Discovery(pk)
	f, loaded := r.feeds.LoadOrCompute(hexKey, func() *feed.Feed {
		return r.openFeed(pk, secret, opts.FeedOptions)
	})
	if !loaded {
		r.track(hexKey, f)
		r.metrics.FeedCreated(origin)
	}
	r.dkeys.Store(dk.Hex(), pk)
	if opts.Name != "" {
		r.names.Store(opts.Name, pk)
	}

	log := r.logger.With(logpkg.Str("key", hexKey), logpkg.Str("origin", origin))
	join := latch.New(createSignals, func(err error) {
		if err != nil {
			log.Warn("feed creation failed", logpkg.Err(err))
		} else {
			log.Debug("feed created", logpkg.Str("name", opts.Name))
		}
		if done != nil {
			done(f, err)
		}
	})

	if err := r.aliases.Put(alias.Record{Key: pk, Discovery: dk, Name: opts.Name}); err != nil {
		join.Fail(storeErr(err))
		return f, nil
	}
	r.aliases.Flush(func(err error) {
		if err != nil {
			join.Fail(storeErr(err))
			return
		}
		join.Done()
	})
	go func() {
		<-f.Ready()
		if err := f.Err(); err != nil {
			join.Fail(err)
			return
		}
		join.Done()
	}()
	join.Done()
	return f, nil
}

// claimName checks that name is free or already bound to pk. The caller holds
// claimMu, so the check and the cache insert that follows are atomic with
// respect to other claims.
func (r *Registry) claimName(name string, pk keys.PublicKey) error {
	if err := validateName(name); err != nil {
		return err
	}
	if cur, ok := r.names.Load(name); ok {
		if cur == pk {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	cur, ok, err := r.aliases.ByLocalName(name)
	r.metrics.AliasLookup("name", ok)
	if err != nil {
		return storeErr(err)
	}
	if ok && cur != pk {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	return nil
}
