package registry

import (
	"crypto/rand"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/substack/multifeed-storage/internal/alias"
	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/metrics"
	"github.com/substack/multifeed-storage/internal/pending"
	"github.com/substack/multifeed-storage/internal/storage"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Feeds opened by the registry share it.
func WithLogger(l logpkg.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithRand sets the entropy source for key generation.
func WithRand(rd io.Reader) Option {
	return func(r *Registry) { r.rand = rd }
}

// pendingHandle is a handle whose storage waits on a local name lookup.
type pendingHandle struct {
	feed    *feed.Feed
	binding *pending.Value[feed.Binding]
}

// Registry owns the open feed handles of one storage root.
type Registry struct {
	id      string
	aliases *alias.Index
	storage storage.Provider
	logger  logpkg.Logger
	metrics *metrics.Metrics
	rand    io.Reader

	feeds   *xsync.MapOf[string, *feed.Feed]
	dkeys   *xsync.MapOf[string, keys.PublicKey]
	names   *xsync.MapOf[string, keys.PublicKey]
	pending *xsync.MapOf[string, pendingHandle]

	// claimMu serializes local name claims and removals.
	claimMu sync.Mutex
	closed  atomic.Bool
}

// New builds a registry over an alias index and a storage provider. Each feed
// gets the namespace "f_<hex key>" of provider.
func New(aliases *alias.Index, provider storage.Provider, opts ...Option) *Registry {
	r := &Registry{
		id:      uuid.NewString(),
		aliases: aliases,
		storage: provider,
		rand:    rand.Reader,
		feeds:   xsync.NewMapOf[string, *feed.Feed](),
		dkeys:   xsync.NewMapOf[string, keys.PublicKey](),
		names:   xsync.NewMapOf[string, keys.PublicKey](),
		pending: xsync.NewMapOf[string, pendingHandle](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logpkg.NewNop()
	}
	r.logger = r.logger.WithComponent("registry").With(logpkg.Str("registry", r.id))
	return r
}

// ID identifies this registry instance in logs.
func (r *Registry) ID() string { return r.id }

func segmentFor(pk keys.PublicKey) string { return "f_" + pk.Hex() }

func (r *Registry) namespaceFor(pk keys.PublicKey) storage.Namespace {
	return r.storage.Namespace(segmentFor(pk))
}

// feedOptions puts the registry logger ahead of caller options so callers can
// override it.
func (r *Registry) feedOptions(extra []feed.Option) []feed.Option {
	return append([]feed.Option{feed.WithLogger(r.logger)}, extra...)
}

// openFeed instantiates a handle bound to pk's namespace.
func (r *Registry) openFeed(pk keys.PublicKey, secret keys.SecretKey, extra []feed.Option) *feed.Feed {
	opts := r.feedOptions(extra)
	if secret != nil {
		opts = append(opts, feed.WithSecretKey(secret))
	}
	return feed.Open(feed.Bound(r.namespaceFor(pk), pk), opts...)
}

// track evicts f once it closes, whoever closes it, or once its load fails.
// Only usable handles stay cached.
func (r *Registry) track(hexKey string, f *feed.Feed) {
	r.metrics.FeedOpened()
	f.OnClose(func() {
		if r.evict(hexKey, f) {
			r.logger.Debug("evicted closed feed", logpkg.Str("key", hexKey))
		}
	})
	go func() {
		<-f.Ready()
		if err := f.Err(); err != nil && r.evict(hexKey, f) {
			r.logger.Warn("evicted feed that failed to load", logpkg.Str("key", hexKey), logpkg.Err(err))
		}
	}()
}

// evict removes hexKey from the handle cache only if it still maps to f.
func (r *Registry) evict(hexKey string, f *feed.Feed) bool {
	removed := false
	r.feeds.Compute(hexKey, func(cur *feed.Feed, loaded bool) (*feed.Feed, bool) {
		if !loaded || cur != f {
			return cur, !loaded
		}
		removed = true
		return nil, true
	})
	if removed {
		r.metrics.FeedClosed()
	}
	return removed
}

// getByKey returns the open handle for pk, opening one with opts if needed.
func (r *Registry) getByKey(pk keys.PublicKey, opts []feed.Option) *feed.Feed {
	hexKey := pk.Hex()
	f, loaded := r.feeds.LoadOrCompute(hexKey, func() *feed.Feed {
		return r.openFeed(pk, nil, opts)
	})
	if !loaded {
		r.dkeys.Store(keys.Discovery(pk).Hex(), pk)
		r.track(hexKey, f)
	}
	return f
}

// keyOf resolves id to a public key using only the caches.
func (r *Registry) keyOf(id Identifier) (keys.PublicKey, bool) {
	switch id.kind {
	case kindKey:
		return id.key, true
	case kindName:
		return r.names.Load(id.name)
	}
	return keys.PublicKey{}, false
}

// IsOpen reports whether id refers to a currently open handle. It performs
// no I/O.
func (r *Registry) IsOpen(id Identifier) bool {
	pk, ok := r.keyOf(id)
	if !ok {
		return false
	}
	_, ok = r.feeds.Load(pk.Hex())
	return ok
}

// OpenKeys lists the public keys of every open handle, sorted.
func (r *Registry) OpenKeys() []keys.PublicKey {
	var out []keys.PublicKey
	r.feeds.Range(func(hexKey string, _ *feed.Feed) bool {
		if pk, err := keys.ParsePublicKey(hexKey); err == nil {
			out = append(out, pk)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}
