package feed

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/storage"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

var (
	ErrClosed      = errors.New("feed: closed")
	ErrNotWritable = errors.New("feed: not writable")
	ErrKeyMismatch = errors.New("feed: key mismatch")
	ErrNoKey       = errors.New("feed: no public key for new feed")
	ErrOutOfRange  = errors.New("feed: sequence out of range")
	ErrCorrupt     = errors.New("feed: entry checksum mismatch")
)

// Option configures a Feed.
type Option func(*Feed)

// WithSecretKey makes the feed writable.
func WithSecretKey(sk keys.SecretKey) Option {
	return func(f *Feed) { f.secret = sk }
}

// WithLogger sets the logger used for background failures.
func WithLogger(l logpkg.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// Feed is an open append-only log.
type Feed struct {
	src    Source
	logger logpkg.Logger

	ready  chan struct{}
	closed chan struct{}

	appendMu sync.Mutex

	mu        sync.Mutex
	bound     bool
	ns        storage.Namespace
	key       keys.PublicKey
	secret    keys.SecretKey
	length    uint64
	meta      Meta
	openErr   error
	closing   bool
	closeErr  error
	listeners []func()
	notifyCh  chan struct{}
}

// Open starts loading a feed from src and returns it immediately. Ready is
// closed once loading settles; Err reports whether it failed.
func Open(src Source, opts ...Option) *Feed {
	f := &Feed{
		src:      src,
		ready:    make(chan struct{}),
		closed:   make(chan struct{}),
		notifyCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logpkg.NewNop()
	}
	if s, ok := src.(boundSource); ok {
		f.bind(s.b)
	}
	go f.open()
	return f
}

func (f *Feed) bind(b Binding) {
	f.mu.Lock()
	f.bound = true
	f.ns = b.Namespace
	if f.key.IsZero() {
		f.key = b.Key
	}
	f.mu.Unlock()
}

func (f *Feed) open() {
	err := f.load()
	f.mu.Lock()
	f.openErr = err
	f.mu.Unlock()
	close(f.ready)
}

func (f *Feed) load() error {
	b, err := f.src.Bind(context.Background())
	if err != nil {
		return err
	}
	f.bind(b)

	stored, found, err := readMeta(b.Namespace)
	if err != nil {
		return err
	}
	secret := f.secret
	if b.ReadOnly {
		secret = nil
	}
	m, key, dirty, err := reconcileMeta(stored, found, b.Key, secret)
	if err != nil {
		return err
	}
	if dirty && !b.ReadOnly {
		if err := b.Namespace.Update(context.Background(), func(w storage.Writer) error {
			return writeMeta(w, m)
		}); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
	f.meta = m
	f.length = m.Length
	switch {
	case b.ReadOnly:
		f.secret = nil
	case len(m.SecretKey) > 0:
		f.secret = keys.SecretKey(m.SecretKey)
	}
	return nil
}

// Ready is closed once the feed finished loading, successfully or not.
func (f *Feed) Ready() <-chan struct{} { return f.ready }

// Closed is closed once the feed is closed, by whoever initiated it.
func (f *Feed) Closed() <-chan struct{} { return f.closed }

// Err returns the load failure, if any. It is nil until Ready is closed.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openErr
}

// Key returns the public key. ok is false while a deferred source is pending.
func (f *Feed) Key() (keys.PublicKey, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key, !f.key.IsZero()
}

// DiscoveryKey derives the discovery key; ok is false while the key is unknown.
func (f *Feed) DiscoveryKey() (keys.DiscoveryKey, bool) {
	k, ok := f.Key()
	if !ok {
		return keys.DiscoveryKey{}, false
	}
	return keys.Discovery(k), true
}

// Writable reports whether the feed holds its secret key.
func (f *Feed) Writable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.secret != nil
}

// Len returns the number of entries.
func (f *Feed) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.length
}

// await blocks until loading settles and reports whether the feed is usable.
func (f *Feed) await(ctx context.Context) error {
	select {
	case <-f.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	if f.closing {
		return ErrClosed
	}
	return nil
}

// Append appends entries as a single atomic batch and returns their sequence
// numbers. A storage failure closes the feed.
func (f *Feed) Append(ctx context.Context, data ...[]byte) ([]uint64, error) {
	if err := f.await(ctx); err != nil {
		return nil, err
	}
	if !f.Writable() {
		return nil, ErrNotWritable
	}
	if len(data) == 0 {
		return nil, nil
	}
	f.appendMu.Lock()
	defer f.appendMu.Unlock()

	f.mu.Lock()
	next := f.length
	m := f.meta
	ns := f.ns
	f.mu.Unlock()

	seqs := make([]uint64, len(data))
	m.Length = next + uint64(len(data))
	err := ns.Update(ctx, func(w storage.Writer) error {
		for i, d := range data {
			seqs[i] = next + uint64(i)
			if err := w.Set(keyEntry(seqs[i]), EncodeEntry(d)); err != nil {
				return err
			}
		}
		return writeMeta(w, m)
	})
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Warn("closing feed after storage failure", logpkg.Str("namespace", ns.Path()), logpkg.Err(err))
			f.shutdown()
		}
		return nil, err
	}

	f.mu.Lock()
	f.meta = m
	f.length = m.Length
	close(f.notifyCh)
	f.notifyCh = make(chan struct{})
	f.mu.Unlock()
	return seqs, nil
}

// OnClose registers fn to run once when the feed closes. If the feed is
// already closed fn runs immediately.
func (f *Feed) OnClose(fn func()) {
	f.mu.Lock()
	select {
	case <-f.closed:
		f.mu.Unlock()
		fn()
		return
	default:
	}
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// Close closes the feed. It is idempotent; later calls return the result of
// the first.
func (f *Feed) Close() error {
	<-f.ready
	if !f.shutdown() {
		<-f.closed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeErr
}

// shutdown transitions the feed to closed and notifies listeners. It returns
// false if another caller already did so.
func (f *Feed) shutdown() bool {
	f.mu.Lock()
	if f.closing {
		f.mu.Unlock()
		return false
	}
	f.closing = true
	ns := f.ns
	f.mu.Unlock()

	var err error
	if c, ok := ns.(io.Closer); ok {
		err = c.Close()
	}

	f.mu.Lock()
	f.closeErr = err
	listeners := f.listeners
	f.listeners = nil
	close(f.closed)
	close(f.notifyCh)
	f.notifyCh = make(chan struct{})
	f.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}
