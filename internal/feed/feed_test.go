package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/pending"
	"github.com/substack/multifeed-storage/internal/storage"
	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
)

func newTestProvider(t *testing.T) *storage.PebbleProvider {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewProvider(db)
}

func newKeyPair(t *testing.T) keys.KeyPair {
	t.Helper()
	kp, err := keys.GenerateKeyPair(nil)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	return kp
}

func waitReady(t *testing.T, f *Feed) {
	t.Helper()
	select {
	case <-f.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for ready")
	}
}

func openLocal(t *testing.T, p *storage.PebbleProvider, kp keys.KeyPair) *Feed {
	t.Helper()
	f := Open(Bound(p.Namespace("f_"+kp.Public.Hex()), kp.Public), WithSecretKey(kp.Secret))
	waitReady(t, f)
	if err := f.Err(); err != nil {
		t.Fatalf("open: %v", err)
	}
	return f
}

func TestAppendAssignsSequential(t *testing.T) {
	p := newTestProvider(t)
	f := openLocal(t, p, newKeyPair(t))
	ctx := context.Background()

	seqs, err := f.Append(ctx, []byte("a"), []byte("b"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 0 || seqs[1] != 1 {
		t.Fatalf("unexpected seqs %v", seqs)
	}
	if f.Len() != 2 {
		t.Fatalf("len = %d", f.Len())
	}
	got, err := f.Get(ctx, 1)
	if err != nil || string(got) != "b" {
		t.Fatalf("get 1 = %q %v", got, err)
	}
	if _, err := f.Get(ctx, 2); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestReadForwardAndReverse(t *testing.T) {
	p := newTestProvider(t)
	f := openLocal(t, p, newKeyPair(t))
	ctx := context.Background()
	for _, s := range []string{"0", "1", "2", "3", "4"} {
		if _, err := f.Append(ctx, []byte(s)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	fwd, err := f.Read(ctx, ReadOptions{Start: 1, Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(fwd) != 2 || fwd[0].Seq != 1 || string(fwd[1].Data) != "2" {
		t.Fatalf("forward read = %+v", fwd)
	}

	rev, err := f.Read(ctx, ReadOptions{Start: 100, Limit: 3, Reverse: true})
	if err != nil {
		t.Fatalf("reverse read: %v", err)
	}
	if len(rev) != 3 || rev[0].Seq != 4 || rev[2].Seq != 2 {
		t.Fatalf("reverse read = %+v", rev)
	}

	past, err := f.Read(ctx, ReadOptions{Start: 5})
	if err != nil || len(past) != 0 {
		t.Fatalf("read past end = %+v %v", past, err)
	}
}

func TestReopenRestoresLengthAndSecret(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	f := openLocal(t, p, kp)
	if _, err := f.Append(context.Background(), []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f2 := Open(Bound(p.Namespace("f_"+kp.Public.Hex()), kp.Public))
	waitReady(t, f2)
	if err := f2.Err(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if f2.Len() != 1 {
		t.Fatalf("len after reopen = %d", f2.Len())
	}
	if !f2.Writable() {
		t.Fatalf("expected stored secret key to make feed writable")
	}
}

func TestRemoteFeedNotWritable(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	f := Open(Bound(p.Namespace("f_"+kp.Public.Hex()), kp.Public))
	waitReady(t, f)
	if _, err := f.Append(context.Background(), []byte("x")); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
}

func TestKeyMismatch(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	other := newKeyPair(t)
	ns := p.Namespace("f_shared")
	f := Open(Bound(ns, kp.Public))
	waitReady(t, f)
	_ = f.Close()

	g := Open(Bound(ns, other.Public))
	waitReady(t, g)
	if !errors.Is(g.Err(), ErrKeyMismatch) {
		t.Fatalf("expected key mismatch, got %v", g.Err())
	}

	h := Open(Bound(p.Namespace("f_h"), kp.Public), WithSecretKey(other.Secret))
	waitReady(t, h)
	if !errors.Is(h.Err(), ErrKeyMismatch) {
		t.Fatalf("expected foreign secret to be rejected, got %v", h.Err())
	}
}

func TestDeferredSourceFailure(t *testing.T) {
	notFound := errors.New("feed not found")
	src := pending.New[Binding]()
	f := Open(Deferred(src))
	if _, ok := f.Key(); ok {
		t.Fatalf("key known before resolution")
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.Append(context.Background(), []byte("queued"))
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	src.Fail(notFound)

	select {
	case err := <-errCh:
		if !errors.Is(err, notFound) {
			t.Fatalf("queued op got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("queued op never settled")
	}
	if !errors.Is(f.Err(), notFound) {
		t.Fatalf("Err() = %v", f.Err())
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close of failed feed: %v", err)
	}
}

func TestDeferredSourceResolves(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	local := openLocal(t, p, kp)
	if _, err := local.Append(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = local.Close()

	src := pending.New[Binding]()
	f := Open(Deferred(src))
	src.Resolve(Binding{Namespace: p.Namespace("f_" + kp.Public.Hex()), Key: kp.Public})
	got, err := f.Get(context.Background(), 0)
	if err != nil || string(got) != "hello" {
		t.Fatalf("get via deferred = %q %v", got, err)
	}
	if k, ok := f.Key(); !ok || k != kp.Public {
		t.Fatalf("key after resolution = %v %v", k, ok)
	}
}

func TestReadOnlyBindingIgnoresSecret(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	local := openLocal(t, p, kp)
	if _, err := local.Append(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	defer local.Close()

	src := pending.New[Binding]()
	f := Open(Deferred(src), WithSecretKey(kp.Secret))
	src.Resolve(Binding{Namespace: p.Namespace("f_" + kp.Public.Hex()), Key: kp.Public, ReadOnly: true})
	waitReady(t, f)
	if err := f.Err(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.Writable() {
		t.Fatalf("read-only feed is writable")
	}
	if _, err := f.Append(context.Background(), []byte("x")); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("append = %v, want ErrNotWritable", err)
	}
	if got, err := f.Get(context.Background(), 0); err != nil || string(got) != "hello" {
		t.Fatalf("get = %q %v", got, err)
	}
}

func TestCloseIdempotentAndListeners(t *testing.T) {
	p := newTestProvider(t)
	f := openLocal(t, p, newKeyPair(t))
	var calls atomic.Int32
	f.OnClose(func() { calls.Add(1) })

	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("listener ran %d times", calls.Load())
	}
	late := false
	f.OnClose(func() { late = true })
	if !late {
		t.Fatalf("listener registered after close did not run")
	}
	if _, err := f.Append(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("append after close: %v", err)
	}
}

type failingNamespace struct {
	storage.Namespace
	updateErr error
	closeErr  error
	failAfter int
	updates   int
}

func (n *failingNamespace) Update(ctx context.Context, fn func(w storage.Writer) error) error {
	n.updates++
	if n.updates > n.failAfter {
		return n.updateErr
	}
	return n.Namespace.Update(ctx, fn)
}

func (n *failingNamespace) Close() error { return n.closeErr }

func TestStorageFailureClosesFeed(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	ioErr := errors.New("disk on fire")
	ns := &failingNamespace{Namespace: p.Namespace("f_x"), updateErr: ioErr, failAfter: 1}
	f := Open(Bound(ns, kp.Public), WithSecretKey(kp.Secret))
	waitReady(t, f)
	if err := f.Err(); err != nil {
		t.Fatalf("open: %v", err)
	}
	closedBy := make(chan struct{})
	f.OnClose(func() { close(closedBy) })

	if _, err := f.Append(context.Background(), []byte("x")); !errors.Is(err, ioErr) {
		t.Fatalf("expected storage error verbatim, got %v", err)
	}
	select {
	case <-closedBy:
	case <-time.After(time.Second):
		t.Fatalf("feed did not close itself")
	}
	select {
	case <-f.Closed():
	default:
		t.Fatalf("Closed channel still open")
	}
}

func TestCloseReportsStorageCloseError(t *testing.T) {
	p := newTestProvider(t)
	kp := newKeyPair(t)
	closeErr := errors.New("release failed")
	ns := &failingNamespace{Namespace: p.Namespace("f_y"), closeErr: closeErr, failAfter: 1 << 30}
	f := Open(Bound(ns, kp.Public))
	waitReady(t, f)
	if err := f.Close(); !errors.Is(err, closeErr) {
		t.Fatalf("close = %v", err)
	}
	if err := f.Close(); !errors.Is(err, closeErr) {
		t.Fatalf("second close should repeat first result, got %v", err)
	}
}

func TestWaitForAppendWake(t *testing.T) {
	p := newTestProvider(t)
	f := openLocal(t, p, newKeyPair(t))

	done := make(chan struct{})
	go func() {
		if !f.WaitForAppend(500 * time.Millisecond) {
			t.Errorf("expected wake by append")
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if _, err := f.Append(context.Background(), []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for waiter to wake")
	}
}

func TestWaitForAppendTimeout(t *testing.T) {
	p := newTestProvider(t)
	f := openLocal(t, p, newKeyPair(t))
	if f.WaitForAppend(50 * time.Millisecond) {
		t.Fatalf("expected timeout")
	}
}
