package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substack/multifeed-storage/internal/alias"
	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/index"
	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/storage"
)

// A name looked up after its key was opened directly binds to the same feed
// without taking over as writer.
func TestNameResolvesToKeyOpenedMeanwhile(t *testing.T) {
	dir := t.TempDir()

	e := openEnv(t, dir)
	r := New(e.aliases, e.provider)
	f, pk := createLocal(t, r, "alpha")
	_, err := f.Append(context.Background(), []byte("one"))
	require.NoError(t, err)
	require.NoError(t, r.Shutdown())
	e.close(t)

	e2 := openEnv(t, dir)
	defer e2.close(t)
	r2 := New(e2.aliases, e2.provider)
	defer r2.Shutdown()

	byKey, err := r2.Get(KeyIdentifier(pk))
	require.NoError(t, err)
	byName, err := r2.Get(NameIdentifier("alpha"))
	require.NoError(t, err)
	awaitReady(t, byKey)
	awaitReady(t, byName)

	require.NoError(t, byName.Err())
	got, ok := byName.Key()
	require.True(t, ok)
	assert.Equal(t, pk, got)
	assert.NotSame(t, byKey, byName)
	assert.EqualValues(t, 1, byName.Len())
	assert.True(t, byKey.Writable())
	assert.False(t, byName.Writable())
	_, err = byName.Append(context.Background(), []byte("two"))
	assert.ErrorIs(t, err, feed.ErrNotWritable)

	again, err := r2.Get(NameIdentifier("alpha"))
	require.NoError(t, err)
	assert.Same(t, byKey, again)
	assert.ElementsMatch(t, []keys.PublicKey{pk}, r2.OpenKeys())
	assert.True(t, r2.IsOpen(NameIdentifier("alpha")))
}

func TestFailedLoadIsEvicted(t *testing.T) {
	e := newEnv(t)
	r := newRegistry(t, e)
	pk := newPublicKey(t)
	require.NoError(t, e.provider.Namespace(segmentFor(pk)).Update(context.Background(), func(w storage.Writer) error {
		return w.Set([]byte("meta"), []byte("{not json"))
	}))

	f, err := r.Get(KeyIdentifier(pk))
	require.NoError(t, err)
	awaitReady(t, f)
	require.Error(t, f.Err())

	require.Eventually(t, func() bool { return !r.IsOpen(KeyIdentifier(pk)) }, waitTimeout, 10*time.Millisecond)
	assert.Empty(t, r.OpenKeys())

	again, err := r.Get(KeyIdentifier(pk))
	require.NoError(t, err)
	assert.NotSame(t, f, again)
}

func TestGetPassesFeedOptions(t *testing.T) {
	e := newEnv(t)
	r := newRegistry(t, e)
	kp, err := keys.GenerateKeyPair(nil)
	require.NoError(t, err)

	f, err := r.Get(KeyIdentifier(kp.Public), feed.WithSecretKey(kp.Secret))
	require.NoError(t, err)
	awaitReady(t, f)
	require.NoError(t, f.Err())
	assert.True(t, f.Writable())
	seqs, err := f.Append(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, seqs)
}

func TestGetIgnoresOptionsForOpenHandle(t *testing.T) {
	e := newEnv(t)
	r := newRegistry(t, e)
	kp, err := keys.GenerateKeyPair(nil)
	require.NoError(t, err)
	remote := createRemote(t, r, kp.Public, "")

	again, err := r.Get(KeyIdentifier(kp.Public), feed.WithSecretKey(kp.Secret))
	require.NoError(t, err)
	assert.Same(t, remote, again)
	assert.False(t, again.Writable())
}

func TestCreateRemotePassesFeedOptions(t *testing.T) {
	e := newEnv(t)
	r := newRegistry(t, e)
	kp, err := keys.GenerateKeyPair(nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	f, err := r.CreateRemote(kp.Public, CreateOptions{FeedOptions: []feed.Option{feed.WithSecretKey(kp.Secret)}},
		func(_ *feed.Feed, err error) { done <- err })
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, done))
	assert.True(t, f.Writable())
}

// blockingGetStore holds every Get until gate is closed.
type blockingGetStore struct {
	index.Store
	gate <-chan struct{}
}

func (s blockingGetStore) Get(key []byte) ([]byte, bool, error) {
	<-s.gate
	return s.Store.Get(key)
}

func TestNameResolvedAfterShutdownFails(t *testing.T) {
	e := newEnv(t)
	createLocal(t, newRegistry(t, e), "alpha")

	gate := make(chan struct{})
	r := New(alias.New(blockingGetStore{Store: e.store, gate: gate}), e.provider)
	f, err := r.Get(NameIdentifier("alpha"))
	require.NoError(t, err)

	shut := make(chan error, 1)
	go func() { shut <- r.Shutdown() }()
	require.Eventually(t, r.closed.Load, waitTimeout, 10*time.Millisecond)
	close(gate)
	require.NoError(t, awaitDone(t, shut))

	awaitReady(t, f)
	assert.ErrorIs(t, f.Err(), ErrClosed)
	assert.Empty(t, r.OpenKeys())
	assert.False(t, r.IsOpen(NameIdentifier("alpha")))
}
