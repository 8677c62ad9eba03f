package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substack/multifeed-storage/internal/alias"
	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/index"
)

// gatedStore holds every flush until gate is closed.
type gatedStore struct {
	index.Store
	gate    <-chan struct{}
	flushed *bool
}

func (s gatedStore) Flush(done func(error)) {
	go func() {
		<-s.gate
		*s.flushed = true
		s.Store.Flush(done)
	}()
}

func aliasWithGate(e *env, gate <-chan struct{}, flushed *bool) *alias.Index {
	return alias.New(gatedStore{Store: e.store, gate: gate, flushed: flushed})
}

// A handle that is already ready when creation returns still completes only
// after the flush.
func TestCreateJoinsFlushWithReadyHandle(t *testing.T) {
	e := newEnv(t)
	r := newRegistry(t, e)
	pk := newPublicKey(t)
	f := createRemote(t, r, pk, "")
	awaitReady(t, f)

	gate := make(chan struct{})
	var flushed bool
	r.aliases = aliasWithGate(e, gate, &flushed)
	done := make(chan error, 1)
	again, err := r.CreateRemote(pk, CreateOptions{Name: "late"}, func(_ *feed.Feed, err error) { done <- err })
	require.NoError(t, err)
	assert.Same(t, f, again)

	select {
	case <-done:
		t.Fatalf("completed before flush")
	default:
	}
	close(gate)
	require.NoError(t, awaitDone(t, done))
	assert.True(t, flushed)
}
