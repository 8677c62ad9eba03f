package feed

import (
	"context"

	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/pending"
	"github.com/substack/multifeed-storage/internal/storage"
)

// Binding is the storage namespace and public key a feed is opened over.
type Binding struct {
	Namespace storage.Namespace
	Key       keys.PublicKey
	// ReadOnly ignores any secret key, stored or passed, so the feed never
	// writes to Namespace after loading.
	ReadOnly bool
}

// Source supplies a feed's Binding, possibly after a delay.
type Source interface {
	Bind(ctx context.Context) (Binding, error)
}

type boundSource struct{ b Binding }

func (s boundSource) Bind(context.Context) (Binding, error) { return s.b, nil }

// Bound is a Source whose namespace and key are already known.
func Bound(ns storage.Namespace, key keys.PublicKey) Source {
	return boundSource{b: Binding{Namespace: ns, Key: key}}
}

type deferredSource struct{ p *pending.Value[Binding] }

func (s deferredSource) Bind(ctx context.Context) (Binding, error) { return s.p.Wait(ctx) }

// Deferred is a Source that waits for p to settle. A failed p fails the open
// of every feed built on it.
func Deferred(p *pending.Value[Binding]) Source {
	return deferredSource{p: p}
}
