package registry

import (
	"context"
	"fmt"

	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/keys"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// Close closes the open handle for id. It fails with ErrNotLoaded, and does
// nothing else, when no handle is open.
func (r *Registry) Close(id Identifier) error {
	pk, ok := r.keyOf(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}
	hexKey := pk.Hex()
	f, ok := r.feeds.Load(hexKey)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}
	r.evict(hexKey, f)
	return f.Close()
}

// CloseAll closes every open handle concurrently. It returns the first failure
// it observes without waiting for the remaining closes.
func (r *Registry) CloseAll() error {
	type open struct {
		hexKey string
		feed   *feed.Feed
	}
	var handles []open
	r.feeds.Range(func(hexKey string, f *feed.Feed) bool {
		handles = append(handles, open{hexKey, f})
		return true
	})
	if len(handles) == 0 {
		return nil
	}

	errc := make(chan error, len(handles))
	for _, h := range handles {
		go func(h open) {
			r.evict(h.hexKey, h.feed)
			errc <- h.feed.Close()
		}(h)
	}
	for range handles {
		if err := <-errc; err != nil {
			r.logger.Warn("close all failed", logpkg.Err(err))
			return err
		}
	}
	return nil
}

// Delete closes the feed if it is open, erases its storage namespace and
// removes every alias that points at it. Deleting a feed this registry has
// never seen fails with ErrNotFound.
func (r *Registry) Delete(ctx context.Context, id Identifier) error {
	var pk keys.PublicKey
	switch id.kind {
	case kindKey:
		pk = id.key
	case kindName:
		var err error
		if pk, err = r.FromLocalName(id.name); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	hexKey := pk.Hex()

	f, open := r.feeds.Load(hexKey)
	if !open {
		exists, err := r.Has(pk)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, hexKey)
		}
	} else {
		r.evict(hexKey, f)
		if err := f.Close(); err != nil {
			return err
		}
	}

	if err := r.storage.Erase(ctx, segmentFor(pk)); err != nil {
		return storeErr(err)
	}

	r.claimMu.Lock()
	err := r.aliases.Remove(pk)
	r.dkeys.Delete(keys.Discovery(pk).Hex())
	r.names.Range(func(name string, cur keys.PublicKey) bool {
		if cur == pk {
			r.names.Delete(name)
		}
		return true
	})
	r.claimMu.Unlock()
	if err != nil {
		return storeErr(err)
	}

	flushed := make(chan error, 1)
	r.aliases.Flush(func(err error) { flushed <- err })
	if err := <-flushed; err != nil {
		return storeErr(err)
	}
	r.metrics.FeedDeleted()
	r.logger.Info("feed deleted", logpkg.Str("key", hexKey))
	return nil
}

// Shutdown closes every handle, including those still waiting on a name
// lookup, and makes further creations and lookups fail with ErrClosed.
func (r *Registry) Shutdown() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	var pendingFeeds []*feed.Feed
	r.pending.Range(func(_ string, h pendingHandle) bool {
		pendingFeeds = append(pendingFeeds, h.feed)
		return true
	})
	err := r.CloseAll()
	for _, f := range pendingFeeds {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
