package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
)

const sep = '/'

// PebbleProvider maps namespaces onto key prefixes of one pebblestore.DB.
type PebbleProvider struct {
	db   *pebblestore.DB
	root string
}

var _ Provider = (*PebbleProvider)(nil)

// NewProvider returns a provider rooted at the top of db's keyspace.
func NewProvider(db *pebblestore.DB) *PebbleProvider {
	return &PebbleProvider{db: db}
}

// Sub returns a provider whose namespaces all live below segment.
func (p *PebbleProvider) Sub(segment string) *PebbleProvider {
	return &PebbleProvider{db: p.db, root: p.join(segment)}
}

// Namespace returns the namespace for segment. It performs no I/O.
func (p *PebbleProvider) Namespace(segment string) Namespace {
	path := p.join(segment)
	return &pebbleNamespace{db: p.db, path: segment, prefix: []byte(path + string(sep))}
}

// Erase removes every key stored under segment.
func (p *PebbleProvider) Erase(ctx context.Context, segment string) error {
	if strings.TrimSpace(segment) == "" {
		return errors.New("storage: empty segment")
	}
	return p.db.DeletePrefix(ctx, []byte(p.join(segment)+string(sep)))
}

func (p *PebbleProvider) join(segment string) string {
	if p.root == "" {
		return segment
	}
	return p.root + string(sep) + segment
}

type pebbleNamespace struct {
	db     *pebblestore.DB
	path   string
	prefix []byte
}

func (n *pebbleNamespace) Path() string { return n.path }

func (n *pebbleNamespace) key(k []byte) []byte {
	out := make([]byte, 0, len(n.prefix)+len(k))
	out = append(out, n.prefix...)
	return append(out, k...)
}

func (n *pebbleNamespace) Get(key []byte) ([]byte, bool, error) {
	v, err := n.db.Get(n.key(key))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (n *pebbleNamespace) Update(ctx context.Context, fn func(w Writer) error) error {
	b := n.db.NewBatch()
	defer b.Close()
	if err := fn(&batchWriter{ns: n, b: b}); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	return n.db.CommitBatch(ctx, b)
}

func (n *pebbleNamespace) Iterate(lower, upper []byte, reverse bool, fn func(key, value []byte) bool) error {
	lo := n.key(lower)
	var hi []byte
	if upper != nil {
		hi = n.key(upper)
	} else {
		hi = pebblestore.PrefixEnd(n.prefix)
	}
	iter, err := n.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	defer iter.Close()

	var ok bool
	if reverse {
		ok = iter.Last()
	} else {
		ok = iter.First()
	}
	for ok {
		if !fn(iter.Key()[len(n.prefix):], iter.Value()) {
			break
		}
		if reverse {
			ok = iter.Prev()
		} else {
			ok = iter.Next()
		}
	}
	return iter.Error()
}

type batchWriter struct {
	ns *pebbleNamespace
	b  *pebble.Batch
}

func (w *batchWriter) Set(key, value []byte) error { return w.b.Set(w.ns.key(key), value, nil) }
func (w *batchWriter) Delete(key []byte) error     { return w.b.Delete(w.ns.key(key), nil) }
