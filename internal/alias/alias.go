package alias

import (
	"github.com/substack/multifeed-storage/internal/index"
	"github.com/substack/multifeed-storage/internal/keys"
)

// Record is the set of aliases persisted for one feed.
type Record struct {
	Key       keys.PublicKey
	Discovery keys.DiscoveryKey
	// Name is the optional local name.
	Name string
}

// Index is a namespaced view over an index.Store. Lookups report absence with
// ok=false rather than an error. Writes are buffered until Flush completes.
type Index struct {
	store index.Store
}

// New wraps store.
func New(store index.Store) *Index { return &Index{store: store} }

// ByDiscoveryKey resolves a discovery key to its public key.
func (x *Index) ByDiscoveryKey(d keys.DiscoveryKey) (keys.PublicKey, bool, error) {
	return x.lookupKey(KeyDiscovery(d))
}

// ByLocalName resolves a local name to its public key.
func (x *Index) ByLocalName(name string) (keys.PublicKey, bool, error) {
	return x.lookupKey(KeyName(name))
}

// Exists reports whether the existence marker for pk is present.
func (x *Index) Exists(pk keys.PublicKey) (bool, error) {
	_, ok, err := x.store.Get(KeyExists(pk))
	return ok, err
}

// NamesOf lists the local names bound to pk, in order.
func (x *Index) NamesOf(pk keys.PublicKey) ([]string, error) {
	prefix := KeyNameInversePrefix(pk)
	var names []string
	err := x.store.Scan(prefix, func(k, _ []byte) bool {
		names = append(names, string(k[len(prefix):]))
		return true
	})
	return names, err
}

// Put buffers every relation of rec. The name relations are only written when
// rec.Name is set.
func (x *Index) Put(rec Record) error {
	key := rec.Key.Bytes()
	if rec.Name != "" {
		if err := x.store.Put(KeyName(rec.Name), key); err != nil {
			return err
		}
		if err := x.store.Put(KeyNameInverse(rec.Key, rec.Name), []byte{}); err != nil {
			return err
		}
	}
	if err := x.store.Put(KeyDiscovery(rec.Discovery), key); err != nil {
		return err
	}
	return x.store.Put(KeyExists(rec.Key), []byte{})
}

// Remove buffers deletion of every relation of pk, including all of its names.
func (x *Index) Remove(pk keys.PublicKey) error {
	names, err := x.NamesOf(pk)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := x.store.Delete(KeyName(name)); err != nil {
			return err
		}
		if err := x.store.Delete(KeyNameInverse(pk, name)); err != nil {
			return err
		}
	}
	if err := x.store.Delete(KeyDiscovery(keys.Discovery(pk))); err != nil {
		return err
	}
	return x.store.Delete(KeyExists(pk))
}

// Flush makes buffered writes durable and then calls done.
func (x *Index) Flush(done func(error)) { x.store.Flush(done) }

func (x *Index) lookupKey(k []byte) (keys.PublicKey, bool, error) {
	v, ok, err := x.store.Get(k)
	if err != nil || !ok {
		return keys.PublicKey{}, false, err
	}
	pk, err := keys.PublicKeyFromBytes(v)
	if err != nil {
		return keys.PublicKey{}, false, err
	}
	return pk, true, nil
}
