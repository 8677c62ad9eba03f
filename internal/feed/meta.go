package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/storage"
)

// Meta is the per-feed metadata record.
type Meta struct {
	Key         string `json:"key"`
	SecretKey   []byte `json:"secretKey,omitempty"`
	CreatedAtMs int64  `json:"createdAtMs"`
	Length      uint64 `json:"length"`
}

func readMeta(ns storage.Namespace) (Meta, bool, error) {
	b, ok, err := ns.Get(metaKey)
	if err != nil || !ok {
		return Meta{}, false, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, false, fmt.Errorf("feed: corrupt meta in %s: %w", ns.Path(), err)
	}
	return m, true, nil
}

func writeMeta(w storage.Writer, m Meta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return w.Set(metaKey, b)
}

// reconcileMeta merges the stored record (if any) with the bound key and the
// caller-supplied secret key. It reports whether the record must be rewritten.
func reconcileMeta(stored Meta, found bool, key keys.PublicKey, secret keys.SecretKey) (Meta, keys.PublicKey, bool, error) {
	dirty := false
	if found {
		pk, err := keys.ParsePublicKey(stored.Key)
		if err != nil {
			return Meta{}, key, false, err
		}
		if !key.IsZero() && pk != key {
			return Meta{}, key, false, fmt.Errorf("%w: stored %s, opened with %s", ErrKeyMismatch, pk, key)
		}
		key = pk
	} else {
		if key.IsZero() {
			return Meta{}, key, false, ErrNoKey
		}
		stored = Meta{Key: key.Hex(), CreatedAtMs: time.Now().UnixMilli()}
		dirty = true
	}
	if secret != nil {
		if !keys.Owns(key, secret) {
			return Meta{}, key, false, fmt.Errorf("%w: secret key does not own %s", ErrKeyMismatch, key)
		}
		if len(stored.SecretKey) == 0 {
			stored.SecretKey = append([]byte(nil), secret...)
			dirty = true
		}
	}
	return stored, key, dirty, nil
}
