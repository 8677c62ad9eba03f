package index

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
)

// ErrClosed is returned by operations on a closed PebbleStore.
var ErrClosed = errors.New("index: store closed")

// PebbleStore is a Store kept under a fixed key prefix of a pebblestore.DB.
// Buffered writes live in an indexed batch that is swapped out on Flush.
type PebbleStore struct {
	db     *pebblestore.DB
	prefix []byte

	mu     sync.Mutex
	batch  *pebble.Batch
	closed bool
}

var _ Store = (*PebbleStore)(nil)

// NewPebbleStore returns a store whose keys are stored below prefix in db.
func NewPebbleStore(db *pebblestore.DB, prefix []byte) *PebbleStore {
	return &PebbleStore{db: db, prefix: append([]byte(nil), prefix...), batch: db.NewIndexedBatch()}
}

func (s *PebbleStore) key(k []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}

func (s *PebbleStore) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, closer, err := s.batch.Get(s.key(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), true, nil
}

func (s *PebbleStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.batch.Set(s.key(key), value, nil)
}

func (s *PebbleStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.batch.Delete(s.key(key), nil)
}

func (s *PebbleStore) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	lo := s.key(prefix)
	iter, err := s.batch.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: pebblestore.PrefixEnd(lo)})
	if err != nil {
		return err
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		if !fn(iter.Key()[len(s.prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Flush commits the pending batch on a separate goroutine. Concurrent flushes
// are serialized; a flush that finds nothing pending completes immediately.
func (s *PebbleStore) Flush(done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	go func() {
		done(s.commit())
	}()
}

func (s *PebbleStore) commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.batch.Empty() {
		return nil
	}
	b := s.batch
	s.batch = s.db.NewIndexedBatch()
	defer b.Close()
	return s.db.CommitBatch(context.Background(), b)
}

// Close commits pending writes and releases the batch. The underlying DB is
// not closed.
func (s *PebbleStore) Close() error {
	err := s.commit()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.batch.Close()
	return err
}
