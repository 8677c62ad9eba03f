package index

import (
	"errors"
	"testing"
	"time"

	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
)

func openDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func flushSync(t *testing.T, s Store) {
	t.Helper()
	errCh := make(chan error, 1)
	s.Flush(func(err error) { errCh <- err })
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("flush: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for flush")
	}
}

func TestBufferedWritesVisibleBeforeFlush(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	s := NewPebbleStore(db, []byte("db/"))

	if err := s.Put([]byte("k!aa"), []byte{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := s.Get([]byte("k!aa")); err != nil || !ok {
		t.Fatalf("buffered get: ok=%v err=%v", ok, err)
	}
	if _, err := db.Get([]byte("db/k!aa")); !errors.Is(err, pebblestore.ErrNotFound) {
		t.Fatalf("write reached db before flush")
	}
	flushSync(t, s)
	if _, err := db.Get([]byte("db/k!aa")); err != nil {
		t.Fatalf("write missing after flush: %v", err)
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	s := NewPebbleStore(db, []byte("db/"))

	v, ok, err := s.Get([]byte("d!nothing"))
	if err != nil || ok || v != nil {
		t.Fatalf("get missing = %v %v %v", v, ok, err)
	}
}

func TestFlushDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t, dir)
	s := NewPebbleStore(db, []byte("db/"))
	if err := s.Put([]byte("l!alpha"), []byte("key")); err != nil {
		t.Fatalf("put: %v", err)
	}
	flushSync(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	db2 := openDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	s2 := NewPebbleStore(db2, []byte("db/"))
	v, ok, err := s2.Get([]byte("l!alpha"))
	if err != nil || !ok || string(v) != "key" {
		t.Fatalf("after reopen: %q %v %v", v, ok, err)
	}
}

func TestScanAndDelete(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	s := NewPebbleStore(db, []byte("db/"))

	for _, k := range []string{"L!aa!one", "L!aa!two", "L!bb!three"} {
		if err := s.Put([]byte(k), nil); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	flushSync(t, s)
	if err := s.Delete([]byte("L!aa!one")); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var keys []string
	if err := s.Scan([]byte("L!aa!"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 1 || keys[0] != "L!aa!two" {
		t.Fatalf("scan saw %v", keys)
	}
}

func TestClosedStoreRejectsOps(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	s := NewPebbleStore(db, []byte("db/"))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Put([]byte("x"), nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("put after close: %v", err)
	}
	errCh := make(chan error, 1)
	s.Flush(func(err error) { errCh <- err })
	if err := <-errCh; !errors.Is(err, ErrClosed) {
		t.Fatalf("flush after close: %v", err)
	}
}
