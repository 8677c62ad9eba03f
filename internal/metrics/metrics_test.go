package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
)

func TestRegistryCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m.FeedOpened()
	m.FeedOpened()
	m.FeedClosed()
	if got := testutil.ToFloat64(m.openFeeds); got != 1 {
		t.Fatalf("open feeds = %v, want 1", got)
	}
	m.FeedCreated("local")
	m.FeedCreated("remote")
	m.FeedCreated("local")
	if got := testutil.ToFloat64(m.feedsCreated.WithLabelValues("local")); got != 2 {
		t.Fatalf("local creations = %v, want 2", got)
	}
	m.AliasLookup("name", true)
	m.AliasLookup("name", false)
	m.AliasLookup("name", false)
	if got := testutil.ToFloat64(m.aliasLookups.WithLabelValues("name", "miss")); got != 2 {
		t.Fatalf("name misses = %v, want 2", got)
	}
}

func TestStorageHook(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var hook pebblestore.MetricsHook = m
	hook.ObserveBatchCommit(time.Millisecond, 3, 120)
	hook.ObserveWrite(time.Millisecond, 10)
	if got := testutil.ToFloat64(m.batchOps); got != 3 {
		t.Fatalf("batch ops = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.storageBytes.WithLabelValues("batch")); got != 120 {
		t.Fatalf("batch bytes = %v, want 120", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.FeedOpened()
	m.FeedCreated("local")
	m.AliasLookup("discovery", true)
	m.ObserveRead(time.Millisecond, 1)
	m.PendingAdded()
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestPebbleCollector(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	c := NewPebbleCollector(db)
	if n := testutil.CollectAndCount(c); n != 7 {
		t.Fatalf("collected %d metrics, want 7", n)
	}
}
