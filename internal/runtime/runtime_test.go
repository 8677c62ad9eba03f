package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/substack/multifeed-storage/internal/config"
	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/registry"
	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
)

func TestOpenCloseHealth(t *testing.T) {
	dir := t.TempDir()
	rt, err := Open(Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("expected health failure after close")
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Fsync = "sometimes"
	if _, err := Open(Options{DataDir: t.TempDir(), Config: cfg}); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestFeedsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rt, err := Open(Options{DataDir: dir, Config: cfgpkg.Default(), Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	done := make(chan error, 1)
	f, err := rt.Registry().CreateLocal(registry.CreateOptions{Name: "notes"}, func(_ *feed.Feed, err error) { done <- err })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("create done: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("create did not complete")
	}
	if _, err := f.Append(ctx, []byte("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	pk, _ := f.Key()
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rt, err = Open(Options{DataDir: dir, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt.Close()
	got, err := rt.Registry().FromLocalName("notes")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != pk {
		t.Fatalf("resolved %s, want %s", got, pk)
	}
	h, err := rt.Registry().Get(registry.KeyIdentifier(pk))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, err := h.Get(ctx, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}
