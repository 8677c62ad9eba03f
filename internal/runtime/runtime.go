package runtime

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/substack/multifeed-storage/internal/alias"
	cfgpkg "github.com/substack/multifeed-storage/internal/config"
	"github.com/substack/multifeed-storage/internal/index"
	"github.com/substack/multifeed-storage/internal/metrics"
	"github.com/substack/multifeed-storage/internal/registry"
	"github.com/substack/multifeed-storage/internal/storage"
	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// indexPrefix is where the alias index lives; feed namespaces are "f_<hex>/".
var indexPrefix = []byte("db/")

// Options for building the Runtime. Zero DataDir and Fsync fall back to
// Config.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  logpkg.Logger
	// Registerer receives the metrics collectors; nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Runtime wires storage, the alias index and the feed registry for one data
// directory.
type Runtime struct {
	db       *pebblestore.DB
	store    *index.PebbleStore
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   logpkg.Logger
	config   cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = cfg.ResolvedDataDir()
	}
	fsync := opts.Fsync
	if fsync == pebblestore.FsyncModeUnspecified {
		fsync, _ = cfg.FsyncMode()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}

	m, err := metrics.New(opts.Registerer)
	if err != nil {
		return nil, err
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       dataDir,
		Fsync:         fsync,
		FsyncInterval: cfg.FsyncInterval(),
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(metrics.NewPebbleCollector(db)); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	store := index.NewPebbleStore(db, indexPrefix)
	reg := registry.New(alias.New(store), storage.NewProvider(db),
		registry.WithLogger(logger),
		registry.WithMetrics(m),
	)
	logger.Debug("runtime opened", logpkg.Str("dataDir", dataDir), logpkg.Str("registry", reg.ID()))
	return &Runtime{db: db, store: store, registry: reg, metrics: m, logger: logger, config: cfg}, nil
}

// Close shuts the registry down, then the index and the database.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	err := errors.Join(r.registry.Shutdown(), r.store.Close(), r.db.Close())
	r.db = nil
	return err
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Registry returns the feed registry.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Metrics returns the runtime's instrumentation.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
