package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/substack/multifeed-storage/internal/config"
	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/runtime"
	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// createTimeout bounds how long a command waits for a creation to complete.
const createTimeout = 30 * time.Second

// NewRoot constructs the root command and registers every feed operation.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "feedstore",
		Short:         "Manage a local collection of append-only feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("data-dir", "", "data directory (default: FEEDSTORE_DATA_DIR or OS data dir)")
	pf.String("config", "", "path to a JSON config file")
	pf.String("fsync", "", "fsync mode: always|interval|never")
	pf.String("log-level", "", "log level: debug|info|warn|error")
	pf.String("log-format", "", "log format: text|json")

	root.AddCommand(
		newCreateCommand(),
		newAddCommand(),
		newAppendCommand(),
		newCatCommand(),
		newResolveCommand(),
		newHasCommand(),
		newDeleteCommand(),
	)
	return root
}

// loadConfig layers defaults, the config file, FEEDSTORE_* env and flags.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("fsync"); v != "" {
		cfg.Fsync = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	return cfg, cfg.Validate()
}

// withRuntime opens the runtime for cmd, runs fn and closes it.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime.Runtime) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logpkg.ApplyConfig(cfg.Log(), logpkg.WithOutput(logpkg.NewWriterOutput(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	rt, err := runtime.Open(runtime.Options{Fsync: pebblestore.FsyncModeUnspecified, Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.ResolvedDataDir(), err)
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(cmd.Context(), rt)
}

// awaitCreated blocks until a creation callback fires.
func awaitCreated(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(createTimeout):
		return fmt.Errorf("creation did not complete within %s", createTimeout)
	}
}

// awaitOpen waits for f to finish loading and returns its load error.
func awaitOpen(ctx context.Context, f *feed.Feed) error {
	select {
	case <-f.Ready():
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
