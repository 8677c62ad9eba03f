package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	feedscmd "github.com/substack/multifeed-storage/internal/cmd/feeds"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

func main() {
	// Respect FEEDSTORE_LOG_LEVEL for output emitted before a command opens
	// its own logger.
	level, err := logpkg.ParseLevel(os.Getenv("FEEDSTORE_LOG_LEVEL"))
	if err != nil {
		level = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := feedscmd.NewRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
