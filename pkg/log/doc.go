// Package log provides the structured logging facade used across feedstore.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library's slog via a bridge handler that routes records through a Formatter
// and a set of Outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("registry"))
//	l.Info("feed created", log.Str("key", hexKey))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level and text/json
// format). RedirectStdLog routes the standard library logger, used by Pebble,
// through a Logger.
package log
