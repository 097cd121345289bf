// Package log provides a logging abstraction for volumetrize components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Default implementations are provided for zerolog
// and a no-op logger for testing.
//
// # Usage
//
// Build a zerolog-backed logger from CLI settings:
//
//	logger, err := log.New(log.Options{Level: "info", Format: "console"})
//
// Or wrap an existing zerolog.Logger:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Or use the no-op logger for testing:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
