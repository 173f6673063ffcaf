package scan

import (
	"context"

	internal "github.com/crockeo/pj/internal/scan"
)

// Re-export all the types and constants from the internal package
type (
	// Options configures a scan.
	Options = internal.Options

	// Match is one discovered project directory.
	Match = internal.Match

	// ScanError is a non-fatal per-path diagnostic.
	ScanError = internal.ScanError

	// Handler processes each match.
	Handler = internal.Handler

	// Stats holds scan statistics that are updated atomically during the run.
	Stats = internal.Stats

	// ProgressFn is called periodically with scan statistics.
	ProgressFn = internal.ProgressFn

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel

	// SentinelMatcher is an immutable predicate over directory entry names.
	SentinelMatcher = internal.SentinelMatcher

	// IgnoreSet is an immutable set of excluded directory names.
	IgnoreSet = internal.IgnoreSet
)

// Re-export all the constants
const (
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug
)

// ErrStopScan is returned by a Handler to end the scan early without error.
var ErrStopScan = internal.ErrStopScan

// NewOptions creates Options with default values: unlimited depth, one
// worker per CPU, symlinks not followed.
func NewOptions(pattern string, roots ...string) Options {
	return internal.NewOptions(pattern, roots...)
}

// Scan runs a scan to completion, invoking handler for every match.
func Scan(ctx context.Context, opts Options, handler Handler) error {
	return internal.Scan(ctx, opts, handler)
}

// Stream starts a scan and exposes matches and diagnostics as lazy channels,
// both closed when the scan terminates.
func Stream(ctx context.Context, opts Options) (<-chan Match, <-chan ScanError, error) {
	return internal.Stream(ctx, opts)
}

// FindAll runs a scan to completion and collects the matched paths.
func FindAll(ctx context.Context, opts Options) ([]string, error) {
	return internal.FindAll(ctx, opts)
}

// CompileSentinel compiles a sentinel pattern into a matcher.
func CompileSentinel(pattern string) (*SentinelMatcher, error) {
	return internal.CompileSentinel(pattern)
}

// NewIgnoreSet builds an IgnoreSet from directory names.
func NewIgnoreSet(names ...string) IgnoreSet {
	return internal.NewIgnoreSet(names...)
}
