// Package pj implements concurrent discovery of project directories: the
// directories under one or more roots that contain an entry whose name
// matches a sentinel pattern (a `.git` folder, a `go.mod` file, and so on).
//
// The scan is a queue-based graph expansion rather than a recursive walk. A
// pool of workers pulls directories off a shared queue, reads each one, and
// either reports it (when an entry matches the sentinel) or enqueues its
// subdirectories. A directory that matches is never expanded, so no reported
// directory is a descendant of another; this prune-on-match behavior is what
// makes the scan fast on large trees.
//
// Symbolic links to directories are not followed unless Options.FollowSymlinks
// is set. No symlink cycle detection is performed either way.
package pj

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrStopScan is returned by a Handler to end the scan early without
// reporting an error, once the caller has seen as many matches as it wants.
var ErrStopScan = errors.New("pj: stop scan")

// --------------------------------------------------------------------------
// Core types for progress monitoring
// --------------------------------------------------------------------------

// ProgressFn is called periodically with scan statistics.
// Implementations must be thread-safe as this may be called concurrently.
type ProgressFn func(stats Stats)

// Stats holds scan statistics that are updated atomically during the run.
type Stats struct {
	DirsScanned int64         // Directories whose entries were read
	DirsIgnored int64         // Directories pruned by the ignore set
	Matches     int64         // Directories reported as matches
	Errors      int64         // Unreadable roots and directories
	ElapsedTime time.Duration // Total time elapsed
}

// --------------------------------------------------------------------------
// Configuration types
// --------------------------------------------------------------------------

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Options configures a scan.
type Options struct {
	Pattern        string     // Sentinel pattern, compiled as a regular expression over entry names
	Roots          []string   // Directories to scan; each is depth 0
	MaxDepth       int        // Maximum descent depth; negative means unlimited
	IgnoreDirs     []string   // Directory names excluded from the scan outright
	Workers        int        // Concurrent workers; <= 0 means runtime.NumCPU()
	FollowSymlinks bool       // Descend into symlinked directories (no cycle detection)
	Progress       ProgressFn // Optional periodic statistics callback
	Logger         *zap.Logger
	LogLevel       LogLevel // Used when Logger is nil
}

// NewOptions creates Options with default values: unlimited depth, one
// worker per CPU, symlinks not followed. The current directory is scanned
// when no roots are given.
func NewOptions(pattern string, roots ...string) Options {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return Options{
		Pattern:  pattern,
		Roots:    roots,
		MaxDepth: -1,
	}
}

// Match is one discovered project directory. Matches are emitted at most once
// per directory, in completion order, which is not lexical across the run.
type Match struct {
	Path  string // The directory containing the sentinel entry
	Root  string // The root it descended from
	Depth int    // Traversal steps from that root
}

// ScanError is a non-fatal per-path diagnostic: a root that does not exist or
// is not a directory, or a directory that could not be read mid-scan. These
// never abort the rest of the run.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ScanError) Unwrap() error {
	return e.Err
}

// Handler processes each match. Handlers are invoked serially by Scan;
// returning ErrStopScan ends the run early, any other error aborts it.
type Handler func(ctx context.Context, m Match) error

// defaultHandler prints each matched directory path.
func defaultHandler() Handler {
	return func(ctx context.Context, m Match) error {
		fmt.Println(m.Path)
		return nil
	}
}

// --------------------------------------------------------------------------
// Primary API functions
// --------------------------------------------------------------------------

// Stream starts a scan and exposes it as a lazy pair of channels: discovered
// matches and non-fatal per-path diagnostics. Both channels are closed when
// the work queue drains and every in-flight directory read has completed, so
// a scan with zero matches yields an immediately exhausted sequence rather
// than a hang. Cancelling ctx abandons the scan; workers drain and the
// channels still close, so the caller may stop consuming after any prefix.
func Stream(ctx context.Context, opts Options) (<-chan Match, <-chan ScanError, error) {
	s, err := newScanner(opts)
	if err != nil {
		return nil, nil, err
	}
	s.seed()
	s.run(ctx)
	return s.matches, s.errs, nil
}

// Scan runs a scan to completion, invoking handler for every match. A nil
// handler prints each path. Scan returns nil on normal completion and on an
// ErrStopScan early stop; it returns an error only for unusable options, a
// handler failure, or outer context cancellation.
func Scan(ctx context.Context, opts Options, handler Handler) error {
	if handler == nil {
		handler = defaultHandler()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matches, errs, err := Stream(ctx, opts)
	if err != nil {
		return err
	}

	var handlerErr error
	for matches != nil || errs != nil {
		select {
		case m, ok := <-matches:
			if !ok {
				matches = nil
				continue
			}
			if handlerErr != nil {
				continue
			}
			if err := handler(ctx, m); err != nil {
				handlerErr = err
				cancel()
			}
		case _, ok := <-errs:
			// Diagnostics are already logged by the engine.
			if !ok {
				errs = nil
			}
		}
	}

	if handlerErr != nil && !errors.Is(handlerErr, ErrStopScan) {
		return handlerErr
	}
	if handlerErr == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// FindAll runs a scan to completion and collects the matched paths.
func FindAll(ctx context.Context, opts Options) ([]string, error) {
	var paths []string
	err := Scan(ctx, opts, func(ctx context.Context, m Match) error {
		paths = append(paths, m.Path)
		return nil
	})
	return paths, err
}

// --------------------------------------------------------------------------
// Scanner internals
// --------------------------------------------------------------------------

// scanner holds the shared state for one invocation: the work queue, the
// output channels, and the atomic counters. It is never reused.
type scanner struct {
	opts    Options
	matcher *SentinelMatcher
	ignore  IgnoreSet
	queue   *workQueue
	matches chan Match
	errs    chan ScanError
	logger  *zap.Logger
	ownLog  bool
	stats   Stats
	start   time.Time
}

func newScanner(opts Options) (*scanner, error) {
	if opts.Pattern == "" {
		return nil, errors.New("pj: sentinel pattern must not be empty")
	}
	matcher, err := CompileSentinel(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pj: %w", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	logger := opts.Logger
	ownLog := false
	if logger == nil {
		logger = createLogger(opts.LogLevel)
		ownLog = true
	}

	errBuf := 64
	if n := len(opts.Roots); n > errBuf {
		errBuf = n
	}

	return &scanner{
		opts:    opts,
		matcher: matcher,
		ignore:  NewIgnoreSet(opts.IgnoreDirs...),
		queue:   newWorkQueue(),
		matches: make(chan Match, 64),
		errs:    make(chan ScanError, errBuf),
		logger:  logger,
		ownLog:  ownLog,
		start:   time.Now(),
	}, nil
}

// seed stats every root and enqueues the usable ones at depth 0. Unusable
// roots become diagnostics; they never abort the scan of other roots. Roots
// whose base name is in the ignore set are never read.
func (s *scanner) seed() {
	for _, root := range s.opts.Roots {
		if s.ignore.Contains(filepath.Base(filepath.Clean(root))) {
			atomic.AddInt64(&s.stats.DirsIgnored, 1)
			s.logger.Debug("root ignored", zap.String("path", root))
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			s.rootError(root, err)
			continue
		}
		if !info.IsDir() {
			s.rootError(root, errors.New("not a directory"))
			continue
		}
		s.queue.push(workItem{path: root, root: root, depth: 0})
	}
}

// rootError records an unusable root. The errs channel is buffered to hold
// one diagnostic per root, so seeding never blocks.
func (s *scanner) rootError(root string, err error) {
	atomic.AddInt64(&s.stats.Errors, 1)
	s.logger.Warn("unusable root", zap.String("path", root), zap.Error(err))
	s.errs <- ScanError{Path: root, Err: err}
}

// run launches the worker pool and the goroutines that tie the scan to its
// context and close the output channels on termination.
func (s *scanner) run(ctx context.Context) {
	s.logger.Debug("starting scan",
		zap.String("pattern", s.matcher.String()),
		zap.Strings("roots", s.opts.Roots),
		zap.Int("workers", s.opts.Workers),
		zap.Int("max_depth", s.opts.MaxDepth),
	)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}

	done := make(chan struct{})

	// Cancellation closes the queue so blocked workers drain instead of
	// waiting on work that will never complete.
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Debug("scan cancelled", zap.Error(ctx.Err()))
			s.queue.close()
		case <-done:
		}
	}()

	var tickerDone chan struct{}
	if s.opts.Progress != nil {
		tickerDone = make(chan struct{})
		go func() {
			defer close(tickerDone)
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					s.opts.Progress(s.snapshot())
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
		if tickerDone != nil {
			<-tickerDone
			// Final update so short scans still report.
			s.opts.Progress(s.snapshot())
		}
		close(s.matches)
		close(s.errs)
		if s.ownLog {
			_ = s.logger.Sync()
		}
	}()
}

// worker pulls directories off the queue until the scan terminates.
func (s *scanner) worker(ctx context.Context) {
	for {
		item, ok := s.queue.pop()
		if !ok {
			return
		}
		s.process(ctx, item)
		s.queue.done()
	}
}

// process evaluates a single directory. The match decision is committed
// before any child is enqueued, so a matched directory's subtree is never
// read at all.
func (s *scanner) process(ctx context.Context, item workItem) {
	if ctx.Err() != nil {
		return
	}

	atomic.AddInt64(&s.stats.DirsScanned, 1)
	dirents, err := godirwalk.ReadDirents(item.path, nil)
	if err != nil {
		// Recoverable: the subtree is abandoned, the rest of the scan
		// continues.
		atomic.AddInt64(&s.stats.Errors, 1)
		s.logger.Warn("unreadable directory", zap.String("path", item.path), zap.Error(err))
		s.report(ctx, ScanError{Path: item.path, Err: err})
		return
	}

	children := make([]workItem, 0, len(dirents))
	for _, dirent := range dirents {
		name := dirent.Name()

		// Ignore wins over match: an ignored name is neither tested
		// against the sentinel nor descended into.
		if s.ignore.Contains(name) {
			if dirent.IsDir() {
				atomic.AddInt64(&s.stats.DirsIgnored, 1)
			}
			continue
		}

		if s.matcher.Match(name) {
			atomic.AddInt64(&s.stats.Matches, 1)
			s.logger.Debug("match",
				zap.String("path", item.path),
				zap.String("entry", name),
				zap.Int("depth", item.depth),
			)
			s.emit(ctx, Match{Path: item.path, Root: item.root, Depth: item.depth})
			return // prune on match: children are never enqueued
		}

		if s.exceedsDepth(item.depth + 1) {
			continue
		}
		if dirent.IsDir() {
			children = append(children, workItem{
				path:  filepath.Join(item.path, name),
				root:  item.root,
				depth: item.depth + 1,
			})
		} else if s.opts.FollowSymlinks && dirent.IsSymlink() {
			target := filepath.Join(item.path, name)
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				children = append(children, workItem{
					path:  target,
					root:  item.root,
					depth: item.depth + 1,
				})
			}
		}
	}

	s.queue.push(children...)
}

// exceedsDepth reports whether a directory at depth may not be visited.
// Strictly greater is intended: depth 0 is a root, so a limit of D permits D
// levels of descent below it.
func (s *scanner) exceedsDepth(depth int) bool {
	return s.opts.MaxDepth >= 0 && depth > s.opts.MaxDepth
}

func (s *scanner) emit(ctx context.Context, m Match) {
	select {
	case s.matches <- m:
	case <-ctx.Done():
	}
}

func (s *scanner) report(ctx context.Context, e ScanError) {
	select {
	case s.errs <- e:
	case <-ctx.Done():
	}
}

func (s *scanner) snapshot() Stats {
	return Stats{
		DirsScanned: atomic.LoadInt64(&s.stats.DirsScanned),
		DirsIgnored: atomic.LoadInt64(&s.stats.DirsIgnored),
		Matches:     atomic.LoadInt64(&s.stats.Matches),
		Errors:      atomic.LoadInt64(&s.stats.Errors),
		ElapsedTime: time.Since(s.start),
	}
}

// createLogger creates a zap logger with the specified log level.
func createLogger(level LogLevel) *zap.Logger {
	var config zap.Config

	switch level {
	case LogLevelError:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case LogLevelWarn:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case LogLevelInfo:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case LogLevelDebug:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	logger, _ := config.Build()
	return logger
}
