package pj

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// SentinelMatcher is an immutable predicate over directory entry names. It is
// shared read-only by every worker and requires no synchronization.
type SentinelMatcher struct {
	re *regexp.Regexp
}

// CompileSentinel compiles a sentinel pattern into a matcher. The pattern is
// NFC-normalized before compilation so that composed and decomposed spellings
// of the same name compare equal.
func CompileSentinel(pattern string) (*SentinelMatcher, error) {
	re, err := regexp.Compile(norm.NFC.String(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid sentinel pattern %q: %w", pattern, err)
	}
	return &SentinelMatcher{re: re}, nil
}

// Match reports whether an entry name satisfies the sentinel pattern. Only
// the base name is ever tested, never a full path.
func (m *SentinelMatcher) Match(name string) bool {
	return m.re.MatchString(norm.NFC.String(name))
}

// String returns the source pattern.
func (m *SentinelMatcher) String() string {
	return m.re.String()
}

// IgnoreSet is an immutable set of directory names that are excluded from the
// scan outright: an ignored directory is never read, never expanded, and
// never reported, even when its name would satisfy the sentinel.
type IgnoreSet map[string]struct{}

// NewIgnoreSet builds an IgnoreSet from directory names.
func NewIgnoreSet(names ...string) IgnoreSet {
	s := make(IgnoreSet, len(names))
	for _, name := range names {
		s[norm.NFC.String(name)] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set.
func (s IgnoreSet) Contains(name string) bool {
	_, ok := s[norm.NFC.String(name)]
	return ok
}
