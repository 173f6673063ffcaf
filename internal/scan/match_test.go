package pj

import "testing"

func TestCompileSentinel(t *testing.T) {
	if _, err := CompileSentinel(`^\.git$`); err != nil {
		t.Fatalf("CompileSentinel failed: %v", err)
	}
	if _, err := CompileSentinel(`(`); err == nil {
		t.Error("Expected error for unbalanced pattern")
	}
}

func TestSentinelMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		entry   string
		want    bool
	}{
		{"anchored match", `^\.git$`, ".git", true},
		{"anchored rejects suffix", `^\.git$`, "x.git", false},
		{"anchored rejects prefix", `^\.git$`, ".gitignore", false},
		{"unanchored substring", `\.git`, "a.gitb", true},
		{"literal dot escaped", `^go\.mod$`, "go.mod", true},
		{"literal dot escaped rejects", `^go\.mod$`, "gosmod", false},
		{"alternation", `^(\.git|\.hg)$`, ".hg", true},
		// NFC pattern against a decomposed entry name.
		{"unicode normalization", `^café$`, "café", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := CompileSentinel(test.pattern)
			if err != nil {
				t.Fatalf("CompileSentinel failed: %v", err)
			}
			if got := m.Match(test.entry); got != test.want {
				t.Errorf("Match(%q) with %q = %v, want %v", test.entry, test.pattern, got, test.want)
			}
		})
	}
}

func TestIgnoreSet(t *testing.T) {
	s := NewIgnoreSet("node_modules", "vendor", "café")

	if !s.Contains("node_modules") {
		t.Error("Expected node_modules to be ignored")
	}
	if s.Contains("src") {
		t.Error("Expected src not to be ignored")
	}
	// Composed lookup against a decomposed member.
	if !s.Contains("café") {
		t.Error("Expected café to be ignored regardless of normalization form")
	}

	empty := NewIgnoreSet()
	if empty.Contains("anything") {
		t.Error("Expected empty set to ignore nothing")
	}
}
