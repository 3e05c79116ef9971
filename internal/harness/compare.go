package harness

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
)

// CompareMode selects the output comparison policy. Judges differ in
// strictness, so the relaxed mode is an explicit option, never a default.
type CompareMode string

const (
	// CompareExact flags any byte difference.
	CompareExact CompareMode = "exact"
	// CompareTrailingWS ignores trailing whitespace per line and
	// trailing blank lines.
	CompareTrailingWS CompareMode = "trailing-ws"
)

func (m CompareMode) Valid() bool {
	return m == CompareExact || m == CompareTrailingWS
}

// Equal reports whether actual matches expected under the given mode.
func Equal(mode CompareMode, expected, actual []byte) bool {
	if mode == CompareTrailingWS {
		expected = normalizeTrailing(expected)
		actual = normalizeTrailing(actual)
	}
	return bytes.Equal(expected, actual)
}

// normalizeTrailing strips trailing spaces and tabs from every line and
// drops trailing blank lines.
func normalizeTrailing(b []byte) []byte {
	lines := bytes.Split(b, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, " \t\r")
	}
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return bytes.Join(lines, []byte("\n"))
}

// Diff renders a unified diff of expected versus actual output.
func Diff(caseName string, expected, actual []byte) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(expected)),
		B:        difflib.SplitLines(string(actual)),
		FromFile: caseName + " expected",
		ToFile:   caseName + " actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}
