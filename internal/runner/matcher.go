package runner

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Matcher extracts the first capture group from output lines matching a
// pattern at line start. Patterns use the Python regular expression dialect
// (backtracking, lookarounds), so patterns such as (?!running )(.*) work.
type Matcher struct {
	pattern string
	re      *regexp2.Regexp
}

// CompileMatcher compiles pattern. The pattern must hold at least one
// capture group.
func CompileMatcher(pattern string) (*Matcher, error) {
	re, err := regexp2.Compile(`^(?:`+pattern+`)`, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid output matcher %q: %w", pattern, err)
	}
	// group 0 is the whole match
	if len(re.GetGroupNumbers()) < 2 {
		return nil, fmt.Errorf("output matcher %q has no capture group", pattern)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// String returns the source pattern
func (m *Matcher) String() string {
	return m.pattern
}

// Extract returns the first capture group of line if line matches
func (m *Matcher) Extract(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	match, err := m.re.FindStringMatch(line)
	if err != nil || match == nil {
		return "", false
	}
	group := match.GroupByNumber(1)
	if group == nil {
		return "", false
	}
	return group.String(), true
}
