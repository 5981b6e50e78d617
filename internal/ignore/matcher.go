// Package ignore filters the decompiled source tree with gitignore-like
// rules. Users drop a .deobfignore at the tree root to skip bundled library
// packages that would only waste rewrite time.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// RulesFile is the per-tree rules file name.
const RulesFile = ".deobfignore"

// rule is one compiled ignore line. Directory matches probe with a trailing
// slash, so dirOnly patterns compile to a mandatory "/" in the expression.
type rule struct {
	re     *regexp.Regexp
	negate bool
}

// Matcher applies gitignore-like rules with "last rule wins" behavior.
type Matcher struct {
	rules []rule
}

// defaultRules exclude the parts of a decompiler output tree that carry no
// Java source worth rewriting. User negation rules can re-include them.
var defaultRules = []string{
	".git/",
	".deobf/",
	"res/",
	"resources/",
	"assets/",
	"META-INF/",
	"build/",
}

// NewMatcher builds a matcher from user rules, appended after the defaults.
func NewMatcher(userRules []string) *Matcher {
	m := &Matcher{}
	for _, line := range defaultRules {
		m.add(line)
	}
	for _, line := range userRules {
		m.add(line)
	}
	return m
}

// FromDir builds a matcher from root's rules file. A missing file yields the
// default matcher.
func FromDir(root string) (*Matcher, error) {
	f, err := os.Open(filepath.Join(root, RulesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewMatcher(nil), nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewMatcher(lines), nil
}

// ShouldIgnore returns true when relPath should be excluded. relPath is
// relative to the tree root; isDir distinguishes directory probes during a
// walk so directory-only rules do not hit plain files of the same name.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	probe := normalizePath(relPath)
	if isDir {
		probe += "/"
	}
	ignored := false
	for _, r := range m.rules {
		if r.re.MatchString(probe) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (m *Matcher) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	negate := strings.HasPrefix(line, "!")
	line = strings.TrimPrefix(line, "!")
	anchored := strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")

	line = normalizePath(line)
	if line == "" {
		return
	}

	var b strings.Builder
	if anchored {
		b.WriteString("^")
	} else {
		// Unanchored patterns match at any depth.
		b.WriteString(`^(?:.*/)?`)
	}
	writeGlob(&b, line)
	switch {
	case dirOnly:
		// The directory itself (probe ends in "/") or anything beneath it.
		b.WriteString("/.*$")
	case !strings.Contains(line, "/"):
		// Bare names match a file, a directory, or any path segment.
		b.WriteString("(?:/.*)?$")
	default:
		b.WriteString("$")
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return
	}
	m.rules = append(m.rules, rule{re: re, negate: negate})
}

// writeGlob appends the regexp form of a glob pattern: ** crosses directory
// boundaries, * and ? stay within one segment.
func writeGlob(b *strings.Builder, pattern string) {
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
				b.WriteByte('\\')
			}
			b.WriteByte(ch)
		}
	}
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}
