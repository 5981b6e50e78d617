// Package mapping loads ProGuard-style rename tables. A table maps
// obfuscated class names back to their original qualified names and carries
// per-class member records used for method/field resolution.
package mapping

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/deobf-dev/deobf/internal/descriptor"
)

// Member is one rename record declared under a class mapping line. Multiple
// records may share Obf (overloads). An empty Descriptor means the record
// cannot disambiguate overloads on its own.
type Member struct {
	Obf        string
	Orig       string
	IsMethod   bool
	Signature  string // source-form argument list, e.g. "(int,java.lang.String)"; "" if unknown
	ReturnType string // source-form return type for methods, declared type for fields; "" if unknown
	Descriptor string // JVM descriptor when known, e.g. "(I)V"
}

// ParamCount reports the number of parameters encoded in the source-form
// signature, or -1 when no signature was recorded.
func (m Member) ParamCount() int {
	if m.Signature == "" {
		return -1
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(m.Signature, "("), ")")
	if strings.TrimSpace(inner) == "" {
		return 0
	}
	return strings.Count(inner, ",") + 1
}

// Table is the loaded rename table. Immutable once loaded; one table spans a
// full run.
type Table struct {
	classes map[string]string   // obf qualified name -> orig qualified name
	members map[string][]Member // obf class -> member records

	// shortNames holds collision-free short-name renames only; ambiguous
	// short names are tracked so callers never guess across classes.
	shortNames      map[string]string
	shortCollisions map[string]bool
}

var (
	classLineRe = regexp.MustCompile(`^(.*) -> (.*):$`)
	// Standard ProGuard member line: [from:to:]returnType name[(args)] -> orig
	memberLineRe = regexp.MustCompile(`^(?:\d+:\d+:)?(\S+)\s+(\S+?)(\(.*?\))?\s+->\s+(\S+)$`)
	// Enhanced member line without a return type: name[()] -> orig
	memberEnhancedRe = regexp.MustCompile(`^(\S+?)(\(\))?\s+->\s+(\S+)$`)
)

// Load reads a mapping file from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a ProGuard mapping stream. Class lines are unindented and end
// with a colon; member lines are indented under their class.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{
		classes:         make(map[string]string),
		members:         make(map[string][]Member),
		shortNames:      make(map[string]string),
		shortCollisions: make(map[string]bool),
	}

	var currentClass string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Strip trailing annotations added by mapping enhancers.
		if idx := strings.Index(line, "  #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t") {
			if m := classLineRe.FindStringSubmatch(line); m != nil {
				obf, orig := m[1], m[2]
				t.classes[obf] = orig
				t.members[obf] = nil
				currentClass = obf
			}
			continue
		}

		if currentClass == "" {
			continue
		}
		if m := memberLineRe.FindStringSubmatch(line); m != nil {
			t.members[currentClass] = append(t.members[currentClass], Member{
				Obf:        m[2],
				Orig:       m[4],
				IsMethod:   m[3] != "",
				Signature:  m[3],
				ReturnType: m[1],
			})
			continue
		}
		if m := memberEnhancedRe.FindStringSubmatch(line); m != nil {
			member := Member{
				Obf:      m[1],
				Orig:     m[3],
				IsMethod: m[2] != "",
			}
			if member.IsMethod {
				member.Signature = "()"
			}
			t.members[currentClass] = append(t.members[currentClass], member)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}

	t.buildShortNames()
	return t, nil
}

func (t *Table) buildShortNames() {
	candidates := make(map[string][]string) // short obf -> distinct short origs
	for obf, orig := range t.classes {
		obfShort := shortOf(obf)
		origShort := shortOf(orig)
		if obfShort == origShort {
			continue
		}
		candidates[obfShort] = append(candidates[obfShort], origShort)
	}
	for short, origs := range candidates {
		unique := make(map[string]bool, len(origs))
		for _, o := range origs {
			unique[o] = true
		}
		if len(unique) == 1 {
			t.shortNames[short] = origs[0]
		} else {
			t.shortCollisions[short] = true
		}
	}
}

// ClassName returns the original qualified name for an obfuscated class.
func (t *Table) ClassName(obf string) (string, bool) {
	orig, ok := t.classes[obf]
	return orig, ok
}

// HasClass reports whether the obfuscated class has a rename entry.
func (t *Table) HasClass(obf string) bool {
	_, ok := t.classes[obf]
	return ok
}

// ShortName resolves an obfuscated short class name to its original short
// name. It refuses to answer when two different classes share the short name.
func (t *Table) ShortName(shortObf string) (string, bool) {
	if t.shortCollisions[shortObf] {
		return "", false
	}
	orig, ok := t.shortNames[shortObf]
	return orig, ok
}

// Members returns the member records of an obfuscated class.
func (t *Table) Members(obfClass string) []Member {
	return t.members[obfClass]
}

// Classes returns the obfuscated class names in sorted order.
func (t *Table) Classes() []string {
	out := make([]string, 0, len(t.classes))
	for obf := range t.classes {
		out = append(out, obf)
	}
	sort.Strings(out)
	return out
}

// ClassCount reports how many class renames the table holds.
func (t *Table) ClassCount() int { return len(t.classes) }

// MethodRename looks up a method rename by obfuscated name across every
// class. Used only for reflection string rewriting, which fires solely on an
// exact match against some class's member records.
func (t *Table) MethodRename(obfName string) (string, bool) {
	for _, members := range t.members {
		for _, m := range members {
			if m.IsMethod && m.Obf == obfName {
				return m.Orig, true
			}
		}
	}
	return "", false
}

// EnrichDescriptor attaches a JVM descriptor to the single member record for
// (obfClass, obfName) whose declared parameter types are compatible with it.
// The table spells types in original names and the descriptor in obfuscated
// ones, so app types can only be compared by shape; primitives and library
// types compare exactly. When several records could match nothing is
// attached: ambiguity is never papered over.
func (t *Table) EnrichDescriptor(obfClass, obfName, desc string, paramCount int) {
	descParams, _, decodedOK := descriptor.DecodeMethodDescriptorQualified(desc)
	members := t.members[obfClass]
	idx := -1
	for i, m := range members {
		if !m.IsMethod || m.Obf != obfName || m.Descriptor != "" {
			continue
		}
		if count := m.ParamCount(); count >= 0 && paramCount >= 0 && count != paramCount {
			continue
		}
		if decodedOK && m.Signature != "" && !paramsCompatible(m.Signature, descParams) {
			continue
		}
		if idx >= 0 {
			return
		}
		idx = i
	}
	if idx >= 0 {
		members[idx].Descriptor = desc
	}
}

var primitiveTypes = map[string]bool{
	"void": true, "boolean": true, "byte": true, "char": true,
	"short": true, "int": true, "long": true, "float": true, "double": true,
}

func libraryType(t string) bool {
	for _, prefix := range []string{"java.", "javax.", "android.", "androidx.", "kotlin."} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// paramsCompatible checks a source-form signature like "(int,java.lang.String)"
// against decoded descriptor parameter types, position by position.
func paramsCompatible(signature string, descParams []string) bool {
	inner := strings.TrimSuffix(strings.TrimPrefix(signature, "("), ")")
	var sigParams []string
	if strings.TrimSpace(inner) != "" {
		sigParams = strings.Split(inner, ",")
	}
	if len(sigParams) != len(descParams) {
		return false
	}
	for i, sig := range sigParams {
		if !typeCompatible(strings.TrimSpace(sig), descParams[i]) {
			return false
		}
	}
	return true
}

func typeCompatible(sig, desc string) bool {
	if idx := strings.Index(sig, "<"); idx >= 0 {
		sig = sig[:idx] + sig[strings.LastIndex(sig, ">")+1:]
	}
	for strings.HasSuffix(sig, "[]") || strings.HasSuffix(desc, "[]") {
		if !strings.HasSuffix(sig, "[]") || !strings.HasSuffix(desc, "[]") {
			return false
		}
		sig = strings.TrimSuffix(sig, "[]")
		desc = strings.TrimSuffix(desc, "[]")
	}
	if primitiveTypes[sig] || primitiveTypes[desc] {
		return sig == desc
	}
	if libraryType(sig) || libraryType(desc) {
		return sig == desc
	}
	// Two app object types: one side is spelled in original names, the other
	// in obfuscated ones. There is nothing left to compare.
	return true
}

func shortOf(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
