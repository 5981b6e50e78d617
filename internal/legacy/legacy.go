// Package legacy is the regex fallback rewriter, used when a compilation
// unit is too broken for structural rewriting. It trades precision for
// robustness: renames only fire in narrowly matched syntactic contexts, and
// string literals are masked out for the whole pass so no literal is ever
// touched.
package legacy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/deobf-dev/deobf/internal/mapping"
)

var (
	stringLitRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	importRe    = regexp.MustCompile(`(?m)^import\s+([\w.]+);`)
)

// Rewriter applies rename-table substitutions with plain text patterns.
type Rewriter struct {
	table *mapping.Table
	// obf classes sorted longest first so no qualified name is clobbered by
	// a prefix of itself.
	classesByLength []string
}

// NewRewriter creates a fallback rewriter over a rename table.
func NewRewriter(table *mapping.Table) *Rewriter {
	classes := table.Classes()
	sort.Slice(classes, func(i, j int) bool { return len(classes[i]) > len(classes[j]) })
	return &Rewriter{table: table, classesByLength: classes}
}

// RewriteClass rewrites one unit. It never fails; at worst it returns the
// input unchanged.
func (rw *Rewriter) RewriteClass(source []byte, currentClass string) []byte {
	content := string(source)

	// Mask string literals so none of the later passes can touch them.
	literals := map[string]string{}
	content = stringLitRe.ReplaceAllStringFunc(content, func(lit string) string {
		key := fmt.Sprintf("\x00STR%d\x00", len(literals))
		literals[key] = lit
		return key
	})

	content = rw.rewriteQualifiedNames(content)
	content = rw.rewriteShortNames(content, currentClass)
	content = rw.rewriteMembers(content, currentClass)

	for key, lit := range literals {
		content = strings.ReplaceAll(content, key, lit)
	}
	return []byte(content)
}

// rewriteQualifiedNames substitutes fully qualified obfuscated class names
// through placeholders, so an original name inserted early can never be
// re-matched by a later, shorter pattern.
func (rw *Rewriter) rewriteQualifiedNames(content string) string {
	placeholders := map[string]string{}
	for i, obf := range rw.classesByLength {
		if !strings.Contains(content, obf) {
			continue
		}
		orig, _ := rw.table.ClassName(obf)
		key := fmt.Sprintf("\x00FQCN%d\x00", i)
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(obf) + `\b`)
		replaced := re.ReplaceAllString(content, key)
		if replaced != content {
			placeholders[key] = orig
			content = replaced
		}
	}
	for key, orig := range placeholders {
		content = strings.ReplaceAll(content, key, orig)
	}
	return content
}

// rewriteShortNames renames short class names visible to this unit: its own
// class, its imports and same-package classes. Substitution only happens in
// type contexts.
func (rw *Rewriter) rewriteShortNames(content, currentClass string) string {
	shortMap := map[string]string{}

	addPair := func(obfFull string) {
		orig, ok := rw.table.ClassName(obfFull)
		if !ok {
			return
		}
		obfShort := innerShort(shortOf(obfFull))
		origShort := innerShort(shortOf(orig))
		if obfShort != origShort {
			shortMap[obfShort] = origShort
		}
	}

	addPair(currentClass)
	for _, m := range importRe.FindAllStringSubmatch(content, -1) {
		addPair(m[1])
	}
	pkg := packageOf(currentClass)
	if pkg != "" {
		for _, obf := range rw.classesByLength {
			if packageOf(obf) == pkg {
				addPair(obf)
			}
		}
	}

	names := make([]string, 0, len(shortMap))
	for name := range shortMap {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, obf := range names {
		orig := shortMap[obf]
		esc := regexp.QuoteMeta(obf)
		// Group references are always braced: a bare $1 glued to the original
		// name would be read as one long group name and expand to nothing.
		for _, p := range []struct{ re, repl string }{
			{`\b(class|interface|enum|extends|implements|new|instanceof)(\s+)` + esc + `\b`, `${1}${2}` + orig},
			{`\((\s*)` + esc + `(\s*)\)`, `(${1}` + orig + `${2})`}, // casts
			{`\b` + esc + `(\s+\w+\s*[;=,)])`, orig + `${1}`},       // declarations
			{`\b` + esc + `(\s*\[\s*\])`, orig + `${1}`},            // array types
			{`\b` + esc + `(\.class\b)`, orig + `${1}`},
			{`<` + esc + `([,>])`, `<` + orig + `${1}`},
			{`([<,]\s*)` + esc + `>`, `${1}` + orig + `>`},
		} {
			content = regexp.MustCompile(p.re).ReplaceAllString(content, p.repl)
		}
	}
	return content
}

// rewriteMembers renames the current class's own members. Methods only match
// when followed by an opening parenthesis; fields only behind a dot. Obf
// names carried by several records are skipped outright, the fallback has no
// way to tell overloads apart.
func (rw *Rewriter) rewriteMembers(content, currentClass string) string {
	members := rw.table.Members(currentClass)
	if len(members) == 0 {
		return content
	}

	methodNames := map[string]string{}
	methodDupes := map[string]bool{}
	fieldNames := map[string]string{}
	for _, m := range members {
		if m.IsMethod {
			if prev, ok := methodNames[m.Obf]; ok && prev != m.Orig {
				methodDupes[m.Obf] = true
			}
			methodNames[m.Obf] = m.Orig
		} else {
			fieldNames[m.Obf] = m.Orig
		}
	}

	methods := make([]string, 0, len(methodNames))
	for obf := range methodNames {
		if !methodDupes[obf] {
			methods = append(methods, obf)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return len(methods[i]) > len(methods[j]) })
	for _, obf := range methods {
		re := regexp.MustCompile(`(^|[^.\w])` + regexp.QuoteMeta(obf) + `(\s*\()`)
		content = re.ReplaceAllString(content, `${1}`+methodNames[obf]+`${2}`)
		dotRe := regexp.MustCompile(`\.` + regexp.QuoteMeta(obf) + `(\s*\()`)
		content = dotRe.ReplaceAllString(content, `.`+methodNames[obf]+`${1}`)
	}

	fields := make([]string, 0, len(fieldNames))
	for obf := range fieldNames {
		fields = append(fields, obf)
	}
	sort.Slice(fields, func(i, j int) bool { return len(fields[i]) > len(fields[j]) })
	for _, obf := range fields {
		re := regexp.MustCompile(`\.` + regexp.QuoteMeta(obf) + `\b([^\w(]|$)`)
		content = re.ReplaceAllString(content, `.`+fieldNames[obf]+`${1}`)
	}
	return content
}

func shortOf(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func packageOf(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[:i]
	}
	return ""
}

// innerShort reduces an inner-class short name (Outer$Inner) to its
// innermost segment.
func innerShort(short string) string {
	if i := strings.LastIndex(short, "$"); i >= 0 {
		return short[i+1:]
	}
	return short
}
