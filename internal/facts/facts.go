// Package facts holds per-class structural facts recovered from disassembled
// bytecode: super type, implemented interfaces, declared methods and fields.
// Facts are parsed from smali disassembly units and memoized for the run.
package facts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/deobf-dev/deobf/internal/descriptor"
)

// Method is one declared method record.
type Method struct {
	Name          string
	Descriptor    string
	ReturnType    string
	ParamTypes    []string
	IsStatic      bool
	IsAbstract    bool
	IsConstructor bool
	IsBridge      bool
	IsSynthetic   bool
}

// Field is one declared field record: name plus decoded display type.
type Field struct {
	Name string
	Type string
}

// Class is the structural fact record for a single class, keyed by its
// obfuscated qualified name.
type Class struct {
	Name        string
	Super       string
	Interfaces  []string
	Methods     []Method
	Fields      []Field
	IsInterface bool
	IsAbstract  bool
}

const modifierPattern = `(?:public|private|protected|static|final|abstract|synchronized|native|bridge|synthetic|varargs|strictfp|constructor|declared-synchronized|\s)*`

var (
	methodRe = regexp.MustCompile(`\.method\s+(` + modifierPattern + `)(\S+)\(([^)]*)\)(\S+)`)
	// Looser fallback for method lines the strict pattern rejects.
	methodFallbackRe = regexp.MustCompile(`\.method\s+.*?([a-zA-Z_$<>][\w$<>]*)\(([^)]*)\)(\S+)`)
	fieldRe          = regexp.MustCompile(`\.field\s+(` + modifierPattern + `)(\S+):(\S+)`)
)

// ParseClass parses one smali disassembly unit into a Class record. It
// returns nil when the unit declares no class at all; individually broken
// lines are skipped, never fatal.
func ParseClass(content string) *Class {
	c := &Class{Super: "java.lang.Object"}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, ".class"):
			// Modifiers sit between the directive and the type; smali emits
			// them in varying order (e.g. "interface abstract").
			toks := strings.Fields(line)
			if len(toks) < 2 {
				continue
			}
			c.Name = dotted(toks[len(toks)-1])
			for _, tok := range toks[1 : len(toks)-1] {
				switch tok {
				case "interface":
					c.IsInterface = true
				case "abstract":
					c.IsAbstract = true
				}
			}
		case strings.HasPrefix(line, ".super"):
			if toks := strings.Fields(line); len(toks) >= 2 {
				c.Super = dotted(toks[1])
			}
		case strings.HasPrefix(line, ".implements"):
			if toks := strings.Fields(line); len(toks) >= 2 {
				c.Interfaces = append(c.Interfaces, dotted(toks[1]))
			}
		case strings.HasPrefix(line, ".method"):
			if method, ok := parseMethodLine(line); ok {
				c.Methods = append(c.Methods, method)
			}
		case strings.HasPrefix(line, ".field"):
			m := fieldRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			rawType := m[3]
			// Drop initializer values (.field x:I = 0x1).
			if idx := strings.Index(rawType, "="); idx >= 0 {
				rawType = strings.TrimSpace(rawType[:idx])
			}
			fieldType, _ := descriptor.DecodeType(rawType)
			c.Fields = append(c.Fields, Field{Name: m[2], Type: fieldType})
		}
	}

	if c.Name == "" {
		return nil
	}
	return c
}

func parseMethodLine(line string) (Method, bool) {
	var modifiers, name, params, ret string
	if m := methodRe.FindStringSubmatch(line); m != nil {
		modifiers, name, params, ret = strings.ToLower(m[1]), m[2], m[3], m[4]
	} else if m := methodFallbackRe.FindStringSubmatch(line); m != nil {
		name, params, ret = m[1], m[2], m[3]
	} else {
		return Method{}, false
	}

	desc := "(" + params + ")" + ret
	paramTypes, returnType, _ := descriptor.DecodeMethodDescriptor(desc)

	return Method{
		Name:          name,
		Descriptor:    desc,
		ReturnType:    returnType,
		ParamTypes:    paramTypes,
		IsStatic:      strings.Contains(modifiers, "static"),
		IsAbstract:    strings.Contains(modifiers, "abstract"),
		IsConstructor: name == "<init>" || name == "<clinit>",
		IsBridge:      strings.Contains(modifiers, "bridge"),
		IsSynthetic:   strings.Contains(modifiers, "synthetic"),
	}, true
}

// dotted converts smali type spellings (Lcom/x/Y; or com/x/Y) to dotted
// qualified names.
func dotted(raw string) string {
	if strings.HasPrefix(raw, "L") && strings.HasSuffix(raw, ";") {
		raw = raw[1 : len(raw)-1]
	}
	return strings.ReplaceAll(raw, "/", ".")
}

// Store loads Class records lazily from a smali directory and memoizes them
// per class. Negative lookups are cached too, so missing disassembly units
// cost one stat per run.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Class
}

// NewStore creates a fact store over a smali output directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string]*Class)}
}

// ClassFor returns the structural facts for an obfuscated qualified class
// name, or nil when no disassembly unit exists for it.
func (s *Store) ClassFor(qualifiedName string) *Class {
	s.mu.Lock()
	if c, ok := s.cache[qualifiedName]; ok {
		s.mu.Unlock()
		return c
	}
	s.mu.Unlock()

	c := s.loadClass(qualifiedName)

	s.mu.Lock()
	s.cache[qualifiedName] = c
	s.mu.Unlock()
	return c
}

// Put inserts a pre-parsed class record, used by the bulk scan phase.
func (s *Store) Put(c *Class) {
	if c == nil || c.Name == "" {
		return
	}
	s.mu.Lock()
	s.cache[c.Name] = c
	s.mu.Unlock()
}

func (s *Store) loadClass(qualifiedName string) *Class {
	rel := strings.ReplaceAll(qualifiedName, ".", string(os.PathSeparator)) + ".smali"
	content, err := os.ReadFile(filepath.Join(s.dir, rel))
	if err != nil {
		return nil
	}
	return ParseClass(string(content))
}

// ParseFile parses a single smali file from disk.
func ParseFile(path string) (*Class, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read smali unit: %w", err)
	}
	return ParseClass(string(content)), nil
}
