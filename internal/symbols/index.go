// Package symbols resolves obfuscated member names to original names by
// combining the rename table, bytecode structural facts, the platform
// interface catalog and optional cross-reference evidence. Every resolution
// carries a confidence level; ambiguity always resolves to nothing rather
// than a guess.
package symbols

import (
	"strings"
	"sync"

	"github.com/deobf-dev/deobf/internal/descriptor"
	"github.com/deobf-dev/deobf/internal/facts"
	"github.com/deobf-dev/deobf/internal/mapping"
	"github.com/deobf-dev/deobf/internal/platform"
	"github.com/deobf-dev/deobf/internal/xref"
)

// Confidence ranks how a resolution was obtained. Higher is stronger.
type Confidence int

const (
	ConfidenceUnresolved Confidence = iota
	ConfidenceHeuristic             // pattern table or xref category, tagged output
	ConfidenceInterface             // platform interface contract match
	ConfidenceUnique                // single same-name record, arity compatible
	ConfidenceExact                 // full JVM descriptor equality
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExact:
		return "exact"
	case ConfidenceUnique:
		return "unique"
	case ConfidenceInterface:
		return "interface"
	case ConfidenceHeuristic:
		return "heuristic"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome of a name lookup.
type Resolution struct {
	Name       string
	Confidence Confidence
}

// Resolved reports whether any name was produced at all.
func (r Resolution) Resolved() bool { return r.Confidence != ConfidenceUnresolved }

// Verified reports whether the resolution is strong enough to rewrite source
// with. Heuristic names are excluded; they exist for reports, not rewrites.
func (r Resolution) Verified() bool { return r.Confidence >= ConfidenceInterface }

var unresolved = Resolution{}

// Options tunes index behavior.
type Options struct {
	// Heuristics enables the low-confidence pattern tables.
	Heuristics bool
	// HeuristicPrefix tags pattern-table names; defaults to
	// DefaultHeuristicPrefix when empty.
	HeuristicPrefix string
	// ExternalPrefixes overrides the library namespaces the inheritance walk
	// refuses to enter. Nil selects the defaults.
	ExternalPrefixes []string
}

// Index is the global symbol index. Construct with NewIndex, then call Warm
// once the fact store is populated; after warming the index is safe for
// concurrent readers.
type Index struct {
	table   *mapping.Table
	store   *facts.Store
	matcher *platform.Matcher
	xrefs   *xref.Index
	inherit *InheritanceGraph
	opts    Options

	// shortClasses maps an obfuscated short class name to its qualified
	// candidates; origToObf inverts the class rename direction so types
	// spelled in original names (as rename table member lines are) can be
	// walked back into obfuscated space.
	shortClasses map[string][]string
	origToObf    map[string]string

	mu     sync.Mutex
	seeded map[string]bool
	warmed bool
}

// NewIndex builds an index over a rename table and a fact store. The store
// may be nil when no disassembly is available; resolution then runs on the
// rename table alone. matcher and xrefs are optional evidence sources.
func NewIndex(table *mapping.Table, store *facts.Store, opts Options) *Index {
	if opts.HeuristicPrefix == "" {
		opts.HeuristicPrefix = DefaultHeuristicPrefix
	}
	ix := &Index{
		table:        table,
		store:        store,
		matcher:      platform.NewMatcher(),
		inherit:      NewInheritanceGraph(opts.ExternalPrefixes),
		opts:         opts,
		shortClasses: make(map[string][]string),
		origToObf:    make(map[string]string),
		seeded:       make(map[string]bool),
	}
	for _, obf := range table.Classes() {
		short := obf
		if idx := strings.LastIndex(obf, "."); idx >= 0 {
			short = obf[idx+1:]
		}
		ix.shortClasses[short] = append(ix.shortClasses[short], obf)
		if orig, ok := table.ClassName(obf); ok {
			ix.origToObf[orig] = obf
		}
	}
	return ix
}

// SetXref attaches a cross-reference index as an extra low-confidence
// evidence source.
func (ix *Index) SetXref(x *xref.Index) { ix.xrefs = x }

// SetInheritance records an extends/implements pair discovered outside the
// fact store, typically by the source pre-scan. Parents spelled as bare short
// names are canonicalized when unambiguous; ambiguous spellings are dropped
// rather than guessed.
func (ix *Index) SetInheritance(child, parent string) {
	canonical, ok := ix.canonicalClass(parent)
	if !ok {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.inherit.AddEdge(child, canonical)
}

// Warm folds every class currently in the fact store into the index:
// inheritance edges plus descriptor enrichment of the rename table. Call it
// after the bulk fact scan and before handing the index to parallel workers;
// it is what makes later reads mutation-free.
func (ix *Index) Warm() {
	if ix.store == nil {
		ix.mu.Lock()
		ix.warmed = true
		ix.mu.Unlock()
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for name, c := range ix.store.Classes() {
		ix.seedLocked(name, c)
	}
	ix.warmed = true
}

// ensureClass lazily folds one class's facts in. No-op after Warm.
func (ix *Index) ensureClass(name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.warmed || ix.seeded[name] {
		return
	}
	if ix.store == nil {
		ix.seeded[name] = true
		return
	}
	ix.seedLocked(name, ix.store.ClassFor(name))
}

func (ix *Index) seedLocked(name string, c *facts.Class) {
	ix.seeded[name] = true
	if c == nil {
		return
	}
	ix.inherit.AddEdge(c.Name, c.Super)
	for _, iface := range c.Interfaces {
		ix.inherit.AddEdge(c.Name, iface)
	}
	for _, m := range c.Methods {
		if m.IsConstructor || m.IsBridge || m.IsSynthetic {
			continue
		}
		ix.table.EnrichDescriptor(c.Name, m.Name, m.Descriptor, len(m.ParamTypes))
	}
}

// lookupChain returns the receiver class followed by its ancestors, seeding
// facts for each hop so inheritance edges exist before they are walked.
func (ix *Index) lookupChain(class string) []string {
	chain := []string{class}
	visited := map[string]bool{class: true}
	queue := []string{class}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ix.ensureClass(current)
		ix.mu.Lock()
		parents := ix.inherit.Parents(current)
		ix.mu.Unlock()
		for _, p := range parents {
			if visited[p] || ix.inherit.External(p) {
				continue
			}
			visited[p] = true
			chain = append(chain, p)
			queue = append(queue, p)
		}
	}
	return chain
}

// canonicalClass maps a type as spelled in source or in a rename record to
// an obfuscated qualified class name. It returns ok=false when the spelling
// is ambiguous across classes, which callers must treat as unresolvable.
func (ix *Index) canonicalClass(typeName string) (string, bool) {
	typeName = strings.TrimSpace(typeName)
	if idx := strings.Index(typeName, "<"); idx >= 0 {
		typeName = typeName[:idx]
	}
	typeName = strings.TrimSuffix(typeName, "[]")
	if typeName == "" {
		return "", false
	}
	if ix.table.HasClass(typeName) {
		return typeName, true
	}
	if obf, ok := ix.origToObf[typeName]; ok {
		return obf, true
	}
	if !strings.Contains(typeName, ".") {
		switch candidates := ix.shortClasses[typeName]; len(candidates) {
		case 0:
			// Possibly a default-package class known only from facts.
			return typeName, true
		case 1:
			return candidates[0], true
		default:
			return "", false
		}
	}
	return typeName, true
}

// methodQuery is the internal shape of a method lookup: the descriptor is
// known on the bytecode path and empty on the source path; arity is -1 when
// the call site's argument count is unknown.
type methodQuery struct {
	name       string
	descriptor string
	arity      int
}

// ResolveMethod resolves a method called on receiverType from decompiled
// source, where only the argument count is observable. arity < 0 means even
// that is unknown.
func (ix *Index) ResolveMethod(receiverType, obfName string, arity int) Resolution {
	return ix.resolveMethod(receiverType, methodQuery{name: obfName, arity: arity})
}

// ResolveMethodBySignature resolves a method given its full JVM descriptor,
// as available on the bytecode side.
func (ix *Index) ResolveMethodBySignature(obfClass, obfName, desc string) Resolution {
	return ix.resolveMethod(obfClass, methodQuery{
		name:       obfName,
		descriptor: desc,
		arity:      descriptor.ParamCount(desc),
	})
}

func (ix *Index) resolveMethod(receiverType string, q methodQuery) Resolution {
	if receiverType == "" || q.name == "" {
		return unresolved
	}
	class, ok := ix.canonicalClass(receiverType)
	if !ok {
		return unresolved
	}

	chain := ix.lookupChain(class)
	for _, cls := range chain {
		// A class whose overloads the query cannot tell apart is skipped, not
		// fatal: an ancestor may still carry a single record for the name.
		if res := ix.resolveInClass(cls, q); res.Resolved() {
			return res
		}
	}

	// The rename table is silent along the whole chain; fall back to the
	// contract and evidence ladder, all of which need a descriptor.
	desc := q.descriptor
	if desc == "" {
		desc = ix.uniqueFactDescriptor(chain, q.name)
	}
	if desc == "" {
		return unresolved
	}

	if _, method, ok := ix.matcher.Match(ix.declaredInterfaces(chain), desc); ok {
		return Resolution{Name: method, Confidence: ConfidenceInterface}
	}

	if ix.xrefs != nil {
		if category, ok := ix.xrefs.InferSemanticCategory(class, q.name, desc); ok {
			return Resolution{Name: category, Confidence: ConfidenceHeuristic}
		}
	}

	if ix.opts.Heuristics {
		_, ret, ok := descriptor.DecodeMethodDescriptor(desc)
		if ok {
			if guess := guessMethodName(ret, descriptor.ParamCount(desc)); guess != "" {
				return Resolution{
					Name:       ix.opts.HeuristicPrefix + guess,
					Confidence: ConfidenceHeuristic,
				}
			}
		}
	}
	return unresolved
}

// resolveInClass checks one class's rename records. Several records the query
// cannot pick between yield unresolved; the caller moves on to the next class
// in the chain.
func (ix *Index) resolveInClass(cls string, q methodQuery) Resolution {
	var candidates []mapping.Member
	for _, m := range ix.table.Members(cls) {
		if m.IsMethod && m.Obf == q.name {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return unresolved
	}

	if q.descriptor != "" {
		for _, m := range candidates {
			if m.Descriptor == q.descriptor {
				return Resolution{Name: m.Orig, Confidence: ConfidenceExact}
			}
		}
	}

	compatible := candidates[:0:0]
	for _, m := range candidates {
		if q.descriptor != "" && m.Descriptor != "" && m.Descriptor != q.descriptor {
			continue
		}
		if q.arity < 0 || m.ParamCount() < 0 || m.ParamCount() == q.arity {
			compatible = append(compatible, m)
		}
	}
	if len(compatible) != 1 {
		return unresolved
	}
	m := compatible[0]
	conf := ConfidenceUnique
	if q.descriptor != "" && m.Descriptor == q.descriptor {
		conf = ConfidenceExact
	}
	return Resolution{Name: m.Orig, Confidence: conf}
}

// uniqueFactDescriptor returns the descriptor of the named method when the
// fact store knows exactly one spelling of it across the chain, "" otherwise.
func (ix *Index) uniqueFactDescriptor(chain []string, name string) string {
	if ix.store == nil {
		return ""
	}
	desc := ""
	for _, cls := range chain {
		c := ix.store.ClassFor(cls)
		if c == nil {
			continue
		}
		for _, m := range c.Methods {
			if m.Name != name {
				continue
			}
			if desc != "" && desc != m.Descriptor {
				return ""
			}
			desc = m.Descriptor
		}
	}
	return desc
}

// declaredInterfaces collects every interface declared anywhere along the
// chain, in smali dotted form.
func (ix *Index) declaredInterfaces(chain []string) []string {
	if ix.store == nil {
		return nil
	}
	var ifaces []string
	seen := map[string]bool{}
	for _, cls := range chain {
		c := ix.store.ClassFor(cls)
		if c == nil {
			continue
		}
		for _, iface := range c.Interfaces {
			if !seen[iface] {
				seen[iface] = true
				ifaces = append(ifaces, iface)
			}
		}
	}
	return ifaces
}

// ResolveField resolves a field accessed on receiverType. Fields cannot
// overload, so a hit anywhere along the chain is definitive.
func (ix *Index) ResolveField(receiverType, obfName string) Resolution {
	if receiverType == "" || obfName == "" {
		return unresolved
	}
	class, ok := ix.canonicalClass(receiverType)
	if !ok {
		return unresolved
	}
	for _, cls := range ix.lookupChain(class) {
		for _, m := range ix.table.Members(cls) {
			if !m.IsMethod && m.Obf == obfName {
				return Resolution{Name: m.Orig, Confidence: ConfidenceExact}
			}
		}
	}
	return unresolved
}

// MethodReturnType reports the declared return type of a method, walked back
// into obfuscated space so the result can seed further resolution. ok=false
// when the type is unknown or the method's overloads disagree.
func (ix *Index) MethodReturnType(receiverType, obfName string) (string, bool) {
	class, ok := ix.canonicalClass(receiverType)
	if !ok {
		return "", false
	}
	chain := ix.lookupChain(class)
	for _, cls := range chain {
		ret := ""
		for _, m := range ix.table.Members(cls) {
			if !m.IsMethod || m.Obf != obfName || m.ReturnType == "" {
				continue
			}
			if ret != "" && ret != m.ReturnType {
				return "", false
			}
			ret = m.ReturnType
		}
		if ret != "" {
			return ix.toObfType(ret), true
		}
	}
	if ix.store != nil {
		for _, cls := range chain {
			c := ix.store.ClassFor(cls)
			if c == nil {
				continue
			}
			ret := ""
			for _, m := range c.Methods {
				if m.Name != obfName || m.ReturnType == "" {
					continue
				}
				if ret != "" && ret != m.ReturnType {
					return "", false
				}
				ret = m.ReturnType
			}
			if ret != "" {
				return ret, true
			}
		}
	}
	return "", false
}

// FieldType reports the declared type of a field, in obfuscated space.
func (ix *Index) FieldType(receiverType, obfName string) (string, bool) {
	class, ok := ix.canonicalClass(receiverType)
	if !ok {
		return "", false
	}
	chain := ix.lookupChain(class)
	for _, cls := range chain {
		for _, m := range ix.table.Members(cls) {
			if !m.IsMethod && m.Obf == obfName && m.ReturnType != "" {
				return ix.toObfType(m.ReturnType), true
			}
		}
	}
	if ix.store != nil {
		for _, cls := range chain {
			c := ix.store.ClassFor(cls)
			if c == nil {
				continue
			}
			for _, f := range c.Fields {
				if f.Name == obfName && f.Type != "" {
					return f.Type, true
				}
			}
		}
	}
	return "", false
}

// ClassName resolves an obfuscated class spelling to its original qualified
// name.
func (ix *Index) ClassName(typeName string) (string, bool) {
	class, ok := ix.canonicalClass(typeName)
	if !ok {
		return "", false
	}
	return ix.table.ClassName(class)
}

// toObfType converts a type spelled in original names (as rename table
// member columns are) back to its obfuscated spelling when one exists.
func (ix *Index) toObfType(t string) string {
	base := t
	if idx := strings.Index(base, "<"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSuffix(base, "[]")
	if obf, ok := ix.origToObf[base]; ok {
		return obf
	}
	return t
}

// Table exposes the underlying rename table for report generation.
func (ix *Index) Table() *mapping.Table { return ix.table }

// Facts exposes the underlying fact store; nil when resolution runs without
// disassembly.
func (ix *Index) Facts() *facts.Store { return ix.store }
