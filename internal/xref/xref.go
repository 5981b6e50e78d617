// Package xref builds the caller/callee and field-accessor graph from smali
// instruction streams. The index is an optional, best-effort signal: symbol
// resolution consults it only after exact and unique-name matching fail.
package xref

import (
	"regexp"
	"sort"
	"strings"
)

// Edge records one method call discovered in an instruction stream.
type Edge struct {
	CallerClass      string
	CallerMethod     string
	CallerDescriptor string
	CalleeClass      string
	CalleeMethod     string
	CalleeDescriptor string
	Kind             string // invoke-virtual, invoke-static, ...
}

// FieldEdge records one field read or write.
type FieldEdge struct {
	AccessorClass  string
	AccessorMethod string
	FieldClass     string
	FieldName      string
	FieldType      string
	Kind           string // read | write
}

// memberKey identifies a method by (class, name, descriptor).
type memberKey struct {
	class, member, descriptor string
}

type fieldKey struct {
	class, field string
}

// Index is the immutable cross-reference index. Build it once with a
// Builder; queries are safe for concurrent use afterwards.
type Index struct {
	callers      map[memberKey][]Edge
	callees      map[memberKey][]Edge
	fieldReaders map[fieldKey][]FieldEdge
	fieldWriters map[fieldKey][]FieldEdge
}

// Stats summarizes the call graph for reporting.
type Stats struct {
	UniqueCallees   int
	UniqueCallers   int
	UniqueFields    int
	TotalCallEdges  int
	TotalFieldEdges int
}

// CallersOf returns every recorded call into (class, method, descriptor).
func (x *Index) CallersOf(class, method, descriptor string) []Edge {
	return x.callers[memberKey{dotted(class), method, descriptor}]
}

// CalleesOf returns every call made by (class, method, descriptor).
func (x *Index) CalleesOf(class, method, descriptor string) []Edge {
	return x.callees[memberKey{dotted(class), method, descriptor}]
}

// FieldAccessors returns the readers and writers of a field.
func (x *Index) FieldAccessors(class, field string) (readers, writers []FieldEdge) {
	k := fieldKey{dotted(class), field}
	return x.fieldReaders[k], x.fieldWriters[k]
}

// Stats computes aggregate counts over the index.
func (x *Index) Stats() Stats {
	s := Stats{
		UniqueCallees: len(x.callers),
		UniqueCallers: len(x.callees),
		UniqueFields:  len(x.fieldReaders) + len(x.fieldWriters),
	}
	for _, edges := range x.callers {
		s.TotalCallEdges += len(edges)
	}
	for _, edges := range x.fieldReaders {
		s.TotalFieldEdges += len(edges)
	}
	for _, edges := range x.fieldWriters {
		s.TotalFieldEdges += len(edges)
	}
	return s
}

// semanticKeywords groups caller-name fragments into coarse behavioral
// categories. A callee inherits the majority category of its callers.
var semanticKeywords = map[string][]string{
	"Draw":     {"ondraw", "draw", "paint", "render"},
	"Update":   {"update", "tick", "onupdate", "step"},
	"Init":     {"init", "initialize", "setup", "oncreate"},
	"Dispose":  {"dispose", "cleanup", "destroy", "close", "release"},
	"Callback": {"onclick", "ontouch", "onevent", "handle"},
}

// InferSemanticCategory guesses what a method is for from the names of its
// callers. It answers only when at least two callers agree on a category,
// and the synthetic name is always of the form relatedTo<Category> so
// downstream consumers can spot the low-confidence origin.
func (x *Index) InferSemanticCategory(class, method, descriptor string) (string, bool) {
	callers := x.CallersOf(class, method, descriptor)
	if len(callers) == 0 {
		return "", false
	}

	counts := make(map[string]int)
	for _, ref := range callers {
		name := strings.ToLower(ref.CallerMethod)
		for category, keywords := range semanticKeywords {
			for _, kw := range keywords {
				if strings.Contains(name, kw) {
					counts[category]++
					break
				}
			}
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	// Deterministic winner on ties.
	sort.Strings(categories)
	best, bestCount := "", 0
	for _, c := range categories {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	if bestCount < 2 {
		return "", false
	}
	return "relatedTo" + best, true
}

var (
	// Standard smali form: invoke-xxx {regs}, Lclass;->method(params)ret
	invokeRe = regexp.MustCompile(`(invoke-\w+)\s*(?:/range)?\s*\{[^}]*\},\s*(L[^;]+;)->([<>\w$]+)\(([^)]*)\)(\S+)`)
	// Standard smali form: iget vX, vY, Lclass;->field:type
	fieldAccessRe = regexp.MustCompile(`([si](?:get|put)(?:-\w+)?)\s+[vp][^,]*,\s*(?:[vp][^,]*,\s*)?(L[^;]+;)->([\w$]+):(\S+)`)
	methodDeclRe  = regexp.MustCompile(`^\.method\s+.*?(\S+)\(([^)]*)\)(\S+)`)
	classDeclRe   = regexp.MustCompile(`\.class\s+.*?(L[^;]+;)`)
)

// ScanUnit extracts the call and field-access edges of one smali unit. The
// result is purely local: workers run ScanUnit independently and the edge
// lists are merged afterwards.
func ScanUnit(content string) (calls []Edge, fields []FieldEdge) {
	classMatch := classDeclRe.FindStringSubmatch(content)
	if classMatch == nil {
		return nil, nil
	}
	currentClass := dotted(classMatch[1])

	var currentMethod, currentDescriptor string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if m := methodDeclRe.FindStringSubmatch(line); m != nil {
			currentMethod = m[1]
			currentDescriptor = "(" + m[2] + ")" + m[3]
			continue
		}
		if line == ".end method" {
			currentMethod, currentDescriptor = "", ""
			continue
		}
		if currentMethod == "" {
			continue
		}

		if m := invokeRe.FindStringSubmatch(line); m != nil {
			calls = append(calls, Edge{
				CallerClass:      currentClass,
				CallerMethod:     currentMethod,
				CallerDescriptor: currentDescriptor,
				CalleeClass:      dotted(m[2]),
				CalleeMethod:     m[3],
				CalleeDescriptor: "(" + m[4] + ")" + m[5],
				Kind:             m[1],
			})
			continue
		}
		if m := fieldAccessRe.FindStringSubmatch(line); m != nil {
			kind := "write"
			if strings.Contains(m[1], "get") {
				kind = "read"
			}
			fields = append(fields, FieldEdge{
				AccessorClass:  currentClass,
				AccessorMethod: currentMethod,
				FieldClass:     dotted(m[2]),
				FieldName:      m[3],
				FieldType:      m[4],
				Kind:           kind,
			})
		}
	}
	return calls, fields
}

func dotted(raw string) string {
	if strings.HasPrefix(raw, "L") && strings.HasSuffix(raw, ";") {
		raw = raw[1 : len(raw)-1]
	}
	return strings.ReplaceAll(raw, "/", ".")
}
