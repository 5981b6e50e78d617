// Package report produces the unmapped-member report: for every class in the
// rename table that has bytecode facts, which methods the resolver can name
// and which it cannot.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/deobf-dev/deobf/internal/symbols"
)

// MethodEntry describes one method no resolution path could name.
type MethodEntry struct {
	Class      string   `json:"class"`
	Method     string   `json:"method"`
	ReturnType string   `json:"returnType"`
	ParamTypes []string `json:"paramTypes,omitempty"`
	Descriptor string   `json:"descriptor,omitempty"`
}

// Summary aggregates resolution outcomes across the whole table. Exact counts
// every verified resolution (descriptor, unique-name or interface match);
// Heuristic counts pattern-table and call-graph guesses.
type Summary struct {
	TotalMethods int           `json:"totalMethods"`
	Exact        int           `json:"exact"`
	Heuristic    int           `json:"heuristic"`
	Unmapped     []MethodEntry `json:"unmapped"`
}

// Build resolves every non-constructor method known to the fact store for
// each class in the index's rename table. Heuristic tallies only show up when
// the index was built with heuristics enabled.
func Build(ix *symbols.Index) *Summary {
	sum := &Summary{}
	store := ix.Facts()
	for _, obfClass := range ix.Table().Classes() {
		c := store.ClassFor(obfClass)
		if c == nil {
			continue
		}
		for _, m := range c.Methods {
			if m.IsConstructor || m.IsBridge || m.IsSynthetic {
				continue
			}
			sum.TotalMethods++
			res := ix.ResolveMethodBySignature(obfClass, m.Name, m.Descriptor)
			switch {
			case res.Verified():
				sum.Exact++
			case res.Resolved():
				sum.Heuristic++
			default:
				sum.Unmapped = append(sum.Unmapped, MethodEntry{
					Class:      obfClass,
					Method:     m.Name,
					ReturnType: m.ReturnType,
					ParamTypes: m.ParamTypes,
					Descriptor: m.Descriptor,
				})
			}
		}
	}
	sort.Slice(sum.Unmapped, func(i, j int) bool {
		a, b := sum.Unmapped[i], sum.Unmapped[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Descriptor < b.Descriptor
	})
	return sum
}

func pct(n, total int) float64 {
	if total == 0 {
		total = 1
	}
	return float64(n) / float64(total) * 100
}

// WriteText emits the grouped plain-text report.
func (s *Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# unmapped method report\n# total methods: %d\n# exact: %d (%.1f%%)\n# heuristic: %d (%.1f%%)\n# unmapped: %d (%.1f%%)\n\n",
		s.TotalMethods,
		s.Exact, pct(s.Exact, s.TotalMethods),
		s.Heuristic, pct(s.Heuristic, s.TotalMethods),
		len(s.Unmapped), pct(len(s.Unmapped), s.TotalMethods)); err != nil {
		return err
	}
	current := ""
	for _, m := range s.Unmapped {
		if m.Class != current {
			if current != "" {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			current = m.Class
			if _, err := fmt.Fprintf(w, "=== %s ===\n", m.Class); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  %s %s(%s)\n", m.ReturnType, m.Method, strings.Join(m.ParamTypes, ", ")); err != nil {
			return err
		}
	}
	if current != "" {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON emits the summary as indented JSON.
func (s *Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
