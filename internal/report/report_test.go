package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/deobf-dev/deobf/internal/facts"
	"github.com/deobf-dev/deobf/internal/mapping"
	"github.com/deobf-dev/deobf/internal/symbols"
)

func testIndex(t *testing.T) *symbols.Index {
	t.Helper()
	table, err := mapping.Parse(strings.NewReader(`a.b.C -> com.x.Widget:
    void m() -> draw
`))
	if err != nil {
		t.Fatalf("parse mapping: %v", err)
	}
	store := facts.NewStore("")
	store.Put(&facts.Class{
		Name:  "a.b.C",
		Super: "java.lang.Object",
		Methods: []facts.Method{
			{Name: "m", Descriptor: "()V", ReturnType: "void"},
			{Name: "n", Descriptor: "()Z", ReturnType: "boolean"},
			{Name: "x", Descriptor: "()Ljava/util/Map;", ReturnType: "java.util.Map"},
			{Name: "<init>", Descriptor: "()V", ReturnType: "void", IsConstructor: true},
			{Name: "access$000", Descriptor: "()V", ReturnType: "void", IsSynthetic: true},
		},
	})
	ix := symbols.NewIndex(table, store, symbols.Options{Heuristics: true})
	ix.Warm()
	return ix
}

func TestBuildTallies(t *testing.T) {
	sum := Build(testIndex(t))
	if sum.TotalMethods != 3 {
		t.Fatalf("TotalMethods = %d, want 3 (constructors and synthetics excluded)", sum.TotalMethods)
	}
	if sum.Exact != 1 {
		t.Errorf("Exact = %d, want 1", sum.Exact)
	}
	// ()Z with no arguments hits the pattern table.
	if sum.Heuristic != 1 {
		t.Errorf("Heuristic = %d, want 1", sum.Heuristic)
	}
	if len(sum.Unmapped) != 1 {
		t.Fatalf("Unmapped = %v, want one entry", sum.Unmapped)
	}
	got := sum.Unmapped[0]
	if got.Class != "a.b.C" || got.Method != "x" || got.ReturnType != "java.util.Map" {
		t.Errorf("unexpected unmapped entry: %+v", got)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(testIndex(t)).WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# total methods: 3",
		"# exact: 1 (33.3%)",
		"=== a.b.C ===",
		"  java.util.Map x()",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in report:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(testIndex(t)).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal(buf.Bytes(), &sum); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if sum.TotalMethods != 3 || len(sum.Unmapped) != 1 {
		t.Errorf("unexpected decoded summary: %+v", sum)
	}
}

func TestEmptySummaryText(t *testing.T) {
	var buf bytes.Buffer
	if err := (&Summary{}).WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "# total methods: 0") {
		t.Errorf("unexpected empty report: %q", buf.String())
	}
}
