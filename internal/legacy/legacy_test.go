package legacy

import (
	"strings"
	"testing"

	"github.com/deobf-dev/deobf/internal/mapping"
)

func mustTable(t *testing.T, text string) *mapping.Table {
	t.Helper()
	table, err := mapping.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse mapping: %v", err)
	}
	return table
}

const fallbackMapping = `a.b.C -> com.x.Widget:
    void m() -> draw
    int c -> count
a.b.D -> com.x.Helper:
`

func TestRewriteQualifiedNames(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "package a.b;\nimport a.b.D;\nclass C { a.b.D h; }\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	if !strings.Contains(out, "import com.x.Helper;") {
		t.Fatalf("import not rewritten: %q", out)
	}
	if !strings.Contains(out, "com.x.Helper h;") {
		t.Fatalf("field declaration type not rewritten: %q", out)
	}
}

func TestRewriteShortNamesInTypeContexts(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "class C extends Object {\n" +
		"  C self;\n" +
		"  void go() { C x = new C(); Object o = (C) x; }\n" +
		"}\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	for _, want := range []string{"class Widget", "Widget self;", "Widget x =", "new Widget()", "(Widget) x"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRewriteMembersOfCurrentClass(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "class C {\n  void go() { this.m(); int n = this.c; }\n}\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	if !strings.Contains(out, "this.draw()") {
		t.Errorf("method call not rewritten: %q", out)
	}
	if !strings.Contains(out, "this.count;") {
		t.Errorf("field access not rewritten: %q", out)
	}
}

func TestRewriteBareMethodCall(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "class C {\n  void go() { m(); }\n}\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	if !strings.Contains(out, "draw();") {
		t.Fatalf("bare call not rewritten: %q", out)
	}
}

func TestStringLiteralsProtected(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "class C { String s = \"a.b.C and m( and new C()\"; }\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	if !strings.Contains(out, `"a.b.C and m( and new C()"`) {
		t.Fatalf("string literal was modified: %q", out)
	}
}

func TestAmbiguousMethodsSkipped(t *testing.T) {
	table := mustTable(t, `a.b.C -> com.x.Widget:
    void m(int) -> set
    void m(float) -> move
`)
	rw := NewRewriter(table)
	src := "class C { void go() { m(1); } }\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	if !strings.Contains(out, "m(1);") {
		t.Fatalf("ambiguous overload should stay untouched: %q", out)
	}
}

func TestOtherClassMembersUntouched(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "class D { void go() { other.m(); } }\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.D"))
	if !strings.Contains(out, "other.m();") {
		t.Fatalf("foreign member should stay untouched: %q", out)
	}
}

func TestGenericsAndClassLiterals(t *testing.T) {
	rw := NewRewriter(mustTable(t, fallbackMapping))
	src := "class C { List<C> all; Class<?> k = C.class; }\n"
	out := string(rw.RewriteClass([]byte(src), "a.b.C"))
	if !strings.Contains(out, "List<Widget>") {
		t.Errorf("generic parameter not rewritten: %q", out)
	}
	if !strings.Contains(out, "Widget.class") {
		t.Errorf("class literal not rewritten: %q", out)
	}
}
