package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deobf-dev/deobf/internal/javasrc"
	"github.com/deobf-dev/deobf/internal/mapping"
	"github.com/deobf-dev/deobf/internal/symbols"
)

func newTestEngine(t *testing.T, mappingText string, opts Options) *Engine {
	t.Helper()
	table, err := mapping.Parse(strings.NewReader(mappingText))
	if err != nil {
		t.Fatalf("parse mapping: %v", err)
	}
	ix := symbols.NewIndex(table, nil, symbols.Options{})
	ix.Warm()
	return NewEngine(ix, opts)
}

func rewriteSource(t *testing.T, e *Engine, src, currentClass string) string {
	t.Helper()
	out, err := e.RewriteClass(context.Background(), []byte(src), currentClass)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	return string(out)
}

const widgetMapping = `a.b.C -> com.x.Widget:
    void m() -> draw
`

func TestRewriteClassAndMethodDeclaration(t *testing.T) {
	e := newTestEngine(t, widgetMapping, Options{})
	got := rewriteSource(t, e, "class C { void m() {} }", "a.b.C")
	if got != "class Widget { void draw() {} }" {
		t.Fatalf("got %q", got)
	}
}

func TestRewriteIdempotent(t *testing.T) {
	e := newTestEngine(t, widgetMapping, Options{})
	src := `package a.b;

class C {
    C next;
    C() {}
    void m() {
        C v = this.next;
        v.m();
    }
}
`
	once := rewriteSource(t, e, src, "a.b.C")
	twice := rewriteSource(t, e, once, "a.b.C")
	if once != twice {
		t.Fatalf("rewrite is not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestRewriteConstructorCoRename(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
    void m() -> draw
`, Options{})
	src := `class C {
    C() {}
    void other() {}
}
`
	got := rewriteSource(t, e, src, "a.b.C")
	if !strings.Contains(got, "class Widget") || !strings.Contains(got, "Widget() {}") {
		t.Fatalf("constructor not co-renamed:\n%s", got)
	}
	if !strings.Contains(got, "void other()") {
		t.Fatalf("unrelated method touched:\n%s", got)
	}
}

func TestRewriteArityOverloads(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
    void m() -> reset
    void m(int) -> set
`, Options{})
	src := `class C {
    void t() {
        m();
        m(5);
    }
}
`
	got := rewriteSource(t, e, src, "a.b.C")
	if !strings.Contains(got, "reset();") {
		t.Fatalf("zero-arg call not resolved:\n%s", got)
	}
	if !strings.Contains(got, "set(5);") {
		t.Fatalf("one-arg call not resolved:\n%s", got)
	}
}

func TestRewriteMemberAccessViaLocalType(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
    int q -> count
    void m() -> draw
`, Options{})
	src := `class D {
    void t() {
        C v = new C();
        v.m();
        int x = v.q;
    }
}
`
	got := rewriteSource(t, e, src, "a.b.D")
	if !strings.Contains(got, "Widget v = new Widget()") {
		t.Fatalf("type tokens not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "v.draw();") {
		t.Fatalf("method call not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "v.count;") {
		t.Fatalf("field access not rewritten:\n%s", got)
	}
}

func TestRewriteScopedShadowing(t *testing.T) {
	// A receiver declared in one block must not leak into a sibling block.
	e := newTestEngine(t, widgetMapping, Options{})
	src := `class D {
    void t() {
        {
            C v = new C();
            v.m();
        }
        {
            v.m();
        }
    }
}
`
	got := rewriteSource(t, e, src, "a.b.D")
	if strings.Count(got, "draw()") != 1 {
		t.Fatalf("sibling-block leak: want exactly one rewritten call:\n%s", got)
	}
}

func TestRewriteImports(t *testing.T) {
	e := newTestEngine(t, widgetMapping, Options{})
	src := `package x;

import a.b.C;
import other.pkg.C;
import untouched.pkg.Z;

class D {}
`
	got := rewriteSource(t, e, src, "x.D")
	if !strings.Contains(got, "import com.x.Widget;") {
		t.Fatalf("qualified import not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "import other.pkg.Widget;") {
		t.Fatalf("import suffix not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "import untouched.pkg.Z;") {
		t.Fatalf("unrelated import touched:\n%s", got)
	}
}

func TestRewriteQualifiedType(t *testing.T) {
	e := newTestEngine(t, widgetMapping, Options{})
	src := `class D {
    a.b.C field;
}
`
	got := rewriteSource(t, e, src, "x.D")
	if !strings.Contains(got, "com.x.Widget field;") {
		t.Fatalf("qualified type not rewritten:\n%s", got)
	}
}

func TestRewriteQualifiedTypeWithMappedPrefix(t *testing.T) {
	// a.b is itself a renamed class; the nested prefix of a.b.C must not get
	// its own edit inside the whole-name replacement.
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
a.b -> com.y.Zed:
`, Options{})
	got := rewriteSource(t, e, "class D { a.b.C v = null; }", "x.D")
	if !strings.Contains(got, "com.x.Widget v") {
		t.Fatalf("qualified type not rewritten:\n%s", got)
	}
	if strings.Contains(got, "Zed") {
		t.Fatalf("nested prefix rewritten independently:\n%s", got)
	}
}

func TestRewriteExtendsImplements(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
a.b.I -> com.x.Drawable:
`, Options{})
	src := `class D extends C implements I, Runnable {}`
	got := rewriteSource(t, e, src, "a.b.D")
	if !strings.Contains(got, "extends Widget") {
		t.Fatalf("extends not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "implements Drawable, Runnable") {
		t.Fatalf("implements not rewritten:\n%s", got)
	}
}

func TestRewriteReflectionStrings(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
    void m() -> draw
    void mb() -> paint
`, Options{})
	src := `class D {
    void t() throws Exception {
        Class.forName("a.b.C");
        getClass().getMethod("mb");
        getClass().getMethod("m");
        log("a.b.C");
    }
}
`
	got := rewriteSource(t, e, src, "a.b.D")
	if !strings.Contains(got, `Class.forName("com.x.Widget")`) {
		t.Fatalf("forName literal not rewritten:\n%s", got)
	}
	if !strings.Contains(got, `getMethod("paint")`) {
		t.Fatalf("getMethod literal not rewritten:\n%s", got)
	}
	// Single-character literals are too dangerous to touch reflectively.
	if !strings.Contains(got, `getMethod("m")`) {
		t.Fatalf("single-character literal touched:\n%s", got)
	}
	if !strings.Contains(got, `log("a.b.C")`) {
		t.Fatalf("unrelated literal touched:\n%s", got)
	}
}

func TestRewriteUnknownReceiverUntouched(t *testing.T) {
	e := newTestEngine(t, widgetMapping, Options{})
	src := `class D {
    void t(Object o) {
        helper().m();
        o.hashCode();
    }
}
`
	got := rewriteSource(t, e, src, "a.b.D")
	if strings.Contains(got, "draw") {
		t.Fatalf("unknown receiver produced an edit:\n%s", got)
	}
}

func TestRewriteParseQualityGate(t *testing.T) {
	e := newTestEngine(t, widgetMapping, Options{ErrorThreshold: 0.01})
	src := `class C { void m( { %% )) } ((((`
	_, err := e.RewriteClass(context.Background(), []byte(src), "a.b.C")
	var qe *javasrc.ParseQualityError
	if !errors.As(err, &qe) {
		t.Fatalf("expected ParseQualityError, got %v", err)
	}
	if qe.Path != "a.b.C" {
		t.Fatalf("gate error path = %q", qe.Path)
	}
}

func TestRewriteFieldReceiverChain(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
    void m() -> draw
a.Scene -> com.x.Scene:
    a.b.C w -> widget
`, Options{})
	src := `class D {
    void t() {
        s.w.m();
    }
}
`
	// s is never declared in scope, so its type is unknown and nothing under
	// it may be rewritten; conservative halting is the contract.
	got := rewriteSource(t, e, src, "a.D")
	if strings.Contains(got, "draw") || strings.Contains(got, "widget") {
		t.Fatalf("unresolvable receiver chain produced edits:\n%s", got)
	}
}

func TestRewriteFieldChainWithKnownRoot(t *testing.T) {
	e := newTestEngine(t, `a.b.C -> com.x.Widget:
    void m() -> draw
a.Scene -> com.x.Scene:
    a.b.C w -> widget
`, Options{})
	src := `class D {
    void t(Scene s) {
        s.w.m();
    }
}
`
	got := rewriteSource(t, e, src, "a.D")
	if !strings.Contains(got, "s.widget.draw();") {
		t.Fatalf("field chain not rewritten:\n%s", got)
	}
}
