package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deobf-dev/deobf/internal/mapping"
	"github.com/deobf-dev/deobf/internal/state"
	"github.com/deobf-dev/deobf/internal/symbols"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCommand("test")
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	return cmd.Execute()
}

const testMapping = `a.b.C -> com.x.Widget:
    void m() -> draw
    int c -> count
`

const testSource = `package a.b;

public class C {
    int c;

    void m() {
        this.c = 1;
    }
}
`

func setupTree(t *testing.T) (root, mappingPath, out string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "src")
	out = filepath.Join(base, "restored")
	mappingPath = filepath.Join(base, "mapping.txt")
	writeFile(t, filepath.Join(root, "a", "b", "C.java"), testSource)
	writeFile(t, mappingPath, testMapping)
	return root, mappingPath, out
}

func TestRestoreCommandEndToEnd(t *testing.T) {
	root, mappingPath, out := setupTree(t)

	err := runCommand(t, "restore", root, "--mapping", mappingPath, "--out", out, "--json")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	rewritten, err := os.ReadFile(filepath.Join(out, "a", "b", "C.java"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got := string(rewritten)
	for _, want := range []string{"class Widget", "void draw()", "this.count = 1;"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "class C") {
		t.Errorf("obfuscated class name still present:\n%s", got)
	}

	st, err := state.Load(out)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if _, ok := st.Files["a/b/C.java"]; !ok {
		t.Fatalf("state missing processed file, got %v", st.Files)
	}
}

func TestPreScanClassIdentity(t *testing.T) {
	root, mappingPath, _ := setupTree(t)
	table, err := mapping.Load(mappingPath)
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	ix := symbols.NewIndex(table, nil, symbols.Options{})

	hashes := map[string]string{"a/b/C.java": "unused"}
	classOf, err := preScanSources(context.Background(), root, hashes, ix, 1)
	if err != nil {
		t.Fatalf("pre-scan: %v", err)
	}
	// The pre-scan already qualifies declarations with their package; the
	// identity must not pick up the package twice.
	if got := classOf["a/b/C.java"]; got != "a.b.C" {
		t.Fatalf("class identity = %q, want a.b.C", got)
	}
}

func TestRestoreSecondRunReusesState(t *testing.T) {
	root, mappingPath, out := setupTree(t)

	for range 2 {
		if err := runCommand(t, "restore", root, "--mapping", mappingPath, "--out", out, "--json"); err != nil {
			t.Fatalf("restore: %v", err)
		}
	}

	st, err := state.Load(out)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(st.PendingFiles(map[string]string{})) != 0 {
		t.Fatalf("unexpected pending files")
	}
	if !st.UpToDate("a/b/C.java", st.Files["a/b/C.java"].Hash) {
		t.Fatalf("processed file should be up to date")
	}
}

func TestRestoreBrokenUnitFallsBack(t *testing.T) {
	root, mappingPath, out := setupTree(t)
	// Truncated beyond recovery: the error-node ratio stays well over the
	// structural gate, forcing the regex fallback.
	broken := "((((\n"
	writeFile(t, filepath.Join(root, "a", "b", "C.java"), broken)

	if err := runCommand(t, "restore", root, "--mapping", mappingPath, "--out", out, "--json"); err != nil {
		t.Fatalf("restore: %v", err)
	}

	st, err := state.Load(out)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	fs, ok := st.Files["a/b/C.java"]
	if !ok {
		t.Fatalf("state missing processed file")
	}
	if !fs.Fallback {
		t.Fatalf("expected fallback rewriter for broken unit")
	}
	if _, err := os.Stat(filepath.Join(out, "a", "b", "C.java")); err != nil {
		t.Fatalf("fallback output missing: %v", err)
	}
}

func TestRestoreRequiresMapping(t *testing.T) {
	if err := runCommand(t, "restore", t.TempDir(), "--out", t.TempDir()); err == nil {
		t.Fatalf("expected error without --mapping")
	}
}

func TestRestoreRequiresOut(t *testing.T) {
	_, mappingPath, _ := setupTree(t)
	if err := runCommand(t, "restore", t.TempDir(), "--mapping", mappingPath); err == nil {
		t.Fatalf("expected error without --out")
	}
}

func TestReportCommandWritesFile(t *testing.T) {
	base := t.TempDir()
	mappingPath := filepath.Join(base, "mapping.txt")
	writeFile(t, mappingPath, testMapping)

	smali := filepath.Join(base, "smali")
	writeFile(t, filepath.Join(smali, "a", "b", "C.smali"), `.class public La/b/C;
.super Ljava/lang/Object;

.method public m()V
    .locals 0
    return-void
.end method

.method public u()Ljava/util/Map;
    .locals 1
    const/4 v0, 0x0
    return-object v0
.end method
`)

	outFile := filepath.Join(base, "report.txt")
	err := runCommand(t, "report", "--mapping", mappingPath, "--smali", smali, "--out", outFile)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	got := string(data)
	for _, want := range []string{"# total methods: 2", "=== a.b.C ===", "u()"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in report:\n%s", want, got)
		}
	}
}

func TestXrefCommand(t *testing.T) {
	base := t.TempDir()
	smali := filepath.Join(base, "smali")
	writeFile(t, filepath.Join(smali, "a", "R.smali"), `.class public La/R;
.super Ljava/lang/Object;

.method public run()V
    .locals 1
    invoke-virtual {p0}, La/S;->step()V
    iget v0, p0, La/S;->f:I
    return-void
.end method
`)

	if err := runCommand(t, "xref", "--smali", smali, "--json"); err != nil {
		t.Fatalf("xref: %v", err)
	}
}

func TestXrefRequiresSmali(t *testing.T) {
	if err := runCommand(t, "xref"); err == nil {
		t.Fatalf("expected error without --smali")
	}
}
