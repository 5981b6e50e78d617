package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcher_DefaultAndUserOverrides(t *testing.T) {
	m := NewMatcher([]string{
		"okhttp3/**",
		"!okhttp3/internal/Keep.java",
		"*.bak",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: ".git/config", isDir: false, ignored: true},
		{path: "res/layout/main.xml", isDir: false, ignored: true},
		{path: "META-INF/MANIFEST.MF", isDir: false, ignored: true},
		{path: "okhttp3/Call.java", isDir: false, ignored: true},
		{path: "okhttp3/internal/Keep.java", isDir: false, ignored: false},
		{path: "nested/Old.bak", isDir: false, ignored: true},
		{path: "a/b/C.java", isDir: false, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestMatcher_NegatedDirectoryRule(t *testing.T) {
	m := NewMatcher([]string{
		"gen/",
		"!gen/keep/",
	})

	if !m.ShouldIgnore("gen/out/File.java", false) {
		t.Fatalf("expected gen/out/File.java to be ignored")
	}
	if m.ShouldIgnore("gen/keep/File.java", false) {
		t.Fatalf("expected gen/keep/File.java to be included")
	}
}

func TestFromDir(t *testing.T) {
	root := t.TempDir()
	rules := "# bundled libraries\nandroidx/\n!androidx/custom/\n"
	if err := os.WriteFile(filepath.Join(root, RulesFile), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := FromDir(root)
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	if !m.ShouldIgnore("androidx/core/View.java", false) {
		t.Fatalf("expected androidx/core to be ignored")
	}
	if m.ShouldIgnore("androidx/custom/Patch.java", false) {
		t.Fatalf("expected negated androidx/custom to be included")
	}
}

func TestFromDirMissingFileUsesDefaults(t *testing.T) {
	m, err := FromDir(t.TempDir())
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	if !m.ShouldIgnore("res/values/strings.xml", false) {
		t.Fatalf("expected default res/ exclude")
	}
}
