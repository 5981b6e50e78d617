package state

import (
	"reflect"
	"testing"
)

func TestPendingAndStaleFiles(t *testing.T) {
	s := NewState()
	s.SetFile("a/A.java", "a1", "out-a1", false)
	s.SetFile("a/B.java", "b1", "out-b1", false)
	s.SetFile("a/C.java", "c1", "out-c1", true)

	current := map[string]string{
		"a/A.java": "a1", // unchanged
		"a/B.java": "b2", // modified
		"a/D.java": "d1", // new
	}

	pending := s.PendingFiles(current)
	want := []string{"a/B.java", "a/D.java"}
	if !reflect.DeepEqual(pending, want) {
		t.Fatalf("expected pending %v, got %v", want, pending)
	}

	stale := s.StaleFiles(current)
	if !reflect.DeepEqual(stale, []string{"a/C.java"}) {
		t.Fatalf("expected stale [a/C.java], got %v", stale)
	}
}

func TestResetOnFingerprintChange(t *testing.T) {
	s := NewState()
	s.SetFile("a/A.java", "a1", "", false)

	if s.Reset("") {
		t.Fatalf("identical fingerprint must not reset")
	}
	if !s.Reset("fp2") {
		t.Fatalf("expected reset on new fingerprint")
	}
	if len(s.Files) != 0 {
		t.Fatalf("reset should drop file records, got %v", s.Files)
	}
	if s.Reset("fp2") {
		t.Fatalf("repeated fingerprint must not reset again")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewState()
	s.Fingerprint = "fp"
	s.SetFile("a/A.java", "a1", "out-a1", true)
	if err := s.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Fingerprint != "fp" {
		t.Fatalf("fingerprint lost: %q", loaded.Fingerprint)
	}
	fs, ok := loaded.Files["a/A.java"]
	if !ok || fs.Hash != "a1" || fs.Output != "out-a1" || !fs.Fallback {
		t.Fatalf("file record lost: %+v ok=%v", fs, ok)
	}
	if !loaded.UpToDate("a/A.java", "a1") {
		t.Fatalf("expected a/A.java up to date")
	}
	if loaded.UpToDate("a/A.java", "a2") {
		t.Fatalf("new content must not be up to date")
	}
}

func TestLoadMissingStateIsFresh(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Version != CurrentVersion || len(s.Files) != 0 {
		t.Fatalf("expected fresh state, got %+v", s)
	}
}
