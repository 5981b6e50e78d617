// Package state persists per-file fingerprints between runs so an unchanged
// source tree is not rewritten twice. The state lives next to the restored
// output; deleting it forces a full rerun.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	StateFile      = ".deobf-state.json"
	CurrentVersion = "1"
)

// FileState records one processed source file.
type FileState struct {
	Hash      string    `json:"hash"`               // input content hash
	Output    string    `json:"output,omitempty"`   // written output hash
	Fallback  bool      `json:"fallback,omitempty"` // regex fallback was used
	UpdatedAt time.Time `json:"updated_at"`
}

// State tracks all processed files plus the settings fingerprint they were
// produced under. A fingerprint mismatch (different mapping file, heuristics
// toggle, prefix) invalidates everything.
type State struct {
	Version     string               `json:"version"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Files       map[string]FileState `json:"files"`
}

func NewState() *State {
	return &State{
		Version: CurrentVersion,
		Files:   make(map[string]FileState),
	}
}

// Load reads state from dir. A missing file yields a fresh state.
func Load(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.Files == nil {
		st.Files = make(map[string]FileState)
	}
	if st.Version == "" {
		st.Version = CurrentVersion
	}
	return &st, nil
}

func (s *State) Save(dir string) error {
	if s.Version == "" {
		s.Version = CurrentVersion
	}
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	s.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, StateFile), data, 0644)
}

// Reset drops all file records when the settings fingerprint changed, then
// records the new fingerprint. Returns true when a reset happened.
func (s *State) Reset(fingerprint string) bool {
	if s.Fingerprint == fingerprint {
		return false
	}
	s.Fingerprint = fingerprint
	s.Files = make(map[string]FileState)
	return true
}

// UpToDate reports whether file was already processed with this exact input
// content.
func (s *State) UpToDate(file, hash string) bool {
	fs, ok := s.Files[file]
	return ok && fs.Hash == hash
}

// SetFile records a processed file.
func (s *State) SetFile(file, hash, outputHash string, fallback bool) {
	s.Files[file] = FileState{
		Hash:      hash,
		Output:    outputHash,
		Fallback:  fallback,
		UpdatedAt: time.Now(),
	}
}

func (s *State) RemoveFile(file string) {
	delete(s.Files, file)
}

// StaleFiles returns tracked files absent from the current scan, sorted.
func (s *State) StaleFiles(current map[string]string) []string {
	stale := make([]string, 0)
	for file := range s.Files {
		if _, ok := current[file]; !ok {
			stale = append(stale, file)
		}
	}
	sort.Strings(stale)
	return stale
}

// PendingFiles returns scanned files that need (re)processing, sorted.
func (s *State) PendingFiles(current map[string]string) []string {
	pending := make([]string, 0)
	for file, hash := range current {
		if !s.UpToDate(file, hash) {
			pending = append(pending, file)
		}
	}
	sort.Strings(pending)
	return pending
}
