package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
)

// WriteIfChanged writes data to path unless the file already holds it.
func WriteIfChanged(path string, data []byte) error {
	_, err := WriteIfChangedTracked(path, data)
	return err
}

// WriteIfChangedTracked is WriteIfChanged reporting whether the file content
// actually changed. Parent directories are created as needed; an unchanged
// file keeps its mtime so downstream tooling sees no churn.
func WriteIfChangedTracked(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil {
		if bytes.Equal(existing, data) {
			return false, nil
		}
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
