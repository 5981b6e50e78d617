package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/deobf-dev/deobf/internal/ignore"
)

// HashBytes fingerprints content for change detection. Not cryptographic.
func HashBytes(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// ScanSourceHashes walks a decompiled source tree and fingerprints every
// .java file not excluded by the ignore rules. Keys are slash-separated paths
// relative to root.
func ScanSourceHashes(root string, matcher *ignore.Matcher) (map[string]string, error) {
	hashes := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case matcher != nil && matcher.ShouldIgnore(rel, entry.IsDir()):
			if entry.IsDir() {
				return filepath.SkipDir
			}
		case entry.IsDir() || !strings.HasSuffix(path, ".java"):
		default:
			hash, err := HashFile(path)
			if err != nil {
				return err
			}
			hashes[rel] = hash
		}
		return nil
	})

	return hashes, err
}
