package facts

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ScanAll parses every smali unit under the store's directory with a bounded
// worker pool and memoizes the results. Workers only produce local records;
// the shared cache is filled behind the store lock, so merge order never
// affects the final index. Unreadable or classless units are skipped and
// counted, never fatal.
func (s *Store) ScanAll(ctx context.Context, workers int) (loaded, skipped int, err error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var paths []string
	walkErr := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("smali walk error", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".smali") {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return 0, 0, walkErr
	}

	var (
		mu      sync.Mutex
		classes []*Class
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := ParseFile(path)
			if err != nil || c == nil {
				mu.Lock()
				skipped++
				mu.Unlock()
				if err != nil {
					slog.Warn("failed to parse smali unit", "path", path, "err", err)
				}
				return nil
			}
			mu.Lock()
			classes = append(classes, c)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	for _, c := range classes {
		s.Put(c)
	}
	return len(classes), skipped, nil
}

// Classes returns every class currently memoized in the store, keyed by
// obfuscated qualified name. Nil entries (cached misses) are omitted.
func (s *Store) Classes() map[string]*Class {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Class, len(s.cache))
	for name, c := range s.cache {
		if c != nil {
			out[name] = c
		}
	}
	return out
}
