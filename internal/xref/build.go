package xref

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// unitEdges is the purely local result of scanning one unit.
type unitEdges struct {
	calls  []Edge
	fields []FieldEdge
}

// Build scans every smali unit under dir with a bounded worker pool and
// merges the per-unit edge lists into the shared multimaps. Merging happens
// after all workers complete and is append-only, so file ordering never
// affects the index.
func Build(ctx context.Context, dir string, workers int) (*Index, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("xref walk error", "path", path, "err", err)
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
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []unitEdges
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read smali unit", "path", path, "err", err)
				return nil
			}
			calls, fields := ScanUnit(string(content))
			if len(calls) == 0 && len(fields) == 0 {
				return nil
			}
			mu.Lock()
			results = append(results, unitEdges{calls: calls, fields: fields})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	x := newIndex()
	for _, r := range results {
		x.merge(r)
	}
	return x, nil
}

// FromUnits builds an index directly from unit contents, used by tests and
// by callers that already hold the disassembly in memory.
func FromUnits(units []string) *Index {
	x := newIndex()
	for _, content := range units {
		calls, fields := ScanUnit(content)
		x.merge(unitEdges{calls: calls, fields: fields})
	}
	return x
}

func newIndex() *Index {
	return &Index{
		callers:      make(map[memberKey][]Edge),
		callees:      make(map[memberKey][]Edge),
		fieldReaders: make(map[fieldKey][]FieldEdge),
		fieldWriters: make(map[fieldKey][]FieldEdge),
	}
}

func (x *Index) merge(r unitEdges) {
	for _, e := range r.calls {
		callerKey := memberKey{e.CallerClass, e.CallerMethod, e.CallerDescriptor}
		calleeKey := memberKey{e.CalleeClass, e.CalleeMethod, e.CalleeDescriptor}
		x.callees[callerKey] = append(x.callees[callerKey], e)
		x.callers[calleeKey] = append(x.callers[calleeKey], e)
	}
	for _, e := range r.fields {
		k := fieldKey{e.FieldClass, e.FieldName}
		if e.Kind == "read" {
			x.fieldReaders[k] = append(x.fieldReaders[k], e)
		} else {
			x.fieldWriters[k] = append(x.fieldWriters[k], e)
		}
	}
}
