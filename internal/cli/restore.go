package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deobf-dev/deobf/internal/facts"
	"github.com/deobf-dev/deobf/internal/fileutil"
	"github.com/deobf-dev/deobf/internal/ignore"
	"github.com/deobf-dev/deobf/internal/javasrc"
	"github.com/deobf-dev/deobf/internal/legacy"
	"github.com/deobf-dev/deobf/internal/mapping"
	"github.com/deobf-dev/deobf/internal/rewrite"
	"github.com/deobf-dev/deobf/internal/state"
	"github.com/deobf-dev/deobf/internal/symbols"
	"github.com/deobf-dev/deobf/internal/xref"
)

func RunRestore(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if opts.Mapping == "" {
		return errors.New("a rename table is required (--mapping or config)")
	}
	if opts.Out == "" {
		return errors.New("an output directory is required (--out or config)")
	}

	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to access path %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %q is not a directory", root)
	}

	return Restore(cmd.Context(), root, opts)
}

// Restore runs the whole pipeline over a decompiled source tree.
func Restore(ctx context.Context, root string, opts *options) error {
	start := time.Now()

	table, err := mapping.Load(opts.Mapping)
	if err != nil {
		return fmt.Errorf("failed to load rename table: %w", err)
	}

	matcher, err := ignore.FromDir(root)
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}
	hashes, err := fileutil.ScanSourceHashes(root, matcher)
	if err != nil {
		return fmt.Errorf("failed to scan source tree: %w", err)
	}

	st, err := state.Load(opts.Out)
	if err != nil {
		slog.Warn("discarding unreadable state", "dir", opts.Out, "error", err)
		st = state.NewState()
	}
	if opts.Force {
		st = state.NewState()
	}
	st.Reset(restoreFingerprint(opts))

	store := facts.NewStore(opts.Smali)
	factsLoaded := 0
	if opts.Smali != "" {
		loaded, skipped, err := store.ScanAll(ctx, opts.Workers)
		if err != nil {
			return fmt.Errorf("failed to scan disassembly: %w", err)
		}
		factsLoaded = loaded
		if skipped > 0 {
			slog.Warn("skipped malformed disassembly units", "count", skipped)
		}
	}

	var xrefs *xref.Index
	if opts.Smali != "" && !opts.NoXref {
		xrefs, err = xref.Build(ctx, opts.Smali, opts.Workers)
		if err != nil {
			return fmt.Errorf("failed to build cross-reference index: %w", err)
		}
	}

	ix := symbols.NewIndex(table, store, symbols.Options{
		Heuristics:       opts.Heuristics,
		HeuristicPrefix:  opts.HeuristicPrefix,
		ExternalPrefixes: opts.ExternalPrefixes,
	})
	if xrefs != nil {
		ix.SetXref(xrefs)
	}

	classOf, err := preScanSources(ctx, root, hashes, ix, opts.Workers)
	if err != nil {
		return err
	}
	ix.Warm()

	pending := st.PendingFiles(hashes)
	run := &restoreRun{
		root:    root,
		out:     opts.Out,
		legacy:  legacy.NewRewriter(table),
		classOf: classOf,
		engines: sync.Pool{New: func() any {
			return rewrite.NewEngine(ix, rewrite.Options{ApplyHeuristics: opts.Heuristics})
		}},
	}

	progress := newProgressReporter("restore", len(pending), opts.JSON)
	results := run.rewriteAll(ctx, pending, hashes, opts.Workers, progress)
	progress.Done(len(pending))

	failed := 0
	fallbacks := 0
	written := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "[warn] %s: %v\n", res.rel, res.err)
			continue
		}
		if res.fallback {
			fallbacks++
		}
		if res.changed {
			written++
		}
		st.SetFile(res.rel, res.hash, res.outHash, res.fallback)
	}
	for _, rel := range st.StaleFiles(hashes) {
		st.RemoveFile(rel)
	}
	if err := os.MkdirAll(opts.Out, 0755); err != nil {
		return err
	}
	if err := st.Save(opts.Out); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}

	summary := RestoreSummary{
		Mode:       "restore",
		RootPath:   root,
		OutputDir:  opts.Out,
		Classes:    table.ClassCount(),
		Facts:      factsLoaded,
		Scanned:    len(hashes),
		Reused:     len(hashes) - len(pending),
		Rewritten:  len(pending) - failed,
		Written:    written,
		Fallbacks:  fallbacks,
		Failed:     failed,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if xrefs != nil {
		summary.CallEdges = xrefs.Stats().TotalCallEdges
	}
	return PrintRestoreSummary(summary, opts.JSON)
}

// restoreFingerprint ties saved state to the inputs that shape the output.
// The mapping file participates by content, not path.
func restoreFingerprint(opts *options) string {
	mappingHash := ""
	if h, err := fileutil.HashFile(opts.Mapping); err == nil {
		mappingHash = h
	}
	return fileutil.HashBytes([]byte(strings.Join([]string{
		mappingHash,
		opts.Smali,
		fmt.Sprint(opts.Heuristics),
		opts.HeuristicPrefix,
		fmt.Sprint(opts.NoXref),
		strings.Join(opts.ExternalPrefixes, ","),
	}, "\x00")))
}

// preScanSources extracts each unit's class identity and extends/implements
// edges. The edges feed the inheritance graph, so member lookups can climb
// through app classes the disassembly never mentioned.
func preScanSources(ctx context.Context, root string, hashes map[string]string, ix *symbols.Index, workers int) (map[string]string, error) {
	files := make([]string, 0, len(hashes))
	for rel := range hashes {
		files = append(files, rel)
	}
	sort.Strings(files)

	parsers := sync.Pool{New: func() any { return javasrc.NewParser() }}

	var mu sync.Mutex
	classOf := make(map[string]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rel := range files {
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				fmt.Fprintf(os.Stderr, "[warn] %s: %v\n", rel, err)
				return nil
			}
			parser := parsers.Get().(*javasrc.Parser)
			info, err := parser.PreScan(gctx, data)
			parsers.Put(parser)
			if err != nil || info == nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, decl := range info.Classes {
				// decl.Name is already package-qualified by the pre-scan.
				if decl.Super != "" {
					ix.SetInheritance(decl.Name, decl.Super)
				}
				for _, iface := range decl.Interfaces {
					ix.SetInheritance(decl.Name, iface)
				}
				if _, ok := classOf[rel]; !ok && !strings.Contains(decl.Name, "$") {
					classOf[rel] = decl.Name
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return classOf, nil
}

type restoreRun struct {
	root    string
	out     string
	legacy  *legacy.Rewriter
	classOf map[string]string
	engines sync.Pool
}

type fileResult struct {
	rel      string
	hash     string
	outHash  string
	fallback bool
	changed  bool
	err      error
}

func (r *restoreRun) rewriteAll(ctx context.Context, pending []string, hashes map[string]string, workers int, progress *progressReporter) []fileResult {
	results := make([]fileResult, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range pending {
		g.Go(func() error {
			results[i] = r.rewriteOne(gctx, rel, hashes[rel])
			progress.Update(rel)
			return nil
		})
	}
	// workers never return errors; per-unit failures land in results.
	_ = g.Wait()
	return results
}

func (r *restoreRun) rewriteOne(ctx context.Context, rel, hash string) fileResult {
	res := fileResult{rel: rel, hash: hash}

	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		res.err = err
		return res
	}

	currentClass := r.classOf[rel]
	if currentClass == "" {
		currentClass = classFromPath(rel)
	}

	engine := r.engines.Get().(*rewrite.Engine)
	output, err := engine.RewriteClass(ctx, data, currentClass)
	r.engines.Put(engine)

	var qualityErr *javasrc.ParseQualityError
	switch {
	case err == nil:
	case errors.As(err, &qualityErr):
		slog.Warn("falling back to regex rewriter", "file", rel, "errorRatio", fmt.Sprintf("%.2f", qualityErr.Ratio))
		output = r.legacy.RewriteClass(data, currentClass)
		res.fallback = true
	default:
		res.err = err
		return res
	}

	changed, err := fileutil.WriteIfChangedTracked(filepath.Join(r.out, filepath.FromSlash(rel)), output)
	if err != nil {
		res.err = err
		return res
	}
	res.changed = changed
	res.outHash = fileutil.HashBytes(output)
	return res
}

// classFromPath derives the qualified class name from the tree layout, the
// fallback when a unit is too broken for the pre-scan.
func classFromPath(rel string) string {
	rel = strings.TrimSuffix(rel, ".java")
	return strings.ReplaceAll(rel, "/", ".")
}
