package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deobf-dev/deobf/internal/facts"
	"github.com/deobf-dev/deobf/internal/fileutil"
	"github.com/deobf-dev/deobf/internal/mapping"
	"github.com/deobf-dev/deobf/internal/report"
	"github.com/deobf-dev/deobf/internal/symbols"
)

func RunReport(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if opts.Mapping == "" {
		return errors.New("a rename table is required (--mapping or config)")
	}
	if opts.Smali == "" {
		return errors.New("a disassembly directory is required (--smali or config)")
	}

	table, err := mapping.Load(opts.Mapping)
	if err != nil {
		return fmt.Errorf("failed to load rename table: %w", err)
	}

	store := facts.NewStore(opts.Smali)
	_, skipped, err := store.ScanAll(cmd.Context(), opts.Workers)
	if err != nil {
		return fmt.Errorf("failed to scan disassembly: %w", err)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed disassembly units", "count", skipped)
	}

	// The report counts heuristic matches separately, so heuristics are
	// always on here regardless of the restore-time setting.
	ix := symbols.NewIndex(table, store, symbols.Options{
		Heuristics:       true,
		HeuristicPrefix:  opts.HeuristicPrefix,
		ExternalPrefixes: opts.ExternalPrefixes,
	})
	ix.Warm()

	sum := report.Build(ix)

	var buf bytes.Buffer
	if opts.JSON {
		err = sum.WriteJSON(&buf)
	} else {
		err = sum.WriteText(&buf)
	}
	if err != nil {
		return err
	}

	if opts.Out != "" {
		if err := fileutil.WriteIfChanged(opts.Out, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", opts.Out)
		return nil
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}
