// Package cli wires the deobf pipeline: rename table, bytecode facts, cross
// references and the rewrite engine, behind cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deobf",
		Short: "Restore meaningful identifiers in decompiled Java",
		Long: `Deobf rewrites decompiled, obfuscated Java sources using a ProGuard-style
rename table and structural facts recovered from the app's disassembled
bytecode. Renames are applied through a syntax tree, so only identifiers the
resolver is confident about are touched; everything else is left as-is.`,
	}

	restoreCmd := &cobra.Command{
		Use:   "restore [path]",
		Short: "Rewrite a decompiled source tree with restored names",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunRestore,
	}
	addCommonFlags(restoreCmd)
	restoreCmd.Flags().String("out", "", "Output directory for rewritten sources (required)")
	restoreCmd.Flags().Int("workers", 0, "Worker count (0 = number of CPUs)")
	restoreCmd.Flags().Bool("heuristics", false, "Apply low-confidence heuristic renames to output")
	restoreCmd.Flags().String("heuristic-prefix", "", "Prefix for heuristically inferred names")
	restoreCmd.Flags().Bool("no-xref", false, "Skip building the cross-reference index")
	restoreCmd.Flags().Bool("force", false, "Ignore saved state and reprocess every file")
	restoreCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Report methods the rename table and heuristics cannot name",
		RunE:  RunReport,
	}
	addCommonFlags(reportCmd)
	reportCmd.Flags().Int("workers", 0, "Worker count (0 = number of CPUs)")
	reportCmd.Flags().String("out", "", "Write the report to a file instead of stdout")
	reportCmd.Flags().Bool("json", false, "Emit the report as JSON")

	xrefCmd := &cobra.Command{
		Use:   "xref",
		Short: "Build the bytecode cross-reference index and print its stats",
		RunE:  RunXref,
	}
	addCommonFlags(xrefCmd)
	xrefCmd.Flags().Int("workers", 0, "Worker count (0 = number of CPUs)")
	xrefCmd.Flags().Bool("json", false, "Print machine-readable stats")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("deobf %s\n", version)
		},
	}

	rootCmd.AddCommand(restoreCmd, reportCmd, xrefCmd, versionCmd)
	return rootCmd
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Config file (default .deobf.yaml when present)")
	cmd.Flags().String("mapping", "", "ProGuard-style rename table")
	cmd.Flags().String("smali", "", "Disassembled bytecode directory")
}
