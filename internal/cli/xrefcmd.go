package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deobf-dev/deobf/internal/xref"
)

func RunXref(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if opts.Smali == "" {
		return errors.New("a disassembly directory is required (--smali or config)")
	}

	index, err := xref.Build(cmd.Context(), opts.Smali, opts.Workers)
	if err != nil {
		return fmt.Errorf("failed to build cross-reference index: %w", err)
	}

	stats := index.Stats()
	if opts.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			UniqueCallees   int `json:"unique_callees"`
			UniqueCallers   int `json:"unique_callers"`
			UniqueFields    int `json:"unique_fields"`
			TotalCallEdges  int `json:"total_call_edges"`
			TotalFieldEdges int `json:"total_field_edges"`
		}{
			stats.UniqueCallees,
			stats.UniqueCallers,
			stats.UniqueFields,
			stats.TotalCallEdges,
			stats.TotalFieldEdges,
		})
	}

	fmt.Printf("call edges: %d (%d distinct callees, %d distinct callers)\n",
		stats.TotalCallEdges, stats.UniqueCallees, stats.UniqueCallers)
	fmt.Printf("field edges: %d (%d distinct fields)\n", stats.TotalFieldEdges, stats.UniqueFields)
	return nil
}
