package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

type RestoreSummary struct {
	Mode       string `json:"mode"`
	RootPath   string `json:"root_path"`
	OutputDir  string `json:"output_dir"`
	Classes    int    `json:"classes"`
	Facts      int    `json:"facts"`
	CallEdges  int    `json:"call_edges,omitempty"`
	Scanned    int    `json:"scanned"`
	Reused     int    `json:"reused"`
	Rewritten  int    `json:"rewritten"`
	Written    int    `json:"written"`
	Fallbacks  int    `json:"fallbacks"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

func PrintRestoreSummary(summary RestoreSummary, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Printf("restore complete in %dms\n", summary.DurationMS)
	fmt.Printf("output: %s\n", summary.OutputDir)
	fmt.Printf("table: classes=%d facts=%d call_edges=%d\n", summary.Classes, summary.Facts, summary.CallEdges)
	fmt.Printf("files: scanned=%d reused=%d rewritten=%d written=%d fallbacks=%d failed=%d\n",
		summary.Scanned, summary.Reused, summary.Rewritten, summary.Written, summary.Fallbacks, summary.Failed)
	return nil
}
