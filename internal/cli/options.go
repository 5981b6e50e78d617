package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/deobf-dev/deobf/internal/config"
	"github.com/deobf-dev/deobf/internal/symbols"
)

// options is the merged view of config file, environment and flags. Flags
// that were set on the command line always win.
type options struct {
	Mapping         string
	Smali           string
	Out             string
	Workers         int
	Heuristics      bool
	HeuristicPrefix string
	NoXref          bool
	Force           bool
	JSON            bool

	ExternalPrefixes []string
}

func loadOptions(cmd *cobra.Command) (*options, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read --config flag: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	opts := &options{
		Mapping:          cfg.Mapping,
		Smali:            cfg.Smali,
		Out:              cfg.Out,
		Workers:          cfg.Workers,
		Heuristics:       cfg.Heuristics.Enabled,
		HeuristicPrefix:  cfg.Heuristics.Prefix,
		NoXref:           cfg.Xref.Disabled,
		ExternalPrefixes: cfg.ExternalPrefixes,
	}

	if err := overrideString(cmd, "mapping", &opts.Mapping); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "smali", &opts.Smali); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "out", &opts.Out); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "heuristic-prefix", &opts.HeuristicPrefix); err != nil {
		return nil, err
	}
	if err := overrideInt(cmd, "workers", &opts.Workers); err != nil {
		return nil, err
	}
	if err := overrideBool(cmd, "heuristics", &opts.Heuristics); err != nil {
		return nil, err
	}
	if err := overrideBool(cmd, "no-xref", &opts.NoXref); err != nil {
		return nil, err
	}
	if err := overrideBool(cmd, "force", &opts.Force); err != nil {
		return nil, err
	}
	if err := overrideBool(cmd, "json", &opts.JSON); err != nil {
		return nil, err
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.HeuristicPrefix == "" {
		opts.HeuristicPrefix = symbols.DefaultHeuristicPrefix
	}
	return opts, nil
}

func overrideString(cmd *cobra.Command, name string, dst *string) error {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	*dst = value
	return nil
}

func overrideInt(cmd *cobra.Command, name string, dst *int) error {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	*dst = value
	return nil
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) error {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	*dst = value
	return nil
}
