// Package config loads optional project settings from a .deobf.yaml file and
// environment variables. CLI flags always win; this only supplies defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = ".deobf.yaml"

type Config struct {
	Mapping string `yaml:"mapping"` // rename table path
	Smali   string `yaml:"smali"`   // disassembly root
	Out     string `yaml:"out"`     // output directory
	Workers int    `yaml:"workers"` // 0 = GOMAXPROCS

	Heuristics struct {
		Enabled bool   `yaml:"enabled"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"heuristics"`

	Xref struct {
		Disabled bool `yaml:"disabled"`
	} `yaml:"xref"`

	// Namespaces treated as library code: never renamed, inheritance walks
	// stop there. Empty means the built-in java/android/kotlin set.
	ExternalPrefixes []string `yaml:"external_prefixes"`
}

// Load reads path (DefaultFile when empty) and applies DEOBF_* environment
// overrides. A missing default file is not an error; an explicitly named
// missing file is.
func Load(path string) (*Config, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DEOBF_MAPPING"); v != "" {
		c.Mapping = v
	}
	if v := os.Getenv("DEOBF_SMALI"); v != "" {
		c.Smali = v
	}
	if v := os.Getenv("DEOBF_OUT"); v != "" {
		c.Out = v
	}
	if v := os.Getenv("DEOBF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEOBF_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("DEOBF_HEURISTICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEOBF_HEURISTICS: %w", err)
		}
		c.Heuristics.Enabled = b
	}
	if v := os.Getenv("DEOBF_HEURISTIC_PREFIX"); v != "" {
		c.Heuristics.Prefix = v
	}
	if v := os.Getenv("DEOBF_EXTERNAL_PREFIXES"); v != "" {
		c.ExternalPrefixes = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
