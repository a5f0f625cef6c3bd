package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/validator-sim/validator-sim/scoring/leader"
	"github.com/validator-sim/validator-sim/scoring/trace"
)

// DefaultPubkeyMapFile maps validator identities to usernames.
const DefaultPubkeyMapFile = "validators/all-username.yml"

// Output formats.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// ScoreConfig is the configuration of a scoring run. It can be read from a YAML file and is
// overridden by any explicitly set flag.
type ScoreConfig struct {
	Ledger              string   `yaml:"ledger"`             // replay fixture path
	BaselineValidator   string   `yaml:"baseline_validator"` // identity scored against
	ExcludedPubkeys     []string `yaml:"excluded_pubkeys"`
	StartingBalanceSOL  float64  `yaml:"starting_balance_sol"`
	FinalSlot           uint64   `yaml:"final_slot"` // 0 replays the whole fixture
	PubkeyMapFile       string   `yaml:"pubkey_map_file"`
	Output              string   `yaml:"output"`
	TraceLevel          string   `yaml:"trace_level"`
	SummarizeTrace      bool     `yaml:"summarize_trace"`
	MetricsFile         string   `yaml:"metrics_file"`
	LeaderCacheSize     int      `yaml:"leader_cache_size"`
	UnderBaselineBucket bool     `yaml:"under_baseline_bucket"`
}

// DefaultScoreConfig returns the values used for every field a config file leaves unset.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		StartingBalanceSOL: 2,
		PubkeyMapFile:      DefaultPubkeyMapFile,
		Output:             OutputText,
		TraceLevel:         string(trace.TraceLevelNone),
		LeaderCacheSize:    leader.DefaultCacheSize,
	}
}

// LoadScoreConfig reads a YAML config file with strict field checking. The file is decoded
// onto DefaultScoreConfig, so every field it sets wins, zero values included, and absent
// fields keep their defaults.
func LoadScoreConfig(path string) (ScoreConfig, error) {
	cfg := DefaultScoreConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable scoring run.
func (c *ScoreConfig) Validate() error {
	if c.Ledger == "" {
		return fmt.Errorf("ledger fixture not provided")
	}
	if c.BaselineValidator == "" {
		return fmt.Errorf("baseline validator not provided")
	}
	if c.StartingBalanceSOL < 0 {
		return fmt.Errorf("starting balance must be non-negative, got %v", c.StartingBalanceSOL)
	}
	if c.Output != OutputText && c.Output != OutputYAML {
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output, OutputText, OutputYAML)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if c.LeaderCacheSize <= 0 {
		return fmt.Errorf("leader cache size must be positive, got %d", c.LeaderCacheSize)
	}
	return nil
}
