package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/validator-sim/validator-sim/scoring"
	"github.com/validator-sim/validator-sim/scoring/leader"
	"github.com/validator-sim/validator-sim/scoring/ledger"
	"github.com/validator-sim/validator-sim/scoring/trace"
)

var (
	configPath string      // Optional YAML config file
	scoreFlags ScoreConfig // Values of the score flags
)

// scoreCmd replays a ledger fixture and prints the winners of every category
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Replay a ledger fixture and rank validators in every category",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveScoreConfig(cmd.Flags(), configPath, scoreFlags)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := runScore(cmd.Context(), cfg, os.Stdout, stdoutIsTerminal()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// resolveScoreConfig loads the config file, if any, and applies every explicitly set flag on
// top of it. set holds the values bound to flags.
func resolveScoreConfig(flags *pflag.FlagSet, configPath string, set ScoreConfig) (ScoreConfig, error) {
	cfg := DefaultScoreConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadScoreConfig(configPath); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("ledger") {
		cfg.Ledger = set.Ledger
	}
	if flags.Changed("baseline-validator") {
		cfg.BaselineValidator = set.BaselineValidator
	}
	if flags.Changed("exclude-pubkey") {
		cfg.ExcludedPubkeys = set.ExcludedPubkeys
	}
	if flags.Changed("starting-balance") {
		cfg.StartingBalanceSOL = set.StartingBalanceSOL
	}
	if flags.Changed("final-slot") {
		cfg.FinalSlot = set.FinalSlot
	}
	if flags.Changed("pubkey-map-file") {
		cfg.PubkeyMapFile = set.PubkeyMapFile
	}
	if flags.Changed("output") {
		cfg.Output = set.Output
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = set.TraceLevel
	}
	if flags.Changed("summarize-trace") {
		cfg.SummarizeTrace = set.SummarizeTrace
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = set.MetricsFile
	}
	if flags.Changed("leader-cache-size") {
		cfg.LeaderCacheSize = set.LeaderCacheSize
	}
	if flags.Changed("under-baseline-bucket") {
		cfg.UnderBaselineBucket = set.UnderBaselineBucket
	}
	return cfg, cfg.Validate()
}

// runScore executes one scoring run and writes the report to out.
func runScore(ctx context.Context, cfg ScoreConfig, out io.Writer, colored bool) error {
	runID := uuid.New().String()
	log := logrus.WithField("run", runID)
	startTime := time.Now()

	// Only a map file other than the default must exist
	names, err := LoadPubkeyMap(cfg.PubkeyMapFile, cfg.PubkeyMapFile != DefaultPubkeyMapFile)
	if err != nil {
		return err
	}

	var tr *trace.ScoringTrace
	if cfg.TraceLevel != "" && trace.TraceLevel(cfg.TraceLevel) != trace.TraceLevelNone {
		tr = trace.NewScoringTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)})
	}
	registry := prometheus.NewRegistry()
	tracker := scoring.NewLatencyTracker(scoring.NewMetrics(registry), tr)

	src, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return err
	}
	defer src.Close()

	log.Infof("Processing ledger %s...", cfg.Ledger)
	result, err := ledger.Replay(ctx, src, tracker, cfg.FinalSlot)
	if err != nil {
		return fmt.Errorf("replaying ledger %s: %w", cfg.Ledger, err)
	}

	schedule, err := leader.NewCachedSchedule(result.Schedule, cfg.LeaderCacheSize)
	if err != nil {
		return err
	}
	excluded := make(map[scoring.ID]bool, len(cfg.ExcludedPubkeys))
	for _, id := range cfg.ExcludedPubkeys {
		excluded[scoring.ID(id)] = true
	}
	winners, err := scoring.ScoreAll(tracker, result.Bank, result.Bank, schedule, scoring.RunConfig{
		BaselineID:      scoring.ID(cfg.BaselineValidator),
		Excluded:        excluded,
		StartingBalance: scoring.SOLToLamports(cfg.StartingBalanceSOL),
		UnderBaseline:   cfg.UnderBaselineBucket,
	})
	if err != nil {
		return err
	}
	hits, misses := schedule.Stats()
	log.Debugf("leader cache: %d hits, %d misses", hits, misses)

	var summary *trace.TraceSummary
	if cfg.SummarizeTrace {
		summary = trace.Summarize(tr)
	}
	report := scoring.NewReport(runID, result.Bank.Slot(), winners, summary, time.Since(startTime))
	if err := writeReport(out, report, cfg.Output, names, colored); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, registry); err != nil {
			return fmt.Errorf("writing metrics to %s: %w", cfg.MetricsFile, err)
		}
	}
	log.Infof("Scoring complete in %v.", report.WallTime)
	return nil
}

// bindScoreFlags registers the score flags on flags, storing their values in cfg.
func bindScoreFlags(flags *pflag.FlagSet, cfg *ScoreConfig, configPath *string) {
	defaults := DefaultScoreConfig()
	flags.StringVar(configPath, "config", "", "YAML file with score settings; explicit flags take precedence")
	flags.StringVarP(&cfg.Ledger, "ledger", "l", "", "Ledger replay fixture (JSON lines)")
	flags.StringVar(&cfg.BaselineValidator, "baseline-validator", "", "Identity of the baseline validator")
	flags.StringSliceVar(&cfg.ExcludedPubkeys, "exclude-pubkey", nil, "Exclude these identities from ranking")
	flags.Float64Var(&cfg.StartingBalanceSOL, "starting-balance", defaults.StartingBalanceSOL, "Starting balance of validators in SOL")
	flags.Uint64Var(&cfg.FinalSlot, "final-slot", 0, "Stop applying checkpoints after this slot (0 = whole ledger); scoring still uses the final bank record")
	flags.StringVar(&cfg.PubkeyMapFile, "pubkey-map-file", defaults.PubkeyMapFile, "YAML file that maps validator identities to usernames")
	flags.StringVar(&cfg.Output, "output", defaults.Output, "Output format (text, yaml)")
	flags.StringVar(&cfg.TraceLevel, "trace-level", defaults.TraceLevel, "Decision trace level (none, decisions)")
	flags.BoolVar(&cfg.SummarizeTrace, "summarize-trace", false, "Include a decision trace summary in the report")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write scoring metrics in Prometheus text format to this file")
	flags.IntVar(&cfg.LeaderCacheSize, "leader-cache-size", defaults.LeaderCacheSize, "Leader schedule LRU cache entries")
	flags.BoolVar(&cfg.UnderBaselineBucket, "under-baseline-bucket", false, "Also list validators at or below 50% of the baseline")
}

func init() {
	bindScoreFlags(scoreCmd.Flags(), &scoreFlags, &configPath)
}
