package scoring

import (
	"time"

	"github.com/validator-sim/validator-sim/scoring/trace"
)

// RunConfig holds the per-run scoring parameters shared by the categories.
type RunConfig struct {
	BaselineID      ID
	Excluded        map[ID]bool
	StartingBalance uint64 // lamports each validator started with
	// UnderBaseline adds a bucket for validators at or below half the baseline score to the
	// baseline-relative categories.
	UnderBaseline bool
}

// Report bundles all outputs from a scoring run.
type Report struct {
	RunID    string              `yaml:"run_id"`
	Slot     Slot                `yaml:"slot"`
	Winners  []*Winners          `yaml:"winners"`
	Summary  *trace.TraceSummary `yaml:"trace_summary,omitempty"` // nil unless trace summarization was requested
	WallTime time.Duration       `yaml:"wall_time"`
}

// NewReport constructs a Report. summary may be nil.
func NewReport(runID string, slot Slot, winners []*Winners, summary *trace.TraceSummary, wallTime time.Duration) *Report {
	return &Report{
		RunID:    runID,
		Slot:     slot,
		Winners:  winners,
		Summary:  summary,
		WallTime: wallTime,
	}
}

// ScoreAll computes the rewards, availability and latency categories, in that order, for the
// final bank state. tracker must already have seen every checkpoint of the replay.
func ScoreAll(tracker *LatencyTracker, bank Bank, chain BlockChain, schedule LeaderSchedule, cfg RunConfig) ([]*Winners, error) {
	buckets := baselineBucketer(BaselineBuckets)
	if cfg.UnderBaseline {
		buckets = BaselineBucketsWithRemainder
	}
	rewards, err := ComputeRewardsWinners(bank, cfg.Excluded, cfg.StartingBalance)
	if err != nil {
		return nil, err
	}
	availability, err := computeAvailabilityWinners(bank, chain, schedule, cfg.BaselineID, cfg.Excluded, buckets)
	if err != nil {
		return nil, err
	}
	latency, err := tracker.computeWinners(bank, cfg.BaselineID, cfg.Excluded, buckets)
	if err != nil {
		return nil, err
	}
	return []*Winners{rewards, availability, latency}, nil
}
