// Availability scoring. A validator's availability combines its voting efficiency with a
// weighted penalty for every leader slot it failed to produce a block for.

package scoring

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MissedLeaderSlotWeight makes one missed leader slot cost as much as ten missed votes.
const MissedLeaderSlotWeight uint64 = 10

// ConfirmationDepth is the number of trailing blocks whose vote credits cannot be earned yet
// (the maximum lockout history of a vote account).
const ConfirmationDepth uint64 = 31

// LeaderStat counts the leader slots assigned to a validator.
type LeaderStat struct {
	MissedSlots uint64
	TotalSlots  uint64
}

// nodeCredits returns the vote credits per validator node. When a node runs several vote
// accounts the highest credit count is kept; undecodable accounts are skipped.
func nodeCredits(voteAccounts VoteAccounts) map[ID]uint64 {
	credits := make(map[ID]uint64)
	for voterID, account := range voteAccounts {
		if account.State == nil {
			logrus.Warnf("skipping vote account %s: undecodable state", voterID)
			continue
		}
		node := account.State.NodeID
		if current, ok := credits[node]; !ok || account.State.Credits > current {
			credits[node] = account.State.Credits
		}
	}
	return credits
}

// leaderStats walks blockChain (oldest to newest) from the newest block backwards. Every
// produced block counts towards its leader's total; every slot skipped between a block and
// the next one counts as missed for the leader that should have produced it.
func leaderStats(bankSlot Slot, blockChain []Slot, schedule LeaderSchedule) (map[ID]*LeaderStat, error) {
	stats := make(map[ID]*LeaderStat)
	inc := func(slot Slot, missed bool) error {
		leader, err := schedule.LeaderAt(slot)
		if err != nil {
			return fmt.Errorf("resolving leader for slot %d: %w", slot, err)
		}
		stat, ok := stats[leader]
		if !ok {
			stat = &LeaderStat{}
			stats[leader] = stat
		}
		stat.TotalSlots++
		if missed {
			stat.MissedSlots++
		}
		return nil
	}

	lastSlot := bankSlot
	for i := len(blockChain) - 1; i >= 0; i-- {
		parentSlot := blockChain[i]
		if parentSlot > 0 {
			if err := inc(parentSlot, false); err != nil {
				return nil, err
			}
		}
		for missed := lastSlot; missed > parentSlot+1; missed-- {
			if err := inc(missed-1, true); err != nil {
				return nil, err
			}
		}
		lastSlot = parentSlot
	}
	return stats, nil
}

// WeightedAvailability is credits over the credits that could have been earned, with each
// missed leader slot adding MissedLeaderSlotWeight to the denominator. It is zero when
// nothing could have been earned.
func WeightedAvailability(credits, missedSlots, totalCredits uint64) float64 {
	denominator := MissedLeaderSlotWeight*missedSlots + totalCredits
	if denominator == 0 {
		return 0
	}
	return float64(credits) / float64(denominator)
}

func availabilityResults(credits map[ID]uint64, excluded map[ID]bool, totalCredits uint64, stats map[ID]*LeaderStat) []Scored[float64] {
	scores := make(map[ID]float64, len(credits))
	for id, c := range credits {
		var missed uint64
		if stat, ok := stats[id]; ok {
			missed = stat.MissedSlots
		}
		scores[id] = WeightedAvailability(c, missed, totalCredits)
	}
	results := excludeIDs(scores, excluded)
	sortDescending(results)
	return results
}

// ComputeAvailabilityWinners ranks validators by weighted availability against the baseline
// validator.
func ComputeAvailabilityWinners(bank Bank, chain BlockChain, schedule LeaderSchedule, baselineID ID, excluded map[ID]bool) (*Winners, error) {
	return computeAvailabilityWinners(bank, chain, schedule, baselineID, excluded, BaselineBuckets)
}

func computeAvailabilityWinners(bank Bank, chain BlockChain, schedule LeaderSchedule, baselineID ID, excluded map[ID]bool, buckets baselineBucketer) (*Winners, error) {
	blockChain, err := chain.ParentChain(0, bank.Slot())
	if err != nil {
		return nil, fmt.Errorf("walking block chain to slot %d: %w", bank.Slot(), err)
	}

	credits := nodeCredits(bank.VoteAccounts())
	baselineCredits, ok := credits[baselineID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found in validator credits", ErrBaselineNotFound, baselineID)
	}
	delete(credits, baselineID)

	stats, err := leaderStats(bank.Slot(), blockChain, schedule)
	if err != nil {
		return nil, err
	}
	baselineStat, ok := stats[baselineID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found in leader stats", ErrBaselineNotFound, baselineID)
	}
	delete(stats, baselineID)

	totalCredits := saturatingSub(bank.BlockHeight(), ConfirmationDepth)
	results := availabilityResults(credits, excluded, totalCredits, stats)
	baseline := WeightedAvailability(baselineCredits, baselineStat.MissedSlots, totalCredits)
	logrus.Infof("ranked %d validators by availability over %d blocks (baseline %s)",
		len(results), len(blockChain), FormatAvailability(baseline))

	return &Winners{
		Category:      CategoryAvailability,
		Label:         "Baseline: " + FormatAvailability(baseline),
		TopWinners:    normalizeWinners(topResults(results), FormatAvailability),
		BucketWinners: buckets(results, baseline, FormatAvailability),
	}, nil
}
