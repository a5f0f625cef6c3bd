// Confirmation latency scoring. Validators earn one point for every slot where their vote
// was observed before at least half of the slot's voters, and lose one point for every slot
// where it was observed later.

package scoring

import (
	"fmt"
	"sort"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/validator-sim/validator-sim/scoring/trace"
)

// MaxVoteDelay is the number of slots after which a vote no longer counts towards latency.
// A vote landing later than this points at an availability problem rather than latency.
const MaxVoteDelay Slot = 10

// VoterEntry is the latency tracking state of one vote account.
type VoterEntry struct {
	LatencyScore    int64 // +1 for low latency, -1 for high latency
	LastSlot        Slot  // newest vote already counted; never decreases
	LastFingerprint Hash
}

// VoterRecord maps vote account address to its tracking state.
type VoterRecord map[ID]*VoterEntry

// VoterSet is the set of vote accounts observed voting for a slot at one checkpoint.
type VoterSet map[ID]struct{}

// slotSegments holds the checkpoint-ordered voter sets recorded for one slot.
type slotSegments struct {
	slot     Slot
	segments []VoterSet
}

func lessSlotSegments(a, b *slotSegments) bool { return a.slot < b.slot }

// LatencyTracker tracks vote arrival order across checkpoints and scores slots once they
// leave the MaxVoteDelay window. It is not safe for concurrent use: checkpoints must be
// applied by a single writer in ledger order.
type LatencyTracker struct {
	voters    VoterRecord
	segments  *btree.BTreeG[*slotSegments] // ordered by slot
	finalized map[ID]int64                 // latency scores drained by ComputeWinners

	metrics *Metrics
	trace   *trace.ScoringTrace
}

// NewLatencyTracker creates an empty tracker. metrics and tr may be nil.
func NewLatencyTracker(metrics *Metrics, tr *trace.ScoringTrace) *LatencyTracker {
	return &LatencyTracker{
		voters:    make(VoterRecord),
		segments:  btree.NewG(2, lessSlotSegments),
		finalized: make(map[ID]int64),
		metrics:   metrics,
		trace:     tr,
	}
}

// Voter returns a copy of the tracking state of a vote account.
func (lt *LatencyTracker) Voter(voterID ID) (VoterEntry, bool) {
	entry, ok := lt.voters[voterID]
	if !ok {
		return VoterEntry{}, false
	}
	return *entry, true
}

// Segments returns the voter sets recorded for slot, in checkpoint order.
func (lt *LatencyTracker) Segments(slot Slot) []VoterSet {
	item, ok := lt.segments.Get(&slotSegments{slot: slot})
	if !ok {
		return nil
	}
	return item.segments
}

// OpenSlots returns the slots that still have unscored segments, ascending.
func (lt *LatencyTracker) OpenSlots() []Slot {
	slots := make([]Slot, 0, lt.segments.Len())
	lt.segments.Ascend(func(item *slotSegments) bool {
		slots = append(slots, item.slot)
		return true
	})
	return slots
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// checkpointResult is what one checkpoint contributed, before it is merged into segments.
type checkpointResult struct {
	slotVoters map[Slot]VoterSet
	changed    int
	late       int
	votes      int
}

// voterCheckpoint compares vote accounts against the voter record. Accounts whose fingerprint
// changed contribute their new votes, grouped by slot; votes older than the delay window or
// already counted are skipped.
func (lt *LatencyTracker) voterCheckpoint(slot Slot, voteAccounts VoteAccounts) (checkpointResult, error) {
	result := checkpointResult{slotVoters: make(map[Slot]VoterSet)}
	oldest := saturatingSub(slot, MaxVoteDelay)

	for voterID, account := range voteAccounts {
		entry, ok := lt.voters[voterID]
		if !ok {
			entry = &VoterEntry{}
			lt.voters[voterID] = entry
		}
		if entry.LastFingerprint == account.Fingerprint {
			continue
		}
		if account.State == nil {
			return result, fmt.Errorf("%w: vote account %s at slot %d", ErrUndecodableVoteState, voterID, slot)
		}
		result.changed++
		entry.LastFingerprint = account.Fingerprint

		votes := account.State.Votes
		for i := len(votes) - 1; i >= 0; i-- {
			voteSlot := votes[i]
			if voteSlot <= entry.LastSlot {
				break
			}
			if voteSlot < oldest {
				result.late++
				continue
			}
			voters, ok := result.slotVoters[voteSlot]
			if !ok {
				voters = make(VoterSet)
				result.slotVoters[voteSlot] = voters
			}
			voters[voterID] = struct{}{}
			result.votes++
		}
		if last, ok := account.State.LastVote(); ok && last > entry.LastSlot {
			entry.LastSlot = last
		}
	}
	return result, nil
}

// OnCheckpoint records the votes that became visible at this checkpoint and scores every
// slot that has fallen out of the MaxVoteDelay window.
func (lt *LatencyTracker) OnCheckpoint(slot Slot, voteAccounts VoteAccounts) error {
	result, err := lt.voterCheckpoint(slot, voteAccounts)
	if err != nil {
		return err
	}
	for voteSlot, voters := range result.slotVoters {
		item, ok := lt.segments.Get(&slotSegments{slot: voteSlot})
		if !ok {
			item = &slotSegments{slot: voteSlot}
			lt.segments.ReplaceOrInsert(item)
		}
		item.segments = append(item.segments, voters)
	}

	// Clear segments once slot votes are old enough
	watermark := saturatingSub(slot, MaxVoteDelay)
	var old []*slotSegments
	lt.segments.AscendLessThan(&slotSegments{slot: watermark}, func(item *slotSegments) bool {
		old = append(old, item)
		return true
	})
	for _, item := range old {
		lt.segments.Delete(item)
		lt.scoreVoters(item, false)
	}

	lt.metrics.checkpoint(result.changed, result.late)
	if lt.trace.Enabled() {
		lt.trace.RecordCheckpoint(trace.CheckpointRecord{
			Slot:          slot,
			ChangedVoters: result.changed,
			NewVotes:      result.votes,
			LateVotes:     result.late,
			EvictedSlots:  len(old),
		})
	}
	logrus.Debugf("checkpoint slot=%d changed=%d votes=%d late=%d evicted=%d",
		slot, result.changed, result.votes, result.late, len(old))
	return nil
}

// scoreVoters assigns latency scores for one slot. A segment is low latency while fewer than
// half of the slot's voters have been seen before it; every voter in a segment shares the
// segment's outcome.
func (lt *LatencyTracker) scoreVoters(item *slotSegments, final bool) {
	total := 0
	sizes := make([]int, len(item.segments))
	for i, voters := range item.segments {
		sizes[i] = len(voters)
		total += len(voters)
	}

	seen, low, high := 0, 0, 0
	for _, voters := range item.segments {
		differential := int64(-1)
		if seen < max(1, total/2) {
			differential = 1
			low += len(voters)
		} else {
			high += len(voters)
		}
		for voterID := range voters {
			entry, ok := lt.voters[voterID]
			if !ok {
				panic(fmt.Sprintf("voter %s scored for slot %d is missing from the voter record", voterID, item.slot))
			}
			entry.LatencyScore += differential
		}
		seen += len(voters)
	}

	lt.metrics.scoredSlot(low, high)
	if lt.trace.Enabled() {
		lt.trace.RecordSlotScore(trace.SlotScoreRecord{
			Slot:        item.slot,
			Segments:    sizes,
			TotalVoters: total,
			LowLatency:  low,
			HighLatency: high,
			Final:       final,
		})
	}
}

// scoreOpenSegments scores and drains every slot still inside the delay window. These are
// the tail of the chain, so none of them is discarded.
func (lt *LatencyTracker) scoreOpenSegments() {
	lt.segments.Ascend(func(item *slotSegments) bool {
		lt.scoreVoters(item, true)
		return true
	})
	lt.segments.Clear(false)
}

// validatorResults drains the voter record for every vote account in the bank and keeps the
// best latency score per validator.
func (lt *LatencyTracker) validatorResults(baselineID ID, excluded map[ID]bool, voteAccounts VoteAccounts) ([]Scored[float64], float64, error) {
	voterIDs := make([]ID, 0, len(voteAccounts))
	for voterID := range voteAccounts {
		voterIDs = append(voterIDs, voterID)
	}
	sort.Slice(voterIDs, func(i, j int) bool { return voterIDs[i] < voterIDs[j] })

	validatorLatency := make(map[ID]int64)
	for _, voterID := range voterIDs {
		account := voteAccounts[voterID]
		if account.State == nil {
			return nil, 0, fmt.Errorf("%w: vote account %s", ErrUndecodableVoteState, voterID)
		}
		if entry, ok := lt.voters[voterID]; ok {
			lt.finalized[voterID] = entry.LatencyScore
			delete(lt.voters, voterID)
		}
		score, ok := lt.finalized[voterID]
		if !ok {
			logrus.Warnf("vote account %s was never observed at a checkpoint; no latency score", voterID)
			continue
		}
		// A validator may run several vote accounts; it is scored by its best one
		if current, seen := validatorLatency[account.State.NodeID]; !seen || score > current {
			validatorLatency[account.State.NodeID] = score
		}
	}

	baseline, ok := validatorLatency[baselineID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s has no latency score", ErrBaselineNotFound, baselineID)
	}
	delete(validatorLatency, baselineID)

	scores := make(map[ID]float64, len(validatorLatency))
	for id, latency := range validatorLatency {
		scores[id] = float64(latency)
	}
	results := excludeIDs(scores, excluded)
	sortDescending(results)
	return results, float64(baseline), nil
}

// ComputeWinners scores the remaining open slots and ranks validators by latency score
// against the baseline validator. Calling it again without an intervening checkpoint
// returns identical winners.
func (lt *LatencyTracker) ComputeWinners(bank Bank, baselineID ID, excluded map[ID]bool) (*Winners, error) {
	return lt.computeWinners(bank, baselineID, excluded, BaselineBuckets)
}

func (lt *LatencyTracker) computeWinners(bank Bank, baselineID ID, excluded map[ID]bool, buckets baselineBucketer) (*Winners, error) {
	lt.scoreOpenSegments()

	results, baseline, err := lt.validatorResults(baselineID, excluded, bank.VoteAccounts())
	if err != nil {
		return nil, fmt.Errorf("computing latency winners: %w", err)
	}
	lt.metrics.ranked(CategoryConfirmationLatency, len(results))
	logrus.Infof("ranked %d validators by confirmation latency (baseline score %.0f)", len(results), baseline)

	return &Winners{
		Category:      CategoryConfirmationLatency,
		Label:         fmt.Sprintf("Baseline Score: %.0f", baseline),
		TopWinners:    normalizeWinners(topResults(results), FormatLatency),
		BucketWinners: buckets(results, baseline, FormatLatency),
	}, nil
}
