package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validator-sim/validator-sim/scoring/trace"
)

func TestVoterCheckpoint_FiltersOldCountedAndUnchanged(t *testing.T) {
	const currentSlot Slot = 100
	lt := NewLatencyTracker(nil, nil)

	// GIVEN voter1 with votes reaching past the delay window
	tooOld := currentSlot - MaxVoteDelay - 1
	accounts := VoteAccounts{
		"voter1": voteAccount("n1", 1, voteRange(tooOld, currentSlot+1)...),
		// voter2 has already been counted up to the previous slot
		"voter2": voteAccount("n2", 2, voteRange(0, currentSlot+1)...),
		// voter3 is unchanged since the last checkpoint
		"voter3": voteAccount("n3", 3, currentSlot),
	}
	lt.voters["voter2"] = &VoterEntry{LastSlot: currentSlot - 1}
	lt.voters["voter3"] = &VoterEntry{LastFingerprint: Hash{3}}

	// WHEN the checkpoint is taken
	result, err := lt.voterCheckpoint(currentSlot, accounts)
	require.NoError(t, err)

	// THEN every slot of the window has voter1, the current slot also has voter2
	require.Len(t, result.slotVoters, int(MaxVoteDelay+1))
	for slot, voters := range result.slotVoters {
		if slot == currentSlot {
			assert.Equal(t, voterSet("voter1", "voter2"), voters)
		} else {
			assert.Equal(t, voterSet("voter1"), voters, "slot %d", slot)
		}
	}
	assert.Equal(t, 1, result.late)
	assert.Equal(t, 2, result.changed)

	// THEN voter1 is added and voter2 updated; voter3 is untouched
	assert.Equal(t, &VoterEntry{LastSlot: currentSlot, LastFingerprint: Hash{1}}, lt.voters["voter1"])
	assert.Equal(t, &VoterEntry{LastSlot: currentSlot, LastFingerprint: Hash{2}}, lt.voters["voter2"])
	assert.Equal(t, &VoterEntry{LastFingerprint: Hash{3}}, lt.voters["voter3"])
}

func TestVoterCheckpoint_EmptyQueue_KeepsLastSlot(t *testing.T) {
	lt := NewLatencyTracker(nil, nil)
	lt.voters["voter1"] = &VoterEntry{LastSlot: 42}

	result, err := lt.voterCheckpoint(50, VoteAccounts{"voter1": voteAccount("n1", 9)})

	require.NoError(t, err)
	assert.Empty(t, result.slotVoters)
	assert.Equal(t, Slot(42), lt.voters["voter1"].LastSlot)
	assert.Equal(t, Hash{9}, lt.voters["voter1"].LastFingerprint)
}

func TestVoterCheckpoint_UndecodableChangedAccount_Fails(t *testing.T) {
	lt := NewLatencyTracker(nil, nil)
	_, err := lt.voterCheckpoint(5, VoteAccounts{"voter1": {Fingerprint: Hash{1}}})
	assert.ErrorIs(t, err, ErrUndecodableVoteState)
}

func TestScoreVoters_TwoSegments(t *testing.T) {
	// GIVEN three voters seen first and one seen a checkpoint later
	lt := NewLatencyTracker(nil, nil)
	for _, id := range []ID{"a", "b", "c", "d"} {
		lt.voters[id] = &VoterEntry{}
	}
	item := &slotSegments{slot: 7, segments: []VoterSet{voterSet("a", "b", "c"), voterSet("d")}}

	// WHEN the slot is scored
	lt.scoreVoters(item, false)

	// THEN the first segment is low latency and the late one high latency
	for _, id := range []ID{"a", "b", "c"} {
		assert.Equal(t, int64(1), lt.voters[id].LatencyScore, "voter %s", id)
	}
	assert.Equal(t, int64(-1), lt.voters["d"].LatencyScore)
}

func TestScoreVoters_SegmentsAreIndivisible(t *testing.T) {
	tests := []struct {
		name     string
		segments []VoterSet
		want     map[ID]int64
	}{
		{
			// half of 3 rounds down to 1, so the second segment is already late
			name:     "pair then single",
			segments: []VoterSet{voterSet("v1", "v2"), voterSet("v3")},
			want:     map[ID]int64{"v1": 1, "v2": 1, "v3": -1},
		},
		{
			name:     "single then pair",
			segments: []VoterSet{voterSet("v1"), voterSet("v2", "v3")},
			want:     map[ID]int64{"v1": 1, "v2": -1, "v3": -1},
		},
		{
			name:     "lone voter",
			segments: []VoterSet{voterSet("v1")},
			want:     map[ID]int64{"v1": 1},
		},
		{
			name:     "one big batch",
			segments: []VoterSet{voterSet("v1", "v2", "v3", "v4")},
			want:     map[ID]int64{"v1": 1, "v2": 1, "v3": 1, "v4": 1},
		},
		{
			name:     "four singles",
			segments: []VoterSet{voterSet("v1"), voterSet("v2"), voterSet("v3"), voterSet("v4")},
			want:     map[ID]int64{"v1": 1, "v2": 1, "v3": -1, "v4": -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := NewLatencyTracker(nil, nil)
			for id := range tt.want {
				lt.voters[id] = &VoterEntry{}
			}
			lt.scoreVoters(&slotSegments{slot: 1, segments: tt.segments}, false)

			got := make(map[ID]int64)
			for id, entry := range lt.voters {
				got[id] = entry.LatencyScore
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("latency scores mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreVoters_MissingVoter_Panics(t *testing.T) {
	lt := NewLatencyTracker(nil, nil)
	assert.Panics(t, func() {
		lt.scoreVoters(&slotSegments{slot: 1, segments: []VoterSet{voterSet("ghost")}}, false)
	})
}

func TestOnCheckpoint_EvictsAndAppendsSegments(t *testing.T) {
	const (
		currentSlot Slot = 100
		recentSlot  Slot = 99
		oldSlot          = currentSlot - MaxVoteDelay - 1
	)
	lt := NewLatencyTracker(nil, nil)

	// GIVEN an old slot voted by voter1 and a recent slot voted by voter1 and voter2
	lt.segments.ReplaceOrInsert(&slotSegments{slot: oldSlot, segments: []VoterSet{voterSet("voter1")}})
	lt.segments.ReplaceOrInsert(&slotSegments{slot: recentSlot, segments: []VoterSet{voterSet("voter1", "voter2")}})

	// WHEN a checkpoint shows voter3 voting for the recent slot for the first time
	err := lt.OnCheckpoint(currentSlot, VoteAccounts{
		"voter1": voteAccount("n1", 1, currentSlot),
		"voter2": voteAccount("n2", 2, currentSlot),
		"voter3": voteAccount("n3", 3, recentSlot, currentSlot),
	})
	require.NoError(t, err)

	// THEN the old slot has been scored and removed
	assert.Equal(t, []Slot{recentSlot, currentSlot}, lt.OpenSlots())
	assert.Nil(t, lt.Segments(oldSlot))
	entry, ok := lt.Voter("voter1")
	require.True(t, ok)
	assert.Equal(t, int64(1), entry.LatencyScore)

	// THEN voter3 forms a second segment of the recent slot
	assert.Equal(t, []VoterSet{voterSet("voter1", "voter2"), voterSet("voter3")}, lt.Segments(recentSlot))

	// THEN the current slot has one segment with everyone
	assert.Equal(t, []VoterSet{voterSet("voter1", "voter2", "voter3")}, lt.Segments(currentSlot))
}

func TestOnCheckpoint_WatermarkIsMonotone(t *testing.T) {
	lt := NewLatencyTracker(nil, nil)
	for slot := Slot(1); slot <= 40; slot++ {
		require.NoError(t, lt.OnCheckpoint(slot, VoteAccounts{"v": voteAccount("n", byte(slot), slot)}))
		for _, open := range lt.OpenSlots() {
			assert.GreaterOrEqual(t, open, saturatingSub(slot, MaxVoteDelay))
		}
	}
	entry, _ := lt.Voter("v")
	// slots 1 through 29 have left the window
	assert.Equal(t, int64(29), entry.LatencyScore)
}

func TestOnCheckpoint_RecordsMetricsAndTrace(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	tr := trace.NewScoringTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	lt := NewLatencyTracker(metrics, tr)

	require.NoError(t, lt.OnCheckpoint(1, VoteAccounts{"a": voteAccount("n1", 1, 1), "b": voteAccount("n2", 1, 1)}))
	require.NoError(t, lt.OnCheckpoint(20, VoteAccounts{"a": voteAccount("n1", 2, 1, 20), "b": voteAccount("n2", 2, 1, 2)}))

	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.Checkpoints))
	assert.Equal(t, 4.0, promtest.ToFloat64(metrics.ChangedVoters))
	// slot 2 was voted by b at slot 20, far past the delay window
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.LateVotes))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.ScoredSlots))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.LatencySamples.WithLabelValues("low")))

	require.Len(t, tr.Checkpoints, 2)
	assert.Equal(t, 1, tr.Checkpoints[1].EvictedSlots)
	require.Len(t, tr.SlotScores, 1)
	assert.Equal(t, trace.SlotScoreRecord{Slot: 1, Segments: []int{2}, TotalVoters: 2, LowLatency: 2}, tr.SlotScores[0])
}

// latencyReplay applies a fixed three-checkpoint history where n3's vote for slot 1 lands
// one checkpoint late.
func latencyReplay(t *testing.T) (*LatencyTracker, *fakeBank) {
	t.Helper()
	lt := NewLatencyTracker(nil, nil)
	checkpoints := []struct {
		slot     Slot
		accounts VoteAccounts
	}{
		{1, VoteAccounts{"v1": voteAccount("n1", 1, 1), "v2": voteAccount("n2", 1, 1)}},
		{2, VoteAccounts{"v1": voteAccount("n1", 2, 1, 2), "v2": voteAccount("n2", 2, 1, 2), "v3": voteAccount("n3", 2, 1, 2)}},
		{4, VoteAccounts{"v1": voteAccount("n1", 3, 1, 2, 4), "v2": voteAccount("n2", 3, 1, 2, 4), "v3": voteAccount("n3", 3, 1, 2, 4)}},
	}
	for _, cp := range checkpoints {
		require.NoError(t, lt.OnCheckpoint(cp.slot, cp.accounts))
	}
	bank := &fakeBank{slot: 4, accounts: checkpoints[2].accounts}
	return lt, bank
}

func TestComputeWinners_RanksAgainstBaseline(t *testing.T) {
	lt, bank := latencyReplay(t)

	winners, err := lt.ComputeWinners(bank, "n1", nil)
	require.NoError(t, err)

	assert.Equal(t, CategoryConfirmationLatency, winners.Category)
	assert.Equal(t, "Baseline Score: 3", winners.Label)
	assert.Equal(t, []Winner{
		{ID: "n2", Score: 3, Display: "Latency score: 3"},
		{ID: "n3", Score: 1, Display: "Latency score: 1"},
	}, winners.TopWinners)
	assert.Equal(t, []ID{"n2"}, winnerIDs(winners.BucketWinners[0].Winners))
	// 1 is not above half the baseline
	assert.Empty(t, winners.BucketWinners[1].Winners)
	assert.Empty(t, winners.BucketWinners[2].Winners)
}

func TestComputeWinners_Idempotent(t *testing.T) {
	lt, bank := latencyReplay(t)

	first, err := lt.ComputeWinners(bank, "n1", nil)
	require.NoError(t, err)
	second, err := lt.ComputeWinners(bank, "n1", nil)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second ComputeWinners differs (-first +second):\n%s", diff)
	}
}

func TestComputeWinners_DeterministicReplay(t *testing.T) {
	var outputs []*Winners
	for i := 0; i < 5; i++ {
		lt, bank := latencyReplay(t)
		winners, err := lt.ComputeWinners(bank, "n1", nil)
		require.NoError(t, err)
		outputs = append(outputs, winners)
	}
	for _, w := range outputs[1:] {
		assert.Equal(t, outputs[0], w)
	}
}

func TestComputeWinners_ExcludedAndMultipleVoteAccounts(t *testing.T) {
	lt, bank := latencyReplay(t)
	// n2 also runs v3 under its identity; its best account counts
	bank.accounts = VoteAccounts{
		"v1": voteAccount("n1", 3, 1, 2, 4),
		"v2": voteAccount("n2", 3, 1, 2, 4),
		"v3": voteAccount("n2", 3, 1, 2, 4),
	}

	winners, err := lt.ComputeWinners(bank, "n1", map[ID]bool{"n9": true})
	require.NoError(t, err)
	assert.Equal(t, []ID{"n2"}, winnerIDs(winners.TopWinners))
	assert.Equal(t, 3.0, winners.TopWinners[0].Score)

	winners, err = lt.ComputeWinners(bank, "n1", map[ID]bool{"n2": true})
	require.NoError(t, err)
	assert.Empty(t, winners.TopWinners)
}

func TestComputeWinners_MissingBaseline(t *testing.T) {
	lt, bank := latencyReplay(t)
	_, err := lt.ComputeWinners(bank, "nobody", nil)
	assert.ErrorIs(t, err, ErrBaselineNotFound)
}

func TestComputeWinners_UndecodableBankAccount(t *testing.T) {
	lt, bank := latencyReplay(t)
	bank.accounts["v4"] = VoteAccount{}
	_, err := lt.ComputeWinners(bank, "n1", nil)
	assert.ErrorIs(t, err, ErrUndecodableVoteState)
}

func TestValidatorResults_BaselineRemovedAndSorted(t *testing.T) {
	lt := NewLatencyTracker(nil, nil)
	lt.voters["voter1"] = &VoterEntry{LatencyScore: 100}
	lt.voters["voter2"] = &VoterEntry{LatencyScore: 200}
	lt.voters["voter3"] = &VoterEntry{LatencyScore: 300}
	accounts := VoteAccounts{
		"voter1": voteAccount("validator1", 0),
		"voter2": voteAccount("validator2", 0),
		"voter3": voteAccount("baseline", 0),
	}

	results, baseline, err := lt.validatorResults("baseline", map[ID]bool{"bootstrap": true, "baseline": true}, accounts)

	require.NoError(t, err)
	assert.Equal(t, 300.0, baseline)
	assert.Equal(t, []Scored[float64]{{ID: "validator2", Score: 200}, {ID: "validator1", Score: 100}}, results)
}
