package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardsResults_EarnedOverStartingBalance(t *testing.T) {
	rewards := map[ID]uint64{"top": 1000, "bottom": 10, "excluded": 100}

	results := rewardsResults(rewards, map[ID]bool{"excluded": true}, 100)

	assert.Equal(t, []Scored[int64]{{ID: "top", Score: 900}, {ID: "bottom", Score: -90}}, results)
}

func TestValidatorRewards_CommissionPlusStake(t *testing.T) {
	withLamports := func(account VoteAccount, lamports uint64) VoteAccount {
		account.Lamports = lamports
		return account
	}
	accounts := VoteAccounts{
		"voter1": withLamports(voteAccount("validator1", 0), 100),
		"voter2": withLamports(voteAccount("validator2", 0), 100),
		"voter3": withLamports(voteAccount("validator2", 0), 200),
		"broken": {Lamports: 1 << 40},
	}

	rewards := validatorRewards(map[ID]uint64{"voter1": 1000}, accounts)

	assert.Equal(t, map[ID]uint64{"validator1": 1100, "validator2": 200}, rewards)
}

func TestVoterStakeRewards_SumsPerVoter(t *testing.T) {
	delegations := map[ID]StakeDelegation{
		"stake1": {VoterID: "voter1", Stake: 100},
		"stake2": {VoterID: "voter2", Stake: 100},
		"stake3": {VoterID: "voter2", Stake: 100},
	}
	assert.Equal(t, map[ID]uint64{"voter1": 100, "voter2": 200}, voterStakeRewards(delegations))
}

func rewardsBank() *fakeBank {
	return &fakeBank{
		slot: 4,
		accounts: VoteAccounts{
			"v1": {Lamports: 1_000_000_000, State: &VoteState{NodeID: "n1"}},
			"v2": {Lamports: 500_000_000, State: &VoteState{NodeID: "n2"}},
			"v3": {State: &VoteState{NodeID: "n3"}},
		},
		delegations: map[ID]StakeDelegation{
			"s1": {VoterID: "v1", Stake: 2_000_000_000},
			"s2": {VoterID: "v2", Stake: 2_000_000_000},
			"s3": {VoterID: "v3", Stake: 1_500_000_000},
		},
	}
}

func TestComputeRewardsWinners(t *testing.T) {
	// GIVEN three validators that each started with 2 SOL
	winners, err := ComputeRewardsWinners(rewardsBank(), nil, SOLToLamports(2))

	// THEN the one that lost stake reports a negative amount
	require.NoError(t, err)
	assert.Equal(t, CategoryRewardsEarned, winners.Category)
	assert.Empty(t, winners.Label)
	assert.Equal(t, []Winner{
		{ID: "n1", Score: 1e9, Display: "Earned 1.00000 SOL (1000000000 lamports) in stake rewards and commission"},
		{ID: "n2", Score: 5e8, Display: "Earned 0.50000 SOL (500000000 lamports) in stake rewards and commission"},
		{ID: "n3", Score: -5e8, Display: "Earned -0.50000 SOL (-500000000 lamports) in stake rewards and commission"},
	}, winners.TopWinners)

	// THEN three validators split as top 1, none, middle 1, bottom 1
	got := bucketIDs(winners.BucketWinners)
	assert.Equal(t, [][]ID{{"n1"}, {}, {"n2"}, {"n3"}}, got)
}

func TestComputeRewardsWinners_AllExcluded(t *testing.T) {
	_, err := ComputeRewardsWinners(rewardsBank(), map[ID]bool{"n1": true, "n2": true, "n3": true}, 0)
	assert.ErrorIs(t, err, ErrNoValidators)
}
