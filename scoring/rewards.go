// Rewards scoring. A validator's earnings are the balances of all stake and vote accounts
// attributed to it, less the balance it started the event with.

package scoring

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// voterStakeRewards sums delegated stake per vote account.
func voterStakeRewards(delegations map[ID]StakeDelegation) map[ID]uint64 {
	sums := make(map[ID]uint64)
	for _, delegation := range delegations {
		sums[delegation.VoterID] += delegation.Stake
	}
	return sums
}

// validatorRewards sums commission and stake rewards per validator. When several vote
// accounts belong to one validator the largest total is kept.
func validatorRewards(voterStake map[ID]uint64, voteAccounts VoteAccounts) map[ID]uint64 {
	rewards := make(map[ID]uint64)
	for voterID, account := range voteAccounts {
		if account.State == nil {
			logrus.Warnf("skipping vote account %s: undecodable state", voterID)
			continue
		}
		total := account.Lamports + voterStake[voterID]
		if current, ok := rewards[account.State.NodeID]; !ok || total > current {
			rewards[account.State.NodeID] = total
		}
	}
	return rewards
}

// rewardsResults ranks validators by balance and reports what each earned over the starting
// balance, which may be negative.
func rewardsResults(rewards map[ID]uint64, excluded map[ID]bool, startingBalance uint64) []Scored[int64] {
	balances := excludeIDs(rewards, excluded)
	sortDescending(balances)
	results := make([]Scored[int64], len(balances))
	for i, b := range balances {
		results[i] = Scored[int64]{ID: b.ID, Score: int64(b.Score) - int64(startingBalance)}
	}
	return results
}

// ComputeRewardsWinners ranks validators by stake rewards and commission earned, bucketed by
// percentile.
func ComputeRewardsWinners(bank Bank, excluded map[ID]bool, startingBalance uint64) (*Winners, error) {
	rewards := validatorRewards(voterStakeRewards(bank.StakeDelegations()), bank.VoteAccounts())
	results := rewardsResults(rewards, excluded, startingBalance)
	if len(results) == 0 {
		return nil, fmt.Errorf("computing rewards winners: %w", ErrNoValidators)
	}
	logrus.Infof("ranked %d validators by rewards earned", len(results))

	return &Winners{
		Category:      CategoryRewardsEarned,
		TopWinners:    normalizeWinners(topResults(results), FormatRewards),
		BucketWinners: PercentileBuckets(results, FormatRewards),
	}, nil
}
