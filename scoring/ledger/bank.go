package ledger

import (
	"fmt"
	"slices"

	"github.com/validator-sim/validator-sim/scoring"
)

// DefaultSlotsPerLeader is the number of consecutive slots a leader is scheduled for when the
// fixture does not say.
const DefaultSlotsPerLeader uint64 = 4

// Bank is the final chain state of a fixture. It implements scoring.Bank and
// scoring.BlockChain.
type Bank struct {
	slot         scoring.Slot
	blockHeight  uint64
	voteAccounts scoring.VoteAccounts
	delegations  map[scoring.ID]scoring.StakeDelegation
	parents      map[scoring.Slot]scoring.Slot
}

// NewBank assembles a bank. parents maps every block's slot to its parent's slot.
func NewBank(slot scoring.Slot, blockHeight uint64, voteAccounts scoring.VoteAccounts,
	delegations map[scoring.ID]scoring.StakeDelegation, parents map[scoring.Slot]scoring.Slot) *Bank {
	return &Bank{
		slot:         slot,
		blockHeight:  blockHeight,
		voteAccounts: voteAccounts,
		delegations:  delegations,
		parents:      parents,
	}
}

func (b *Bank) Slot() scoring.Slot                                       { return b.slot }
func (b *Bank) BlockHeight() uint64                                      { return b.blockHeight }
func (b *Bank) VoteAccounts() scoring.VoteAccounts                       { return b.voteAccounts }
func (b *Bank) StakeDelegations() map[scoring.ID]scoring.StakeDelegation { return b.delegations }

// ParentChain follows parent links back from last and returns the block slots from first to
// last, oldest first. The chain starts at first when first holds a block; otherwise it starts
// at the oldest block above first, and older blocks are left out.
func (b *Bank) ParentChain(first, last scoring.Slot) ([]scoring.Slot, error) {
	var chain []scoring.Slot
	for slot := last; slot >= first; {
		chain = append(chain, slot)
		if slot == first {
			break
		}
		parent, ok := b.parents[slot]
		if !ok {
			return nil, fmt.Errorf("no parent recorded for slot %d", slot)
		}
		if parent >= slot {
			return nil, fmt.Errorf("parent %d of slot %d is not older", parent, slot)
		}
		slot = parent
	}
	slices.Reverse(chain)
	return chain, nil
}

// Schedule is a fixed leader rotation: each leader in turn holds SlotsPerLeader consecutive
// slots. It implements scoring.LeaderSchedule.
type Schedule struct {
	Leaders        []scoring.ID
	SlotsPerLeader uint64
}

// LeaderAt implements scoring.LeaderSchedule.
func (s *Schedule) LeaderAt(slot scoring.Slot) (scoring.ID, error) {
	if len(s.Leaders) == 0 {
		return "", fmt.Errorf("leader schedule is empty")
	}
	perLeader := s.SlotsPerLeader
	if perLeader == 0 {
		perLeader = DefaultSlotsPerLeader
	}
	return s.Leaders[(slot/perLeader)%uint64(len(s.Leaders))], nil
}
