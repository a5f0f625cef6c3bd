package scoring

import "errors"

// ID is a base58 validator identity, vote account or stake account address.
type ID string

// Slot is a discrete, globally ordered unit of ledger time.
type Slot = uint64

// Hash is an opaque content fingerprint of an account.
type Hash [32]byte

// VoteState is the decoded state of a vote account.
type VoteState struct {
	NodeID  ID     // identity of the validator operating the vote account
	Credits uint64 // vote credits earned so far
	Votes   []Slot // lockout queue, oldest to newest
}

// LastVote returns the newest slot in the lockout queue.
func (vs *VoteState) LastVote() (Slot, bool) {
	if len(vs.Votes) == 0 {
		return 0, false
	}
	return vs.Votes[len(vs.Votes)-1], true
}

// VoteAccount is one vote account as observed at a checkpoint. State is nil when the
// account data could not be decoded.
type VoteAccount struct {
	Stake       uint64 // delegated stake
	Lamports    uint64 // account balance (collected commission)
	Fingerprint Hash
	State       *VoteState
}

// VoteAccounts maps vote account address to account.
type VoteAccounts map[ID]VoteAccount

// StakeDelegation is a stake account delegated to a vote account.
type StakeDelegation struct {
	VoterID ID
	Stake   uint64
}

// Bank is a replayed view of chain state at a single slot.
type Bank interface {
	Slot() Slot
	BlockHeight() uint64
	VoteAccounts() VoteAccounts
	StakeDelegations() map[ID]StakeDelegation
}

// LeaderSchedule resolves the leader assigned to a slot.
type LeaderSchedule interface {
	LeaderAt(slot Slot) (ID, error)
}

// BlockChain walks the realized chain of blocks.
type BlockChain interface {
	// ParentChain returns the slots of the chain ending at last and starting at the oldest
	// block at or above first, ordered oldest to newest.
	ParentChain(first, last Slot) ([]Slot, error)
}

var (
	// ErrBaselineNotFound is returned when the baseline validator has no score.
	ErrBaselineNotFound = errors.New("baseline validator not found")
	// ErrUndecodableVoteState is returned when a vote account's state is required but could not be decoded.
	ErrUndecodableVoteState = errors.New("vote account state could not be decoded")
	// ErrNoValidators is returned when a category has no validators left to rank.
	ErrNoValidators = errors.New("no validators to rank")
)
