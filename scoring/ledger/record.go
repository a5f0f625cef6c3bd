// Package ledger reads JSON-lines replay fixtures and drives a latency tracker through their
// checkpoints in ledger order.
//
// A fixture holds one record per line. Every line but the last is a checkpoint: the vote
// accounts as observed after a slot was replayed. The last line is the bank record holding
// the final chain state that categories are scored against:
//
//	{"type":"checkpoint","slot":12,"vote_accounts":{"V1":{"stake":100,"state":{"node_id":"N1","credits":7,"votes":[10,11,12]}}}}
//	{"type":"bank","slot":12,"block_height":12,"vote_accounts":{...},"stake_delegations":{...},
//	 "blocks":{"12":11,"11":10},"leader_schedule":{"leaders":["N1","N2"],"slots_per_leader":4}}
//
// A vote account whose "state" is null could not be decoded. A missing "fingerprint" is
// computed from the account contents.
package ledger

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/validator-sim/validator-sim/scoring"
)

// Record types.
const (
	TypeCheckpoint = "checkpoint"
	TypeBank       = "bank"
)

type stateRecord struct {
	NodeID  string   `json:"node_id"`
	Credits uint64   `json:"credits"`
	Votes   []uint64 `json:"votes"`
}

type accountRecord struct {
	Stake       uint64       `json:"stake"`
	Lamports    uint64       `json:"lamports"`
	Fingerprint string       `json:"fingerprint,omitempty"` // hex, 32 bytes
	State       *stateRecord `json:"state"`
}

type delegationRecord struct {
	Voter string `json:"voter"`
	Stake uint64 `json:"stake"`
}

type scheduleRecord struct {
	Leaders        []string `json:"leaders"`
	SlotsPerLeader uint64   `json:"slots_per_leader"`
}

type record struct {
	Type             string                      `json:"type"`
	Slot             uint64                      `json:"slot"`
	BlockHeight      uint64                      `json:"block_height"`
	VoteAccounts     map[string]accountRecord    `json:"vote_accounts"`
	StakeDelegations map[string]delegationRecord `json:"stake_delegations"`
	Blocks           map[uint64]uint64           `json:"blocks"` // slot -> parent slot
	LeaderSchedule   *scheduleRecord             `json:"leader_schedule"`
}

func (a accountRecord) voteAccount() (scoring.VoteAccount, error) {
	account := scoring.VoteAccount{Stake: a.Stake, Lamports: a.Lamports}
	if a.State != nil {
		account.State = &scoring.VoteState{
			NodeID:  scoring.ID(a.State.NodeID),
			Credits: a.State.Credits,
			Votes:   a.State.Votes,
		}
	}
	if a.Fingerprint == "" {
		account.Fingerprint = Fingerprint(account)
		return account, nil
	}
	raw, err := hex.DecodeString(a.Fingerprint)
	if err != nil {
		return account, errors.Wrapf(err, "decoding fingerprint %q", a.Fingerprint)
	}
	if len(raw) != len(account.Fingerprint) {
		return account, errors.Errorf("fingerprint %q is %d bytes, want %d", a.Fingerprint, len(raw), len(account.Fingerprint))
	}
	copy(account.Fingerprint[:], raw)
	return account, nil
}

func voteAccounts(records map[string]accountRecord) (scoring.VoteAccounts, error) {
	accounts := make(scoring.VoteAccounts, len(records))
	for address, rec := range records {
		account, err := rec.voteAccount()
		if err != nil {
			return nil, errors.Wrapf(err, "vote account %s", address)
		}
		accounts[scoring.ID(address)] = account
	}
	return accounts, nil
}
