package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/validator-sim/validator-sim/scoring"
)

// maxRecordSize bounds a single fixture line. Bank records of large clusters run to many
// megabytes.
const maxRecordSize = 256 << 20

// ErrNoBank is returned when a fixture ends without a bank record.
var ErrNoBank = errors.New("fixture has no bank record")

// Checkpoint is the set of vote accounts observed after a slot was replayed.
type Checkpoint struct {
	Slot         scoring.Slot
	VoteAccounts scoring.VoteAccounts
}

// Entry is one decoded fixture record. Exactly one of Checkpoint and Bank is set; Schedule
// accompanies Bank.
type Entry struct {
	Checkpoint *Checkpoint
	Bank       *Bank
	Schedule   *Schedule
}

// Source yields fixture entries in ledger order and io.EOF after the last one.
type Source interface {
	Next() (*Entry, error)
}

// Reader decodes a JSON-lines fixture. It rejects checkpoints that are not in strictly
// increasing slot order and any record after the bank record.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int

	lastSlot    scoring.Slot
	checkpoints int
	sawBank     bool
}

// NewReader reads a fixture from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &Reader{scanner: scanner}
}

// Open reads the fixture file at path. The caller must Close the reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening fixture %s", path)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Next implements Source.
func (r *Reader) Next() (*Entry, error) {
	for r.scanner.Scan() {
		r.line++
		data := bytes.TrimSpace(r.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if r.sawBank {
			return nil, errors.Errorf("line %d: record after bank record", r.line)
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.Wrapf(err, "line %d: decoding record", r.line)
		}
		entry, err := r.decode(&rec)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", r.line)
		}
		return entry, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading fixture after line %d", r.line)
	}
	if !r.sawBank {
		return nil, ErrNoBank
	}
	return nil, io.EOF
}

func (r *Reader) decode(rec *record) (*Entry, error) {
	accounts, err := voteAccounts(rec.VoteAccounts)
	if err != nil {
		return nil, err
	}
	switch rec.Type {
	case TypeCheckpoint:
		if r.checkpoints > 0 && rec.Slot <= r.lastSlot {
			return nil, errors.Errorf("checkpoint slot %d does not follow slot %d", rec.Slot, r.lastSlot)
		}
		r.lastSlot = rec.Slot
		r.checkpoints++
		return &Entry{Checkpoint: &Checkpoint{Slot: rec.Slot, VoteAccounts: accounts}}, nil
	case TypeBank:
		if r.checkpoints > 0 && rec.Slot < r.lastSlot {
			return nil, errors.Errorf("bank slot %d is older than checkpoint slot %d", rec.Slot, r.lastSlot)
		}
		if rec.LeaderSchedule == nil {
			return nil, errors.New("bank record has no leader schedule")
		}
		r.sawBank = true
		delegations := make(map[scoring.ID]scoring.StakeDelegation, len(rec.StakeDelegations))
		for address, d := range rec.StakeDelegations {
			delegations[scoring.ID(address)] = scoring.StakeDelegation{VoterID: scoring.ID(d.Voter), Stake: d.Stake}
		}
		parents := make(map[scoring.Slot]scoring.Slot, len(rec.Blocks))
		for slot, parent := range rec.Blocks {
			parents[slot] = parent
		}
		leaders := make([]scoring.ID, len(rec.LeaderSchedule.Leaders))
		for i, leader := range rec.LeaderSchedule.Leaders {
			leaders[i] = scoring.ID(leader)
		}
		return &Entry{
			Bank:     NewBank(rec.Slot, rec.BlockHeight, accounts, delegations, parents),
			Schedule: &Schedule{Leaders: leaders, SlotsPerLeader: rec.LeaderSchedule.SlotsPerLeader},
		}, nil
	default:
		return nil, errors.Errorf("unknown record type %q", rec.Type)
	}
}
