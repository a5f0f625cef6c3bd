package ledger

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/validator-sim/validator-sim/scoring"
)

// Fingerprint computes the blake2b-256 hash of a vote account's balance, stake and state.
// The account's own Fingerprint field is ignored.
func Fingerprint(account scoring.VoteAccount) (h scoring.Hash) {
	w, _ := blake2b.New256(nil)
	putUint64(w, account.Stake)
	putUint64(w, account.Lamports)
	if account.State == nil {
		w.Write([]byte{0})
	} else {
		w.Write([]byte{1})
		putUint64(w, uint64(len(account.State.NodeID)))
		w.Write([]byte(account.State.NodeID))
		putUint64(w, account.State.Credits)
		putUint64(w, uint64(len(account.State.Votes)))
		for _, vote := range account.State.Votes {
			putUint64(w, vote)
		}
	}
	w.Sum(h[:0])
	return h
}

func putUint64(w hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}
