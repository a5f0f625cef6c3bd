package ledger

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/validator-sim/validator-sim/scoring"
)

// replayBuffer is the number of decoded checkpoints queued ahead of the tracker.
const replayBuffer = 64

// CheckpointSink consumes checkpoints in ledger order. *scoring.LatencyTracker implements it.
type CheckpointSink interface {
	OnCheckpoint(slot scoring.Slot, voteAccounts scoring.VoteAccounts) error
}

// ReplayResult is the final chain state of a replay.
type ReplayResult struct {
	Bank        *Bank
	Schedule    *Schedule
	Checkpoints int // checkpoints applied to the sink
	Skipped     int // checkpoints past the final slot
}

// Replay decodes src on one goroutine and applies its checkpoints to sink on another, in
// order. Checkpoints after finalSlot are read but not applied; a finalSlot of zero applies
// all of them.
func Replay(ctx context.Context, src Source, sink CheckpointSink, finalSlot scoring.Slot) (*ReplayResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	checkpoints := make(chan *Checkpoint, replayBuffer)
	result := &ReplayResult{}

	g.Go(func() error {
		defer close(checkpoints)
		for {
			entry, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if entry.Bank != nil {
				result.Bank, result.Schedule = entry.Bank, entry.Schedule
				continue
			}
			if finalSlot > 0 && entry.Checkpoint.Slot > finalSlot {
				result.Skipped++
				continue
			}
			select {
			case checkpoints <- entry.Checkpoint:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for cp := range checkpoints {
			if err := sink.OnCheckpoint(cp.Slot, cp.VoteAccounts); err != nil {
				return errors.Wrapf(err, "applying checkpoint at slot %d", cp.Slot)
			}
			result.Checkpoints++
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if result.Bank == nil {
		return nil, ErrNoBank
	}
	logrus.Infof("replayed %d checkpoints up to bank slot %d (%d skipped)",
		result.Checkpoints, result.Bank.Slot(), result.Skipped)
	return result, nil
}
