package stake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// ErrNoHistoryEntry is returned when the stake history has no entry for an epoch yet.
var ErrNoHistoryEntry = errors.New("no stake history entry")

// HistoryRetryInterval is the initial delay before re-reading a missing stake history entry.
const HistoryRetryInterval = 5 * time.Second

// EpochInfo locates the cluster within the current epoch.
type EpochInfo struct {
	Epoch     uint64
	SlotIndex uint64 // slots already elapsed in Epoch
}

// EpochSource reports the cluster's current epoch.
type EpochSource interface {
	EpochInfo(ctx context.Context) (EpochInfo, error)
}

// History looks up the stake history entry recorded for an epoch.
type History interface {
	EntryForEpoch(epoch uint64) (HistoryEntry, bool)
}

// SlotsToDuration converts a number of slots to wall time, rounded up to whole seconds.
func SlotsToDuration(numSlots, ticksPerSlot uint64, tickDuration time.Duration) time.Duration {
	d := time.Duration(numSlots*ticksPerSlot) * tickDuration
	return (d + time.Second - 1) / time.Second * time.Second
}

// Waiter blocks until delegated stake has warmed up, polling the cluster between sleeps.
type Waiter struct {
	Epochs        EpochSource
	History       History
	Rate          float64 // warmup/cooldown rate
	SlotsPerEpoch uint64
	TicksPerSlot  uint64
	TickDuration  time.Duration

	// Sleep blocks for d or until ctx is done. Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// NewBackOff builds the retry policy for epoch and stake history reads. Defaults to an
	// unbounded exponential backoff starting at HistoryRetryInterval.
	NewBackOff func() backoff.BackOff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = HistoryRetryInterval
	b.MaxElapsedTime = 0
	return b
}

func (w *Waiter) sleepSlots(ctx context.Context, numSlots uint64) error {
	d := SlotsToDuration(numSlots, w.TicksPerSlot, w.TickDuration)
	switch {
	case d >= 5*time.Hour:
		logrus.Infof("Sleeping for %d slots (%d hours)", numSlots, int64(d.Hours()))
	case d >= 5*time.Minute:
		logrus.Infof("Sleeping for %d slots (%d minutes)", numSlots, int64(d.Minutes()))
	case d > 0:
		logrus.Infof("Sleeping for %d slots (%d seconds)", numSlots, int64(d.Seconds()))
	}
	sleep := w.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, d)
}

// remainingSlots is the number of slots until epochs full epochs have passed, counted from
// the start of the current epoch.
func (w *Waiter) remainingSlots(epochs uint64, info EpochInfo) uint64 {
	total := epochs * w.SlotsPerEpoch
	if total < info.SlotIndex {
		return 0
	}
	return total - info.SlotIndex
}

// currentEntry reads the epoch info and its stake history entry, retrying until both are
// available or ctx is done.
func (w *Waiter) currentEntry(ctx context.Context) (EpochInfo, HistoryEntry, error) {
	newBackOff := w.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}
	var (
		info  EpochInfo
		entry HistoryEntry
	)
	op := func() error {
		var err error
		info, err = w.Epochs.EpochInfo(ctx)
		if err != nil {
			return fmt.Errorf("fetching epoch info: %w", err)
		}
		logrus.Debugf("Fetching stake history entry for epoch: %d...", info.Epoch)
		var ok bool
		entry, ok = w.History.EntryForEpoch(info.Epoch)
		if !ok {
			return fmt.Errorf("%w for epoch %d", ErrNoHistoryEntry, info.Epoch)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		logrus.Warnf("%v; retrying in %v", err, next)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(newBackOff(), ctx), notify); err != nil {
		return EpochInfo{}, HistoryEntry{}, err
	}
	return info, entry, nil
}

// WaitForActivation sleeps until activationEpoch has finished and then until the stake in
// flight has settled according to PredictWarmupEpochs.
func (w *Waiter) WaitForActivation(ctx context.Context, activationEpoch uint64) error {
	if err := ValidateRate(w.Rate); err != nil {
		return err
	}
	info, err := w.Epochs.EpochInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetching epoch info: %w", err)
	}

	// Sleep until activationEpoch has finished
	if activationEpoch+1 > info.Epoch {
		logrus.Infof("Waiting until activation epoch (%d) is finished...", activationEpoch)
		if err := w.sleepSlots(ctx, w.remainingSlots(activationEpoch+1-info.Epoch, info)); err != nil {
			return err
		}
	}

	for {
		info, entry, err := w.currentEntry(ctx)
		if err != nil {
			return err
		}
		logrus.Debugf("Stake history entry: %+v", entry)
		warmupEpochs, err := PredictWarmupEpochs(entry, w.Rate)
		if err != nil {
			return err
		}
		if warmupEpochs == 0 {
			return nil
		}
		logrus.Infof("Waiting until epoch %d for stake to warmup...", info.Epoch+warmupEpochs)
		if err := w.sleepSlots(ctx, w.remainingSlots(warmupEpochs, info)); err != nil {
			return err
		}
	}
}
