package stake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster advances one epoch for every epochDuration slept.
type fakeCluster struct {
	epoch         uint64
	epochDuration time.Duration
	history       map[uint64]HistoryEntry
	missingReads  int // EntryForEpoch misses before answering
	sleeps        []time.Duration
}

func (c *fakeCluster) EpochInfo(ctx context.Context) (EpochInfo, error) {
	return EpochInfo{Epoch: c.epoch}, nil
}

func (c *fakeCluster) EntryForEpoch(epoch uint64) (HistoryEntry, bool) {
	if c.missingReads > 0 {
		c.missingReads--
		return HistoryEntry{}, false
	}
	entry, ok := c.history[epoch]
	return entry, ok
}

func (c *fakeCluster) sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.epoch += uint64(d / c.epochDuration)
	return nil
}

func newTestWaiter(c *fakeCluster) *Waiter {
	return &Waiter{
		Epochs:        c,
		History:       c,
		Rate:          0.25,
		SlotsPerEpoch: 10,
		TicksPerSlot:  1,
		TickDuration:  time.Second,
		Sleep:         c.sleep,
		NewBackOff:    func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

func TestSlotsToDuration_RoundsUpToSeconds(t *testing.T) {
	assert.Equal(t, 10*time.Second, SlotsToDuration(2, 10, 500*time.Millisecond))
	assert.Equal(t, time.Second, SlotsToDuration(1, 1, 500*time.Millisecond))
	assert.Equal(t, time.Duration(0), SlotsToDuration(10, 0, 500*time.Millisecond))
}

func TestWaitForActivation_SleepsThroughWarmup(t *testing.T) {
	// GIVEN a cluster in epoch 1 whose stake activates in epoch 2
	c := &fakeCluster{
		epoch:         1,
		epochDuration: 10 * time.Second,
		history: map[uint64]HistoryEntry{
			3: {Effective: 100, Activating: 100},
			6: {Effective: 195, Activating: 5},
		},
	}

	// WHEN waiting for activation
	err := newTestWaiter(c).WaitForActivation(context.Background(), 2)

	// THEN it sleeps past the activation epoch, then for the predicted three warmup epochs
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{20 * time.Second, 30 * time.Second}, c.sleeps)
	assert.Equal(t, uint64(6), c.epoch)
}

func TestWaitForActivation_MissingHistoryEntry_Retries(t *testing.T) {
	// GIVEN a stake history that is not yet available for the current epoch
	c := &fakeCluster{
		epoch:         5,
		epochDuration: 10 * time.Second,
		history:       map[uint64]HistoryEntry{5: {Effective: 1000}},
		missingReads:  2,
	}

	// WHEN waiting for an epoch that already passed
	err := newTestWaiter(c).WaitForActivation(context.Background(), 3)

	// THEN the read is retried until the entry appears and no sleep is needed
	require.NoError(t, err)
	assert.Empty(t, c.sleeps)
	assert.Equal(t, 0, c.missingReads)
}

func TestWaitForActivation_Cancelled(t *testing.T) {
	c := &fakeCluster{epoch: 0, epochDuration: 10 * time.Second}
	w := newTestWaiter(c)
	w.Sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	err := w.WaitForActivation(context.Background(), 4)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWaitForActivation_InvalidRate(t *testing.T) {
	w := newTestWaiter(&fakeCluster{epochDuration: time.Second})
	w.Rate = 0
	assert.ErrorIs(t, w.WaitForActivation(context.Background(), 0), ErrInvalidRate)
}
