// Package stake predicts how long activating and deactivating stake takes to settle, and
// waits for it to do so.
package stake

import (
	"errors"
	"fmt"
	"math"
)

// SettledFraction is the fraction of effective stake below which in-flight stake counts as
// settled.
const SettledFraction = 0.05

// DefaultWarmupRate is the cluster's default warmup/cooldown rate.
const DefaultWarmupRate = 0.25

var (
	// ErrInvalidRate is returned for a warmup rate outside (0, 1].
	ErrInvalidRate = errors.New("warmup rate must be in (0, 1]")
	// ErrWarmupStalled is returned when an unsettled epoch moves no stake, so the
	// simulation cannot converge.
	ErrWarmupStalled = errors.New("stake warmup stalled")
)

// HistoryEntry is the stake history of one epoch.
type HistoryEntry struct {
	Effective    uint64 `yaml:"effective"`
	Activating   uint64 `yaml:"activating"`
	Deactivating uint64 `yaml:"deactivating"`
}

// settled reports whether both activating and deactivating stake are under SettledFraction of
// the effective stake.
func (e HistoryEntry) settled() bool {
	effective := float64(max(e.Effective, 1))
	return float64(e.Activating)/effective < SettledFraction &&
		float64(e.Deactivating)/effective < SettledFraction
}

// ValidateRate checks that rate is a usable warmup/cooldown rate.
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || rate <= 0 || rate > 1 {
		return fmt.Errorf("%w, got %v", ErrInvalidRate, rate)
	}
	return nil
}

// Step simulates one epoch. Activation is applied before cooldown, so the cooldown allowance
// is computed from the already updated effective stake.
func Step(entry HistoryEntry, rate float64) HistoryEntry {
	moveIn := min(entry.Activating, uint64(float64(entry.Effective)*rate))
	entry.Effective += moveIn
	entry.Activating -= moveIn

	moveOut := min(entry.Deactivating, uint64(float64(entry.Effective)*rate))
	entry.Effective -= moveOut
	entry.Deactivating -= moveOut
	return entry
}

// PredictWarmupEpochs returns the number of epochs until at least 95% of the entry's
// activating and deactivating stake has settled at the given rate.
func PredictWarmupEpochs(entry HistoryEntry, rate float64) (uint64, error) {
	if err := ValidateRate(rate); err != nil {
		return 0, err
	}
	var epochs uint64
	for !entry.settled() {
		next := Step(entry, rate)
		if next == entry {
			return epochs, fmt.Errorf("%w after %d epochs: effective=%d activating=%d deactivating=%d",
				ErrWarmupStalled, epochs, entry.Effective, entry.Activating, entry.Deactivating)
		}
		entry = next
		epochs++
	}
	return epochs, nil
}
