package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LamportsPerSOLExp is the decimal exponent converting lamports to SOL.
const LamportsPerSOLExp = -9

// FormatAvailability renders an availability ratio as a percentage.
func FormatAvailability(availability float64) string {
	return fmt.Sprintf("%.3f%% availability", availability*100)
}

// FormatLatency renders a latency score.
func FormatLatency(score float64) string {
	return fmt.Sprintf("Latency score: %.0f", score)
}

// FormatRewards renders earned lamports as SOL, keeping the sign in front of both amounts.
func FormatRewards(earned int64) string {
	sign := ""
	magnitude := decimal.NewFromInt(earned)
	if earned < 0 {
		sign = "-"
		magnitude = magnitude.Neg()
	}
	return fmt.Sprintf("Earned %s%s SOL (%s%s lamports) in stake rewards and commission",
		sign, magnitude.Shift(LamportsPerSOLExp).StringFixed(5), sign, magnitude.String())
}

// SOLToLamports converts a SOL amount to lamports, truncating sub-lamport precision.
func SOLToLamports(sol float64) uint64 {
	return uint64(decimal.NewFromFloat(sol).Shift(-LamportsPerSOLExp).IntPart())
}
