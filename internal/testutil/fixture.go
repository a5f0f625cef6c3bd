// Package testutil provides shared test infrastructure for the scoring engine and the CLI.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixturePath returns the path of a replay fixture in scoring/ledger/testdata/.
// The path is resolved relative to this source file so tests can run from any package.
func FixturePath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from internal/testutil/ to scoring/ledger/testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "scoring", "ledger", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Failed to find fixture %s: %v", name, err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
