// Package trace provides decision-trace recording for latency scoring analysis.
// This package has no dependencies on scoring/ — it stores pure data types.
package trace

// CheckpointRecord captures what a single checkpoint contributed to latency tracking.
type CheckpointRecord struct {
	Slot          uint64
	ChangedVoters int // vote accounts whose fingerprint changed
	NewVotes      int // votes added to a slot segment
	LateVotes     int // votes discarded for arriving too late
	EvictedSlots  int // slots scored and removed by this checkpoint
}

// SlotScoreRecord captures the scoring of one slot's vote segments.
type SlotScoreRecord struct {
	Slot        uint64
	Segments    []int // voters per segment, in arrival order
	TotalVoters int
	LowLatency  int  // voters awarded +1
	HighLatency int  // voters awarded -1
	Final       bool // scored by finalization rather than eviction
}
