package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every checkpoint and slot scoring decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// ScoringTrace collects decision records during a scoring run.
type ScoringTrace struct {
	Config      TraceConfig
	Checkpoints []CheckpointRecord
	SlotScores  []SlotScoreRecord
}

// NewScoringTrace creates a ScoringTrace ready for recording.
func NewScoringTrace(config TraceConfig) *ScoringTrace {
	return &ScoringTrace{
		Config:      config,
		Checkpoints: make([]CheckpointRecord, 0),
		SlotScores:  make([]SlotScoreRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on a nil trace.
func (st *ScoringTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordCheckpoint appends a checkpoint record.
func (st *ScoringTrace) RecordCheckpoint(record CheckpointRecord) {
	st.Checkpoints = append(st.Checkpoints, record)
}

// RecordSlotScore appends a slot scoring record.
func (st *ScoringTrace) RecordSlotScore(record SlotScoreRecord) {
	st.SlotScores = append(st.SlotScores, record)
}
