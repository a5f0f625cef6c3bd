package trace

// TraceSummary aggregates statistics from a ScoringTrace.
type TraceSummary struct {
	TotalCheckpoints   int     `yaml:"total_checkpoints"`
	TotalNewVotes      int     `yaml:"total_new_votes"`
	TotalLateVotes     int     `yaml:"total_late_votes"`
	ScoredSlots        int     `yaml:"scored_slots"`
	FinalizedSlots     int     `yaml:"finalized_slots"`
	MeanVotersPerSlot  float64 `yaml:"mean_voters_per_slot"`
	MaxSegmentsPerSlot int     `yaml:"max_segments_per_slot"`
	LowLatencyShare    float64 `yaml:"low_latency_share"` // fraction of samples scored +1
}

// Summarize computes aggregate statistics from a ScoringTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *ScoringTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}

	summary.TotalCheckpoints = len(st.Checkpoints)
	for _, c := range st.Checkpoints {
		summary.TotalNewVotes += c.NewVotes
		summary.TotalLateVotes += c.LateVotes
	}

	if len(st.SlotScores) > 0 {
		totalVoters, low := 0, 0
		for _, s := range st.SlotScores {
			if s.Final {
				summary.FinalizedSlots++
			}
			totalVoters += s.TotalVoters
			low += s.LowLatency
			if len(s.Segments) > summary.MaxSegmentsPerSlot {
				summary.MaxSegmentsPerSlot = len(s.Segments)
			}
		}
		summary.ScoredSlots = len(st.SlotScores)
		summary.MeanVotersPerSlot = float64(totalVoters) / float64(len(st.SlotScores))
		if totalVoters > 0 {
			summary.LowLatencyShare = float64(low) / float64(totalVoters)
		}
	}

	return summary
}
