// Tracks scoring-run counters such as checkpoints applied, late votes discarded and
// slots scored, exported through a Prometheus registry.

package scoring

import "github.com/prometheus/client_golang/prometheus"

// Metrics aggregates counters about a scoring run. A nil *Metrics records nothing.
type Metrics struct {
	Checkpoints    prometheus.Counter // checkpoints applied to the latency tracker
	ChangedVoters  prometheus.Counter // vote accounts whose fingerprint changed at a checkpoint
	LateVotes      prometheus.Counter // votes discarded for arriving after MaxVoteDelay
	ScoredSlots    prometheus.Counter // slots whose segments have been scored
	LatencySamples *prometheus.CounterVec
	Winners        *prometheus.GaugeVec // ranked validators per category
}

// NewMetrics creates the scoring metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "validator_sim",
			Name:      "checkpoints_total",
			Help:      "Checkpoints applied to the latency tracker.",
		}),
		ChangedVoters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "validator_sim",
			Name:      "changed_voters_total",
			Help:      "Vote accounts observed with a new fingerprint.",
		}),
		LateVotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "validator_sim",
			Name:      "late_votes_total",
			Help:      "Votes discarded because they landed more than the maximum vote delay late.",
		}),
		ScoredSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "validator_sim",
			Name:      "scored_slots_total",
			Help:      "Slots whose vote segments have been scored.",
		}),
		LatencySamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "validator_sim",
			Name:      "latency_samples_total",
			Help:      "Latency score adjustments by outcome.",
		}, []string{"outcome"}),
		Winners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "validator_sim",
			Name:      "ranked_validators",
			Help:      "Validators ranked per category.",
		}, []string{"category"}),
	}
	reg.MustRegister(m.Checkpoints, m.ChangedVoters, m.LateVotes, m.ScoredSlots, m.LatencySamples, m.Winners)
	return m
}

func (m *Metrics) checkpoint(changed, late int) {
	if m == nil {
		return
	}
	m.Checkpoints.Inc()
	m.ChangedVoters.Add(float64(changed))
	m.LateVotes.Add(float64(late))
}

func (m *Metrics) scoredSlot(low, high int) {
	if m == nil {
		return
	}
	m.ScoredSlots.Inc()
	m.LatencySamples.WithLabelValues("low").Add(float64(low))
	m.LatencySamples.WithLabelValues("high").Add(float64(high))
}

func (m *Metrics) ranked(category Category, n int) {
	if m == nil {
		return
	}
	m.Winners.WithLabelValues(string(category)).Set(float64(n))
}
