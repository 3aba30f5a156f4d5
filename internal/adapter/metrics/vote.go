package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics holds Prometheus metrics for the vote processing pipeline.
type VoteMetrics struct {
	Submissions        *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	AppliedWeight      prometheus.Histogram
	BroadcastFailures  *prometheus.CounterVec
	FollowUpFailures   *prometheus.CounterVec
}

// NewVoteMetrics creates and registers vote pipeline metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_submissions_total",
			Help:      "Total number of vote submissions, by result.",
		}, []string{"result"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_processing_duration_seconds",
			Help:      "Duration of vote submission processing in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		AppliedWeight: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_applied_weight",
			Help:      "Distribution of committed vote weights.",
			Buckets:   []float64{0.25, 0.5, 0.75, 1.0, 1.5, 2.0, 3.0, 4.0, 5.5},
		}),
		BroadcastFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_broadcast_failures_total",
			Help:      "Total number of vote broadcasts that failed or timed out, by reason.",
		}, []string{"reason"}),
		FollowUpFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_followup_failures_total",
			Help:      "Total number of best-effort post-commit writes that failed, by step.",
		}, []string{"step"}),
	}

	reg.MustRegister(m.Submissions, m.ProcessingDuration, m.AppliedWeight, m.BroadcastFailures, m.FollowUpFailures)
	return m
}

// DetectorMetrics holds Prometheus metrics for manipulation detection runs.
type DetectorMetrics struct {
	Runs           prometheus.Counter
	Flags          *prometheus.CounterVec
	SkippedRecords prometheus.Counter
}

// NewDetectorMetrics creates and registers detector metrics on the given registry.
func NewDetectorMetrics(reg prometheus.Registerer) *DetectorMetrics {
	m := &DetectorMetrics{
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "runs_total",
			Help:      "Total number of manipulation detection runs.",
		}),
		Flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "flags_total",
			Help:      "Total number of manipulation flags raised, by kind.",
		}, []string{"kind"}),
		SkippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "skipped_records_total",
			Help:      "Total number of vote records skipped because of missing fields.",
		}),
	}

	reg.MustRegister(m.Runs, m.Flags, m.SkippedRecords)
	return m
}
