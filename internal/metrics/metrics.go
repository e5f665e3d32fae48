// Package metrics exposes Prometheus collectors for ranking passes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricRankingsTotal         = "match_rankings_total"
	MetricRankingDuration       = "match_ranking_duration_seconds"
	MetricCandidatesScoredTotal = "match_candidates_scored_total"
	MetricScoringFailuresTotal  = "match_scoring_failures_total"
)

// Metrics implements the ranking recorder on top of Prometheus collectors.
// All operations are thread-safe.
type Metrics struct {
	rankings         *prometheus.CounterVec
	rankingDuration  *prometheus.HistogramVec
	candidatesScored *prometheus.CounterVec
	scoringFailures  *prometheus.CounterVec
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		rankings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingsTotal,
				Help: "Total number of ranking passes by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		rankingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankingDuration,
				Help:    "Histogram of ranking pass duration in seconds by kind",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"kind"},
		),
		candidatesScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCandidatesScoredTotal,
				Help: "Total number of candidates scored by kind",
			},
			[]string{"kind"},
		),
		scoringFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricScoringFailuresTotal,
				Help: "Total number of candidates that failed scoring and were scored 0",
			},
			[]string{"kind"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveRanking(kind, status string, elapsed time.Duration) {
	m.rankings.WithLabelValues(kind, status).Inc()
	m.rankingDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) CandidatesScored(kind string, n int) {
	if n <= 0 {
		return
	}
	m.candidatesScored.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ScoringFailed(kind string) {
	m.scoringFailures.WithLabelValues(kind).Inc()
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankings,
		m.rankingDuration,
		m.candidatesScored,
		m.scoringFailures,
	}
}
