package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GroupBuyMetrics records join/accept workflow outcomes.
type GroupBuyMetrics struct {
	joinDuration *prometheus.HistogramVec
	joinOutcomes *prometheus.CounterVec
	txRetries    prometheus.Counter
	transitions  *prometheus.CounterVec
}

// NewGroupBuyMetrics registers the group-buy metrics on the provided registerer.
func NewGroupBuyMetrics(reg prometheus.Registerer) *GroupBuyMetrics {
	if reg == nil {
		return &GroupBuyMetrics{}
	}
	joinDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "group_buy_join_duration_seconds",
		Help:    "Duration of join transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	joinOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "group_buy_join_total",
		Help: "Join attempts partitioned by outcome.",
	}, []string{"outcome"})
	txRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "group_buy_join_tx_retries_total",
		Help: "Join transactions replayed after a serialization conflict.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "group_buy_status_transitions_total",
		Help: "Lifecycle transitions partitioned by target status.",
	}, []string{"to"})
	reg.MustRegister(joinDuration, joinOutcomes, txRetries, transitions)
	return &GroupBuyMetrics{
		joinDuration: joinDuration,
		joinOutcomes: joinOutcomes,
		txRetries:    txRetries,
		transitions:  transitions,
	}
}

// ObserveJoin records one join attempt with its outcome label.
func (m *GroupBuyMetrics) ObserveJoin(outcome string, duration time.Duration) {
	if m == nil || m.joinDuration == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.joinDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.joinOutcomes.WithLabelValues(label).Inc()
}

// IncTxRetry counts a join transaction replay.
func (m *GroupBuyMetrics) IncTxRetry() {
	if m == nil || m.txRetries == nil {
		return
	}
	m.txRetries.Inc()
}

// IncTransition counts a lifecycle transition into the given status.
func (m *GroupBuyMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
