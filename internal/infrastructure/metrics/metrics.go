package metrics

import (
	"fmt"
	"time"

	"vest_orchestrator/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type OrchestratorMetrics struct {
	remoteCallCount    *prometheus.CounterVec
	txOutcomeCount     *prometheus.CounterVec
	degradedFieldCount *prometheus.CounterVec
	syncDuration       prometheus.Histogram
	totalMembersGauge  prometheus.Gauge
}

// NewOrchestratorMetrics registers the collectors with reg. A nil reg uses
// the default registerer.
func NewOrchestratorMetrics(namespace string, reg prometheus.Registerer) *OrchestratorMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := OrchestratorMetrics{
		remoteCallCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_remote_call_count", namespace),
			Help: "Contract calls made against the ledger endpoint",
		}, []string{"contract", "method", "result"}),
		txOutcomeCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_tx_outcome_count", namespace),
			Help: "Orchestrated operations by kind and outcome",
		}, []string{"kind", "result"}),
		degradedFieldCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_sync_degraded_field_count", namespace),
			Help: "Snapshot fields that fell back to a default",
		}, []string{"field"}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_sync_duration_seconds", namespace),
			Help:    "Duration of a full membership sync",
			Buckets: prometheus.DefBuckets,
		}),
		totalMembersGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_total_members", namespace),
			Help: "The latest known member count",
		}),
	}
	return &m
}

// ObserveRemoteCall implements gateway.CallObserver.
func (metrics *OrchestratorMetrics) ObserveRemoteCall(contract, method string, err error) {
	metrics.remoteCallCount.WithLabelValues(contract, method, resultLabel(err == nil)).Inc()
}

func (metrics *OrchestratorMetrics) ObserveSync(elapsed time.Duration, snapshot *entity.Snapshot) {
	metrics.syncDuration.Observe(elapsed.Seconds())
	if snapshot == nil {
		return
	}
	metrics.totalMembersGauge.Set(float64(snapshot.Stats.TotalMembers))
	for _, field := range snapshot.Degraded {
		metrics.degradedFieldCount.WithLabelValues(string(field)).Inc()
	}
}

func (metrics *OrchestratorMetrics) ObserveTxOutcome(outcome entity.TxOutcome) {
	result := resultLabel(outcome.Success)
	if outcome.Skipped {
		result = "skipped"
	} else if outcome.ErrorKind != "" {
		result = string(outcome.ErrorKind)
	}
	metrics.txOutcomeCount.WithLabelValues(string(outcome.Kind), result).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
