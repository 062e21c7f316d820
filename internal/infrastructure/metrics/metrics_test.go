package metrics

import (
	"errors"
	"testing"
	"time"

	"vest_orchestrator/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOrchestratorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrchestratorMetrics("vest", reg)

	m.ObserveRemoteCall("membership", "lastIndex", nil)
	m.ObserveRemoteCall("membership", "lastIndex", errors.New("boom"))
	m.ObserveRemoteCall("membership", "lastIndex", nil)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.remoteCallCount.WithLabelValues("membership", "lastIndex", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.remoteCallCount.WithLabelValues("membership", "lastIndex", "error")))

	m.ObserveSync(150*time.Millisecond, &entity.Snapshot{
		Stats:    entity.GlobalStats{TotalMembers: 57},
		Degraded: []entity.DegradedField{entity.DegradedPendingOperations},
	})
	assert.Equal(t, float64(57), testutil.ToFloat64(m.totalMembersGauge))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.degradedFieldCount.WithLabelValues("pendingOperations")))

	m.ObserveTxOutcome(entity.TxOutcome{Kind: entity.TxKindApprove, Skipped: true, Success: true})
	m.ObserveTxOutcome(entity.TxOutcome{Kind: entity.TxKindJoin, ErrorKind: entity.KindInsufficientAllowance})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.txOutcomeCount.WithLabelValues("approve", "skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.txOutcomeCount.WithLabelValues("join", "InsufficientAllowance")))
}
