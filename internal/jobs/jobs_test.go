package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/compliance-audits/internal/metrics"
	"github.com/Spok95/compliance-audits/internal/models"
)

func TestRefreshAuditStatusGauge(t *testing.T) {
	job := RefreshAuditStatusGauge(func(context.Context) (map[models.AuditStatus]int, error) {
		return map[models.AuditStatus]int{models.AuditInProgress: 4, models.AuditCompleted: 7}, nil
	})
	require.NoError(t, job(context.Background()))

	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.AuditsByStatus.WithLabelValues("in_progress")))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.AuditsByStatus.WithLabelValues("completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.AuditsByStatus.WithLabelValues("archived")))

	failing := RefreshAuditStatusGauge(func(context.Context) (map[models.AuditStatus]int, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, failing(context.Background()))
}

func TestRunner_RunsImmediatelyAndSurvivesPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	New(ctx, nil).Every(10*time.Millisecond, "flaky", func(context.Context) error {
		if calls.Add(1) == 1 {
			panic("first run")
		}
		return nil
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.JobErrors.WithLabelValues("flaky")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("flaky")), 2.0)
}
