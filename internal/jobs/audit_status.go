package jobs

import (
	"context"
	"database/sql"

	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/metrics"
	"github.com/Spok95/compliance-audits/internal/models"
)

const AuditStatusGauge = "audit_status_gauge"

// StatusCounter источник количества аудитов по статусам.
type StatusCounter func(ctx context.Context) (map[models.AuditStatus]int, error)

// DBStatusCounter считает по таблице audits.
func DBStatusCounter(database *sql.DB) StatusCounter {
	return func(ctx context.Context) (map[models.AuditStatus]int, error) {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		return db.CountAuditsByStatus(ctx, database)
	}
}

// RefreshAuditStatusGauge выставляет audits_by_status, отсутствующие статусы обнуляются.
func RefreshAuditStatusGauge(count StatusCounter) Job {
	return func(ctx context.Context) error {
		counts, err := count(ctx)
		if err != nil {
			return err
		}
		for _, st := range []models.AuditStatus{
			models.AuditDraft, models.AuditInProgress, models.AuditCompleted,
			models.AuditReviewed, models.AuditArchived,
		} {
			metrics.AuditsByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
		}
		return nil
	}
}
