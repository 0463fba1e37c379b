package audits

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/metrics"
	"github.com/Spok95/compliance-audits/internal/models"
	"github.com/Spok95/compliance-audits/internal/scoring"
)

// CompleteAudit пересчитывает итог по всем сохранённым ответам и закрывает аудит.
// Повторный вызов допустим: итог перечитывается и перезаписывается.
func (s *Service) CompleteAudit(ctx context.Context, orgID, auditID, signature string) (res Result) {
	ctx = scope(ctx, orgID, "complete_audit")
	defer s.recoverInto(ctx, &res, MsgCompleteFailed)
	tags := map[string]string{"audit_id": auditID}

	if orgID == "" {
		return Result{Error: MsgOrganizationEmpty}
	}

	audit, err := s.store.GetAudit(ctx, orgID, auditID)
	switch {
	case isNotFound(err):
		return s.notFound(ctx, MsgAuditNotFound, zap.String("audit_id", auditID))
	case err != nil:
		return s.fail(ctx, MsgCompleteFailed, err, tags)
	}

	tpl, err := s.store.GetTemplateByID(ctx, audit.TemplateID)
	switch {
	case isNotFound(err):
		return s.notFound(ctx, MsgTemplateNotFound, zap.String("template_id", audit.TemplateID))
	case err != nil:
		return s.fail(ctx, MsgCompleteFailed, err, tags)
	}

	responses, err := s.store.ListResponses(ctx, audit.ID)
	if err != nil {
		return s.fail(ctx, MsgCompleteFailed, err, tags)
	}

	sum := scoring.Aggregate(tpl, responses, s.policy.Critical)

	now := s.now()
	c := models.AuditCompletion{
		AuditID:     audit.ID,
		CompletedAt: now,
		TotalScore:  sum.TotalScore,
		MaxScore:    sum.MaxScore,
		Percentage:  sum.Percentage,
		Passed:      sum.Passed,
	}
	if sig := strings.TrimSpace(signature); sig != "" {
		c.Signature = &sig
		c.SignedAt = &now
	}
	if err := s.store.CompleteAudit(ctx, c); err != nil {
		if isNotFound(err) {
			return s.notFound(ctx, MsgAuditNotFound, zap.String("audit_id", auditID))
		}
		return s.fail(ctx, MsgCompleteFailed, err, tags)
	}

	result := "failed"
	if sum.Passed {
		result = "passed"
	}
	metrics.AuditsCompleted.WithLabelValues(result).Inc()
	if sum.ScorePassed && sum.CriticalFailure {
		metrics.CriticalOverrides.Inc()
	}
	logging.WithContext(ctx, s.log).Info("audit completed",
		zap.String("audit_id", audit.ID),
		zap.String("previous_status", string(audit.Status)),
		zap.Float64("total_score", sum.TotalScore),
		zap.Float64("max_score", sum.MaxScore),
		zap.Float64("percentage", sum.Percentage),
		zap.Bool("critical_failure", sum.CriticalFailure),
		zap.Bool("passed", sum.Passed),
		zap.Int("missing_required", len(sum.MissingRequired)),
	)

	passed, pct := sum.Passed, sum.Percentage
	return Result{Success: true, Passed: &passed, Percentage: &pct}
}
