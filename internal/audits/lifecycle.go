package audits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/models"
	"github.com/Spok95/compliance-audits/internal/scoring"
)

type StartInput struct {
	TemplateID   string     `json:"templateId"`
	SiteID       string     `json:"siteId"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
}

type StartResult struct {
	Success bool   `json:"success"`
	AuditID string `json:"auditId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StartAudit открывает аудит по шаблону организации сразу в статусе in_progress.
func (s *Service) StartAudit(ctx context.Context, orgID, auditorID string, in StartInput) (res StartResult) {
	ctx = scope(ctx, orgID, "start_audit")
	defer recoverAs(s, ctx, &res, MsgStartFailed, func(msg string) StartResult { return StartResult{Error: msg} })
	if orgID == "" {
		return StartResult{Error: MsgOrganizationEmpty}
	}
	if strings.TrimSpace(in.SiteID) == "" {
		return StartResult{Error: MsgSiteRequired}
	}

	tpl, err := s.store.GetTemplate(ctx, orgID, in.TemplateID)
	switch {
	case isNotFound(err):
		return StartResult{Error: s.notFound(ctx, MsgTemplateNotFound, zap.String("template_id", in.TemplateID)).Error}
	case err != nil:
		return StartResult{Error: s.fail(ctx, MsgStartFailed, err, map[string]string{"template_id": in.TemplateID}).Error}
	}

	now := s.now()
	a := &models.Audit{
		ID:             s.newID(),
		OrganizationID: orgID,
		TemplateID:     tpl.ID,
		SiteID:         strings.TrimSpace(in.SiteID),
		AuditorID:      auditorID,
		Status:         models.AuditInProgress,
		ScheduledFor:   in.ScheduledFor,
		StartedAt:      &now,
	}
	if err := s.store.InsertAudit(ctx, a); err != nil {
		return StartResult{Error: s.fail(ctx, MsgStartFailed, err, map[string]string{"template_id": tpl.ID}).Error}
	}
	logging.WithContext(ctx, s.log).Info("audit started",
		zap.String("audit_id", a.ID), zap.String("template_id", tpl.ID), zap.String("site_id", a.SiteID))
	return StartResult{Success: true, AuditID: a.ID}
}

// GetAudit аудит организации; ошибка "не найдено" оборачивает db.ErrNotFound.
func (s *Service) GetAudit(ctx context.Context, orgID, auditID string) (*models.Audit, error) {
	return s.store.GetAudit(scope(ctx, orgID, "get_audit"), orgID, auditID)
}

func (s *Service) ListAudits(ctx context.Context, orgID string, f models.AuditFilter) ([]models.Audit, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("unknown audit status %q", st)
		}
	}
	return s.store.ListAudits(scope(ctx, orgID, "list_audits"), orgID, f)
}

// DeleteAudit удаляет аудит вместе с ответами.
func (s *Service) DeleteAudit(ctx context.Context, orgID, auditID string) (res Result) {
	ctx = scope(ctx, orgID, "delete_audit")
	defer s.recoverInto(ctx, &res, MsgDeleteFailed)
	err := s.store.DeleteAudit(ctx, orgID, auditID)
	switch {
	case isNotFound(err):
		return s.notFound(ctx, MsgAuditNotFound, zap.String("audit_id", auditID))
	case err != nil:
		return s.fail(ctx, MsgDeleteFailed, err, map[string]string{"audit_id": auditID})
	}
	return Result{Success: true}
}

func (s *Service) Stats(ctx context.Context, orgID string) (models.AuditStats, error) {
	return s.store.AuditStats(scope(ctx, orgID, "audit_stats"), orgID)
}

// Report аудит со всем, что нужно для отчёта и выгрузки.
// Summary считается по текущим ответам, сохранённый итог лежит в Audit.
type Report struct {
	Audit     models.Audit      `json:"audit"`
	Template  models.Template   `json:"template"`
	Responses []models.Response `json:"responses"`
	Summary   scoring.Summary   `json:"summary"`
}

// ResponseFor ответ на вопрос, если он есть.
func (r *Report) ResponseFor(questionID string) (*models.Response, bool) {
	for i := range r.Responses {
		if r.Responses[i].QuestionID == questionID {
			return &r.Responses[i], true
		}
	}
	return nil, false
}

// Report собирает отчёт; ошибка "не найдено" оборачивает db.ErrNotFound.
func (s *Service) Report(ctx context.Context, orgID, auditID string) (*Report, error) {
	ctx = scope(ctx, orgID, "audit_report")
	audit, err := s.store.GetAudit(ctx, orgID, auditID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.GetTemplateByID(ctx, audit.TemplateID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, audit.ID)
	if err != nil {
		return nil, err
	}
	return &Report{
		Audit:     *audit,
		Template:  *tpl,
		Responses: responses,
		Summary:   scoring.Aggregate(tpl, responses, s.policy.Critical),
	}, nil
}
