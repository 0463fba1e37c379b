package audits

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/metrics"
	"github.com/Spok95/compliance-audits/internal/models"
	"github.com/Spok95/compliance-audits/internal/scoring"
)

// ResponseInput ответ аудитора на один вопрос.
type ResponseInput struct {
	AuditID      string   `json:"auditId"`
	QuestionID   string   `json:"questionId"`
	Value        *string  `json:"value,omitempty"`
	BoolValue    *bool    `json:"boolValue,omitempty"`
	NumericValue *float64 `json:"numericValue,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Flagged      bool     `json:"flagged,omitempty"`
}

// SaveResponse считает баллы ответа и сохраняет его (upsert по аудиту и вопросу).
// Сохранять можно в любом статусе аудита; итог аудита при этом не пересчитывается.
func (s *Service) SaveResponse(ctx context.Context, orgID string, in ResponseInput) (res Result) {
	ctx = scope(ctx, orgID, "save_response")
	defer s.recoverInto(ctx, &res, MsgSaveFailed)
	tags := map[string]string{"audit_id": in.AuditID, "question_id": in.QuestionID}

	if orgID == "" {
		return Result{Error: MsgOrganizationEmpty}
	}

	audit, err := s.store.GetAudit(ctx, orgID, in.AuditID)
	switch {
	case isNotFound(err):
		return s.notFound(ctx, MsgAuditNotFound, zap.String("audit_id", in.AuditID))
	case err != nil:
		return s.fail(ctx, MsgSaveFailed, err, tags)
	}

	tpl, err := s.store.GetTemplateByID(ctx, audit.TemplateID)
	switch {
	case isNotFound(err):
		return s.notFound(ctx, MsgTemplateNotFound, zap.String("template_id", audit.TemplateID))
	case err != nil:
		return s.fail(ctx, MsgSaveFailed, err, tags)
	}

	q, ok := tpl.Question(in.QuestionID)
	if !ok {
		return s.notFound(ctx, MsgQuestionNotFound, zap.String("question_id", in.QuestionID))
	}

	if in.NumericValue != nil && (math.IsNaN(*in.NumericValue) || math.IsInf(*in.NumericValue, 0)) {
		return Result{Error: MsgInvalidValue}
	}

	out, err := scoring.Score(*q, scoring.Input{
		Value:        in.Value,
		BoolValue:    in.BoolValue,
		NumericValue: in.NumericValue,
	}, s.policy)
	if errors.Is(err, scoring.ErrUnknownQuestionType) {
		return s.fail(ctx, MsgInvalidType, err, tags)
	}
	if err != nil {
		return s.fail(ctx, MsgSaveFailed, err, tags)
	}

	r := &models.Response{
		ID:           s.newID(),
		AuditID:      audit.ID,
		QuestionID:   q.ID,
		Value:        in.Value,
		BoolValue:    in.BoolValue,
		NumericValue: in.NumericValue,
		Notes:        in.Notes,
		Flagged:      in.Flagged,
		Score:        out.Score,
		MaxScore:     out.MaxScore,
		Passed:       out.Passed,
	}
	if err := s.store.UpsertResponse(ctx, r); err != nil {
		return s.fail(ctx, MsgSaveFailed, err, tags)
	}

	metrics.ResponsesScored.WithLabelValues(string(q.Type), metrics.Outcome(out.Passed)).Inc()
	logging.WithContext(ctx, s.log).Debug("response saved",
		zap.String("audit_id", audit.ID),
		zap.String("question_id", q.ID),
		zap.Float64("score", out.Score),
		zap.Float64("max_score", out.MaxScore),
		zap.String("outcome", metrics.Outcome(out.Passed)),
	)
	return Result{Success: true, Passed: out.Passed}
}
