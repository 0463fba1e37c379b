// Package audits граница операций над аудитами: сохранение ответов, завершение,
// шаблоны. Все ошибки здесь превращаются в Result, наружу ничего не летит.
package audits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/metrics"
	"github.com/Spok95/compliance-audits/internal/observability"
	"github.com/Spok95/compliance-audits/internal/scoring"
)

// Тексты ошибок, которые уходят вызывающему.
const (
	MsgAuditNotFound     = "Audit not found"
	MsgQuestionNotFound  = "Question not found"
	MsgTemplateNotFound  = "Template not found"
	MsgInvalidType       = "Invalid question type"
	MsgInvalidValue      = "Invalid numeric value"
	MsgSaveFailed        = "Failed to save response"
	MsgCompleteFailed    = "Failed to complete audit"
	MsgStartFailed       = "Failed to start audit"
	MsgDeleteFailed      = "Failed to delete audit"
	MsgSiteRequired      = "Site is required"
	MsgTemplateInUse     = "Template is used by audits"
	MsgTemplateOutdated  = "Template has a newer version"
	MsgTemplateSave      = "Failed to save template"
	MsgTemplateDelete    = "Failed to delete template"
	MsgTemplateDuplicate = "Failed to duplicate template"
	MsgOrganizationEmpty = "Organization is required"
)

// Result ответ операций SaveResponse/CompleteAudit/Delete*.
type Result struct {
	Success    bool     `json:"success"`
	Passed     *bool    `json:"passed,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type Service struct {
	store  Store
	log    *zap.Logger
	policy scoring.Policy
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithPolicy(p scoring.Policy) Option { return func(s *Service) { s.policy = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(gen func() string) Option { return func(s *Service) { s.newID = gen } }

func New(store Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:  store,
		log:    log,
		policy: scoring.DefaultPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Policy() scoring.Policy { return s.policy }

// notFound ожидаемая ситуация: только лог, без Sentry.
func (s *Service) notFound(ctx context.Context, msg string, fields ...zap.Field) Result {
	logging.WithContext(ctx, s.log).Info(msg, fields...)
	return Result{Error: msg}
}

// fail сбой хранилища или данных: лог, метрика, Sentry.
func (s *Service) fail(ctx context.Context, msg string, err error, tags map[string]string) Result {
	op, _ := ctxutil.Op(ctx)
	fields := []zap.Field{zap.Error(err)}
	for k, v := range tags {
		fields = append(fields, zap.String(k, v))
	}
	logging.WithContext(ctx, s.log).Error(msg, fields...)
	metrics.OperationErrors.WithLabelValues(op).Inc()
	observability.CaptureCtxErr(ctx, err, tags)
	return Result{Error: msg}
}

// recoverInto превращает панику внутри операции в неуспешный Result.
func (s *Service) recoverInto(ctx context.Context, res *Result, msg string) {
	if r := recover(); r != nil {
		*res = s.fail(ctx, msg, fmt.Errorf("panic: %v", r), nil)
	}
}

// recoverAs то же для операций со своим типом результата.
func recoverAs[T any](s *Service, ctx context.Context, res *T, msg string, wrap func(string) T) {
	if r := recover(); r != nil {
		*res = wrap(s.fail(ctx, msg, fmt.Errorf("panic: %v", r), nil).Error)
	}
}

func isNotFound(err error) bool { return errors.Is(err, db.ErrNotFound) }

func scope(ctx context.Context, orgID, op string) context.Context {
	return ctxutil.WithOp(ctxutil.WithOrgID(ctx, orgID), op)
}
