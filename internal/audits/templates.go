package audits

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/models"
)

type TemplateResult struct {
	Success    bool   `json:"success"`
	TemplateID string `json:"templateId,omitempty"`
	Version    int    `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ValidateDraft все проблемы черновика разом.
func ValidateDraft(d models.TemplateDraft) error {
	var errs []error
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if d.PassingScore != nil && (!finite(*d.PassingScore) || *d.PassingScore < 0 || *d.PassingScore > 100) {
		errs = append(errs, fmt.Errorf("passingScore must be within 0..100, got %v", *d.PassingScore))
	}
	for si, s := range d.Sections {
		if strings.TrimSpace(s.Title) == "" {
			errs = append(errs, fmt.Errorf("section %d: title is required", si+1))
		}
		if s.Weight != nil && (!finite(*s.Weight) || *s.Weight < 0) {
			errs = append(errs, fmt.Errorf("section %d: weight must be a finite number >= 0, got %v", si+1, *s.Weight))
		}
		for qi, q := range s.Questions {
			where := fmt.Sprintf("section %d question %d", si+1, qi+1)
			if strings.TrimSpace(q.Text) == "" {
				errs = append(errs, fmt.Errorf("%s: text is required", where))
			}
			if _, err := models.ParseQuestionType(string(q.Type)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
			}
			if q.Weight != nil && (!finite(*q.Weight) || *q.Weight < 0) {
				errs = append(errs, fmt.Errorf("%s: weight must be a finite number >= 0, got %v", where, *q.Weight))
			}
			bounds := []struct {
				name string
				v    *float64
			}{{"minValue", q.MinValue}, {"maxValue", q.MaxValue}, {"targetValue", q.TargetValue}}
			badBound := false
			for _, b := range bounds {
				if b.v != nil && !finite(*b.v) {
					errs = append(errs, fmt.Errorf("%s: %s must be a finite number, got %v", where, b.name, *b.v))
					badBound = true
				}
			}
			if !badBound && q.MinValue != nil && q.MaxValue != nil && *q.MinValue > *q.MaxValue {
				errs = append(errs, fmt.Errorf("%s: minValue %v > maxValue %v", where, *q.MinValue, *q.MaxValue))
			}
		}
	}
	return errors.Join(errs...)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// BuildTemplate черновик -> шаблон с новыми ID и значениями по умолчанию.
// Порядок секций и вопросов берётся из позиции в черновике.
func BuildTemplate(orgID string, d models.TemplateDraft, newID func() string) (*models.Template, error) {
	if err := ValidateDraft(d); err != nil {
		return nil, err
	}
	t := &models.Template{
		ID:             newID(),
		OrganizationID: orgID,
		Name:           strings.TrimSpace(d.Name),
		Description:    optString(d.Description),
		Category:       optString(d.Category),
		PassingScore:   valueOr(d.PassingScore, models.DefaultPassingScore),
		Version:        1,
		IsPublished:    d.IsPublished,
	}
	for si, sd := range d.Sections {
		sec := models.Section{
			ID:          newID(),
			TemplateID:  t.ID,
			Title:       strings.TrimSpace(sd.Title),
			Description: optString(sd.Description),
			Order:       si,
			Weight:      valueOr(sd.Weight, 1),
		}
		for qi, qd := range sd.Questions {
			typ, _ := models.ParseQuestionType(string(qd.Type))
			required := true
			if qd.IsRequired != nil {
				required = *qd.IsRequired
			}
			sec.Questions = append(sec.Questions, models.Question{
				ID:          newID(),
				SectionID:   sec.ID,
				Text:        strings.TrimSpace(qd.Text),
				Description: optString(qd.Description),
				Type:        typ,
				IsRequired:  required,
				IsCritical:  qd.IsCritical,
				Order:       qi,
				Weight:      valueOr(qd.Weight, models.DefaultQuestionWeight),
				MinValue:    qd.MinValue,
				MaxValue:    qd.MaxValue,
				TargetValue: qd.TargetValue,
				Unit:        optString(qd.Unit),
				Options:     qd.Options,
			})
		}
		t.Sections = append(t.Sections, sec)
	}
	return t, nil
}

func (s *Service) CreateTemplate(ctx context.Context, orgID string, d models.TemplateDraft) (res TemplateResult) {
	ctx = scope(ctx, orgID, "create_template")
	defer recoverAs(s, ctx, &res, MsgTemplateSave, templateFailed)
	if orgID == "" {
		return TemplateResult{Error: MsgOrganizationEmpty}
	}
	t, err := BuildTemplate(orgID, d, s.newID)
	if err != nil {
		return TemplateResult{Error: err.Error()}
	}
	if err := s.store.InsertTemplate(ctx, t); err != nil {
		return TemplateResult{Error: s.fail(ctx, MsgTemplateSave, err, nil).Error}
	}
	logging.WithContext(ctx, s.log).Info("template created",
		zap.String("template_id", t.ID), zap.Int("questions", len(t.Questions())))
	return TemplateResult{Success: true, TemplateID: t.ID, Version: t.Version}
}

// UpdateTemplate не меняет существующий шаблон: создаёт следующую версию,
// аудиты на старой версии продолжают считаться по своим вопросам.
func (s *Service) UpdateTemplate(ctx context.Context, orgID, id string, d models.TemplateDraft) (res TemplateResult) {
	ctx = scope(ctx, orgID, "update_template")
	defer recoverAs(s, ctx, &res, MsgTemplateSave, templateFailed)
	cur, err := s.store.GetTemplate(ctx, orgID, id)
	switch {
	case isNotFound(err):
		return TemplateResult{Error: s.notFound(ctx, MsgTemplateNotFound, zap.String("template_id", id)).Error}
	case err != nil:
		return TemplateResult{Error: s.fail(ctx, MsgTemplateSave, err, map[string]string{"template_id": id}).Error}
	}

	next, err := BuildTemplate(orgID, d, s.newID)
	if err != nil {
		return TemplateResult{Error: err.Error()}
	}
	next.Version = cur.Version + 1
	next.PreviousID = &cur.ID

	if err := s.store.InsertTemplate(ctx, next); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return TemplateResult{Error: MsgTemplateOutdated}
		}
		return TemplateResult{Error: s.fail(ctx, MsgTemplateSave, err, map[string]string{"template_id": id}).Error}
	}
	logging.WithContext(ctx, s.log).Info("template versioned",
		zap.String("previous_id", cur.ID), zap.String("template_id", next.ID), zap.Int("version", next.Version))
	return TemplateResult{Success: true, TemplateID: next.ID, Version: next.Version}
}

// DuplicateTemplate копия шаблона организации под именем "<name> (Copy)":
// новые ID, версия 1, без связи с исходником, не опубликована.
func (s *Service) DuplicateTemplate(ctx context.Context, orgID, id string) (res TemplateResult) {
	ctx = scope(ctx, orgID, "duplicate_template")
	defer recoverAs(s, ctx, &res, MsgTemplateDuplicate, templateFailed)

	src, err := s.store.GetTemplate(ctx, orgID, id)
	switch {
	case isNotFound(err):
		return TemplateResult{Error: s.notFound(ctx, MsgTemplateNotFound, zap.String("template_id", id)).Error}
	case err != nil:
		return TemplateResult{Error: s.fail(ctx, MsgTemplateDuplicate, err, map[string]string{"template_id": id}).Error}
	}

	d := DraftFromTemplate(src)
	d.Name = src.Name + " (Copy)"
	d.IsPublished = false
	cp, err := BuildTemplate(orgID, d, s.newID)
	if err != nil {
		return TemplateResult{Error: s.fail(ctx, MsgTemplateDuplicate, err, map[string]string{"template_id": id}).Error}
	}
	if err := s.store.InsertTemplate(ctx, cp); err != nil {
		return TemplateResult{Error: s.fail(ctx, MsgTemplateDuplicate, err, map[string]string{"template_id": id}).Error}
	}
	logging.WithContext(ctx, s.log).Info("template duplicated",
		zap.String("source_id", src.ID), zap.String("template_id", cp.ID))
	return TemplateResult{Success: true, TemplateID: cp.ID, Version: cp.Version}
}

// DraftFromTemplate обратное BuildTemplate: черновик с теми же секциями и вопросами.
func DraftFromTemplate(t *models.Template) models.TemplateDraft {
	d := models.TemplateDraft{
		Name:         t.Name,
		Description:  deref(t.Description),
		Category:     deref(t.Category),
		PassingScore: &t.PassingScore,
		IsPublished:  t.IsPublished,
	}
	for _, sec := range t.Sections {
		sd := models.SectionDraft{
			Title:       sec.Title,
			Description: deref(sec.Description),
			Weight:      &sec.Weight,
		}
		for _, q := range sec.Questions {
			required := q.IsRequired
			weight := q.Weight
			sd.Questions = append(sd.Questions, models.QuestionDraft{
				Text:        q.Text,
				Description: deref(q.Description),
				Type:        q.Type,
				IsRequired:  &required,
				IsCritical:  q.IsCritical,
				Weight:      &weight,
				MinValue:    q.MinValue,
				MaxValue:    q.MaxValue,
				TargetValue: q.TargetValue,
				Unit:        deref(q.Unit),
				Options:     append([]string(nil), q.Options...),
			})
		}
		d.Sections = append(d.Sections, sd)
	}
	return d
}

func (s *Service) GetTemplate(ctx context.Context, orgID, id string) (*models.Template, error) {
	return s.store.GetTemplate(scope(ctx, orgID, "get_template"), orgID, id)
}

func (s *Service) ListTemplates(ctx context.Context, orgID string) ([]models.TemplateSummary, error) {
	return s.store.ListTemplates(scope(ctx, orgID, "list_templates"), orgID)
}

func (s *Service) DeleteTemplate(ctx context.Context, orgID, id string) (res Result) {
	ctx = scope(ctx, orgID, "delete_template")
	defer s.recoverInto(ctx, &res, MsgTemplateDelete)
	err := s.store.DeleteTemplate(ctx, orgID, id)
	switch {
	case err == nil:
		return Result{Success: true}
	case isNotFound(err):
		return s.notFound(ctx, MsgTemplateNotFound, zap.String("template_id", id))
	case errors.Is(err, db.ErrConflict):
		return Result{Error: MsgTemplateInUse}
	}
	return s.fail(ctx, MsgTemplateDelete, err, map[string]string{"template_id": id})
}

func templateFailed(msg string) TemplateResult { return TemplateResult{Error: msg} }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
