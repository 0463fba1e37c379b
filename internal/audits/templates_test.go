package audits

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/compliance-audits/internal/models"
)

func draft() models.TemplateDraft {
	req := false
	return models.TemplateDraft{
		Name: " Kitchen check ",
		Sections: []models.SectionDraft{
			{Title: "Storage", Questions: []models.QuestionDraft{
				{Text: "Fridge below 5C?", Type: "NUMERIC", MaxValue: f64(5), Unit: "C"},
				{Text: "Labels present", Type: models.QuestionYesNo, IsRequired: &req, IsCritical: true},
			}},
			{Title: "Staff", Questions: []models.QuestionDraft{
				{Text: "Hygiene rating", Type: models.QuestionRating, Weight: f64(3)},
			}},
		},
	}
}

func TestBuildTemplate_Defaults(t *testing.T) {
	tpl, err := BuildTemplate(org, draft(), seqIDs())
	require.NoError(t, err)

	assert.Equal(t, "id-1", tpl.ID)
	assert.Equal(t, "Kitchen check", tpl.Name)
	assert.Equal(t, models.DefaultPassingScore, tpl.PassingScore)
	assert.Equal(t, 1, tpl.Version)
	require.Len(t, tpl.Sections, 2)
	assert.Equal(t, 1, tpl.Sections[1].Order)

	qs := tpl.Questions()
	require.Len(t, qs, 3)
	assert.Equal(t, models.QuestionNumeric, qs[0].Type)
	assert.True(t, qs[0].IsRequired)
	assert.Equal(t, models.DefaultQuestionWeight, qs[0].Weight)
	assert.Equal(t, "C", *qs[0].Unit)
	assert.False(t, qs[1].IsRequired)
	assert.True(t, qs[1].IsCritical)
	assert.Equal(t, 3.0, qs[2].Weight)
	assert.Equal(t, tpl.Sections[1].ID, qs[2].SectionID)
}

func TestValidateDraft_CollectsAllProblems(t *testing.T) {
	d := models.TemplateDraft{
		PassingScore: f64(120),
		Sections: []models.SectionDraft{{
			Questions: []models.QuestionDraft{
				{Text: "x", Type: "checkbox"},
				{Text: "y", Type: models.QuestionNumeric, MinValue: f64(10), MaxValue: f64(1), Weight: f64(-1)},
			},
		}},
	}
	err := ValidateDraft(d)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"name is required",
		"passingScore",
		"section 1: title is required",
		"section 1 question 1",
		"section 1 question 2: weight",
		"minValue 10 > maxValue 1",
	} {
		assert.Contains(t, msg, want)
	}

	assert.NoError(t, ValidateDraft(draft()))
}

func TestCreateTemplate(t *testing.T) {
	st := newMemStore()
	svc := New(st, nil, WithIDGenerator(seqIDs()))

	res := svc.CreateTemplate(context.Background(), org, draft())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Version)
	require.Contains(t, st.templates, res.TemplateID)

	res = svc.CreateTemplate(context.Background(), org, models.TemplateDraft{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "name is required")

	res = svc.CreateTemplate(context.Background(), "", draft())
	assert.Equal(t, MsgOrganizationEmpty, res.Error)
}

func TestUpdateTemplate_CreatesNewVersion(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.save(t, ResponseInput{QuestionID: "q1", BoolValue: bp(true)}).Success)

	res := f.svc.UpdateTemplate(context.Background(), org, "t1", draft())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Version)

	next := f.store.templates[res.TemplateID]
	require.NotNil(t, next.PreviousID)
	assert.Equal(t, "t1", *next.PreviousID)

	// старый аудит по-прежнему считается по своей версии
	res2 := f.svc.CompleteAudit(context.Background(), org, "a1", "")
	require.True(t, res2.Success)
	assert.Equal(t, 100.0, *res2.Percentage)

	// вторая правка той же версии проигрывает
	res = f.svc.UpdateTemplate(context.Background(), org, "t1", draft())
	assert.Equal(t, MsgTemplateOutdated, res.Error)

	res = f.svc.UpdateTemplate(context.Background(), "org-2", "t1", draft())
	assert.Equal(t, MsgTemplateNotFound, res.Error)
}

func TestDeleteTemplate(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, MsgTemplateInUse, f.svc.DeleteTemplate(context.Background(), org, "t1").Error)

	require.True(t, f.svc.DeleteAudit(context.Background(), org, "a1").Success)
	assert.True(t, f.svc.DeleteTemplate(context.Background(), org, "t1").Success)
	assert.Equal(t, MsgTemplateNotFound, f.svc.DeleteTemplate(context.Background(), org, "t1").Error)
}

func TestValidateDraft_RejectsNonFinite(t *testing.T) {
	inf, nan := math.Inf(1), math.NaN()
	tests := []struct {
		name   string
		mutate func(d *models.TemplateDraft)
		want   string
	}{
		{"passing score NaN", func(d *models.TemplateDraft) { d.PassingScore = &nan }, "passingScore"},
		{"section weight NaN", func(d *models.TemplateDraft) { d.Sections[0].Weight = &nan }, "section 1: weight"},
		{"section weight Inf", func(d *models.TemplateDraft) { d.Sections[0].Weight = &inf }, "section 1: weight"},
		{"question weight Inf", func(d *models.TemplateDraft) { d.Sections[0].Questions[1].Weight = &inf }, "section 1 question 2: weight"},
		{"min NaN", func(d *models.TemplateDraft) { d.Sections[0].Questions[0].MinValue = &nan }, "minValue must be a finite number"},
		{"max -Inf", func(d *models.TemplateDraft) { v := math.Inf(-1); d.Sections[0].Questions[0].MaxValue = &v }, "maxValue must be a finite number"},
		{"target Inf", func(d *models.TemplateDraft) { d.Sections[0].Questions[0].TargetValue = &inf }, "targetValue must be a finite number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := draft()
			tt.mutate(&d)
			err := ValidateDraft(d)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadedInfiniteWeightNeverReachesCompletion(t *testing.T) {
	st := newMemStore()
	svc := New(st, nil, WithIDGenerator(seqIDs()))
	d := draft()
	inf := math.Inf(1)
	d.Sections[0].Questions[1].Weight = &inf

	res := svc.CreateTemplate(context.Background(), org, d)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "weight must be a finite number")
	assert.Empty(t, st.templates)
}

func TestDuplicateTemplate(t *testing.T) {
	f := newFixture(t,
		models.Question{ID: "q1", Text: "Temp", Type: models.QuestionNumeric, Weight: 2, MinValue: f64(0), MaxValue: f64(5), IsRequired: true},
		models.Question{ID: "q2", Text: "Labels", Type: models.QuestionYesNo, Weight: 1, IsCritical: true},
	)
	src := f.store.templates["t1"]
	src.IsPublished = true
	src.Version = 3

	res := f.svc.DuplicateTemplate(context.Background(), org, "t1")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Version)

	cp := f.store.templates[res.TemplateID]
	require.NotNil(t, cp)
	assert.NotEqual(t, "t1", cp.ID)
	assert.Equal(t, "Food Safety (Copy)", cp.Name)
	assert.Equal(t, org, cp.OrganizationID)
	assert.Equal(t, 80.0, cp.PassingScore)
	assert.Nil(t, cp.PreviousID)
	assert.False(t, cp.IsPublished)

	require.Len(t, cp.Sections, 1)
	assert.Equal(t, "Hygiene", cp.Sections[0].Title)
	assert.Equal(t, cp.ID, cp.Sections[0].TemplateID)
	qs := cp.Questions()
	require.Len(t, qs, 2)
	assert.NotEqual(t, "q1", qs[0].ID)
	assert.Equal(t, cp.Sections[0].ID, qs[0].SectionID)
	assert.Equal(t, models.QuestionNumeric, qs[0].Type)
	assert.Equal(t, 2.0, qs[0].Weight)
	assert.Equal(t, 5.0, *qs[0].MaxValue)
	assert.True(t, qs[1].IsCritical)
	assert.False(t, qs[1].IsRequired)

	// исходник не тронут, копию можно дублировать дальше
	assert.Equal(t, "Food Safety", f.store.templates["t1"].Name)
	res = f.svc.DuplicateTemplate(context.Background(), org, cp.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Food Safety (Copy) (Copy)", f.store.templates[res.TemplateID].Name)
}

func TestDuplicateTemplate_NotFound(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, MsgTemplateNotFound, f.svc.DuplicateTemplate(context.Background(), "org-2", "t1").Error)
	assert.Equal(t, MsgTemplateNotFound, f.svc.DuplicateTemplate(context.Background(), org, "missing").Error)

	f.store.errs["InsertTemplate"] = errors.New("disk full")
	assert.Equal(t, MsgTemplateDuplicate, f.svc.DuplicateTemplate(context.Background(), org, "t1").Error)
}

func TestOperations_PanicBecomesFailure(t *testing.T) {
	tests := []struct {
		name   string
		method string
		run    func(f *fixture) (bool, string)
		want   string
	}{
		{"start audit", "GetTemplate", func(f *fixture) (bool, string) {
			r := f.svc.StartAudit(context.Background(), org, "u1", StartInput{TemplateID: "t1", SiteID: "s"})
			return r.Success, r.Error
		}, MsgStartFailed},
		{"delete audit", "DeleteAudit", func(f *fixture) (bool, string) {
			r := f.svc.DeleteAudit(context.Background(), org, "a1")
			return r.Success, r.Error
		}, MsgDeleteFailed},
		{"create template", "InsertTemplate", func(f *fixture) (bool, string) {
			r := f.svc.CreateTemplate(context.Background(), org, draft())
			return r.Success, r.Error
		}, MsgTemplateSave},
		{"update template", "GetTemplate", func(f *fixture) (bool, string) {
			r := f.svc.UpdateTemplate(context.Background(), org, "t1", draft())
			return r.Success, r.Error
		}, MsgTemplateSave},
		{"duplicate template", "GetTemplate", func(f *fixture) (bool, string) {
			r := f.svc.DuplicateTemplate(context.Background(), org, "t1")
			return r.Success, r.Error
		}, MsgTemplateDuplicate},
		{"delete template", "DeleteTemplate", func(f *fixture) (bool, string) {
			r := f.svc.DeleteTemplate(context.Background(), org, "t1")
			return r.Success, r.Error
		}, MsgTemplateDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.panics[tt.method] = true

			var (
				ok  bool
				msg string
			)
			assert.NotPanics(t, func() { ok, msg = tt.run(f) })
			assert.False(t, ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}
