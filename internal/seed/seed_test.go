package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/models"
)

func TestLibrary(t *testing.T) {
	drafts, err := Library()
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	d := drafts[0]
	assert.Equal(t, "Food Safety Audit", d.Name)
	require.Len(t, d.Sections, 6)
	assert.Equal(t, 80.0, *d.PassingScore)

	temp := d.Sections[1]
	assert.Equal(t, 2.0, *temp.Weight)
	fridge := temp.Questions[0]
	assert.Equal(t, models.QuestionNumeric, fridge.Type)
	assert.True(t, fridge.IsCritical)
	assert.Equal(t, -2.0, *fridge.MinValue)
	assert.Equal(t, 8.0, *fridge.MaxValue)
	assert.Equal(t, "°C", fridge.Unit)

	photo := temp.Questions[5]
	assert.Equal(t, 0.0, *photo.Weight)
	assert.False(t, *photo.IsRequired)
}

func TestLoadTemplates_MultiDocument(t *testing.T) {
	src := `
name: A
sections:
  - title: S
    questions:
      - text: q
        type: yes_no
---
name: B
sections: []
`
	drafts, err := LoadTemplates(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "B", drafts[1].Name)
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := LoadTemplates(strings.NewReader("name: A\nsections: []\npassing: 10\n"))
	assert.ErrorContains(t, err, "template #1")

	_, err = LoadTemplates(strings.NewReader("name: A\nsections:\n  - title: S\n    questions:\n      - text: q\n        type: slider\n"))
	assert.ErrorContains(t, err, "unknown question type")

	_, err = LoadTemplates(strings.NewReader(`
name: A
sections:
  - title: S
    questions:
      - text: q
        type: numeric
        weight: .inf
        minValue: .nan
        maxValue: 5
`))
	assert.ErrorContains(t, err, "weight must be a finite number")
	assert.ErrorContains(t, err, "minValue must be a finite number")
}

type fakeTemplates struct {
	existing []models.TemplateSummary
	created  []string
}

func (f *fakeTemplates) ListTemplates(context.Context, string) ([]models.TemplateSummary, error) {
	return f.existing, nil
}

func (f *fakeTemplates) CreateTemplate(_ context.Context, _ string, d models.TemplateDraft) audits.TemplateResult {
	f.created = append(f.created, d.Name)
	return audits.TemplateResult{Success: true, TemplateID: "t-" + d.Name, Version: 1}
}

func TestSeedTemplates_SkipsExisting(t *testing.T) {
	svc := &fakeTemplates{existing: []models.TemplateSummary{{Name: "food safety audit"}}}
	drafts := []models.TemplateDraft{{Name: "Food Safety Audit"}, {Name: "Health & Safety"}, {Name: "health & safety "}}

	n, err := SeedTemplates(context.Background(), svc, nil, "org-1", drafts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Health & Safety"}, svc.created)
}
