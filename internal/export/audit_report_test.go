package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/models"
	"github.com/Spok95/compliance-audits/internal/scoring"
)

func sampleReport() *audits.Report {
	yes, no := true, false
	notes := "seal broken"
	completed := time.Date(2026, 5, 2, 16, 0, 0, 0, time.UTC)
	tpl := models.Template{
		ID: "t1", Name: "Food Safety", PassingScore: 80, Version: 2,
		Sections: []models.Section{{
			ID: "s1", Title: "Storage",
			Questions: []models.Question{
				{ID: "q1", Text: "Fridge closed", Type: models.QuestionYesNo, Weight: 1, IsRequired: true},
				{ID: "q2", Text: "Labels", Type: models.QuestionYesNo, Weight: 1, IsRequired: true},
				{ID: "q3", Text: "Comments", Type: models.QuestionText, Weight: 1},
			},
		}},
	}
	responses := []models.Response{
		{ID: "r1", QuestionID: "q1", BoolValue: &yes, Score: 1, MaxScore: 1, Passed: &yes},
		{ID: "r2", QuestionID: "q2", BoolValue: &no, Score: 0, MaxScore: 1, Passed: &no, Flagged: true, Notes: &notes},
	}
	return &audits.Report{
		Audit: models.Audit{
			ID: "a1", SiteID: "Kitchen/North", AuditorID: "u1",
			Status: models.AuditCompleted, CompletedAt: &completed,
		},
		Template:  tpl,
		Responses: responses,
		Summary:   scoring.Aggregate(&tpl, responses, scoring.CriticalFlagged),
	}
}

func TestAuditReportExcel(t *testing.T) {
	buf, err := AuditReportExcel(sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetSummary, SheetSections, SheetResponses}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	values := map[string]string{}
	for _, row := range summary[1:] {
		values[row[0]] = row[1]
	}
	assert.Equal(t, "Food Safety (v2)", values["Template"])
	assert.Equal(t, "50", values["Percentage"])
	assert.Equal(t, "yes", values["Critical failure"])
	assert.Equal(t, "FAIL", values["Result"])

	responses, err := f.GetRows(SheetResponses)
	require.NoError(t, err)
	require.Len(t, responses, 4)
	assert.Equal(t, "FAIL", responses[2][6])
	assert.Equal(t, "seal broken", responses[2][10])
	assert.Equal(t, "not answered", responses[3][6])
}

func TestBuildAuditReportFilename(t *testing.T) {
	assert.Equal(t, "Audit report - Food Safety - Kitchen_North - 2026-05-02.xlsx",
		AuditReportFilename(sampleReport()))
	assert.Equal(t, "Audit report - - - x - -.xlsx", BuildAuditReportFilename(" ", "x", ""))
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", columnName(1))
	assert.Equal(t, "Z", columnName(26))
	assert.Equal(t, "AA", columnName(27))
}
