package export

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/models"
)

const (
	SheetSummary   = "Summary"
	SheetSections  = "Sections"
	SheetResponses = "Responses"
)

// Location часовой пояс для дат в отчёте.
var Location = time.UTC

// sheetSpec один лист: шапка и строки.
type sheetSpec struct {
	Title  string
	Header []string
	Rows   [][]any
}

// AuditReportExcel собирает книгу отчёта по аудиту: сводка, секции, ответы.
func AuditReportExcel(rep *audits.Report) (*bytes.Buffer, error) {
	if rep == nil {
		return nil, fmt.Errorf("audit report is nil")
	}
	f, err := newWorkbook([]sheetSpec{
		summarySheet(rep),
		sectionsSheet(rep),
		responsesSheet(rep),
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// AuditReportFilename имя файла для конкретного отчёта.
func AuditReportFilename(rep *audits.Report) string {
	date := "draft"
	if rep.Audit.CompletedAt != nil {
		date = rep.Audit.CompletedAt.In(Location).Format("2006-01-02")
	}
	return BuildAuditReportFilename(rep.Template.Name, rep.Audit.SiteID, date)
}

func newWorkbook(sheets []sheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.Title, err)
		}

		header := make([]any, len(s.Header))
		for c, h := range s.Header {
			header[c] = h
		}
		if err := f.SetSheetRow(s.Title, "A1", &header); err != nil {
			return nil, fmt.Errorf("%s header: %w", s.Title, err)
		}
		for r, row := range s.Rows {
			cell := fmt.Sprintf("A%d", r+2)
			if err := f.SetSheetRow(s.Title, cell, &row); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", s.Title, r+2, err)
			}
		}
		if err := ApplyDefaultExcelFormatting(f, s.Title); err != nil {
			return nil, fmt.Errorf("format %s: %w", s.Title, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func summarySheet(rep *audits.Report) sheetSpec {
	a, sum := rep.Audit, rep.Summary

	// сохранённый итог важнее пересчитанного, если аудит уже завершён
	total, maxScore, pct, passed := sum.TotalScore, sum.MaxScore, sum.Percentage, sum.Passed
	if a.Percentage != nil && a.TotalScore != nil && a.MaxScore != nil && a.Passed != nil {
		total, maxScore, pct, passed = *a.TotalScore, *a.MaxScore, *a.Percentage, *a.Passed
	}

	rows := [][]any{
		{"Template", fmt.Sprintf("%s (v%d)", rep.Template.Name, rep.Template.Version)},
		{"Site", a.SiteID},
		{"Auditor", a.AuditorID},
		{"Status", string(a.Status)},
		{"Started", formatTime(a.StartedAt)},
		{"Completed", formatTime(a.CompletedAt)},
		{"Total score", round2(total)},
		{"Max score", round2(maxScore)},
		{"Percentage", round2(pct)},
		{"Passing score", round2(rep.Template.PassingScore)},
		{"Critical failure", yesNo(sum.CriticalFailure)},
		{"Result", passFail(passed)},
		{"Missing required", len(sum.MissingRequired)},
	}
	if a.AuditorSignature != nil {
		rows = append(rows,
			[]any{"Signed by", *a.AuditorSignature},
			[]any{"Signed at", formatTime(a.AuditorSignedAt)},
		)
	}
	return sheetSpec{Title: SheetSummary, Header: []string{"Field", "Value"}, Rows: rows}
}

func sectionsSheet(rep *audits.Report) sheetSpec {
	s := sheetSpec{
		Title:  SheetSections,
		Header: []string{"Section", "Questions", "Answered", "Passed", "Failed", "Ungraded", "Score", "Max score", "Percentage"},
	}
	for _, sec := range rep.Summary.Sections {
		s.Rows = append(s.Rows, []any{
			sec.Title, sec.Questions, sec.Answered, sec.Passed, sec.Failed, sec.Ungraded,
			round2(sec.Score), round2(sec.MaxScore), round2(sec.Percentage),
		})
	}
	return s
}

func responsesSheet(rep *audits.Report) sheetSpec {
	s := sheetSpec{
		Title:  SheetResponses,
		Header: []string{"Section", "#", "Question", "Type", "Critical", "Answer", "Result", "Score", "Max score", "Flagged", "Notes"},
	}
	for _, sec := range rep.Template.Sections {
		for i, q := range sec.Questions {
			row := []any{sec.Title, i + 1, q.Text, string(q.Type), yesNo(q.IsCritical)}
			r, ok := rep.ResponseFor(q.ID)
			if !ok {
				row = append(row, "", "not answered", 0, round2(q.Weight), "", "")
				s.Rows = append(s.Rows, row)
				continue
			}
			notes := ""
			if r.Notes != nil {
				notes = *r.Notes
			}
			row = append(row, answerText(r), outcome(r.Passed), round2(r.Score), round2(r.MaxScore), yesNo(r.Flagged), notes)
			s.Rows = append(s.Rows, row)
		}
	}
	return s
}

func answerText(r *models.Response) string {
	var parts []string
	if r.BoolValue != nil {
		parts = append(parts, yesNo(*r.BoolValue))
	}
	if r.NumericValue != nil {
		parts = append(parts, strconv.FormatFloat(*r.NumericValue, 'f', -1, 64))
	}
	if r.Value != nil && *r.Value != "" {
		parts = append(parts, *r.Value)
	}
	return strings.Join(parts, " / ")
}

func outcome(p *bool) string {
	if p == nil {
		return "ungraded"
	}
	return passFail(*p)
}

func passFail(b bool) string {
	if b {
		return "PASS"
	}
	return "FAIL"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(Location).Format("2006-01-02 15:04")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
