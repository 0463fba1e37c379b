package scoring

import "github.com/Spok95/compliance-audits/internal/models"

type SectionSummary struct {
	SectionID  string  `json:"sectionId"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"maxScore"`
	Percentage float64 `json:"percentage"`
	Questions  int     `json:"questions"`
	Answered   int     `json:"answered"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Ungraded   int     `json:"ungraded"`
}

// Item вопрос, попавший в один из списков отчёта (провалы, пропуски).
type Item struct {
	QuestionID string  `json:"questionId"`
	Section    string  `json:"section"`
	Text       string  `json:"text"`
	Critical   bool    `json:"critical"`
	Flagged    bool    `json:"flagged"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"maxScore"`
}

type Summary struct {
	TotalScore      float64          `json:"totalScore"`
	MaxScore        float64          `json:"maxScore"`
	Percentage      float64          `json:"percentage"`
	PassingScore    float64          `json:"passingScore"`
	ScorePassed     bool             `json:"scorePassed"`
	CriticalFailure bool             `json:"criticalFailure"`
	Passed          bool             `json:"passed"`
	Sections        []SectionSummary `json:"sections"`
	Failed          []Item           `json:"failed"`
	MissingRequired []Item           `json:"missingRequired"`
}

// Aggregate сводит сохранённые ответы аудита в итог.
// Суммы берутся по всем ответам, секции и списки строятся по шаблону.
func Aggregate(t *models.Template, responses []models.Response, rule CriticalRule) Summary {
	if t == nil {
		t = &models.Template{}
	}
	s := Summary{PassingScore: t.PassingScore}

	byQuestion := make(map[string]models.Response, len(responses))
	for _, r := range responses {
		s.TotalScore += r.Score
		s.MaxScore += r.MaxScore
		byQuestion[r.QuestionID] = r

		if r.Passed == nil || *r.Passed {
			continue
		}
		q, _ := t.Question(r.QuestionID)
		critical := q != nil && q.IsCritical
		if r.Flagged || (rule == CriticalFlaggedOrQuestion && critical) {
			s.CriticalFailure = true
		}
	}
	s.Percentage = Percentage(s.TotalScore, s.MaxScore)
	s.ScorePassed = s.Percentage >= t.PassingScore
	s.Passed = s.ScorePassed && !s.CriticalFailure

	for _, sec := range t.Sections {
		ss := SectionSummary{SectionID: sec.ID, Title: sec.Title, Questions: len(sec.Questions)}
		for _, q := range sec.Questions {
			r, ok := byQuestion[q.ID]
			if !ok {
				if q.IsRequired {
					s.MissingRequired = append(s.MissingRequired, Item{
						QuestionID: q.ID, Section: sec.Title, Text: q.Text,
						Critical: q.IsCritical, MaxScore: q.Weight,
					})
				}
				continue
			}
			ss.Answered++
			ss.Score += r.Score
			ss.MaxScore += r.MaxScore
			switch {
			case r.Passed == nil:
				ss.Ungraded++
			case *r.Passed:
				ss.Passed++
			default:
				ss.Failed++
				s.Failed = append(s.Failed, Item{
					QuestionID: q.ID, Section: sec.Title, Text: q.Text,
					Critical: q.IsCritical, Flagged: r.Flagged,
					Score: r.Score, MaxScore: r.MaxScore,
				})
			}
		}
		ss.Percentage = Percentage(ss.Score, ss.MaxScore)
		s.Sections = append(s.Sections, ss)
	}
	return s
}

// Percentage total/max*100, при max <= 0 возвращает 0.
func Percentage(total, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return total / max * 100
}
