package models

import "time"

const (
	DefaultPassingScore   = 80.0
	DefaultQuestionWeight = 1.0
)

type Section struct {
	ID          string     `json:"id"`
	TemplateID  string     `json:"templateId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Order       int        `json:"order"`
	Weight      float64    `json:"weight"`
	Questions   []Question `json:"questions"`
}

// Template версия шаблона аудита. Правка шаблона создаёт новую версию
// (PreviousID указывает на предыдущую), старые аудиты продолжают ссылаться на свою.
type Template struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	Category       *string   `json:"category,omitempty"`
	PassingScore   float64   `json:"passingScore"`
	Version        int       `json:"version"`
	PreviousID     *string   `json:"previousId,omitempty"`
	IsPublished    bool      `json:"isPublished"`
	Sections       []Section `json:"sections"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Questions все вопросы шаблона в порядке секций и вопросов.
func (t *Template) Questions() []Question {
	var out []Question
	for _, s := range t.Sections {
		out = append(out, s.Questions...)
	}
	return out
}

func (t *Template) Question(id string) (*Question, bool) {
	for si := range t.Sections {
		for qi := range t.Sections[si].Questions {
			if t.Sections[si].Questions[qi].ID == id {
				return &t.Sections[si].Questions[qi], true
			}
		}
	}
	return nil, false
}

// TemplateSummary строка списка шаблонов.
type TemplateSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     *string   `json:"category,omitempty"`
	PassingScore float64   `json:"passingScore"`
	Version      int       `json:"version"`
	Sections     int       `json:"sections"`
	Audits       int       `json:"audits"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Черновики: вход CreateTemplate/UpdateTemplate и формат YAML-файлов шаблонов.

type TemplateDraft struct {
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Category     string         `json:"category,omitempty" yaml:"category,omitempty"`
	PassingScore *float64       `json:"passingScore,omitempty" yaml:"passingScore,omitempty"`
	IsPublished  bool           `json:"isPublished,omitempty" yaml:"isPublished,omitempty"`
	Sections     []SectionDraft `json:"sections" yaml:"sections"`
}

type SectionDraft struct {
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Weight      *float64        `json:"weight,omitempty" yaml:"weight,omitempty"`
	Questions   []QuestionDraft `json:"questions" yaml:"questions"`
}

type QuestionDraft struct {
	Text        string       `json:"text" yaml:"text"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Type        QuestionType `json:"type" yaml:"type"`
	IsRequired  *bool        `json:"isRequired,omitempty" yaml:"isRequired,omitempty"`
	IsCritical  bool         `json:"isCritical,omitempty" yaml:"isCritical,omitempty"`
	Weight      *float64     `json:"weight,omitempty" yaml:"weight,omitempty"`
	MinValue    *float64     `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue    *float64     `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	TargetValue *float64     `json:"targetValue,omitempty" yaml:"targetValue,omitempty"`
	Unit        string       `json:"unit,omitempty" yaml:"unit,omitempty"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"`
}
