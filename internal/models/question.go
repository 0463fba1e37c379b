package models

import (
	"fmt"
	"strings"
)

// QuestionType тип вопроса шаблона, определяет правило подсчёта баллов.
type QuestionType string

const (
	QuestionYesNo       QuestionType = "yes_no"
	QuestionPassFail    QuestionType = "pass_fail"
	QuestionNumeric     QuestionType = "numeric"
	QuestionText        QuestionType = "text"
	QuestionPhoto       QuestionType = "photo"
	QuestionMultiChoice QuestionType = "multi_choice"
	QuestionRating      QuestionType = "rating"
)

// QuestionTypes все допустимые типы в порядке отображения.
var QuestionTypes = []QuestionType{
	QuestionYesNo, QuestionPassFail, QuestionNumeric, QuestionText,
	QuestionPhoto, QuestionMultiChoice, QuestionRating,
}

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionYesNo, QuestionPassFail, QuestionNumeric, QuestionText,
		QuestionPhoto, QuestionMultiChoice, QuestionRating:
		return true
	}
	return false
}

// ParseQuestionType нормализует строку из БД/формы/YAML.
func ParseQuestionType(s string) (QuestionType, error) {
	t := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return t, nil
}

type Question struct {
	ID          string       `json:"id"`
	SectionID   string       `json:"sectionId"`
	Text        string       `json:"text"`
	Description *string      `json:"description,omitempty"`
	Type        QuestionType `json:"type"`
	IsRequired  bool         `json:"isRequired"`
	IsCritical  bool         `json:"isCritical"`
	Order       int          `json:"order"`
	Weight      float64      `json:"weight"`
	MinValue    *float64     `json:"minValue,omitempty"`
	MaxValue    *float64     `json:"maxValue,omitempty"`
	TargetValue *float64     `json:"targetValue,omitempty"` // только для отображения
	Unit        *string      `json:"unit,omitempty"`
	Options     []string     `json:"options,omitempty"`
}
