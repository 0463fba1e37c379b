// Package scoring превращает ответы на вопросы шаблона в баллы и итог аудита.
// Пакет чистый: без БД и логов, всё на входных данных.
package scoring

import (
	"errors"
	"fmt"

	"github.com/Spok95/compliance-audits/internal/models"
)

const (
	// RatingScale верх шкалы rating (1..5).
	RatingScale = 5.0
	// RatingPassThreshold минимальная оценка, считающаяся пройденной.
	RatingPassThreshold = 3.0
)

var ErrUnknownQuestionType = errors.New("unknown question type")

// Input то, что прислал аудитор. nil означает "не задано".
type Input struct {
	Value        *string
	BoolValue    *bool
	NumericValue *float64
}

// Outcome результат подсчёта одного ответа. MaxScore всегда равен весу вопроса.
type Outcome struct {
	Score    float64
	MaxScore float64
	Passed   *bool
}

// Score считает баллы ответа по типу вопроса.
func Score(q models.Question, in Input, p Policy) (Outcome, error) {
	out := Outcome{MaxScore: q.Weight}

	switch q.Type {
	case models.QuestionYesNo, models.QuestionPassFail:
		ok := in.BoolValue != nil && *in.BoolValue
		out.Passed = boolPtr(ok)
		if ok {
			out.Score = q.Weight
		}

	case models.QuestionNumeric:
		if in.NumericValue == nil {
			out.Passed = p.Unanswered.passed()
			return out, nil
		}
		ok := InRange(*in.NumericValue, q.MinValue, q.MaxValue)
		out.Passed = boolPtr(ok)
		if ok {
			out.Score = q.Weight
		}

	case models.QuestionRating:
		if in.NumericValue == nil {
			out.Passed = p.Unanswered.passed()
			return out, nil
		}
		v := clamp(*in.NumericValue, 0, RatingScale)
		out.Score = v / RatingScale * q.Weight
		out.Passed = boolPtr(v >= RatingPassThreshold)

	case models.QuestionText, models.QuestionPhoto:
		// сам факт сохранения считается ответом
		out.Score = q.Weight
		out.Passed = boolPtr(true)

	case models.QuestionMultiChoice:
		out.Passed = p.Unanswered.passed()

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownQuestionType, q.Type)
	}
	return out, nil
}

// InRange проверяет v по границам, nil-граница не ограничивает.
func InRange(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
