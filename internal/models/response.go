package models

import "time"

// Response ответ на вопрос в рамках аудита, один на пару (AuditID, QuestionID).
// Score/MaxScore/Passed вычисляются при каждом сохранении заново.
type Response struct {
	ID           string    `json:"id"`
	AuditID      string    `json:"auditId"`
	QuestionID   string    `json:"questionId"`
	Value        *string   `json:"value,omitempty"`
	BoolValue    *bool     `json:"boolValue,omitempty"`
	NumericValue *float64  `json:"numericValue,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	Flagged      bool      `json:"flagged"`
	Score        float64   `json:"score"`
	MaxScore     float64   `json:"maxScore"`
	Passed       *bool     `json:"passed"` // nil: не оценён
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
