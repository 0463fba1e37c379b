package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/compliance-audits/internal/models"
)

// UpsertResponse сохраняет ответ по ключу (audit_id, question_id).
// Повторное сохранение полностью заменяет прежние значения: истории нет,
// при гонке побеждает последний писатель.
func UpsertResponse(ctx context.Context, database *sql.DB, r *models.Response) error {
	err := database.QueryRowContext(ctx, `
		INSERT INTO audit_responses (id, audit_id, question_id, value, bool_value, numeric_value,
		                             notes, flagged, score, max_score, passed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (audit_id, question_id) DO UPDATE
		SET value = EXCLUDED.value,
		    bool_value = EXCLUDED.bool_value,
		    numeric_value = EXCLUDED.numeric_value,
		    notes = EXCLUDED.notes,
		    flagged = EXCLUDED.flagged,
		    score = EXCLUDED.score,
		    max_score = EXCLUDED.max_score,
		    passed = EXCLUDED.passed,
		    updated_at = now()
		RETURNING id, created_at, updated_at`,
		r.ID, r.AuditID, r.QuestionID, r.Value, r.BoolValue, r.NumericValue,
		r.Notes, r.Flagged, r.Score, r.MaxScore, r.Passed,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	return mapErr("upsert response", err)
}

// ListResponses все ответы аудита, свежие данные из БД.
func ListResponses(ctx context.Context, database *sql.DB, auditID string) ([]models.Response, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, audit_id, question_id, value, bool_value, numeric_value, notes, flagged,
		       score, max_score, passed, created_at, updated_at
		FROM audit_responses
		WHERE audit_id = $1
		ORDER BY created_at, id`, auditID)
	if err != nil {
		return nil, mapErr("list responses", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Response
	for rows.Next() {
		var r models.Response
		var score, maxScore sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.AuditID, &r.QuestionID, &r.Value, &r.BoolValue, &r.NumericValue,
			&r.Notes, &r.Flagged, &score, &maxScore, &r.Passed, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		// NULL-баллы считаем нулём
		r.Score = score.Float64
		r.MaxScore = maxScore.Float64
		out = append(out, r)
	}
	return out, rows.Err()
}
