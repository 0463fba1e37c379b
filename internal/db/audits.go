package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Spok95/compliance-audits/internal/models"
)

const auditColumns = `id, organization_id, template_id, site_id, auditor_id, status, scheduled_for,
	started_at, completed_at, total_score, max_score, percentage, passed,
	auditor_signature, auditor_signed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAudit(s scanner) (*models.Audit, error) {
	var a models.Audit
	var status string
	if err := s.Scan(&a.ID, &a.OrganizationID, &a.TemplateID, &a.SiteID, &a.AuditorID, &status,
		&a.ScheduledFor, &a.StartedAt, &a.CompletedAt, &a.TotalScore, &a.MaxScore, &a.Percentage,
		&a.Passed, &a.AuditorSignature, &a.AuditorSignedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = models.AuditStatus(status)
	return &a, nil
}

// InsertAudit создаёт аудит; ID заполняет вызывающий.
func InsertAudit(ctx context.Context, database *sql.DB, a *models.Audit) error {
	err := database.QueryRowContext(ctx, `
		INSERT INTO audits (id, organization_id, template_id, site_id, auditor_id, status,
		                    scheduled_for, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		a.ID, a.OrganizationID, a.TemplateID, a.SiteID, a.AuditorID, string(a.Status),
		a.ScheduledFor, a.StartedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr("insert audit", err)
}

// GetAudit аудит в рамках организации; чужой аудит неотличим от отсутствующего.
func GetAudit(ctx context.Context, database *sql.DB, orgID, id string) (*models.Audit, error) {
	row := database.QueryRowContext(ctx,
		`SELECT `+auditColumns+` FROM audits WHERE organization_id = $1 AND id = $2`, orgID, id)
	a, err := scanAudit(row)
	if err != nil {
		return nil, mapErr("get audit", err)
	}
	return a, nil
}

// ListAudits аудиты организации, новые сверху.
func ListAudits(ctx context.Context, database *sql.DB, orgID string, f models.AuditFilter) ([]models.Audit, error) {
	q := `SELECT ` + auditColumns + ` FROM audits WHERE organization_id = $1`
	args := []any{orgID}
	idx := 2
	if len(f.Statuses) > 0 {
		st := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			st[i] = string(s)
		}
		q += fmt.Sprintf(" AND status = ANY($%d)", idx)
		args = append(args, pq.Array(st))
		idx++
	}
	if f.SiteID != "" {
		q += fmt.Sprintf(" AND site_id = $%d", idx)
		args = append(args, f.SiteID)
		idx++
	}
	if f.TemplateID != "" {
		q += fmt.Sprintf(" AND template_id = $%d", idx)
		args = append(args, f.TemplateID)
	}
	q += " ORDER BY created_at DESC"

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list audits", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// DeleteAudit удаляет аудит вместе с ответами (ON DELETE CASCADE).
func DeleteAudit(ctx context.Context, database *sql.DB, orgID, id string) error {
	res, err := database.ExecContext(ctx,
		`DELETE FROM audits WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return mapErr("delete audit", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete audit: %w", ErrNotFound)
	}
	return nil
}

// CompleteAudit записывает итог и переводит аудит в completed.
// Повторный вызов перезаписывает итог; подпись меняется только если передана.
func CompleteAudit(ctx context.Context, database *sql.DB, c models.AuditCompletion) error {
	res, err := database.ExecContext(ctx, `
		UPDATE audits
		SET status = 'completed',
		    completed_at = $2,
		    total_score = $3,
		    max_score = $4,
		    percentage = $5,
		    passed = $6,
		    auditor_signature = COALESCE($7, auditor_signature),
		    auditor_signed_at = COALESCE($8, auditor_signed_at),
		    updated_at = now()
		WHERE id = $1`,
		c.AuditID, c.CompletedAt, c.TotalScore, c.MaxScore, c.Percentage, c.Passed,
		c.Signature, c.SignedAt)
	if err != nil {
		return mapErr("complete audit", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete audit: %w", ErrNotFound)
	}
	return nil
}

// GetAuditStats цифры дашборда по организации.
func GetAuditStats(ctx context.Context, database *sql.DB, orgID string) (models.AuditStats, error) {
	var s models.AuditStats
	var avg sql.NullFloat64
	err := database.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'in_progress'),
		       count(*) FILTER (WHERE status = 'completed'),
		       count(*) FILTER (WHERE status = 'completed' AND passed),
		       avg(percentage) FILTER (WHERE status = 'completed')
		FROM audits WHERE organization_id = $1`, orgID,
	).Scan(&s.Total, &s.InProgress, &s.Completed, &s.Passed, &avg)
	if err != nil {
		return s, mapErr("audit stats", err)
	}
	s.AveragePercent = avg.Float64
	if s.Completed > 0 {
		s.PassRatePercent = float64(s.Passed) / float64(s.Completed) * 100
	}
	return s, nil
}

// CountAuditsByStatus количество аудитов по статусам по всем организациям (для метрик).
func CountAuditsByStatus(ctx context.Context, database *sql.DB) (map[models.AuditStatus]int, error) {
	rows, err := database.QueryContext(ctx, `SELECT status, count(*) FROM audits GROUP BY status`)
	if err != nil {
		return nil, mapErr("count audits", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[models.AuditStatus]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[models.AuditStatus(st)] = n
	}
	return out, rows.Err()
}
