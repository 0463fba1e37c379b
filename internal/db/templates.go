package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Spok95/compliance-audits/internal/models"
)

// querier общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertTemplate сохраняет шаблон целиком (секции, вопросы) одной транзакцией.
// ID всех сущностей заполняет вызывающий.
func InsertTemplate(ctx context.Context, database *sql.DB, t *models.Template) error {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO audit_templates (id, organization_id, name, description, category,
		                             passing_score, version, previous_id, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		t.ID, t.OrganizationID, t.Name, t.Description, t.Category,
		t.PassingScore, t.Version, t.PreviousID, t.IsPublished,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapErr("insert template", err)
	}

	secStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO template_sections (id, template_id, title, description, sort_order, weight)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return err
	}
	defer func() { _ = secStmt.Close() }()

	qStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO template_questions (id, section_id, text, description, type, is_required,
		                                is_critical, sort_order, weight, min_value, max_value,
		                                target_value, unit, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`)
	if err != nil {
		return err
	}
	defer func() { _ = qStmt.Close() }()

	for _, s := range t.Sections {
		if _, err := secStmt.ExecContext(ctx, s.ID, t.ID, s.Title, s.Description, s.Order, s.Weight); err != nil {
			return mapErr("insert section", err)
		}
		for _, q := range s.Questions {
			opts := q.Options
			if opts == nil {
				opts = []string{}
			}
			if _, err := qStmt.ExecContext(ctx,
				q.ID, s.ID, q.Text, q.Description, string(q.Type), q.IsRequired,
				q.IsCritical, q.Order, q.Weight, q.MinValue, q.MaxValue,
				q.TargetValue, q.Unit, pq.Array(opts),
			); err != nil {
				return mapErr("insert question", err)
			}
		}
	}
	return tx.Commit()
}

// GetTemplate шаблон организации с секциями и вопросами в порядке sort_order.
func GetTemplate(ctx context.Context, database *sql.DB, orgID, id string) (*models.Template, error) {
	return getTemplate(ctx, database, `organization_id = $1 AND id = $2`, orgID, id)
}

// GetTemplateByID без проверки организации: для аудита, уже найденного в рамках организации.
func GetTemplateByID(ctx context.Context, database *sql.DB, id string) (*models.Template, error) {
	return getTemplate(ctx, database, `id = $1`, id)
}

func getTemplate(ctx context.Context, q querier, where string, args ...any) (*models.Template, error) {
	var t models.Template
	err := q.QueryRowContext(ctx, `
		SELECT id, organization_id, name, description, category, passing_score,
		       version, previous_id, is_published, created_at, updated_at
		FROM audit_templates WHERE `+where, args...,
	).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Description, &t.Category, &t.PassingScore,
		&t.Version, &t.PreviousID, &t.IsPublished, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr("get template", err)
	}

	secRows, err := q.QueryContext(ctx, `
		SELECT id, template_id, title, description, sort_order, weight
		FROM template_sections
		WHERE template_id = $1
		ORDER BY sort_order, id`, t.ID)
	if err != nil {
		return nil, mapErr("list sections", err)
	}
	defer func() { _ = secRows.Close() }()

	idx := map[string]int{}
	for secRows.Next() {
		var s models.Section
		if err := secRows.Scan(&s.ID, &s.TemplateID, &s.Title, &s.Description, &s.Order, &s.Weight); err != nil {
			return nil, err
		}
		idx[s.ID] = len(t.Sections)
		t.Sections = append(t.Sections, s)
	}
	if err := secRows.Err(); err != nil {
		return nil, err
	}

	qRows, err := q.QueryContext(ctx, `
		SELECT q.id, q.section_id, q.text, q.description, q.type, q.is_required, q.is_critical,
		       q.sort_order, q.weight, q.min_value, q.max_value, q.target_value, q.unit, q.options
		FROM template_questions q
		JOIN template_sections s ON s.id = q.section_id
		WHERE s.template_id = $1
		ORDER BY s.sort_order, q.sort_order, q.id`, t.ID)
	if err != nil {
		return nil, mapErr("list questions", err)
	}
	defer func() { _ = qRows.Close() }()

	for qRows.Next() {
		var qu models.Question
		var typ string
		if err := qRows.Scan(&qu.ID, &qu.SectionID, &qu.Text, &qu.Description, &typ, &qu.IsRequired,
			&qu.IsCritical, &qu.Order, &qu.Weight, &qu.MinValue, &qu.MaxValue, &qu.TargetValue,
			&qu.Unit, pq.Array(&qu.Options)); err != nil {
			return nil, err
		}
		// тип не валидируем: неизвестный тип должен всплыть при подсчёте, а не при чтении
		qu.Type = models.QuestionType(typ)
		i, ok := idx[qu.SectionID]
		if !ok {
			return nil, fmt.Errorf("question %s: orphan section %s", qu.ID, qu.SectionID)
		}
		t.Sections[i].Questions = append(t.Sections[i].Questions, qu)
	}
	return &t, qRows.Err()
}

// ListTemplates актуальные версии шаблонов организации (без заменённых новыми версиями).
func ListTemplates(ctx context.Context, database *sql.DB, orgID string) ([]models.TemplateSummary, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT t.id, t.name, t.category, t.passing_score, t.version, t.updated_at,
		       (SELECT count(*) FROM template_sections s WHERE s.template_id = t.id),
		       (SELECT count(*) FROM audits a WHERE a.template_id = t.id)
		FROM audit_templates t
		WHERE t.organization_id = $1
		  AND NOT EXISTS (SELECT 1 FROM audit_templates n WHERE n.previous_id = t.id)
		ORDER BY t.updated_at DESC`, orgID)
	if err != nil {
		return nil, mapErr("list templates", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.TemplateSummary
	for rows.Next() {
		var s models.TemplateSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.PassingScore, &s.Version, &s.UpdatedAt,
			&s.Sections, &s.Audits); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteTemplate удаляет шаблон; если на него ссылаются аудиты, вернёт ErrConflict.
func DeleteTemplate(ctx context.Context, database *sql.DB, orgID, id string) error {
	res, err := database.ExecContext(ctx,
		`DELETE FROM audit_templates WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return mapErr("delete template", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete template: %w", ErrNotFound)
	}
	return nil
}
