package audits

import (
	"context"
	"database/sql"

	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/models"
)

// Store то, что сервису нужно от хранилища. Ошибки "не найдено" оборачивают db.ErrNotFound.
type Store interface {
	InsertAudit(ctx context.Context, a *models.Audit) error
	GetAudit(ctx context.Context, orgID, id string) (*models.Audit, error)
	ListAudits(ctx context.Context, orgID string, f models.AuditFilter) ([]models.Audit, error)
	DeleteAudit(ctx context.Context, orgID, id string) error
	CompleteAudit(ctx context.Context, c models.AuditCompletion) error
	AuditStats(ctx context.Context, orgID string) (models.AuditStats, error)

	InsertTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, orgID, id string) (*models.Template, error)
	GetTemplateByID(ctx context.Context, id string) (*models.Template, error)
	ListTemplates(ctx context.Context, orgID string) ([]models.TemplateSummary, error)
	DeleteTemplate(ctx context.Context, orgID, id string) error

	UpsertResponse(ctx context.Context, r *models.Response) error
	ListResponses(ctx context.Context, auditID string) ([]models.Response, error)
}

// sqlStore адаптер пакета db под Store, каждое обращение со своим таймаутом.
type sqlStore struct {
	db *sql.DB
}

func NewSQLStore(database *sql.DB) Store { return &sqlStore{db: database} }

var _ Store = (*sqlStore)(nil)

func (s *sqlStore) InsertAudit(ctx context.Context, a *models.Audit) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.InsertAudit(ctx, s.db, a)
}

func (s *sqlStore) GetAudit(ctx context.Context, orgID, id string) (*models.Audit, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.GetAudit(ctx, s.db, orgID, id)
}

func (s *sqlStore) ListAudits(ctx context.Context, orgID string, f models.AuditFilter) ([]models.Audit, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.ListAudits(ctx, s.db, orgID, f)
}

func (s *sqlStore) DeleteAudit(ctx context.Context, orgID, id string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.DeleteAudit(ctx, s.db, orgID, id)
}

func (s *sqlStore) CompleteAudit(ctx context.Context, c models.AuditCompletion) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.CompleteAudit(ctx, s.db, c)
}

func (s *sqlStore) AuditStats(ctx context.Context, orgID string) (models.AuditStats, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.GetAuditStats(ctx, s.db, orgID)
}

func (s *sqlStore) InsertTemplate(ctx context.Context, t *models.Template) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.InsertTemplate(ctx, s.db, t)
}

func (s *sqlStore) GetTemplate(ctx context.Context, orgID, id string) (*models.Template, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.GetTemplate(ctx, s.db, orgID, id)
}

func (s *sqlStore) GetTemplateByID(ctx context.Context, id string) (*models.Template, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.GetTemplateByID(ctx, s.db, id)
}

func (s *sqlStore) ListTemplates(ctx context.Context, orgID string) ([]models.TemplateSummary, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.ListTemplates(ctx, s.db, orgID)
}

func (s *sqlStore) DeleteTemplate(ctx context.Context, orgID, id string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.DeleteTemplate(ctx, s.db, orgID, id)
}

func (s *sqlStore) UpsertResponse(ctx context.Context, r *models.Response) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.UpsertResponse(ctx, s.db, r)
}

func (s *sqlStore) ListResponses(ctx context.Context, auditID string) ([]models.Response, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.ListResponses(ctx, s.db, auditID)
}
