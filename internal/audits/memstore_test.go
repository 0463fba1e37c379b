package audits

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/models"
)

// memStore Store в памяти для тестов сервиса; errs позволяет уронить конкретный метод.
type memStore struct {
	mu          sync.Mutex
	audits      map[string]*models.Audit
	templates   map[string]*models.Template
	responses   map[string]*models.Response // key: auditID/questionID
	completions []models.AuditCompletion
	errs        map[string]error
	panics      map[string]bool
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		audits:    map[string]*models.Audit{},
		templates: map[string]*models.Template{},
		responses: map[string]*models.Response{},
		errs:      map[string]error{},
		panics:    map[string]bool{},
	}
}

func (m *memStore) check(method string) error {
	if m.panics[method] {
		panic("boom in " + method)
	}
	return m.errs[method]
}

func notFound(what string) error { return fmt.Errorf("%s: %w", what, db.ErrNotFound) }

func (m *memStore) InsertAudit(_ context.Context, a *models.Audit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("InsertAudit"); err != nil {
		return err
	}
	cp := *a
	cp.CreatedAt = time.Now()
	m.audits[a.ID] = &cp
	return nil
}

func (m *memStore) GetAudit(_ context.Context, orgID, id string) (*models.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetAudit"); err != nil {
		return nil, err
	}
	a, ok := m.audits[id]
	if !ok || a.OrganizationID != orgID {
		return nil, notFound("get audit")
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAudits(_ context.Context, orgID string, f models.AuditFilter) ([]models.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Audit
	for _, a := range m.audits {
		if a.OrganizationID != orgID {
			continue
		}
		if f.SiteID != "" && a.SiteID != f.SiteID {
			continue
		}
		if f.TemplateID != "" && a.TemplateID != f.TemplateID {
			continue
		}
		if len(f.Statuses) > 0 {
			match := false
			for _, st := range f.Statuses {
				match = match || st == a.Status
			}
			if !match {
				continue
			}
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteAudit(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("DeleteAudit"); err != nil {
		return err
	}
	a, ok := m.audits[id]
	if !ok || a.OrganizationID != orgID {
		return notFound("delete audit")
	}
	delete(m.audits, id)
	for k, r := range m.responses {
		if r.AuditID == id {
			delete(m.responses, k)
		}
	}
	return nil
}

func (m *memStore) CompleteAudit(_ context.Context, c models.AuditCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CompleteAudit"); err != nil {
		return err
	}
	a, ok := m.audits[c.AuditID]
	if !ok {
		return notFound("complete audit")
	}
	m.completions = append(m.completions, c)
	a.Status = models.AuditCompleted
	completedAt := c.CompletedAt
	a.CompletedAt = &completedAt
	a.TotalScore, a.MaxScore, a.Percentage = &c.TotalScore, &c.MaxScore, &c.Percentage
	passed := c.Passed
	a.Passed = &passed
	if c.Signature != nil {
		a.AuditorSignature, a.AuditorSignedAt = c.Signature, c.SignedAt
	}
	return nil
}

func (m *memStore) AuditStats(_ context.Context, orgID string) (models.AuditStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.AuditStats
	var sum float64
	for _, a := range m.audits {
		if a.OrganizationID != orgID {
			continue
		}
		s.Total++
		switch a.Status {
		case models.AuditInProgress:
			s.InProgress++
		case models.AuditCompleted:
			s.Completed++
			sum += *a.Percentage
			if *a.Passed {
				s.Passed++
			}
		}
	}
	if s.Completed > 0 {
		s.AveragePercent = sum / float64(s.Completed)
		s.PassRatePercent = float64(s.Passed) / float64(s.Completed) * 100
	}
	return s, nil
}

func (m *memStore) InsertTemplate(_ context.Context, t *models.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("InsertTemplate"); err != nil {
		return err
	}
	if t.PreviousID != nil {
		for _, other := range m.templates {
			if other.PreviousID != nil && *other.PreviousID == *t.PreviousID {
				return fmt.Errorf("insert template: %w", db.ErrConflict)
			}
		}
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memStore) GetTemplate(_ context.Context, orgID, id string) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetTemplate"); err != nil {
		return nil, err
	}
	t, ok := m.templates[id]
	if !ok || t.OrganizationID != orgID {
		return nil, notFound("get template")
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) GetTemplateByID(_ context.Context, id string) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetTemplateByID"); err != nil {
		return nil, err
	}
	t, ok := m.templates[id]
	if !ok {
		return nil, notFound("get template")
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTemplates(_ context.Context, orgID string) ([]models.TemplateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TemplateSummary
	for _, t := range m.templates {
		if t.OrganizationID == orgID {
			out = append(out, models.TemplateSummary{ID: t.ID, Name: t.Name, Version: t.Version})
		}
	}
	return out, nil
}

func (m *memStore) DeleteTemplate(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("DeleteTemplate"); err != nil {
		return err
	}
	t, ok := m.templates[id]
	if !ok || t.OrganizationID != orgID {
		return notFound("delete template")
	}
	for _, a := range m.audits {
		if a.TemplateID == id {
			return fmt.Errorf("delete template: %w", db.ErrConflict)
		}
	}
	delete(m.templates, id)
	return nil
}

func (m *memStore) UpsertResponse(_ context.Context, r *models.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("UpsertResponse"); err != nil {
		return err
	}
	key := r.AuditID + "/" + r.QuestionID
	cp := *r
	if prev, ok := m.responses[key]; ok {
		cp.ID = prev.ID
		r.ID = prev.ID
	}
	m.responses[key] = &cp
	return nil
}

func (m *memStore) ListResponses(_ context.Context, auditID string) ([]models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListResponses"); err != nil {
		return nil, err
	}
	var out []models.Response
	for _, r := range m.responses {
		if r.AuditID == auditID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m *memStore) response(auditID, questionID string) (*models.Response, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[auditID+"/"+questionID]
	return r, ok
}
