package models

import "time"

type AuditStatus string

const (
	AuditDraft      AuditStatus = "draft"
	AuditInProgress AuditStatus = "in_progress"
	AuditCompleted  AuditStatus = "completed"
	AuditReviewed   AuditStatus = "reviewed"
	AuditArchived   AuditStatus = "archived"
)

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditDraft, AuditInProgress, AuditCompleted, AuditReviewed, AuditArchived:
		return true
	}
	return false
}

type Audit struct {
	ID               string      `json:"id"`
	OrganizationID   string      `json:"organizationId"`
	TemplateID       string      `json:"templateId"`
	SiteID           string      `json:"siteId"`
	AuditorID        string      `json:"auditorId"`
	Status           AuditStatus `json:"status"`
	ScheduledFor     *time.Time  `json:"scheduledFor,omitempty"`
	StartedAt        *time.Time  `json:"startedAt,omitempty"`
	CompletedAt      *time.Time  `json:"completedAt,omitempty"`
	TotalScore       *float64    `json:"totalScore,omitempty"`
	MaxScore         *float64    `json:"maxScore,omitempty"`
	Percentage       *float64    `json:"percentage,omitempty"`
	Passed           *bool       `json:"passed,omitempty"`
	AuditorSignature *string     `json:"auditorSignature,omitempty"`
	AuditorSignedAt  *time.Time  `json:"auditorSignedAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// AuditFilter фильтры списка аудитов, пустые поля не ограничивают выборку.
type AuditFilter struct {
	Statuses   []AuditStatus
	SiteID     string
	TemplateID string
}

// AuditCompletion итог, который записывается при завершении аудита.
type AuditCompletion struct {
	AuditID     string
	CompletedAt time.Time
	TotalScore  float64
	MaxScore    float64
	Percentage  float64
	Passed      bool
	Signature   *string
	SignedAt    *time.Time
}

// AuditStats цифры для дашборда организации.
type AuditStats struct {
	Total           int     `json:"total"`
	InProgress      int     `json:"inProgress"`
	Completed       int     `json:"completed"`
	Passed          int     `json:"passed"`
	AveragePercent  float64 `json:"averageScore"`
	PassRatePercent float64 `json:"passRate"`
}
