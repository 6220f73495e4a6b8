package models

import (
	"encoding/json"
	"time"

	"github.com/movmais/backend/internal/domain/integration"
)

// CompanyModel is the persistence model for a tenant
type CompanyModel struct {
	TimestampModel
	Name     string `gorm:"type:varchar(200);not null"`
	Document string `gorm:"type:varchar(32)"`
	Active   bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain() *integration.Company {
	return &integration.Company{
		ID:        m.ID,
		Name:      m.Name,
		Document:  m.Document,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Company
func (m *CompanyModel) FromDomain(c *integration.Company) {
	m.ID = c.ID
	m.Name = c.Name
	m.Document = c.Document
	m.Active = c.Active
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// CompanyPlatformModel is the persistence model for a platform installation
type CompanyPlatformModel struct {
	TimestampModel
	CompanyID    int64                    `gorm:"not null;uniqueIndex:uq_company_platforms_company_platform,priority:1"`
	PlatformSlug integration.PlatformSlug `gorm:"type:varchar(40);not null;uniqueIndex:uq_company_platforms_company_platform,priority:2"`
	ConfigJSON   string                   `gorm:"type:jsonb;column:config;not null;default:'{}'"`
	Active       bool                     `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CompanyPlatformModel) TableName() string {
	return "company_platforms"
}

// ToDomain converts the persistence model to a domain CompanyPlatform.
// An unreadable config blob yields an empty config so credential checks fail loudly later.
func (m *CompanyPlatformModel) ToDomain() *integration.CompanyPlatform {
	cp := &integration.CompanyPlatform{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		Platform:  m.PlatformSlug,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ConfigJSON != "" {
		_ = json.Unmarshal([]byte(m.ConfigJSON), &cp.Config)
	}
	return cp
}

// FromDomain populates the persistence model from a domain CompanyPlatform
func (m *CompanyPlatformModel) FromDomain(cp *integration.CompanyPlatform) error {
	cfg, err := json.Marshal(cp.Config)
	if err != nil {
		return err
	}
	m.ID = cp.ID
	m.CompanyID = cp.CompanyID
	m.PlatformSlug = cp.Platform
	m.ConfigJSON = string(cfg)
	m.Active = cp.Active
	m.CreatedAt = cp.CreatedAt
	m.UpdatedAt = cp.UpdatedAt
	return nil
}

// RunLogModel is the persistence model for a run audit row
type RunLogModel struct {
	ID           int64                    `gorm:"primaryKey;autoIncrement"`
	RunID        string                   `gorm:"type:uuid;not null;uniqueIndex"`
	CompanyID    int64                    `gorm:"not null;index"`
	PlatformSlug integration.PlatformSlug `gorm:"type:varchar(40);not null"`
	Command      string                   `gorm:"type:varchar(80);not null"`
	Status       integration.RunStatus    `gorm:"type:varchar(20);not null"`
	CountersJSON string                   `gorm:"type:jsonb;column:counters;not null;default:'{}'"`
	ErrorJSON    *string                  `gorm:"type:jsonb;column:error"`
	StartedAt    time.Time                `gorm:"not null"`
	FinishedAt   *time.Time
}

// TableName returns the table name for GORM
func (RunLogModel) TableName() string {
	return "run_logs"
}

// FromDomain populates the persistence model from a domain RunLog
func (m *RunLogModel) FromDomain(r *integration.RunLog) error {
	counters := r.Counters
	if counters == nil {
		counters = map[string]any{}
	}
	cj, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	m.ID = r.ID
	m.RunID = r.RunID
	m.CompanyID = r.CompanyID
	m.PlatformSlug = r.Platform
	m.Command = r.Command
	m.Status = r.Status
	m.CountersJSON = string(cj)
	m.ErrorJSON = nil
	if r.Error != nil {
		ej, err := json.Marshal(r.Error)
		if err != nil {
			return err
		}
		s := string(ej)
		m.ErrorJSON = &s
	}
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	return nil
}
