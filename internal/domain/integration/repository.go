package integration

import "context"

// CompanyRepository persists tenants
type CompanyRepository interface {
	Create(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id int64) (*Company, error)
}

// CompanyPlatformRepository persists platform installations
type CompanyPlatformRepository interface {
	// Save inserts or replaces the installation keyed by (company, platform)
	Save(ctx context.Context, cp *CompanyPlatform) error
	FindByCompanyAndPlatform(ctx context.Context, companyID int64, platform PlatformSlug) (*CompanyPlatform, error)
	ListByCompany(ctx context.Context, companyID int64) ([]CompanyPlatform, error)
	ListActive(ctx context.Context, platform PlatformSlug) ([]CompanyPlatform, error)
}

// RunLogRepository persists run audit rows
type RunLogRepository interface {
	Create(ctx context.Context, log *RunLog) error
	Update(ctx context.Context, log *RunLog) error
}
