package integration

import (
	"context"

	"github.com/movmais/backend/internal/domain/integration"
)

// CompanyService registers tenants and their platform installations
type CompanyService struct {
	companies integration.CompanyRepository
	platforms integration.CompanyPlatformRepository
}

// NewCompanyService creates a new CompanyService
func NewCompanyService(companies integration.CompanyRepository, platforms integration.CompanyPlatformRepository) *CompanyService {
	return &CompanyService{companies: companies, platforms: platforms}
}

// CreateCompany registers a new tenant
func (s *CompanyService) CreateCompany(ctx context.Context, req CreateCompanyRequest) (*CompanyResponse, error) {
	company, err := integration.NewCompany(req.Name, req.Document)
	if err != nil {
		return nil, err
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}
	resp := ToCompanyResponse(company)
	return &resp, nil
}

// GetCompany returns a tenant by id
func (s *CompanyService) GetCompany(ctx context.Context, id int64) (*CompanyResponse, error) {
	company, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCompanyResponse(company)
	return &resp, nil
}

// InstallPlatform creates or replaces the installation of a platform for a tenant
func (s *CompanyService) InstallPlatform(ctx context.Context, companyID int64, platform string, req InstallPlatformRequest) (*CompanyPlatformResponse, error) {
	slug, err := integration.ParsePlatformSlug(platform)
	if err != nil {
		return nil, err
	}
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, err
	}

	cp, err := integration.NewCompanyPlatform(companyID, slug, req.PlatformConfig())
	if err != nil {
		return nil, err
	}
	if req.Active != nil {
		cp.Active = *req.Active
	}
	if err := s.platforms.Save(ctx, cp); err != nil {
		return nil, err
	}
	resp := ToCompanyPlatformResponse(cp)
	return &resp, nil
}

// ListPlatforms lists every installation of a tenant
func (s *CompanyService) ListPlatforms(ctx context.Context, companyID int64) ([]CompanyPlatformResponse, error) {
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, err
	}
	list, err := s.platforms.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]CompanyPlatformResponse, len(list))
	for i := range list {
		out[i] = ToCompanyPlatformResponse(&list[i])
	}
	return out, nil
}
