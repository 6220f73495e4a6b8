package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/persistence/models"
)

// GormCompanyRepository implements integration.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

var _ integration.CompanyRepository = (*GormCompanyRepository)(nil)

// Create inserts a company and sets its generated ID
func (r *GormCompanyRepository) Create(ctx context.Context, company *integration.Company) error {
	var model models.CompanyModel
	model.FromDomain(company)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	company.ID = model.ID
	return nil
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id int64) (*integration.Company, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCompanyNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormCompanyPlatformRepository implements integration.CompanyPlatformRepository using GORM
type GormCompanyPlatformRepository struct {
	db *gorm.DB
}

// NewGormCompanyPlatformRepository creates a new GormCompanyPlatformRepository
func NewGormCompanyPlatformRepository(db *gorm.DB) *GormCompanyPlatformRepository {
	return &GormCompanyPlatformRepository{db: db}
}

var _ integration.CompanyPlatformRepository = (*GormCompanyPlatformRepository)(nil)

// Save upserts the installation on (company_id, platform_slug)
func (r *GormCompanyPlatformRepository) Save(ctx context.Context, cp *integration.CompanyPlatform) error {
	var model models.CompanyPlatformModel
	if err := model.FromDomain(cp); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "platform_slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"config", "active", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return err
	}
	cp.ID = model.ID
	return nil
}

// FindByCompanyAndPlatform finds the installation of platform for a company
func (r *GormCompanyPlatformRepository) FindByCompanyAndPlatform(ctx context.Context, companyID int64, platform integration.PlatformSlug) (*integration.CompanyPlatform, error) {
	var model models.CompanyPlatformModel
	if err := r.db.WithContext(ctx).
		Scopes(companyPlatformScope(companyID, platform)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrPlatformNotInstalled
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByCompany lists every installation of a company
func (r *GormCompanyPlatformRepository) ListByCompany(ctx context.Context, companyID int64) ([]integration.CompanyPlatform, error) {
	var rows []models.CompanyPlatformModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("platform_slug ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCompanyPlatforms(rows), nil
}

// ListActive lists active installations of platform, ordered by company
func (r *GormCompanyPlatformRepository) ListActive(ctx context.Context, platform integration.PlatformSlug) ([]integration.CompanyPlatform, error) {
	var rows []models.CompanyPlatformModel
	if err := r.db.WithContext(ctx).
		Where("platform_slug = ? AND active = ?", platform, true).
		Order("company_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCompanyPlatforms(rows), nil
}

func toCompanyPlatforms(rows []models.CompanyPlatformModel) []integration.CompanyPlatform {
	out := make([]integration.CompanyPlatform, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}
