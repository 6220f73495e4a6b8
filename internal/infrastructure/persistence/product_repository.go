package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/movmais/backend/internal/domain/catalog"
	"github.com/movmais/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// FindBySKU finds the oldest product with sku for a company
func (r *GormProductRepository) FindBySKU(ctx context.Context, companyID int64, sku string) (*catalog.Product, error) {
	return r.findOne(ctx, "company_id = ? AND sku = ?", companyID, sku)
}

// FindByStoreReference finds the oldest product with a store reference for a company
func (r *GormProductRepository) FindByStoreReference(ctx context.Context, companyID int64, ref string) (*catalog.Product, error) {
	return r.findOne(ctx, "company_id = ? AND store_reference = ?", companyID, ref)
}

func (r *GormProductRepository) findOne(ctx context.Context, query string, args ...any) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Where(query, args...).Order("id ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
