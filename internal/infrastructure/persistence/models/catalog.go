package models

import "github.com/movmais/backend/internal/domain/catalog"

// ProductModel is the read model of the tenant catalog
type ProductModel struct {
	TimestampModel
	CompanyID      int64   `gorm:"not null;index:idx_products_company_sku,priority:1;index:idx_products_company_store_ref,priority:1"`
	SKU            string  `gorm:"type:varchar(100);not null;index:idx_products_company_sku,priority:2"`
	StoreReference *string `gorm:"type:varchar(100);index:idx_products_company_store_ref,priority:2"`
	Name           string  `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:             m.ID,
		CompanyID:      m.CompanyID,
		SKU:            m.SKU,
		StoreReference: m.StoreReference,
		Name:           m.Name,
	}
}
