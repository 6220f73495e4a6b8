package persistence

import (
	"gorm.io/gorm"

	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
)

// defaultScanLimit bounds keyset scans that do not set a limit
const defaultScanLimit = 1000

// companyPlatformScope restricts a query to one tenant installation
func companyPlatformScope(companyID int64, platform integration.PlatformSlug) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ? AND platform_slug = ?", companyID, platform)
	}
}

// keysetScope applies a ScanFilter as a newest-first keyset page over id,
// with the optional window applied to dateColumn.
func keysetScope(f freight.ScanFilter, dateColumn string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.CompanyID > 0 {
			db = db.Where("company_id = ?", f.CompanyID)
		}
		if f.From != nil {
			db = db.Where(dateColumn+" >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where(dateColumn+" <= ?", *f.To)
		}
		if f.BeforeID > 0 {
			db = db.Where("id < ?", f.BeforeID)
		}
		limit := f.Limit
		if limit <= 0 {
			limit = defaultScanLimit
		}
		return db.Order("id DESC").Limit(limit)
	}
}
