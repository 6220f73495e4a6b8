package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/persistence/models"
)

const sqlUpdateOrderDateSplit = `UPDATE freight_orders AS o
SET order_day = u.day, order_time = u.clock
FROM unnest(?::bigint[], ?::date[], ?::time[]) AS u(id, day, clock)
WHERE o.id = u.id`

// GormFreightOrderRepository implements freight.OrderRepository using GORM
type GormFreightOrderRepository struct {
	db *gorm.DB
}

// NewGormFreightOrderRepository creates a new GormFreightOrderRepository
func NewGormFreightOrderRepository(db *gorm.DB) *GormFreightOrderRepository {
	return &GormFreightOrderRepository{db: db}
}

var _ freight.OrderRepository = (*GormFreightOrderRepository)(nil)

// ExistingExternalIDs returns the subset of ids already stored for the tenant installation
func (r *GormFreightOrderRepository) ExistingExternalIDs(ctx context.Context, companyID int64, platform integration.PlatformSlug, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.FreightOrderModel{}).
		Scopes(companyPlatformScope(companyID, platform)).
		Where("external_id IN ?", ids).
		Pluck("external_id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// Create inserts an order and sets its generated ID
func (r *GormFreightOrderRepository) Create(ctx context.Context, order *freight.Order) error {
	var model models.FreightOrderModel
	model.FromDomain(order)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	order.ID = model.ID
	return nil
}

// ListPendingDateSplit returns one keyset page of orders with a date but no local split
func (r *GormFreightOrderRepository) ListPendingDateSplit(ctx context.Context, filter freight.ScanFilter) ([]freight.TimestampRow, error) {
	var rows []freight.TimestampRow
	err := r.db.WithContext(ctx).
		Model(&models.FreightOrderModel{}).
		Select("id, company_id, order_date AS at").
		Where("order_date IS NOT NULL AND (order_day IS NULL OR order_time IS NULL)").
		Scopes(keysetScope(filter, "order_date")).
		Scan(&rows).Error
	return rows, err
}

// UpdateDateSplit writes a batch of local date/time splits in a single statement
func (r *GormFreightOrderRepository) UpdateDateSplit(ctx context.Context, updates []freight.DateSplitUpdate) (int64, error) {
	return bulkDateSplit(ctx, r.db, sqlUpdateOrderDateSplit, updates)
}
