package persistence

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/persistence/models"
)

const (
	sqlUpdateBestOptions = `UPDATE freight_quotes AS q
SET best_deadline = u.deadline, best_cost = u.cost
FROM unnest(?::bigint[], ?::int[], ?::numeric[]) AS u(id, deadline, cost)
WHERE q.id = u.id`

	sqlUpdateQuoteDateSplit = `UPDATE freight_quotes AS q
SET quote_date = u.day, quote_time = u.clock
FROM unnest(?::bigint[], ?::date[], ?::time[]) AS u(id, day, clock)
WHERE q.id = u.id`
)

// GormFreightQuoteRepository implements freight.QuoteRepository using GORM
type GormFreightQuoteRepository struct {
	db *gorm.DB
}

// NewGormFreightQuoteRepository creates a new GormFreightQuoteRepository
func NewGormFreightQuoteRepository(db *gorm.DB) *GormFreightQuoteRepository {
	return &GormFreightQuoteRepository{db: db}
}

var _ freight.QuoteRepository = (*GormFreightQuoteRepository)(nil)

// FindByQuoteID finds a stored quote by its vendor id within a tenant installation
func (r *GormFreightQuoteRepository) FindByQuoteID(ctx context.Context, companyID int64, platform integration.PlatformSlug, quoteID string) (*freight.Quote, error) {
	var model models.FreightQuoteModel
	if err := r.db.WithContext(ctx).
		Scopes(companyPlatformScope(companyID, platform)).
		Where("quote_id = ?", quoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, freight.ErrQuoteNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a quote and sets its generated ID
func (r *GormFreightQuoteRepository) Create(ctx context.Context, quote *freight.Quote) error {
	var model models.FreightQuoteModel
	model.FromDomain(quote)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	quote.ID = model.ID
	return nil
}

// CreateOption inserts a single delivery option row
func (r *GormFreightQuoteRepository) CreateOption(ctx context.Context, option *freight.QuoteOption) error {
	var model models.FreightQuoteOptionModel
	model.FromDomain(option)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	option.ID = model.ID
	return nil
}

// CreateItem inserts a single cart item row
func (r *GormFreightQuoteRepository) CreateItem(ctx context.Context, item *freight.QuoteItem) error {
	var model models.FreightQuoteItemModel
	model.FromDomain(item)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	item.ID = model.ID
	return nil
}

// optionCandidateRow is the projection of an option used for best-option selection
type optionCandidateRow struct {
	QuoteRef      int64            `gorm:"column:freight_quote_id"`
	DeadlineTotal *int             `gorm:"column:deadline_total"`
	ShippingValue *decimal.Decimal `gorm:"column:shipping_value"`
}

// ListPendingBestOption returns one keyset page of quotes without a best pair
// that have at least one option row, each with its candidates in line order.
func (r *GormFreightQuoteRepository) ListPendingBestOption(ctx context.Context, filter freight.ScanFilter) ([]freight.PendingBestOption, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.FreightQuoteModel{}).
		Where("best_deadline IS NULL AND best_cost IS NULL").
		Where("EXISTS (SELECT 1 FROM freight_quote_options o WHERE o.freight_quote_id = freight_quotes.id)").
		Scopes(keysetScope(filter, "quoted_at")).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []optionCandidateRow
	if err := r.db.WithContext(ctx).
		Model(&models.FreightQuoteOptionModel{}).
		Select("freight_quote_id, deadline_total, shipping_value").
		Where("freight_quote_id IN ?", ids).
		Order("freight_quote_id DESC, line_index ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byQuote := make(map[int64][]freight.OptionCandidate, len(ids))
	for _, row := range rows {
		c := freight.OptionCandidate{}
		if row.DeadlineTotal != nil {
			d := float64(*row.DeadlineTotal)
			c.Deadline = &d
		}
		if row.ShippingValue != nil {
			p := row.ShippingValue.InexactFloat64()
			c.Price = &p
		}
		byQuote[row.QuoteRef] = append(byQuote[row.QuoteRef], c)
	}

	pending := make([]freight.PendingBestOption, 0, len(ids))
	for _, id := range ids {
		pending = append(pending, freight.PendingBestOption{QuoteRef: id, Candidates: byQuote[id]})
	}
	return pending, nil
}

// UpdateBestOptions writes every best pair of a batch in a single statement
func (r *GormFreightQuoteRepository) UpdateBestOptions(ctx context.Context, updates []freight.BestOptionUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	ids := make([]int64, len(updates))
	deadlines := make([]int64, len(updates))
	costs := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.QuoteRef
		deadlines[i] = int64(u.Deadline)
		costs[i] = u.Cost.String()
	}
	result := r.db.WithContext(ctx).Exec(sqlUpdateBestOptions, pq.Array(ids), pq.Array(deadlines), pq.Array(costs))
	return result.RowsAffected, result.Error
}

// ListPendingDateSplit returns one keyset page of quotes with a timestamp but no local split
func (r *GormFreightQuoteRepository) ListPendingDateSplit(ctx context.Context, filter freight.ScanFilter) ([]freight.TimestampRow, error) {
	var rows []freight.TimestampRow
	err := r.db.WithContext(ctx).
		Model(&models.FreightQuoteModel{}).
		Select("id, company_id, quoted_at AS at").
		Where("quoted_at IS NOT NULL AND (quote_date IS NULL OR quote_time IS NULL)").
		Scopes(keysetScope(filter, "quoted_at")).
		Scan(&rows).Error
	return rows, err
}

// UpdateDateSplit writes a batch of local date/time splits in a single statement
func (r *GormFreightQuoteRepository) UpdateDateSplit(ctx context.Context, updates []freight.DateSplitUpdate) (int64, error) {
	return bulkDateSplit(ctx, r.db, sqlUpdateQuoteDateSplit, updates)
}

// ListWithoutOptions returns quotes holding a raw options snapshot but no option rows
func (r *GormFreightQuoteRepository) ListWithoutOptions(ctx context.Context, filter freight.ScanFilter) ([]freight.Quote, error) {
	var rows []models.FreightQuoteModel
	if err := r.db.WithContext(ctx).
		Where("delivery_options_raw IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM freight_quote_options o WHERE o.freight_quote_id = freight_quotes.id)").
		Scopes(keysetScope(filter, "quoted_at")).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	quotes := make([]freight.Quote, len(rows))
	for i := range rows {
		quotes[i] = *rows[i].ToDomain()
	}
	return quotes, nil
}

// bulkDateSplit runs a date split update statement built around unnest(ids, days, clocks)
func bulkDateSplit(ctx context.Context, db *gorm.DB, stmt string, updates []freight.DateSplitUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	ids := make([]int64, len(updates))
	days := make([]string, len(updates))
	clocks := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
		days[i] = u.Day.Format("2006-01-02")
		clocks[i] = u.Time
	}
	result := db.WithContext(ctx).Exec(stmt, pq.Array(ids), pq.Array(days), pq.Array(clocks))
	return result.RowsAffected, result.Error
}
