package freight

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/movmais/backend/internal/domain/integration"
)

// ScanFilter bounds a keyset scan over quotes or orders, newest first
type ScanFilter struct {
	CompanyID int64 // 0 = all companies
	From      *time.Time
	To        *time.Time
	BeforeID  int64 // 0 = start from the newest row
	Limit     int
}

// PendingBestOption is a quote whose best pair is unset, with its option candidates
type PendingBestOption struct {
	QuoteRef   int64
	Candidates []OptionCandidate
}

// BestOptionUpdate is one row of a bulk best-option update
type BestOptionUpdate struct {
	QuoteRef int64
	Deadline int
	Cost     decimal.Decimal
}

// TimestampRow is a row whose source timestamp still needs a local date/time split
type TimestampRow struct {
	ID        int64
	CompanyID int64
	At        time.Time
}

// DateSplitUpdate is one row of a bulk date/time split update
type DateSplitUpdate struct {
	ID   int64
	Day  time.Time
	Time string
}

// QuoteRepository persists quotes and their options and items
type QuoteRepository interface {
	FindByQuoteID(ctx context.Context, companyID int64, platform integration.PlatformSlug, quoteID string) (*Quote, error)
	Create(ctx context.Context, quote *Quote) error
	CreateOption(ctx context.Context, option *QuoteOption) error
	CreateItem(ctx context.Context, item *QuoteItem) error

	ListPendingBestOption(ctx context.Context, filter ScanFilter) ([]PendingBestOption, error)
	UpdateBestOptions(ctx context.Context, updates []BestOptionUpdate) (int64, error)

	ListPendingDateSplit(ctx context.Context, filter ScanFilter) ([]TimestampRow, error)
	UpdateDateSplit(ctx context.Context, updates []DateSplitUpdate) (int64, error)

	// ListWithoutOptions returns quotes that have a raw delivery options snapshot but no option rows
	ListWithoutOptions(ctx context.Context, filter ScanFilter) ([]Quote, error)
}

// OrderRepository persists orders
type OrderRepository interface {
	// ExistingExternalIDs returns which of ids are already stored for the tenant
	ExistingExternalIDs(ctx context.Context, companyID int64, platform integration.PlatformSlug, ids []string) (map[string]struct{}, error)
	Create(ctx context.Context, order *Order) error

	ListPendingDateSplit(ctx context.Context, filter ScanFilter) ([]TimestampRow, error)
	UpdateDateSplit(ctx context.Context, updates []DateSplitUpdate) (int64, error)
}
