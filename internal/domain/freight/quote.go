package freight

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/movmais/backend/internal/domain/integration"
)

// Quote is one vendor freight simulation, unique per (company, platform, quote id).
// Only the best-option pair and the date/time split columns change after insert.
type Quote struct {
	ID              int64
	CompanyID       int64
	Platform        integration.PlatformSlug
	QuoteID         string
	ExternalQuoteID *string
	QuotedAt        *time.Time

	DestinationZip   *string
	DestinationState *string
	DestinationCity  *string

	InvoiceValue *decimal.Decimal
	CartWeight   *decimal.Decimal
	CartVolume   *decimal.Decimal
	PackageCount *int

	ChannelName *string
	StoreName   *string

	BestDeadline *int
	BestCost     *decimal.Decimal

	QuoteDate *time.Time
	QuoteTime *string

	Timings            json.RawMessage
	ChannelConfig      json.RawMessage
	Restrictions       json.RawMessage
	DeliveryOptionsRaw json.RawMessage
	CartRaw            json.RawMessage
	Raw                json.RawMessage

	CreatedAt time.Time
}

// QuoteOption is one carrier/service alternative inside a quote, unique per (quote, line index)
type QuoteOption struct {
	ID        int64
	QuoteRef  int64
	LineIndex int

	ShippingValue *decimal.Decimal
	ShippingCost  *decimal.Decimal

	CarrierID     *string
	CarrierName   *string
	WarehouseID   *string
	WarehouseName *string

	DeadlineCarrier   *int
	DeadlineHoliday   *int
	DeadlineWarehouse *int
	DeadlineTotal     *int

	HasStock *bool
	Raw      json.RawMessage
}

// QuoteItem is one cart line inside a quote, unique per (quote, line index)
type QuoteItem struct {
	ID        int64
	QuoteRef  int64
	LineIndex int

	SKU               *string
	ProductID         *int64
	Name              *string
	Quantity          *decimal.Decimal
	UnitPrice         *decimal.Decimal
	Weight            *decimal.Decimal
	StoreReference    *string
	ExternalReference *string

	Raw json.RawMessage
}

// QuoteSnapshot is a quote detail as mapped from the vendor, before insert
type QuoteSnapshot struct {
	Quote   Quote
	Options []QuoteOption
	Items   []QuoteItem
}
