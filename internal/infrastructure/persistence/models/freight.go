package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
)

// FreightQuoteModel is the persistence model for a freight quote
type FreightQuoteModel struct {
	ID              int64                    `gorm:"primaryKey;autoIncrement"`
	CompanyID       int64                    `gorm:"not null;uniqueIndex:uq_freight_quotes_company_platform_quote,priority:1"`
	PlatformSlug    integration.PlatformSlug `gorm:"type:varchar(40);not null;uniqueIndex:uq_freight_quotes_company_platform_quote,priority:2"`
	QuoteID         string                   `gorm:"type:varchar(100);not null;uniqueIndex:uq_freight_quotes_company_platform_quote,priority:3"`
	ExternalQuoteID *string                  `gorm:"type:text"`
	QuotedAt        *time.Time

	DestinationZip   *string `gorm:"type:text"`
	DestinationState *string `gorm:"type:text"`
	DestinationCity  *string `gorm:"type:text"`

	InvoiceValue *decimal.Decimal `gorm:"type:numeric(14,2)"`
	CartWeight   *decimal.Decimal `gorm:"type:numeric(14,4)"`
	CartVolume   *decimal.Decimal `gorm:"type:numeric(14,6)"`
	PackageCount *int

	ChannelName *string `gorm:"type:text"`
	StoreName   *string `gorm:"type:text"`

	BestDeadline *int
	BestCost     *decimal.Decimal `gorm:"type:numeric(14,2)"`

	QuoteDate *time.Time `gorm:"type:date"`
	QuoteTime *string    `gorm:"type:time"`

	Timings            *string `gorm:"type:jsonb"`
	ChannelConfig      *string `gorm:"type:jsonb"`
	Restrictions       *string `gorm:"type:jsonb"`
	DeliveryOptionsRaw *string `gorm:"type:jsonb;column:delivery_options_raw"`
	CartRaw            *string `gorm:"type:jsonb;column:cart_raw"`
	Raw                *string `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FreightQuoteModel) TableName() string {
	return "freight_quotes"
}

// ToDomain converts the persistence model to a domain Quote
func (m *FreightQuoteModel) ToDomain() *freight.Quote {
	return &freight.Quote{
		ID:                 m.ID,
		CompanyID:          m.CompanyID,
		Platform:           m.PlatformSlug,
		QuoteID:            m.QuoteID,
		ExternalQuoteID:    m.ExternalQuoteID,
		QuotedAt:           m.QuotedAt,
		DestinationZip:     m.DestinationZip,
		DestinationState:   m.DestinationState,
		DestinationCity:    m.DestinationCity,
		InvoiceValue:       m.InvoiceValue,
		CartWeight:         m.CartWeight,
		CartVolume:         m.CartVolume,
		PackageCount:       m.PackageCount,
		ChannelName:        m.ChannelName,
		StoreName:          m.StoreName,
		BestDeadline:       m.BestDeadline,
		BestCost:           m.BestCost,
		QuoteDate:          m.QuoteDate,
		QuoteTime:          m.QuoteTime,
		Timings:            ptrToRaw(m.Timings),
		ChannelConfig:      ptrToRaw(m.ChannelConfig),
		Restrictions:       ptrToRaw(m.Restrictions),
		DeliveryOptionsRaw: ptrToRaw(m.DeliveryOptionsRaw),
		CartRaw:            ptrToRaw(m.CartRaw),
		Raw:                ptrToRaw(m.Raw),
		CreatedAt:          m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Quote
func (m *FreightQuoteModel) FromDomain(q *freight.Quote) {
	m.ID = q.ID
	m.CompanyID = q.CompanyID
	m.PlatformSlug = q.Platform
	m.QuoteID = q.QuoteID
	m.ExternalQuoteID = q.ExternalQuoteID
	m.QuotedAt = q.QuotedAt
	m.DestinationZip = q.DestinationZip
	m.DestinationState = q.DestinationState
	m.DestinationCity = q.DestinationCity
	m.InvoiceValue = q.InvoiceValue
	m.CartWeight = q.CartWeight
	m.CartVolume = q.CartVolume
	m.PackageCount = q.PackageCount
	m.ChannelName = q.ChannelName
	m.StoreName = q.StoreName
	m.BestDeadline = q.BestDeadline
	m.BestCost = q.BestCost
	m.QuoteDate = q.QuoteDate
	m.QuoteTime = q.QuoteTime
	m.Timings = rawToPtr(q.Timings)
	m.ChannelConfig = rawToPtr(q.ChannelConfig)
	m.Restrictions = rawToPtr(q.Restrictions)
	m.DeliveryOptionsRaw = rawToPtr(q.DeliveryOptionsRaw)
	m.CartRaw = rawToPtr(q.CartRaw)
	m.Raw = rawToPtr(q.Raw)
	m.CreatedAt = q.CreatedAt
}

// FreightQuoteOptionModel is the persistence model for a quote delivery option
type FreightQuoteOptionModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	QuoteRef  int64 `gorm:"column:freight_quote_id;not null;uniqueIndex:uq_freight_quote_options_line,priority:1"`
	LineIndex int   `gorm:"not null;uniqueIndex:uq_freight_quote_options_line,priority:2"`

	ShippingValue *decimal.Decimal `gorm:"type:numeric(14,2)"`
	ShippingCost  *decimal.Decimal `gorm:"type:numeric(14,2)"`

	CarrierID     *string `gorm:"type:text"`
	CarrierName   *string `gorm:"type:text"`
	WarehouseID   *string `gorm:"type:text"`
	WarehouseName *string `gorm:"type:text"`

	DeadlineCarrier   *int
	DeadlineHoliday   *int
	DeadlineWarehouse *int
	DeadlineTotal     *int

	HasStock *bool
	Raw      *string `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (FreightQuoteOptionModel) TableName() string {
	return "freight_quote_options"
}

// FromDomain populates the persistence model from a domain QuoteOption
func (m *FreightQuoteOptionModel) FromDomain(o *freight.QuoteOption) {
	m.ID = o.ID
	m.QuoteRef = o.QuoteRef
	m.LineIndex = o.LineIndex
	m.ShippingValue = o.ShippingValue
	m.ShippingCost = o.ShippingCost
	m.CarrierID = o.CarrierID
	m.CarrierName = o.CarrierName
	m.WarehouseID = o.WarehouseID
	m.WarehouseName = o.WarehouseName
	m.DeadlineCarrier = o.DeadlineCarrier
	m.DeadlineHoliday = o.DeadlineHoliday
	m.DeadlineWarehouse = o.DeadlineWarehouse
	m.DeadlineTotal = o.DeadlineTotal
	m.HasStock = o.HasStock
	m.Raw = rawToPtr(o.Raw)
}

// FreightQuoteItemModel is the persistence model for a quote cart line
type FreightQuoteItemModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	QuoteRef  int64 `gorm:"column:freight_quote_id;not null;uniqueIndex:uq_freight_quote_items_line,priority:1"`
	LineIndex int   `gorm:"not null;uniqueIndex:uq_freight_quote_items_line,priority:2"`

	SKU               *string          `gorm:"column:sku;type:text"`
	ProductID         *int64           `gorm:"index"`
	Name              *string          `gorm:"type:text"`
	Quantity          *decimal.Decimal `gorm:"type:numeric(12,3)"`
	UnitPrice         *decimal.Decimal `gorm:"type:numeric(14,2)"`
	Weight            *decimal.Decimal `gorm:"type:numeric(14,4)"`
	StoreReference    *string          `gorm:"type:text"`
	ExternalReference *string          `gorm:"type:text"`

	Raw *string `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (FreightQuoteItemModel) TableName() string {
	return "freight_quote_items"
}

// FromDomain populates the persistence model from a domain QuoteItem
func (m *FreightQuoteItemModel) FromDomain(i *freight.QuoteItem) {
	m.ID = i.ID
	m.QuoteRef = i.QuoteRef
	m.LineIndex = i.LineIndex
	m.SKU = i.SKU
	m.ProductID = i.ProductID
	m.Name = i.Name
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.Weight = i.Weight
	m.StoreReference = i.StoreReference
	m.ExternalReference = i.ExternalReference
	m.Raw = rawToPtr(i.Raw)
}

// FreightOrderModel is the persistence model for a freight order
type FreightOrderModel struct {
	ID           int64                    `gorm:"primaryKey;autoIncrement"`
	CompanyID    int64                    `gorm:"not null;uniqueIndex:uq_freight_orders_company_platform_external,priority:1"`
	PlatformSlug integration.PlatformSlug `gorm:"type:varchar(40);not null;uniqueIndex:uq_freight_orders_company_platform_external,priority:2"`
	ExternalID   string                   `gorm:"type:varchar(100);not null;uniqueIndex:uq_freight_orders_company_platform_external,priority:3"`

	OrderDate *time.Time
	OrderCode *string `gorm:"type:text"`
	Store     *string `gorm:"type:text"`
	Channel   *string `gorm:"type:text"`

	FreightAmount *decimal.Decimal `gorm:"type:numeric(14,2)"`
	FreightCost   *decimal.Decimal `gorm:"type:numeric(14,2)"`
	QuoteDelta    *decimal.Decimal `gorm:"type:numeric(14,2)"`

	DeliveryZip          *string `gorm:"type:text"`
	DeliveryState        *string `gorm:"type:text"`
	DeliveryCity         *string `gorm:"type:text"`
	DeliveryNeighborhood *string `gorm:"type:text"`
	DeliveryStreet       *string `gorm:"type:text"`
	DeliveryNumber       *string `gorm:"type:text"`
	DeliveryComplement   *string `gorm:"type:text"`

	EstimatedDeliveryAt *time.Time
	DeliveredAt         *time.Time
	DeliveryDeltaDays   *float64

	QuoteID *string `gorm:"type:varchar(100);index"`

	OrderDay  *time.Time `gorm:"type:date"`
	OrderTime *string    `gorm:"type:time"`

	Raw       *string   `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FreightOrderModel) TableName() string {
	return "freight_orders"
}

// FromDomain populates the persistence model from a domain Order
func (m *FreightOrderModel) FromDomain(o *freight.Order) {
	m.ID = o.ID
	m.CompanyID = o.CompanyID
	m.PlatformSlug = o.Platform
	m.ExternalID = o.ExternalID
	m.OrderDate = o.OrderDate
	m.OrderCode = o.OrderCode
	m.Store = o.Store
	m.Channel = o.Channel
	m.FreightAmount = o.FreightAmount
	m.FreightCost = o.FreightCost
	m.QuoteDelta = o.QuoteDelta
	m.DeliveryZip = o.DeliveryZip
	m.DeliveryState = o.DeliveryState
	m.DeliveryCity = o.DeliveryCity
	m.DeliveryNeighborhood = o.DeliveryNeighborhood
	m.DeliveryStreet = o.DeliveryStreet
	m.DeliveryNumber = o.DeliveryNumber
	m.DeliveryComplement = o.DeliveryComplement
	m.EstimatedDeliveryAt = o.EstimatedDeliveryAt
	m.DeliveredAt = o.DeliveredAt
	m.DeliveryDeltaDays = o.DeliveryDeltaDays
	m.QuoteID = o.QuoteID
	m.OrderDay = o.OrderDay
	m.OrderTime = o.OrderTime
	m.Raw = rawToPtr(o.Raw)
	m.CreatedAt = o.CreatedAt
}
