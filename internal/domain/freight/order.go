package freight

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/movmais/backend/internal/domain/integration"
)

// Order is a vendor order, unique per (company, platform, external id).
// QuoteID is a string join key to Quote.QuoteID, not a foreign key.
type Order struct {
	ID         int64
	CompanyID  int64
	Platform   integration.PlatformSlug
	ExternalID string

	OrderDate *time.Time
	OrderCode *string
	Store     *string
	Channel   *string

	FreightAmount *decimal.Decimal
	FreightCost   *decimal.Decimal
	QuoteDelta    *decimal.Decimal

	DeliveryZip          *string
	DeliveryState        *string
	DeliveryCity         *string
	DeliveryNeighborhood *string
	DeliveryStreet       *string
	DeliveryNumber       *string
	DeliveryComplement   *string

	EstimatedDeliveryAt *time.Time
	DeliveredAt         *time.Time
	DeliveryDeltaDays   *float64

	QuoteID *string

	OrderDay  *time.Time
	OrderTime *string

	Raw       json.RawMessage
	CreatedAt time.Time
}

// Shipment is one nested shipment entry of a vendor order
type Shipment struct {
	EstimatedDeliveryAt *time.Time
	DeliveredAt         *time.Time
	DeliveryDeltaDays   *float64
}

// ShipmentMaxima holds the order-level values derived from all shipments
type ShipmentMaxima struct {
	EstimatedDeliveryAt *time.Time
	DeliveredAt         *time.Time
	DeliveryDeltaDays   *float64
}

// DeriveShipmentMaxima folds shipments with the null-tolerant maximum of each field
func DeriveShipmentMaxima(shipments []Shipment) ShipmentMaxima {
	var m ShipmentMaxima
	for _, s := range shipments {
		m.EstimatedDeliveryAt = MaxTime(m.EstimatedDeliveryAt, s.EstimatedDeliveryAt)
		m.DeliveredAt = MaxTime(m.DeliveredAt, s.DeliveredAt)
		m.DeliveryDeltaDays = MaxFloat(m.DeliveryDeltaDays, s.DeliveryDeltaDays)
	}
	return m
}

// MaxTime returns the greater of a and b; nil loses, and b wins ties.
func MaxTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if !b.Before(*a) {
		return b
	}
	return a
}

// MaxFloat returns the greater of a and b; nil loses, and b wins ties.
func MaxFloat(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *b >= *a {
		return b
	}
	return a
}

// Apply copies the maxima onto the order
func (m ShipmentMaxima) Apply(o *Order) {
	o.EstimatedDeliveryAt = m.EstimatedDeliveryAt
	o.DeliveredAt = m.DeliveredAt
	o.DeliveryDeltaDays = m.DeliveryDeltaDays
}

// SplitLocal converts t into a calendar date and a HH:MM:SS clock in loc
func SplitLocal(t time.Time, loc *time.Location) (day time.Time, clock string) {
	local := t.In(loc)
	day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return day, local.Format("15:04:05")
}
