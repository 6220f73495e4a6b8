package freight

import (
	"context"
	"regexp"
	"time"
)

// OrderPageRequest addresses one page of the vendor orders endpoint
type OrderPageRequest struct {
	Page  int
	Limit int
	Start time.Time
	End   time.Time
}

// OrderRow is one mapped vendor order row; Err is set when the row is unusable
type OrderRow struct {
	Order     Order
	Shipments []Shipment
	Err       error
}

// OrderSource lists vendor orders page by page; an empty page ends the window
type OrderSource interface {
	FetchOrders(ctx context.Context, req OrderPageRequest) ([]OrderRow, error)
}

// QuoteSource fetches one quote detail. A nil snapshot with a nil error means
// the vendor answered without the expected payload.
type QuoteSource interface {
	FetchQuote(ctx context.Context, quoteID string) (*QuoteSnapshot, error)
}

var trailingDigits = regexp.MustCompile(`(\d+)\s*$`)

// NormalizeOrderCode keeps the trailing run of digits of a vendor order code,
// or the code unchanged when it has none.
func NormalizeOrderCode(code string) string {
	m := trailingDigits.FindStringSubmatch(code)
	if m == nil {
		return code
	}
	return m[1]
}
