package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/payload"
)

// FreightHubClient reads orders and quote details from the FreightHub API
type FreightHubClient struct {
	config  *FreightHubConfig
	fetcher JSONFetcher
}

// NewFreightHubClient creates a client for one tenant installation
func NewFreightHubClient(config *FreightHubConfig, fetcher JSONFetcher) (*FreightHubClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &FreightHubClient{config: config, fetcher: fetcher}, nil
}

var (
	_ freight.OrderSource = (*FreightHubClient)(nil)
	_ freight.QuoteSource = (*FreightHubClient)(nil)
)

// HasQuoteCredential reports whether quote details can be fetched
func (c *FreightHubClient) HasQuoteCredential() bool {
	return c.config.QuoteToken != ""
}

// FetchOrders returns one page of orders. An empty slice ends the window.
func (c *FreightHubClient) FetchOrders(ctx context.Context, req freight.OrderPageRequest) ([]freight.OrderRow, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("date_field", c.config.DateField)
	q.Set("start_date", req.Start.In(c.config.Location).Format("2006-01-02 15:04:05"))
	q.Set("end_date", req.End.In(c.config.Location).Format("2006-01-02 15:04:05"))

	resp, err := c.fetcher.FetchJSON(ctx, c.config.APIBaseURL+"/orders?"+q.Encode(), c.config.Token)
	if err != nil {
		return nil, fmt.Errorf("freighthub: list orders page %d: %w", req.Page, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("freighthub: list orders page %d: %w", req.Page, err)
	}

	rows := orderArray(resp.JSON)
	out := make([]freight.OrderRow, 0, len(rows))
	for _, v := range rows {
		rec, ok := payload.AsRecord(v)
		if !ok {
			out = append(out, freight.OrderRow{Err: fmt.Errorf("%w: not an object", freight.ErrInvalidOrder)})
			continue
		}
		out = append(out, c.convertOrder(rec))
	}
	return out, nil
}

// FetchQuote returns the quote detail, or nil when the payload lacks the "return" object
func (c *FreightHubClient) FetchQuote(ctx context.Context, quoteID string) (*freight.QuoteSnapshot, error) {
	endpoint := c.config.APIBaseURL + "/quotes/" + url.PathEscape(quoteID)
	resp, err := c.fetcher.FetchJSON(ctx, endpoint, c.config.QuoteToken)
	if err != nil {
		return nil, fmt.Errorf("freighthub: get quote %s: %w", quoteID, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("freighthub: get quote %s: %w", quoteID, err)
	}

	body, ok := payload.AsRecord(resp.JSON)
	if !ok {
		return nil, nil
	}
	ret := body.Object("return")
	if ret == nil {
		return nil, nil
	}
	return c.convertQuote(ret, quoteID), nil
}

// checkStatus maps non-2xx responses to domain errors
func checkStatus(resp *JSONResponse) error {
	if resp.OK() {
		return nil
	}
	if strings.Contains(strings.ToLower(resp.Raw), "store not found") {
		return fmt.Errorf("%w: HTTP %d", freight.ErrStoreNotFound, resp.Status)
	}
	if resp.Status == 429 {
		return freight.ErrRateLimited
	}
	return fmt.Errorf("%w: HTTP %d: %s", freight.ErrUnexpectedStatus, resp.Status, truncate(resp.Raw, 300))
}

// orderArray accepts a bare array or an envelope with a data/orders array
func orderArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	if rec, ok := payload.AsRecord(v); ok {
		return rec.Array("data", "orders", "items")
	}
	return nil
}

// convertOrder maps a vendor order row; tenant fields are filled by the caller
func (c *FreightHubClient) convertOrder(rec payload.Record) freight.OrderRow {
	loc := c.config.Location
	externalID, ok := payload.PickString(rec, "id", "external_id", "order_id")
	if !ok {
		return freight.OrderRow{Err: fmt.Errorf("%w: missing id", freight.ErrInvalidOrder)}
	}

	order := freight.Order{
		Platform:      integration.PlatformFreightHub,
		ExternalID:    externalID,
		OrderDate:     payload.OptTime(rec, loc, "order_date", "created_at", "date"),
		Store:         payload.OptString(rec, "store", "store_name"),
		Channel:       payload.OptString(rec, "channel", "marketplace"),
		FreightAmount: payload.OptDecimal(rec, "freight_amount", "shipping_amount"),
		FreightCost:   payload.OptDecimal(rec, "freight_cost", "shipping_cost"),
		QuoteDelta:    payload.OptDecimal(rec, "quote_delta", "freight_delta"),
		QuoteID:       payload.OptString(rec, "quote_id", "freight_quote_id"),
		Raw:           payload.MustJSON(map[string]any(rec)),
	}
	if code, ok := payload.PickString(rec, "code", "order_code"); ok {
		normalized := freight.NormalizeOrderCode(code)
		order.OrderCode = &normalized
	}
	if order.OrderDate != nil {
		day, clock := freight.SplitLocal(*order.OrderDate, loc)
		order.OrderDay, order.OrderTime = &day, &clock
	}
	if d := rec.Object("delivery", "shipping_address", "address"); d != nil {
		order.DeliveryZip = payload.OptString(d, "zipcode", "zip", "postal_code")
		order.DeliveryState = payload.OptString(d, "state", "uf")
		order.DeliveryCity = payload.OptString(d, "city")
		order.DeliveryNeighborhood = payload.OptString(d, "neighborhood", "district")
		order.DeliveryStreet = payload.OptString(d, "street", "address")
		order.DeliveryNumber = payload.OptString(d, "number")
		order.DeliveryComplement = payload.OptString(d, "complement")
	}

	shipments := rec.Records("shipments")
	row := freight.OrderRow{Order: order, Shipments: make([]freight.Shipment, 0, len(shipments))}
	for _, s := range shipments {
		row.Shipments = append(row.Shipments, freight.Shipment{
			EstimatedDeliveryAt: payload.OptTime(s, loc, "estimated_delivery_date", "estimated_delivery_at"),
			DeliveredAt:         payload.OptTime(s, loc, "delivered_at", "delivery_date"),
			DeliveryDeltaDays:   payload.OptFloat(s, "delivery_delta_days", "delta_days"),
		})
	}
	return row
}

// convertQuote maps the "return" object of a quote detail
func (c *FreightHubClient) convertQuote(ret payload.Record, requestedID string) *freight.QuoteSnapshot {
	loc := c.config.Location
	quoteID, ok := payload.PickString(ret, "quote_id", "id")
	if !ok {
		quoteID = requestedID
	}

	q := freight.Quote{
		Platform:           integration.PlatformFreightHub,
		QuoteID:            quoteID,
		ExternalQuoteID:    payload.OptString(ret, "external_quote_id", "external_id"),
		QuotedAt:           payload.OptTime(ret, loc, "created_at", "quoted_at", "date"),
		Timings:            ret.Raw("timings"),
		Restrictions:       ret.Raw("restrictions"),
		DeliveryOptionsRaw: ret.Raw("delivery_options"),
		CartRaw:            ret.Raw("cart"),
		Raw:                payload.MustJSON(map[string]any(ret)),
	}
	if q.QuotedAt != nil {
		day, clock := freight.SplitLocal(*q.QuotedAt, loc)
		q.QuoteDate, q.QuoteTime = &day, &clock
	}
	if d := ret.Object("destination"); d != nil {
		q.DestinationZip = payload.OptString(d, "zipcode", "zip", "postal_code")
		q.DestinationState = payload.OptString(d, "state", "uf")
		q.DestinationCity = payload.OptString(d, "city")
	}
	cart := ret.Object("cart")
	if cart != nil {
		q.InvoiceValue = payload.OptDecimal(cart, "invoice_value", "total")
		q.CartWeight = payload.OptDecimal(cart, "weight", "total_weight")
		q.CartVolume = payload.OptDecimal(cart, "volume", "total_volume")
		q.PackageCount = payload.OptInt(cart, "packages", "package_count")
	}
	if ch := ret.Object("channel"); ch != nil {
		q.ChannelName = payload.OptString(ch, "name")
		q.StoreName = payload.OptString(ch, "store", "store_name")
		q.ChannelConfig = ch.Raw("config")
	}

	snap := &freight.QuoteSnapshot{Quote: q}
	snap.Options = ConvertQuoteOptions(ret.Array("delivery_options"))
	if cart != nil {
		snap.Items = convertQuoteItems(cart.Array("products", "items"))
	}
	return snap
}

// ConvertQuoteOptions maps the vendor delivery_options array. Line indexes are
// the array positions, so non-object entries leave a gap rather than shifting.
func ConvertQuoteOptions(arr []any) []freight.QuoteOption {
	out := make([]freight.QuoteOption, 0, len(arr))
	for i, v := range arr {
		opt, ok := payload.AsRecord(v)
		if !ok {
			continue
		}
		o := freight.QuoteOption{
			LineIndex:     i,
			ShippingValue: payload.OptDecimal(opt, "shipping_value", "price"),
			ShippingCost:  payload.OptDecimal(opt, "shipping_cost", "cost"),
			HasStock:      payload.OptBool(opt, "has_stock", "in_stock"),
			Raw:           payload.MustJSON(map[string]any(opt)),
		}
		if carrier := opt.Object("carrier"); carrier != nil {
			o.CarrierID = payload.OptString(carrier, "id")
			o.CarrierName = payload.OptString(carrier, "name")
		}
		if wh := opt.Object("warehouse"); wh != nil {
			o.WarehouseID = payload.OptString(wh, "id")
			o.WarehouseName = payload.OptString(wh, "name")
		}
		deadlines := opt.Object("deadlines")
		if deadlines == nil {
			deadlines = opt
		}
		o.DeadlineCarrier = payload.OptInt(deadlines, "carrier", "deadline_carrier")
		o.DeadlineHoliday = payload.OptInt(deadlines, "holiday", "deadline_holiday")
		o.DeadlineWarehouse = payload.OptInt(deadlines, "warehouse", "deadline_warehouse")
		o.DeadlineTotal = payload.OptInt(deadlines, "total", "deadline_total", "deadline")
		out = append(out, o)
	}
	return out
}

// DecodeQuoteOptions maps a stored delivery_options snapshot
func DecodeQuoteOptions(raw json.RawMessage) ([]freight.QuoteOption, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("freighthub: decode delivery options: %w", err)
	}
	return ConvertQuoteOptions(arr), nil
}

func convertQuoteItems(arr []any) []freight.QuoteItem {
	out := make([]freight.QuoteItem, 0, len(arr))
	for i, v := range arr {
		p, ok := payload.AsRecord(v)
		if !ok {
			continue
		}
		out = append(out, freight.QuoteItem{
			LineIndex:      i,
			SKU:            payload.OptString(p, "sku", "code"),
			Name:           payload.OptString(p, "name", "title"),
			Quantity:       payload.OptDecimal(p, "quantity", "qty"),
			UnitPrice:      payload.OptDecimal(p, "unit_price", "price"),
			Weight:         payload.OptDecimal(p, "weight"),
			StoreReference: payload.OptString(p, "store_reference"),
			Raw:            payload.MustJSON(map[string]any(p)),
		})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
