package freight

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/movmais/backend/internal/domain/freight"
)

var (
	windowStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
)

func orderRow(externalID string) freight.OrderRow {
	return freight.OrderRow{Order: freight.Order{ExternalID: externalID}}
}

// pagedSource answers page N with pages[N-1] and an empty page afterwards
func pagedSource(pages ...[]freight.OrderRow) *MockOrderSource {
	src := new(MockOrderSource)
	for i, rows := range pages {
		page := i + 1
		src.On("FetchOrders", mock.Anything, mock.MatchedBy(func(r freight.OrderPageRequest) bool { return r.Page == page })).
			Return(rows, nil)
	}
	src.On("FetchOrders", mock.Anything, mock.MatchedBy(func(r freight.OrderPageRequest) bool { return r.Page > len(pages) })).
		Return([]freight.OrderRow{}, nil)
	return src
}

func newTestIngestion(orders *memoryOrderRepository, source freight.OrderSource, reconciler *QuoteReconciler) *OrderIngestionService {
	return NewOrderIngestionService(orders, source, reconciler, testClassifier{}, testScope, time.UTC, nil)
}

func TestOrderIngestionService_Run(t *testing.T) {
	ctx := context.Background()
	req := OrderIngestionRequest{Start: windowStart, End: windowEnd, PageSize: 3}

	t.Run("row repeated across pages is counted as deduplicated", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		src := pagedSource(
			[]freight.OrderRow{orderRow("A"), orderRow("B"), orderRow("C")},
			[]freight.OrderRow{orderRow("C"), orderRow("D")},
		)

		stats, err := newTestIngestion(orders, src, nil).Run(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, 2, stats.PagesFetched)
		assert.Equal(t, 5, stats.RowsFetched)
		assert.Equal(t, 4, stats.Inserted)
		assert.Equal(t, 1, stats.Deduplicated)
		assert.Equal(t, 0, stats.SkippedExisting)
		assert.Len(t, orders.orders, 4)
	})

	t.Run("rerun over the same window inserts nothing", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		pages := [][]freight.OrderRow{
			{orderRow("A"), orderRow("B")},
			{orderRow("C")},
		}

		_, err := newTestIngestion(orders, pagedSource(pages...), nil).Run(ctx, req)
		require.NoError(t, err)
		stats, err := newTestIngestion(orders, pagedSource(pages...), nil).Run(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, 0, stats.Inserted)
		assert.Equal(t, 3, stats.SkippedExisting)
		assert.Len(t, orders.orders, 3)
	})

	t.Run("unique violation on insert is counted, not fatal", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		orders.createErr = fmt.Errorf("insert: %w", errUnique)

		stats, err := newTestIngestion(orders, pagedSource([]freight.OrderRow{orderRow("A")}), nil).Run(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.SkippedDuplicate)
		assert.Equal(t, 0, stats.Inserted)
	})

	t.Run("invalid rows are counted and skipped", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		rows := []freight.OrderRow{
			{Err: freight.ErrInvalidOrder},
			orderRow(""),
			orderRow("A"),
		}

		stats, err := newTestIngestion(orders, pagedSource(rows), nil).Run(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Invalid)
		assert.Equal(t, 1, stats.Inserted)
	})

	t.Run("row rejected by a column constraint is invalid, not fatal", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		orders.rejectIDs = map[string]error{"B": fmt.Errorf("insert: %w", errData)}
		src := pagedSource(
			[]freight.OrderRow{orderRow("A"), orderRow("B"), orderRow("C")},
			[]freight.OrderRow{orderRow("D")},
		)

		stats, err := newTestIngestion(orders, src, nil).Run(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, 2, stats.PagesFetched)
		assert.Equal(t, 3, stats.Inserted)
		assert.Equal(t, 1, stats.Invalid)
		assert.Contains(t, orders.orders, "D")
		assert.NotContains(t, orders.orders, "B")
	})

	t.Run("missing table becomes ErrSchemaMissing", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		orders.existsErr = errMissing

		_, err := newTestIngestion(orders, pagedSource([]freight.OrderRow{orderRow("A")}), nil).Run(ctx, req)
		require.ErrorIs(t, err, freight.ErrSchemaMissing)
		assert.Contains(t, err.Error(), "migrate up")
	})

	t.Run("other insert errors are fatal", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		orders.createErr = errors.New("connection reset")

		_, err := newTestIngestion(orders, pagedSource([]freight.OrderRow{orderRow("A")}), nil).Run(ctx, req)
		require.Error(t, err)
		assert.NotErrorIs(t, err, freight.ErrSchemaMissing)
	})

	t.Run("fetch error stops the run with partial stats", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		src := new(MockOrderSource)
		src.On("FetchOrders", mock.Anything, mock.MatchedBy(func(r freight.OrderPageRequest) bool { return r.Page == 1 })).
			Return([]freight.OrderRow{orderRow("A")}, nil)
		src.On("FetchOrders", mock.Anything, mock.MatchedBy(func(r freight.OrderPageRequest) bool { return r.Page == 2 })).
			Return(nil, freight.ErrRateLimited)

		stats, err := newTestIngestion(orders, src, nil).Run(ctx, req)
		require.ErrorIs(t, err, freight.ErrRateLimited)
		assert.Equal(t, 1, stats.Inserted)
	})

	t.Run("reconciler failure does not block the order", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		quotes := newMemoryQuoteRepository()
		qs := new(MockQuoteSource)
		qs.On("FetchQuote", mock.Anything, "Q-1").Return(nil, errors.New("vendor exploded"))
		qs.On("FetchQuote", mock.Anything, "Q-2").Return(sampleSnapshot(), nil)
		reconciler := NewQuoteReconciler(quotes, qs, nil, testClassifier{}, testScope, nil)

		a, b := orderRow("A"), orderRow("B")
		a.Order.QuoteID = ptr("Q-1")
		b.Order.QuoteID = ptr("Q-2")

		stats, err := newTestIngestion(orders, pagedSource([]freight.OrderRow{a, b}), reconciler).Run(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Inserted)
		assert.Equal(t, 1, stats.QuoteErrors)
		assert.Equal(t, 1, stats.QuotesConfirmed)
		assert.Len(t, quotes.quotes, 1)
	})

	t.Run("applies shipment maxima and local split", func(t *testing.T) {
		orders := newMemoryOrderRepository()
		est := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		act := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		placed := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

		row := orderRow("A")
		row.Order.OrderDate = &placed
		row.Shipments = []freight.Shipment{
			{DeliveredAt: &act},
			{EstimatedDeliveryAt: &est},
		}

		loc, err := time.LoadLocation("America/Sao_Paulo")
		require.NoError(t, err)
		svc := NewOrderIngestionService(orders, pagedSource([]freight.OrderRow{row}), nil, testClassifier{}, testScope, loc, nil)
		_, err = svc.Run(ctx, req)
		require.NoError(t, err)

		stored := orders.orders["A"]
		assert.True(t, est.Equal(*stored.EstimatedDeliveryAt))
		assert.True(t, act.Equal(*stored.DeliveredAt))
		assert.Equal(t, "2024-01-09", stored.OrderDay.Format("2006-01-02"))
		assert.Equal(t, "23:00:00", *stored.OrderTime)
		assert.Equal(t, int64(7), stored.CompanyID)
	})

	t.Run("rejects out of range page size", func(t *testing.T) {
		src := new(MockOrderSource)
		_, err := newTestIngestion(newMemoryOrderRepository(), src, nil).Run(ctx, OrderIngestionRequest{Start: windowStart, End: windowEnd, PageSize: 501})
		require.Error(t, err)
		src.AssertNotCalled(t, "FetchOrders", mock.Anything, mock.Anything)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		_, err := newTestIngestion(newMemoryOrderRepository(), new(MockOrderSource), nil).
			Run(ctx, OrderIngestionRequest{Start: windowEnd, End: windowStart, PageSize: 10})
		require.Error(t, err)
	})
}

func TestOrderIngestionStats_Counters(t *testing.T) {
	c := OrderIngestionStats{Inserted: 3, SkippedDuplicate: 1}.Counters()
	assert.Equal(t, 3, c["inserted"])
	assert.Equal(t, 1, c["skipped_duplicate_on_insert"])
	assert.Contains(t, c, "quotes_failed")
}
