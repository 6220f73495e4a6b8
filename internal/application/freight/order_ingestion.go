package freight

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/freight"
)

// Page size bounds accepted by the orders endpoint
const (
	MinPageSize = 1
	MaxPageSize = 500
)

// OrderIngestionRequest is the window one ingestion run covers
type OrderIngestionRequest struct {
	Start    time.Time
	End      time.Time
	PageSize int
}

// OrderIngestionStats are the counters of one ingestion run
type OrderIngestionStats struct {
	PagesFetched     int
	RowsFetched      int
	Inserted         int
	SkippedExisting  int
	Deduplicated     int
	SkippedDuplicate int
	Invalid          int
	QuoteErrors      int
	QuotesConfirmed  int
	QuotesFailed     int
}

// Counters returns the stats as the run log payload
func (s OrderIngestionStats) Counters() map[string]any {
	return map[string]any{
		"pages_fetched":               s.PagesFetched,
		"rows_fetched":                s.RowsFetched,
		"inserted":                    s.Inserted,
		"skipped_existing":            s.SkippedExisting,
		"deduplicated":                s.Deduplicated,
		"skipped_duplicate_on_insert": s.SkippedDuplicate,
		"invalid":                     s.Invalid,
		"quote_errors":                s.QuoteErrors,
		"quotes_confirmed":            s.QuotesConfirmed,
		"quotes_failed":               s.QuotesFailed,
	}
}

// OrderIngestionService pages through vendor orders and inserts the new ones
type OrderIngestionService struct {
	orders     freight.OrderRepository
	source     freight.OrderSource
	reconciler *QuoteReconciler
	classifier freight.ErrorClassifier
	scope      RunScope
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrderIngestionService creates the ingestion loop for one run
func NewOrderIngestionService(
	orders freight.OrderRepository,
	source freight.OrderSource,
	reconciler *QuoteReconciler,
	classifier freight.ErrorClassifier,
	scope RunScope,
	location *time.Location,
	logger *zap.Logger,
) *OrderIngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &OrderIngestionService{
		orders:     orders,
		source:     source,
		reconciler: reconciler,
		classifier: classifier,
		scope:      scope,
		location:   location,
		logger:     logger,
		now:        time.Now,
	}
}

// Run ingests every page of the window until the vendor returns an empty page.
// Pages are processed strictly in order. The returned stats are valid on error too.
func (s *OrderIngestionService) Run(ctx context.Context, req OrderIngestionRequest) (stats OrderIngestionStats, err error) {
	defer s.collectQuoteStats(&stats)

	if req.PageSize < MinPageSize || req.PageSize > MaxPageSize {
		return stats, fmt.Errorf("page size must be between %d and %d, got %d", MinPageSize, MaxPageSize, req.PageSize)
	}
	if req.End.Before(req.Start) {
		return stats, fmt.Errorf("window end %s is before start %s", req.End.Format(time.RFC3339), req.Start.Format(time.RFC3339))
	}

	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		var rows []freight.OrderRow
		rows, err = s.source.FetchOrders(ctx, freight.OrderPageRequest{
			Page:  page,
			Limit: req.PageSize,
			Start: req.Start,
			End:   req.End,
		})
		if err != nil {
			return stats, fmt.Errorf("fetch orders page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}
		stats.PagesFetched++
		stats.RowsFetched += len(rows)

		if err = s.processPage(ctx, page, rows, seen, &stats); err != nil {
			return stats, err
		}
		s.logger.Info("Orders page processed",
			zap.Int("page", page),
			zap.Int("rows", len(rows)),
			zap.Int("inserted_total", stats.Inserted),
		)
	}
	return stats, nil
}

func (s *OrderIngestionService) processPage(
	ctx context.Context,
	page int,
	rows []freight.OrderRow,
	seen map[string]struct{},
	stats *OrderIngestionStats,
) error {
	fresh := make([]freight.OrderRow, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Err != nil || row.Order.ExternalID == "" {
			stats.Invalid++
			s.logger.Debug("Skipping invalid order row", zap.Int("page", page), zap.Error(row.Err))
			continue
		}
		if _, dup := seen[row.Order.ExternalID]; dup {
			stats.Deduplicated++
			continue
		}
		seen[row.Order.ExternalID] = struct{}{}
		fresh = append(fresh, row)
		ids = append(ids, row.Order.ExternalID)
	}
	if len(fresh) == 0 {
		return nil
	}

	existing, err := s.orders.ExistingExternalIDs(ctx, s.scope.CompanyID, s.scope.Platform, ids)
	if err != nil {
		return storeError(s.classifier, "check existing orders", err)
	}

	for _, row := range fresh {
		if _, ok := existing[row.Order.ExternalID]; ok {
			stats.SkippedExisting++
			continue
		}
		if err := s.ingestRow(ctx, row, stats); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderIngestionService) ingestRow(ctx context.Context, row freight.OrderRow, stats *OrderIngestionStats) error {
	order := row.Order

	if order.QuoteID != nil && s.reconciler != nil {
		if err := s.reconciler.EnsureQuote(ctx, *order.QuoteID); err != nil {
			if s.classifier.IsMissingRelation(err) {
				return storeError(s.classifier, "reconcile quote", err)
			}
			stats.QuoteErrors++
			s.logger.Warn("Quote reconciliation failed, inserting order anyway",
				zap.String("external_id", order.ExternalID),
				zap.String("quote_id", *order.QuoteID),
				zap.Error(err),
			)
		}
	}

	freight.DeriveShipmentMaxima(row.Shipments).Apply(&order)
	order.CompanyID = s.scope.CompanyID
	order.Platform = s.scope.Platform
	if order.OrderDate != nil && (order.OrderDay == nil || order.OrderTime == nil) {
		day, clock := freight.SplitLocal(*order.OrderDate, s.location)
		order.OrderDay, order.OrderTime = &day, &clock
	}
	order.CreatedAt = s.now()

	if err := s.orders.Create(ctx, &order); err != nil {
		if s.classifier.IsUniqueViolation(err) {
			stats.SkippedDuplicate++
			return nil
		}
		if s.classifier.IsDataException(err) {
			stats.Invalid++
			s.logger.Warn("Order rejected by the store, skipping",
				zap.String("external_id", order.ExternalID),
				zap.Error(err),
			)
			return nil
		}
		return storeError(s.classifier, "insert order "+order.ExternalID, err)
	}
	stats.Inserted++
	return nil
}

func (s *OrderIngestionService) collectQuoteStats(stats *OrderIngestionStats) {
	if s.reconciler == nil {
		return
	}
	stats.QuotesConfirmed = s.reconciler.Confirmed()
	stats.QuotesFailed = s.reconciler.Failed()
}
