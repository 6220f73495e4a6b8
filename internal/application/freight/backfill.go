package freight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/freight"
)

// ---------------------------------------------------------------------------
// Date/time split
// ---------------------------------------------------------------------------

// DateSplitEntity names the table a date split backfill works on
type DateSplitEntity string

const (
	DateSplitQuotes DateSplitEntity = "quotes"
	DateSplitOrders DateSplitEntity = "orders"
)

// ParseDateSplitEntity validates an entity name
func ParseDateSplitEntity(s string) (DateSplitEntity, error) {
	switch e := DateSplitEntity(s); e {
	case DateSplitQuotes, DateSplitOrders:
		return e, nil
	}
	return "", fmt.Errorf("unknown entity %q, expected quotes or orders", s)
}

// DateSplitStore is the part of a repository a date split backfill needs.
// Both QuoteRepository and OrderRepository satisfy it.
type DateSplitStore interface {
	ListPendingDateSplit(ctx context.Context, filter freight.ScanFilter) ([]freight.TimestampRow, error)
	UpdateDateSplit(ctx context.Context, updates []freight.DateSplitUpdate) (int64, error)
}

// BackfillStats are the counters of a keyset backfill run
type BackfillStats struct {
	Batches int
	Scanned int
	Updated int64
	Skipped int
}

// Counters returns the stats as the run log payload
func (s BackfillStats) Counters() map[string]any {
	return map[string]any{
		"batches": s.Batches,
		"scanned": s.Scanned,
		"updated": s.Updated,
		"skipped": s.Skipped,
	}
}

// DateSplitBackfill fills local date and time columns from a stored timestamp
type DateSplitBackfill struct {
	store      DateSplitStore
	location   *time.Location
	classifier freight.ErrorClassifier
	logger     *zap.Logger
}

// NewDateSplitBackfill creates a backfill splitting timestamps in location
func NewDateSplitBackfill(store DateSplitStore, location *time.Location, classifier freight.ErrorClassifier, logger *zap.Logger) *DateSplitBackfill {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &DateSplitBackfill{store: store, location: location, classifier: classifier, logger: logger}
}

// Run splits every pending row of the window, one bulk update per batch
func (b *DateSplitBackfill) Run(ctx context.Context, req BatchRequest) (BackfillStats, error) {
	var stats BackfillStats
	var before int64
	for {
		filter := req.filter(before)
		rows, err := b.store.ListPendingDateSplit(ctx, filter)
		if err != nil {
			return stats, storeError(b.classifier, "list rows without date split", err)
		}
		if len(rows) == 0 {
			return stats, nil
		}
		stats.Batches++
		stats.Scanned += len(rows)

		updates := make([]freight.DateSplitUpdate, 0, len(rows))
		for _, row := range rows {
			if row.At.IsZero() {
				stats.Skipped++
				continue
			}
			day, clock := freight.SplitLocal(row.At, b.location)
			updates = append(updates, freight.DateSplitUpdate{ID: row.ID, Day: day, Time: clock})
		}

		n, err := b.store.UpdateDateSplit(ctx, updates)
		if err != nil {
			return stats, storeError(b.classifier, "update date split", err)
		}
		stats.Updated += n
		b.logger.Info("Date split batch done", zap.Int("batch", stats.Batches), zap.Int64("updated", n))

		before = rows[len(rows)-1].ID
		if len(rows) < filter.Limit {
			return stats, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Quote options from the stored snapshot
// ---------------------------------------------------------------------------

// OptionDecoder maps a stored raw delivery options snapshot into option rows
type OptionDecoder func(raw json.RawMessage) ([]freight.QuoteOption, error)

// QuoteOptionsStats are the counters of a quote options backfill
type QuoteOptionsStats struct {
	Batches          int
	Quotes           int
	OptionsInserted  int
	OptionsDuplicate int
	OptionsRejected  int
	DecodeErrors     int
}

// Counters returns the stats as the run log payload
func (s QuoteOptionsStats) Counters() map[string]any {
	return map[string]any{
		"batches":           s.Batches,
		"quotes":            s.Quotes,
		"options_inserted":  s.OptionsInserted,
		"options_duplicate": s.OptionsDuplicate,
		"options_rejected":  s.OptionsRejected,
		"decode_errors":     s.DecodeErrors,
	}
}

// QuoteOptionsBackfill recreates missing option rows from delivery_options_raw
type QuoteOptionsBackfill struct {
	quotes     freight.QuoteRepository
	decode     OptionDecoder
	classifier freight.ErrorClassifier
	logger     *zap.Logger
}

// NewQuoteOptionsBackfill creates a new QuoteOptionsBackfill
func NewQuoteOptionsBackfill(quotes freight.QuoteRepository, decode OptionDecoder, classifier freight.ErrorClassifier, logger *zap.Logger) *QuoteOptionsBackfill {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteOptionsBackfill{quotes: quotes, decode: decode, classifier: classifier, logger: logger}
}

// Run inserts the options of every quote in the window that has none.
// A snapshot that cannot be decoded is counted and skipped.
func (b *QuoteOptionsBackfill) Run(ctx context.Context, req BatchRequest) (QuoteOptionsStats, error) {
	var stats QuoteOptionsStats
	var before int64
	for {
		filter := req.filter(before)
		quotes, err := b.quotes.ListWithoutOptions(ctx, filter)
		if err != nil {
			return stats, storeError(b.classifier, "list quotes without options", err)
		}
		if len(quotes) == 0 {
			return stats, nil
		}
		stats.Batches++

		for _, q := range quotes {
			stats.Quotes++
			options, err := b.decode(q.DeliveryOptionsRaw)
			if err != nil {
				stats.DecodeErrors++
				b.logger.Warn("Cannot decode delivery options snapshot",
					zap.Int64("quote", q.ID), zap.Error(err))
				continue
			}
			for i := range options {
				opt := options[i]
				opt.QuoteRef = q.ID
				if err := b.quotes.CreateOption(ctx, &opt); err != nil {
					if b.classifier.IsUniqueViolation(err) {
						stats.OptionsDuplicate++
						continue
					}
					if b.classifier.IsDataException(err) {
						stats.OptionsRejected++
						b.logger.Warn("Delivery option rejected by the store, skipping",
							zap.Int64("quote", q.ID), zap.Int("line", opt.LineIndex), zap.Error(err))
						continue
					}
					return stats, storeError(b.classifier, fmt.Sprintf("insert option %d of quote %d", opt.LineIndex, q.ID), err)
				}
				stats.OptionsInserted++
			}
		}
		b.logger.Info("Quote options batch done",
			zap.Int("batch", stats.Batches),
			zap.Int("options_inserted", stats.OptionsInserted),
		)

		before = quotes[len(quotes)-1].ID
		if len(quotes) < filter.Limit {
			return stats, nil
		}
	}
}
