package freight

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/freight"
)

// BestOptionStats are the counters of one best-option derivation run
type BestOptionStats struct {
	Batches      int
	Scanned      int
	Updated      int64
	NoCandidates int
}

// Counters returns the stats as the run log payload
func (s BestOptionStats) Counters() map[string]any {
	return map[string]any{
		"batches":       s.Batches,
		"scanned":       s.Scanned,
		"updated":       s.Updated,
		"no_candidates": s.NoCandidates,
	}
}

// BestOptionService fills best_deadline/best_cost of quotes that lack them
type BestOptionService struct {
	quotes     freight.QuoteRepository
	classifier freight.ErrorClassifier
	logger     *zap.Logger
}

// NewBestOptionService creates a new BestOptionService
func NewBestOptionService(quotes freight.QuoteRepository, classifier freight.ErrorClassifier, logger *zap.Logger) *BestOptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestOptionService{quotes: quotes, classifier: classifier, logger: logger}
}

// Run walks pending quotes newest first and writes one bulk update per batch.
// Quotes without a valid option stay unset and are skipped by the keyset cursor.
func (s *BestOptionService) Run(ctx context.Context, req BatchRequest) (BestOptionStats, error) {
	var stats BestOptionStats
	var before int64
	for {
		filter := req.filter(before)
		pending, err := s.quotes.ListPendingBestOption(ctx, filter)
		if err != nil {
			return stats, storeError(s.classifier, "list quotes without best option", err)
		}
		if len(pending) == 0 {
			return stats, nil
		}
		stats.Batches++
		stats.Scanned += len(pending)

		updates := make([]freight.BestOptionUpdate, 0, len(pending))
		for _, p := range pending {
			best := freight.SelectBestOption(p.Candidates)
			if !best.Found() {
				stats.NoCandidates++
				continue
			}
			updates = append(updates, freight.BestOptionUpdate{
				QuoteRef: p.QuoteRef,
				Deadline: int(math.Round(*best.Deadline)),
				Cost:     decimal.NewFromFloat(*best.Price).Round(2),
			})
		}

		n, err := s.quotes.UpdateBestOptions(ctx, updates)
		if err != nil {
			return stats, storeError(s.classifier, "update best options", err)
		}
		stats.Updated += n

		s.logger.Info("Best option batch done",
			zap.Int("batch", stats.Batches),
			zap.Int("scanned", len(pending)),
			zap.Int64("updated", n),
		)

		before = pending[len(pending)-1].QuoteRef
		if len(pending) < filter.Limit {
			return stats, nil
		}
	}
}
