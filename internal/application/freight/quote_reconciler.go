package freight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/freight"
)

// QuoteReconciler makes sure every quote referenced by an order has a local
// row, fetching it from the vendor at most once per run.
type QuoteReconciler struct {
	quotes     freight.QuoteRepository
	source     freight.QuoteSource
	products   *ProductResolver
	classifier freight.ErrorClassifier
	scope      RunScope
	logger     *zap.Logger
	now        func() time.Time

	confirmed map[string]struct{}
	failed    map[string]struct{}
}

// NewQuoteReconciler creates a reconciler for one run. A nil source means the
// installation has no quote credential: every id is marked failed without a call.
func NewQuoteReconciler(
	quotes freight.QuoteRepository,
	source freight.QuoteSource,
	products *ProductResolver,
	classifier freight.ErrorClassifier,
	scope RunScope,
	logger *zap.Logger,
) *QuoteReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteReconciler{
		quotes:     quotes,
		source:     source,
		products:   products,
		classifier: classifier,
		scope:      scope,
		logger:     logger,
		now:        time.Now,
		confirmed:  make(map[string]struct{}),
		failed:     make(map[string]struct{}),
	}
}

// Confirmed returns how many quote ids are known to exist locally
func (r *QuoteReconciler) Confirmed() int { return len(r.confirmed) }

// Failed returns how many quote ids were given up on this run
func (r *QuoteReconciler) Failed() int { return len(r.failed) }

// EnsureQuote reconciles one quote id. Errors are returned for the caller to
// log and absorb; they never leave a partially confirmed id behind.
func (r *QuoteReconciler) EnsureQuote(ctx context.Context, quoteID string) error {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return nil
	}
	if _, ok := r.confirmed[quoteID]; ok {
		return nil
	}
	if _, ok := r.failed[quoteID]; ok {
		return nil
	}

	if r.source == nil {
		r.failed[quoteID] = struct{}{}
		r.logger.Warn("No quote credential configured, skipping quote",
			zap.String("quote_id", quoteID))
		return nil
	}

	err := r.reconcile(ctx, quoteID)
	if err != nil && isStoreNotFound(err) {
		r.failed[quoteID] = struct{}{}
	}
	return err
}

func (r *QuoteReconciler) reconcile(ctx context.Context, quoteID string) error {
	existing, err := r.quotes.FindByQuoteID(ctx, r.scope.CompanyID, r.scope.Platform, quoteID)
	if err == nil {
		r.confirmed[quoteID] = struct{}{}
		r.logger.Debug("Quote already stored", zap.String("quote_id", quoteID), zap.Int64("id", existing.ID))
		return nil
	}
	if !errors.Is(err, freight.ErrQuoteNotFound) {
		return fmt.Errorf("look up quote %s: %w", quoteID, err)
	}

	snap, err := r.source.FetchQuote(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("fetch quote %s: %w", quoteID, err)
	}
	if snap == nil {
		r.logger.Warn("Quote payload without return object, skipping", zap.String("quote_id", quoteID))
		return nil
	}

	quote, err := r.insertQuote(ctx, quoteID, snap.Quote)
	if err != nil {
		return err
	}

	for i := range snap.Options {
		opt := snap.Options[i]
		opt.QuoteRef = quote.ID
		if err := r.quotes.CreateOption(ctx, &opt); err != nil && !r.classifier.IsUniqueViolation(err) {
			return fmt.Errorf("insert option %d of quote %s: %w", opt.LineIndex, quoteID, err)
		}
	}

	for i := range snap.Items {
		item := snap.Items[i]
		item.QuoteRef = quote.ID
		if err := r.resolveItem(ctx, &item); err != nil {
			return fmt.Errorf("resolve product of quote %s line %d: %w", quoteID, item.LineIndex, err)
		}
		if err := r.quotes.CreateItem(ctx, &item); err != nil && !r.classifier.IsUniqueViolation(err) {
			return fmt.Errorf("insert item %d of quote %s: %w", item.LineIndex, quoteID, err)
		}
	}

	r.confirmed[quoteID] = struct{}{}
	r.logger.Debug("Quote reconciled",
		zap.String("quote_id", quoteID),
		zap.Int64("id", quote.ID),
		zap.Int("options", len(snap.Options)),
		zap.Int("items", len(snap.Items)),
	)
	return nil
}

// insertQuote creates the quote row, or re-reads it when a concurrent run won the insert
func (r *QuoteReconciler) insertQuote(ctx context.Context, quoteID string, quote freight.Quote) (*freight.Quote, error) {
	quote.CompanyID = r.scope.CompanyID
	quote.Platform = r.scope.Platform
	quote.QuoteID = quoteID
	quote.CreatedAt = r.now()

	err := r.quotes.Create(ctx, &quote)
	if err == nil {
		return &quote, nil
	}
	if !r.classifier.IsUniqueViolation(err) {
		return nil, fmt.Errorf("insert quote %s: %w", quoteID, err)
	}

	existing, err := r.quotes.FindByQuoteID(ctx, r.scope.CompanyID, r.scope.Platform, quoteID)
	if err != nil {
		return nil, fmt.Errorf("re-read quote %s after duplicate insert: %w", quoteID, err)
	}
	return existing, nil
}

func (r *QuoteReconciler) resolveItem(ctx context.Context, item *freight.QuoteItem) error {
	if r.products == nil {
		return nil
	}
	var sku, storeRef string
	if item.SKU != nil {
		sku = *item.SKU
	}
	if item.StoreReference != nil {
		storeRef = *item.StoreReference
	}
	if sku == "" && storeRef == "" {
		return nil
	}

	match, err := r.products.Resolve(ctx, sku, storeRef)
	if err != nil {
		return err
	}
	item.ProductID = match.ProductID
	if match.StoreReference != "" {
		item.StoreReference = &match.StoreReference
	}
	if match.ExternalReference != "" {
		item.ExternalReference = &match.ExternalReference
	}
	return nil
}
