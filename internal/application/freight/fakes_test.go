package freight

import (
	"context"
	"errors"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/movmais/backend/internal/domain/catalog"
	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
)

var (
	errUnique  = errors.New("duplicate key value violates unique constraint")
	errMissing = errors.New(`relation "freight_orders" does not exist`)
	errData    = errors.New("value too long for type character varying(4)")
)

// testClassifier recognizes the sentinel errors above, wrapped or not
type testClassifier struct{}

func (testClassifier) IsUniqueViolation(err error) bool { return errors.Is(err, errUnique) }
func (testClassifier) IsMissingRelation(err error) bool { return errors.Is(err, errMissing) }
func (testClassifier) IsDataException(err error) bool { return errors.Is(err, errData) }

var testScope = RunScope{CompanyID: 7, Platform: integration.PlatformFreightHub}

// ---------------------------------------------------------------------------
// In-memory quote store enforcing the unique keys
// ---------------------------------------------------------------------------

type lineKey struct {
	quote int64
	line  int
}

type memoryQuoteRepository struct {
	nextID  int64
	quotes  map[string]*freight.Quote
	options map[lineKey]freight.QuoteOption
	items   map[lineKey]freight.QuoteItem

	// raceOnCreate makes the next Create lose to a concurrent insert of the same quote
	raceOnCreate bool
}

func newMemoryQuoteRepository() *memoryQuoteRepository {
	return &memoryQuoteRepository{
		quotes:  make(map[string]*freight.Quote),
		options: make(map[lineKey]freight.QuoteOption),
		items:   make(map[lineKey]freight.QuoteItem),
	}
}

func (r *memoryQuoteRepository) FindByQuoteID(_ context.Context, _ int64, _ integration.PlatformSlug, quoteID string) (*freight.Quote, error) {
	q, ok := r.quotes[quoteID]
	if !ok {
		return nil, freight.ErrQuoteNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *memoryQuoteRepository) Create(_ context.Context, quote *freight.Quote) error {
	if r.raceOnCreate {
		r.raceOnCreate = false
		r.nextID++
		winner := *quote
		winner.ID = r.nextID
		r.quotes[quote.QuoteID] = &winner
		return fmt.Errorf("insert: %w", errUnique)
	}
	if _, ok := r.quotes[quote.QuoteID]; ok {
		return errUnique
	}
	r.nextID++
	quote.ID = r.nextID
	cp := *quote
	r.quotes[quote.QuoteID] = &cp
	return nil
}

func (r *memoryQuoteRepository) CreateOption(_ context.Context, option *freight.QuoteOption) error {
	k := lineKey{option.QuoteRef, option.LineIndex}
	if _, ok := r.options[k]; ok {
		return errUnique
	}
	r.options[k] = *option
	return nil
}

func (r *memoryQuoteRepository) CreateItem(_ context.Context, item *freight.QuoteItem) error {
	k := lineKey{item.QuoteRef, item.LineIndex}
	if _, ok := r.items[k]; ok {
		return errUnique
	}
	r.items[k] = *item
	return nil
}

func (r *memoryQuoteRepository) ListPendingBestOption(context.Context, freight.ScanFilter) ([]freight.PendingBestOption, error) {
	return nil, nil
}

func (r *memoryQuoteRepository) UpdateBestOptions(context.Context, []freight.BestOptionUpdate) (int64, error) {
	return 0, nil
}

func (r *memoryQuoteRepository) ListPendingDateSplit(context.Context, freight.ScanFilter) ([]freight.TimestampRow, error) {
	return nil, nil
}

func (r *memoryQuoteRepository) UpdateDateSplit(context.Context, []freight.DateSplitUpdate) (int64, error) {
	return 0, nil
}

func (r *memoryQuoteRepository) ListWithoutOptions(context.Context, freight.ScanFilter) ([]freight.Quote, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------
// In-memory order store
// ---------------------------------------------------------------------------

type memoryOrderRepository struct {
	nextID int64
	orders map[string]freight.Order

	// createErr is returned by every Create when set
	createErr error
	// existsErr is returned by ExistingExternalIDs when set
	existsErr error
	// rejectIDs fails Create for the listed external ids only
	rejectIDs map[string]error
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{orders: make(map[string]freight.Order)}
}

func (r *memoryOrderRepository) ExistingExternalIDs(_ context.Context, _ int64, _ integration.PlatformSlug, ids []string) (map[string]struct{}, error) {
	if r.existsErr != nil {
		return nil, r.existsErr
	}
	out := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := r.orders[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *memoryOrderRepository) Create(_ context.Context, order *freight.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	if err, ok := r.rejectIDs[order.ExternalID]; ok {
		return err
	}
	if _, ok := r.orders[order.ExternalID]; ok {
		return errUnique
	}
	r.nextID++
	order.ID = r.nextID
	r.orders[order.ExternalID] = *order
	return nil
}

func (r *memoryOrderRepository) ListPendingDateSplit(context.Context, freight.ScanFilter) ([]freight.TimestampRow, error) {
	return nil, nil
}

func (r *memoryOrderRepository) UpdateDateSplit(context.Context, []freight.DateSplitUpdate) (int64, error) {
	return 0, nil
}

// ---------------------------------------------------------------------------
// testify mocks
// ---------------------------------------------------------------------------

// MockQuoteSource is a mock implementation of freight.QuoteSource
type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) FetchQuote(ctx context.Context, quoteID string) (*freight.QuoteSnapshot, error) {
	args := m.Called(ctx, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*freight.QuoteSnapshot), args.Error(1)
}

// MockOrderSource is a mock implementation of freight.OrderSource
type MockOrderSource struct {
	mock.Mock
}

func (m *MockOrderSource) FetchOrders(ctx context.Context, req freight.OrderPageRequest) ([]freight.OrderRow, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]freight.OrderRow), args.Error(1)
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, companyID int64, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, companyID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByStoreReference(ctx context.Context, companyID int64, ref string) (*catalog.Product, error) {
	args := m.Called(ctx, companyID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

// MockBatchQuoteRepository mocks the keyset and bulk update half of freight.QuoteRepository
type MockBatchQuoteRepository struct {
	memoryQuoteRepository
	mock.Mock
}

func (m *MockBatchQuoteRepository) ListPendingBestOption(ctx context.Context, filter freight.ScanFilter) ([]freight.PendingBestOption, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]freight.PendingBestOption), args.Error(1)
}

func (m *MockBatchQuoteRepository) UpdateBestOptions(ctx context.Context, updates []freight.BestOptionUpdate) (int64, error) {
	args := m.Called(ctx, updates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchQuoteRepository) ListPendingDateSplit(ctx context.Context, filter freight.ScanFilter) ([]freight.TimestampRow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]freight.TimestampRow), args.Error(1)
}

func (m *MockBatchQuoteRepository) UpdateDateSplit(ctx context.Context, updates []freight.DateSplitUpdate) (int64, error) {
	args := m.Called(ctx, updates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchQuoteRepository) ListWithoutOptions(ctx context.Context, filter freight.ScanFilter) ([]freight.Quote, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]freight.Quote), args.Error(1)
}

func (m *MockBatchQuoteRepository) CreateOption(ctx context.Context, option *freight.QuoteOption) error {
	args := m.Called(ctx, option)
	return args.Error(0)
}

func ptr[T any](v T) *T { return &v }
