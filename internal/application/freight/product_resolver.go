package freight

import (
	"context"
	"errors"

	"github.com/movmais/backend/internal/domain/catalog"
)

// ProductResolver maps vendor cart SKUs to local products for one company.
// Lookups are cached for the run, misses included.
type ProductResolver struct {
	products  catalog.ProductRepository
	companyID int64
	bySKU     map[string]*int64
	byRef     map[string]*int64
}

// NewProductResolver creates a resolver with an empty cache
func NewProductResolver(products catalog.ProductRepository, companyID int64) *ProductResolver {
	return &ProductResolver{
		products:  products,
		companyID: companyID,
		bySKU:     make(map[string]*int64),
		byRef:     make(map[string]*int64),
	}
}

// ProductMatch is the outcome of resolving one cart line
type ProductMatch struct {
	ProductID         *int64
	StoreReference    string
	ExternalReference string
}

// Resolve applies the SKU heuristics and looks the candidate up. An explicit
// store reference from the payload is tried when the SKU yields nothing.
func (r *ProductResolver) Resolve(ctx context.Context, sku, storeReference string) (ProductMatch, error) {
	ref := catalog.ParseSKU(sku)
	match := ProductMatch{StoreReference: ref.StoreReference, ExternalReference: ref.ExternalReference}
	if match.StoreReference == "" {
		match.StoreReference = storeReference
	}

	if ref.ProductSKU != "" {
		id, err := r.lookup(ctx, r.bySKU, ref.ProductSKU, r.products.FindBySKU)
		if err != nil || id != nil {
			match.ProductID = id
			return match, err
		}
	}
	if match.StoreReference != "" {
		id, err := r.lookup(ctx, r.byRef, match.StoreReference, r.products.FindByStoreReference)
		match.ProductID = id
		return match, err
	}
	return match, nil
}

func (r *ProductResolver) lookup(
	ctx context.Context,
	cache map[string]*int64,
	key string,
	find func(context.Context, int64, string) (*catalog.Product, error),
) (*int64, error) {
	if id, ok := cache[key]; ok {
		return id, nil
	}
	p, err := find(ctx, r.companyID, key)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			cache[key] = nil
			return nil, nil
		}
		return nil, err
	}
	id := p.ID
	cache[key] = &id
	return &id, nil
}
