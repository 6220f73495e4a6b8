// Package catalog holds the tenant product catalog as seen by ingestion:
// products are looked up, never created, by the freight pipeline.
package catalog

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var ErrProductNotFound = errors.New("catalog: product not found")

// Product is a locally known product
type Product struct {
	ID             int64
	CompanyID      int64
	SKU            string
	StoreReference *string
	Name           string
}

// ProductRepository is the read-only product lookup used during ingestion
type ProductRepository interface {
	FindBySKU(ctx context.Context, companyID int64, sku string) (*Product, error)
	FindByStoreReference(ctx context.Context, companyID int64, ref string) (*Product, error)
}

// SKUReference is what a vendor SKU tells us about the local product
type SKUReference struct {
	// ProductSKU is the candidate local SKU, empty when the SKU looks like a store reference
	ProductSKU string
	// StoreReference is the candidate store reference
	StoreReference string
	// ExternalReference is the variant reference carried in brackets, if any
	ExternalReference string
}

var bracketedReference = regexp.MustCompile(`^(\d+)\[(\d+)\]$`)

// storeReferenceFloor separates short internal SKUs from store reference numbers
const storeReferenceFloor = 1000

// ParseSKU applies the vendor SKU heuristics:
//   - "45145[160151]" is a store reference with an external variant reference
//   - "253-1657" or "253_A" carries the product SKU before the first separator
//   - a bare integer above 1000 is a store reference
//   - anything else is taken as the product SKU itself
func ParseSKU(sku string) SKUReference {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return SKUReference{}
	}

	if m := bracketedReference.FindStringSubmatch(sku); m != nil {
		return SKUReference{StoreReference: m[1], ExternalReference: m[2]}
	}

	if i := strings.IndexAny(sku, "-_"); i >= 0 {
		prefix := sku[:i]
		if isDigits(prefix) {
			return SKUReference{ProductSKU: prefix}
		}
		return SKUReference{ProductSKU: sku}
	}

	if n, err := strconv.ParseInt(sku, 10, 64); err == nil && n > storeReferenceFloor {
		return SKUReference{StoreReference: sku}
	}

	return SKUReference{ProductSKU: sku}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
