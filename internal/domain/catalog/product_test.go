package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSKU(t *testing.T) {
	tests := []struct {
		sku  string
		want SKUReference
	}{
		{sku: "253-1657", want: SKUReference{ProductSKU: "253"}},
		{sku: "253_azul", want: SKUReference{ProductSKU: "253"}},
		{sku: "45145[160151]", want: SKUReference{StoreReference: "45145", ExternalReference: "160151"}},
		{sku: "12345", want: SKUReference{StoreReference: "12345"}},
		{sku: "1000", want: SKUReference{ProductSKU: "1000"}},
		{sku: "ABC-1", want: SKUReference{ProductSKU: "ABC-1"}},
		{sku: "CAMISA", want: SKUReference{ProductSKU: "CAMISA"}},
		{sku: "  ", want: SKUReference{}},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSKU(tt.sku))
		})
	}
}
