package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeSavings(t *testing.T) {
	tests := []struct {
		name        string
		bundle      BundleOffer
		wantMRP     string
		wantSavings string
		wantPct     string
	}{
		{
			name: "uses original price when present",
			bundle: BundleOffer{
				SellingPrice: d("500"),
				Books: []Book{
					{Price: d("300"), OriginalPrice: d("400")},
					{Price: d("350")},
				},
			},
			wantMRP:     "750",
			wantSavings: "250",
			wantPct:     "33.33",
		},
		{
			name: "selling price above mrp clamps to zero savings",
			bundle: BundleOffer{
				SellingPrice: d("900"),
				Books:        []Book{{Price: d("400")}, {Price: d("400")}},
			},
			wantMRP:     "800",
			wantSavings: "0",
			wantPct:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSavings(tt.bundle)
			assert.True(t, got.TotalMRP.Equal(d(tt.wantMRP)), "mrp = %s", got.TotalMRP)
			assert.True(t, got.SavingsAmount.Equal(d(tt.wantSavings)), "savings = %s", got.SavingsAmount)
			assert.True(t, got.SavingsPercentage.Round(2).Equal(d(tt.wantPct)), "pct = %s", got.SavingsPercentage)
		})
	}
}

func TestComputeSavingsEmptyBundle(t *testing.T) {
	got := ComputeSavings(BundleOffer{SellingPrice: d("100")})
	assert.True(t, got.TotalMRP.IsZero())
	assert.True(t, got.SavingsAmount.IsZero())
	assert.True(t, got.SavingsPercentage.IsZero())
}

func TestPerBookPrice(t *testing.T) {
	b := BundleOffer{
		SellingPrice: d("500"),
		Books:        []Book{{ID: 1}, {ID: 2}},
	}
	assert.True(t, b.PerBookPrice().Equal(d("250")))
	assert.True(t, BundleOffer{SellingPrice: d("500")}.PerBookPrice().IsZero())
}
