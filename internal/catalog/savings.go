package catalog

import "github.com/shopspring/decimal"

// Savings is the buyer-facing discount breakdown shown on bundle pages.
type Savings struct {
	TotalMRP          decimal.Decimal
	SavingsAmount     decimal.Decimal
	SavingsPercentage decimal.Decimal
}

// ComputeSavings compares a bundle's selling price against the sum of its
// member books' list prices (falling back to the current price when a book
// has no separate list price).
//
// It never fails: a bundle with no books, or with a non-positive total MRP,
// yields a zeroed Savings rather than an error or a negative discount.
func ComputeSavings(b BundleOffer) Savings {
	totalMRP := decimal.Zero
	for _, book := range b.Books {
		p := book.OriginalPrice
		if p.IsZero() {
			p = book.Price
		}
		totalMRP = totalMRP.Add(p)
	}

	if !totalMRP.IsPositive() {
		return Savings{}
	}

	savings := totalMRP.Sub(b.SellingPrice)
	if savings.IsNegative() {
		savings = decimal.Zero
	}

	return Savings{
		TotalMRP:          totalMRP,
		SavingsAmount:     savings,
		SavingsPercentage: savings.Div(totalMRP).Mul(decimal.NewFromInt(100)),
	}
}
