// Package catalog defines the sellable product types the checkout flow reads:
// physical books with tracked stock, online courses, and bundle offers that
// group several books under one discounted price.
package catalog

import "github.com/shopspring/decimal"

type Book struct {
	ID            int64
	Title         string
	Author        string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal // zero when the book never had a list price
	StockQuantity int
	IsDeleted     bool
}

// Purchasable reports whether the book may enter a new order: soft-deleted
// books stay visible on historical orders but are never sold again.
func (b Book) Purchasable() bool {
	return !b.IsDeleted && b.StockQuantity > 0
}

type Course struct {
	ID    int64
	Title string
	Price decimal.Decimal
}

// BundleOffer is a fixed set of books sold as one unit. SellingPrice is the
// aggregate discounted price; MRP is the sum the buyer would have paid at
// list prices.
type BundleOffer struct {
	ID           int64
	Title        string
	MRP          decimal.Decimal
	SellingPrice decimal.Decimal
	IsActive     bool
	Books        []Book
}

// PerBookPrice allocates the bundle's selling price evenly across member
// books, for order-item rows. Returns zero for an empty bundle.
func (b BundleOffer) PerBookPrice() decimal.Decimal {
	if len(b.Books) == 0 {
		return decimal.Zero
	}
	return b.SellingPrice.Div(decimal.NewFromInt(int64(len(b.Books))))
}
