// Package cart holds the session-scoped shopping cart: an ordered list of
// lines pending purchase, plus the staged checkout contact info the buyer
// submits before being redirected to the payment gateway.
package cart

import "github.com/shopspring/decimal"

// ItemType discriminates what a cart line refers to.
type ItemType string

const (
	ItemBook   ItemType = "book"
	ItemCourse ItemType = "course"
	ItemBundle ItemType = "bundle"
)

// Valid reports whether t is one of the three known item types.
func (t ItemType) Valid() bool {
	return t == ItemBook || t == ItemCourse || t == ItemBundle
}

// Line is one item pending purchase. ItemID points into the catalog table
// named by ItemType; the type is fixed when the line is created.
type Line struct {
	ItemID    int64           `json:"item_id"`
	ItemType  ItemType        `json:"item_type"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Snapshot is the immutable cart state handed to the settlement engine.
// The engine never touches the session; it works from this value alone.
type Snapshot struct {
	Lines []Line
}

func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// Subtotal is the sum of price x quantity across all lines, before any
// delivery charge.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
