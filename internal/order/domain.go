// Package order defines the durable records a settlement produces. All rows
// are written exactly once inside the settlement transaction and are
// immutable afterwards, except Order.Status (administrative override) and
// book stock, which the settlement decrements.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Order is one checkout's purchase record. TotalAmount is set once at
// creation and includes the delivery charge.
type Order struct {
	ID          int64
	UserID      int64
	Status      Status
	TotalAmount decimal.Decimal
	DateCreated time.Time
}

// Item is one book line within an order. Bundle lines expand into one Item
// per member book, each carrying the per-unit price allocation.
type Item struct {
	OrderID  int64
	BookID   int64
	Quantity int
	Price    decimal.Decimal
}

// Enrollment grants a user access to a course. Unique per (user, course);
// re-purchasing a course is a no-op.
type Enrollment struct {
	UserID           int64
	CourseID         int64
	EnrollmentDate   time.Time
	CompletionStatus string
}

// Transaction is the payment record tied to an order. Amount always equals
// the order's TotalAmount.
type Transaction struct {
	ID          int64
	OrderID     int64
	Amount      decimal.Decimal
	PaymentID   string
	Status      string
	DateCreated time.Time
}

// Customer is the denormalized shipping profile, at most one per user.
type Customer struct {
	ID            int64
	UserID        int64
	FullName      string
	Email         string
	Phone         string
	StreetAddress string
	City          string
	State         string
	Pincode       string
}

// FullOrderDetail is the flattened audit row, one per original cart line
// (bundles are not expanded here).
//
// Consistency rule: item_type == 'bundle' implies BundleID != nil and
// *BundleID == ItemID; any other item type implies BundleID == nil. The
// sqlite schema enforces this with a CHECK constraint.
type FullOrderDetail struct {
	OrderID       int64
	TransactionID int64
	CustomerID    int64
	BundleID      *int64
	CustomOrderID string
	ItemID        int64
	ItemType      cart.ItemType
	ItemTitle     string
	Quantity      int
	Price         decimal.Decimal
	FullName      string
	Email         string
	Phone         string
	Address       string
	CreatedAt     time.Time
}
