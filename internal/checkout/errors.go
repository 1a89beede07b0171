package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel precondition failures. Both are detected before any write; the
// caller redirects the user back to the cart or checkout form.
var (
	ErrEmptyCart        = errors.New("checkout: cart is empty")
	ErrPaymentReference = errors.New("checkout: missing payment reference")
)

// ValidationError reports missing or malformed customer-info fields.
// Recoverable: the user is re-prompted and no writes have occurred.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: invalid customer info: %s", strings.Join(e.Fields, ", "))
}

// InsufficientStockError means a cart line exceeds available stock or
// references a deleted book or inactive bundle. Recoverable, zero writes.
type InsufficientStockError struct {
	ItemTitle string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("checkout: insufficient stock for %q (available %d)", e.ItemTitle, e.Available)
}

// SettlementError wraps any failure during the write phase. The transaction
// has been rolled back in full; the caller shows a generic retry message.
type SettlementError struct {
	Err error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("checkout: settlement failed: %v", e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
