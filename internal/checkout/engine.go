// Package checkout implements the settlement engine: the atomic conversion
// of a session cart plus a payment confirmation into durable order records.
//
// The engine is pure given its inputs: the HTTP layer owns the session and
// clears the cart after a successful settlement. Every write happens inside
// one store transaction; a failure at any point rolls the whole settlement
// back.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/customer"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

// Orders below this subtotal pay a flat delivery charge.
var (
	freeDeliveryThreshold = decimal.NewFromInt(500)
	deliveryCharge        = decimal.NewFromInt(60)
)

// PaymentConfirmation is the reference handed back by the payment gateway's
// redirect. The gateway has already verified the payment; the engine trusts
// the id and only requires it to be non-empty.
type PaymentConfirmation struct {
	PaymentID string
}

// OrderSummary is returned to the caller for the confirmation page.
type OrderSummary struct {
	CustomOrderID string
	PaymentID     string
	Amount        decimal.Decimal
	Date          time.Time
}

// Engine runs settlements against a catalog and a transactional store.
type Engine struct {
	catalog CatalogReader
	store   Store
	now     func() time.Time
}

func NewEngine(catalog CatalogReader, store Store) *Engine {
	return &Engine{catalog: catalog, store: store, now: time.Now}
}

// Settle converts the cart snapshot into Order, OrderItem, Enrollment,
// Transaction and FullOrderDetail rows, upserting the customer profile and
// deducting book stock, all inside one transaction.
//
// Validation failures (*ValidationError, *InsufficientStockError) are
// returned before anything is written. Any write-phase failure rolls back
// completely and surfaces as *SettlementError.
func (e *Engine) Settle(
	ctx context.Context,
	userID int64,
	snapshot cart.Snapshot,
	payment PaymentConfirmation,
	info customer.Info,
) (*OrderSummary, error) {
	if fields := info.InvalidFields(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if snapshot.Empty() {
		return nil, ErrEmptyCart
	}
	if payment.PaymentID == "" {
		return nil, ErrPaymentReference
	}
	for _, line := range snapshot.Lines {
		if !line.ItemType.Valid() {
			return nil, fmt.Errorf("checkout: unknown item type %q", line.ItemType)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("checkout: non-positive quantity for %q", line.Title)
		}
	}

	if err := e.validateStock(ctx, snapshot); err != nil {
		return nil, err
	}

	tx, err := e.store.BeginSettlement(ctx)
	if err != nil {
		return nil, &SettlementError{Err: err}
	}

	summary, err := e.settle(ctx, tx, userID, snapshot, payment, info)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "settlement rollback failed", "user_id", userID, "error", rbErr)
		}
		return nil, &SettlementError{Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &SettlementError{Err: err}
	}
	return summary, nil
}

// validateStock is the read-only pass preceding any write. It fails fast so
// the user can fix the cart with zero side effects; the authoritative check
// is the guarded decrement inside the transaction.
func (e *Engine) validateStock(ctx context.Context, snapshot cart.Snapshot) error {
	for _, line := range snapshot.Lines {
		switch line.ItemType {
		case cart.ItemBook:
			book, err := e.catalog.Book(ctx, line.ItemID)
			if err != nil {
				return fmt.Errorf("checkout: validate book %d: %w", line.ItemID, err)
			}
			if book.IsDeleted {
				return &InsufficientStockError{ItemTitle: book.Title}
			}
			if book.StockQuantity < line.Quantity {
				return &InsufficientStockError{ItemTitle: book.Title, Available: book.StockQuantity}
			}
		case cart.ItemBundle:
			bundle, err := e.catalog.Bundle(ctx, line.ItemID)
			if err != nil {
				return fmt.Errorf("checkout: validate bundle %d: %w", line.ItemID, err)
			}
			if !bundle.IsActive {
				return &InsufficientStockError{ItemTitle: bundle.Title}
			}
			for _, book := range bundle.Books {
				if book.StockQuantity < line.Quantity {
					return &InsufficientStockError{ItemTitle: book.Title, Available: book.StockQuantity}
				}
			}
		case cart.ItemCourse:
			if _, err := e.catalog.Course(ctx, line.ItemID); err != nil {
				return fmt.Errorf("checkout: validate course %d: %w", line.ItemID, err)
			}
		}
	}
	return nil
}

// settle is the write phase. The caller owns commit/rollback.
func (e *Engine) settle(
	ctx context.Context,
	tx Tx,
	userID int64,
	snapshot cart.Snapshot,
	payment PaymentConfirmation,
	info customer.Info,
) (*OrderSummary, error) {
	now := e.now()

	customerID, err := tx.UpsertCustomer(ctx, userID, info)
	if err != nil {
		return nil, err
	}

	subtotal := snapshot.Subtotal()
	delivery := decimal.Zero
	if subtotal.LessThan(freeDeliveryThreshold) {
		delivery = deliveryCharge
	}
	finalAmount := subtotal.Add(delivery).Round(2)

	orderID, err := tx.InsertOrder(ctx, order.Order{
		UserID:      userID,
		Status:      order.StatusCompleted,
		TotalAmount: finalAmount,
		DateCreated: now,
	})
	if err != nil {
		return nil, err
	}

	customOrderID := CustomOrderID(now, payment.PaymentID)

	for _, line := range snapshot.Lines {
		switch line.ItemType {
		case cart.ItemCourse:
			err = tx.InsertEnrollment(ctx, order.Enrollment{
				UserID:           userID,
				CourseID:         line.ItemID,
				EnrollmentDate:   now,
				CompletionStatus: "enrolled",
			})
		case cart.ItemBundle:
			err = e.settleBundle(ctx, tx, orderID, line)
		case cart.ItemBook:
			err = e.settleBook(ctx, tx, orderID, line, line.UnitPrice)
		}
		if err != nil {
			return nil, err
		}
	}

	transactionID, err := tx.InsertTransaction(ctx, order.Transaction{
		OrderID:     orderID,
		Amount:      finalAmount,
		PaymentID:   payment.PaymentID,
		Status:      "completed",
		DateCreated: now,
	})
	if err != nil {
		return nil, err
	}

	// One audit row per original cart line; bundles stay unexpanded here.
	for _, line := range snapshot.Lines {
		detail := order.FullOrderDetail{
			OrderID:       orderID,
			TransactionID: transactionID,
			CustomerID:    customerID,
			CustomOrderID: customOrderID,
			ItemID:        line.ItemID,
			ItemType:      line.ItemType,
			ItemTitle:     line.Title,
			Quantity:      line.Quantity,
			Price:         line.UnitPrice,
			FullName:      info.FullName,
			Email:         info.Email,
			Phone:         info.Phone,
			Address:       info.Address(),
			CreatedAt:     now,
		}
		if line.ItemType == cart.ItemBundle {
			bundleID := line.ItemID
			detail.BundleID = &bundleID
		}
		if err := tx.InsertDetail(ctx, detail); err != nil {
			return nil, err
		}
	}

	return &OrderSummary{
		CustomOrderID: customOrderID,
		PaymentID:     payment.PaymentID,
		Amount:        finalAmount,
		Date:          now,
	}, nil
}

// settleBundle expands a bundle line into one order item per member book.
// A bundle deactivated since the validation pass is skipped with a warning
// rather than failing the whole order.
func (e *Engine) settleBundle(ctx context.Context, tx Tx, orderID int64, line cart.Line) error {
	bundle, err := tx.Bundle(ctx, line.ItemID)
	if err != nil {
		return err
	}
	if !bundle.IsActive {
		slog.WarnContext(ctx, "bundle deactivated since validation, skipping",
			"bundle_id", bundle.ID, "order_id", orderID)
		return nil
	}

	perBookPrice := bundle.PerBookPrice()
	for _, book := range bundle.Books {
		bookLine := cart.Line{ItemID: book.ID, Title: book.Title, Quantity: line.Quantity}
		if err := e.settleBook(ctx, tx, orderID, bookLine, perBookPrice); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) settleBook(ctx context.Context, tx Tx, orderID int64, line cart.Line, price decimal.Decimal) error {
	if err := tx.InsertItem(ctx, order.Item{
		OrderID:  orderID,
		BookID:   line.ItemID,
		Quantity: line.Quantity,
		Price:    price,
	}); err != nil {
		return err
	}

	clamped, err := tx.DeductStock(ctx, line.ItemID, line.Quantity)
	if err != nil {
		return err
	}
	if clamped {
		// Stock race: concurrent purchases depleted the book between
		// validation and write. Best-effort fulfillment: the order stands,
		// stock is pinned at zero.
		slog.WarnContext(ctx, "stock clamped to zero during settlement",
			"book_id", line.ItemID, "title", line.Title,
			"requested", line.Quantity, "order_id", orderID)
	}
	return nil
}
