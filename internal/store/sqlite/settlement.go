package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/bookshop-checkout/internal/catalog"
	"github.com/jcmexdev/bookshop-checkout/internal/checkout"
	"github.com/jcmexdev/bookshop-checkout/internal/customer"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

// BeginSettlement opens the transaction the settlement engine writes into.
func (s *Store) BeginSettlement(ctx context.Context) (checkout.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin settlement: %w", err)
	}
	return &settlementTx{tx: tx}, nil
}

// settlementTx implements checkout.Tx on one *sql.Tx. All writes become
// durable together on Commit or vanish together on Rollback.
type settlementTx struct {
	tx *sql.Tx
}

func (t *settlementTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit settlement: %w", err)
	}
	return nil
}

func (t *settlementTx) Rollback() error {
	return t.tx.Rollback()
}

// UpsertCustomer gets-or-creates the profile row for the user. Non-empty
// incoming fields overwrite stored ones; empty fields leave them untouched.
func (t *settlementTx) UpsertCustomer(ctx context.Context, userID int64, info customer.Info) (int64, error) {
	now := formatTime(timeNow())

	const q = `
		INSERT INTO customers
			(user_id, full_name, email, phone, street_address, city, state, pincode, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name      = excluded.full_name,
			email          = excluded.email,
			phone          = excluded.phone,
			street_address = COALESCE(NULLIF(excluded.street_address, ''), customers.street_address),
			city           = COALESCE(NULLIF(excluded.city, ''), customers.city),
			state          = COALESCE(NULLIF(excluded.state, ''), customers.state),
			pincode        = COALESCE(NULLIF(excluded.pincode, ''), customers.pincode),
			updated_at     = excluded.updated_at`

	_, err := t.tx.ExecContext(ctx, q,
		userID, info.FullName, info.Email, info.Phone,
		info.StreetAddress, info.City, info.State, info.Pincode,
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: upsert customer for user %d: %w", userID, err)
	}

	var id int64
	if err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE user_id = ?`, userID).Scan(&id); err != nil {
		return 0, fmt.Errorf("sqlite: customer id for user %d: %w", userID, err)
	}
	return id, nil
}

// InsertOrder returns the new order id while the transaction is still open,
// so order items and audit rows can reference it before commit.
func (t *settlementTx) InsertOrder(ctx context.Context, o order.Order) (int64, error) {
	const q = `INSERT INTO orders (user_id, status, total_amount, date_created) VALUES (?, ?, ?, ?)`

	res, err := t.tx.ExecContext(ctx, q, o.UserID, string(o.Status), o.TotalAmount, formatTime(o.DateCreated))
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert order for user %d: %w", o.UserID, err)
	}
	return res.LastInsertId()
}

func (t *settlementTx) InsertItem(ctx context.Context, it order.Item) error {
	const q = `INSERT INTO order_items (order_id, book_id, quantity, price) VALUES (?, ?, ?, ?)`

	if _, err := t.tx.ExecContext(ctx, q, it.OrderID, it.BookID, it.Quantity, it.Price); err != nil {
		return fmt.Errorf("sqlite: insert order item (order %d, book %d): %w", it.OrderID, it.BookID, err)
	}
	return nil
}

// InsertEnrollment is a no-op when the user already owns the course.
func (t *settlementTx) InsertEnrollment(ctx context.Context, e order.Enrollment) error {
	const q = `
		INSERT INTO user_courses (user_id, course_id, enrollment_date, completion_status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := t.tx.ExecContext(ctx, q,
		e.UserID, e.CourseID, formatTime(e.EnrollmentDate), e.CompletionStatus); err != nil {
		return fmt.Errorf("sqlite: insert enrollment (user %d, course %d): %w", e.UserID, e.CourseID, err)
	}
	return nil
}

func (t *settlementTx) InsertTransaction(ctx context.Context, tr order.Transaction) (int64, error) {
	const q = `
		INSERT INTO transactions (order_id, amount, payment_id, status, date_created)
		VALUES (?, ?, ?, ?, ?)`

	res, err := t.tx.ExecContext(ctx, q,
		tr.OrderID, tr.Amount, tr.PaymentID, tr.Status, formatTime(tr.DateCreated))
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert transaction for order %d: %w", tr.OrderID, err)
	}
	return res.LastInsertId()
}

func (t *settlementTx) InsertDetail(ctx context.Context, d order.FullOrderDetail) error {
	const q = `
		INSERT INTO full_order_details
			(order_id, transaction_id, customer_id, bundle_id, custom_order_id,
			 item_id, item_type, item_title, quantity, price,
			 full_name, email, phone, address, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// transaction_id, customer_id and bundle_id are nullable foreign keys;
	// zero values must be stored as NULL.
	var bundleID, transactionID, customerID any
	if d.BundleID != nil {
		bundleID = *d.BundleID
	}
	if d.TransactionID != 0 {
		transactionID = d.TransactionID
	}
	if d.CustomerID != 0 {
		customerID = d.CustomerID
	}

	_, err := t.tx.ExecContext(ctx, q,
		d.OrderID, transactionID, customerID, bundleID, d.CustomOrderID,
		d.ItemID, string(d.ItemType), d.ItemTitle, d.Quantity, d.Price,
		d.FullName, d.Email, d.Phone, d.Address, formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert order detail (order %d, item %d): %w", d.OrderID, d.ItemID, err)
	}
	return nil
}

// DeductStock decrements as a single guarded UPDATE so the read-then-write
// race of validate-first designs cannot drive stock negative. When the guard
// fails (concurrent purchases won), the stock is clamped to zero and the
// caller is told so it can log the race.
func (t *settlementTx) DeductStock(ctx context.Context, bookID int64, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE books SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`,
		qty, bookID, qty)
	if err != nil {
		return false, fmt.Errorf("sqlite: deduct stock for book %d: %w", bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: deduct stock for book %d: %w", bookID, err)
	}
	if n > 0 {
		return false, nil
	}

	res, err = t.tx.ExecContext(ctx, `UPDATE books SET stock_quantity = 0 WHERE id = ?`, bookID)
	if err != nil {
		return false, fmt.Errorf("sqlite: clamp stock for book %d: %w", bookID, err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		return false, fmt.Errorf("sqlite: book %d not found", bookID)
	}
	return true, nil
}

func (t *settlementTx) Bundle(ctx context.Context, id int64) (*catalog.BundleOffer, error) {
	return getBundle(ctx, t.tx, id)
}

var _ checkout.Tx = (*settlementTx)(nil)
