package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

// Read-back queries for the account/history surface.

func (s *Store) OrderByID(ctx context.Context, id int64) (*order.Order, error) {
	const q = `SELECT id, user_id, status, total_amount, date_created FROM orders WHERE id = ?`

	var o order.Order
	var created string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: order %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %d: %w", id, err)
	}
	if o.DateCreated, err = parseTime(created); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) OrdersByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	const q = `
		SELECT id, user_id, status, total_amount, date_created
		FROM   orders
		WHERE  user_id = ?
		ORDER  BY date_created DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		var created string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan order for user %d: %w", userID, err)
		}
		if o.DateCreated, err = parseTime(created); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) ItemsByOrder(ctx context.Context, orderID int64) ([]order.Item, error) {
	const q = `SELECT order_id, book_id, quantity, price FROM order_items WHERE order_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: items for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.OrderID, &it.BookID, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("sqlite: scan item for order %d: %w", orderID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) TransactionByOrder(ctx context.Context, orderID int64) (*order.Transaction, error) {
	const q = `
		SELECT id, order_id, amount, payment_id, status, date_created
		FROM   transactions
		WHERE  order_id = ?
		ORDER  BY id DESC
		LIMIT  1`

	var tr order.Transaction
	var created string
	err := s.db.QueryRowContext(ctx, q, orderID).Scan(
		&tr.ID, &tr.OrderID, &tr.Amount, &tr.PaymentID, &tr.Status, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: no transaction for order %d", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: transaction for order %d: %w", orderID, err)
	}
	if tr.DateCreated, err = parseTime(created); err != nil {
		return nil, err
	}
	return &tr, nil
}

func (s *Store) DetailsByOrder(ctx context.Context, orderID int64) ([]order.FullOrderDetail, error) {
	const q = `
		SELECT order_id, COALESCE(transaction_id, 0), COALESCE(customer_id, 0), bundle_id,
		       custom_order_id, item_id, item_type, item_title, quantity, price,
		       COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address, ''), created_at
		FROM   full_order_details
		WHERE  order_id = ?
		ORDER  BY id`

	rows, err := s.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: details for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var details []order.FullOrderDetail
	for rows.Next() {
		var d order.FullOrderDetail
		var bundleID sql.NullInt64
		var itemType, created string
		if err := rows.Scan(
			&d.OrderID, &d.TransactionID, &d.CustomerID, &bundleID,
			&d.CustomOrderID, &d.ItemID, &itemType, &d.ItemTitle, &d.Quantity, &d.Price,
			&d.FullName, &d.Email, &d.Phone, &d.Address, &created,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan detail for order %d: %w", orderID, err)
		}
		if bundleID.Valid {
			d.BundleID = &bundleID.Int64
		}
		d.ItemType = cart.ItemType(itemType)
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *Store) EnrollmentsByUser(ctx context.Context, userID int64) ([]order.Enrollment, error) {
	const q = `
		SELECT user_id, course_id, enrollment_date, completion_status
		FROM   user_courses
		WHERE  user_id = ?
		ORDER  BY id`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: enrollments for user %d: %w", userID, err)
	}
	defer rows.Close()

	var enrollments []order.Enrollment
	for rows.Next() {
		var e order.Enrollment
		var date string
		if err := rows.Scan(&e.UserID, &e.CourseID, &date, &e.CompletionStatus); err != nil {
			return nil, fmt.Errorf("sqlite: scan enrollment for user %d: %w", userID, err)
		}
		if e.EnrollmentDate, err = parseTime(date); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (s *Store) CustomerByUser(ctx context.Context, userID int64) (*order.Customer, error) {
	const q = `
		SELECT id, user_id, full_name, email, phone, street_address, city, state, pincode
		FROM   customers
		WHERE  user_id = ?`

	var c order.Customer
	err := s.db.QueryRowContext(ctx, q, userID).Scan(
		&c.ID, &c.UserID, &c.FullName, &c.Email, &c.Phone,
		&c.StreetAddress, &c.City, &c.State, &c.Pincode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: no customer for user %d", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: customer for user %d: %w", userID, err)
	}
	return &c, nil
}
