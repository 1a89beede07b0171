package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/catalog"
	"github.com/jcmexdev/bookshop-checkout/internal/customer"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBookRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertBook(ctx, catalog.Book{
		Title:         "Clean Architecture",
		Author:        "R. Martin",
		Price:         decimal.RequireFromString("450.50"),
		OriginalPrice: decimal.RequireFromString("600"),
		StockQuantity: 7,
	})
	require.NoError(t, err)

	book, err := s.Book(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Clean Architecture", book.Title)
	assert.True(t, book.Price.Equal(decimal.RequireFromString("450.50")))
	assert.True(t, book.OriginalPrice.Equal(decimal.RequireFromString("600")))
	assert.Equal(t, 7, book.StockQuantity)
	assert.True(t, book.Purchasable())

	_, err = s.Book(ctx, 999)
	assert.ErrorContains(t, err, "not found")
}

func TestBundleLoadsMemberBooks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.InsertBook(ctx, catalog.Book{Title: "A", Price: decimal.NewFromInt(100), StockQuantity: 1})
	require.NoError(t, err)
	b, err := s.InsertBook(ctx, catalog.Book{Title: "B", Price: decimal.NewFromInt(200), StockQuantity: 1})
	require.NoError(t, err)

	id, err := s.InsertBundle(ctx, catalog.BundleOffer{
		Title: "Pack", MRP: decimal.NewFromInt(300), SellingPrice: decimal.NewFromInt(250), IsActive: true,
	}, []int64{a, b})
	require.NoError(t, err)

	bundle, err := s.Bundle(ctx, id)
	require.NoError(t, err)
	require.Len(t, bundle.Books, 2)
	assert.Equal(t, "A", bundle.Books[0].Title)
	assert.True(t, bundle.IsActive)

	_, err = s.InsertBundle(ctx, catalog.BundleOffer{Title: "Empty"}, nil)
	assert.ErrorContains(t, err, "no books")
}

func TestDeductStockGuardAndClamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertBook(ctx, catalog.Book{Title: "Stocked", Price: decimal.NewFromInt(10), StockQuantity: 5})
	require.NoError(t, err)

	tx, err := s.BeginSettlement(ctx)
	require.NoError(t, err)
	clamped, err := tx.DeductStock(ctx, id, 3)
	require.NoError(t, err)
	assert.False(t, clamped)
	require.NoError(t, tx.Commit())

	book, err := s.Book(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, book.StockQuantity)

	// Requesting more than remains clamps to zero instead of going negative.
	tx, err = s.BeginSettlement(ctx)
	require.NoError(t, err)
	clamped, err = tx.DeductStock(ctx, id, 4)
	require.NoError(t, err)
	assert.True(t, clamped)
	require.NoError(t, tx.Commit())

	book, err = s.Book(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, book.StockQuantity)

	tx, err = s.BeginSettlement(ctx)
	require.NoError(t, err)
	_, err = tx.DeductStock(ctx, 999, 1)
	assert.ErrorContains(t, err, "not found")
	require.NoError(t, tx.Rollback())
}

func TestRollbackDiscardsAllWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertBook(ctx, catalog.Book{Title: "Kept", Price: decimal.NewFromInt(10), StockQuantity: 5})
	require.NoError(t, err)

	tx, err := s.BeginSettlement(ctx)
	require.NoError(t, err)

	orderID, err := tx.InsertOrder(ctx, order.Order{
		UserID: 1, Status: order.StatusCompleted,
		TotalAmount: decimal.NewFromInt(10), DateCreated: time.Now(),
	})
	require.NoError(t, err)
	require.NotZero(t, orderID)

	_, err = tx.DeductStock(ctx, id, 2)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	book, err := s.Book(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, book.StockQuantity)
	_, err = s.OrderByID(ctx, orderID)
	assert.ErrorContains(t, err, "not found")
}

func TestUpsertCustomerKeepsPriorFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := customer.Info{
		FullName: "Asha Verma", Email: "asha@example.com", Phone: "9876543210",
		StreetAddress: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	}

	tx, err := s.BeginSettlement(ctx)
	require.NoError(t, err)
	id1, err := tx.UpsertCustomer(ctx, 7, first)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	second := customer.Info{FullName: "Asha V", Email: "asha@example.com", Phone: "9111111111"}
	tx, err = s.BeginSettlement(ctx)
	require.NoError(t, err)
	id2, err := tx.UpsertCustomer(ctx, 7, second)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, id1, id2, "one customer row per user")

	c, err := s.CustomerByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Asha V", c.FullName)
	assert.Equal(t, "9111111111", c.Phone)
	assert.Equal(t, "12 MG Road", c.StreetAddress, "empty incoming fields keep stored values")
	assert.Equal(t, "411001", c.Pincode)
}

func TestDetailCheckConstraintRejectsBadBundleRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.BeginSettlement(ctx)
	require.NoError(t, err)
	orderID, err := tx.InsertOrder(ctx, order.Order{
		UserID: 1, Status: order.StatusCompleted,
		TotalAmount: decimal.NewFromInt(10), DateCreated: time.Now(),
	})
	require.NoError(t, err)

	// A book row carrying a bundle id violates the schema CHECK.
	bundleID := int64(3)
	err = tx.InsertDetail(ctx, order.FullOrderDetail{
		OrderID: orderID, ItemID: 5, ItemType: cart.ItemBook, ItemTitle: "Bad Row",
		Quantity: 1, Price: decimal.NewFromInt(10), BundleID: &bundleID, CreatedAt: time.Now(),
	})
	assert.Error(t, err)

	// A bundle row must point at itself.
	err = tx.InsertDetail(ctx, order.FullOrderDetail{
		OrderID: orderID, ItemID: 5, ItemType: cart.ItemBundle, ItemTitle: "Bad Bundle",
		Quantity: 1, Price: decimal.NewFromInt(10), BundleID: &bundleID, CreatedAt: time.Now(),
	})
	assert.Error(t, err)

	require.NoError(t, tx.Rollback())
}
