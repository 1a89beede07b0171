package checkout

import (
	"context"

	"github.com/jcmexdev/bookshop-checkout/internal/catalog"
	"github.com/jcmexdev/bookshop-checkout/internal/customer"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

// CatalogReader is the read-only catalog view used by the pre-write stock
// validation pass.
type CatalogReader interface {
	Book(ctx context.Context, id int64) (*catalog.Book, error)
	Bundle(ctx context.Context, id int64) (*catalog.BundleOffer, error)
	Course(ctx context.Context, id int64) (*catalog.Course, error)
}

// Store opens the atomic unit the settlement writes into. The engine depends
// on this abstraction, not on sqlite directly, so tests can swap in an
// in-memory implementation.
type Store interface {
	BeginSettlement(ctx context.Context) (Tx, error)
}

// Tx is one open settlement transaction. Either Commit persists every write
// or Rollback discards all of them; there is no partial state in between.
type Tx interface {
	// UpsertCustomer gets-or-creates the customer profile for the user,
	// overwriting non-empty fields, and returns its row id.
	UpsertCustomer(ctx context.Context, userID int64, info customer.Info) (int64, error)

	// InsertOrder writes the order row and returns its id while the
	// transaction is still open, so dependent rows can reference it.
	InsertOrder(ctx context.Context, o order.Order) (int64, error)

	InsertItem(ctx context.Context, it order.Item) error

	// InsertEnrollment is idempotent on (user, course).
	InsertEnrollment(ctx context.Context, e order.Enrollment) error

	InsertTransaction(ctx context.Context, t order.Transaction) (int64, error)

	InsertDetail(ctx context.Context, d order.FullOrderDetail) error

	// DeductStock decrements a book's stock by qty as a single guarded
	// update. If concurrent purchases depleted the stock since validation,
	// it clamps the stock to zero instead of going negative and reports
	// clamped=true.
	DeductStock(ctx context.Context, bookID int64, qty int) (clamped bool, err error)

	// Bundle re-reads a bundle inside the transaction, for the inactive-
	// since-validation race check.
	Bundle(ctx context.Context, id int64) (*catalog.BundleOffer, error)

	Commit() error
	Rollback() error
}
