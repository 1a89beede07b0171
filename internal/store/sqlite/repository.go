// Package sqlite provides the relational store behind the checkout flow:
// catalog reads and the transactional settlement writer.
//
// WAL mode is enabled on Open so reads never block the settlement writer.
// We use modernc.org/sqlite instead of mattn/go-sqlite3 to avoid CGO
// requirements, making it easier to build and run in Docker (Alpine).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bookshop-checkout/internal/catalog"
	"github.com/jcmexdev/bookshop-checkout/internal/checkout"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. Money columns are TEXT holding
// exact decimal strings. Timestamps are RFC3339 TEXT (SQLite idiom).
const schema = `
CREATE TABLE IF NOT EXISTS books (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT    NOT NULL,
    author          TEXT    NOT NULL DEFAULT '',
    price           TEXT    NOT NULL,
    original_price  TEXT,
    -- Settlement decrements are guarded; the CHECK is the last line of
    -- defence against negative inventory.
    stock_quantity  INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
    is_deleted      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS courses (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    title   TEXT    NOT NULL,
    price   TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS bundle_offers (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT    NOT NULL,
    mrp             TEXT    NOT NULL,
    selling_price   TEXT    NOT NULL,
    is_active       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS bundle_books (
    bundle_id   INTEGER NOT NULL REFERENCES bundle_offers(id),
    book_id     INTEGER NOT NULL REFERENCES books(id),
    PRIMARY KEY (bundle_id, book_id)
);

CREATE TABLE IF NOT EXISTS customers (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         INTEGER NOT NULL UNIQUE,
    full_name       TEXT    NOT NULL,
    email           TEXT    NOT NULL,
    phone           TEXT    NOT NULL DEFAULT '',
    street_address  TEXT    NOT NULL DEFAULT '',
    city            TEXT    NOT NULL DEFAULT '',
    state           TEXT    NOT NULL DEFAULT '',
    pincode         TEXT    NOT NULL DEFAULT '',
    created_at      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         INTEGER NOT NULL,
    status          TEXT    NOT NULL DEFAULT 'pending',
    total_amount    TEXT    NOT NULL,
    date_created    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    INTEGER NOT NULL REFERENCES orders(id),
    book_id     INTEGER NOT NULL REFERENCES books(id),
    quantity    INTEGER NOT NULL DEFAULT 1,
    price       TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS user_courses (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id             INTEGER NOT NULL,
    course_id           INTEGER NOT NULL REFERENCES courses(id),
    enrollment_date     TEXT    NOT NULL,
    completion_status   TEXT    NOT NULL DEFAULT 'enrolled',
    UNIQUE (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS transactions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id        INTEGER NOT NULL REFERENCES orders(id),
    amount          TEXT    NOT NULL,
    payment_id      TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    date_created    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS full_order_details (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id        INTEGER NOT NULL REFERENCES orders(id),
    transaction_id  INTEGER REFERENCES transactions(id),
    customer_id     INTEGER REFERENCES customers(id),
    bundle_id       INTEGER REFERENCES bundle_offers(id),
    custom_order_id TEXT    NOT NULL DEFAULT '',
    item_id         INTEGER NOT NULL,
    item_type       TEXT    NOT NULL,
    item_title      TEXT    NOT NULL,
    quantity        INTEGER NOT NULL DEFAULT 1,
    price           TEXT    NOT NULL,
    full_name       TEXT,
    email           TEXT,
    phone           TEXT,
    address         TEXT,
    created_at      TEXT    NOT NULL,

    -- Bundle rows must point at themselves; anything else carries no bundle.
    CHECK (
        (item_type =  'bundle' AND bundle_id = item_id) OR
        (item_type <> 'bundle' AND bundle_id IS NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_full_order_details_order_id ON full_order_details(order_id);
CREATE INDEX IF NOT EXISTS idx_transactions_order_id ON transactions(order_id);
`

// Store implements checkout.CatalogReader and checkout.Store on one SQLite
// database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
//
//	store, err := sqlite.Open("./data/checkout.db")
func Open(path string) (*Store, error) {
	// WAL enables concurrent readers. foreign_keys=on enforces integrity.
	// busy_timeout waits for locks instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3" for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection; it also
	// serializes concurrent settlements at the database level.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so catalog reads can run
// inside or outside a settlement transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ── catalog reads ─────────────────────────────────────────────────────────

func (s *Store) Book(ctx context.Context, id int64) (*catalog.Book, error) {
	return getBook(ctx, s.db, id)
}

func (s *Store) Bundle(ctx context.Context, id int64) (*catalog.BundleOffer, error) {
	return getBundle(ctx, s.db, id)
}

func (s *Store) Course(ctx context.Context, id int64) (*catalog.Course, error) {
	const q = `SELECT id, title, price FROM courses WHERE id = ?`

	var c catalog.Course
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Title, &c.Price)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: course %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get course %d: %w", id, err)
	}
	return &c, nil
}

func getBook(ctx context.Context, q querier, id int64) (*catalog.Book, error) {
	const query = `
		SELECT id, title, author, price, COALESCE(original_price, '0'),
		       stock_quantity, is_deleted
		FROM   books
		WHERE  id = ?`

	var b catalog.Book
	err := q.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Title, &b.Author, &b.Price, &b.OriginalPrice,
		&b.StockQuantity, &b.IsDeleted,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: book %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get book %d: %w", id, err)
	}
	return &b, nil
}

func getBundle(ctx context.Context, q querier, id int64) (*catalog.BundleOffer, error) {
	const query = `SELECT id, title, mrp, selling_price, is_active FROM bundle_offers WHERE id = ?`

	var b catalog.BundleOffer
	err := q.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Title, &b.MRP, &b.SellingPrice, &b.IsActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: bundle %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get bundle %d: %w", id, err)
	}

	const memberQuery = `
		SELECT b.id, b.title, b.author, b.price, COALESCE(b.original_price, '0'),
		       b.stock_quantity, b.is_deleted
		FROM   books b
		JOIN   bundle_books bb ON bb.book_id = b.id
		WHERE  bb.bundle_id = ?
		ORDER  BY b.id`

	rows, err := q.QueryContext(ctx, memberQuery, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get bundle %d books: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var book catalog.Book
		if err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.Price, &book.OriginalPrice,
			&book.StockQuantity, &book.IsDeleted,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan bundle %d book: %w", id, err)
		}
		b.Books = append(b.Books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: get bundle %d books: %w", id, err)
	}
	return &b, nil
}

// ── catalog writes (admin/seed surface) ───────────────────────────────────

func (s *Store) InsertBook(ctx context.Context, b catalog.Book) (int64, error) {
	const q = `
		INSERT INTO books (title, author, price, original_price, stock_quantity, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		b.Title, b.Author, b.Price, nullableDecimal(b.OriginalPrice), b.StockQuantity, b.IsDeleted)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert book %q: %w", b.Title, err)
	}
	return res.LastInsertId()
}

func (s *Store) InsertCourse(ctx context.Context, c catalog.Course) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO courses (title, price) VALUES (?, ?)`, c.Title, c.Price)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert course %q: %w", c.Title, err)
	}
	return res.LastInsertId()
}

// InsertBundle writes the offer and its membership rows. The bundle must
// reference at least one existing book.
func (s *Store) InsertBundle(ctx context.Context, b catalog.BundleOffer, bookIDs []int64) (int64, error) {
	if len(bookIDs) == 0 {
		return 0, fmt.Errorf("sqlite: bundle %q has no books", b.Title)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert bundle %q: %w", b.Title, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bundle_offers (title, mrp, selling_price, is_active) VALUES (?, ?, ?, ?)`,
		b.Title, b.MRP, b.SellingPrice, b.IsActive)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert bundle %q: %w", b.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, bookID := range bookIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bundle_books (bundle_id, book_id) VALUES (?, ?)`, id, bookID); err != nil {
			return 0, fmt.Errorf("sqlite: insert bundle %q book %d: %w", b.Title, bookID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: insert bundle %q: %w", b.Title, err)
	}
	return id, nil
}

// SetBundleActive toggles whether a bundle can be purchased.
func (s *Store) SetBundleActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE bundle_offers SET is_active = ? WHERE id = ?`, active, id); err != nil {
		return fmt.Errorf("sqlite: set bundle %d active: %w", id, err)
	}
	return nil
}

func nullableDecimal(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d
}

var _ checkout.CatalogReader = (*Store)(nil)
var _ checkout.Store = (*Store)(nil)
