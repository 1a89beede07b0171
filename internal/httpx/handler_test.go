package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/catalog"
	"github.com/jcmexdev/bookshop-checkout/internal/checkout"
	"github.com/jcmexdev/bookshop-checkout/internal/customer"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

// fakeCarts keeps a single in-memory cart; the handler is what is under
// test, not session fan-out.
type fakeCarts struct {
	lines  []cart.Line
	staged *customer.Info
}

func (f *fakeCarts) Get(ctx context.Context, sessionID string) ([]cart.Line, error) {
	return f.lines, nil
}

func (f *fakeCarts) Add(ctx context.Context, sessionID string, line cart.Line, maxQuantity int) (bool, error) {
	for i := range f.lines {
		if f.lines[i].ItemID == line.ItemID && f.lines[i].ItemType == line.ItemType {
			if maxQuantity > 0 && f.lines[i].Quantity+line.Quantity > maxQuantity {
				return true, nil
			}
			f.lines[i].Quantity += line.Quantity
			return false, nil
		}
	}
	f.lines = append(f.lines, line)
	return false, nil
}

func (f *fakeCarts) Remove(ctx context.Context, sessionID string, itemType cart.ItemType, itemID int64) (bool, error) {
	for i, l := range f.lines {
		if l.ItemID == itemID && l.ItemType == itemType {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCarts) Replace(ctx context.Context, sessionID string, line cart.Line) error {
	f.lines = []cart.Line{line}
	return nil
}

func (f *fakeCarts) Clear(ctx context.Context, sessionID string) error {
	f.lines = nil
	return nil
}

func (f *fakeCarts) StageCheckoutInfo(ctx context.Context, sessionID string, info customer.Info) error {
	f.staged = &info
	return nil
}

func (f *fakeCarts) StagedCheckoutInfo(ctx context.Context, sessionID string) (*customer.Info, error) {
	return f.staged, nil
}

func (f *fakeCarts) ClearCheckoutInfo(ctx context.Context, sessionID string) error {
	f.staged = nil
	return nil
}

type fakeCatalog struct {
	books   map[int64]catalog.Book
	bundles map[int64]catalog.BundleOffer
	courses map[int64]catalog.Course
}

func (f *fakeCatalog) Book(ctx context.Context, id int64) (*catalog.Book, error) {
	if b, ok := f.books[id]; ok {
		return &b, nil
	}
	return nil, fmt.Errorf("book %d not found", id)
}

func (f *fakeCatalog) Bundle(ctx context.Context, id int64) (*catalog.BundleOffer, error) {
	if b, ok := f.bundles[id]; ok {
		return &b, nil
	}
	return nil, fmt.Errorf("bundle %d not found", id)
}

func (f *fakeCatalog) Course(ctx context.Context, id int64) (*catalog.Course, error) {
	if c, ok := f.courses[id]; ok {
		return &c, nil
	}
	return nil, fmt.Errorf("course %d not found", id)
}

type fakeEngine struct {
	summary *checkout.OrderSummary
	err     error

	gotUserID   int64
	gotSnapshot cart.Snapshot
	gotPayment  checkout.PaymentConfirmation
}

func (f *fakeEngine) Settle(ctx context.Context, userID int64, snapshot cart.Snapshot,
	payment checkout.PaymentConfirmation, info customer.Info) (*checkout.OrderSummary, error) {
	f.gotUserID = userID
	f.gotSnapshot = snapshot
	f.gotPayment = payment
	return f.summary, f.err
}

type fakeHistory struct {
	orders map[int64]order.Order
}

func (f *fakeHistory) OrderByID(ctx context.Context, id int64) (*order.Order, error) {
	if o, ok := f.orders[id]; ok {
		return &o, nil
	}
	return nil, fmt.Errorf("order %d not found", id)
}

func (f *fakeHistory) OrdersByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeHistory) ItemsByOrder(ctx context.Context, orderID int64) ([]order.Item, error) {
	return nil, nil
}

func (f *fakeHistory) TransactionByOrder(ctx context.Context, orderID int64) (*order.Transaction, error) {
	return nil, fmt.Errorf("no transaction")
}

func (f *fakeHistory) EnrollmentsByUser(ctx context.Context, userID int64) ([]order.Enrollment, error) {
	return nil, nil
}

type testServer struct {
	carts   *fakeCarts
	engine  *fakeEngine
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	carts := &fakeCarts{}
	engine := &fakeEngine{}
	cat := &fakeCatalog{
		books: map[int64]catalog.Book{
			1: {ID: 1, Title: "In Stock", Price: decimal.NewFromInt(300), StockQuantity: 2},
			2: {ID: 2, Title: "Removed", Price: decimal.NewFromInt(100), StockQuantity: 5, IsDeleted: true},
		},
		bundles: map[int64]catalog.BundleOffer{
			10: {
				ID: 10, Title: "Pack", MRP: decimal.NewFromInt(800),
				SellingPrice: decimal.NewFromInt(500), IsActive: true,
				Books: []catalog.Book{
					{ID: 1, Title: "In Stock", Price: decimal.NewFromInt(300), OriginalPrice: decimal.NewFromInt(400)},
					{ID: 3, Title: "Other", Price: decimal.NewFromInt(350)},
				},
			},
		},
		courses: map[int64]catalog.Course{20: {ID: 20, Title: "Go Course", Price: decimal.NewFromInt(650)}},
	}
	history := &fakeHistory{orders: map[int64]order.Order{}}

	return &testServer{
		carts:   carts,
		engine:  engine,
		handler: NewRouter(NewHandler(carts, cat, engine, history)),
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, asUser string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestAddCartItem(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/cart/items", AddItemRequest{ItemType: "book", ItemID: 1}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "In Stock", resp.Lines[0].Title)
	assert.Equal(t, "300.00", resp.Subtotal)

	// Second add increments; third exceeds stock of 2.
	rec = ts.do(t, http.MethodPost, "/cart/items", AddItemRequest{ItemType: "book", ItemID: 1}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/cart/items", AddItemRequest{ItemType: "book", ItemID: 1}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/cart/items", AddItemRequest{ItemType: "book", ItemID: 99}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/cart/items", AddItemRequest{ItemType: "book", ItemID: 2}, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "soft-deleted books cannot be added")

	rec = ts.do(t, http.MethodPost, "/cart/items", AddItemRequest{ItemType: "magazine", ItemID: 1}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveCartItem(t *testing.T) {
	ts := newTestServer(t)
	ts.carts.lines = []cart.Line{{ItemID: 20, ItemType: cart.ItemCourse, Title: "Go Course", UnitPrice: decimal.NewFromInt(650), Quantity: 1}}

	rec := ts.do(t, http.MethodDelete, "/cart/items/course/20", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.carts.lines)

	rec = ts.do(t, http.MethodDelete, "/cart/items/course/20", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuyNowReplacesCart(t *testing.T) {
	ts := newTestServer(t)
	ts.carts.lines = []cart.Line{{ItemID: 20, ItemType: cart.ItemCourse, Quantity: 1}}

	rec := ts.do(t, http.MethodPost, "/cart/buy-now/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.carts.lines, 1)
	assert.Equal(t, int64(1), ts.carts.lines[0].ItemID)
	assert.Equal(t, cart.ItemBook, ts.carts.lines[0].ItemType)
}

func TestGetBundleIncludesSavings(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/bundles/10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BundleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "750.00", resp.TotalMRP, "original price wins over price for MRP")
	assert.Equal(t, "250.00", resp.SavingsAmount)
	assert.Equal(t, "33.33", resp.SavingsPercentage)
	require.Len(t, resp.Books, 2)
}

func TestCheckoutStagesValidInfo(t *testing.T) {
	ts := newTestServer(t)

	info := customer.Info{FullName: "Asha Verma", Email: "asha@example.com", Phone: "9876543210"}
	rec := ts.do(t, http.MethodPost, "/checkout", info, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, ts.carts.staged)
	assert.Equal(t, "Asha Verma", ts.carts.staged.FullName)

	bad := customer.Info{FullName: "Asha Verma", Email: "asha@example.com", Phone: "12"}
	rec = ts.do(t, http.MethodPost, "/checkout", bad, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPaymentSuccessSettlesAndClearsSession(t *testing.T) {
	ts := newTestServer(t)
	ts.carts.lines = []cart.Line{{ItemID: 1, ItemType: cart.ItemBook, Title: "In Stock", UnitPrice: decimal.NewFromInt(300), Quantity: 1}}
	ts.carts.staged = &customer.Info{FullName: "Asha Verma", Email: "asha@example.com", Phone: "9876543210"}
	ts.engine.summary = &checkout.OrderSummary{
		CustomOrderID: "ORD-20260831-Tm41Z8",
		PaymentID:     "pay_9HxKQvTm41Z8",
		Amount:        decimal.NewFromInt(360),
	}

	rec := ts.do(t, http.MethodGet, "/payment/success?payment_id=pay_9HxKQvTm41Z8", nil, "42")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp OrderSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-20260831-Tm41Z8", resp.CustomOrderID)
	assert.Equal(t, "360.00", resp.Amount)

	assert.Equal(t, int64(42), ts.engine.gotUserID)
	assert.Equal(t, "pay_9HxKQvTm41Z8", ts.engine.gotPayment.PaymentID)
	assert.Empty(t, ts.carts.lines, "cart is cleared after settlement")
	assert.Nil(t, ts.carts.staged, "staged checkout info is cleared after settlement")
}

func TestPaymentSuccessErrorMapping(t *testing.T) {
	newReady := func(ts *testServer) {
		ts.carts.lines = []cart.Line{{ItemID: 1, ItemType: cart.ItemBook, Quantity: 1, UnitPrice: decimal.NewFromInt(300)}}
		ts.carts.staged = &customer.Info{FullName: "A", Email: "a@b.c", Phone: "9876543210"}
	}

	tests := []struct {
		name       string
		target     string
		user       string
		prepare    func(*testServer)
		engineErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name: "missing payment id", target: "/payment/success", user: "42",
			prepare: newReady, wantStatus: http.StatusBadRequest, wantCode: "payment_id_required",
		},
		{
			name: "missing user", target: "/payment/success?payment_id=p", user: "",
			prepare: newReady, wantStatus: http.StatusUnauthorized, wantCode: "user_required",
		},
		{
			name: "no staged info", target: "/payment/success?payment_id=p", user: "42",
			prepare:    func(ts *testServer) { ts.carts.lines = []cart.Line{{ItemID: 1, ItemType: cart.ItemBook, Quantity: 1}} },
			wantStatus: http.StatusUnprocessableEntity, wantCode: "checkout_info_missing",
		},
		{
			name: "stock shortfall", target: "/payment/success?payment_id=p", user: "42",
			prepare:   newReady,
			engineErr: &checkout.InsufficientStockError{ItemTitle: "In Stock", Available: 1},
			wantStatus: http.StatusConflict, wantCode: "insufficient_stock",
		},
		{
			name: "validation failure", target: "/payment/success?payment_id=p", user: "42",
			prepare:   newReady,
			engineErr: &checkout.ValidationError{Fields: []string{"phone"}},
			wantStatus: http.StatusUnprocessableEntity, wantCode: "invalid_customer_info",
		},
		{
			name: "empty cart", target: "/payment/success?payment_id=p", user: "42",
			prepare: func(ts *testServer) {
				ts.carts.staged = &customer.Info{FullName: "A", Email: "a@b.c", Phone: "9876543210"}
			},
			engineErr:  checkout.ErrEmptyCart,
			wantStatus: http.StatusBadRequest, wantCode: "cart_empty",
		},
		{
			name: "write-phase failure", target: "/payment/success?payment_id=p", user: "42",
			prepare:   newReady,
			engineErr: &checkout.SettlementError{Err: fmt.Errorf("disk full")},
			wantStatus: http.StatusBadGateway, wantCode: "settlement_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			tt.prepare(ts)
			ts.engine.err = tt.engineErr

			rec := ts.do(t, http.MethodGet, tt.target, nil, tt.user)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}
