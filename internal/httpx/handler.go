package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/checkout"
	"github.com/jcmexdev/bookshop-checkout/internal/customer"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

// Settler is the settlement engine as the HTTP layer sees it.
type Settler interface {
	Settle(ctx context.Context, userID int64, snapshot cart.Snapshot,
		payment checkout.PaymentConfirmation, info customer.Info) (*checkout.OrderSummary, error)
}

// History is the read-back surface for the account pages.
type History interface {
	OrderByID(ctx context.Context, id int64) (*order.Order, error)
	OrdersByUser(ctx context.Context, userID int64) ([]order.Order, error)
	ItemsByOrder(ctx context.Context, orderID int64) ([]order.Item, error)
	TransactionByOrder(ctx context.Context, orderID int64) (*order.Transaction, error)
	EnrollmentsByUser(ctx context.Context, userID int64) ([]order.Enrollment, error)
}

// Handler serves the cart, bundle and checkout endpoints.
type Handler struct {
	carts   cart.Store
	catalog checkout.CatalogReader
	engine  Settler
	history History
}

func NewHandler(carts cart.Store, catalog checkout.CatalogReader, engine Settler, history History) *Handler {
	return &Handler{carts: carts, catalog: catalog, engine: engine, history: history}
}

// GetCart returns the session's cart lines and subtotal.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.Get(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(lines))
}

// AddCartItem adds a catalog item to the cart. Adding a book already in the
// cart increments its quantity, capped at available stock.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	itemType := cart.ItemType(req.ItemType)
	if !itemType.Valid() || req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "invalid_item", "item_type must be book, course or bundle and quantity positive")
		return
	}

	line, maxQuantity, err := h.buildLine(r.Context(), itemType, req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, http.StatusNotFound, "item_not_found", err.Error())
		return
	}
	if line == nil {
		writeError(w, http.StatusConflict, "item_unavailable", "item cannot be purchased")
		return
	}

	capped, err := h.carts.Add(r.Context(), sessionID(r), *line, maxQuantity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	if capped {
		writeError(w, http.StatusConflict, "stock_limit", "cannot add more of this item")
		return
	}

	lines, err := h.carts.Get(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(lines))
}

// buildLine resolves an item against the catalog. A nil line with nil error
// means the item exists but is not purchasable (deleted book, inactive
// bundle).
func (h *Handler) buildLine(ctx context.Context, itemType cart.ItemType, itemID int64, qty int) (*cart.Line, int, error) {
	switch itemType {
	case cart.ItemBook:
		book, err := h.catalog.Book(ctx, itemID)
		if err != nil {
			return nil, 0, err
		}
		if !book.Purchasable() {
			return nil, 0, nil
		}
		return &cart.Line{
			ItemID: book.ID, ItemType: cart.ItemBook, Title: book.Title,
			UnitPrice: book.Price, Quantity: qty,
		}, book.StockQuantity, nil
	case cart.ItemCourse:
		course, err := h.catalog.Course(ctx, itemID)
		if err != nil {
			return nil, 0, err
		}
		return &cart.Line{
			ItemID: course.ID, ItemType: cart.ItemCourse, Title: course.Title,
			UnitPrice: course.Price, Quantity: qty,
		}, 0, nil
	default:
		bundle, err := h.catalog.Bundle(ctx, itemID)
		if err != nil {
			return nil, 0, err
		}
		if !bundle.IsActive {
			return nil, 0, nil
		}
		return &cart.Line{
			ItemID: bundle.ID, ItemType: cart.ItemBundle, Title: bundle.Title,
			UnitPrice: bundle.SellingPrice, Quantity: qty,
		}, 0, nil
	}
}

// BuyNow replaces the cart with a single book line and leaves the buyer one
// step from checkout.
func (h *Handler) BuyNow(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_book_id", "")
		return
	}

	line, _, err := h.buildLine(r.Context(), cart.ItemBook, bookID, 1)
	if err != nil {
		writeError(w, http.StatusNotFound, "item_not_found", err.Error())
		return
	}
	if line == nil {
		writeError(w, http.StatusConflict, "item_unavailable", "book cannot be purchased")
		return
	}

	if err := h.carts.Replace(r.Context(), sessionID(r), *line); err != nil {
		writeError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse([]cart.Line{*line}))
}

// RemoveCartItem deletes one line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemType := cart.ItemType(chi.URLParam(r, "type"))
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || !itemType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_item", "")
		return
	}

	found, err := h.carts.Remove(r.Context(), sessionID(r), itemType, itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_in_cart", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBundle returns a bundle with its member books and savings breakdown.
func (h *Handler) GetBundle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bundle_id", "")
		return
	}

	bundle, err := h.catalog.Bundle(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "bundle_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapBundleToResponse(bundle))
}

// Checkout validates and stages the shipping form ahead of the payment
// redirect.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var info customer.Info
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if fields := info.InvalidFields(); len(fields) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid_customer_info",
			"missing or malformed: "+joinFields(fields))
		return
	}

	if err := h.carts.StageCheckoutInfo(r.Context(), sessionID(r), info); err != nil {
		writeError(w, http.StatusInternalServerError, "staging_unavailable", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentSuccess is the payment gateway's redirect target. The payment_id is
// trusted as already verified by the gateway; no signature check happens
// here. It runs the settlement and, only on full commit, clears the session
// state and returns the confirmation.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "payment_id_required", "")
		return
	}

	userID, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "")
		return
	}

	sid := sessionID(r)
	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}

	info, err := h.carts.StagedCheckoutInfo(r.Context(), sid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "staging_unavailable", err.Error())
		return
	}
	if info == nil {
		writeError(w, http.StatusUnprocessableEntity, "checkout_info_missing",
			"submit the checkout form before paying")
		return
	}

	summary, err := h.engine.Settle(r.Context(), userID, cart.Snapshot{Lines: lines},
		checkout.PaymentConfirmation{PaymentID: paymentID}, *info)
	if err != nil {
		h.writeSettleError(w, r, err)
		return
	}

	// The order is durable; session cleanup failures only risk a stale cart.
	if err := h.carts.Clear(r.Context(), sid); err != nil {
		slog.ErrorContext(r.Context(), "failed to clear cart after settlement", "session", sid, "error", err)
	}
	if err := h.carts.ClearCheckoutInfo(r.Context(), sid); err != nil {
		slog.ErrorContext(r.Context(), "failed to clear checkout info after settlement", "session", sid, "error", err)
	}

	writeJSON(w, http.StatusCreated, mapSummaryToResponse(summary))
}

func (h *Handler) writeSettleError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *checkout.ValidationError
	var stock *checkout.InsufficientStockError
	var settlement *checkout.SettlementError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, "invalid_customer_info",
			"missing or malformed: "+joinFields(validation.Fields))
	case errors.As(err, &stock):
		writeError(w, http.StatusConflict, "insufficient_stock", stock.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart_empty", "add items before checking out")
	case errors.Is(err, checkout.ErrPaymentReference):
		writeError(w, http.StatusBadRequest, "payment_id_required", "")
	case errors.As(err, &settlement):
		slog.ErrorContext(r.Context(), "settlement failed", "error", err)
		writeError(w, http.StatusBadGateway, "settlement_failed", "could not complete your order, please retry")
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

// ListOrders returns the user's order history, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "")
		return
	}

	orders, err := h.history.OrdersByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "orders_unavailable", err.Error())
		return
	}

	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrderToResponse(&orders[i], nil, nil)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrder returns one order with its items and payment reference.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "")
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_order_id", "")
		return
	}

	o, err := h.history.OrderByID(r.Context(), orderID)
	if err != nil || o.UserID != userID {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return
	}

	items, err := h.history.ItemsByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "orders_unavailable", err.Error())
		return
	}
	tr, err := h.history.TransactionByOrder(r.Context(), orderID)
	if err != nil {
		tr = nil
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o, items, tr))
}

// ListEnrollments returns the user's course enrollments.
func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "")
		return
	}

	enrollments, err := h.history.EnrollmentsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "enrollments_unavailable", err.Error())
		return
	}

	out := make([]EnrollmentResponse, len(enrollments))
	for i, e := range enrollments {
		out[i] = EnrollmentResponse{
			CourseID:         e.CourseID,
			EnrollmentDate:   e.EnrollmentDate.UTC().Format("2006-01-02"),
			CompletionStatus: e.CompletionStatus,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
