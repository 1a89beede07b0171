package httpx

import (
	"time"

	"github.com/jcmexdev/bookshop-checkout/internal/cart"
	"github.com/jcmexdev/bookshop-checkout/internal/catalog"
	"github.com/jcmexdev/bookshop-checkout/internal/checkout"
	"github.com/jcmexdev/bookshop-checkout/internal/order"
)

type AddItemRequest struct {
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type CartLineResponse struct {
	ItemID    int64  `json:"item_id"`
	ItemType  string `json:"item_type"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	Lines    []CartLineResponse `json:"lines"`
	Subtotal string             `json:"subtotal"`
}

type BundleBookResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
	Price         string `json:"price"`
	OriginalPrice string `json:"original_price,omitempty"`
}

type BundleResponse struct {
	ID                int64                `json:"id"`
	Title             string               `json:"title"`
	MRP               string               `json:"mrp"`
	SellingPrice      string               `json:"selling_price"`
	IsActive          bool                 `json:"is_active"`
	Books             []BundleBookResponse `json:"books"`
	TotalMRP          string               `json:"total_mrp"`
	SavingsAmount     string               `json:"savings_amount"`
	SavingsPercentage string               `json:"savings_percentage"`
}

type OrderSummaryResponse struct {
	CustomOrderID string `json:"custom_order_id"`
	PaymentID     string `json:"payment_id"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
}

type OrderResponse struct {
	ID          int64               `json:"id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	DateCreated string              `json:"date_created"`
	Items       []OrderItemResponse `json:"items,omitempty"`
	PaymentID   string              `json:"payment_id,omitempty"`
}

type OrderItemResponse struct {
	BookID   int64  `json:"book_id"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type EnrollmentResponse struct {
	CourseID         int64  `json:"course_id"`
	EnrollmentDate   string `json:"enrollment_date"`
	CompletionStatus string `json:"completion_status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapCartToResponse(lines []cart.Line) CartResponse {
	out := make([]CartLineResponse, len(lines))
	for i, l := range lines {
		out[i] = CartLineResponse{
			ItemID:    l.ItemID,
			ItemType:  string(l.ItemType),
			Title:     l.Title,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
		}
	}
	return CartResponse{
		Lines:    out,
		Subtotal: cart.Snapshot{Lines: lines}.Subtotal().StringFixed(2),
	}
}

func mapBundleToResponse(b *catalog.BundleOffer) BundleResponse {
	savings := catalog.ComputeSavings(*b)

	books := make([]BundleBookResponse, len(b.Books))
	for i, book := range b.Books {
		books[i] = BundleBookResponse{
			ID:     book.ID,
			Title:  book.Title,
			Author: book.Author,
			Price:  book.Price.StringFixed(2),
		}
		if !book.OriginalPrice.IsZero() {
			books[i].OriginalPrice = book.OriginalPrice.StringFixed(2)
		}
	}

	return BundleResponse{
		ID:                b.ID,
		Title:             b.Title,
		MRP:               b.MRP.StringFixed(2),
		SellingPrice:      b.SellingPrice.StringFixed(2),
		IsActive:          b.IsActive,
		Books:             books,
		TotalMRP:          savings.TotalMRP.StringFixed(2),
		SavingsAmount:     savings.SavingsAmount.StringFixed(2),
		SavingsPercentage: savings.SavingsPercentage.StringFixed(2),
	}
}

func mapSummaryToResponse(s *checkout.OrderSummary) OrderSummaryResponse {
	return OrderSummaryResponse{
		CustomOrderID: s.CustomOrderID,
		PaymentID:     s.PaymentID,
		Amount:        s.Amount.StringFixed(2),
		Date:          s.Date.UTC().Format(time.RFC3339),
	}
}

func mapOrderToResponse(o *order.Order, items []order.Item, tr *order.Transaction) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		DateCreated: o.DateCreated.UTC().Format(time.RFC3339),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			BookID:   it.BookID,
			Quantity: it.Quantity,
			Price:    it.Price.StringFixed(2),
		})
	}
	if tr != nil {
		resp.PaymentID = tr.PaymentID
	}
	return resp
}
