package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(WithSession)

	r.Get("/cart", handler.GetCart)
	r.Post("/cart/items", handler.AddCartItem)
	r.Post("/cart/buy-now/{bookID}", handler.BuyNow)
	r.Delete("/cart/items/{type}/{id}", handler.RemoveCartItem)

	r.Get("/bundles/{id}", handler.GetBundle)

	r.Post("/checkout", handler.Checkout)
	r.Get("/payment/success", handler.PaymentSuccess)

	r.Get("/account/orders", handler.ListOrders)
	r.Get("/account/orders/{id}", handler.GetOrder)
	r.Get("/account/enrollments", handler.ListEnrollments)

	return r
}
