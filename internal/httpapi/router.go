// Package httpapi exposes the cart and the checkout pipeline over a local
// HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Services are the components served by the router.
type Services struct {
	Cart      *cart.Repository
	Checkout  *checkout.Orchestrator
	Checkouts *checkout.Registry
	Auth      *session.Store
	Orders    OrderBackend
}

func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	cartHandler := NewCartHandler(svc.Cart, cfg.RequestTimeout, l)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, svc.Checkouts, cfg.RequestTimeout, l)
	sessionHandler := NewSessionHandler(svc.Auth, cfg.RequestTimeout, l)
	ordersHandler := NewOrdersHandler(svc.Orders, cfg.RequestTimeout, l)
	products := lineHandler[domain.Product]{CartHandler: cartHandler, coll: svc.Cart.Products()}
	vouchers := lineHandler[domain.Voucher]{CartHandler: cartHandler, coll: svc.Cart.Vouchers()}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Put("/", sessionHandler.Login)
			r.Delete("/", sessionHandler.Logout)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Route("/products", products.routes)
			r.Route("/vouchers", vouchers.routes)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Begin)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", checkoutHandler.Get)
				r.Delete("/", checkoutHandler.Discard)
				r.Put("/address", checkoutHandler.SelectAddress)
				r.Post("/shipping/quote", checkoutHandler.QuoteShipping)
				r.Put("/shipping", checkoutHandler.SelectShipping)
				r.Put("/payment", checkoutHandler.UpdatePayment)
				r.Post("/submit", checkoutHandler.Submit)
				r.Post("/payment/retry", checkoutHandler.RetryPayment)
			})
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.List)
			r.Route("/{order_id}", func(r chi.Router) {
				r.Get("/", ordersHandler.Get)
				r.Post("/cancel", ordersHandler.Cancel)
				r.Post("/pay", checkoutHandler.PayOrder)
			})
		})
		r.Route("/payments/{payment_id}", func(r chi.Router) {
			r.Get("/", ordersHandler.PaymentStatus)
			r.Post("/cancel", ordersHandler.CancelPayment)
			r.Post("/retry", ordersHandler.RetryPayment)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
