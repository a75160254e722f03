package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/drinkbar-ledger/internal/identity"
	custommiddleware "github.com/mmeshcher/drinkbar-ledger/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса учёта заказов.
func (h *Handler) SetupRouter(timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.Metrics(h.metrics))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(chimw.Timeout(timeout))

	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/config/currency", h.GetCurrency)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.Account(h.service, h.logger))

			r.Get("/me", h.GetMe)
			r.Get("/balance", h.GetBalance)

			r.Get("/products", h.GetProducts)
			r.Get("/products/{id}", h.GetProduct)

			r.Post("/order", h.CreateOrder)
			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.Get("/payments", h.GetPayments)
			r.With(custommiddleware.RequireScope(identity.ScopeCustomer)).Post("/payments", h.CreatePayment)

			r.Route("/admin", func(r chi.Router) {
				r.Use(custommiddleware.RequireScope(identity.ScopeAdmin))

				r.Get("/orders", h.AdminGetOrders)
				r.Delete("/orders/{id}", h.AdminDeleteOrder)

				r.Get("/payments", h.AdminGetPayments)
				r.Put("/payments/{id}/confirm", h.AdminConfirmPayment)
				r.Put("/payments/{id}/decline", h.AdminDeclinePayment)

				r.Get("/accounts", h.AdminGetAccounts)
				r.Patch("/accounts/{id}", h.AdminUpdateAccount)

				r.Post("/products", h.AdminCreateProduct)
				r.Put("/products/{id}", h.AdminUpdateProduct)
				r.Delete("/products/{id}", h.AdminDeleteProduct)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeStatus(w, http.StatusNotFound, "not_found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeStatus(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return r
}
