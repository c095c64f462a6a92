package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/coupon-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.With(s.loginRateLimitMiddleware).Post("/login", s.handleLogin)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/ws-ticket", s.handleWSTicket)
			r.Get("/me", s.handleMe)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireClient(auth.ClientAdmin))

				r.Route("/companies", func(r chi.Router) {
					r.Get("/", s.handleListCompanies)
					r.Post("/", s.handleCreateCompany)
					r.Get("/{id}", s.handleGetCompany)
					r.Patch("/{id}", s.handleUpdateCompany)
					r.Delete("/{id}", s.handleRemoveCompany)
				})

				r.Route("/customers", func(r chi.Router) {
					r.Get("/", s.handleListCustomers)
					r.Post("/", s.handleCreateCustomer)
					r.Get("/{id}", s.handleGetCustomer)
					r.Patch("/{id}", s.handleUpdateCustomer)
					r.Delete("/{id}", s.handleRemoveCustomer)
				})

				r.Get("/audit", s.handleListAudit)
				r.Get("/sweep", s.handleSweepStatus)
				r.Post("/sweep/run", s.handleRunSweep)
			})

			r.Route("/company", func(r chi.Router) {
				r.Use(requireClient(auth.ClientCompany))

				r.Get("/info", s.handleCompanyInfo)
				r.Route("/coupons", func(r chi.Router) {
					r.Get("/", s.handleListCompanyCoupons)
					r.Post("/", s.handleCreateCoupon)
					r.Get("/{id}", s.handleGetCompanyCoupon)
					r.Patch("/{id}", s.handleUpdateCoupon)
					r.Delete("/{id}", s.handleRemoveCoupon)
				})
			})

			r.Route("/customer", func(r chi.Router) {
				r.Use(requireClient(auth.ClientCustomer))

				r.Get("/info", s.handleCustomerInfo)
				r.Get("/coupons", s.handleListPurchased)
				r.Post("/coupons/{id}/purchase", s.handlePurchase)
			})
		})
	})

	return r
}
