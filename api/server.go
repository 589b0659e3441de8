/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/tenants/*         Tenant dashboard, billing, settlement, payments, maintenance
  /api/admin/*           Units, tenants, leases, water bills, payment review, maintenance triage
  /api/announcements     Active announcements
  /healthz               Liveness probe
  /metrics               Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tenant routes
		r.Route("/tenants/{id}", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/billing", h.Billing)
			r.Post("/settlement/preview", h.PreviewSettlement)
			r.Post("/settle", h.Settle)
			r.Post("/payments", h.CapturePayment)
			r.Get("/payments", h.TenantPayments)
			r.Post("/maintenance", h.SubmitMaintenance)
			r.Get("/maintenance", h.TenantMaintenance)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Route("/units", func(r chi.Router) {
				r.Get("/", h.ListUnits)
				r.Post("/", h.CreateUnit)
			})
			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", h.ListTenants)
				r.Post("/", h.CreateTenant)
			})
			r.Route("/leases", func(r chi.Router) {
				r.Get("/", h.ListLeases)
				r.Post("/", h.CreateLease)
				r.Post("/{id}/terminate", h.TerminateLease)
			})
			r.Route("/water-bills", func(r chi.Router) {
				r.Get("/", h.ListWaterBills)
				r.Post("/", h.DraftWaterBill)
				r.Put("/{id}", h.UpdateWaterBill)
				r.Post("/{id}/post", h.PostWaterBill)
			})
			r.Route("/payments", func(r chi.Router) {
				r.Get("/pending", h.PendingPayments)
				r.Post("/{id}/approve", h.ApprovePayment)
				r.Post("/{id}/reject", h.RejectPayment)
			})
			r.Route("/maintenance", func(r chi.Router) {
				r.Get("/", h.ListMaintenance)
				r.Post("/{id}/triage", h.TriageMaintenance)
			})
			r.Post("/announcements", h.CreateAnnouncement)
		})

		// Public announcement feed
		r.Get("/announcements", h.ListAnnouncements)
	})

	// Operational endpoints
	r.Get("/healthz", h.Healthz)
	r.Method("GET", "/metrics", promhttp.Handler())

	return r
}
