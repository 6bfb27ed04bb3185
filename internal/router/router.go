package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ledgerbook/api/internal/config"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
	"github.com/ledgerbook/api/internal/handler"
	mw "github.com/ledgerbook/api/internal/middleware"
	"github.com/ledgerbook/api/internal/payment"
	"github.com/ledgerbook/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			settingHandler := handler.NewSettingHandler(queries)
			r.Route("/settings", settingHandler.RegisterRoutes)
		})

		// Ledger routes (any authenticated role can read; batch posting and
		// reversal are kept off the clerk role)
		contactHandler := handler.NewContactHandler(queries)
		r.Route("/contacts", contactHandler.RegisterRoutes)

		overpaymentHandler := handler.NewOverpaymentHandler(queries)
		r.Route("/overpayments", overpaymentHandler.RegisterRoutes)

		jobHandler := handler.NewJobHandler(queries)
		r.Route("/jobs", jobHandler.RegisterRoutes)

		poster := payment.NewPoster(queries)
		reverser := payment.NewOverpaymentService(queries)
		paymentHandler := handler.NewPaymentHandler(queries, poster, reverser)
		r.Route("/payments", func(r chi.Router) {
			r.Get("/search", paymentHandler.Search)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleBookkeeper))
				r.Post("/", paymentHandler.Post)
				r.Post("/batch", paymentHandler.PostBatch)
				r.Post("/{id}/reverse", paymentHandler.Reverse)
			})
		})
	})

	return r
}
