package api

import (
	"database/sql"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/api/handlers"
	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/AbogiC/kostum-resonanz/internal/services"
	"github.com/AbogiC/kostum-resonanz/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies collects what the router needs to build its handlers.
type Dependencies struct {
	DB       *sql.DB
	Hub      *websocket.Hub
	Accounts services.AccountServiceProvider
	Catalog  services.CatalogServiceProvider
	Bookings services.BookingServiceProvider
	Events   services.EventServiceProvider

	CORSOrigins  []string
	TokenTTL     time.Duration
	SecureCookie bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.DB)
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.TokenTTL, deps.SecureCookie)
	costumeHandler := handlers.NewCostumeHandler(deps.Catalog)
	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CORSOrigins)

	requireAuth := auth.Middleware(deps.Accounts)
	requireAdmin := auth.RequireRoleMiddleware(models.RoleAdmin)

	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/costumes", func(r chi.Router) {
			r.Get("/", costumeHandler.GetAll)
			r.Get("/{id}", costumeHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", costumeHandler.Create)
				r.Put("/{id}", costumeHandler.Update)
				r.Delete("/{id}", costumeHandler.Delete)
			})
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", bookingHandler.Create)
			r.Get("/", bookingHandler.ListMine)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Get("/bookings", bookingHandler.ListAll)
			r.Put("/bookings/{id}/status", bookingHandler.UpdateStatus)
			r.Get("/events", eventHandler.GetRecent)
			r.Get("/ws", wsHandler.Serve)
		})
	})

	return r
}
