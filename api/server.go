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
  4. CORS:       Cross-origin requests for the mobile/web clients
  5. requireAuth on everything except signup/login and skill browsing

ROUTE GROUPS:
  /api/auth/*       Signup and login (public)
  /api/skills/*     Listings and slots (browse public, mutate authed)
  /api/me/*         Account and balance
  /api/bookings/*   The booking transaction and lifecycle

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: The auth middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	authed := requireAuth(h.Tokens)

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
		})

		// Skill routes: browsing is public, mutations require auth
		r.Route("/skills", func(r chi.Router) {
			r.Get("/", h.ListSkills)
			r.Get("/{skillID}", h.GetSkill)
			r.Get("/{skillID}/slots", h.ListSlots)
			r.Get("/{skillID}/slots/stream", h.StreamSlots)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/", h.CreateSkill)
				r.Delete("/{skillID}", h.DeleteSkill)
				r.Post("/{skillID}/slots", h.CreateSlot)
				r.Delete("/{skillID}/slots/{slotID}", h.DeleteSlot)
			})
		})

		// Account routes
		r.Route("/me", func(r chi.Router) {
			r.Use(authed)
			r.Get("/", h.Me)
			r.Get("/balance", h.GetBalance)
			r.Get("/balance/stream", h.StreamBalance)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Use(authed)
			r.Post("/", h.CreateBooking)
			r.Get("/", h.ListBookings)
			r.Get("/stream", h.StreamBookings)
			r.Get("/{bookingID}", h.GetBooking)
			r.Post("/{bookingID}/complete", h.CompleteBooking)
			r.Post("/{bookingID}/cancel", h.CancelBooking)
			r.Get("/{bookingID}/messages", h.ListMessages)
			r.Post("/{bookingID}/messages", h.SendMessage)
		})
	})

	return r
}
