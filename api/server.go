/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique ID per request for tracing
  4. CORS:       cross-origin requests from the admin frontend
  5. RateLimit:  injected limiter, keyed by client address

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Rate limit middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kelola/course-engine/ratelimit"
)

// NewRouter creates a router with all routes configured. limiter may be
// nil to disable throttling (tests).
func NewRouter(h *Handler, limiter ratelimit.Limiter, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if limiter != nil {
		r.Use(RateLimit(limiter))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/reminder", h.GetStudentReminder)
		})

		r.Route("/teachers", func(r chi.Router) {
			r.Get("/", h.ListTeachers)
			r.Post("/", h.CreateTeacher)
		})

		r.Route("/classes", func(r chi.Router) {
			r.Get("/", h.ListClasses)
			r.Post("/", h.CreateClass)
			r.Get("/{id}", h.GetClass)
			r.Post("/{id}/enrollments", h.EnrollStudent)
			r.Get("/{id}/meetings", h.ListClassMeetings)
			r.Post("/{id}/meetings", h.CreateMeeting)
		})

		r.Route("/meetings", func(r chi.Router) {
			r.Get("/{id}", h.GetMeeting)
			r.Post("/{id}/attendance", h.RecordAttendance)
			r.Get("/{id}/commission", h.GetMeetingCommission)
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Get("/report", h.CommissionReport)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/{id}", h.GetPayment)
			r.Post("/{id}/transactions", h.AddTransaction)
			r.Post("/{id}/dismiss-reminder", h.DismissReminder)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", h.ListReminders)
		})
	})

	return r
}
