package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/clubledger/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware реестра.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.Summary)

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Route("/{title}", func(r chi.Router) {
				r.Patch("/enabled", h.SetRegistrationEnabled)
				r.Patch("/waitlist", h.SetWaitlistOpen)
				r.Get("/waitlist", h.ListWaitlist)
				r.Post("/teams", h.InviteTeam)
				r.Delete("/teams/{team}", h.RevokeTeam)
			})
		})

		r.Route("/registrants", func(r chi.Router) {
			r.Get("/", h.ListRegistrants)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRegistrant)
				r.Post("/plan/cancel", h.CancelPlan)
				r.Post("/payments/{paymentID}/refund", h.Refund)
				r.Post("/payments/{paymentID}/cancel", h.CancelPayment)
				r.Post("/payments/{paymentID}/reschedule", h.ReschedulePayment)
			})
		})

		r.Route("/waitlist", func(r chi.Router) {
			r.Post("/remove", h.RemoveWaitlistEntries)
			r.Post("/{id}/advance", h.AdvanceWaitlistEntry)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
