package wire

import (
	"talowa-referral/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireReferral configures the read-only lookup routes consumed by profile
// and dashboard collaborators.
func wireReferral(r chi.Router, handler *adaptor.ReferralHandler) {
	r.Get("/api/users/{id}/stats", handler.GetUserStats)
	r.Get("/api/users/{id}/promotions", handler.GetPromotions)
	r.Get("/api/referral-codes/{code}", handler.ValidateCode)
	r.Get("/api/phone/{phone}", handler.LookupPhone)
}
