package wire

import (
	"talowa-referral/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireRegistration configures the registration route. Identity is verified
// upstream by the authentication collaborator, so the route itself is
// public.
func wireRegistration(r chi.Router, handler *adaptor.RegistrationHandler) {
	r.Post("/api/register", handler.Register)
}
