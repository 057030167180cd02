package wire

import (
	"talowa-referral/internal/adaptor"
	"talowa-referral/pkg/middleware"
	"talowa-referral/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireAdmin configures the operator routes behind the admin API key guard.
func wireAdmin(
	r chi.Router,
	handler *adaptor.AdminHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.With(middleware.AdminKey(config.Admin.APIKey, log)).Route("/api/admin", func(r chi.Router) {
		r.Post("/reconcile", handler.ReconcileAll)       // POST /api/admin/reconcile
		r.Post("/reconcile/{id}", handler.ReconcileOne)  // POST /api/admin/reconcile/{user-id}
		r.Get("/users", handler.GetAllUsers)             // GET /api/admin/users?page=1&per_page=10
	})
}
