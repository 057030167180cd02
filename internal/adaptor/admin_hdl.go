package adaptor

import (
	"errors"
	"net/http"

	"talowa-referral/internal/dto/request"
	"talowa-referral/internal/usecase"
	"talowa-referral/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminHandler struct {
	reconciler usecase.ReconcilerService
	lookup     usecase.LookupService
	log        *zap.Logger
}

func NewAdminHandler(reconciler usecase.ReconcilerService, lookup usecase.LookupService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reconciler: reconciler,
		lookup:     lookup,
		log:        log,
	}
}

// ReconcileAll handles POST /api/admin/reconcile
func (h *AdminHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.ReconcileAll(r.Context())
	if err != nil {
		h.log.Error("Reconciliation pass failed", zap.Error(err))
		utils.ResponseInternalError(w, "Reconciliation failed")
		return
	}

	utils.ResponseSuccess(w, "Reconciliation complete", report)
}

// ReconcileOne handles POST /api/admin/reconcile/{id}
func (h *AdminHandler) ReconcileOne(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	id, err := utils.ParseUUID(userID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid user ID", nil)
		return
	}

	outcome, err := h.reconciler.ReconcileOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			utils.ResponseNotFound(w, "User not found")
			return
		}
		h.log.Error("Failed to reconcile user", zap.Error(err), zap.String("user_id", userID))
		utils.ResponseInternalError(w, "Reconciliation failed")
		return
	}

	utils.ResponseSuccess(w, "Reconciliation complete", map[string]string{"outcome": string(outcome)})
}

// GetAllUsers handles GET /api/admin/users
func (h *AdminHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	req := &request.PaginatedRequest{
		Page:    1,
		PerPage: 10,
	}

	query := r.URL.Query()
	req.Page = utils.ParseInt(query.Get("page"), 1)
	req.PerPage = utils.ParseInt(query.Get("per_page"), 10)

	if req.PerPage > 100 {
		req.PerPage = 100
	}

	users, err := h.lookup.GetAllUsers(r.Context(), req)
	if err != nil {
		h.log.Error("Failed to get all users", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	utils.ResponseSuccess(w, "Users retrieved successfully", users)
}
