package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"talowa-referral/internal/usecase"
	"talowa-referral/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReferralHandler struct {
	service usecase.LookupService
	log     *zap.Logger
}

func NewReferralHandler(service usecase.LookupService, log *zap.Logger) *ReferralHandler {
	return &ReferralHandler{
		service: service,
		log:     log,
	}
}

// GetUserStats handles GET /api/users/{id}/stats
func (h *ReferralHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		utils.ResponseBadRequest(w, "User ID is required", nil)
		return
	}

	stats, err := h.service.GetUserStats(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get user stats")
		return
	}

	utils.ResponseSuccess(w, "Stats retrieved successfully", stats)
}

// GetPromotions handles GET /api/users/{id}/promotions
func (h *ReferralHandler) GetPromotions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		utils.ResponseBadRequest(w, "User ID is required", nil)
		return
	}

	promotions, err := h.service.GetPromotions(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get promotions")
		return
	}

	utils.ResponseSuccess(w, "Promotions retrieved successfully", promotions)
}

// ValidateCode handles GET /api/referral-codes/{code}
func (h *ReferralHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		utils.ResponseBadRequest(w, "Referral code is required", nil)
		return
	}

	result, err := h.service.ValidateReferralCode(r.Context(), code)
	if err != nil {
		h.handleServiceError(w, err, "validate referral code")
		return
	}

	utils.ResponseSuccess(w, "Code checked", result)
}

// LookupPhone handles GET /api/phone/{phone}
func (h *ReferralHandler) LookupPhone(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if phone == "" {
		utils.ResponseBadRequest(w, "Phone number is required", nil)
		return
	}

	entry, err := h.service.LookupByPhone(r.Context(), phone)
	if err != nil {
		h.handleServiceError(w, err, "look up phone")
		return
	}

	utils.ResponseSuccess(w, "Registry entry retrieved", entry)
}

func (h *ReferralHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound):
		h.log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, "Not found")

	case strings.Contains(err.Error(), "invalid"):
		h.log.Warn("Invalid input for "+operation, zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
