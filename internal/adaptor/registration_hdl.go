package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"talowa-referral/internal/dto/request"
	"talowa-referral/internal/usecase"
	"talowa-referral/pkg/utils"

	"go.uber.org/zap"
)

type RegistrationHandler struct {
	service usecase.RegistrationService
	log     *zap.Logger
}

func NewRegistrationHandler(service usecase.RegistrationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		log:     log,
	}
}

// Register handles POST /api/register
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if errs := utils.ValidateStruct(req); errs != nil {
		utils.ResponseBadRequest(w, "Validation failed", errs)
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	utils.ResponseCreated(w, "Registration successful", resp)
}

// handleServiceError maps the referral error taxonomy to HTTP responses.
// Only the unknown-code and exhausted-attempts classes carry user-facing
// detail; everything else is a generic failure.
func (h *RegistrationHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrUnknownCode):
		h.log.Warn("Registration with unknown referral code", zap.Error(err))
		utils.ResponseBadRequest(w, "That referral code isn't valid", nil)

	case errors.Is(err, usecase.ErrSelfReferral):
		h.log.Warn("Self referral rejected", zap.Error(err))
		utils.ResponseBadRequest(w, "You cannot use your own referral code", nil)

	case errors.Is(err, usecase.ErrAlreadyReferred):
		h.log.Warn("Re-parenting rejected", zap.Error(err))
		utils.ResponseConflict(w, "A referrer is already recorded for this account")

	case errors.Is(err, usecase.ErrPhoneTaken):
		h.log.Warn("Duplicate phone at registration", zap.Error(err))
		utils.ResponseConflict(w, "This phone number is already registered")

	case errors.Is(err, usecase.ErrExhaustedAttempts):
		h.log.Error("Code reservation exhausted attempts", zap.Error(err))
		utils.ResponseInternalError(w, "Registration temporarily unavailable, try again shortly")

	case errors.Is(err, usecase.ErrUserNotFound):
		h.log.Warn("Registration for missing user", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	default:
		h.log.Error("Registration failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
