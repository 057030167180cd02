package adaptor

import (
	"talowa-referral/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Registration *RegistrationHandler
	Referral     *ReferralHandler
	Admin        *AdminHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Registration: NewRegistrationHandler(service.Registration, log),
		Referral:     NewReferralHandler(service.Lookup, log),
		Admin:        NewAdminHandler(service.Reconciler, service.Lookup, log),
	}
}
