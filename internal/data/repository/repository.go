package repository

import (
	"talowa-referral/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User          UserRepository
	Reservation   ReservationRepository
	PhoneRegistry PhoneRegistryRepository
	Promotion     PromotionRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:          NewUserRepository(db, log),
		Reservation:   NewReservationRepository(db, log),
		PhoneRegistry: NewPhoneRegistryRepository(db, log),
		Promotion:     NewPromotionRepository(db, log),
	}
}
