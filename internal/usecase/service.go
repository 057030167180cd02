package usecase

import (
	"talowa-referral/internal/data/repository"
	"talowa-referral/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Service struct {
	Reservation  ReservationService
	Attachment   AttachmentService
	Stats        StatsService
	StatsWorker  *StatsWorker
	Registration RegistrationService
	Reconciler   ReconcilerService
	Lookup       LookupService
}

func NewService(repo *repository.Repository, config *utils.Config, rdb *redis.Client, log *zap.Logger) *Service {
	reservation := NewReservationService(repo.User, repo.Reservation, config.Referral, log)
	attachment := NewAttachmentService(repo.User, repo.Reservation, log)
	stats := NewStatsService(repo.User, repo.Promotion, log)
	worker := NewStatsWorker(stats, log)

	return &Service{
		Reservation:  reservation,
		Attachment:   attachment,
		Stats:        stats,
		StatsWorker:  worker,
		Registration: NewRegistrationService(repo, reservation, attachment, worker, log),
		Reconciler:   NewReconcilerService(repo, reservation, stats, rdb, config.Reconciler, log),
		Lookup:       NewLookupService(repo, rdb, log),
	}
}
