package usecase

import (
	"context"
	"fmt"
	"time"

	"talowa-referral/internal/data/entity"
	"talowa-referral/internal/data/repository"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService interface {
	Reserve(ctx context.Context, userID uuid.UUID) (string, error)
}

type reservationService struct {
	userRepo repository.UserRepository
	resRepo  repository.ReservationRepository
	cfg      utils.ReferralConfig
	log      *zap.Logger
}

func NewReservationService(
	userRepo repository.UserRepository,
	resRepo repository.ReservationRepository,
	cfg utils.ReferralConfig,
	log *zap.Logger,
) ReservationService {
	return &reservationService{
		userRepo: userRepo,
		resRepo:  resRepo,
		cfg:      cfg,
		log:      log,
	}
}

// Reserve allocates a globally unique referral code for the user,
// idempotently: repeated calls for the same user always return the same
// code and never allocate a second one. The conditional insert on the
// reservation table is the only mutual exclusion in play; losing that race
// just means trying the next candidate.
func (rs *reservationService) Reserve(ctx context.Context, userID uuid.UUID) (string, error) {
	// Idempotent replay: an existing reservation wins unconditionally.
	existing, err := rs.findExisting(ctx, userID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := rs.finishReservation(ctx, userID, existing); err != nil {
			return "", err
		}
		return existing.Code, nil
	}

	user, err := rs.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user for reservation: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	for attempt := 1; attempt <= rs.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := utils.GenerateReferralCode(rs.cfg.CodePrefix, rs.cfg.CodeLength)
		if err != nil {
			return "", fmt.Errorf("generate candidate: %w", err)
		}

		res := &entity.CodeReservation{
			Code:       candidate,
			UserID:     userID,
			Status:     entity.ReservationReserved,
			ReservedAt: time.Now().UTC(),
		}

		created, err := rs.createWithRetry(ctx, res)
		if err != nil {
			return "", err
		}
		if !created {
			// Someone else holds this code. Expected signal, new candidate.
			rs.log.Debug("Referral code collision, retrying",
				zap.String("candidate", candidate),
				zap.Int("attempt", attempt),
			)
			continue
		}

		if err := rs.finishReservation(ctx, userID, res); err != nil {
			return "", err
		}

		// If a concurrent Reserve for this user won the user-record write,
		// its code is the bound one; ours stays as a permanently owned but
		// unused reservation (codes are never recycled).
		bound, err := rs.findExisting(ctx, userID)
		if err != nil {
			return "", err
		}
		if bound != nil && bound.Code != candidate {
			rs.log.Info("Concurrent reservation won, returning bound code",
				zap.String("user_id", userID.String()),
				zap.String("bound", bound.Code),
				zap.String("orphaned", candidate),
			)
			return bound.Code, nil
		}

		rs.log.Info("Referral code reserved",
			zap.String("user_id", userID.String()),
			zap.String("code", candidate),
			zap.Int("attempt", attempt),
		)
		return candidate, nil
	}

	rs.log.Error("Reservation attempts exhausted",
		zap.String("user_id", userID.String()),
		zap.Int("max_attempts", rs.cfg.MaxAttempts),
	)
	return "", ErrExhaustedAttempts
}

func (rs *reservationService) findExisting(ctx context.Context, userID uuid.UUID) (*entity.CodeReservation, error) {
	res, err := rs.resRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup existing reservation: %w", err)
	}
	return res, nil
}

// finishReservation copies the code onto the user record (guarded, first
// writer wins) and marks the reservation active. Both writes may fail
// independently of the reservation insert; the reconciler heals any
// partial application.
func (rs *reservationService) finishReservation(ctx context.Context, userID uuid.UUID, res *entity.CodeReservation) error {
	set, err := rs.userRepo.SetReferralCode(ctx, userID, res.Code)
	if err != nil {
		return fmt.Errorf("write code onto user record: %w", err)
	}
	if !set {
		rs.log.Debug("User record already carries a referral code",
			zap.String("user_id", userID.String()),
			zap.String("code", res.Code),
		)
	}

	if res.Status != entity.ReservationActive {
		if err := rs.resRepo.UpdateStatus(ctx, res.Code, entity.ReservationActive); err != nil {
			// Non-fatal: status is advisory, the binding itself is the row.
			rs.log.Warn("Failed to activate reservation",
				zap.Error(err),
				zap.String("code", res.Code),
			)
		}
	}

	return nil
}

// createWithRetry retries transient store failures with linear backoff. A
// uniqueness conflict is not a failure and comes back as created=false.
func (rs *reservationService) createWithRetry(ctx context.Context, res *entity.CodeReservation) (bool, error) {
	retries := rs.cfg.StoreRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		created, err := rs.resRepo.CreateIfAbsent(ctx, res)
		if err == nil {
			return created, nil
		}
		lastErr = err

		rs.log.Warn("Transient store error creating reservation",
			zap.Error(err),
			zap.String("code", res.Code),
			zap.Int("retry", i+1),
		)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(rs.cfg.RetryBackoff * time.Duration(i+1)):
		}
	}

	return false, fmt.Errorf("reservation store unavailable: %w", lastErr)
}
