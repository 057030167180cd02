package usecase

import (
	"context"
	"fmt"
	"time"

	"talowa-referral/internal/data/entity"
	"talowa-referral/internal/data/repository"
	"talowa-referral/internal/dto/request"
	"talowa-referral/internal/dto/response"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegistrationService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.RegistrationResponse, error)
}

type registrationService struct {
	userRepo     repository.UserRepository
	registryRepo repository.PhoneRegistryRepository
	reservation  ReservationService
	attachment   AttachmentService
	worker       *StatsWorker
	log          *zap.Logger
}

func NewRegistrationService(
	repo *repository.Repository,
	reservation ReservationService,
	attachment AttachmentService,
	worker *StatsWorker,
	log *zap.Logger,
) RegistrationService {
	return &registrationService{
		userRepo:     repo.User,
		registryRepo: repo.PhoneRegistry,
		reservation:  reservation,
		attachment:   attachment,
		worker:       worker,
		log:          log,
	}
}

// Register runs the full registration flow in the mandated order:
// user record → code reservation → referral attachment → async stats bump.
// Reservation and attachment errors go back to the caller; everything after
// attachment is deliberately non-blocking.
func (rs *registrationService) Register(ctx context.Context, req *request.RegisterRequest) (*response.RegistrationResponse, error) {
	userID, err := utils.ParseUUID(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID")
	}

	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		rs.log.Warn("Invalid phone at registration",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invalid phone number")
	}

	user, err := rs.userRepo.FindByID(ctx, userID)
	if err != nil {
		rs.log.Error("Failed to look up user", zap.Error(err), zap.String("user_id", req.UserID))
		return nil, fmt.Errorf("registration failed")
	}

	if user == nil {
		byPhone, err := rs.userRepo.FindByPhone(ctx, phone)
		if err != nil {
			rs.log.Error("Failed to look up phone", zap.Error(err), zap.String("phone", phone))
			return nil, fmt.Errorf("registration failed")
		}
		if byPhone != nil {
			return nil, ErrPhoneTaken
		}

		now := time.Now().UTC()
		user = &entity.User{
			Base: entity.Base{
				ID:        userID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			FullName: req.FullName,
			Phone:    phone,
			Role:     entity.RoleMember,
		}
		if err := rs.userRepo.Create(ctx, user); err != nil {
			rs.log.Error("Failed to create user record", zap.Error(err), zap.String("user_id", req.UserID))
			return nil, fmt.Errorf("registration failed")
		}
	}

	// Reservation strictly precedes attachment.
	code, err := rs.reservation.Reserve(ctx, userID)
	if err != nil {
		return nil, err
	}

	referrerID, err := rs.attachment.Attach(ctx, userID, req.ReferralCode)
	if err != nil {
		// The reserved code stays permanently owned even when attachment
		// fails; codes are cheap and never rolled back.
		return nil, err
	}

	// Seed the phone projection. Best effort: the reconciler owns repairs.
	seedEntry := &entity.PhoneRegistryEntry{
		Phone:        phone,
		UserID:       userID,
		ReferralCode: code,
		Role:         user.Role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if _, err := rs.registryRepo.CreateIfAbsent(ctx, seedEntry); err != nil {
		rs.log.Warn("Failed to seed phone registry, reconciler will heal",
			zap.Error(err),
			zap.String("phone", phone),
		)
	}

	if referrerID != uuid.Nil {
		rs.worker.Enqueue(referrerID)
	}

	rs.log.Info("User registered",
		zap.String("user_id", userID.String()),
		zap.String("referral_code", code),
		zap.Bool("has_referrer", req.ReferralCode != ""),
	)

	return &response.RegistrationResponse{
		UserID:       userID.String(),
		ReferralCode: code,
		ReferrerCode: req.ReferralCode,
		Role:         user.Role,
	}, nil
}
