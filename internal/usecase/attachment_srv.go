package usecase

import (
	"context"
	"fmt"

	"talowa-referral/internal/data/repository"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxChainDepth bounds ancestor walks. The data model enforces no depth
// limit, so the cap is set far beyond any legitimate tree; hitting it means
// corrupted edges, not a deep network.
const maxChainDepth = 10000

type AttachmentService interface {
	Attach(ctx context.Context, newUserID uuid.UUID, referrerCode string) (uuid.UUID, error)
}

type attachmentService struct {
	userRepo repository.UserRepository
	resRepo  repository.ReservationRepository
	log      *zap.Logger
}

func NewAttachmentService(
	userRepo repository.UserRepository,
	resRepo repository.ReservationRepository,
	log *zap.Logger,
) AttachmentService {
	return &attachmentService{
		userRepo: userRepo,
		resRepo:  resRepo,
		log:      log,
	}
}

// Attach links the new user to the owner of referrerCode. An empty code
// makes the user a root. Returns the referrer's user ID so the caller can
// trigger the statistics update, or uuid.Nil for roots.
//
// Must only be called after the new user's own code has been reserved: the
// self-referral check depends on the code being bound.
func (as *attachmentService) Attach(ctx context.Context, newUserID uuid.UUID, referrerCode string) (uuid.UUID, error) {
	if referrerCode == "" {
		return uuid.Nil, nil
	}

	user, err := as.userRepo.FindByID(ctx, newUserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load user for attachment: %w", err)
	}
	if user == nil {
		return uuid.Nil, ErrUserNotFound
	}
	if user.ReferralCode == "" {
		return uuid.Nil, ErrReservationRequired
	}
	if user.ReferrerCode != "" {
		return uuid.Nil, ErrAlreadyReferred
	}

	if !utils.ValidCodeFormat(referrerCode) {
		return uuid.Nil, ErrUnknownCode
	}

	// The reservation table is the authoritative owner of a code.
	res, err := as.resRepo.FindByCode(ctx, referrerCode)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve referrer code: %w", err)
	}
	if res == nil {
		return uuid.Nil, ErrUnknownCode
	}
	if res.UserID == newUserID {
		return uuid.Nil, ErrSelfReferral
	}

	if err := as.checkNoCycle(ctx, newUserID, res.UserID); err != nil {
		return uuid.Nil, err
	}

	set, err := as.userRepo.SetReferrerCode(ctx, newUserID, referrerCode)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record referral edge: %w", err)
	}
	if !set {
		// A concurrent attach won the guarded update.
		return uuid.Nil, ErrAlreadyReferred
	}

	as.log.Info("Referral edge attached",
		zap.String("user_id", newUserID.String()),
		zap.String("referrer_code", referrerCode),
		zap.String("referrer_id", res.UserID.String()),
	)

	return res.UserID, nil
}

// checkNoCycle walks the referrer chain upward from the candidate referrer.
// Finding newUserID on that chain means the attachment would make the user
// their own ancestor. Iterative on purpose: chain depth is unbounded.
func (as *attachmentService) checkNoCycle(ctx context.Context, newUserID, referrerID uuid.UUID) error {
	current := referrerID
	for depth := 0; depth < maxChainDepth; depth++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if current == newUserID {
			return ErrSelfReferral
		}

		ancestor, err := as.userRepo.FindByID(ctx, current)
		if err != nil {
			return fmt.Errorf("walk referrer chain: %w", err)
		}
		if ancestor == nil || ancestor.ReferrerCode == "" {
			// Root reached, or orphaned referrer treated as root.
			return nil
		}

		parent, err := as.userRepo.FindByReferralCode(ctx, ancestor.ReferrerCode)
		if err != nil {
			return fmt.Errorf("walk referrer chain: %w", err)
		}
		if parent == nil {
			as.log.Warn("Orphaned referrer code on chain",
				zap.String("user_id", ancestor.ID.String()),
				zap.String("referrer_code", ancestor.ReferrerCode),
			)
			return nil
		}

		current = parent.ID
	}

	as.log.Error("Referrer chain exceeded depth cap, treating as cycle",
		zap.String("user_id", newUserID.String()),
		zap.String("referrer_id", referrerID.String()),
		zap.Int("cap", maxChainDepth),
	)
	return ErrSelfReferral
}
