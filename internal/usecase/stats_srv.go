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

type UserStats struct {
	DirectCount int64
	TeamCount   int64
}

type StatsService interface {
	BumpAncestors(ctx context.Context, referrerID uuid.UUID) error
	Recount(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	EvaluateRole(ctx context.Context, userID uuid.UUID) (bool, error)
}

type statsService struct {
	userRepo  repository.UserRepository
	promoRepo repository.PromotionRepository
	log       *zap.Logger
}

func NewStatsService(
	userRepo repository.UserRepository,
	promoRepo repository.PromotionRepository,
	log *zap.Logger,
) StatsService {
	return &statsService{
		userRepo:  userRepo,
		promoRepo: promoRepo,
		log:       log,
	}
}

// BumpAncestors applies the on-write incremental strategy after a new edge
// is attached under referrerID: direct+1 and team+1 at the referrer, then
// team+1 for every ancestor up to the root. All increments are atomic in
// the store, so concurrent sibling registrations cannot lose updates. The
// walk is iterative and depth-capped; an orphaned referrer code ends the
// walk as if the chain reached a root.
func (ss *statsService) BumpAncestors(ctx context.Context, referrerID uuid.UUID) error {
	if err := ss.userRepo.IncrementDirectAndTeam(ctx, referrerID); err != nil {
		return fmt.Errorf("bump referrer counts: %w", err)
	}
	if _, err := ss.EvaluateRole(ctx, referrerID); err != nil {
		return fmt.Errorf("evaluate referrer role: %w", err)
	}

	current := referrerID
	for depth := 0; depth < maxChainDepth; depth++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		user, err := ss.userRepo.FindByID(ctx, current)
		if err != nil {
			return fmt.Errorf("walk ancestor chain: %w", err)
		}
		if user == nil || user.ReferrerCode == "" {
			return nil
		}

		parent, err := ss.userRepo.FindByReferralCode(ctx, user.ReferrerCode)
		if err != nil {
			return fmt.Errorf("resolve ancestor: %w", err)
		}
		if parent == nil {
			// Orphaned referrer code: count the user as a root and leave
			// the dangling edge for the reconciler's report.
			ss.log.Warn("Orphaned referrer code during stats bump",
				zap.String("user_id", user.ID.String()),
				zap.String("referrer_code", user.ReferrerCode),
			)
			return nil
		}

		if err := ss.userRepo.IncrementTeam(ctx, parent.ID); err != nil {
			return fmt.Errorf("bump ancestor team count: %w", err)
		}
		if _, err := ss.EvaluateRole(ctx, parent.ID); err != nil {
			return fmt.Errorf("evaluate ancestor role: %w", err)
		}

		current = parent.ID
	}

	ss.log.Error("Ancestor chain exceeded depth cap during stats bump",
		zap.String("referrer_id", referrerID.String()),
		zap.Int("cap", maxChainDepth),
	)
	return fmt.Errorf("ancestor chain exceeded depth cap %d", maxChainDepth)
}

// Recount recomputes both counters from stored edges, ignoring the cached
// values. This is the reconciler's ground truth.
func (ss *statsService) Recount(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	user, err := ss.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user for recount: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// No code means no one can reference this user yet.
	if user.ReferralCode == "" {
		return &UserStats{}, nil
	}

	direct, err := ss.userRepo.CountDirect(ctx, user.ReferralCode)
	if err != nil {
		return nil, fmt.Errorf("recount direct: %w", err)
	}

	team, err := ss.userRepo.CountTeam(ctx, user.ReferralCode)
	if err != nil {
		return nil, fmt.Errorf("recount team: %w", err)
	}

	return &UserStats{DirectCount: direct, TeamCount: team}, nil
}

// EvaluateRole re-runs the progression ladder against the user's current
// counts and promotes if thresholds are met. Roles never go down here;
// demotion is an external administrative action. Returns whether a
// promotion happened.
func (ss *statsService) EvaluateRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := ss.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user for role evaluation: %w", err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	next := entity.NextRole(user.Role, user.DirectCount, user.TeamCount)
	if next == user.Role {
		return false, nil
	}

	updated, err := ss.userRepo.UpdateRole(ctx, userID, user.Role, next)
	if err != nil {
		return false, fmt.Errorf("promote user: %w", err)
	}
	if !updated {
		// A concurrent evaluation already advanced the role.
		return false, nil
	}

	event := &entity.PromotionEvent{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: time.Now().UTC(),
		},
		UserID:  userID,
		OldRole: user.Role,
		NewRole: next,
	}
	if err := ss.promoRepo.Create(ctx, event); err != nil {
		// The promotion itself stuck; the missing event row only costs a
		// notification.
		ss.log.Error("Failed to record promotion event",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
	}

	ss.log.Info("User promoted",
		zap.String("user_id", userID.String()),
		zap.String("old_role", string(user.Role)),
		zap.String("new_role", string(next)),
		zap.Int64("direct_count", user.DirectCount),
		zap.Int64("team_count", user.TeamCount),
	)

	return true, nil
}
