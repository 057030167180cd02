package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"talowa-referral/internal/data/entity"
	"talowa-referral/internal/data/repository"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ReconcileOutcome string

const (
	OutcomeAlreadyConsistent ReconcileOutcome = "already_consistent"
	OutcomeFixed             ReconcileOutcome = "fixed"
)

// ReconciliationReport aggregates what a full pass found and corrected.
type ReconciliationReport struct {
	Scanned             int64         `json:"scanned"`
	CodesRepaired       int64         `json:"codes_repaired"`
	ReservationsCreated int64         `json:"reservations_created"`
	ConflictsResolved   int64         `json:"conflicts_resolved"`
	CountsCorrected     int64         `json:"counts_corrected"`
	RolesPromoted       int64         `json:"roles_promoted"`
	RegistryRewrites    int64         `json:"registry_rewrites"`
	OrphanReferrers     int64         `json:"orphan_referrers"`
	Errors              int64         `json:"errors"`
	Duration            time.Duration `json:"duration_ns"`
}

// Corrections returns the total number of fixes in the report.
func (r *ReconciliationReport) Corrections() int64 {
	return r.CodesRepaired + r.ReservationsCreated + r.ConflictsResolved +
		r.CountsCorrected + r.RolesPromoted + r.RegistryRewrites
}

// userCorrections is the per-user slice of the report.
type userCorrections struct {
	CodeRepaired       bool
	ReservationCreated bool
	ConflictResolved   bool
	CountsCorrected    bool
	RolePromoted       bool
	RegistryRewritten  bool
	OrphanReferrer     bool
}

func (c *userCorrections) fixed() bool {
	return c.CodeRepaired || c.ReservationCreated || c.ConflictResolved ||
		c.CountsCorrected || c.RolePromoted || c.RegistryRewritten
}

type ReconcilerService interface {
	ReconcileAll(ctx context.Context) (*ReconciliationReport, error)
	ReconcileOne(ctx context.Context, userID uuid.UUID) (ReconcileOutcome, error)
}

type reconcilerService struct {
	userRepo     repository.UserRepository
	resRepo      repository.ReservationRepository
	registryRepo repository.PhoneRegistryRepository
	reservation  ReservationService
	stats        StatsService
	rdb          *redis.Client
	cfg          utils.ReconcilerConfig
	log          *zap.Logger

	mu     sync.Mutex
	report *ReconciliationReport
}

func NewReconcilerService(
	repo *repository.Repository,
	reservation ReservationService,
	stats StatsService,
	rdb *redis.Client,
	cfg utils.ReconcilerConfig,
	log *zap.Logger,
) ReconcilerService {
	return &reconcilerService{
		userRepo:     repo.User,
		resRepo:      repo.Reservation,
		registryRepo: repo.PhoneRegistry,
		reservation:  reservation,
		stats:        stats,
		rdb:          rdb,
		cfg:          cfg,
		log:          log,
	}
}

// ReconcileAll scans every user record in keyset pages and reconciles each
// one. Safe to rerun and to run concurrently with live traffic: a pass over
// already-consistent records makes zero corrections. Per-user errors are
// counted and logged, never abort the scan.
func (rc *reconcilerService) ReconcileAll(ctx context.Context) (*ReconciliationReport, error) {
	start := time.Now()
	report := &ReconciliationReport{}

	pageSize := rc.cfg.PageSize
	if pageSize < 1 {
		pageSize = 200
	}
	concurrency := rc.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	afterID := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		users, err := rc.userRepo.ListPage(ctx, afterID, pageSize)
		if err != nil {
			return nil, fmt.Errorf("scan user page: %w", err)
		}
		if len(users) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, user := range users {
			user := user
			g.Go(func() error {
				corrections, err := rc.reconcileUser(gctx, user.ID)
				rc.merge(report, corrections, err)
				if err != nil {
					rc.log.Error("Failed to reconcile user",
						zap.Error(err),
						zap.String("user_id", user.ID.String()),
					)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		afterID = users[len(users)-1].ID
		if len(users) < pageSize {
			break
		}
	}

	report.Duration = time.Since(start)

	rc.log.Info("Reconciliation pass complete",
		zap.Int64("scanned", report.Scanned),
		zap.Int64("corrections", report.Corrections()),
		zap.Int64("orphan_referrers", report.OrphanReferrers),
		zap.Int64("errors", report.Errors),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

func (rc *reconcilerService) merge(report *ReconciliationReport, c *userCorrections, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	report.Scanned++
	if err != nil {
		report.Errors++
	}
	if c == nil {
		return
	}
	if c.CodeRepaired {
		report.CodesRepaired++
	}
	if c.ReservationCreated {
		report.ReservationsCreated++
	}
	if c.ConflictResolved {
		report.ConflictsResolved++
	}
	if c.CountsCorrected {
		report.CountsCorrected++
	}
	if c.RolePromoted {
		report.RolesPromoted++
	}
	if c.RegistryRewritten {
		report.RegistryRewrites++
	}
	if c.OrphanReferrer {
		report.OrphanReferrers++
	}
}

// ReconcileOne re-derives the canonical facts for a single user and
// rewrites every denormalized copy that disagrees.
func (rc *reconcilerService) ReconcileOne(ctx context.Context, userID uuid.UUID) (ReconcileOutcome, error) {
	corrections, err := rc.reconcileUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if corrections.fixed() {
		return OutcomeFixed, nil
	}
	return OutcomeAlreadyConsistent, nil
}

func (rc *reconcilerService) reconcileUser(ctx context.Context, userID uuid.UUID) (*userCorrections, error) {
	user, err := rc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	c := &userCorrections{}

	// Step 1: missing or malformed referral code.
	if !utils.ValidCodeFormat(user.ReferralCode) {
		if err := rc.repairCode(ctx, user); err != nil {
			return c, err
		}
		c.CodeRepaired = true
	} else {
		// Steps 2-3: reservation missing, or bound to someone else.
		if err := rc.repairReservation(ctx, user, c); err != nil {
			return c, err
		}
	}

	// Orphaned referrer: counted as a root, flagged, edge left for audit.
	if user.ReferrerCode != "" {
		owner, err := rc.resRepo.FindByCode(ctx, user.ReferrerCode)
		if err != nil {
			return c, fmt.Errorf("resolve referrer code: %w", err)
		}
		if owner == nil {
			c.OrphanReferrer = true
			rc.log.Warn("Orphaned referrer code",
				zap.String("user_id", user.ID.String()),
				zap.String("referrer_code", user.ReferrerCode),
			)
		}
	}

	// Step 4: recompute counts from stored edges and overwrite drift.
	recomputed, err := rc.stats.Recount(ctx, user.ID)
	if err != nil {
		return c, fmt.Errorf("recount: %w", err)
	}
	if recomputed.DirectCount != user.DirectCount || recomputed.TeamCount != user.TeamCount {
		rc.log.Info("Correcting cached counts",
			zap.String("user_id", user.ID.String()),
			zap.Int64("direct_before", user.DirectCount),
			zap.Int64("direct_after", recomputed.DirectCount),
			zap.Int64("team_before", user.TeamCount),
			zap.Int64("team_after", recomputed.TeamCount),
		)
		if err := rc.userRepo.UpdateCounts(ctx, user.ID, recomputed.DirectCount, recomputed.TeamCount); err != nil {
			return c, fmt.Errorf("overwrite counts: %w", err)
		}
		c.CountsCorrected = true
	}

	// Step 5: corrected counts may justify a promotion.
	promoted, err := rc.stats.EvaluateRole(ctx, user.ID)
	if err != nil {
		return c, fmt.Errorf("re-evaluate role: %w", err)
	}
	c.RolePromoted = promoted

	// Step 6: rewrite the phone projection from the corrected record.
	if err := rc.repairRegistry(ctx, user.ID, c); err != nil {
		return c, err
	}

	return c, nil
}

// repairCode reserves a valid code and overwrites the user record. The
// reservation service is idempotent, so a code the user already owns is
// reused before any fresh allocation.
func (rc *reconcilerService) repairCode(ctx context.Context, user *entity.User) error {
	code, err := rc.reservation.Reserve(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("reserve replacement code: %w", err)
	}

	rc.log.Info("Repairing referral code",
		zap.String("user_id", user.ID.String()),
		zap.String("before", user.ReferralCode),
		zap.String("after", code),
	)

	if err := rc.userRepo.OverwriteReferralCode(ctx, user.ID, code); err != nil {
		return fmt.Errorf("overwrite repaired code: %w", err)
	}

	user.ReferralCode = code
	return nil
}

// repairReservation backfills a missing reservation record for the stored
// code, or resolves a genuine ownership conflict. The reservation record's
// owner wins: a user record claiming someone else's code gets a fresh one.
func (rc *reconcilerService) repairReservation(ctx context.Context, user *entity.User, c *userCorrections) error {
	res, err := rc.resRepo.FindByCode(ctx, user.ReferralCode)
	if err != nil {
		return fmt.Errorf("load reservation: %w", err)
	}

	if res == nil {
		created, err := rc.resRepo.CreateIfAbsent(ctx, &entity.CodeReservation{
			Code:       user.ReferralCode,
			UserID:     user.ID,
			Status:     entity.ReservationActive,
			ReservedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("backfill reservation: %w", err)
		}
		if created {
			rc.log.Info("Backfilled missing reservation",
				zap.String("user_id", user.ID.String()),
				zap.String("code", user.ReferralCode),
			)
			c.ReservationCreated = true
			return nil
		}

		// Lost a race with another writer; fall through to the conflict
		// check with the fresh row.
		res, err = rc.resRepo.FindByCode(ctx, user.ReferralCode)
		if err != nil {
			return fmt.Errorf("reload reservation: %w", err)
		}
		if res == nil {
			return fmt.Errorf("reservation for %s vanished during repair", user.ReferralCode)
		}
	}

	if res.UserID != user.ID {
		before := user.ReferralCode

		code, err := rc.reservation.Reserve(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("reserve replacement for conflicted code: %w", err)
		}
		if err := rc.userRepo.OverwriteReferralCode(ctx, user.ID, code); err != nil {
			return fmt.Errorf("overwrite conflicted code: %w", err)
		}

		rc.log.Warn("Resolved reservation conflict, reservation owner wins",
			zap.String("user_id", user.ID.String()),
			zap.String("conflicted_code", before),
			zap.String("reservation_owner", res.UserID.String()),
			zap.String("replacement_code", code),
		)

		user.ReferralCode = code
		c.ConflictResolved = true
	}

	return nil
}

// repairRegistry overwrites the phone projection when it disagrees with the
// user record. Re-reads the record first so corrections from earlier steps
// are projected, then drops the redis fast-path entry.
func (rc *reconcilerService) repairRegistry(ctx context.Context, userID uuid.UUID, c *userCorrections) error {
	user, err := rc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("reload user for projection: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	entry, err := rc.registryRepo.FindByPhone(ctx, user.Phone)
	if err != nil {
		return fmt.Errorf("load registry entry: %w", err)
	}
	if entry != nil && entry.Matches(user) {
		return nil
	}

	if entry != nil {
		rc.log.Info("Rewriting divergent phone registry entry",
			zap.String("phone", user.Phone),
			zap.String("user_id_before", entry.UserID.String()),
			zap.String("user_id_after", user.ID.String()),
			zap.String("code_before", entry.ReferralCode),
			zap.String("code_after", user.ReferralCode),
			zap.String("role_before", string(entry.Role)),
			zap.String("role_after", string(user.Role)),
		)
	} else {
		rc.log.Info("Creating missing phone registry entry",
			zap.String("phone", user.Phone),
			zap.String("user_id", user.ID.String()),
		)
	}

	now := time.Now().UTC()
	created := now
	if entry != nil {
		created = entry.CreatedAt
	}
	if err := rc.registryRepo.Upsert(ctx, &entity.PhoneRegistryEntry{
		Phone:        user.Phone,
		UserID:       user.ID,
		ReferralCode: user.ReferralCode,
		Role:         user.Role,
		CreatedAt:    created,
		UpdatedAt:    now,
	}); err != nil {
		return fmt.Errorf("rewrite registry entry: %w", err)
	}
	c.RegistryRewritten = true

	if rc.rdb != nil {
		if err := rc.rdb.Del(ctx, phoneCacheKey(user.Phone), codeCacheKey(user.ReferralCode)).Err(); err != nil {
			rc.log.Warn("Failed to invalidate cache entries",
				zap.Error(err),
				zap.String("phone", user.Phone),
			)
		}
	}

	return nil
}
