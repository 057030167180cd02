package usecase

import (
	"context"
	"testing"
	"time"

	"talowa-referral/internal/data/entity"
	"talowa-referral/internal/dto/request"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRegistrationHarness(store *fakeStore) (RegistrationService, *StatsWorker) {
	log := zap.NewNop()
	repos := store.repos()
	reservation := NewReservationService(repos.User, repos.Reservation, testReferralConfig(), log)
	attachment := NewAttachmentService(repos.User, repos.Reservation, log)
	stats := NewStatsService(repos.User, repos.Promotion, log)
	worker := NewStatsWorker(stats, log)
	return NewRegistrationService(repos, reservation, attachment, worker, log), worker
}

func TestRegisterRootUser(t *testing.T) {
	store := newFakeStore()
	reg, _ := newRegistrationHarness(store)

	userID := uuid.New()
	resp, err := reg.Register(context.Background(), &request.RegisterRequest{
		UserID:   userID.String(),
		FullName: "Asha Rao",
		Phone:    "98765 43210",
	})
	require.NoError(t, err)

	assert.Equal(t, userID.String(), resp.UserID)
	assert.True(t, utils.ValidCodeFormat(resp.ReferralCode))
	assert.Equal(t, entity.RoleMember, resp.Role)

	stored := store.getUser(userID)
	require.NotNil(t, stored)
	assert.Equal(t, "+919876543210", stored.Phone)
	assert.Equal(t, resp.ReferralCode, stored.ReferralCode)
	assert.True(t, stored.IsRoot())

	// The phone projection was seeded.
	entry := store.getRegistry("+919876543210")
	require.NotNil(t, entry)
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, resp.ReferralCode, entry.ReferralCode)
}

func TestRegisterWithReferrerBumpsStats(t *testing.T) {
	store := newFakeStore()
	reg, worker := newRegistrationHarness(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	referrerID := uuid.New()
	refResp, err := reg.Register(ctx, &request.RegisterRequest{
		UserID:   referrerID.String(),
		FullName: "Asha Rao",
		Phone:    "+919876543210",
	})
	require.NoError(t, err)

	joinerID := uuid.New()
	_, err = reg.Register(ctx, &request.RegisterRequest{
		UserID:       joinerID.String(),
		FullName:     "Vikram Shah",
		Phone:        "+919876543211",
		ReferralCode: refResp.ReferralCode,
	})
	require.NoError(t, err)

	assert.Equal(t, refResp.ReferralCode, store.getUser(joinerID).ReferrerCode)

	// The bump runs asynchronously off the registration path.
	assert.Eventually(t, func() bool {
		u := store.getUser(referrerID)
		return u.DirectCount == 1 && u.TeamCount == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRegisterIsIdempotent(t *testing.T) {
	store := newFakeStore()
	reg, _ := newRegistrationHarness(store)

	req := &request.RegisterRequest{
		UserID:   uuid.New().String(),
		FullName: "Asha Rao",
		Phone:    "+919876543210",
	}

	first, err := reg.Register(context.Background(), req)
	require.NoError(t, err)

	second, err := reg.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ReferralCode, second.ReferralCode)

	count, _ := (&fakeUserRepo{store}).CountAll(context.Background())
	assert.Equal(t, int64(1), count)

	store.mu.Lock()
	assert.Len(t, store.reservations, 1)
	store.mu.Unlock()
}

func TestRegisterRejectsTakenPhone(t *testing.T) {
	store := newFakeStore()
	reg, _ := newRegistrationHarness(store)

	_, err := reg.Register(context.Background(), &request.RegisterRequest{
		UserID:   uuid.New().String(),
		FullName: "Asha Rao",
		Phone:    "+919876543210",
	})
	require.NoError(t, err)

	// A different user ID with the same normalized phone.
	_, err = reg.Register(context.Background(), &request.RegisterRequest{
		UserID:   uuid.New().String(),
		FullName: "Imposter",
		Phone:    "098765 43210",
	})
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestRegisterUnknownReferralCode(t *testing.T) {
	store := newFakeStore()
	reg, _ := newRegistrationHarness(store)

	userID := uuid.New()
	_, err := reg.Register(context.Background(), &request.RegisterRequest{
		UserID:       userID.String(),
		FullName:     "Vikram Shah",
		Phone:        "+919876543211",
		ReferralCode: "TALQQQQQQ8",
	})
	assert.ErrorIs(t, err, ErrUnknownCode)

	// The user record and their own code survive; a retry with a good code
	// replays idempotently.
	stored := store.getUser(userID)
	require.NotNil(t, stored)
	assert.True(t, utils.ValidCodeFormat(stored.ReferralCode))
	assert.True(t, stored.IsRoot())
}

func TestRegisterInvalidInput(t *testing.T) {
	store := newFakeStore()
	reg, _ := newRegistrationHarness(store)

	_, err := reg.Register(context.Background(), &request.RegisterRequest{
		UserID:   "not-a-uuid",
		FullName: "Asha Rao",
		Phone:    "+919876543210",
	})
	assert.Error(t, err)

	_, err = reg.Register(context.Background(), &request.RegisterRequest{
		UserID:   uuid.New().String(),
		FullName: "Asha Rao",
		Phone:    "not-a-phone",
	})
	assert.Error(t, err)
}
