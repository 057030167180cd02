package usecase

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"talowa-referral/internal/data/entity"
	"talowa-referral/internal/data/repository"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
)

// fakeStore backs in-memory stand-ins for all four repositories. It keeps
// the same conditional-write semantics as the SQL layer so the services can
// be exercised without a database.
type fakeStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*entity.User
	reservations map[string]*entity.CodeReservation
	registry     map[string]*entity.PhoneRegistryEntry
	promotions   []*entity.PromotionEvent

	// every candidate code reads as already held, to drive exhaustion
	codeAlwaysTaken bool
	reservationErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[uuid.UUID]*entity.User),
		reservations: make(map[string]*entity.CodeReservation),
		registry:     make(map[string]*entity.PhoneRegistryEntry),
	}
}

func (f *fakeStore) repos() *repository.Repository {
	return &repository.Repository{
		User:          &fakeUserRepo{f},
		Reservation:   &fakeReservationRepo{f},
		PhoneRegistry: &fakeRegistryRepo{f},
		Promotion:     &fakePromotionRepo{f},
	}
}

func testReferralConfig() utils.ReferralConfig {
	return utils.ReferralConfig{
		CodePrefix:   "TAL",
		CodeLength:   8,
		MaxAttempts:  10,
		StoreRetries: 1,
		RetryBackoff: time.Millisecond,
	}
}

func copyUser(u *entity.User) *entity.User {
	c := *u
	return &c
}

// addUser stores the record directly, bypassing the service layer.
func (f *fakeStore) addUser(u *entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = copyUser(u)
}

func (f *fakeStore) addReservation(code string, userID uuid.UUID, status entity.ReservationStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations[code] = &entity.CodeReservation{
		Code:       code,
		UserID:     userID,
		Status:     status,
		ReservedAt: time.Now().UTC(),
	}
}

func (f *fakeStore) getUser(id uuid.UUID) *entity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return copyUser(u)
	}
	return nil
}

func (f *fakeStore) getRegistry(phone string) *entity.PhoneRegistryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.registry[phone]; ok {
		c := *e
		return &c
	}
	return nil
}

func (f *fakeStore) promotionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.promotions)
}

func (f *fakeStore) sortedUsersLocked() []*entity.User {
	all := make([]*entity.User, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool {
		return bytes.Compare(all[i].ID[:], all[j].ID[:]) < 0
	})
	return all
}

func (f *fakeStore) countTeamLocked(code string) int64 {
	var total int64
	for _, u := range f.users {
		if u.ReferrerCode == code {
			total++
			if u.ReferralCode != "" {
				total += f.countTeamLocked(u.ReferralCode)
			}
		}
	}
	return total
}

// ==================== UserRepository ====================

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.s.getUser(id), nil
}

func (r *fakeUserRepo) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Phone == phone {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByReferralCode(ctx context.Context, code string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ReferralCode == code {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.s.sortedUsersLocked()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeUserRepo) CountAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

func (r *fakeUserRepo) ListPage(ctx context.Context, afterID uuid.UUID, limit int) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var page []*entity.User
	for _, u := range r.s.sortedUsersLocked() {
		if bytes.Compare(u.ID[:], afterID[:]) > 0 {
			page = append(page, u)
		}
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (r *fakeUserRepo) SetReferralCode(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ReferralCode != "" {
		return false, nil
	}
	u.ReferralCode = code
	return true, nil
}

func (r *fakeUserRepo) OverwriteReferralCode(ctx context.Context, id uuid.UUID, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.ReferralCode = code
	return nil
}

func (r *fakeUserRepo) SetReferrerCode(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ReferrerCode != "" {
		return false, nil
	}
	u.ReferrerCode = code
	return true, nil
}

func (r *fakeUserRepo) IncrementDirectAndTeam(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.DirectCount++
	u.TeamCount++
	return nil
}

func (r *fakeUserRepo) IncrementTeam(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.TeamCount++
	return nil
}

func (r *fakeUserRepo) UpdateCounts(ctx context.Context, id uuid.UUID, direct, team int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.DirectCount = direct
	u.TeamCount = team
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, from, to entity.Role) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Role != from {
		return false, nil
	}
	u.Role = to
	return true, nil
}

func (r *fakeUserRepo) CountDirect(ctx context.Context, code string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, u := range r.s.users {
		if u.ReferrerCode == code {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) CountTeam(ctx context.Context, code string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.countTeamLocked(code), nil
}

// ==================== ReservationRepository ====================

type fakeReservationRepo struct{ s *fakeStore }

func (r *fakeReservationRepo) CreateIfAbsent(ctx context.Context, res *entity.CodeReservation) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.reservationErr != nil {
		return false, r.s.reservationErr
	}
	if r.s.codeAlwaysTaken {
		return false, nil
	}
	if _, held := r.s.reservations[res.Code]; held {
		return false, nil
	}
	c := *res
	r.s.reservations[res.Code] = &c
	return true, nil
}

func (r *fakeReservationRepo) FindByCode(ctx context.Context, code string) (*entity.CodeReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if res, ok := r.s.reservations[code]; ok {
		c := *res
		return &c, nil
	}
	return nil, nil
}

func (r *fakeReservationRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*entity.CodeReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *entity.CodeReservation
	for _, res := range r.s.reservations {
		if res.UserID != userID {
			continue
		}
		if best == nil ||
			res.ReservedAt.Before(best.ReservedAt) ||
			(res.ReservedAt.Equal(best.ReservedAt) && res.Code < best.Code) {
			best = res
		}
	}
	if best == nil {
		return nil, nil
	}
	c := *best
	return &c, nil
}

func (r *fakeReservationRepo) UpdateStatus(ctx context.Context, code string, status entity.ReservationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[code]
	if !ok {
		return ErrUnknownCode
	}
	res.Status = status
	return nil
}

// ==================== PhoneRegistryRepository ====================

type fakeRegistryRepo struct{ s *fakeStore }

func (r *fakeRegistryRepo) FindByPhone(ctx context.Context, phone string) (*entity.PhoneRegistryEntry, error) {
	return r.s.getRegistry(phone), nil
}

func (r *fakeRegistryRepo) CreateIfAbsent(ctx context.Context, entry *entity.PhoneRegistryEntry) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.registry[entry.Phone]; exists {
		return false, nil
	}
	c := *entry
	r.s.registry[entry.Phone] = &c
	return true, nil
}

func (r *fakeRegistryRepo) Upsert(ctx context.Context, entry *entity.PhoneRegistryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *entry
	r.s.registry[entry.Phone] = &c
	return nil
}

// ==================== PromotionRepository ====================

type fakePromotionRepo struct{ s *fakeStore }

func (r *fakePromotionRepo) Create(ctx context.Context, event *entity.PromotionEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *event
	r.s.promotions = append(r.s.promotions, &c)
	return nil
}

func (r *fakePromotionRepo) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PromotionEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var events []*entity.PromotionEvent
	for i := len(r.s.promotions) - 1; i >= 0 && len(events) < limit; i-- {
		if r.s.promotions[i].UserID == userID {
			c := *r.s.promotions[i]
			events = append(events, &c)
		}
	}
	return events, nil
}
