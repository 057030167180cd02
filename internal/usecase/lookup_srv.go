package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talowa-referral/internal/data/repository"
	"talowa-referral/internal/dto/request"
	"talowa-referral/internal/dto/response"
	"talowa-referral/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lookupCacheTTL = 10 * time.Minute

func phoneCacheKey(phone string) string {
	return "registry:phone:" + phone
}

func codeCacheKey(code string) string {
	return "registry:code:" + code
}

type LookupService interface {
	GetUserStats(ctx context.Context, userID string) (*response.UserStatsResponse, error)
	ValidateReferralCode(ctx context.Context, code string) (*response.CodeValidationResponse, error)
	LookupByPhone(ctx context.Context, phone string) (*response.PhoneLookupResponse, error)
	GetPromotions(ctx context.Context, userID string) ([]response.PromotionResponse, error)
	GetAllUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
}

type lookupService struct {
	userRepo     repository.UserRepository
	resRepo      repository.ReservationRepository
	registryRepo repository.PhoneRegistryRepository
	promoRepo    repository.PromotionRepository
	rdb          *redis.Client
	log          *zap.Logger
}

func NewLookupService(repo *repository.Repository, rdb *redis.Client, log *zap.Logger) LookupService {
	return &lookupService{
		userRepo:     repo.User,
		resRepo:      repo.Reservation,
		registryRepo: repo.PhoneRegistry,
		promoRepo:    repo.Promotion,
		rdb:          rdb,
		log:          log,
	}
}

func (ls *lookupService) GetUserStats(ctx context.Context, userID string) (*response.UserStatsResponse, error) {
	id, err := utils.ParseUUID(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID")
	}

	user, err := ls.userRepo.FindByID(ctx, id)
	if err != nil {
		ls.log.Error("Failed to load user stats", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get stats")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &response.UserStatsResponse{
		UserID:      user.ID.String(),
		DirectCount: user.DirectCount,
		TeamCount:   user.TeamCount,
		Role:        user.Role,
	}, nil
}

// ValidateReferralCode answers the pre-registration UI check. Only the
// owner's display name is revealed. Results ride the redis fast path when
// available.
func (ls *lookupService) ValidateReferralCode(ctx context.Context, code string) (*response.CodeValidationResponse, error) {
	invalid := &response.CodeValidationResponse{Code: code, Valid: false}

	if !utils.ValidCodeFormat(code) {
		return invalid, nil
	}

	if ls.rdb != nil {
		cached, err := ls.rdb.Get(ctx, codeCacheKey(code)).Result()
		if err == nil {
			return &response.CodeValidationResponse{Code: code, Valid: true, OwnerName: cached}, nil
		}
		if err != redis.Nil {
			ls.log.Warn("Cache read failed for code lookup", zap.Error(err), zap.String("code", code))
		}
	}

	res, err := ls.resRepo.FindByCode(ctx, code)
	if err != nil {
		ls.log.Error("Failed to resolve code", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("failed to validate code")
	}
	if res == nil {
		return invalid, nil
	}

	owner, err := ls.userRepo.FindByID(ctx, res.UserID)
	if err != nil {
		ls.log.Error("Failed to load code owner", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("failed to validate code")
	}
	if owner == nil {
		// Reserved but ownerless: valid binding, nothing to display.
		return &response.CodeValidationResponse{Code: code, Valid: true}, nil
	}

	if ls.rdb != nil {
		if err := ls.rdb.Set(ctx, codeCacheKey(code), owner.FullName, lookupCacheTTL).Err(); err != nil {
			ls.log.Warn("Cache write failed for code lookup", zap.Error(err), zap.String("code", code))
		}
	}

	return &response.CodeValidationResponse{Code: code, Valid: true, OwnerName: owner.FullName}, nil
}

// LookupByPhone reads the phone-registry projection, preferring the redis
// fast path. The projection may lag the user record; the reconciler owns
// convergence.
func (ls *lookupService) LookupByPhone(ctx context.Context, phone string) (*response.PhoneLookupResponse, error) {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("invalid phone number")
	}

	if ls.rdb != nil {
		cached, err := ls.rdb.Get(ctx, phoneCacheKey(normalized)).Result()
		if err == nil {
			var resp response.PhoneLookupResponse
			if jsonErr := json.Unmarshal([]byte(cached), &resp); jsonErr == nil {
				return &resp, nil
			}
		} else if err != redis.Nil {
			ls.log.Warn("Cache read failed for phone lookup", zap.Error(err))
		}
	}

	entry, err := ls.registryRepo.FindByPhone(ctx, normalized)
	if err != nil {
		ls.log.Error("Failed to look up phone registry", zap.Error(err))
		return nil, fmt.Errorf("failed to look up phone")
	}
	if entry == nil {
		return nil, ErrUserNotFound
	}

	resp := &response.PhoneLookupResponse{
		Phone:        entry.Phone,
		UserID:       entry.UserID.String(),
		ReferralCode: entry.ReferralCode,
		Role:         entry.Role,
	}

	if ls.rdb != nil {
		if raw, jsonErr := json.Marshal(resp); jsonErr == nil {
			if err := ls.rdb.Set(ctx, phoneCacheKey(normalized), raw, lookupCacheTTL).Err(); err != nil {
				ls.log.Warn("Cache write failed for phone lookup", zap.Error(err))
			}
		}
	}

	return resp, nil
}

func (ls *lookupService) GetPromotions(ctx context.Context, userID string) ([]response.PromotionResponse, error) {
	id, err := utils.ParseUUID(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID")
	}

	events, err := ls.promoRepo.FindByUser(ctx, id, 50)
	if err != nil {
		ls.log.Error("Failed to list promotions", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get promotions")
	}

	responses := make([]response.PromotionResponse, len(events))
	for i, ev := range events {
		responses[i] = response.PromotionToResponse(ev)
	}
	return responses, nil
}

func (ls *lookupService) GetAllUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	// Set defaults
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = 10
	}
	if req.PerPage > 100 {
		req.PerPage = 100
	}

	users, err := ls.userRepo.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		ls.log.Error("Failed to get all users",
			zap.Error(err),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("failed to get users")
	}

	total, err := ls.userRepo.CountAll(ctx)
	if err != nil {
		ls.log.Error("Failed to count users", zap.Error(err))
		return nil, fmt.Errorf("failed to count users")
	}

	userResponses := make([]response.UserResponse, len(users))
	for i, user := range users {
		userResponses[i] = response.UserToResponse(user)
	}

	return response.NewPaginatedResponse(userResponses, req.Page, req.PerPage, total), nil
}
