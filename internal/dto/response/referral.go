package response

import (
	"time"

	"talowa-referral/internal/data/entity"
)

type RegistrationResponse struct {
	UserID       string      `json:"user_id"`
	ReferralCode string      `json:"referral_code"`
	ReferrerCode string      `json:"referrer_code,omitempty"`
	Role         entity.Role `json:"role"`
}

type UserStatsResponse struct {
	UserID      string      `json:"user_id"`
	DirectCount int64       `json:"direct_count"`
	TeamCount   int64       `json:"team_count"`
	Role        entity.Role `json:"role"`
}

// CodeValidationResponse reveals only the owner's display name, for
// pre-registration UI feedback.
type CodeValidationResponse struct {
	Code      string `json:"code"`
	Valid     bool   `json:"valid"`
	OwnerName string `json:"owner_name,omitempty"`
}

type PhoneLookupResponse struct {
	Phone        string      `json:"phone"`
	UserID       string      `json:"user_id"`
	ReferralCode string      `json:"referral_code,omitempty"`
	Role         entity.Role `json:"role"`
}

type PromotionResponse struct {
	OldRole   entity.Role `json:"old_role"`
	NewRole   entity.Role `json:"new_role"`
	CreatedAt time.Time   `json:"created_at"`
}

type UserResponse struct {
	ID           string      `json:"id"`
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone"`
	ReferralCode string      `json:"referral_code,omitempty"`
	ReferrerCode string      `json:"referrer_code,omitempty"`
	Role         entity.Role `json:"role"`
	DirectCount  int64       `json:"direct_count"`
	TeamCount    int64       `json:"team_count"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Helper converters
func UserToResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:           user.ID.String(),
		FullName:     user.FullName,
		Phone:        user.Phone,
		ReferralCode: user.ReferralCode,
		ReferrerCode: user.ReferrerCode,
		Role:         user.Role,
		DirectCount:  user.DirectCount,
		TeamCount:    user.TeamCount,
		CreatedAt:    user.CreatedAt,
	}
}

func PromotionToResponse(ev *entity.PromotionEvent) PromotionResponse {
	return PromotionResponse{
		OldRole:   ev.OldRole,
		NewRole:   ev.NewRole,
		CreatedAt: ev.CreatedAt,
	}
}
