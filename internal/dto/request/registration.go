package request

// RegisterRequest carries the identity facts already verified by the
// external authentication collaborator plus the optional referral code the
// new user entered.
type RegisterRequest struct {
	UserID       string `json:"user_id" validate:"required,uuid"`
	FullName     string `json:"full_name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required,min=8,max=20"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,min=9,max=11"`
}
