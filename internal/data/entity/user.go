package entity

type User struct {
	Base
	FullName     string `db:"full_name"`
	Phone        string `db:"phone"` // E.164 normalized, unique
	ReferralCode string `db:"referral_code"` // empty until reserved, immutable after
	ReferrerCode string `db:"referrer_code"` // empty for root users
	Role         Role   `db:"role"`
	DirectCount  int64  `db:"direct_count"`
	TeamCount    int64  `db:"team_count"`
}

// IsRoot reports whether the user has no referrer recorded.
func (u *User) IsRoot() bool {
	return u.ReferrerCode == ""
}
