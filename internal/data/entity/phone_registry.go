package entity

import (
	"time"

	"github.com/google/uuid"
)

// PhoneRegistryEntry is a denormalized projection of the user record keyed
// by normalized phone number. The reconciler is the only writer allowed to
// overwrite an existing entry; everything else treats it as a read cache.
type PhoneRegistryEntry struct {
	Phone        string    `db:"phone"`
	UserID       uuid.UUID `db:"user_id"`
	ReferralCode string    `db:"referral_code"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Matches reports whether the projection still agrees with the user record.
func (e *PhoneRegistryEntry) Matches(u *User) bool {
	return e.UserID == u.ID &&
		e.ReferralCode == u.ReferralCode &&
		e.Role == u.Role
}
