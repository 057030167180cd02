package entity

import "github.com/google/uuid"

// PromotionEvent records a role advancement. The notification collaborator
// consumes these rows; this engine only appends them.
type PromotionEvent struct {
	BaseSimple
	UserID  uuid.UUID `db:"user_id"`
	OldRole Role      `db:"old_role"`
	NewRole Role      `db:"new_role"`
}
