package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "reserved"
	ReservationActive   ReservationStatus = "active"
)

// CodeReservation is the authoritative uniqueness record for a referral
// code. A code is either unreserved or permanently bound to one user;
// reservations are never recycled.
type CodeReservation struct {
	Code       string            `db:"code"`
	UserID     uuid.UUID         `db:"user_id"`
	Status     ReservationStatus `db:"status"`
	ReservedAt time.Time         `db:"reserved_at"`
}
