package usecase

import "errors"

// Client input errors, returned synchronously to the registration caller.
var (
	ErrUnknownCode     = errors.New("referral code not found")
	ErrSelfReferral    = errors.New("self referral is not allowed")
	ErrAlreadyReferred = errors.New("user already has a referrer")
	ErrPhoneTaken      = errors.New("phone number already registered")
	ErrUserNotFound    = errors.New("user not found")
)

// ErrExhaustedAttempts is fatal: the candidate loop ran out of attempts,
// which means the alphabet or code length is misconfigured for the user
// population, not that the store hiccuped.
var ErrExhaustedAttempts = errors.New("exhausted referral code attempts")

// ErrReservationRequired signals an ordering bug: attachment was called for
// a user whose own code has not been reserved yet.
var ErrReservationRequired = errors.New("referral code must be reserved before attaching a referrer")
