package repository

import (
	"context"
	"fmt"

	"talowa-referral/internal/data/entity"
	"talowa-referral/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	CreateIfAbsent(ctx context.Context, res *entity.CodeReservation) (bool, error)
	FindByCode(ctx context.Context, code string) (*entity.CodeReservation, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*entity.CodeReservation, error)
	UpdateStatus(ctx context.Context, code string, status entity.ReservationStatus) error
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log,
	}
}

// CreateIfAbsent is the single concurrency-safety primitive of the whole
// engine: the conditional insert either wins the code or reports that
// someone else holds it. A lost race is not an error.
func (rr *reservationRepository) CreateIfAbsent(ctx context.Context, res *entity.CodeReservation) (bool, error) {
	query := `
		INSERT INTO referral_code_reservations (code, user_id, status, reserved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`

	result, err := rr.db.Exec(ctx, query,
		res.Code,
		res.UserID,
		res.Status,
		res.ReservedAt,
	)

	if err != nil {
		rr.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("code", res.Code),
			zap.String("user_id", res.UserID.String()),
		)
		return false, fmt.Errorf("create reservation %s: %w", res.Code, err)
	}

	return result.RowsAffected() > 0, nil
}

func (rr *reservationRepository) FindByCode(ctx context.Context, code string) (*entity.CodeReservation, error) {
	query := `
		SELECT code, user_id, status, reserved_at
		FROM referral_code_reservations
		WHERE code = $1
	`

	var res entity.CodeReservation
	err := rr.db.QueryRow(ctx, query, code).Scan(
		&res.Code,
		&res.UserID,
		&res.Status,
		&res.ReservedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		rr.log.Error("Failed to find reservation by code",
			zap.Error(err),
			zap.String("code", code),
		)
		return nil, fmt.Errorf("find reservation %s: %w", code, err)
	}

	return &res, nil
}

// FindByUser returns the earliest reservation bound to the user. A user can
// own several codes after partial failures; the earliest one is the
// deterministic pick the idempotent reserve path keeps returning.
func (rr *reservationRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*entity.CodeReservation, error) {
	query := `
		SELECT code, user_id, status, reserved_at
		FROM referral_code_reservations
		WHERE user_id = $1
		ORDER BY reserved_at, code
		LIMIT 1
	`

	var res entity.CodeReservation
	err := rr.db.QueryRow(ctx, query, userID).Scan(
		&res.Code,
		&res.UserID,
		&res.Status,
		&res.ReservedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		rr.log.Error("Failed to find reservation by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find reservation for user %s: %w", userID.String(), err)
	}

	return &res, nil
}

func (rr *reservationRepository) UpdateStatus(ctx context.Context, code string, status entity.ReservationStatus) error {
	query := `UPDATE referral_code_reservations SET status = $2 WHERE code = $1`

	result, err := rr.db.Exec(ctx, query, code, status)
	if err != nil {
		rr.log.Error("Failed to update reservation status",
			zap.Error(err),
			zap.String("code", code),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update reservation status %s: %w", code, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", code)
	}

	return nil
}
