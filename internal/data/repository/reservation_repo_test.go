package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"talowa-referral/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReservationRepositoryCreateIfAbsent(t *testing.T) {
	userID := uuid.New()
	res := &entity.CodeReservation{
		Code:       "TAL23456XY",
		UserID:     userID,
		Status:     entity.ReservationReserved,
		ReservedAt: time.Now().UTC(),
	}

	t.Run("wins the code", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		mockPool.ExpectExec(`INSERT INTO referral_code_reservations`).
			WithArgs(res.Code, res.UserID, res.Status, res.ReservedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		created, err := repo.CreateIfAbsent(context.Background(), res)
		assert.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("loses to an existing holder", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		// ON CONFLICT DO NOTHING reports zero affected rows; not an error.
		mockPool.ExpectExec(`INSERT INTO referral_code_reservations`).
			WithArgs(res.Code, res.UserID, res.Status, res.ReservedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		created, err := repo.CreateIfAbsent(context.Background(), res)
		assert.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("store error", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		mockPool.ExpectExec(`INSERT INTO referral_code_reservations`).
			WithArgs(res.Code, res.UserID, res.Status, res.ReservedAt).
			WillReturnError(errors.New("connection refused"))

		created, err := repo.CreateIfAbsent(context.Background(), res)
		assert.Error(t, err)
		assert.False(t, created)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestReservationRepositoryFindByCode(t *testing.T) {
	userID := uuid.New()
	reservedAt := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		rows := mockPool.NewRows([]string{"code", "user_id", "status", "reserved_at"}).
			AddRow("TAL23456XY", userID, entity.ReservationActive, reservedAt)
		mockPool.ExpectQuery(`SELECT code, user_id, status, reserved_at FROM referral_code_reservations WHERE code = \$1`).
			WithArgs("TAL23456XY").
			WillReturnRows(rows)

		res, err := repo.FindByCode(context.Background(), "TAL23456XY")
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, userID, res.UserID)
		assert.Equal(t, entity.ReservationActive, res.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("unknown code is nil, not an error", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		mockPool.ExpectQuery(`SELECT code, user_id, status, reserved_at FROM referral_code_reservations WHERE code = \$1`).
			WithArgs("TALMISSING").
			WillReturnError(pgx.ErrNoRows)

		res, err := repo.FindByCode(context.Background(), "TALMISSING")
		assert.NoError(t, err)
		assert.Nil(t, res)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestReservationRepositoryFindByUser(t *testing.T) {
	userID := uuid.New()
	reservedAt := time.Now().UTC()

	t.Run("earliest reservation wins", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		rows := mockPool.NewRows([]string{"code", "user_id", "status", "reserved_at"}).
			AddRow("TAL23456XY", userID, entity.ReservationReserved, reservedAt)
		mockPool.ExpectQuery(`ORDER BY reserved_at, code`).
			WithArgs(userID).
			WillReturnRows(rows)

		res, err := repo.FindByUser(context.Background(), userID)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "TAL23456XY", res.Code)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("no reservation yet", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		mockPool.ExpectQuery(`ORDER BY reserved_at, code`).
			WithArgs(userID).
			WillReturnError(pgx.ErrNoRows)

		res, err := repo.FindByUser(context.Background(), userID)
		assert.NoError(t, err)
		assert.Nil(t, res)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestReservationRepositoryUpdateStatus(t *testing.T) {
	t.Run("updates", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		mockPool.ExpectExec(`UPDATE referral_code_reservations SET status = \$2 WHERE code = \$1`).
			WithArgs("TAL23456XY", entity.ReservationActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.UpdateStatus(context.Background(), "TAL23456XY", entity.ReservationActive)
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing reservation is an error", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewReservationRepository(mockPool, zap.NewNop())

		mockPool.ExpectExec(`UPDATE referral_code_reservations SET status = \$2 WHERE code = \$1`).
			WithArgs("TALMISSING", entity.ReservationActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.UpdateStatus(context.Background(), "TALMISSING", entity.ReservationActive)
		assert.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
