package repository

import (
	"context"
	"fmt"

	"talowa-referral/internal/data/entity"
	"talowa-referral/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PhoneRegistryRepository interface {
	FindByPhone(ctx context.Context, phone string) (*entity.PhoneRegistryEntry, error)
	CreateIfAbsent(ctx context.Context, entry *entity.PhoneRegistryEntry) (bool, error)
	Upsert(ctx context.Context, entry *entity.PhoneRegistryEntry) error
}

type phoneRegistryRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPhoneRegistryRepository(db database.PgxIface, log *zap.Logger) PhoneRegistryRepository {
	return &phoneRegistryRepository{
		db:  db,
		log: log,
	}
}

func (pr *phoneRegistryRepository) FindByPhone(ctx context.Context, phone string) (*entity.PhoneRegistryEntry, error) {
	query := `
		SELECT phone, user_id, COALESCE(referral_code, ''), role, created_at, updated_at
		FROM phone_registry
		WHERE phone = $1
	`

	var entry entity.PhoneRegistryEntry
	err := pr.db.QueryRow(ctx, query, phone).Scan(
		&entry.Phone,
		&entry.UserID,
		&entry.ReferralCode,
		&entry.Role,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		pr.log.Error("Failed to find registry entry",
			zap.Error(err),
			zap.String("phone", phone),
		)
		return nil, fmt.Errorf("find registry entry %s: %w", phone, err)
	}

	return &entry, nil
}

// CreateIfAbsent seeds the projection at registration time. Existing
// entries are left alone; only the reconciler may overwrite.
func (pr *phoneRegistryRepository) CreateIfAbsent(ctx context.Context, entry *entity.PhoneRegistryEntry) (bool, error) {
	query := `
		INSERT INTO phone_registry (phone, user_id, referral_code, role, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (phone) DO NOTHING
	`

	result, err := pr.db.Exec(ctx, query,
		entry.Phone,
		entry.UserID,
		entry.ReferralCode,
		entry.Role,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	if err != nil {
		pr.log.Error("Failed to create registry entry",
			zap.Error(err),
			zap.String("phone", entry.Phone),
		)
		return false, fmt.Errorf("create registry entry %s: %w", entry.Phone, err)
	}

	return result.RowsAffected() > 0, nil
}

// Upsert rewrites the projection wholesale. Reconciler only.
func (pr *phoneRegistryRepository) Upsert(ctx context.Context, entry *entity.PhoneRegistryEntry) error {
	query := `
		INSERT INTO phone_registry (phone, user_id, referral_code, role, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (phone) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    referral_code = EXCLUDED.referral_code,
		    role = EXCLUDED.role,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := pr.db.Exec(ctx, query,
		entry.Phone,
		entry.UserID,
		entry.ReferralCode,
		entry.Role,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	if err != nil {
		pr.log.Error("Failed to upsert registry entry",
			zap.Error(err),
			zap.String("phone", entry.Phone),
		)
		return fmt.Errorf("upsert registry entry %s: %w", entry.Phone, err)
	}

	return nil
}
