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

// maxTeamDepth caps the recursive team recount so a corrupted edge cycle
// cannot spin the query forever.
const maxTeamDepth = 10000

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByPhone(ctx context.Context, phone string) (*entity.User, error)
	FindByReferralCode(ctx context.Context, code string) (*entity.User, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error)
	CountAll(ctx context.Context) (int64, error)
	ListPage(ctx context.Context, afterID uuid.UUID, limit int) ([]*entity.User, error)
	SetReferralCode(ctx context.Context, id uuid.UUID, code string) (bool, error)
	OverwriteReferralCode(ctx context.Context, id uuid.UUID, code string) error
	SetReferrerCode(ctx context.Context, id uuid.UUID, code string) (bool, error)
	IncrementDirectAndTeam(ctx context.Context, id uuid.UUID) error
	IncrementTeam(ctx context.Context, id uuid.UUID) error
	UpdateCounts(ctx context.Context, id uuid.UUID, direct, team int64) error
	UpdateRole(ctx context.Context, id uuid.UUID, from, to entity.Role) (bool, error)
	CountDirect(ctx context.Context, code string) (int64, error)
	CountTeam(ctx context.Context, code string) (int64, error)
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

const userColumns = `id, full_name, phone, COALESCE(referral_code, ''), COALESCE(referrer_code, ''),
		       role, direct_count, team_count, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Phone,
		&user.ReferralCode,
		&user.ReferrerCode,
		&user.Role,
		&user.DirectCount,
		&user.TeamCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record into the database
func (ur *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, full_name, phone, referral_code, referrer_code,
		                  role, direct_count, team_count, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10)
	`

	_, err := ur.db.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Phone,
		user.ReferralCode,
		user.ReferrerCode,
		user.Role,
		user.DirectCount,
		user.TeamCount,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		ur.log.Error("Failed to create user",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
			zap.String("phone", user.Phone),
		)
		return fmt.Errorf("create user %s: %w", user.ID.String(), err)
	}

	return nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(ur.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, fmt.Errorf("find user by ID %s: %w", id.String(), err)
	}

	return user, nil
}

func (ur *userRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`

	user, err := scanUser(ur.db.QueryRow(ctx, query, phone))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by phone",
			zap.Error(err),
			zap.String("phone", phone),
		)
		return nil, fmt.Errorf("find user by phone %s: %w", phone, err)
	}

	return user, nil
}

func (ur *userRepository) FindByReferralCode(ctx context.Context, code string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(ur.db.QueryRow(ctx, query, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by referral code",
			zap.Error(err),
			zap.String("code", code),
		)
		return nil, fmt.Errorf("find user by referral code %s: %w", code, err)
	}

	return user, nil
}

// FindAll retrieves paginated list of users
func (ur *userRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := ur.db.Query(ctx, query, limit, offset)
	if err != nil {
		ur.log.Error("Failed to get all users",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find all users limit %d offset %d: %w", limit, offset, err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (ur *userRepository) CountAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM users`

	var count int64
	err := ur.db.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		ur.log.Error("Database error counting users", zap.Error(err))
		return 0, fmt.Errorf("count all users: %w", err)
	}

	return count, nil
}

// ListPage retrieves one keyset page ordered by id, for the reconciler's
// full scan. Pass uuid.Nil to start from the beginning.
func (ur *userRepository) ListPage(ctx context.Context, afterID uuid.UUID, limit int) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := ur.db.Query(ctx, query, afterID, limit)
	if err != nil {
		ur.log.Error("Failed to list user page",
			zap.Error(err),
			zap.String("after_id", afterID.String()),
		)
		return nil, fmt.Errorf("list user page after %s: %w", afterID.String(), err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*entity.User, error) {
	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users rows: %w", err)
	}

	return users, nil
}

// SetReferralCode assigns a code only if the user has none yet. Returns
// false when the guard misses, i.e. a code is already present.
func (ur *userRepository) SetReferralCode(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	query := `
		UPDATE users
		SET referral_code = $2, updated_at = NOW()
		WHERE id = $1 AND referral_code IS NULL
	`

	result, err := ur.db.Exec(ctx, query, id, code)
	if err != nil {
		ur.log.Error("Failed to set referral code",
			zap.Error(err),
			zap.String("user_id", id.String()),
			zap.String("code", code),
		)
		return false, fmt.Errorf("set referral code for %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

// OverwriteReferralCode replaces the stored code unconditionally. Reserved
// for the reconciler, which holds the reservation table as the source of
// truth for ownership.
func (ur *userRepository) OverwriteReferralCode(ctx context.Context, id uuid.UUID, code string) error {
	query := `UPDATE users SET referral_code = $2, updated_at = NOW() WHERE id = $1`

	result, err := ur.db.Exec(ctx, query, id, code)
	if err != nil {
		ur.log.Error("Failed to overwrite referral code",
			zap.Error(err),
			zap.String("user_id", id.String()),
			zap.String("code", code),
		)
		return fmt.Errorf("overwrite referral code for %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id.String())
	}

	return nil
}

// SetReferrerCode records the referral edge only if none exists. Returns
// false when the user is already referred; the edge is immutable.
func (ur *userRepository) SetReferrerCode(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	query := `
		UPDATE users
		SET referrer_code = $2, updated_at = NOW()
		WHERE id = $1 AND referrer_code IS NULL
	`

	result, err := ur.db.Exec(ctx, query, id, code)
	if err != nil {
		ur.log.Error("Failed to set referrer code",
			zap.Error(err),
			zap.String("user_id", id.String()),
			zap.String("referrer_code", code),
		)
		return false, fmt.Errorf("set referrer code for %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

// IncrementDirectAndTeam bumps both counters atomically in the database, so
// concurrent sibling registrations never lose updates.
func (ur *userRepository) IncrementDirectAndTeam(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET direct_count = direct_count + 1, team_count = team_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := ur.db.Exec(ctx, query, id)
	if err != nil {
		ur.log.Error("Failed to increment direct and team counts",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("increment direct and team for %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id.String())
	}

	return nil
}

func (ur *userRepository) IncrementTeam(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET team_count = team_count + 1, updated_at = NOW() WHERE id = $1`

	result, err := ur.db.Exec(ctx, query, id)
	if err != nil {
		ur.log.Error("Failed to increment team count",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("increment team for %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id.String())
	}

	return nil
}

// UpdateCounts overwrites the cached counters with recomputed values.
// Reconciler only.
func (ur *userRepository) UpdateCounts(ctx context.Context, id uuid.UUID, direct, team int64) error {
	query := `
		UPDATE users
		SET direct_count = $2, team_count = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := ur.db.Exec(ctx, query, id, direct, team)
	if err != nil {
		ur.log.Error("Failed to update counts",
			zap.Error(err),
			zap.String("user_id", id.String()),
			zap.Int64("direct", direct),
			zap.Int64("team", team),
		)
		return fmt.Errorf("update counts for %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id.String())
	}

	return nil
}

// UpdateRole advances the role with a guard on the expected current value,
// so a concurrent promotion never regresses the tier. Returns false when
// the guard misses.
func (ur *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, from, to entity.Role) (bool, error) {
	query := `
		UPDATE users
		SET role = $3, updated_at = NOW()
		WHERE id = $1 AND role = $2
	`

	result, err := ur.db.Exec(ctx, query, id, from, to)
	if err != nil {
		ur.log.Error("Failed to update role",
			zap.Error(err),
			zap.String("user_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update role for %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

// CountDirect recomputes the direct referral count from stored edges.
func (ur *userRepository) CountDirect(ctx context.Context, code string) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE referrer_code = $1`

	var count int64
	err := ur.db.QueryRow(ctx, query, code).Scan(&count)
	if err != nil {
		ur.log.Error("Failed to count direct referrals",
			zap.Error(err),
			zap.String("code", code),
		)
		return 0, fmt.Errorf("count direct referrals of %s: %w", code, err)
	}

	return count, nil
}

// CountTeam recomputes the full subtree size from stored edges via a
// recursive walk, depth-capped against corrupted cycles.
func (ur *userRepository) CountTeam(ctx context.Context, code string) (int64, error) {
	query := `
		WITH RECURSIVE team(id, referral_code, depth) AS (
			SELECT id, referral_code, 1 FROM users WHERE referrer_code = $1
			UNION ALL
			SELECT u.id, u.referral_code, t.depth + 1
			FROM users u
			JOIN team t ON u.referrer_code = t.referral_code
			WHERE t.depth < $2
		)
		SELECT COUNT(*) FROM team
	`

	var count int64
	err := ur.db.QueryRow(ctx, query, code, maxTeamDepth).Scan(&count)
	if err != nil {
		ur.log.Error("Failed to count team",
			zap.Error(err),
			zap.String("code", code),
		)
		return 0, fmt.Errorf("count team of %s: %w", code, err)
	}

	return count, nil
}
