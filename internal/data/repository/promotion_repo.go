package repository

import (
	"context"
	"fmt"

	"talowa-referral/internal/data/entity"
	"talowa-referral/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PromotionRepository interface {
	Create(ctx context.Context, event *entity.PromotionEvent) error
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PromotionEvent, error)
}

type promotionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPromotionRepository(db database.PgxIface, log *zap.Logger) PromotionRepository {
	return &promotionRepository{
		db:  db,
		log: log,
	}
}

func (pr *promotionRepository) Create(ctx context.Context, event *entity.PromotionEvent) error {
	query := `
		INSERT INTO promotion_events (id, user_id, old_role, new_role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := pr.db.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.OldRole,
		event.NewRole,
		event.CreatedAt,
	)

	if err != nil {
		pr.log.Error("Failed to create promotion event",
			zap.Error(err),
			zap.String("user_id", event.UserID.String()),
		)
		return fmt.Errorf("create promotion event for %s: %w", event.UserID.String(), err)
	}

	return nil
}

func (pr *promotionRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PromotionEvent, error) {
	query := `
		SELECT id, user_id, old_role, new_role, created_at
		FROM promotion_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := pr.db.Query(ctx, query, userID, limit)
	if err != nil {
		pr.log.Error("Failed to list promotion events",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("list promotion events for %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var events []*entity.PromotionEvent
	for rows.Next() {
		var ev entity.PromotionEvent
		err := rows.Scan(&ev.ID, &ev.UserID, &ev.OldRole, &ev.NewRole, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan promotion event row: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion event rows: %w", err)
	}

	return events, nil
}
