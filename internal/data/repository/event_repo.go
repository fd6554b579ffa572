package repository

import (
	"context"
	"fmt"

	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type EventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	FindTier(ctx context.Context, eventID uuid.UUID, name string) (*entity.Tier, error)
	ListTiers(ctx context.Context, eventID uuid.UUID) ([]*entity.Tier, error)
}

type eventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewEventRepository(db database.PgxIface, log *zap.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log.With(zap.String("repository", "event")),
	}
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	query := `
		SELECT id, name, status, starts_at, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	var event entity.Event
	err := r.db.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.Status,
		&event.StartsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find event by ID",
			zap.Error(err),
			zap.String("event_id", id.String()),
		)
		return nil, fmt.Errorf("find event by ID %s: %w", id.String(), err)
	}

	return &event, nil
}

func (r *eventRepository) FindTier(ctx context.Context, eventID uuid.UUID, name string) (*entity.Tier, error) {
	query := `
		SELECT event_id, name, price, total, reserved, confirmed, version
		FROM tiers
		WHERE event_id = $1 AND name = $2
	`

	var tier entity.Tier
	err := r.db.QueryRow(ctx, query, eventID, name).Scan(
		&tier.EventID,
		&tier.Name,
		&tier.Price,
		&tier.Total,
		&tier.Reserved,
		&tier.Confirmed,
		&tier.Version,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find tier",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
			zap.String("tier", name),
		)
		return nil, fmt.Errorf("find tier %s for event %s: %w", name, eventID.String(), err)
	}

	return &tier, nil
}

func (r *eventRepository) ListTiers(ctx context.Context, eventID uuid.UUID) ([]*entity.Tier, error) {
	query := `
		SELECT event_id, name, price, total, reserved, confirmed, version
		FROM tiers
		WHERE event_id = $1
		ORDER BY price DESC
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		r.log.Error("Failed to list tiers",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		return nil, fmt.Errorf("list tiers for event %s: %w", eventID.String(), err)
	}
	defer rows.Close()

	var tiers []*entity.Tier
	for rows.Next() {
		var tier entity.Tier
		err := rows.Scan(
			&tier.EventID,
			&tier.Name,
			&tier.Price,
			&tier.Total,
			&tier.Reserved,
			&tier.Confirmed,
			&tier.Version,
		)
		if err != nil {
			r.log.Error("Failed to scan tier row", zap.Error(err))
			return nil, fmt.Errorf("scan tier row: %w", err)
		}
		tiers = append(tiers, &tier)
	}

	return tiers, nil
}
