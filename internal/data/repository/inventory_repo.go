package repository

import (
	"context"
	"errors"
	"fmt"

	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// InventoryRepository is the inventory-store adapter. Every mutation is a
// conditional write: the tier counters move only when the precondition the
// caller observed still holds, and the booking row acts as the state gate
// that makes Confirm/Release idempotent and mutually exclusive.
type InventoryRepository interface {
	// TryHold atomically claims quantity units of the booking's tier and
	// persists the booking in reserved. Returns ErrInventoryExhausted when
	// capacity is short and ErrConcurrencyConflict when a concurrent
	// writer moved the tier version out from under the caller.
	TryHold(ctx context.Context, booking *entity.Booking, tierVersion int64) error

	// Confirm moves the booking's held units to confirmed, gated on the
	// booking being in payment_pending. Returns false when the gate did
	// not apply (already terminal): a no-op, not an error.
	Confirm(ctx context.Context, bookingID uuid.UUID) (bool, error)

	// Release returns the booking's held units to available and moves the
	// booking to the given terminal status, gated on the booking being in
	// one of the from statuses. Returns false on a no-op.
	Release(ctx context.Context, bookingID uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error)
}

type inventoryRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewInventoryRepository(db database.PgxIface, log *zap.Logger) InventoryRepository {
	return &inventoryRepository{
		db:  db,
		log: log.With(zap.String("repository", "inventory")),
	}
}

func (r *inventoryRepository) TryHold(ctx context.Context, booking *entity.Booking, tierVersion int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin hold tx: %w", entity.ErrDownstreamUnavailable)
	}
	defer tx.Rollback(ctx)

	// Single conditional write on the tier row. The version check is the
	// CAS: a concurrent hold/release bumps version and fails this update
	// even when capacity would still suffice.
	holdQuery := `
		UPDATE tiers
		SET reserved = reserved + $3, version = version + 1
		WHERE event_id = $1 AND name = $2
		  AND version = $4
		  AND total - reserved - confirmed >= $3
	`

	tag, err := tx.Exec(ctx, holdQuery, booking.EventID, booking.TierName, booking.Quantity, tierVersion)
	if err != nil {
		r.log.Error("Failed to apply hold update",
			zap.Error(err),
			zap.String("event_id", booking.EventID.String()),
			zap.String("tier", booking.TierName),
		)
		return fmt.Errorf("hold tier %s: %w", booking.TierName, err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish exhaustion from a lost race by re-reading the row,
		// same as inspecting a conditional-check failure.
		var available int
		err := tx.QueryRow(ctx,
			`SELECT total - reserved - confirmed FROM tiers WHERE event_id = $1 AND name = $2`,
			booking.EventID, booking.TierName,
		).Scan(&available)
		if err == pgx.ErrNoRows {
			return entity.ErrTierNotFound
		}
		if err != nil {
			return fmt.Errorf("recheck tier %s: %w", booking.TierName, err)
		}
		if available < booking.Quantity {
			return entity.ErrInventoryExhausted
		}
		return entity.ErrConcurrencyConflict
	}

	insertQuery := `
		INSERT INTO bookings (id, order_id, user_id, event_id, tier_name, quantity,
		                      total_price, status, hold_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.Exec(ctx, insertQuery,
		booking.ID,
		booking.OrderID,
		booking.UserID,
		booking.EventID,
		booking.TierName,
		booking.Quantity,
		booking.TotalPrice,
		booking.Status,
		booking.HoldExpiresAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking for hold",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit hold: %w", err)
	}

	return nil
}

func (r *inventoryRepository) Confirm(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin confirm tx: %w", entity.ErrDownstreamUnavailable)
	}
	defer tx.Rollback(ctx)

	// State gate: only the writer that wins this row update moves the
	// counters. A replay sees zero rows and no-ops.
	gateQuery := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING event_id, tier_name, quantity
	`

	var eventID uuid.UUID
	var tierName string
	var quantity int
	err = tx.QueryRow(ctx, gateQuery, bookingID,
		entity.BookingStatusConfirmed, entity.BookingStatusPaymentPending,
	).Scan(&eventID, &tierName, &quantity)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to gate booking confirm",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("confirm booking %s: %w", bookingID.String(), err)
	}

	moveQuery := `
		UPDATE tiers
		SET reserved = reserved - $3, confirmed = confirmed + $3, version = version + 1
		WHERE event_id = $1 AND name = $2 AND reserved >= $3
	`

	tag, err := tx.Exec(ctx, moveQuery, eventID, tierName, quantity)
	if err != nil {
		return false, fmt.Errorf("move held units for booking %s: %w", bookingID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		// The gate guarantees held units exist; hitting this means the
		// counters and bookings disagree.
		return false, fmt.Errorf("tier %s counters out of sync for booking %s", tierName, bookingID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit confirm: %w", err)
	}

	return true, nil
}

func (r *inventoryRepository) Release(ctx context.Context, bookingID uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("release requires at least one from status")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin release tx: %w", entity.ErrDownstreamUnavailable)
	}
	defer tx.Rollback(ctx)

	gateQuery := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING event_id, tier_name, quantity
	`

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	var eventID uuid.UUID
	var tierName string
	var quantity int
	err = tx.QueryRow(ctx, gateQuery, bookingID, to, fromStrs).
		Scan(&eventID, &tierName, &quantity)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to gate booking release",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("release booking %s: %w", bookingID.String(), err)
	}

	releaseQuery := `
		UPDATE tiers
		SET reserved = reserved - $3, version = version + 1
		WHERE event_id = $1 AND name = $2 AND reserved >= $3
	`

	tag, err := tx.Exec(ctx, releaseQuery, eventID, tierName, quantity)
	if err != nil {
		return false, fmt.Errorf("release held units for booking %s: %w", bookingID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("tier %s counters out of sync for booking %s", tierName, bookingID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit release: %w", err)
	}

	r.log.Info("Hold released",
		zap.String("booking_id", bookingID.String()),
		zap.String("tier", tierName),
		zap.Int("quantity", quantity),
		zap.String("to", string(to)),
	)

	return true, nil
}
