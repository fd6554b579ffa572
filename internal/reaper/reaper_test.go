package reaper

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/clock"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sweepNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// holdStore fakes the booking scan and the gated release. Bookings whose
// status changed between scan and release exercise the still-reserved
// guard.
type holdStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking
	released []uuid.UUID
}

func newHoldStore(bookings ...*entity.Booking) *holdStore {
	s := &holdStore{bookings: make(map[uuid.UUID]*entity.Booking)}
	for _, b := range bookings {
		clone := *b
		s.bookings[b.ID] = &clone
	}
	return s
}

func (s *holdStore) status(id uuid.UUID) entity.BookingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Status
}

// BookingRepository (scan side)

func (s *holdStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, nil
}

func (s *holdStore) FindByUserID(_ context.Context, _ uuid.UUID, _, _ int) ([]*entity.Booking, error) {
	return nil, nil
}

func (s *holdStore) CountByUserID(_ context.Context, _ uuid.UUID) (int64, error) { return 0, nil }

func (s *holdStore) CountActiveTickets(_ context.Context, _ uuid.UUID) (int, error) { return 0, nil }

func (s *holdStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (s *holdStore) FindExpiredReserved(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range s.bookings {
		if b.Status == entity.BookingStatusReserved && !b.HoldExpiresAt.After(now) {
			clone := *b
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// InventoryRepository (release side)

func (s *holdStore) TryHold(_ context.Context, _ *entity.Booking, _ int64) error { return nil }

func (s *holdStore) Confirm(_ context.Context, _ uuid.UUID) (bool, error) { return false, nil }

func (s *holdStore) Release(_ context.Context, bookingID uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if b.Status == status {
			b.Status = to
			s.released = append(s.released, bookingID)
			return true, nil
		}
	}
	return false, nil
}

func holdBooking(status entity.BookingStatus, expiresAt time.Time) *entity.Booking {
	return &entity.Booking{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: sweepNow, UpdatedAt: sweepNow},
		OrderID:       "TKT-20260314-115500-" + uuid.New().String()[:4],
		UserID:        uuid.New(),
		EventID:       uuid.New(),
		TierName:      "standard",
		Quantity:      2,
		Status:        status,
		HoldExpiresAt: expiresAt,
	}
}

func newTestReaper(store *holdStore) *Reaper {
	repo := &repository.Repository{Booking: store, Inventory: store}
	return New(repo, cache.NewNoop(), clock.NewFixed(sweepNow),
		30*time.Second, 100, metrics.New(prometheus.NewRegistry()), zap.NewNop())
}

func TestSweepExpiresLapsedHolds(t *testing.T) {
	lapsed := holdBooking(entity.BookingStatusReserved, sweepNow.Add(-time.Minute))
	live := holdBooking(entity.BookingStatusReserved, sweepNow.Add(time.Minute))
	settled := holdBooking(entity.BookingStatusConfirmed, sweepNow.Add(-time.Minute))
	store := newHoldStore(lapsed, live, settled)

	expired, err := newTestReaper(store).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, entity.BookingStatusExpired, store.status(lapsed.ID))
	assert.Equal(t, entity.BookingStatusReserved, store.status(live.ID))
	assert.Equal(t, entity.BookingStatusConfirmed, store.status(settled.ID))
}

func TestSweepIsIdempotent(t *testing.T) {
	lapsed := holdBooking(entity.BookingStatusReserved, sweepNow.Add(-time.Minute))
	store := newHoldStore(lapsed)
	r := newTestReaper(store)

	expired, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	expired, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Len(t, store.released, 1)
}

// A confirm that lands between the scan and the release must win: the
// release gate sees the booking off reserved and no-ops.
func TestSweepLosesRaceToConfirm(t *testing.T) {
	lapsed := holdBooking(entity.BookingStatusReserved, sweepNow.Add(-time.Minute))
	store := newHoldStore(lapsed)
	r := newTestReaper(store)

	// Simulate the confirm winning after the scan by flipping the status
	// before the sweep's release reaches the store.
	store.mu.Lock()
	store.bookings[lapsed.ID].Status = entity.BookingStatusConfirmed
	store.mu.Unlock()

	expired, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Equal(t, entity.BookingStatusConfirmed, store.status(lapsed.ID))
}
