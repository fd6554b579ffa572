package usecase

import (
	"context"
	"sync"
	"time"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/pipeline"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the event, inventory, and booking
// repositories. TryHold mirrors the store's conditional-write semantics:
// the mutation only applies when the caller's tier version is current and
// capacity suffices.
type fakeStore struct {
	mu       sync.Mutex
	events   map[uuid.UUID]*entity.Event
	tiers    map[uuid.UUID]map[string]*entity.Tier
	bookings map[uuid.UUID]*entity.Booking

	// holdDelay widens the read-to-write race window in concurrency tests.
	holdDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[uuid.UUID]*entity.Event),
		tiers:    make(map[uuid.UUID]map[string]*entity.Tier),
		bookings: make(map[uuid.UUID]*entity.Booking),
	}
}

func (f *fakeStore) addEvent(event *entity.Event, tiers ...*entity.Tier) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events[event.ID] = event
	f.tiers[event.ID] = make(map[string]*entity.Tier)
	for _, tier := range tiers {
		f.tiers[event.ID][tier.Name] = tier
	}
}

func (f *fakeStore) addBooking(booking *entity.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *booking
	f.bookings[booking.ID] = &clone
}

func (f *fakeStore) booking(id uuid.UUID) *entity.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		clone := *b
		return &clone
	}
	return nil
}

func (f *fakeStore) tier(eventID uuid.UUID, name string) *entity.Tier {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tiers[eventID][name]; ok {
		clone := *t
		return &clone
	}
	return nil
}

// ---- EventRepository ----

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeStore) FindTier(_ context.Context, eventID uuid.UUID, name string) (*entity.Tier, error) {
	return f.tier(eventID, name), nil
}

func (f *fakeStore) ListTiers(_ context.Context, eventID uuid.UUID) ([]*entity.Tier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Tier
	for _, t := range f.tiers[eventID] {
		clone := *t
		out = append(out, &clone)
	}
	return out, nil
}

// ---- InventoryRepository ----

func (f *fakeStore) TryHold(_ context.Context, booking *entity.Booking, tierVersion int64) error {
	if f.holdDelay > 0 {
		time.Sleep(f.holdDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tier, ok := f.tiers[booking.EventID][booking.TierName]
	if !ok {
		return entity.ErrTierNotFound
	}

	if tier.Version == tierVersion && tier.Available() >= booking.Quantity {
		tier.Reserved += booking.Quantity
		tier.Version++
		clone := *booking
		f.bookings[booking.ID] = &clone
		return nil
	}

	if tier.Available() < booking.Quantity {
		return entity.ErrInventoryExhausted
	}
	return entity.ErrConcurrencyConflict
}

func (f *fakeStore) Confirm(_ context.Context, bookingID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok || booking.Status != entity.BookingStatusPaymentPending {
		return false, nil
	}

	booking.Status = entity.BookingStatusConfirmed
	tier := f.tiers[booking.EventID][booking.TierName]
	tier.Reserved -= booking.Quantity
	tier.Confirmed += booking.Quantity
	tier.Version++
	return true, nil
}

func (f *fakeStore) Release(_ context.Context, bookingID uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok {
		return false, nil
	}

	gated := false
	for _, status := range from {
		if booking.Status == status {
			gated = true
			break
		}
	}
	if !gated {
		return false, nil
	}

	booking.Status = to
	tier := f.tiers[booking.EventID][booking.TierName]
	tier.Reserved -= booking.Quantity
	tier.Version++
	return true, nil
}

// ---- BookingRepository ----

func (f *fakeStore) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeStore) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, b := range f.bookings {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountActiveTickets(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, b := range f.bookings {
		if b.UserID != userID {
			continue
		}
		switch b.Status {
		case entity.BookingStatusReserved, entity.BookingStatusPaymentPending, entity.BookingStatusConfirmed:
			total += b.Quantity
		}
	}
	return total, nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	return true, nil
}

func (f *fakeStore) FindExpiredReserved(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Booking
	for _, b := range f.bookings {
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

// The booking FindByID shares a name with the event one; the fakeStore
// cannot implement both repositories at once, so bookingRepoView wraps it.
type bookingRepoView struct {
	*fakeStore
}

func (v bookingRepoView) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	return v.booking(id), nil
}

// fakeQueue records published messages; Publish can be forced to fail.
type fakeQueue struct {
	mu        sync.Mutex
	published []pipeline.Message
	dead      []pipeline.Message
	failPub   bool
}

func (q *fakeQueue) Publish(_ context.Context, msg pipeline.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failPub {
		return entity.ErrDownstreamUnavailable
	}
	q.published = append(q.published, msg)
	return nil
}

func (q *fakeQueue) PublishDead(_ context.Context, msg pipeline.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, msg)
	return nil
}

func (q *fakeQueue) Consume(ctx context.Context, _ pipeline.Stage, _ pipeline.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) byStage(stage pipeline.Stage) []pipeline.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []pipeline.Message
	for _, msg := range q.published {
		if msg.Stage == stage {
			out = append(out, msg)
		}
	}
	return out
}

// spyCache records invalidations; reads always miss.
type spyCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *spyCache) Get(_ context.Context, _ uuid.UUID) ([]cache.TierAvailability, bool) {
	return nil, false
}

func (c *spyCache) Set(_ context.Context, _ uuid.UUID, _ []cache.TierAvailability) {}

func (c *spyCache) Invalidate(_ context.Context, eventID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, eventID)
}

func (c *spyCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}
