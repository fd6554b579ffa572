package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticket-booking/pkg/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompensator struct {
	mu     sync.Mutex
	failed []uuid.UUID
}

func (c *fakeCompensator) Fail(_ context.Context, bookingID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = append(c.failed, bookingID)
	return true, nil
}

func (c *fakeCompensator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failed)
}

func runWorker(t *testing.T, w *Worker) (context.CancelFunc, *sync.WaitGroup) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	return cancel, &wg
}

func TestWorkerRetriesThenDeadLetters(t *testing.T) {
	queue := NewMemoryQueue(16, zap.NewNop())
	defer queue.Close()
	comp := &fakeCompensator{}
	worker := NewWorker(queue, comp, 3, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	var mu sync.Mutex
	var attempts []int
	worker.Register(StagePayment, func(_ context.Context, msg Message) Decision {
		mu.Lock()
		attempts = append(attempts, msg.Attempt)
		mu.Unlock()
		return Retry
	})

	cancel, wg := runWorker(t, worker)
	defer func() { cancel(); wg.Wait() }()

	msg := NewMessage(StagePayment, uuid.New(), "group", nil)
	require.NoError(t, queue.Publish(context.Background(), msg))

	require.Eventually(t, func() bool {
		return len(queue.DeadLetters(StagePayment)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// One delivery per receive, attempt counter carried on the republish.
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, 1, comp.count())
}

func TestWorkerCompensatesBeforeImmediateDeadLetter(t *testing.T) {
	queue := NewMemoryQueue(16, zap.NewNop())
	defer queue.Close()
	comp := &fakeCompensator{}
	worker := NewWorker(queue, comp, 3, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	worker.Register(StageNotification, func(_ context.Context, _ Message) Decision {
		return DeadLetter
	})

	cancel, wg := runWorker(t, worker)
	defer func() { cancel(); wg.Wait() }()

	bookingID := uuid.New()
	msg := NewMessage(StageNotification, bookingID, "group", nil)
	require.NoError(t, queue.Publish(context.Background(), msg))

	require.Eventually(t, func() bool {
		return len(queue.DeadLetters(StageNotification)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, comp.count())
	assert.Equal(t, bookingID, comp.failed[0])
}

func TestWorkerAckCompletesWithoutCompensation(t *testing.T) {
	queue := NewMemoryQueue(16, zap.NewNop())
	defer queue.Close()
	comp := &fakeCompensator{}
	worker := NewWorker(queue, comp, 3, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	handled := make(chan struct{}, 1)
	worker.Register(StageAnalytics, func(_ context.Context, _ Message) Decision {
		handled <- struct{}{}
		return Ack
	})

	cancel, wg := runWorker(t, worker)
	defer func() { cancel(); wg.Wait() }()

	require.NoError(t, queue.Publish(context.Background(), NewMessage(StageAnalytics, uuid.New(), "group", nil)))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}

	assert.Empty(t, queue.DeadLetters(StageAnalytics))
	assert.Equal(t, 0, comp.count())
}
