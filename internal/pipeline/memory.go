package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryQueue is the in-process Queue used by default and in tests. Each
// stage is one buffered channel drained by a single consumer, so messages
// on a stage are delivered in publish order — which covers the per-event
// FIFO requirement of the booking stage. Dead letters are retained and
// inspectable.
type MemoryQueue struct {
	mu     sync.Mutex
	stages map[Stage]chan Message
	dead   map[Stage][]Message
	closed bool
	log    *zap.Logger
}

func NewMemoryQueue(bufferSize int, log *zap.Logger) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	stages := make(map[Stage]chan Message, len(Stages))
	for _, stage := range Stages {
		stages[stage] = make(chan Message, bufferSize)
	}

	return &MemoryQueue{
		stages: stages,
		dead:   make(map[Stage][]Message),
		log:    log.With(zap.String("queue", "memory")),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, msg Message) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return context.Canceled
	}
	ch, ok := q.stages[msg.Stage]
	q.mu.Unlock()

	if !ok {
		q.log.Error("Publish to unknown stage", zap.String("stage", string(msg.Stage)))
		return nil
	}

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) PublishDead(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dead[msg.Stage] = append(q.dead[msg.Stage], msg)
	q.log.Warn("Message dead-lettered",
		zap.String("stage", string(msg.Stage)),
		zap.String("dedup_key", msg.DedupKey),
		zap.Int("attempt", msg.Attempt),
	)
	return nil
}

func (q *MemoryQueue) Consume(ctx context.Context, stage Stage, handler Handler) error {
	q.mu.Lock()
	ch, ok := q.stages[stage]
	q.mu.Unlock()

	if !ok {
		return nil
	}

	for {
		select {
		case msg := <-ch:
			handler(ctx, msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DeadLetters returns a copy of the stage's dead-letter backlog.
func (q *MemoryQueue) DeadLetters(stage Stage) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Message, len(q.dead[stage]))
	copy(out, q.dead[stage])
	return out
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
