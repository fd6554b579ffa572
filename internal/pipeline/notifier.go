package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier hands a booking status change to the external notification
// collaborator. Content and delivery channel are not this service's
// concern.
type Notifier interface {
	Notify(ctx context.Context, userID, bookingID uuid.UUID, kind string) error
}

// LogNotifier records dispatches in the log; the default when no delivery
// backend is wired.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("component", "notifier"))}
}

func (n *LogNotifier) Notify(_ context.Context, userID, bookingID uuid.UUID, kind string) error {
	n.log.Info("Notification dispatched",
		zap.String("user_id", userID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.String("kind", kind),
	)
	return nil
}
