package services

import (
	"context"

	"github.com/yukikurage/workspace-api/internal/events"
	"go.uber.org/zap"
)

// publish delivers events after the mutation that produced them committed.
// Delivery failures are logged and never undo the mutation.
func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, evts ...events.Event) {
	for _, event := range evts {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Warn("failed to publish event",
				zap.String("event", string(event.Name)),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
}
