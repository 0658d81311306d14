package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/service"
)

// Subscriber is a long-running delivery loop, such as the redis notification fan-out.
type Subscriber interface {
	Run(ctx context.Context) error
}

const resubscribeDelay = 2 * time.Second

// StartNotificationWorker registers notification handlers and, when a subscriber is given,
// keeps it running until ctx is cancelled. A subscriber that fails is restarted after a delay.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, subscriber Subscriber, logger *zap.Logger) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if subscriber == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		for {
			err := subscriber.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				logger.Warn("notification subscriber stopped", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
		}
	}()
}
