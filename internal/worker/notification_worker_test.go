package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakySubscriber struct {
	runs atomic.Int32
}

func (s *flakySubscriber) Run(ctx context.Context) error {
	if s.runs.Add(1) == 1 {
		return errors.New("connection reset")
	}
	<-ctx.Done()
	return nil
}

func TestNotificationWorkerRestartsSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := &flakySubscriber{}
	StartNotificationWorker(ctx, nil, sub, nil)

	assert.Eventually(t, func() bool { return sub.runs.Load() == 2 }, 5*time.Second, 20*time.Millisecond)
	cancel()
}
