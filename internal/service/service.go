package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// publisher stamps and publishes domain events after a unit of work commits.
type publisher struct {
	dispatcher events.Dispatcher
	now        func() time.Time
}

func newPublisher(dispatcher events.Dispatcher, now func() time.Time) publisher {
	return publisher{dispatcher: dispatcher, now: clock(now)}
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	_ = p.dispatcher.Publish(ctx, event)
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// notFound maps repository.ErrNotFound to a 404 for resource and passes other errors through.
func notFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

func trimmedLen(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}
