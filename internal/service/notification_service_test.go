package service

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/realtime"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

type captureConn struct {
	mu       sync.Mutex
	messages []realtime.Envelope
}

func (c *captureConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, v.(realtime.Envelope))
	return nil
}

func (c *captureConn) Close() error { return nil }

func TestOrderPlacementNotifiesOwner(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "rita", 0)
	other := seedUser(t, store, "sam", 0)
	ctx := context.Background()

	dispatcher := events.NewInMemoryDispatcher(nil)
	hub := realtime.NewHub(nil, nil)
	notifications := NewNotificationService(NotificationDependencies{Store: store, Registry: hub, Dispatcher: dispatcher})
	notifications.RegisterHandlers()

	ownerConn, otherConn := &captureConn{}, &captureConn{}
	hub.Register(user.ID, ownerConn)
	hub.Register(other.ID, otherConn)

	orders := NewOrderService(OrderDependencies{Store: store, Dispatcher: dispatcher})
	placement, err := orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 1))
	require.NoError(t, err)

	require.Len(t, ownerConn.messages, 1)
	envelope := ownerConn.messages[0]
	assert.Equal(t, "notification", envelope.Type)
	note, ok := envelope.Data.(*domain.Notification)
	require.True(t, ok)
	assert.Equal(t, domain.NotificationOrderCreated, note.Type)
	assert.Equal(t, user.ID, note.UserID)
	require.NotNil(t, note.Link)
	assert.Equal(t, "/orders/"+placement.Order.ID, *note.Link)
	assert.Empty(t, otherConn.messages)

	list, err := notifications.List(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)
}

func TestNotifyPersistsWithoutConnections(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	svc := NewNotificationService(NotificationDependencies{Store: store, Registry: realtime.NewHub(nil, nil)})

	for _, title := range []string{"a", "b"} {
		_, err := svc.Notify(ctx, "u1", title, "body", domain.NotificationPromotion, "")
		require.NoError(t, err)
	}
	list, err := svc.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Title)

	_, err = svc.MarkRead(ctx, "u2", list[0].ID)
	assert.True(t, apperrors.IsStatus(err, http.StatusNotFound))

	read, err := svc.MarkRead(ctx, "u1", list[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	count, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
