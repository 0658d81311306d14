package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	written []Envelope
	fail    bool
	closed  bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.written = append(c.written, v.(Envelope))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHubSendsOnlyToTargetUser(t *testing.T) {
	hub := NewHub(nil, nil)
	alice1, alice2, bob := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("alice", alice1)
	hub.Register("alice", alice2)
	hub.Register("bob", bob)

	require.NoError(t, hub.Send(context.Background(), "alice", Envelope{Type: "notification", Data: "hi"}))

	assert.Len(t, alice1.written, 1)
	assert.Len(t, alice2.written, 1)
	assert.Empty(t, bob.written)
	assert.Equal(t, "notification", alice1.written[0].Type)
}

func TestHubDropsFailedConnections(t *testing.T) {
	hub := NewHub(nil, nil)
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	hub.Register("u1", good)
	hub.Register("u1", bad)

	require.NoError(t, hub.Send(context.Background(), "u1", Envelope{Type: "notification"}))

	assert.Equal(t, 1, hub.Count("u1"))
	assert.True(t, bad.closed)
	assert.False(t, good.closed)
}

func TestHubSendWithoutConnections(t *testing.T) {
	hub := NewHub(nil, nil)
	assert.NoError(t, hub.Send(context.Background(), "nobody", Envelope{Type: "notification"}))

	conn := &fakeConn{}
	hub.Register("u1", conn)
	hub.Unregister("u1", conn)
	hub.Unregister("u1", conn)
	assert.Equal(t, 0, hub.Count("u1"))
}
