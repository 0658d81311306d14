package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type fanoutMessage struct {
	UserID   string          `json:"user_id"`
	Envelope json.RawMessage `json:"envelope"`
}

// RedisFanout publishes pushes on a redis channel so every instance can deliver them to the
// connections it holds. Registration stays local.
type RedisFanout struct {
	local   *Hub
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisFanout wraps a local hub with redis pub/sub delivery.
func NewRedisFanout(local *Hub, client *redis.Client, channel string, logger *zap.Logger) *RedisFanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFanout{local: local, client: client, channel: channel, logger: logger}
}

func (f *RedisFanout) Register(userID string, conn Conn) {
	f.local.Register(userID, conn)
}

func (f *RedisFanout) Unregister(userID string, conn Conn) {
	f.local.Unregister(userID, conn)
}

func (f *RedisFanout) Count(userID string) int {
	return f.local.Count(userID)
}

// Send publishes the envelope; delivery happens in Run on every subscribed instance.
func (f *RedisFanout) Send(ctx context.Context, userID string, msg Envelope) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	payload, err := json.Marshal(fanoutMessage{UserID: userID, Envelope: body})
	if err != nil {
		return fmt.Errorf("encode fanout message: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Run subscribes to the channel and delivers messages locally until ctx is cancelled.
func (f *RedisFanout) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}
	f.logger.Info("notification fan-out subscribed", zap.String("channel", f.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.deliver(ctx, msg.Payload)
		}
	}
}

func (f *RedisFanout) deliver(ctx context.Context, payload string) {
	var m fanoutMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		f.logger.Warn("invalid fan-out message", zap.Error(err))
		return
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(m.Envelope, &env); err != nil {
		f.logger.Warn("invalid fan-out envelope", zap.Error(err))
		return
	}
	_ = f.local.Send(ctx, m.UserID, Envelope{Type: env.Type, Data: env.Data})
}
